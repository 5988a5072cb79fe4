package resource

import (
	"github.com/FACorreiaa/go-recruiter-hub/internal/store"
	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

// ParentRef links a child entity to the entity it is created under. Nested
// create routes resolve the parent from the URL, confirm it exists, and
// authorize against the parent's owner before inserting the child.
type ParentRef struct {
	// Model is the parent's audit tag, e.g. "Company".
	Model string
	// Table is the parent's table.
	Table string
	// Field is the payload field on the child holding the parent id.
	Field string
	// URLParam is the chi route parameter carrying the parent id.
	URLParam string
}

// EntityConfig drives the generic resource handler. Every entity shares the
// same control flow; only this configuration differs.
type EntityConfig struct {
	// Name is the audit tag and the singular display name in messages.
	Name string
	// Table is the backing document table.
	Table string
	// SoftDelete flags the row instead of removing it. The per-entity
	// split is deliberate; API consumers depend on it.
	SoftDelete bool
	// CreateRoles may mutate this entity besides its owner and admins.
	CreateRoles []string
	// SingleOwner caps non-admin principals at one resource each.
	SingleOwner bool
	// Required payload fields, checked on create.
	Required []string
	// Parent, when set, makes creates nested under the parent entity.
	Parent *ParentRef
	// Populate lists the relations eagerly joined on reads.
	Populate []store.Relation
	// Geo enables geocoding of the payload zipcode and radius search.
	Geo bool
	// PhotoPrefix names uploaded files; empty disables photo upload.
	PhotoPrefix string
	// PhotoField is the payload field patched with the stored filename.
	PhotoField string
}

var (
	Companies = EntityConfig{
		Name:        "Company",
		Table:       store.TableCompanies,
		SoftDelete:  true,
		CreateRoles: []string{types.RoleCompany},
		SingleOwner: true,
		Required:    []string{"name", "description"},
		Populate: []store.Relation{
			{Name: "jobs", Table: store.TableJobs, LocalField: "", ForeignField: "company"},
		},
		Geo:         true,
		PhotoPrefix: "photo",
		PhotoField:  "photo",
	}

	Jobs = EntityConfig{
		Name:        "Job",
		Table:       store.TableJobs,
		SoftDelete:  true,
		CreateRoles: []string{types.RoleCompany},
		Required:    []string{"title", "description"},
		Parent: &ParentRef{
			Model:    "Company",
			Table:    store.TableCompanies,
			Field:    "company",
			URLParam: "companyId",
		},
		Populate: []store.Relation{
			{Name: "company", Table: store.TableCompanies, LocalField: "company", Single: true},
		},
	}

	Bootcamps = EntityConfig{
		Name:        "Bootcamp",
		Table:       store.TableBootcamps,
		CreateRoles: []string{types.RolePublisher},
		SingleOwner: true,
		Required:    []string{"name", "description"},
		Populate: []store.Relation{
			{Name: "courses", Table: store.TableCourses, LocalField: "", ForeignField: "bootcamp"},
		},
		Geo:         true,
		PhotoPrefix: "photo",
		PhotoField:  "photo",
	}

	Courses = EntityConfig{
		Name:        "Course",
		Table:       store.TableCourses,
		CreateRoles: []string{types.RolePublisher},
		Required:    []string{"title", "description"},
		Parent: &ParentRef{
			Model:    "Bootcamp",
			Table:    store.TableBootcamps,
			Field:    "bootcamp",
			URLParam: "bootcampId",
		},
		Populate: []store.Relation{
			{Name: "bootcamp", Table: store.TableBootcamps, LocalField: "bootcamp", Single: true,
				Select: []string{"name", "description"}},
		},
	}

	Reviews = EntityConfig{
		Name:        "Review",
		Table:       store.TableReviews,
		CreateRoles: []string{types.RoleUser},
		Required:    []string{"title", "text"},
		Parent: &ParentRef{
			Model:    "Bootcamp",
			Table:    store.TableBootcamps,
			Field:    "bootcamp",
			URLParam: "bootcampId",
		},
		Populate: []store.Relation{
			{Name: "bootcamp", Table: store.TableBootcamps, LocalField: "bootcamp", Single: true,
				Select: []string{"name", "description"}},
		},
	}

	Images = EntityConfig{
		Name:       "Image",
		Table:      store.TableImages,
		SoftDelete: true,
	}
)
