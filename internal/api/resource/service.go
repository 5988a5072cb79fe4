package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-recruiter-hub/app/observability/metrics"
	"github.com/FACorreiaa/go-recruiter-hub/internal/api"
	"github.com/FACorreiaa/go-recruiter-hub/internal/api/audit"
	"github.com/FACorreiaa/go-recruiter-hub/internal/store"
	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

// Earth radii used to turn a distance into an angular search radius.
const (
	earthRadiusMiles = 3963.0
	earthRadiusKm    = 6378.0
	earthRadiusM     = 6371008.8
)

// Geocoder resolves a postal code into a point.
type Geocoder interface {
	Geocode(ctx context.Context, postalCode string) (types.Point, error)
}

// Storage persists uploaded file bytes under a name.
type Storage interface {
	Store(ctx context.Context, name string, r io.Reader) error
}

var _ Service = (*ServiceImpl)(nil)

// Service is the generic entity orchestration every resource route shares.
// Mutations run the same sequence: existence, authorization, store mutation,
// audit record; the audit write is awaited and its failure fails the request.
type Service interface {
	List(ctx context.Context, cfg EntityConfig, q types.ListQuery) (*types.ListResponse, error)
	ListByParent(ctx context.Context, cfg EntityConfig, parentID string, q types.ListQuery) (*types.ListResponse, error)
	Get(ctx context.Context, cfg EntityConfig, id uuid.UUID) (*types.Document, error)
	Create(ctx context.Context, cfg EntityConfig, principal types.Principal, parentID string, payload map[string]any) (*types.Document, error)
	Update(ctx context.Context, cfg EntityConfig, principal types.Principal, id uuid.UUID, patch map[string]any) (*types.Document, error)
	Delete(ctx context.Context, cfg EntityConfig, principal types.Principal, id uuid.UUID) error
	WithinRadius(ctx context.Context, cfg EntityConfig, zipcode string, distance float64, unit string) ([]*types.Document, error)
	AttachPhoto(ctx context.Context, cfg EntityConfig, principal types.Principal, id uuid.UUID, filename, contentType string, file io.Reader) (string, error)
	CreateTeamImage(ctx context.Context, principal types.Principal, companyID uuid.UUID, filename, contentType string, file io.Reader) (*types.Document, error)
}

type ServiceImpl struct {
	logger       *slog.Logger
	store        store.Store
	auditService audit.Recorder
	geocoder     Geocoder
	storage      Storage
}

func NewServiceImpl(entityStore store.Store, auditService audit.Recorder, geocoder Geocoder, storage Storage, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:       logger,
		store:        entityStore,
		auditService: auditService,
		geocoder:     geocoder,
		storage:      storage,
	}
}

// List returns one page of entities with the envelope's pagination block.
// The total row count deliberately honors only the deleted flag.
func (s *ServiceImpl) List(ctx context.Context, cfg EntityConfig, q types.ListQuery) (*types.ListResponse, error) {
	return s.list(ctx, cfg, q)
}

// ListByParent scopes the listing to one parent entity, e.g. the jobs of a
// single company.
func (s *ServiceImpl) ListByParent(ctx context.Context, cfg EntityConfig, parentID string, q types.ListQuery) (*types.ListResponse, error) {
	if cfg.Parent == nil {
		return s.list(ctx, cfg, q)
	}
	q.Filters = append(q.Filters, types.Filter{Field: cfg.Parent.Field, Op: types.OpEq, Value: parentID})
	return s.list(ctx, cfg, q)
}

func (s *ServiceImpl) list(ctx context.Context, cfg EntityConfig, q types.ListQuery) (*types.ListResponse, error) {
	ctx, span := otel.Tracer("ResourceService").Start(ctx, "List", trace.WithAttributes(
		attribute.String("entity", cfg.Name),
	))
	defer span.End()

	docs, err := s.store.Find(ctx, cfg.Table, q, cfg.Populate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list entities")
		return nil, err
	}
	total, err := s.store.Count(ctx, cfg.Table, q.Deleted)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to count entities")
		return nil, err
	}

	if docs == nil {
		docs = []*types.Document{}
	}
	for _, doc := range docs {
		doc.Select = q.Select
	}
	span.SetStatus(codes.Ok, "Entities listed")
	return &types.ListResponse{
		Success:    true,
		Count:      len(docs),
		Pagination: api.BuildPagination(q.Page, q.Limit, total),
		Data:       docs,
		SortBy:     q.SortBy,
	}, nil
}

// Get resolves a single entity with its configured relations.
func (s *ServiceImpl) Get(ctx context.Context, cfg EntityConfig, id uuid.UUID) (*types.Document, error) {
	ctx, span := otel.Tracer("ResourceService").Start(ctx, "Get", trace.WithAttributes(
		attribute.String("entity", cfg.Name), attribute.String("id", id.String()),
	))
	defer span.End()

	doc, err := s.store.FindByID(ctx, cfg.Table, id, cfg.Populate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Entity not found")
		return nil, fmt.Errorf("%s %s: %w", cfg.Name, id, err)
	}
	span.SetStatus(codes.Ok, "Entity found")
	return doc, nil
}

// validatePayload aggregates every missing required field into one error
// instead of failing on the first.
func validatePayload(cfg EntityConfig, payload map[string]any) error {
	var messages []string
	for _, field := range cfg.Required {
		v, ok := payload[field]
		if !ok {
			messages = append(messages, fmt.Sprintf("Please add a %s", field))
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			messages = append(messages, fmt.Sprintf("Please add a %s", field))
		}
	}
	if len(messages) > 0 {
		return &types.ValidationError{Messages: messages}
	}
	return nil
}

// geoPoint geocodes the payload zipcode for geo-enabled entities.
func (s *ServiceImpl) geoPoint(ctx context.Context, cfg EntityConfig, payload map[string]any) (*types.Point, error) {
	if !cfg.Geo || s.geocoder == nil {
		return nil, nil
	}
	zipcode, _ := payload["zipcode"].(string)
	if zipcode == "" {
		return nil, nil
	}
	point, err := s.geocoder.Geocode(ctx, zipcode)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode %q: %w", zipcode, err)
	}
	return &point, nil
}

// Create inserts a new entity owned by the principal. Parented entities
// resolve and authorize against their parent first; single-owner entities
// reject a second create from the same non-admin principal.
func (s *ServiceImpl) Create(ctx context.Context, cfg EntityConfig, principal types.Principal, parentID string, payload map[string]any) (*types.Document, error) {
	ctx, span := otel.Tracer("ResourceService").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("entity", cfg.Name), attribute.String("principal.id", principal.ID.String()),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Create"), slog.String("entity", cfg.Name))

	if err := Authorize(principal, nil, cfg.CreateRoles); err != nil {
		span.SetStatus(codes.Error, "Create denied")
		return nil, err
	}
	if err := validatePayload(cfg, payload); err != nil {
		span.SetStatus(codes.Error, "Validation failed")
		return nil, err
	}

	// Check-then-act; concurrent identical creates can race past it.
	if cfg.SingleOwner && !principal.IsAdmin() {
		existing, err := s.store.FindOne(ctx, cfg.Table, []types.Filter{
			{Field: "user", Op: types.OpEq, Value: principal.ID.String()},
		}, false)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if existing != nil {
			span.SetStatus(codes.Error, "Owner already has one")
			return nil, &types.ValidationError{Messages: []string{
				fmt.Sprintf("The user with ID %s has already published a %s", principal.ID, strings.ToLower(cfg.Name)),
			}}
		}
	}

	var auditParent *types.AuditParent
	if cfg.Parent != nil {
		parent, err := s.resolveParent(ctx, cfg, principal, parentID)
		if err != nil {
			span.SetStatus(codes.Error, "Parent check failed")
			return nil, err
		}
		payload[cfg.Parent.Field] = parent.ID.String()
		auditParent = &types.AuditParent{ParentModel: cfg.Parent.Model, ParentID: parent.ID.String()}
	}

	loc, err := s.geoPoint(ctx, cfg, payload)
	if err != nil {
		return nil, err
	}

	doc, err := s.store.Create(ctx, cfg.Table, &principal.ID, payload, loc)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create entity", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Store create failed")
		return nil, err
	}

	if err := s.record(ctx, cfg.Name, doc.ID, &principal.ID, types.AuditActionCreated, auditParent); err != nil {
		return nil, err
	}
	metrics.Get().MutationsTotal.Add(ctx, 1)
	l.InfoContext(ctx, "Entity created", slog.String("id", doc.ID.String()))
	span.SetStatus(codes.Ok, "Entity created")
	return doc, nil
}

// resolveParent confirms the parent exists before any ownership logic runs,
// then authorizes the principal against the parent's owner.
func (s *ServiceImpl) resolveParent(ctx context.Context, cfg EntityConfig, principal types.Principal, parentID string) (*types.Document, error) {
	pid, err := uuid.Parse(parentID)
	if err != nil {
		return nil, fmt.Errorf("no %s with the id of %s: %w", cfg.Parent.Model, parentID, types.ErrNotFound)
	}
	parent, err := s.store.FindByID(ctx, cfg.Parent.Table, pid, nil)
	if err != nil {
		return nil, fmt.Errorf("no %s with the id of %s: %w", cfg.Parent.Model, parentID, err)
	}
	if err := Authorize(principal, parent.User, nil); err != nil {
		return nil, err
	}
	return parent, nil
}

// Update patches an existing entity. Existence is confirmed strictly before
// ownership is consulted.
func (s *ServiceImpl) Update(ctx context.Context, cfg EntityConfig, principal types.Principal, id uuid.UUID, patch map[string]any) (*types.Document, error) {
	ctx, span := otel.Tracer("ResourceService").Start(ctx, "Update", trace.WithAttributes(
		attribute.String("entity", cfg.Name), attribute.String("id", id.String()),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Update"), slog.String("entity", cfg.Name), slog.String("id", id.String()))

	existing, err := s.store.FindByID(ctx, cfg.Table, id, nil)
	if err != nil {
		span.SetStatus(codes.Error, "Entity not found")
		return nil, fmt.Errorf("%s %s: %w", cfg.Name, id, err)
	}
	if err := Authorize(principal, existing.User, nil); err != nil {
		span.SetStatus(codes.Error, "Update denied")
		return nil, err
	}

	loc, err := s.geoPoint(ctx, cfg, patch)
	if err != nil {
		return nil, err
	}

	doc, err := s.store.UpdateByID(ctx, cfg.Table, id, patch, loc)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update entity", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Store update failed")
		return nil, err
	}

	if err := s.record(ctx, cfg.Name, doc.ID, principalRef(principal), types.AuditActionUpdated, nil); err != nil {
		return nil, err
	}
	metrics.Get().MutationsTotal.Add(ctx, 1)
	span.SetStatus(codes.Ok, "Entity updated")
	return doc, nil
}

// Delete removes an entity, softly or physically per its configuration.
func (s *ServiceImpl) Delete(ctx context.Context, cfg EntityConfig, principal types.Principal, id uuid.UUID) error {
	ctx, span := otel.Tracer("ResourceService").Start(ctx, "Delete", trace.WithAttributes(
		attribute.String("entity", cfg.Name), attribute.String("id", id.String()),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Delete"), slog.String("entity", cfg.Name), slog.String("id", id.String()))

	existing, err := s.store.FindByID(ctx, cfg.Table, id, nil)
	if err != nil {
		span.SetStatus(codes.Error, "Entity not found")
		return fmt.Errorf("%s %s: %w", cfg.Name, id, err)
	}
	if err := Authorize(principal, existing.User, nil); err != nil {
		span.SetStatus(codes.Error, "Delete denied")
		return err
	}

	if cfg.SoftDelete {
		err = s.store.SoftDelete(ctx, cfg.Table, id)
	} else {
		err = s.store.Remove(ctx, cfg.Table, id)
	}
	if err != nil {
		l.ErrorContext(ctx, "Failed to delete entity", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Store delete failed")
		return err
	}

	if err := s.record(ctx, cfg.Name, id, principalRef(principal), types.AuditActionDeleted, nil); err != nil {
		return err
	}
	metrics.Get().MutationsTotal.Add(ctx, 1)
	span.SetStatus(codes.Ok, "Entity deleted")
	return nil
}

// WithinRadius geocodes the zipcode and returns every non-deleted entity
// whose location falls inside the distance around it.
func (s *ServiceImpl) WithinRadius(ctx context.Context, cfg EntityConfig, zipcode string, distance float64, unit string) ([]*types.Document, error) {
	ctx, span := otel.Tracer("ResourceService").Start(ctx, "WithinRadius", trace.WithAttributes(
		attribute.String("entity", cfg.Name), attribute.String("zipcode", zipcode),
	))
	defer span.End()

	if s.geocoder == nil {
		return nil, fmt.Errorf("geocoder unavailable: %w", types.ErrUpstreamIO)
	}
	center, err := s.geocoder.Geocode(ctx, zipcode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Geocoding failed")
		return nil, fmt.Errorf("failed to geocode %q: %w", zipcode, err)
	}

	// Angular radius from the distance, then back to meters for the store.
	earthRadius := earthRadiusMiles
	if unit == "km" {
		earthRadius = earthRadiusKm
	}
	radiusMeters := distance / earthRadius * earthRadiusM

	docs, err := s.store.FindWithinRadius(ctx, cfg.Table, center, radiusMeters)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Radius query failed")
		return nil, err
	}
	if docs == nil {
		docs = []*types.Document{}
	}
	span.SetStatus(codes.Ok, "Radius search done")
	return docs, nil
}

// AttachPhoto stores an uploaded image and patches the entity's photo field.
// Returns the stored filename.
func (s *ServiceImpl) AttachPhoto(ctx context.Context, cfg EntityConfig, principal types.Principal, id uuid.UUID, filename, contentType string, file io.Reader) (string, error) {
	ctx, span := otel.Tracer("ResourceService").Start(ctx, "AttachPhoto", trace.WithAttributes(
		attribute.String("entity", cfg.Name), attribute.String("id", id.String()),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "AttachPhoto"), slog.String("entity", cfg.Name), slog.String("id", id.String()))

	existing, err := s.store.FindByID(ctx, cfg.Table, id, nil)
	if err != nil {
		span.SetStatus(codes.Error, "Entity not found")
		return "", fmt.Errorf("%s %s: %w", cfg.Name, id, err)
	}
	if err := Authorize(principal, existing.User, nil); err != nil {
		span.SetStatus(codes.Error, "Upload denied")
		return "", err
	}
	if !strings.HasPrefix(contentType, "image") {
		return "", &types.ValidationError{Messages: []string{"Please upload an image file"}}
	}

	name := fmt.Sprintf("%s_%s%s", cfg.PhotoPrefix, id, fileExt(filename))
	if err := s.storage.Store(ctx, name, file); err != nil {
		l.ErrorContext(ctx, "Failed to store upload", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Storage write failed")
		return "", fmt.Errorf("failed to store %s: %w", name, types.ErrUpstreamIO)
	}

	if _, err := s.store.UpdateByID(ctx, cfg.Table, id, map[string]any{cfg.PhotoField: name}, nil); err != nil {
		return "", err
	}
	if err := s.record(ctx, cfg.Name, id, principalRef(principal), types.AuditActionPhotoUploaded, nil); err != nil {
		return "", err
	}
	metrics.Get().MutationsTotal.Add(ctx, 1)
	span.SetStatus(codes.Ok, "Photo attached")
	return name, nil
}

// CreateTeamImage uploads a team member photo for a company and records it
// as a standalone Image entity referencing the company.
func (s *ServiceImpl) CreateTeamImage(ctx context.Context, principal types.Principal, companyID uuid.UUID, filename, contentType string, file io.Reader) (*types.Document, error) {
	ctx, span := otel.Tracer("ResourceService").Start(ctx, "CreateTeamImage", trace.WithAttributes(
		attribute.String("company.id", companyID.String()),
	))
	defer span.End()

	company, err := s.store.FindByID(ctx, Companies.Table, companyID, nil)
	if err != nil {
		span.SetStatus(codes.Error, "Company not found")
		return nil, fmt.Errorf("Company %s: %w", companyID, err)
	}
	if err := Authorize(principal, company.User, nil); err != nil {
		span.SetStatus(codes.Error, "Upload denied")
		return nil, err
	}
	if !strings.HasPrefix(contentType, "image") {
		return nil, &types.ValidationError{Messages: []string{"Please upload an image file"}}
	}

	name := fmt.Sprintf("team_%s_%s%s", companyID, uuid.New(), fileExt(filename))
	if err := s.storage.Store(ctx, name, file); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Storage write failed")
		return nil, fmt.Errorf("failed to store %s: %w", name, types.ErrUpstreamIO)
	}

	doc, err := s.store.Create(ctx, Images.Table, &principal.ID, map[string]any{
		"company":  companyID.String(),
		"filename": name,
	}, nil)
	if err != nil {
		return nil, err
	}

	parent := &types.AuditParent{ParentModel: Companies.Name, ParentID: companyID.String()}
	if err := s.record(ctx, Images.Name, doc.ID, &principal.ID, types.AuditActionPhotoUploaded, parent); err != nil {
		return nil, err
	}
	metrics.Get().MutationsTotal.Add(ctx, 1)
	span.SetStatus(codes.Ok, "Team image created")
	return doc, nil
}

// record writes the audit entry for a committed mutation. The entry is
// awaited; its failure fails the request even though the mutation stuck.
func (s *ServiceImpl) record(ctx context.Context, model string, id uuid.UUID, user *uuid.UUID, action string, parent *types.AuditParent) error {
	return s.auditService.Record(ctx, types.AuditRecord{
		Model:   model,
		ModelID: id.String(),
		User:    user,
		Action:  action,
		Parent:  parent,
	})
}

func principalRef(principal types.Principal) *uuid.UUID {
	if principal.IsAnonymous() {
		return nil
	}
	id := principal.ID
	return &id
}

func fileExt(filename string) string {
	return filepath.Ext(filename)
}

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
