package api

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

func TestParseListQuery(t *testing.T) {
	t.Run("ReservedKeysOnly", func(t *testing.T) {
		values := url.Values{}
		values.Set("select", "name,description")
		values.Set("sort", "name")
		values.Set("page", "2")
		values.Set("limit", "25")

		q := ParseListQuery(values)

		assert.Empty(t, q.Filters)
		assert.False(t, q.Deleted)
		assert.Equal(t, []string{"name", "description"}, q.Select)
		assert.Equal(t, 2, q.Page)
		assert.Equal(t, 25, q.Limit)
	})

	t.Run("EqualityFilter", func(t *testing.T) {
		values := url.Values{}
		values.Set("minimumSkill", "advanced")

		q := ParseListQuery(values)

		assert.Len(t, q.Filters, 1)
		assert.Equal(t, types.Filter{Field: "minimumSkill", Op: types.OpEq, Value: "advanced"}, q.Filters[0])
	})

	t.Run("ComparisonOperators", func(t *testing.T) {
		values := url.Values{}
		values.Set("pay[gte]", "50000")
		values.Set("rating[lt]", "5")

		q := ParseListQuery(values)

		assert.Len(t, q.Filters, 2)
		ops := map[string]types.FilterOp{}
		for _, f := range q.Filters {
			ops[f.Field] = f.Op
		}
		assert.Equal(t, types.OpGte, ops["pay"])
		assert.Equal(t, types.OpLt, ops["rating"])
	})

	t.Run("InOperatorSplitsValues", func(t *testing.T) {
		values := url.Values{}
		values.Set("careers[in]", "Web Development,Data Science")

		q := ParseListQuery(values)

		assert.Len(t, q.Filters, 1)
		assert.Equal(t, types.OpIn, q.Filters[0].Op)
		assert.Equal(t, []string{"Web Development", "Data Science"}, q.Filters[0].Values)
	})

	t.Run("UnknownOperatorDropped", func(t *testing.T) {
		values := url.Values{}
		values.Set("pay[regex]", ".*")
		values.Set("pay[GTE]", "1") // operators are case-sensitive

		q := ParseListQuery(values)

		assert.Empty(t, q.Filters)
	})

	t.Run("DeletedDefaultsFalse", func(t *testing.T) {
		q := ParseListQuery(url.Values{})
		assert.False(t, q.Deleted)
	})

	t.Run("DeletedExplicitTrue", func(t *testing.T) {
		values := url.Values{}
		values.Set("deleted", "true")

		q := ParseListQuery(values)

		assert.True(t, q.Deleted)
		assert.Empty(t, q.Filters, "deleted must not become a payload filter")
	})

	t.Run("DefaultSortMatchesExplicitDefault", func(t *testing.T) {
		implicit := ParseListQuery(url.Values{})

		values := url.Values{}
		values.Set("sort", "-createdAt")
		explicit := ParseListQuery(values)

		assert.Equal(t, explicit.Sort, implicit.Sort)
		assert.Equal(t, "-createdAt", implicit.SortBy)
	})

	t.Run("MixedSortDirections", func(t *testing.T) {
		values := url.Values{}
		values.Set("sort", "name,-createdAt")

		q := ParseListQuery(values)

		assert.Equal(t, []types.SortKey{
			{Field: "name"},
			{Field: "createdAt", Desc: true},
		}, q.Sort)
		assert.Equal(t, "name -createdAt", q.SortBy)
	})

	t.Run("PageAllForcesLimit", func(t *testing.T) {
		values := url.Values{}
		values.Set("page", "All")
		values.Set("limit", "25")

		q := ParseListQuery(values)

		assert.Equal(t, AllPageLimit, q.Limit)
		assert.Equal(t, DefaultPage, q.Page)
	})

	t.Run("UnparseableNumbersFallBack", func(t *testing.T) {
		values := url.Values{}
		values.Set("page", "abc")
		values.Set("limit", "-3")

		q := ParseListQuery(values)

		assert.Equal(t, DefaultPage, q.Page)
		assert.Equal(t, DefaultLimit, q.Limit)
	})
}

func TestBuildPagination(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		totalRows  int
		total      int
		wantNext   bool
		wantPrev   bool
	}{
		{"FirstOfMany", 1, 10, 35, 4, true, false},
		{"MiddlePage", 2, 10, 35, 4, true, true},
		{"LastPartialPage", 4, 10, 35, 4, false, true},
		{"ExactBoundary", 2, 10, 20, 2, false, true},
		{"SinglePage", 1, 10, 5, 1, false, false},
		{"Empty", 1, 10, 0, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := BuildPagination(tt.page, tt.limit, tt.totalRows)

			assert.Equal(t, tt.total, p.Total)
			assert.Equal(t, tt.totalRows, p.TotalRows)
			assert.Equal(t, tt.page, p.Current)
			assert.Equal(t, tt.limit, p.Limit)

			// next present iff page*limit < totalRows
			if tt.wantNext {
				assert.Equal(t, &types.PageRef{Page: tt.page + 1, Limit: tt.limit}, p.Next)
			} else {
				assert.Nil(t, p.Next)
			}
			// prev present iff page > 1
			if tt.wantPrev {
				assert.Equal(t, &types.PageRef{Page: tt.page - 1, Limit: tt.limit}, p.Prev)
			} else {
				assert.Nil(t, p.Prev)
			}
		})
	}
}
