package user

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

func TestBuildUserWhere(t *testing.T) {
	t.Run("WhitelistedColumns", func(t *testing.T) {
		where, args := buildUserWhere(types.ListQuery{
			Filters: []types.Filter{
				{Field: "role", Op: types.OpEq, Value: "company"},
				{Field: "createdAt", Op: types.OpGte, Value: "2026-01-01"},
			},
		})

		assert.Equal(t, "deleted = $1 AND role = $2 AND created_at >= $3", where)
		assert.Equal(t, []any{false, "company", "2026-01-01"}, args)
	})

	t.Run("UnknownFieldDropped", func(t *testing.T) {
		where, args := buildUserWhere(types.ListQuery{
			Filters: []types.Filter{{Field: "password_hash", Op: types.OpEq, Value: "x"}},
		})

		assert.Equal(t, "deleted = $1", where)
		assert.Len(t, args, 1)
	})

	t.Run("InOperator", func(t *testing.T) {
		where, args := buildUserWhere(types.ListQuery{
			Filters: []types.Filter{{Field: "role", Op: types.OpIn, Values: []string{"company", "publisher"}}},
		})

		assert.Equal(t, "deleted = $1 AND role = ANY($2)", where)
		assert.Equal(t, []string{"company", "publisher"}, args[1])
	})
}

func TestBuildUserOrderBy(t *testing.T) {
	assert.Equal(t, "created_at DESC", buildUserOrderBy(nil))
	assert.Equal(t, "name ASC, created_at DESC", buildUserOrderBy([]types.SortKey{
		{Field: "name"}, {Field: "createdAt", Desc: true},
	}))
	assert.Equal(t, "created_at DESC", buildUserOrderBy([]types.SortKey{{Field: "nope"}}))
}
