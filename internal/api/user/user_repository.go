package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/go-recruiter-hub/internal/store"
	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

// Ensure RepositoryImpl implements the Repository interface
var _ Repository = (*RepositoryImpl)(nil)

// Repository is the admin-facing access layer over the users table. Unlike
// the document entities, users live in structured columns, so list queries
// are translated against a column whitelist instead of jsonb paths.
type Repository interface {
	ListUsers(ctx context.Context, q types.ListQuery) ([]*types.UserAuth, error)
	CountUsers(ctx context.Context, deleted bool) (int, error)
	GetUser(ctx context.Context, id uuid.UUID) (*types.UserAuth, error)
	CreateUser(ctx context.Context, name, email, role, passwordHash string) (*types.UserAuth, error)
	UpdateUser(ctx context.Context, id uuid.UUID, patch UpdateUserParams) (*types.UserAuth, error)
	SoftDeleteUser(ctx context.Context, id uuid.UUID) error
	GetUserNames(ctx context.Context, ids []string) ([]string, error)
}

// UpdateUserParams carries the mutable columns; nil means leave as is.
type UpdateUserParams struct {
	Name         *string
	Email        *string
	Role         *string
	PasswordHash *string
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool store.PGX
}

func NewRepository(pgpool store.PGX, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = "id, name, email, role, password_hash, deleted, created_at, updated_at"

// userColumn maps API field names to users-table columns. Unknown fields
// are dropped, same as the document store does.
func userColumn(field string) (string, bool) {
	switch field {
	case "id":
		return "id::text", true
	case "name":
		return "name", true
	case "email":
		return "email", true
	case "role":
		return "role", true
	case "createdAt":
		return "created_at", true
	case "updatedAt":
		return "updated_at", true
	}
	return "", false
}

func scanUser(row pgx.Row) (*types.UserAuth, error) {
	var u types.UserAuth
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Password, &u.Deleted, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func buildUserWhere(q types.ListQuery) (string, []any) {
	var sb strings.Builder
	args := []any{q.Deleted}
	sb.WriteString("deleted = $1")

	for _, f := range q.Filters {
		col, ok := userColumn(f.Field)
		if !ok {
			continue
		}
		switch f.Op {
		case types.OpEq:
			args = append(args, f.Value)
			fmt.Fprintf(&sb, " AND %s = $%d", col, len(args))
		case types.OpGt, types.OpGte, types.OpLt, types.OpLte:
			op := map[types.FilterOp]string{
				types.OpGt: ">", types.OpGte: ">=", types.OpLt: "<", types.OpLte: "<=",
			}[f.Op]
			args = append(args, f.Value)
			fmt.Fprintf(&sb, " AND %s %s $%d", col, op, len(args))
		case types.OpIn:
			args = append(args, f.Values)
			fmt.Fprintf(&sb, " AND %s = ANY($%d)", col, len(args))
		}
	}
	return sb.String(), args
}

func buildUserOrderBy(sort []types.SortKey) string {
	var keys []string
	for _, s := range sort {
		col, ok := userColumn(s.Field)
		if !ok {
			continue
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		keys = append(keys, col+" "+dir)
	}
	if len(keys) == 0 {
		return "created_at DESC"
	}
	return strings.Join(keys, ", ")
}

func (r *RepositoryImpl) ListUsers(ctx context.Context, q types.ListQuery) ([]*types.UserAuth, error) {
	where, args := buildUserWhere(q)
	args = append(args, q.Limit, q.Offset())
	query := fmt.Sprintf("SELECT %s FROM users WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		userColumns, where, buildUserOrderBy(q.Sort), len(args)-1, len(args))

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list users", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*types.UserAuth
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *RepositoryImpl) CountUsers(ctx context.Context, deleted bool) (int, error) {
	var count int
	err := r.pgpool.QueryRow(ctx, "SELECT count(*) FROM users WHERE deleted = $1", deleted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (r *RepositoryImpl) GetUser(ctx context.Context, id uuid.UUID) (*types.UserAuth, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1 AND deleted = false", userColumns)
	u, err := scanUser(r.pgpool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user %s: %w", id, err)
	}
	return u, nil
}

func (r *RepositoryImpl) CreateUser(ctx context.Context, name, email, role, passwordHash string) (*types.UserAuth, error) {
	query := fmt.Sprintf(`
        INSERT INTO users (name, email, role, password_hash)
        VALUES ($1, $2, $3, $4)
        RETURNING %s
    `, userColumns)
	u, err := scanUser(r.pgpool.QueryRow(ctx, query, name, email, role, passwordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("email %s: %w", email, types.ErrConflict)
		}
		r.logger.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (r *RepositoryImpl) UpdateUser(ctx context.Context, id uuid.UUID, patch UpdateUserParams) (*types.UserAuth, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}
	add := func(col string, v *string) {
		if v != nil {
			args = append(args, *v)
			sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	add("name", patch.Name)
	add("email", patch.Email)
	add("role", patch.Role)
	add("password_hash", patch.PasswordHash)

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $1 AND deleted = false RETURNING %s",
		strings.Join(sets, ", "), userColumns)
	u, err := scanUser(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("email already taken: %w", types.ErrConflict)
		}
		return nil, fmt.Errorf("failed to update user %s: %w", id, err)
	}
	return u, nil
}

func (r *RepositoryImpl) SoftDeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx,
		"UPDATE users SET deleted = true, updated_at = now() WHERE id = $1 AND deleted = false", id)
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// GetUserNames resolves display names for a set of user ids, sorted so
// callers get a stable order for slug building.
func (r *RepositoryImpl) GetUserNames(ctx context.Context, ids []string) ([]string, error) {
	rows, err := r.pgpool.Query(ctx,
		"SELECT name FROM users WHERE id::text = ANY($1) ORDER BY name", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan user name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
