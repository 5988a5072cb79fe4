package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/go-recruiter-hub/internal/store"
	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

// Ensure RepositoryImpl implements the Repository interface
var _ Repository = (*RepositoryImpl)(nil)

// Repository is the typed access layer over the users table.
type Repository interface {
	CreateUser(ctx context.Context, name, email, role, passwordHash string) (*types.UserAuth, error)
	GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*types.UserAuth, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, name, email string) (*types.UserAuth, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, newHash string) error
	SetResetToken(ctx context.Context, email, tokenHash string, expire time.Time) (*types.UserAuth, error)
	ClearResetToken(ctx context.Context, id uuid.UUID) error
	GetUserByResetToken(ctx context.Context, tokenHash string) (*types.UserAuth, error)
	ResetPassword(ctx context.Context, id uuid.UUID, newHash string) error
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

func scanUser(row pgx.Row) (*types.UserAuth, error) {
	var u types.UserAuth
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Password, &u.Deleted, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *RepositoryImpl) CreateUser(ctx context.Context, name, email, role, passwordHash string) (*types.UserAuth, error) {
	query := fmt.Sprintf(`
        INSERT INTO users (name, email, role, password_hash)
        VALUES ($1, $2, $3, $4)
        RETURNING %s
    `, userColumns)
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, name, email, role, passwordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("email %s: %w", email, types.ErrConflict)
		}
		r.logger.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (r *RepositoryImpl) GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1 AND deleted = false", userColumns)
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (r *RepositoryImpl) GetUserByID(ctx context.Context, id uuid.UUID) (*types.UserAuth, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1 AND deleted = false", userColumns)
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

// UpdateDetails patches the caller's own name and email.
func (r *RepositoryImpl) UpdateDetails(ctx context.Context, id uuid.UUID, name, email string) (*types.UserAuth, error) {
	query := fmt.Sprintf(`
        UPDATE users SET name = $2, email = $3, updated_at = now()
        WHERE id = $1 AND deleted = false
        RETURNING %s
    `, userColumns)
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, id, name, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("email %s: %w", email, types.ErrConflict)
		}
		r.logger.ErrorContext(ctx, "Failed to update user details", slog.Any("error", err))
		return nil, fmt.Errorf("failed to update user details: %w", err)
	}
	return user, nil
}

func (r *RepositoryImpl) UpdatePassword(ctx context.Context, id uuid.UUID, newHash string) error {
	query := "UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1"
	tag, err := r.pgpool.Exec(ctx, query, id, newHash)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update password", slog.Any("error", err))
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// SetResetToken stores the hashed reset token and returns the matched user.
func (r *RepositoryImpl) SetResetToken(ctx context.Context, email, tokenHash string, expire time.Time) (*types.UserAuth, error) {
	query := fmt.Sprintf(`
        UPDATE users SET reset_password_token = $2, reset_password_expire = $3, updated_at = now()
        WHERE email = $1 AND deleted = false
        RETURNING %s
    `, userColumns)
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, email, tokenHash, expire))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to set reset token: %w", err)
	}
	return user, nil
}

func (r *RepositoryImpl) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	query := "UPDATE users SET reset_password_token = NULL, reset_password_expire = NULL, updated_at = now() WHERE id = $1"
	if _, err := r.pgpool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to clear reset token: %w", err)
	}
	return nil
}

// GetUserByResetToken matches an unexpired token hash.
func (r *RepositoryImpl) GetUserByResetToken(ctx context.Context, tokenHash string) (*types.UserAuth, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM users
        WHERE reset_password_token = $1 AND reset_password_expire > now() AND deleted = false
    `, userColumns)
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, tokenHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by reset token: %w", err)
	}
	return user, nil
}

// ResetPassword swaps the password hash and clears the token in one write.
func (r *RepositoryImpl) ResetPassword(ctx context.Context, id uuid.UUID, newHash string) error {
	query := `
        UPDATE users SET password_hash = $2, reset_password_token = NULL,
            reset_password_expire = NULL, updated_at = now()
        WHERE id = $1
    `
	tag, err := r.pgpool.Exec(ctx, query, id, newHash)
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}
