package user

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-recruiter-hub/app/observability/metrics"
	"github.com/FACorreiaa/go-recruiter-hub/internal/api/audit"
	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service is the admin user management surface. Route-level middleware
// restricts every operation here to admins, so the service does not
// re-check the principal's role.
type Service interface {
	ListUsers(ctx context.Context, q types.ListQuery) ([]*types.UserAuth, int, error)
	GetUser(ctx context.Context, id uuid.UUID) (*types.UserAuth, error)
	CreateUser(ctx context.Context, principal types.Principal, params CreateUserParams) (*types.UserAuth, error)
	UpdateUser(ctx context.Context, principal types.Principal, id uuid.UUID, params PatchUserParams) (*types.UserAuth, error)
	DeleteUser(ctx context.Context, principal types.Principal, id uuid.UUID) error
}

type CreateUserParams struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type PatchUserParams struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

type ServiceImpl struct {
	logger       *slog.Logger
	userRepo     Repository
	auditService audit.Recorder
}

func NewServiceImpl(repo Repository, auditService audit.Recorder, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:       logger,
		userRepo:     repo,
		auditService: auditService,
	}
}

// assignableRoles is what an admin may hand out. Registration is narrower;
// see the auth service.
var assignableRoles = append(slices.Clone(types.ValidRoles), types.RoleAdmin)

func (s *ServiceImpl) ListUsers(ctx context.Context, q types.ListQuery) ([]*types.UserAuth, int, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "ListUsers")
	defer span.End()

	users, err := s.userRepo.ListUsers(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "List failed")
		return nil, 0, err
	}
	total, err := s.userRepo.CountUsers(ctx, q.Deleted)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *ServiceImpl) GetUser(ctx context.Context, id uuid.UUID) (*types.UserAuth, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "GetUser", trace.WithAttributes(
		attribute.String("user.id", id.String()),
	))
	defer span.End()
	return s.userRepo.GetUser(ctx, id)
}

func (s *ServiceImpl) CreateUser(ctx context.Context, principal types.Principal, params CreateUserParams) (*types.UserAuth, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "CreateUser", trace.WithAttributes(
		attribute.String("email", params.Email),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "CreateUser"), slog.String("email", params.Email))

	var messages []string
	if params.Name == "" {
		messages = append(messages, "Please add a name")
	}
	if params.Email == "" {
		messages = append(messages, "Please add an email")
	}
	if len(params.Password) < 6 {
		messages = append(messages, "Please add a password with 6 or more characters")
	}
	if params.Role == "" {
		params.Role = types.RoleUser
	}
	if !slices.Contains(assignableRoles, params.Role) {
		messages = append(messages, fmt.Sprintf("%s is not a valid role", params.Role))
	}
	if len(messages) > 0 {
		span.SetStatus(codes.Error, "Validation failed")
		return nil, &types.ValidationError{Messages: messages}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	created, err := s.userRepo.CreateUser(ctx, params.Name, params.Email, params.Role, string(hash))
	if err != nil {
		l.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Create failed")
		return nil, err
	}

	if err := s.auditService.Record(ctx, types.AuditRecord{
		Model:   "User",
		ModelID: created.ID.String(),
		User:    principalRef(principal),
		Action:  types.AuditActionCreated,
	}); err != nil {
		return nil, err
	}
	metrics.Get().MutationsTotal.Add(ctx, 1)
	return created, nil
}

func (s *ServiceImpl) UpdateUser(ctx context.Context, principal types.Principal, id uuid.UUID, params PatchUserParams) (*types.UserAuth, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateUser", trace.WithAttributes(
		attribute.String("user.id", id.String()),
	))
	defer span.End()

	var messages []string
	if params.Password != nil && len(*params.Password) < 6 {
		messages = append(messages, "Please add a password with 6 or more characters")
	}
	if params.Role != nil && !slices.Contains(assignableRoles, *params.Role) {
		messages = append(messages, fmt.Sprintf("%s is not a valid role", *params.Role))
	}
	if len(messages) > 0 {
		span.SetStatus(codes.Error, "Validation failed")
		return nil, &types.ValidationError{Messages: messages}
	}

	patch := UpdateUserParams{Name: params.Name, Email: params.Email, Role: params.Role}
	if params.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*params.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		hashed := string(hash)
		patch.PasswordHash = &hashed
	}

	updated, err := s.userRepo.UpdateUser(ctx, id, patch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, err
	}

	if err := s.auditService.Record(ctx, types.AuditRecord{
		Model:   "User",
		ModelID: updated.ID.String(),
		User:    principalRef(principal),
		Action:  types.AuditActionUpdated,
	}); err != nil {
		return nil, err
	}
	metrics.Get().MutationsTotal.Add(ctx, 1)
	return updated, nil
}

func (s *ServiceImpl) DeleteUser(ctx context.Context, principal types.Principal, id uuid.UUID) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "DeleteUser", trace.WithAttributes(
		attribute.String("user.id", id.String()),
	))
	defer span.End()

	if err := s.userRepo.SoftDeleteUser(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return err
	}

	if err := s.auditService.Record(ctx, types.AuditRecord{
		Model:   "User",
		ModelID: id.String(),
		User:    principalRef(principal),
		Action:  types.AuditActionDeleted,
	}); err != nil {
		return err
	}
	metrics.Get().MutationsTotal.Add(ctx, 1)
	return nil
}

func principalRef(p types.Principal) *uuid.UUID {
	if p.IsAnonymous() {
		return nil
	}
	id := p.ID
	return &id
}
