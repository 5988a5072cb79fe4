package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-recruiter-hub/config"
	"github.com/FACorreiaa/go-recruiter-hub/internal/api/audit"
	"github.com/FACorreiaa/go-recruiter-hub/internal/store"
	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

const resetTokenTTL = 15 * time.Minute

// Mailer delivers transactional mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Register(ctx context.Context, name, email, password, role string) (*types.UserAuth, string, error)
	Login(ctx context.Context, email, password string) (string, error)
	Me(ctx context.Context, userID uuid.UUID) (*types.UserAuth, error)
	UpdateDetails(ctx context.Context, userID uuid.UUID, name, email string) (*types.UserAuth, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) (string, error)
	ForgotPassword(ctx context.Context, email, resetBaseURL string) error
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)
}

type ServiceImpl struct {
	logger       *slog.Logger
	authRepo     Repository
	entityStore  store.Store
	auditService audit.Recorder
	mailer       Mailer
	jwtCfg       config.JWTConfig
}

func NewServiceImpl(repo Repository, entityStore store.Store, auditService audit.Recorder, mailer Mailer, jwtCfg config.JWTConfig, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:       logger,
		authRepo:     repo,
		entityStore:  entityStore,
		auditService: auditService,
		mailer:       mailer,
		jwtCfg:       jwtCfg,
	}
}

// Register creates a user in one of the public roles and returns it with a
// fresh access token. Admins are never created through this path.
func (s *ServiceImpl) Register(ctx context.Context, name, email, password, role string) (*types.UserAuth, string, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register", trace.WithAttributes(
		attribute.String("email", email), attribute.String("role", role),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Register"), slog.String("email", email))

	var messages []string
	if name == "" {
		messages = append(messages, "Please add a name")
	}
	if email == "" {
		messages = append(messages, "Please add an email")
	}
	if len(password) < 6 {
		messages = append(messages, "Please add a password with 6 or more characters")
	}
	if role == "" {
		role = types.RoleUser
	}
	if !slices.Contains(types.ValidRoles, role) {
		messages = append(messages, fmt.Sprintf("%s is not a valid role", role))
	}
	if len(messages) > 0 {
		span.SetStatus(codes.Error, "Validation failed")
		return nil, "", &types.ValidationError{Messages: messages}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.authRepo.CreateUser(ctx, name, email, role, string(hash))
	if err != nil {
		l.ErrorContext(ctx, "Failed to register user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Register failed")
		return nil, "", err
	}

	if err := s.auditService.Record(ctx, types.AuditRecord{
		Model:   "User",
		ModelID: user.ID.String(),
		User:    &user.ID,
		Action:  types.AuditActionCreated,
	}); err != nil {
		return nil, "", err
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, "", err
	}
	l.InfoContext(ctx, "User registered", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "User registered")
	return user, token, nil
}

// Login verifies credentials and issues an access token. Unknown emails and
// bad passwords are indistinguishable to the caller.
func (s *ServiceImpl) Login(ctx context.Context, email, password string) (string, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login", trace.WithAttributes(
		attribute.String("email", email),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Login"), slog.String("email", email))

	if email == "" || password == "" {
		return "", &types.ValidationError{Messages: []string{"Please provide an email and password"}}
	}

	user, err := s.authRepo.GetUserByEmail(ctx, email)
	if err != nil {
		l.WarnContext(ctx, "Login for unknown email")
		span.SetStatus(codes.Error, "Invalid credentials")
		return "", fmt.Errorf("invalid credentials: %w", types.ErrUnauthenticated)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		l.WarnContext(ctx, "Password mismatch")
		span.SetStatus(codes.Error, "Invalid credentials")
		return "", fmt.Errorf("invalid credentials: %w", types.ErrUnauthenticated)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", err
	}
	span.SetStatus(codes.Ok, "Logged in")
	return token, nil
}

// Me returns the caller's profile with their company embedded when one
// exists.
func (s *ServiceImpl) Me(ctx context.Context, userID uuid.UUID) (*types.UserAuth, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Me")
	defer span.End()

	user, err := s.authRepo.GetUserByID(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, "User not found")
		return nil, err
	}

	company, err := s.entityStore.FindOne(ctx, store.TableCompanies, []types.Filter{
		{Field: "user", Op: types.OpEq, Value: userID.String()},
	}, false)
	if err == nil {
		user.Company = company
	} else if !isNotFoundErr(err) {
		return nil, err
	}
	span.SetStatus(codes.Ok, "Profile resolved")
	return user, nil
}

// UpdateDetails patches the caller's name and email on their own row.
func (s *ServiceImpl) UpdateDetails(ctx context.Context, userID uuid.UUID, name, email string) (*types.UserAuth, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "UpdateDetails")
	defer span.End()
	l := s.logger.With(slog.String("method", "UpdateDetails"), slog.String("userID", userID.String()))

	var messages []string
	if name == "" {
		messages = append(messages, "Please add a name")
	}
	if email == "" {
		messages = append(messages, "Please add an email")
	}
	if len(messages) > 0 {
		return nil, &types.ValidationError{Messages: messages}
	}

	user, err := s.authRepo.UpdateDetails(ctx, userID, name, email)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update details", slog.Any("error", err))
		span.SetStatus(codes.Error, "Details update failed")
		return nil, err
	}

	if err := s.auditService.Record(ctx, types.AuditRecord{
		Model:   "User",
		ModelID: user.ID.String(),
		User:    &user.ID,
		Action:  types.AuditActionUpdated,
	}); err != nil {
		return nil, err
	}
	span.SetStatus(codes.Ok, "Details updated")
	return user, nil
}

// UpdatePassword swaps the password after verifying the current one and
// issues a fresh token.
func (s *ServiceImpl) UpdatePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) (string, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "UpdatePassword")
	defer span.End()
	l := s.logger.With(slog.String("method", "UpdatePassword"), slog.String("userID", userID.String()))

	if len(newPassword) < 6 {
		return "", &types.ValidationError{Messages: []string{"Please add a password with 6 or more characters"}}
	}

	user, err := s.authRepo.GetUserByID(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, "User not found")
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(currentPassword)); err != nil {
		span.SetStatus(codes.Error, "Wrong current password")
		return "", fmt.Errorf("password is incorrect: %w", types.ErrUnauthenticated)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.authRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		l.ErrorContext(ctx, "Failed to update password", slog.Any("error", err))
		return "", err
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", err
	}
	span.SetStatus(codes.Ok, "Password updated")
	return token, nil
}

// ForgotPassword stores a hashed single-use token and mails the reset link.
// Only the hash is persisted; the raw token travels in the email alone.
func (s *ServiceImpl) ForgotPassword(ctx context.Context, email, resetBaseURL string) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "ForgotPassword", trace.WithAttributes(
		attribute.String("email", email),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "ForgotPassword"), slog.String("email", email))

	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)
	tokenHash := hashResetToken(token)

	user, err := s.authRepo.SetResetToken(ctx, email, tokenHash, time.Now().Add(resetTokenTTL))
	if err != nil {
		span.SetStatus(codes.Error, "No user for email")
		return fmt.Errorf("no user with email %s: %w", email, err)
	}

	body := fmt.Sprintf(
		"You are receiving this email because you (or someone else) has requested the reset of a password. Please make a PUT request to:\n\n%s/%s",
		resetBaseURL, token,
	)
	if err := s.mailer.Send(ctx, user.Email, "Password reset token", body); err != nil {
		l.ErrorContext(ctx, "Failed to send reset email", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Mail send failed")
		// The stored token is useless if the mail never left; drop it.
		if clearErr := s.authRepo.ClearResetToken(ctx, user.ID); clearErr != nil {
			l.ErrorContext(ctx, "Failed to clear reset token", slog.Any("error", clearErr))
		}
		return fmt.Errorf("email could not be sent: %w", types.ErrUpstreamIO)
	}

	span.SetStatus(codes.Ok, "Reset mail sent")
	return nil
}

// ResetPassword consumes an unexpired token and issues a fresh access token.
func (s *ServiceImpl) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "ResetPassword")
	defer span.End()

	if len(newPassword) < 6 {
		return "", &types.ValidationError{Messages: []string{"Please add a password with 6 or more characters"}}
	}

	user, err := s.authRepo.GetUserByResetToken(ctx, hashResetToken(token))
	if err != nil {
		span.SetStatus(codes.Error, "Invalid token")
		return "", fmt.Errorf("invalid token: %w", types.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.authRepo.ResetPassword(ctx, user.ID, string(hash)); err != nil {
		return "", err
	}

	jwtToken, err := s.generateToken(user)
	if err != nil {
		return "", err
	}
	span.SetStatus(codes.Ok, "Password reset")
	return jwtToken, nil
}

func (s *ServiceImpl) generateToken(user *types.UserAuth) (string, error) {
	now := time.Now()
	claims := types.Claims{
		UserID: user.ID.String(),
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.jwtCfg.Issuer,
			Audience:  jwt.ClaimStrings{s.jwtCfg.Audience},
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtCfg.AccessTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtCfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func isNotFoundErr(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
