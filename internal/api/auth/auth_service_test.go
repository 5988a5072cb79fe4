package auth

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-recruiter-hub/config"
	"github.com/FACorreiaa/go-recruiter-hub/internal/store"
	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

// MockAuthRepo is a mock implementation of the Repository interface
type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) CreateUser(ctx context.Context, name, email, role, passwordHash string) (*types.UserAuth, error) {
	args := m.Called(ctx, name, email, role, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserAuth), args.Error(1)
}

func (m *MockAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserAuth), args.Error(1)
}

func (m *MockAuthRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*types.UserAuth, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserAuth), args.Error(1)
}

func (m *MockAuthRepo) UpdateDetails(ctx context.Context, id uuid.UUID, name, email string) (*types.UserAuth, error) {
	args := m.Called(ctx, id, name, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserAuth), args.Error(1)
}

func (m *MockAuthRepo) UpdatePassword(ctx context.Context, id uuid.UUID, newHash string) error {
	args := m.Called(ctx, id, newHash)
	return args.Error(0)
}

func (m *MockAuthRepo) SetResetToken(ctx context.Context, email, tokenHash string, expire time.Time) (*types.UserAuth, error) {
	args := m.Called(ctx, email, tokenHash, expire)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserAuth), args.Error(1)
}

func (m *MockAuthRepo) ClearResetToken(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAuthRepo) GetUserByResetToken(ctx context.Context, tokenHash string) (*types.UserAuth, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserAuth), args.Error(1)
}

func (m *MockAuthRepo) ResetPassword(ctx context.Context, id uuid.UUID, newHash string) error {
	args := m.Called(ctx, id, newHash)
	return args.Error(0)
}

// MockEntityStore is a mock implementation of the store.Store interface
type MockEntityStore struct {
	mock.Mock
}

func (m *MockEntityStore) Find(ctx context.Context, table string, q types.ListQuery, rels []store.Relation) ([]*types.Document, error) {
	args := m.Called(ctx, table, q, rels)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Document), args.Error(1)
}

func (m *MockEntityStore) FindOne(ctx context.Context, table string, filters []types.Filter, includeDeleted bool) (*types.Document, error) {
	args := m.Called(ctx, table, filters, includeDeleted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Document), args.Error(1)
}

func (m *MockEntityStore) FindByID(ctx context.Context, table string, id uuid.UUID, rels []store.Relation) (*types.Document, error) {
	args := m.Called(ctx, table, id, rels)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Document), args.Error(1)
}

func (m *MockEntityStore) Count(ctx context.Context, table string, deleted bool) (int, error) {
	args := m.Called(ctx, table, deleted)
	return args.Int(0), args.Error(1)
}

func (m *MockEntityStore) Create(ctx context.Context, table string, owner *uuid.UUID, data map[string]any, loc *types.Point) (*types.Document, error) {
	args := m.Called(ctx, table, owner, data, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Document), args.Error(1)
}

func (m *MockEntityStore) UpdateByID(ctx context.Context, table string, id uuid.UUID, patch map[string]any, loc *types.Point) (*types.Document, error) {
	args := m.Called(ctx, table, id, patch, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Document), args.Error(1)
}

func (m *MockEntityStore) SoftDelete(ctx context.Context, table string, id uuid.UUID) error {
	args := m.Called(ctx, table, id)
	return args.Error(0)
}

func (m *MockEntityStore) Remove(ctx context.Context, table string, id uuid.UUID) error {
	args := m.Called(ctx, table, id)
	return args.Error(0)
}

func (m *MockEntityStore) FindWithinRadius(ctx context.Context, table string, center types.Point, radiusMeters float64) ([]*types.Document, error) {
	args := m.Called(ctx, table, center, radiusMeters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Document), args.Error(1)
}

// MockAuditRecorder is a mock implementation of the audit.Recorder interface
type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) Record(ctx context.Context, entry types.AuditRecord) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRecorder) ListRecords(ctx context.Context, q types.ListQuery) ([]*types.AuditRecord, int, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*types.AuditRecord), args.Int(1), args.Error(2)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		SecretKey:      "test-secret-key",
		AccessTokenTTL: 30 * time.Minute,
		Issuer:         "RecruiterHub",
		Audience:       "RecruiterHubAPI",
	}
}

func newTestService(t *testing.T) (*ServiceImpl, *MockAuthRepo, *MockEntityStore, *MockAuditRecorder, *MockMailer) {
	t.Helper()
	mockRepo := new(MockAuthRepo)
	mockStore := new(MockEntityStore)
	mockRecorder := new(MockAuditRecorder)
	mockMailer := new(MockMailer)
	svc := NewServiceImpl(mockRepo, mockStore, mockRecorder, mockMailer, testJWTConfig(), slog.Default())
	return svc, mockRepo, mockStore, mockRecorder, mockMailer
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, mockRepo, _, mockRecorder, _ := newTestService(t)
		user := &types.UserAuth{ID: uuid.New(), Name: "Alice", Email: "alice@example.com", Role: types.RoleCompany}

		mockRepo.On("CreateUser", ctx, "Alice", "alice@example.com", types.RoleCompany,
			mock.MatchedBy(func(hash string) bool {
				return bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret123")) == nil
			})).Return(user, nil).Once()
		mockRecorder.On("Record", ctx, mock.MatchedBy(func(e types.AuditRecord) bool {
			return e.Model == "User" && e.Action == types.AuditActionCreated && e.ModelID == user.ID.String()
		})).Return(nil).Once()

		got, token, err := svc.Register(ctx, "Alice", "alice@example.com", "secret123", types.RoleCompany)

		require.NoError(t, err)
		assert.Equal(t, user, got)
		assert.NotEmpty(t, token)
		mockRepo.AssertExpectations(t)
		mockRecorder.AssertExpectations(t)
	})

	t.Run("EmptyRoleDefaultsToUser", func(t *testing.T) {
		svc, mockRepo, _, mockRecorder, _ := newTestService(t)
		user := &types.UserAuth{ID: uuid.New(), Role: types.RoleUser}

		mockRepo.On("CreateUser", ctx, "Bob", "bob@example.com", types.RoleUser, mock.Anything).
			Return(user, nil).Once()
		mockRecorder.On("Record", ctx, mock.Anything).Return(nil).Once()

		_, _, err := svc.Register(ctx, "Bob", "bob@example.com", "secret123", "")

		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("AdminRoleRejected", func(t *testing.T) {
		svc, mockRepo, _, _, _ := newTestService(t)

		_, _, err := svc.Register(ctx, "Eve", "eve@example.com", "secret123", types.RoleAdmin)

		var vErr *types.ValidationError
		require.ErrorAs(t, err, &vErr)
		mockRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("MissingFieldsAggregated", func(t *testing.T) {
		svc, _, _, _, _ := newTestService(t)

		_, _, err := svc.Register(ctx, "", "", "short", "")

		var vErr *types.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Len(t, vErr.Messages, 3)
	})

	t.Run("DuplicateEmailSurfacesConflict", func(t *testing.T) {
		svc, mockRepo, _, _, _ := newTestService(t)

		mockRepo.On("CreateUser", ctx, "Alice", "alice@example.com", types.RoleUser, mock.Anything).
			Return(nil, types.ErrConflict).Once()

		_, _, err := svc.Register(ctx, "Alice", "alice@example.com", "secret123", types.RoleUser)

		assert.ErrorIs(t, err, types.ErrConflict)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	require.NoError(t, err)

	t.Run("ValidCredentialsIssueToken", func(t *testing.T) {
		svc, mockRepo, _, _, _ := newTestService(t)
		user := &types.UserAuth{ID: uuid.New(), Email: "alice@example.com", Role: types.RoleCompany, Password: string(hash)}

		mockRepo.On("GetUserByEmail", ctx, "alice@example.com").Return(user, nil).Once()

		token, err := svc.Login(ctx, "alice@example.com", "secret123")

		require.NoError(t, err)

		claims := &types.Claims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte("test-secret-key"), nil
		})
		require.NoError(t, err)
		assert.True(t, parsed.Valid)
		assert.Equal(t, user.ID.String(), claims.UserID)
		assert.Equal(t, types.RoleCompany, claims.Role)
	})

	t.Run("WrongPasswordIsUnauthenticated", func(t *testing.T) {
		svc, mockRepo, _, _, _ := newTestService(t)
		user := &types.UserAuth{ID: uuid.New(), Password: string(hash)}

		mockRepo.On("GetUserByEmail", ctx, "alice@example.com").Return(user, nil).Once()

		_, err := svc.Login(ctx, "alice@example.com", "wrong")

		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("UnknownEmailLooksTheSame", func(t *testing.T) {
		svc, mockRepo, _, _, _ := newTestService(t)

		mockRepo.On("GetUserByEmail", ctx, "ghost@example.com").Return(nil, types.ErrNotFound).Once()

		_, err := svc.Login(ctx, "ghost@example.com", "whatever")

		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("MissingFieldsRejected", func(t *testing.T) {
		svc, _, _, _, _ := newTestService(t)

		_, err := svc.Login(ctx, "", "")

		var vErr *types.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})
}

func TestMe(t *testing.T) {
	ctx := context.Background()

	t.Run("EmbedsOwnedCompany", func(t *testing.T) {
		svc, mockRepo, mockStore, _, _ := newTestService(t)
		userID := uuid.New()
		user := &types.UserAuth{ID: userID, Name: "Alice", Role: types.RoleCompany}
		company := &types.Document{ID: uuid.New(), User: &userID}

		mockRepo.On("GetUserByID", ctx, userID).Return(user, nil).Once()
		mockStore.On("FindOne", ctx, store.TableCompanies, mock.Anything, false).
			Return(company, nil).Once()

		got, err := svc.Me(ctx, userID)

		require.NoError(t, err)
		assert.Equal(t, company, got.Company)
	})

	t.Run("NoCompanyIsFine", func(t *testing.T) {
		svc, mockRepo, mockStore, _, _ := newTestService(t)
		userID := uuid.New()
		user := &types.UserAuth{ID: userID, Name: "Bob"}

		mockRepo.On("GetUserByID", ctx, userID).Return(user, nil).Once()
		mockStore.On("FindOne", ctx, store.TableCompanies, mock.Anything, false).
			Return(nil, types.ErrNotFound).Once()

		got, err := svc.Me(ctx, userID)

		require.NoError(t, err)
		assert.Nil(t, got.Company)
	})
}

func TestUpdateDetails(t *testing.T) {
	ctx := context.Background()

	t.Run("PatchesOwnRowAndAudits", func(t *testing.T) {
		svc, mockRepo, _, mockRecorder, _ := newTestService(t)
		userID := uuid.New()
		updated := &types.UserAuth{ID: userID, Name: "Alice B", Email: "alice.b@example.com"}

		mockRepo.On("UpdateDetails", ctx, userID, "Alice B", "alice.b@example.com").
			Return(updated, nil).Once()
		mockRecorder.On("Record", ctx, mock.MatchedBy(func(e types.AuditRecord) bool {
			return e.Model == "User" && e.Action == types.AuditActionUpdated &&
				e.ModelID == userID.String() && e.User != nil && *e.User == userID
		})).Return(nil).Once()

		got, err := svc.UpdateDetails(ctx, userID, "Alice B", "alice.b@example.com")

		require.NoError(t, err)
		assert.Equal(t, updated, got)
		mockRecorder.AssertExpectations(t)
	})

	t.Run("MissingFieldsAggregated", func(t *testing.T) {
		svc, mockRepo, _, _, _ := newTestService(t)

		_, err := svc.UpdateDetails(ctx, uuid.New(), "", "")

		var vErr *types.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Len(t, vErr.Messages, 2)
		mockRepo.AssertNotCalled(t, "UpdateDetails", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("TakenEmailSurfacesConflict", func(t *testing.T) {
		svc, mockRepo, _, mockRecorder, _ := newTestService(t)
		userID := uuid.New()

		mockRepo.On("UpdateDetails", ctx, userID, "Alice", "taken@example.com").
			Return(nil, types.ErrConflict).Once()

		_, err := svc.UpdateDetails(ctx, userID, "Alice", "taken@example.com")

		assert.ErrorIs(t, err, types.ErrConflict)
		mockRecorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})
}

func TestForgotPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("StoresHashedTokenAndMails", func(t *testing.T) {
		svc, mockRepo, _, _, mockMailer := newTestService(t)
		user := &types.UserAuth{ID: uuid.New(), Email: "alice@example.com"}

		var storedHash string
		mockRepo.On("SetResetToken", ctx, "alice@example.com",
			mock.MatchedBy(func(hash string) bool {
				storedHash = hash
				return len(hash) == 64
			}), mock.Anything).Return(user, nil).Once()
		mockMailer.On("Send", ctx, "alice@example.com", "Password reset token",
			mock.MatchedBy(func(body string) bool {
				// The mailed token must be the raw one, not the stored hash.
				return storedHash != "" && !strings.Contains(body, storedHash)
			})).Return(nil).Once()

		err := svc.ForgotPassword(ctx, "alice@example.com", "http://localhost/api/v1/auth/resetpassword")

		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
		mockMailer.AssertExpectations(t)
	})

	t.Run("MailFailureClearsTokenAndIsUpstreamIO", func(t *testing.T) {
		svc, mockRepo, _, _, mockMailer := newTestService(t)
		user := &types.UserAuth{ID: uuid.New(), Email: "alice@example.com"}

		mockRepo.On("SetResetToken", ctx, "alice@example.com", mock.Anything, mock.Anything).
			Return(user, nil).Once()
		mockMailer.On("Send", ctx, "alice@example.com", mock.Anything, mock.Anything).
			Return(types.ErrUpstreamIO).Once()
		mockRepo.On("ClearResetToken", ctx, user.ID).Return(nil).Once()

		err := svc.ForgotPassword(ctx, "alice@example.com", "http://localhost/reset")

		assert.ErrorIs(t, err, types.ErrUpstreamIO)
		mockRepo.AssertExpectations(t)
	})
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("ValidTokenSetsNewPassword", func(t *testing.T) {
		svc, mockRepo, _, _, _ := newTestService(t)
		user := &types.UserAuth{ID: uuid.New(), Role: types.RoleUser}

		mockRepo.On("GetUserByResetToken", ctx, hashResetToken("raw-token")).Return(user, nil).Once()
		mockRepo.On("ResetPassword", ctx, user.ID, mock.MatchedBy(func(hash string) bool {
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte("newsecret")) == nil
		})).Return(nil).Once()

		token, err := svc.ResetPassword(ctx, "raw-token", "newsecret")

		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("ExpiredTokenRejected", func(t *testing.T) {
		svc, mockRepo, _, _, _ := newTestService(t)

		mockRepo.On("GetUserByResetToken", ctx, mock.Anything).Return(nil, types.ErrNotFound).Once()

		_, err := svc.ResetPassword(ctx, "stale", "newsecret")

		assert.ErrorIs(t, err, types.ErrValidation)
	})
}
