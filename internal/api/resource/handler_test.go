package resource

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

// MockService is a mock implementation of the Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context, cfg EntityConfig, q types.ListQuery) (*types.ListResponse, error) {
	args := m.Called(ctx, cfg, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ListResponse), args.Error(1)
}

func (m *MockService) ListByParent(ctx context.Context, cfg EntityConfig, parentID string, q types.ListQuery) (*types.ListResponse, error) {
	args := m.Called(ctx, cfg, parentID, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ListResponse), args.Error(1)
}

func (m *MockService) Get(ctx context.Context, cfg EntityConfig, id uuid.UUID) (*types.Document, error) {
	args := m.Called(ctx, cfg, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Document), args.Error(1)
}

func (m *MockService) Create(ctx context.Context, cfg EntityConfig, principal types.Principal, parentID string, payload map[string]any) (*types.Document, error) {
	args := m.Called(ctx, cfg, principal, parentID, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Document), args.Error(1)
}

func (m *MockService) Update(ctx context.Context, cfg EntityConfig, principal types.Principal, id uuid.UUID, patch map[string]any) (*types.Document, error) {
	args := m.Called(ctx, cfg, principal, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Document), args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, cfg EntityConfig, principal types.Principal, id uuid.UUID) error {
	args := m.Called(ctx, cfg, principal, id)
	return args.Error(0)
}

func (m *MockService) WithinRadius(ctx context.Context, cfg EntityConfig, zipcode string, distance float64, unit string) ([]*types.Document, error) {
	args := m.Called(ctx, cfg, zipcode, distance, unit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Document), args.Error(1)
}

func (m *MockService) AttachPhoto(ctx context.Context, cfg EntityConfig, principal types.Principal, id uuid.UUID, filename, contentType string, file io.Reader) (string, error) {
	args := m.Called(ctx, cfg, principal, id, filename, contentType, file)
	return args.String(0), args.Error(1)
}

func (m *MockService) CreateTeamImage(ctx context.Context, principal types.Principal, companyID uuid.UUID, filename, contentType string, file io.Reader) (*types.Document, error) {
	args := m.Called(ctx, principal, companyID, filename, contentType, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Document), args.Error(1)
}

func newRadiusRouter(h *HandlerImpl) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/radius/{zipcode}/{distance}", h.RadiusHandler)
	r.Get("/radius/{zipcode}/{distance}/{unit}", h.RadiusHandler)
	return r
}

func TestRadiusHandler(t *testing.T) {
	t.Run("UnitPathSegmentPassedThrough", func(t *testing.T) {
		mockService := new(MockService)
		h := NewHandler(Bootcamps, mockService, 1<<20, slog.Default())

		mockService.On("WithinRadius", mock.Anything, Bootcamps, "E1", 25.0, "km").
			Return([]*types.Document{}, nil).Once()

		rec := httptest.NewRecorder()
		newRadiusRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/radius/E1/25/km", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("OmittedUnitDefaultsToMiles", func(t *testing.T) {
		mockService := new(MockService)
		h := NewHandler(Bootcamps, mockService, 1<<20, slog.Default())

		mockService.On("WithinRadius", mock.Anything, Bootcamps, "02115", 10.0, "mi").
			Return([]*types.Document{}, nil).Once()

		rec := httptest.NewRecorder()
		newRadiusRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/radius/02115/10", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("NonPositiveDistanceRejected", func(t *testing.T) {
		mockService := new(MockService)
		h := NewHandler(Bootcamps, mockService, 1<<20, slog.Default())

		rec := httptest.NewRecorder()
		newRadiusRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/radius/02115/0", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "WithinRadius",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
