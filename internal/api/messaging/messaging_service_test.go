package messaging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-recruiter-hub/internal/store"
	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

// MockStore is a mock implementation of the store.Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Find(ctx context.Context, table string, q types.ListQuery, rels []store.Relation) ([]*types.Document, error) {
	args := m.Called(ctx, table, q, rels)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Document), args.Error(1)
}

func (m *MockStore) FindOne(ctx context.Context, table string, filters []types.Filter, includeDeleted bool) (*types.Document, error) {
	args := m.Called(ctx, table, filters, includeDeleted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Document), args.Error(1)
}

func (m *MockStore) FindByID(ctx context.Context, table string, id uuid.UUID, rels []store.Relation) (*types.Document, error) {
	args := m.Called(ctx, table, id, rels)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Document), args.Error(1)
}

func (m *MockStore) Count(ctx context.Context, table string, deleted bool) (int, error) {
	args := m.Called(ctx, table, deleted)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) Create(ctx context.Context, table string, owner *uuid.UUID, data map[string]any, loc *types.Point) (*types.Document, error) {
	args := m.Called(ctx, table, owner, data, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Document), args.Error(1)
}

func (m *MockStore) UpdateByID(ctx context.Context, table string, id uuid.UUID, patch map[string]any, loc *types.Point) (*types.Document, error) {
	args := m.Called(ctx, table, id, patch, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Document), args.Error(1)
}

func (m *MockStore) SoftDelete(ctx context.Context, table string, id uuid.UUID) error {
	args := m.Called(ctx, table, id)
	return args.Error(0)
}

func (m *MockStore) Remove(ctx context.Context, table string, id uuid.UUID) error {
	args := m.Called(ctx, table, id)
	return args.Error(0)
}

func (m *MockStore) FindWithinRadius(ctx context.Context, table string, center types.Point, radiusMeters float64) ([]*types.Document, error) {
	args := m.Called(ctx, table, center, radiusMeters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Document), args.Error(1)
}

// MockRecorder is a mock implementation of the audit.Recorder interface
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, entry types.AuditRecord) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRecorder) ListRecords(ctx context.Context, q types.ListQuery) ([]*types.AuditRecord, int, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*types.AuditRecord), args.Int(1), args.Error(2)
}

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) GetUserNames(ctx context.Context, ids []string) ([]string, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func newTestService(t *testing.T) (*ServiceImpl, *MockStore, *MockRecorder, *MockUserDirectory) {
	t.Helper()
	mockStore := new(MockStore)
	mockRecorder := new(MockRecorder)
	mockUsers := new(MockUserDirectory)
	svc := NewServiceImpl(mockStore, mockRecorder, mockUsers, slog.Default())
	return svc, mockStore, mockRecorder, mockUsers
}

func TestCreateRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("NewMemberSetCreatesRoomWithSlug", func(t *testing.T) {
		svc, mockStore, mockRecorder, mockUsers := newTestService(t)
		principal := types.Principal{ID: uuid.New(), Role: types.RoleUser}
		other := uuid.New()
		members := []string{other.String(), principal.ID.String()}
		created := &types.Document{ID: uuid.New(), User: &principal.ID}

		mockStore.On("FindOne", ctx, store.TableMessageRooms, mock.Anything, false).
			Return(nil, types.ErrNotFound).Once()
		mockUsers.On("GetUserNames", ctx, mock.Anything).
			Return([]string{"Alice Smith", "Bob Jones"}, nil).Once()
		mockStore.On("Create", ctx, store.TableMessageRooms, &principal.ID, mock.MatchedBy(func(p map[string]any) bool {
			return p["slug"] == "alice smith-bob jones"
		}), (*types.Point)(nil)).Return(created, nil).Once()
		mockRecorder.On("Record", ctx, mock.MatchedBy(func(e types.AuditRecord) bool {
			return e.Model == "MessageRoom" && e.Action == types.AuditActionCreated
		})).Return(nil).Once()

		_, err := svc.CreateRoom(ctx, principal, members)

		require.NoError(t, err)
		mockStore.AssertExpectations(t)
		mockRecorder.AssertExpectations(t)
	})

	t.Run("DuplicateMemberSetRejectedWithoutInsert", func(t *testing.T) {
		svc, mockStore, mockRecorder, _ := newTestService(t)
		principal := types.Principal{ID: uuid.New(), Role: types.RoleUser}
		other := uuid.New()
		existing := &types.Document{ID: uuid.New()}

		// Member order must not defeat the dedup; the key is canonical.
		mockStore.On("FindOne", ctx, store.TableMessageRooms, mock.MatchedBy(func(f []types.Filter) bool {
			return len(f) == 1 && f[0].Field == "memberKey" &&
				f[0].Value == memberKey([]string{principal.ID.String(), other.String()})
		}), false).Return(existing, nil).Once()

		_, err := svc.CreateRoom(ctx, principal, []string{other.String()})

		var vErr *types.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Messages[0], "already exists")
		mockStore.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mockRecorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("PrincipalAloneIsRejected", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)
		principal := types.Principal{ID: uuid.New(), Role: types.RoleUser}

		_, err := svc.CreateRoom(ctx, principal, nil)

		var vErr *types.ValidationError
		require.ErrorAs(t, err, &vErr)
	})
}

func TestMemberKey(t *testing.T) {
	a, b := uuid.NewString(), uuid.NewString()
	assert.Equal(t, memberKey([]string{a, b}), memberKey([]string{b, a}))
}

func TestCreateMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("MemberPostsAndAuditCarriesRoomParent", func(t *testing.T) {
		svc, mockStore, mockRecorder, _ := newTestService(t)
		principal := types.Principal{ID: uuid.New(), Role: types.RoleUser}
		roomID := uuid.New()
		room := &types.Document{ID: roomID, Data: map[string]any{
			"users": []any{principal.ID.String(), uuid.NewString()},
		}}
		created := &types.Document{ID: uuid.New(), User: &principal.ID}

		mockStore.On("FindByID", ctx, store.TableMessageRooms, roomID, []store.Relation(nil)).
			Return(room, nil).Once()
		mockStore.On("Create", ctx, store.TableMessages, &principal.ID, map[string]any{
			"room": roomID.String(), "text": "hello",
		}, (*types.Point)(nil)).Return(created, nil).Once()
		mockRecorder.On("Record", ctx, mock.MatchedBy(func(e types.AuditRecord) bool {
			return e.Parent != nil && e.Parent.ParentModel == "MessageRoom" && e.Parent.ParentID == roomID.String()
		})).Return(nil).Once()

		_, err := svc.CreateMessage(ctx, principal, roomID, "hello")

		require.NoError(t, err)
		mockStore.AssertExpectations(t)
	})

	t.Run("NonMemberDenied", func(t *testing.T) {
		svc, mockStore, mockRecorder, _ := newTestService(t)
		principal := types.Principal{ID: uuid.New(), Role: types.RoleUser}
		roomID := uuid.New()
		room := &types.Document{ID: roomID, Data: map[string]any{
			"users": []any{uuid.NewString(), uuid.NewString()},
		}}

		mockStore.On("FindByID", ctx, store.TableMessageRooms, roomID, []store.Relation(nil)).
			Return(room, nil).Once()

		_, err := svc.CreateMessage(ctx, principal, roomID, "hello")

		assert.ErrorIs(t, err, types.ErrForbidden)
		mockStore.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mockRecorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})

	t.Run("DeletedRoomIsNotFound", func(t *testing.T) {
		svc, mockStore, _, _ := newTestService(t)
		principal := types.Principal{ID: uuid.New(), Role: types.RoleUser}
		roomID := uuid.New()
		room := &types.Document{ID: roomID, Deleted: true, Data: map[string]any{
			"users": []any{principal.ID.String()},
		}}

		mockStore.On("FindByID", ctx, store.TableMessageRooms, roomID, []store.Relation(nil)).
			Return(room, nil).Once()

		_, err := svc.CreateMessage(ctx, principal, roomID, "hello")

		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("EmptyTextRejected", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)
		principal := types.Principal{ID: uuid.New(), Role: types.RoleUser}

		_, err := svc.CreateMessage(ctx, principal, uuid.New(), "   ")

		var vErr *types.ValidationError
		require.ErrorAs(t, err, &vErr)
	})
}

func TestGetRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("AdminMayReadAnyRoom", func(t *testing.T) {
		svc, mockStore, _, _ := newTestService(t)
		principal := types.Principal{ID: uuid.New(), Role: types.RoleAdmin}
		roomID := uuid.New()
		room := &types.Document{ID: roomID, Data: map[string]any{"users": []any{uuid.NewString()}}}

		mockStore.On("FindByID", ctx, store.TableMessageRooms, roomID, roomRelations).
			Return(room, nil).Once()

		got, err := svc.GetRoom(ctx, principal, roomID)

		require.NoError(t, err)
		assert.Equal(t, roomID, got.ID)
	})

	t.Run("NonMemberDenied", func(t *testing.T) {
		svc, mockStore, _, _ := newTestService(t)
		principal := types.Principal{ID: uuid.New(), Role: types.RoleUser}
		roomID := uuid.New()
		room := &types.Document{ID: roomID, Data: map[string]any{"users": []any{uuid.NewString()}}}

		mockStore.On("FindByID", ctx, store.TableMessageRooms, roomID, roomRelations).
			Return(room, nil).Once()

		_, err := svc.GetRoom(ctx, principal, roomID)

		assert.ErrorIs(t, err, types.ErrForbidden)
	})

	t.Run("DeletedRoomIsNotFound", func(t *testing.T) {
		svc, mockStore, _, _ := newTestService(t)
		principal := types.Principal{ID: uuid.New(), Role: types.RoleUser}
		roomID := uuid.New()
		room := &types.Document{ID: roomID, Deleted: true,
			Data: map[string]any{"users": []any{principal.ID.String()}}}

		mockStore.On("FindByID", ctx, store.TableMessageRooms, roomID, roomRelations).
			Return(room, nil).Once()

		_, err := svc.GetRoom(ctx, principal, roomID)

		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestDeleteRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("MemberSoftDeletesAndIsAudited", func(t *testing.T) {
		svc, mockStore, mockRecorder, _ := newTestService(t)
		principal := types.Principal{ID: uuid.New(), Role: types.RoleUser}
		roomID := uuid.New()
		room := &types.Document{ID: roomID, Data: map[string]any{"users": []any{principal.ID.String()}}}

		mockStore.On("FindByID", ctx, store.TableMessageRooms, roomID, []store.Relation(nil)).
			Return(room, nil).Once()
		mockStore.On("SoftDelete", ctx, store.TableMessageRooms, roomID).Return(nil).Once()
		mockRecorder.On("Record", ctx, mock.MatchedBy(func(e types.AuditRecord) bool {
			return e.Model == "MessageRoom" && e.Action == types.AuditActionDeleted
		})).Return(nil).Once()

		err := svc.DeleteRoom(ctx, principal, roomID)

		require.NoError(t, err)
		mockStore.AssertExpectations(t)
	})

	t.Run("AlreadyDeletedRoomIsNotFound", func(t *testing.T) {
		svc, mockStore, mockRecorder, _ := newTestService(t)
		principal := types.Principal{ID: uuid.New(), Role: types.RoleUser}
		roomID := uuid.New()
		room := &types.Document{ID: roomID, Deleted: true,
			Data: map[string]any{"users": []any{principal.ID.String()}}}

		mockStore.On("FindByID", ctx, store.TableMessageRooms, roomID, []store.Relation(nil)).
			Return(room, nil).Once()

		err := svc.DeleteRoom(ctx, principal, roomID)

		assert.ErrorIs(t, err, types.ErrNotFound)
		mockStore.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything, mock.Anything)
		mockRecorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})
}
