package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
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

// roomRelations load the member profiles and the recent message history
// whenever a room is fetched.
var roomRelations = []store.Relation{
	{Name: "users", Table: "users", LocalField: "users", Select: []string{"name"}},
	{Name: "messages", Table: store.TableMessages, LocalField: "", ForeignField: "room", Limit: 50},
}

// UserDirectory resolves user ids to display names for slug derivation.
type UserDirectory interface {
	GetUserNames(ctx context.Context, ids []string) ([]string, error)
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	ListRooms(ctx context.Context, principal types.Principal, q types.ListQuery) (*types.ListResponse, error)
	CreateRoom(ctx context.Context, principal types.Principal, members []string) (*types.Document, error)
	GetRoom(ctx context.Context, principal types.Principal, id uuid.UUID) (*types.Document, error)
	DeleteRoom(ctx context.Context, principal types.Principal, id uuid.UUID) error
	CreateMessage(ctx context.Context, principal types.Principal, roomID uuid.UUID, text string) (*types.Document, error)
	DeleteMessage(ctx context.Context, principal types.Principal, id uuid.UUID) error
}

type ServiceImpl struct {
	logger       *slog.Logger
	store        store.Store
	auditService audit.Recorder
	users        UserDirectory
}

func NewServiceImpl(entityStore store.Store, auditService audit.Recorder, users UserDirectory, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:       logger,
		store:        entityStore,
		auditService: auditService,
		users:        users,
	}
}

// memberKey is the canonical identity of a member set; rooms deduplicate on
// it regardless of the order members were supplied in.
func memberKey(members []string) string {
	sorted := slices.Clone(members)
	slices.Sort(sorted)
	return strings.Join(sorted, ",")
}

// ListRooms returns the rooms the principal belongs to.
func (s *ServiceImpl) ListRooms(ctx context.Context, principal types.Principal, q types.ListQuery) (*types.ListResponse, error) {
	ctx, span := otel.Tracer("MessagingService").Start(ctx, "ListRooms")
	defer span.End()

	q.Filters = append(q.Filters, types.Filter{
		Field: "users", Op: types.OpContains, Value: principal.ID.String(),
	})
	docs, err := s.store.Find(ctx, store.TableMessageRooms, q, []store.Relation{roomRelations[0]})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list rooms")
		return nil, err
	}
	total, err := s.store.Count(ctx, store.TableMessageRooms, q.Deleted)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []*types.Document{}
	}
	span.SetStatus(codes.Ok, "Rooms listed")
	return &types.ListResponse{
		Success:    true,
		Count:      len(docs),
		Pagination: api.BuildPagination(q.Page, q.Limit, total),
		Data:       docs,
		SortBy:     q.SortBy,
	}, nil
}

// CreateRoom starts a conversation between the principal and the listed
// members. An existing non-deleted room with the same member set is an
// error; the check is check-then-act, not atomic.
func (s *ServiceImpl) CreateRoom(ctx context.Context, principal types.Principal, members []string) (*types.Document, error) {
	ctx, span := otel.Tracer("MessagingService").Start(ctx, "CreateRoom", trace.WithAttributes(
		attribute.Int("members", len(members)),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "CreateRoom"))

	if !slices.Contains(members, principal.ID.String()) {
		members = append(members, principal.ID.String())
	}
	if len(members) < 2 {
		return nil, &types.ValidationError{Messages: []string{"Please add at least one other member"}}
	}
	for _, member := range members {
		if _, err := uuid.Parse(member); err != nil {
			return nil, &types.ValidationError{Messages: []string{fmt.Sprintf("Invalid member id %s", member)}}
		}
	}

	key := memberKey(members)
	existing, err := s.store.FindOne(ctx, store.TableMessageRooms, []types.Filter{
		{Field: "memberKey", Op: types.OpEq, Value: key},
	}, false)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if existing != nil {
		span.SetStatus(codes.Error, "Room already exists")
		return nil, &types.ValidationError{Messages: []string{"A room with these members already exists"}}
	}

	names, err := s.users.GetUserNames(ctx, members)
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	slug := strings.ToLower(strings.Join(names, "-"))

	doc, err := s.store.Create(ctx, store.TableMessageRooms, &principal.ID, map[string]any{
		"users":     members,
		"memberKey": key,
		"slug":      slug,
	}, nil)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create room", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Store create failed")
		return nil, err
	}

	if err := s.record(ctx, "MessageRoom", doc.ID, principal, types.AuditActionCreated, nil); err != nil {
		return nil, err
	}
	metrics.Get().MutationsTotal.Add(ctx, 1)
	span.SetStatus(codes.Ok, "Room created")
	return doc, nil
}

// GetRoom returns a room with its members and last 50 messages. Only
// members and admins may read it.
func (s *ServiceImpl) GetRoom(ctx context.Context, principal types.Principal, id uuid.UUID) (*types.Document, error) {
	ctx, span := otel.Tracer("MessagingService").Start(ctx, "GetRoom", trace.WithAttributes(
		attribute.String("room.id", id.String()),
	))
	defer span.End()

	room, err := s.store.FindByID(ctx, store.TableMessageRooms, id, roomRelations)
	if err != nil {
		span.SetStatus(codes.Error, "Room not found")
		return nil, fmt.Errorf("MessageRoom %s: %w", id, err)
	}
	if room.Deleted {
		span.SetStatus(codes.Error, "Room deleted")
		return nil, fmt.Errorf("MessageRoom %s: %w", id, types.ErrNotFound)
	}
	if err := s.requireMember(room, principal); err != nil {
		span.SetStatus(codes.Error, "Not a member")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Room found")
	return room, nil
}

// DeleteRoom soft-deletes a room for members and admins.
func (s *ServiceImpl) DeleteRoom(ctx context.Context, principal types.Principal, id uuid.UUID) error {
	ctx, span := otel.Tracer("MessagingService").Start(ctx, "DeleteRoom", trace.WithAttributes(
		attribute.String("room.id", id.String()),
	))
	defer span.End()

	room, err := s.store.FindByID(ctx, store.TableMessageRooms, id, nil)
	if err != nil {
		span.SetStatus(codes.Error, "Room not found")
		return fmt.Errorf("MessageRoom %s: %w", id, err)
	}
	if room.Deleted {
		span.SetStatus(codes.Error, "Room deleted")
		return fmt.Errorf("MessageRoom %s: %w", id, types.ErrNotFound)
	}
	if err := s.requireMember(room, principal); err != nil {
		span.SetStatus(codes.Error, "Not a member")
		return err
	}
	if err := s.store.SoftDelete(ctx, store.TableMessageRooms, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Store delete failed")
		return err
	}
	if err := s.record(ctx, "MessageRoom", id, principal, types.AuditActionDeleted, nil); err != nil {
		return err
	}
	metrics.Get().MutationsTotal.Add(ctx, 1)
	span.SetStatus(codes.Ok, "Room deleted")
	return nil
}

// CreateMessage posts into a room the principal belongs to.
func (s *ServiceImpl) CreateMessage(ctx context.Context, principal types.Principal, roomID uuid.UUID, text string) (*types.Document, error) {
	ctx, span := otel.Tracer("MessagingService").Start(ctx, "CreateMessage", trace.WithAttributes(
		attribute.String("room.id", roomID.String()),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "CreateMessage"), slog.String("roomID", roomID.String()))

	if strings.TrimSpace(text) == "" {
		return nil, &types.ValidationError{Messages: []string{"Please add a text"}}
	}

	room, err := s.store.FindByID(ctx, store.TableMessageRooms, roomID, nil)
	if err != nil {
		span.SetStatus(codes.Error, "Room not found")
		return nil, fmt.Errorf("MessageRoom %s: %w", roomID, err)
	}
	if room.Deleted {
		span.SetStatus(codes.Error, "Room deleted")
		return nil, fmt.Errorf("MessageRoom %s: %w", roomID, types.ErrNotFound)
	}
	if err := s.requireMember(room, principal); err != nil {
		span.SetStatus(codes.Error, "Not a member")
		return nil, err
	}

	doc, err := s.store.Create(ctx, store.TableMessages, &principal.ID, map[string]any{
		"room": roomID.String(),
		"text": text,
	}, nil)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create message", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Store create failed")
		return nil, err
	}

	parent := &types.AuditParent{ParentModel: "MessageRoom", ParentID: roomID.String()}
	if err := s.record(ctx, "Message", doc.ID, principal, types.AuditActionCreated, parent); err != nil {
		return nil, err
	}
	metrics.Get().MutationsTotal.Add(ctx, 1)
	span.SetStatus(codes.Ok, "Message created")
	return doc, nil
}

// DeleteMessage soft-deletes a message for its author and admins.
func (s *ServiceImpl) DeleteMessage(ctx context.Context, principal types.Principal, id uuid.UUID) error {
	ctx, span := otel.Tracer("MessagingService").Start(ctx, "DeleteMessage", trace.WithAttributes(
		attribute.String("message.id", id.String()),
	))
	defer span.End()

	msg, err := s.store.FindByID(ctx, store.TableMessages, id, nil)
	if err != nil {
		span.SetStatus(codes.Error, "Message not found")
		return fmt.Errorf("Message %s: %w", id, err)
	}
	if !principal.IsAdmin() && (msg.User == nil || *msg.User != principal.ID) {
		return fmt.Errorf("principal %s may not delete message %s: %w", principal.ID, id, types.ErrForbidden)
	}
	if err := s.store.SoftDelete(ctx, store.TableMessages, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Store delete failed")
		return err
	}
	if err := s.record(ctx, "Message", id, principal, types.AuditActionDeleted, nil); err != nil {
		return err
	}
	metrics.Get().MutationsTotal.Add(ctx, 1)
	span.SetStatus(codes.Ok, "Message deleted")
	return nil
}

// requireMember denies principals outside the room's member set.
func (s *ServiceImpl) requireMember(room *types.Document, principal types.Principal) error {
	if principal.IsAdmin() {
		return nil
	}
	if slices.Contains(room.StringsField("users"), principal.ID.String()) {
		return nil
	}
	return fmt.Errorf("principal %s is not a member of room %s: %w",
		principal.ID, room.ID, types.ErrForbidden)
}

func (s *ServiceImpl) record(ctx context.Context, model string, id uuid.UUID, principal types.Principal, action string, parent *types.AuditParent) error {
	user := principal.ID
	return s.auditService.Record(ctx, types.AuditRecord{
		Model:   model,
		ModelID: id.String(),
		User:    &user,
		Action:  action,
		Parent:  parent,
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
