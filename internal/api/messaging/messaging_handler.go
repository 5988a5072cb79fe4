package messaging

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-recruiter-hub/internal/api"
	"github.com/FACorreiaa/go-recruiter-hub/internal/api/auth"
	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	ListRoomsHandler(w http.ResponseWriter, r *http.Request)
	CreateRoomHandler(w http.ResponseWriter, r *http.Request)
	GetRoomHandler(w http.ResponseWriter, r *http.Request)
	DeleteRoomHandler(w http.ResponseWriter, r *http.Request)
	CreateMessageHandler(w http.ResponseWriter, r *http.Request)
	DeleteMessageHandler(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	logger  *slog.Logger
	service Service
}

func NewHandler(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		logger:  logger,
		service: service,
	}
}

func urlID(r *http.Request, param string) (uuid.UUID, error) {
	idStr := chi.URLParam(r, param)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resource id %q: %w", idStr, types.ErrNotFound)
	}
	return id, nil
}

func (h *HandlerImpl) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("MessagingHandler").Start(r.Context(), "ListRooms")
	defer span.End()

	principal := auth.PrincipalFromContext(ctx)
	q := api.ParseListQuery(r.URL.Query())
	resp, err := h.service.ListRooms(ctx, principal, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list rooms")
		api.HandleError(w, r, err)
		return
	}
	span.SetStatus(codes.Ok, "Rooms listed")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

type createRoomRequest struct {
	Users []string `json:"users"`
}

func (h *HandlerImpl) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("MessagingHandler").Start(r.Context(), "CreateRoom")
	defer span.End()
	l := h.logger.With(slog.String("handler", "CreateRoomHandler"))

	principal := auth.PrincipalFromContext(ctx)
	var req createRoomRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	room, err := h.service.CreateRoom(ctx, principal, req.Users)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Room create failed")
		api.HandleError(w, r, err)
		return
	}
	span.SetStatus(codes.Ok, "Room created")
	api.WriteJSONResponse(w, r, http.StatusCreated, types.Response{Success: true, Data: room})
}

func (h *HandlerImpl) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("MessagingHandler").Start(r.Context(), "GetRoom")
	defer span.End()

	id, err := urlID(r, "id")
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	principal := auth.PrincipalFromContext(ctx)
	room, err := h.service.GetRoom(ctx, principal, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Room get failed")
		api.HandleError(w, r, err)
		return
	}
	span.SetStatus(codes.Ok, "Room found")
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Data: room})
}

func (h *HandlerImpl) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("MessagingHandler").Start(r.Context(), "DeleteRoom")
	defer span.End()

	id, err := urlID(r, "id")
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	principal := auth.PrincipalFromContext(ctx)
	if err := h.service.DeleteRoom(ctx, principal, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Room delete failed")
		api.HandleError(w, r, err)
		return
	}
	span.SetStatus(codes.Ok, "Room deleted")
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Data: struct{}{}})
}

type createMessageRequest struct {
	Text string `json:"text"`
}

func (h *HandlerImpl) CreateMessageHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("MessagingHandler").Start(r.Context(), "CreateMessage")
	defer span.End()
	l := h.logger.With(slog.String("handler", "CreateMessageHandler"))

	roomID, err := urlID(r, "roomId")
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	principal := auth.PrincipalFromContext(ctx)
	var req createMessageRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.service.CreateMessage(ctx, principal, roomID, req.Text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Message create failed")
		api.HandleError(w, r, err)
		return
	}
	span.SetStatus(codes.Ok, "Message created")
	api.WriteJSONResponse(w, r, http.StatusCreated, types.Response{Success: true, Data: msg})
}

func (h *HandlerImpl) DeleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("MessagingHandler").Start(r.Context(), "DeleteMessage")
	defer span.End()

	id, err := urlID(r, "id")
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	principal := auth.PrincipalFromContext(ctx)
	if err := h.service.DeleteMessage(ctx, principal, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Message delete failed")
		api.HandleError(w, r, err)
		return
	}
	span.SetStatus(codes.Ok, "Message deleted")
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Data: struct{}{}})
}
