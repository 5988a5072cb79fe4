package user

import (
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
	ListUsersHandler(w http.ResponseWriter, r *http.Request)
	GetUserHandler(w http.ResponseWriter, r *http.Request)
	CreateUserHandler(w http.ResponseWriter, r *http.Request)
	UpdateUserHandler(w http.ResponseWriter, r *http.Request)
	DeleteUserHandler(w http.ResponseWriter, r *http.Request)
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

type listUsersResponse struct {
	Success    bool              `json:"success"`
	Count      int               `json:"count"`
	Pagination types.Pagination  `json:"pagination"`
	Data       []*types.UserAuth `json:"data"`
}

type userResponse struct {
	Success bool            `json:"success"`
	Data    *types.UserAuth `json:"data"`
}

// parseID translates a bad path id into not-found so probing with garbage
// ids looks the same as probing with unknown ones.
func parseID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, types.ErrNotFound
	}
	return id, nil
}

func (h *HandlerImpl) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "ListUsers")
	defer span.End()

	q := api.ParseListQuery(r.URL.Query())
	users, total, err := h.service.ListUsers(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list users")
		api.HandleError(w, r, err)
		return
	}
	if users == nil {
		users = []*types.UserAuth{}
	}
	span.SetStatus(codes.Ok, "Users listed")
	api.WriteJSONResponse(w, r, http.StatusOK, listUsersResponse{
		Success:    true,
		Count:      len(users),
		Pagination: api.BuildPagination(q.Page, q.Limit, total),
		Data:       users,
	})
}

func (h *HandlerImpl) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "GetUser")
	defer span.End()

	id, err := parseID(r)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	u, err := h.service.GetUser(ctx, id)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, userResponse{Success: true, Data: u})
}

func (h *HandlerImpl) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "CreateUser")
	defer span.End()
	l := h.logger.With(slog.String("handler", "CreateUserHandler"))

	var params CreateUserParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.service.CreateUser(ctx, auth.PrincipalFromContext(ctx), params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create user")
		api.HandleError(w, r, err)
		return
	}
	span.SetStatus(codes.Ok, "User created")
	api.WriteJSONResponse(w, r, http.StatusCreated, userResponse{Success: true, Data: created})
}

func (h *HandlerImpl) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "UpdateUser")
	defer span.End()

	id, err := parseID(r)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	var params PatchUserParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := h.service.UpdateUser(ctx, auth.PrincipalFromContext(ctx), id, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update user")
		api.HandleError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, userResponse{Success: true, Data: updated})
}

func (h *HandlerImpl) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UserHandler").Start(r.Context(), "DeleteUser")
	defer span.End()

	id, err := parseID(r)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	if err := h.service.DeleteUser(ctx, auth.PrincipalFromContext(ctx), id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete user")
		api.HandleError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Data: struct{}{}})
}
