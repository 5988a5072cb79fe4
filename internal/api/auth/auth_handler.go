package auth

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-recruiter-hub/internal/api"
	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	RegisterHandler(w http.ResponseWriter, r *http.Request)
	LoginHandler(w http.ResponseWriter, r *http.Request)
	LogoutHandler(w http.ResponseWriter, r *http.Request)
	MeHandler(w http.ResponseWriter, r *http.Request)
	UpdateDetailsHandler(w http.ResponseWriter, r *http.Request)
	UpdatePasswordHandler(w http.ResponseWriter, r *http.Request)
	ForgotPasswordHandler(w http.ResponseWriter, r *http.Request)
	ResetPasswordHandler(w http.ResponseWriter, r *http.Request)
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

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type tokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

func (h *HandlerImpl) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Register")
	defer span.End()
	l := h.logger.With(slog.String("handler", "RegisterHandler"))

	var req registerRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	span.SetAttributes(attribute.String("email", req.Email))

	_, token, err := h.service.Register(ctx, req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Register failed")
		api.HandleError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Registered")
	api.WriteJSONResponse(w, r, http.StatusCreated, tokenResponse{Success: true, Token: token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *HandlerImpl) LoginHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Login")
	defer span.End()
	l := h.logger.With(slog.String("handler", "LoginHandler"))

	var req loginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Login failed")
		api.HandleError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Logged in")
	api.WriteJSONResponse(w, r, http.StatusOK, tokenResponse{Success: true, Token: token})
}

// LogoutHandler exists for client symmetry; access tokens are stateless and
// simply expire.
func (h *HandlerImpl) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Data: struct{}{}})
}

func (h *HandlerImpl) MeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Me")
	defer span.End()

	userID, err := requireUserID(r)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	user, err := h.service.Me(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Profile lookup failed")
		api.HandleError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Profile resolved")
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Data: user})
}

type updateDetailsRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UpdateDetailsHandler lets the caller change their own name and email.
func (h *HandlerImpl) UpdateDetailsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "UpdateDetails")
	defer span.End()
	l := h.logger.With(slog.String("handler", "UpdateDetailsHandler"))

	userID, err := requireUserID(r)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	var req updateDetailsRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.UpdateDetails(ctx, userID, req.Name, req.Email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Details update failed")
		api.HandleError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Details updated")
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Data: user})
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *HandlerImpl) UpdatePasswordHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "UpdatePassword")
	defer span.End()
	l := h.logger.With(slog.String("handler", "UpdatePasswordHandler"))

	userID, err := requireUserID(r)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	var req updatePasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.service.UpdatePassword(ctx, userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Password update failed")
		api.HandleError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Password updated")
	api.WriteJSONResponse(w, r, http.StatusOK, tokenResponse{Success: true, Token: token})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *HandlerImpl) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "ForgotPassword")
	defer span.End()
	l := h.logger.With(slog.String("handler", "ForgotPasswordHandler"))

	var req forgotPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	resetBaseURL := fmt.Sprintf("%s://%s/api/v1/auth/resetpassword", scheme, r.Host)

	if err := h.service.ForgotPassword(ctx, req.Email, resetBaseURL); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Forgot password failed")
		api.HandleError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Reset mail sent")
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "Email sent"})
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *HandlerImpl) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "ResetPassword")
	defer span.End()
	l := h.logger.With(slog.String("handler", "ResetPasswordHandler"))

	var req resetPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.service.ResetPassword(ctx, chi.URLParam(r, "resettoken"), req.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Password reset failed")
		api.HandleError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Password reset")
	api.WriteJSONResponse(w, r, http.StatusOK, tokenResponse{Success: true, Token: token})
}

func requireUserID(r *http.Request) (uuid.UUID, error) {
	idStr, ok := GetUserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, types.ErrUnauthenticated
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, types.ErrUnauthenticated
	}
	return id, nil
}
