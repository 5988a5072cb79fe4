package resource

import (
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-recruiter-hub/internal/api"
	"github.com/FACorreiaa/go-recruiter-hub/internal/api/auth"
	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	ListHandler(w http.ResponseWriter, r *http.Request)
	GetHandler(w http.ResponseWriter, r *http.Request)
	CreateHandler(w http.ResponseWriter, r *http.Request)
	UpdateHandler(w http.ResponseWriter, r *http.Request)
	DeleteHandler(w http.ResponseWriter, r *http.Request)
	RadiusHandler(w http.ResponseWriter, r *http.Request)
	PhotoUploadHandler(w http.ResponseWriter, r *http.Request)
	TeamImageUploadHandler(w http.ResponseWriter, r *http.Request)
}

// HandlerImpl serves one entity type; every instance shares the same generic
// service and differs only in configuration.
type HandlerImpl struct {
	cfg       EntityConfig
	logger    *slog.Logger
	service   Service
	maxUpload int64
}

func NewHandler(cfg EntityConfig, service Service, maxUpload int64, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		cfg:       cfg,
		logger:    logger,
		service:   service,
		maxUpload: maxUpload,
	}
}

// parseID treats a malformed id the same as an unknown one.
func parseID(r *http.Request) (uuid.UUID, error) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resource id %q: %w", idStr, types.ErrNotFound)
	}
	return id, nil
}

func (h *HandlerImpl) ListHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ResourceHandler").Start(r.Context(), h.cfg.Name+".List")
	defer span.End()
	l := h.logger.With(slog.String("handler", "ListHandler"), slog.String("entity", h.cfg.Name))

	q := api.ParseListQuery(r.URL.Query())

	var resp *types.ListResponse
	var err error
	if h.cfg.Parent != nil {
		if parentID := chi.URLParam(r, h.cfg.Parent.URLParam); parentID != "" {
			resp, err = h.service.ListByParent(ctx, h.cfg, parentID, q)
		}
	}
	if resp == nil && err == nil {
		resp, err = h.service.List(ctx, h.cfg, q)
	}
	if err != nil {
		l.ErrorContext(ctx, "Failed to list entities", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "List failed")
		api.HandleError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Listed")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

func (h *HandlerImpl) GetHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ResourceHandler").Start(r.Context(), h.cfg.Name+".Get")
	defer span.End()

	id, err := parseID(r)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("id", id.String()))

	doc, err := h.service.Get(ctx, h.cfg, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Get failed")
		api.HandleError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Found")
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Data: doc})
}

func (h *HandlerImpl) CreateHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ResourceHandler").Start(r.Context(), h.cfg.Name+".Create")
	defer span.End()
	l := h.logger.With(slog.String("handler", "CreateHandler"), slog.String("entity", h.cfg.Name))

	principal := auth.PrincipalFromContext(ctx)
	if principal.IsAnonymous() {
		api.HandleError(w, r, types.ErrUnauthenticated)
		return
	}

	var payload map[string]any
	if err := api.DecodeJSONBody(w, r, &payload); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var parentID string
	if h.cfg.Parent != nil {
		parentID = chi.URLParam(r, h.cfg.Parent.URLParam)
	}

	doc, err := h.service.Create(ctx, h.cfg, principal, parentID, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Create failed")
		api.HandleError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Created")
	api.WriteJSONResponse(w, r, http.StatusCreated, types.Response{Success: true, Data: doc})
}

func (h *HandlerImpl) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ResourceHandler").Start(r.Context(), h.cfg.Name+".Update")
	defer span.End()
	l := h.logger.With(slog.String("handler", "UpdateHandler"), slog.String("entity", h.cfg.Name))

	id, err := parseID(r)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	principal := auth.PrincipalFromContext(ctx)
	if principal.IsAnonymous() {
		api.HandleError(w, r, types.ErrUnauthenticated)
		return
	}

	var patch map[string]any
	if err := api.DecodeJSONBody(w, r, &patch); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.service.Update(ctx, h.cfg, principal, id, patch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		api.HandleError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Updated")
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Data: doc})
}

func (h *HandlerImpl) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ResourceHandler").Start(r.Context(), h.cfg.Name+".Delete")
	defer span.End()

	id, err := parseID(r)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	principal := auth.PrincipalFromContext(ctx)
	if principal.IsAnonymous() {
		api.HandleError(w, r, types.ErrUnauthenticated)
		return
	}

	if err := h.service.Delete(ctx, h.cfg, principal, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		api.HandleError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Deleted")
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Data: struct{}{}})
}

// RadiusHandler serves GET .../radius/{zipcode}/{distance}. The unit query
// parameter switches between miles (default) and kilometers.
func (h *HandlerImpl) RadiusHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ResourceHandler").Start(r.Context(), h.cfg.Name+".Radius")
	defer span.End()

	zipcode := chi.URLParam(r, "zipcode")
	distance, err := strconv.ParseFloat(chi.URLParam(r, "distance"), 64)
	if err != nil || distance <= 0 {
		api.HandleError(w, r, &types.ValidationError{Messages: []string{"Please provide a positive distance"}})
		return
	}
	unit := chi.URLParam(r, "unit")
	if unit != "km" {
		unit = "mi"
	}

	docs, err := h.service.WithinRadius(ctx, h.cfg, zipcode, distance, unit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Radius search failed")
		api.HandleError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Radius search done")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(docs),
		"data":    docs,
	})
}

// PhotoUploadHandler accepts a multipart "file" field, rejects non-images
// and oversized uploads, and patches the entity's photo reference.
func (h *HandlerImpl) PhotoUploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ResourceHandler").Start(r.Context(), h.cfg.Name+".PhotoUpload")
	defer span.End()
	l := h.logger.With(slog.String("handler", "PhotoUploadHandler"), slog.String("entity", h.cfg.Name))

	id, err := parseID(r)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	principal := auth.PrincipalFromContext(ctx)
	if principal.IsAnonymous() {
		api.HandleError(w, r, types.ErrUnauthenticated)
		return
	}

	file, header, err := h.formFile(r)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	defer file.Close()

	name, err := h.service.AttachPhoto(ctx, h.cfg, principal, id,
		header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		l.ErrorContext(ctx, "Failed to attach photo", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Photo upload failed")
		api.HandleError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Photo uploaded")
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Data: name})
}

// TeamImageUploadHandler stores a company team member photo as a standalone
// Image entity. Registered only on the company routes.
func (h *HandlerImpl) TeamImageUploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ResourceHandler").Start(r.Context(), h.cfg.Name+".TeamImageUpload")
	defer span.End()

	id, err := parseID(r)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	principal := auth.PrincipalFromContext(ctx)
	if principal.IsAnonymous() {
		api.HandleError(w, r, types.ErrUnauthenticated)
		return
	}

	file, header, err := h.formFile(r)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}
	defer file.Close()

	doc, err := h.service.CreateTeamImage(ctx, principal, id,
		header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Team image upload failed")
		api.HandleError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Team image uploaded")
	api.WriteJSONResponse(w, r, http.StatusCreated, types.Response{Success: true, Data: doc})
}

func (h *HandlerImpl) formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, nil, &types.ValidationError{Messages: []string{"Please upload a file"}}
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, &types.ValidationError{Messages: []string{"Please upload a file"}}
	}
	if header.Size > h.maxUpload {
		file.Close()
		return nil, nil, &types.ValidationError{Messages: []string{
			fmt.Sprintf("Please upload an image less than %d bytes", h.maxUpload),
		}}
	}
	return file, header, nil
}
