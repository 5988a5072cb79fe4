package audit

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-recruiter-hub/internal/api"
	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	ListRecordsHandler(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	logger  *slog.Logger
	service Recorder
}

func NewHandler(service Recorder, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		logger:  logger,
		service: service,
	}
}

type listRecordsResponse struct {
	Success    bool                 `json:"success"`
	Count      int                  `json:"count"`
	Pagination types.Pagination     `json:"pagination"`
	Data       []*types.AuditRecord `json:"data"`
}

// ListRecordsHandler serves GET /audit. The router guards it behind the
// admin role; the handler only translates the query and pages the trail.
func (h *HandlerImpl) ListRecordsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuditHandler").Start(r.Context(), "ListRecords")
	defer span.End()
	l := h.logger.With(slog.String("handler", "ListRecordsHandler"))

	q := api.ParseListQuery(r.URL.Query())
	records, total, err := h.service.ListRecords(ctx, q)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list audit records", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list audit records")
		api.HandleError(w, r, err)
		return
	}

	if records == nil {
		records = []*types.AuditRecord{}
	}
	span.SetStatus(codes.Ok, "Audit records listed")
	api.WriteJSONResponse(w, r, http.StatusOK, listRecordsResponse{
		Success:    true,
		Count:      len(records),
		Pagination: api.BuildPagination(q.Page, q.Limit, total),
		Data:       records,
	})
}
