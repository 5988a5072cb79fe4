package audit

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-recruiter-hub/app/observability/metrics"
	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

var _ Recorder = (*ServiceImpl)(nil)

// Recorder records entity mutations. Record is awaited by the mutation path:
// a failed write fails the whole request even though the mutation itself
// already committed, so a missing trail entry is always visible to the caller.
type Recorder interface {
	Record(ctx context.Context, entry types.AuditRecord) error
	ListRecords(ctx context.Context, q types.ListQuery) ([]*types.AuditRecord, int, error)
}

type ServiceImpl struct {
	logger    *slog.Logger
	auditRepo Repository
}

func NewServiceImpl(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		auditRepo: repo,
	}
}

// Record appends one entry to the trail and surfaces ErrAuditWrite on failure.
func (s *ServiceImpl) Record(ctx context.Context, entry types.AuditRecord) error {
	ctx, span := otel.Tracer("AuditService").Start(ctx, "Record", trace.WithAttributes(
		attribute.String("audit.model", entry.Model),
		attribute.String("audit.action", entry.Action),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Record"),
		slog.String("model", entry.Model), slog.String("action", entry.Action))

	if err := s.auditRepo.Insert(ctx, entry); err != nil {
		l.ErrorContext(ctx, "Failed to record audit entry", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Audit write failed")
		metrics.Get().AuditWriteErrorsTotal.Add(ctx, 1)
		return fmt.Errorf("audit entry for %s %s: %w", entry.Model, entry.ModelID, types.ErrAuditWrite)
	}

	metrics.Get().AuditWritesTotal.Add(ctx, 1)
	return nil
}

// ListRecords returns one page of the trail plus the total record count.
func (s *ServiceImpl) ListRecords(ctx context.Context, q types.ListQuery) ([]*types.AuditRecord, int, error) {
	ctx, span := otel.Tracer("AuditService").Start(ctx, "ListRecords")
	defer span.End()

	records, err := s.auditRepo.List(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list audit records")
		return nil, 0, err
	}
	total, err := s.auditRepo.Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to count audit records")
		return nil, 0, err
	}
	span.SetStatus(codes.Ok, "Audit records listed")
	return records, total, nil
}
