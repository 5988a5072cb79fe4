package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FACorreiaa/go-recruiter-hub/internal/store"
	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

// Ensure RepositoryImpl implements the Repository interface
var _ Repository = (*RepositoryImpl)(nil)

// Repository persists and queries the append-only audit trail.
type Repository interface {
	Insert(ctx context.Context, entry types.AuditRecord) error
	List(ctx context.Context, q types.ListQuery) ([]*types.AuditRecord, error)
	Count(ctx context.Context) (int, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool store.PGX
}

func NewRepository(pgpool store.PGX, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

// Insert appends one audit record. Records are never updated or removed.
func (r *RepositoryImpl) Insert(ctx context.Context, entry types.AuditRecord) error {
	query := `
        INSERT INTO audit_records (model, model_id, user_id, action, parent_model, parent_id)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	var parentModel, parentID any
	if entry.Parent != nil {
		parentModel = entry.Parent.ParentModel
		parentID = entry.Parent.ParentID
	}
	_, err := r.pgpool.Exec(ctx, query,
		entry.Model, entry.ModelID, entry.User, entry.Action, parentModel, parentID,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert audit record", slog.Any("error", err))
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

// auditColumn maps list-query field names onto the typed audit columns.
// Unknown fields are dropped, mirroring the document store's behavior.
func auditColumn(field string) (string, bool) {
	switch field {
	case "model":
		return "model", true
	case "modelId":
		return "model_id", true
	case "user":
		return "user_id::text", true
	case "action":
		return "action", true
	case "parentModel":
		return "parent_model", true
	case "createdAt":
		return "created_at", true
	}
	return "", false
}

// List returns audit records matching the translated query, newest first
// unless the query sorts otherwise.
func (r *RepositoryImpl) List(ctx context.Context, q types.ListQuery) ([]*types.AuditRecord, error) {
	var b strings.Builder
	b.WriteString(`
        SELECT id, model, model_id, user_id, action, parent_model, parent_id, created_at
        FROM audit_records WHERE TRUE`)

	var args []any
	for _, f := range q.Filters {
		col, ok := auditColumn(f.Field)
		if !ok || f.Op != types.OpEq {
			continue
		}
		args = append(args, f.Value)
		fmt.Fprintf(&b, " AND %s = $%d", col, len(args))
	}

	order := "created_at DESC"
	if len(q.Sort) > 0 {
		if col, ok := auditColumn(q.Sort[0].Field); ok {
			dir := "ASC"
			if q.Sort[0].Desc {
				dir = "DESC"
			}
			order = col + " " + dir
		}
	}
	fmt.Fprintf(&b, " ORDER BY %s LIMIT $%d OFFSET $%d", order, len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset())

	rows, err := r.pgpool.Query(ctx, b.String(), args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query audit records", slog.Any("error", err))
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var records []*types.AuditRecord
	for rows.Next() {
		var rec types.AuditRecord
		var parentModel, parentID *string
		err := rows.Scan(&rec.ID, &rec.Model, &rec.ModelID, &rec.User, &rec.Action,
			&parentModel, &parentID, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		if parentModel != nil && parentID != nil {
			rec.Parent = &types.AuditParent{ParentModel: *parentModel, ParentID: *parentID}
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit records: %w", err)
	}
	return records, nil
}

func (r *RepositoryImpl) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pgpool.QueryRow(ctx, "SELECT count(*) FROM audit_records").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit records: %w", err)
	}
	return count, nil
}
