package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/go-recruiter-hub/app/observability/metrics"
	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

// Table names for every document-backed entity. Handlers reference these
// through their entity config; user input never reaches a table name.
const (
	TableCompanies    = "companies"
	TableBootcamps    = "bootcamps"
	TableJobs         = "jobs"
	TableCourses      = "courses"
	TableReviews      = "reviews"
	TableImages       = "images"
	TableMessageRooms = "message_rooms"
	TableMessages     = "messages"
)

var _ Store = (*PGStore)(nil)

// Store is the narrow entity-store capability the rest of the application
// consumes: find by filter, paginate, count, mutate, populate relations.
type Store interface {
	Find(ctx context.Context, table string, q types.ListQuery, rels []Relation) ([]*types.Document, error)
	FindOne(ctx context.Context, table string, filters []types.Filter, includeDeleted bool) (*types.Document, error)
	FindByID(ctx context.Context, table string, id uuid.UUID, rels []Relation) (*types.Document, error)
	Count(ctx context.Context, table string, deleted bool) (int, error)
	Create(ctx context.Context, table string, owner *uuid.UUID, data map[string]any, loc *types.Point) (*types.Document, error)
	UpdateByID(ctx context.Context, table string, id uuid.UUID, patch map[string]any, loc *types.Point) (*types.Document, error)
	SoftDelete(ctx context.Context, table string, id uuid.UUID) error
	Remove(ctx context.Context, table string, id uuid.UUID) error
	FindWithinRadius(ctx context.Context, table string, center types.Point, radiusMeters float64) ([]*types.Document, error)
}

// PGX is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type PGX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PGStore struct {
	pgpool PGX
	logger *slog.Logger
}

func NewPGStore(pgpool PGX, logger *slog.Logger) *PGStore {
	return &PGStore{pgpool: instrumentedPGX{next: pgpool}, logger: logger}
}

// instrumentedPGX records query duration and error counts around the
// underlying pool. QueryRow defers errors to Scan, so only its latency
// is observed.
type instrumentedPGX struct {
	next PGX
}

func (p instrumentedPGX) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	start := time.Now()
	rows, err := p.next.Query(ctx, sql, args...)
	metrics.Get().DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
	}
	return rows, err
}

func (p instrumentedPGX) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	start := time.Now()
	row := p.next.QueryRow(ctx, sql, args...)
	metrics.Get().DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds())
	return row
}

func (p instrumentedPGX) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	start := time.Now()
	tag, err := p.next.Exec(ctx, sql, args...)
	metrics.Get().DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
	}
	return tag, err
}

const docColumns = "id, user_id, deleted, created_at, updated_at, data"

// identPattern guards every field name interpolated into a JSONB accessor.
var identPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// fieldExpr maps a filter/sort field to a SQL expression. Common fields hit
// real columns; anything else reads the JSONB payload as text.
func fieldExpr(field string) (string, bool) {
	switch field {
	case "id":
		return "id::text", true
	case "user":
		return "user_id::text", true
	case "createdAt":
		return "created_at", true
	case "updatedAt":
		return "updated_at", true
	}
	if !identPattern.MatchString(field) {
		return "", false
	}
	return fmt.Sprintf("data->>'%s'", field), true
}

var opSQL = map[types.FilterOp]string{
	types.OpEq:  "=",
	types.OpGt:  ">",
	types.OpGte: ">=",
	types.OpLt:  "<",
	types.OpLte: "<=",
}

// buildWhere renders the filter set into a WHERE clause. A nil deleted flag
// means soft-deleted rows are not filtered out.
func buildWhere(deleted *bool, filters []types.Filter) (string, []any) {
	var b strings.Builder
	var args []any
	if deleted != nil {
		args = append(args, *deleted)
		b.WriteString("deleted = $1")
	} else {
		b.WriteString("TRUE")
	}

	for _, f := range filters {
		if f.Op == types.OpContains {
			if !identPattern.MatchString(f.Field) {
				continue
			}
			operand, err := json.Marshal([]string{f.Value})
			if err != nil {
				continue
			}
			args = append(args, string(operand))
			fmt.Fprintf(&b, " AND data->'%s' @> $%d::jsonb", f.Field, len(args))
			continue
		}
		expr, ok := fieldExpr(f.Field)
		if !ok {
			continue
		}
		if f.Op == types.OpIn {
			args = append(args, f.Values)
			fmt.Fprintf(&b, " AND %s = ANY($%d)", expr, len(args))
			continue
		}
		op, ok := opSQL[f.Op]
		if !ok {
			continue
		}
		// Range comparisons on payload fields are numeric when the operand
		// parses as a number; equality stays textual.
		if n, err := strconv.ParseFloat(f.Value, 64); err == nil && f.Op != types.OpEq && strings.HasPrefix(expr, "data->>") {
			args = append(args, n)
			fmt.Fprintf(&b, " AND (%s)::numeric %s $%d", expr, op, len(args))
			continue
		}
		args = append(args, f.Value)
		fmt.Fprintf(&b, " AND %s %s $%d", expr, op, len(args))
	}
	return b.String(), args
}

func buildOrderBy(sort []types.SortKey) string {
	if len(sort) == 0 {
		return ""
	}
	parts := make([]string, 0, len(sort))
	for _, key := range sort {
		expr, ok := fieldExpr(key.Field)
		if !ok {
			continue
		}
		dir := "ASC"
		if key.Desc {
			dir = "DESC"
		}
		parts = append(parts, expr+" "+dir)
	}
	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func unmarshalPayload(raw []byte, doc *types.Document) error {
	if err := json.Unmarshal(raw, &doc.Data); err != nil {
		return fmt.Errorf("failed to decode document payload: %w", err)
	}
	return nil
}

func scanDocument(row pgx.Row) (*types.Document, error) {
	var doc types.Document
	var raw []byte
	err := row.Scan(&doc.ID, &doc.User, &doc.Deleted, &doc.CreatedAt, &doc.UpdatedAt, &raw)
	if err != nil {
		return nil, err
	}
	if err := unmarshalPayload(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *PGStore) collectDocuments(rows pgx.Rows) ([]*types.Document, error) {
	defer rows.Close()
	var docs []*types.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}
	return docs, nil
}

// Find runs a translated list query and populates the requested relations.
func (s *PGStore) Find(ctx context.Context, table string, q types.ListQuery, rels []Relation) ([]*types.Document, error) {
	where, args := buildWhere(&q.Deleted, q.Filters)
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s%s LIMIT $%d OFFSET $%d",
		docColumns, table, where, buildOrderBy(q.Sort), len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset())

	rows, err := s.pgpool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	docs, err := s.collectDocuments(rows)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, docs, rels); err != nil {
		return nil, err
	}
	return docs, nil
}

// FindOne returns the first document matching the filters, or ErrNotFound.
func (s *PGStore) FindOne(ctx context.Context, table string, filters []types.Filter, includeDeleted bool) (*types.Document, error) {
	notDeleted := false
	deleted := &notDeleted
	if includeDeleted {
		deleted = nil
	}
	where, args := buildWhere(deleted, filters)
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1", docColumns, table, where)

	doc, err := scanDocument(s.pgpool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	return doc, nil
}

// FindByID resolves a single document regardless of its deleted flag; the
// handler decides how to treat soft-deleted rows.
func (s *PGStore) FindByID(ctx context.Context, table string, id uuid.UUID, rels []Relation) (*types.Document, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", docColumns, table)
	doc, err := scanDocument(s.pgpool.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query %s by id: %w", table, err)
	}
	if err := s.populate(ctx, []*types.Document{doc}, rels); err != nil {
		return nil, err
	}
	return doc, nil
}

// Count reports the number of rows matching only the soft-delete flag. The
// displayed pagination total deliberately ignores the other active filters;
// API consumers depend on that behavior.
func (s *PGStore) Count(ctx context.Context, table string, deleted bool) (int, error) {
	var count int
	sql := fmt.Sprintf("SELECT count(*) FROM %s WHERE deleted = $1", table)
	if err := s.pgpool.QueryRow(ctx, sql, deleted).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}

func (s *PGStore) Create(ctx context.Context, table string, owner *uuid.UUID, data map[string]any, loc *types.Point) (*types.Document, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document payload: %w", err)
	}

	var row pgx.Row
	if loc != nil {
		sql := fmt.Sprintf(
			"INSERT INTO %s (user_id, data, location) VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography) RETURNING %s",
			table, docColumns)
		row = s.pgpool.QueryRow(ctx, sql, owner, raw, loc.Longitude, loc.Latitude)
	} else {
		sql := fmt.Sprintf("INSERT INTO %s (user_id, data) VALUES ($1, $2) RETURNING %s", table, docColumns)
		row = s.pgpool.QueryRow(ctx, sql, owner, raw)
	}

	doc, err := scanDocument(row)
	if err != nil {
		return nil, mapStoreError(table, err)
	}
	return doc, nil
}

// UpdateByID merges the patch into the stored payload.
func (s *PGStore) UpdateByID(ctx context.Context, table string, id uuid.UUID, patch map[string]any, loc *types.Point) (*types.Document, error) {
	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document patch: %w", err)
	}

	var row pgx.Row
	if loc != nil {
		sql := fmt.Sprintf(
			"UPDATE %s SET data = data || $2, location = ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, updated_at = now() WHERE id = $1 RETURNING %s",
			table, docColumns)
		row = s.pgpool.QueryRow(ctx, sql, id, raw, loc.Longitude, loc.Latitude)
	} else {
		sql := fmt.Sprintf("UPDATE %s SET data = data || $2, updated_at = now() WHERE id = $1 RETURNING %s", table, docColumns)
		row = s.pgpool.QueryRow(ctx, sql, id, raw)
	}

	doc, err := scanDocument(row)
	if err != nil {
		return nil, mapStoreError(table, err)
	}
	return doc, nil
}

// SoftDelete flags the row instead of removing it.
func (s *PGStore) SoftDelete(ctx context.Context, table string, id uuid.UUID) error {
	sql := fmt.Sprintf("UPDATE %s SET deleted = true, updated_at = now() WHERE id = $1", table)
	tag, err := s.pgpool.Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// Remove physically deletes the row.
func (s *PGStore) Remove(ctx context.Context, table string, id uuid.UUID) error {
	sql := fmt.Sprintf("DELETE FROM %s WHERE id = $1", table)
	tag, err := s.pgpool.Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// FindWithinRadius returns non-deleted documents whose location falls inside
// the given radius around the center point.
func (s *PGStore) FindWithinRadius(ctx context.Context, table string, center types.Point, radiusMeters float64) ([]*types.Document, error) {
	point := fmt.Sprintf("SRID=4326;POINT(%f %f)", center.Longitude, center.Latitude)
	sql := fmt.Sprintf(`
        SELECT %s FROM %s
        WHERE deleted = false AND ST_DWithin(location, ST_GeomFromText($1, 4326)::geography, $2)
        ORDER BY ST_Distance(location, ST_GeomFromText($1, 4326)::geography) ASC`,
		docColumns, table)

	rows, err := s.pgpool.Query(ctx, sql, point, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("failed to run radius query on %s: %w", table, err)
	}
	return s.collectDocuments(rows)
}

func mapStoreError(table string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return types.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("unique constraint on %s: %w", table, types.ErrConflict)
	}
	return fmt.Errorf("store operation on %s failed: %w", table, err)
}
