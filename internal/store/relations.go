package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

// Relation declares one eager join. Relations are route-level configuration;
// end users never supply them.
type Relation struct {
	// Name is the key the related documents are embedded under.
	Name string
	// Table is the related table; "users" joins the structured user table.
	Table string
	// LocalField names the payload field holding the reference on this side.
	// Empty means the document id itself; "user" means the owner column.
	// Array-valued payload fields fan out to every referenced row.
	LocalField string
	// ForeignField names the matching field on the related side, with the
	// same conventions as LocalField.
	ForeignField string
	// Single embeds one related document instead of a list.
	Single bool
	// Limit caps the embedded list per document, newest first. Zero is
	// unlimited.
	Limit int
	// Select restricts the embedded documents' payload fields.
	Select []string
}

// populate eagerly joins each configured relation onto the fetched page.
// Relations load concurrently; each one is a single batched query.
func (s *PGStore) populate(ctx context.Context, docs []*types.Document, rels []Relation) error {
	if len(docs) == 0 || len(rels) == 0 {
		return nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, rel := range rels {
		g.Go(func() error {
			return s.populateOne(gctx, docs, rel, &mu)
		})
	}
	return g.Wait()
}

func (s *PGStore) populateOne(ctx context.Context, docs []*types.Document, rel Relation, mu *sync.Mutex) error {
	keysPerDoc := make([][]string, len(docs))
	keySet := make(map[string]struct{})
	for i, doc := range docs {
		keys := localKeys(doc, rel.LocalField)
		keysPerDoc[i] = keys
		for _, k := range keys {
			keySet[k] = struct{}{}
		}
	}
	if len(keySet) == 0 {
		return nil
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	related, err := s.fetchRelated(ctx, rel, keys)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	for i, doc := range docs {
		matches := make([]any, 0, 4)
		for _, k := range keysPerDoc[i] {
			matches = append(matches, related[k]...)
		}
		if rel.Limit > 0 && len(matches) > rel.Limit {
			matches = matches[:rel.Limit]
		}
		if doc.Related == nil {
			doc.Related = make(map[string]any)
		}
		if rel.Single {
			if len(matches) > 0 {
				doc.Related[rel.Name] = matches[0]
			}
		} else {
			doc.Related[rel.Name] = matches
		}
	}
	return nil
}

// localKeys extracts the reference value(s) a relation joins on.
func localKeys(doc *types.Document, field string) []string {
	switch field {
	case "":
		return []string{doc.ID.String()}
	case "user":
		if doc.User == nil {
			return nil
		}
		return []string{doc.User.String()}
	}
	if s := doc.StringField(field); s != "" {
		return []string{s}
	}
	return doc.StringsField(field)
}

// fetchRelated runs the batched lookup, keyed by the foreign field value.
// Results come back newest first so per-document limits keep recent rows.
func (s *PGStore) fetchRelated(ctx context.Context, rel Relation, keys []string) (map[string][]any, error) {
	if rel.Table == "users" {
		return s.fetchRelatedUsers(ctx, rel, keys)
	}

	foreign, ok := fieldExpr(rel.ForeignField)
	if rel.ForeignField == "" {
		foreign, ok = "id::text", true
	}
	if !ok {
		return nil, fmt.Errorf("invalid foreign field %q on relation %s", rel.ForeignField, rel.Name)
	}

	sql := fmt.Sprintf(
		"SELECT %s, %s AS join_key FROM %s WHERE deleted = false AND %s = ANY($1) ORDER BY created_at DESC",
		docColumns, foreign, rel.Table, foreign)
	rows, err := s.pgpool.Query(ctx, sql, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to populate %s: %w", rel.Name, err)
	}
	defer rows.Close()

	out := make(map[string][]any)
	for rows.Next() {
		var doc types.Document
		var raw []byte
		var joinKey string
		if err := rows.Scan(&doc.ID, &doc.User, &doc.Deleted, &doc.CreatedAt, &doc.UpdatedAt, &raw, &joinKey); err != nil {
			return nil, fmt.Errorf("failed to scan related %s row: %w", rel.Name, err)
		}
		if err := unmarshalPayload(raw, &doc); err != nil {
			return nil, err
		}
		doc.Select = rel.Select
		out[joinKey] = append(out[joinKey], &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating related %s rows: %w", rel.Name, err)
	}
	return out, nil
}

// fetchRelatedUsers joins the structured users table, exposing only the
// public profile fields.
func (s *PGStore) fetchRelatedUsers(ctx context.Context, rel Relation, keys []string) (map[string][]any, error) {
	sql := "SELECT id, name, email, role FROM users WHERE deleted = false AND id::text = ANY($1)"
	rows, err := s.pgpool.Query(ctx, sql, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to populate %s: %w", rel.Name, err)
	}
	defer rows.Close()

	selected := make(map[string]struct{}, len(rel.Select))
	for _, f := range rel.Select {
		selected[f] = struct{}{}
	}

	out := make(map[string][]any)
	for rows.Next() {
		var u types.UserAuth
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, fmt.Errorf("failed to scan related user row: %w", err)
		}
		entry := map[string]any{"id": u.ID, "name": u.Name, "email": u.Email, "role": u.Role}
		if len(selected) > 0 {
			for k := range entry {
				if _, keep := selected[k]; !keep && k != "id" {
					delete(entry, k)
				}
			}
		}
		out[u.ID.String()] = append(out[u.ID.String()], entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating related user rows: %w", err)
	}
	return out, nil
}
