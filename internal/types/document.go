package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Document is the store-agnostic shape of any persisted resource: the common
// columns every entity table carries plus the free-form payload. Payload keys
// and populated relations are flattened into the JSON representation so the
// wire shape matches what API consumers already expect.
type Document struct {
	ID        uuid.UUID      `json:"-"`
	User      *uuid.UUID     `json:"-"`
	Deleted   bool           `json:"-"`
	CreatedAt time.Time      `json:"-"`
	UpdatedAt time.Time      `json:"-"`
	Data      map[string]any `json:"-"`
	Related   map[string]any `json:"-"`

	// Select, when non-empty, restricts the marshalled payload fields.
	Select []string `json:"-"`
}

func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Data)+len(d.Related)+4)
	for k, v := range d.Data {
		out[k] = v
	}
	if len(d.Select) > 0 {
		keep := make(map[string]struct{}, len(d.Select))
		for _, f := range d.Select {
			keep[f] = struct{}{}
		}
		for k := range out {
			if _, ok := keep[k]; !ok {
				delete(out, k)
			}
		}
	}
	out["id"] = d.ID
	if d.User != nil {
		// Population may have replaced the raw reference with the full user.
		if _, ok := d.Related["user"]; !ok {
			out["user"] = *d.User
		}
	}
	out["deleted"] = d.Deleted
	out["createdAt"] = d.CreatedAt
	out["updatedAt"] = d.UpdatedAt
	for k, v := range d.Related {
		out[k] = v
	}
	return json.Marshal(out)
}

// StringField returns the payload value under key when it is a string.
func (d *Document) StringField(key string) string {
	if v, ok := d.Data[key].(string); ok {
		return v
	}
	return ""
}

// StringsField returns the payload value under key as a string slice,
// tolerating the []any shape JSON decoding produces.
func (d *Document) StringsField(key string) []string {
	switch v := d.Data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
