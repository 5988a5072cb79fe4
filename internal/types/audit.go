package types

import (
	"time"

	"github.com/google/uuid"
)

// AuditParent links a child mutation back to its logical owner, e.g. a Job
// back to its Company, so the audit trail can be traversed upward.
type AuditParent struct {
	ParentModel string `json:"parentModel"`
	ParentID    string `json:"parentId"`
}

// AuditRecord is one immutable entry in the append-only audit trail. Records
// are written only after the mutation they describe has committed and are
// never updated or removed.
type AuditRecord struct {
	ID        uuid.UUID    `json:"id"`
	Model     string       `json:"model"`
	ModelID   string       `json:"modelId"`
	User      *uuid.UUID   `json:"user,omitempty"`
	Action    string       `json:"action"`
	Parent    *AuditParent `json:"parent,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

const (
	AuditActionCreated       = "created"
	AuditActionUpdated       = "updated"
	AuditActionDeleted       = "deleted"
	AuditActionPhotoUploaded = "photo-uploaded"
)
