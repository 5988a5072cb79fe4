package types

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("requested item not found")
var ErrConflict = errors.New("item already exists or conflict")
var ErrUnauthenticated = errors.New("authentication required or invalid credentials")
var ErrForbidden = errors.New("action forbidden")
var ErrValidation = errors.New("validation failed")
var ErrAuditWrite = errors.New("audit record write failed")
var ErrUpstreamIO = errors.New("upstream collaborator failure")

// ValidationError aggregates every field-level failure found in a payload
// instead of stopping at the first one.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Messages, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
