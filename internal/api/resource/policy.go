package resource

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

// Authorize decides whether a principal may act on a resource owned by
// ownerID. Access is granted to the owner, to admins, and to principals
// whose role appears in roles. The roles leg exists for creation, where no
// resource exists yet to own; mutations on an existing resource pass nil
// roles so only the owner or an admin gets through. It is pure and must
// run only after the target resource is known to exist.
func Authorize(principal types.Principal, ownerID *uuid.UUID, roles []string) error {
	if principal.IsAdmin() {
		return nil
	}
	if ownerID != nil && !principal.IsAnonymous() && *ownerID == principal.ID {
		return nil
	}
	if slices.Contains(roles, principal.Role) {
		return nil
	}
	resource := "none"
	if ownerID != nil {
		resource = ownerID.String()
	}
	return fmt.Errorf("principal %s is not authorized (resource owner %s): %w",
		principal.ID, resource, types.ErrForbidden)
}
