package types

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleRecruiter = "recruiter"
	RoleCompany   = "company"
	RolePublisher = "publisher"
	RoleAdmin     = "admin"
)

// ValidRoles is the closed set a user may register with. Admin is excluded
// on purpose; admins are promoted out of band.
var ValidRoles = []string{RoleUser, RoleRecruiter, RoleCompany, RolePublisher}

// Principal is the acting identity resolved by the auth middleware.
// Anonymous requests carry a zero ID and the "user" role.
type Principal struct {
	ID   uuid.UUID `json:"id"`
	Role string    `json:"role"`
}

func (p Principal) IsAnonymous() bool { return p.ID == uuid.Nil }

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
