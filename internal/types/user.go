package types

import (
	"time"

	"github.com/google/uuid"
)

// UserAuth is the structured user row behind authentication. Every other
// entity is free-form payload; users get typed columns because login,
// password reset and role checks need them.
type UserAuth struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Password  string    `json:"-"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Company is filled on /auth/me when the user owns one.
	Company *Document `json:"company,omitempty"`
}

type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
