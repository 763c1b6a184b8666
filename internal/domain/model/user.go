package model

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles accepted at the API boundary.
// Storage keeps the is_seller flag; the enum exists so role strings are
// validated once, at the edge.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// ParseRole validates a role string coming from a request or a token claim.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleBuyer, RoleSeller:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// RoleFromSellerFlag maps the stored boolean back to a Role.
func RoleFromSellerFlag(isSeller bool) Role {
	if isSeller {
		return RoleSeller
	}
	return RoleBuyer
}

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Not exposed
	IsSeller       bool      `json:"is_seller"`
	CreatedAt      time.Time `json:"created_at"`
}

func (u *User) Role() Role {
	return RoleFromSellerFlag(u.IsSeller)
}

// Identity is the authenticated caller decoded from a verified token.
// Handlers pass it explicitly into every service operation instead of
// letting services read it ambiently from the request.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}
