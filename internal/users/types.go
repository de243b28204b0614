// Package users stores accounts and their roles.
package users

import (
	"time"

	"github.com/bookcourier/courier-api/internal/document"
)

// Roles
const (
	RoleUser      = "user"
	RoleLibrarian = "librarian"
	RoleAdmin     = "admin"
)

// ValidRole reports whether role is one the service grants.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleLibrarian, RoleAdmin:
		return true
	}
	return false
}

// User is an account record. Profile fields beyond these live in Extra.
type User struct {
	ID          string    `json:"_id" dynamodbav:"_id"`
	Email       string    `json:"email" dynamodbav:"email"`
	DisplayName string    `json:"displayName,omitempty" dynamodbav:"displayName,omitempty"`
	PhotoURL    string    `json:"photoURL,omitempty" dynamodbav:"photoURL,omitempty"`
	Role        string    `json:"role" dynamodbav:"role"`
	CreateAt    time.Time `json:"createAt" dynamodbav:"createAt"`

	Extra document.Fields `json:"-" dynamodbav:"-"`
}

func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	return document.MarshalJSON(plain(u), u.Extra)
}
