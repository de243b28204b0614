// Package librarians handles applications to become a librarian and their review.
package librarians

import (
	"time"

	"github.com/bookcourier/courier-api/internal/document"
)

// Application statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Application is a request by a user to become a librarian.
type Application struct {
	ID       string    `json:"_id" dynamodbav:"_id"`
	Email    string    `json:"email" dynamodbav:"email"`
	Name     string    `json:"name,omitempty" dynamodbav:"name,omitempty"`
	Status   string    `json:"status" dynamodbav:"status"`
	CreateAt time.Time `json:"createAt" dynamodbav:"createAt"`

	Extra document.Fields `json:"-" dynamodbav:"-"`
}

func (a Application) MarshalJSON() ([]byte, error) {
	type plain Application
	return document.MarshalJSON(plain(a), a.Extra)
}
