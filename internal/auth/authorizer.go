package auth

import (
	"context"

	"github.com/bookcourier/courier-api/internal/apperr"
	"github.com/bookcourier/courier-api/internal/orders"
	"github.com/bookcourier/courier-api/internal/users"
)

// UserFinder looks users up by email.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
}

// Authorizer answers role and ownership questions. It reads the user on
// every call so role changes apply immediately.
type Authorizer struct {
	users UserFinder
}

// NewAuthorizer returns an Authorizer backed by users.
func NewAuthorizer(u UserFinder) *Authorizer {
	return &Authorizer{users: u}
}

// IsAdmin reports whether the user with email has the admin role.
func (a *Authorizer) IsAdmin(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, nil
	}
	u, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return u != nil && u.Role == users.RoleAdmin, nil
}

// RequireAdmin fails with ErrForbidden unless email belongs to an admin.
func (a *Authorizer) RequireAdmin(ctx context.Context, email string) error {
	ok, err := a.IsAdmin(ctx, email)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrForbidden
	}
	return nil
}

// CanCancel checks that email may cancel o. Ownership is checked before
// payment state.
func CanCancel(o *orders.Order, email string) error {
	if o.Email != email {
		return apperr.New(apperr.ErrForbidden, "Forbidden access")
	}
	if o.IsPaid() {
		return orders.ErrPaid
	}
	return nil
}
