package librarians

import (
	"context"
	"log/slog"

	"github.com/bookcourier/courier-api/internal/apperr"
	"github.com/bookcourier/courier-api/internal/events"
	"github.com/bookcourier/courier-api/internal/store"
	"github.com/bookcourier/courier-api/internal/users"
)

// RoleSetter grants roles by email.
type RoleSetter interface {
	SetRoleByEmail(ctx context.Context, email, role string) (store.UpdateResult, error)
}

// EventPublisher emits domain events.
type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// Reviewer moves applications between statuses. Approving an application
// makes its applicant a librarian.
type Reviewer struct {
	apps   *Store
	roles  RoleSetter
	events EventPublisher
	log    *slog.Logger
}

// NewReviewer wires a Reviewer. ev may be nil.
func NewReviewer(apps *Store, roles RoleSetter, ev EventPublisher) *Reviewer {
	return &Reviewer{apps: apps, roles: roles, events: ev, log: slog.Default()}
}

// SetStatus updates the application status. On approval the applicant is
// the application's email, or fallbackEmail when the application has none.
func (r *Reviewer) SetStatus(ctx context.Context, id, status, fallbackEmail string) (store.UpdateResult, error) {
	app, err := r.apps.Get(ctx, id)
	if err != nil {
		return store.UpdateResult{}, err
	}
	if app == nil {
		return store.UpdateResult{}, apperr.New(apperr.ErrNotFound, "Application not found")
	}

	res, err := r.apps.UpdateStatus(ctx, id, status)
	if err != nil {
		return res, err
	}
	if status != StatusApproved {
		return res, nil
	}

	email := app.Email
	if email == "" {
		email = fallbackEmail
	}
	if email == "" {
		r.log.WarnContext(ctx, "approved application has no applicant email", "application_id", id)
		return res, nil
	}
	roleRes, err := r.roles.SetRoleByEmail(ctx, email, users.RoleLibrarian)
	if err != nil {
		return res, err
	}
	if roleRes.MatchedCount == 0 {
		r.log.WarnContext(ctx, "approved applicant has no user record", "email", email)
	}

	if r.events != nil {
		ev := events.New(events.TypeLibrarianApproved)
		ev.Email = email
		if err := r.events.Publish(ctx, ev); err != nil {
			r.log.ErrorContext(ctx, "publish librarian.approved failed", "email", email, "error", err)
		}
	}
	return res, nil
}
