// Package events defines the domain events the API emits for downstream
// consumers (the metrics worker, courier dispatch).
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeOrderPaid         = "order.paid"
	TypeOrderCanceled     = "order.canceled"
	TypeLibrarianApproved = "librarian.approved"
)

// Event is the JSON payload sent API -> SQS -> worker.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	OrderID     string    `json:"orderId,omitempty"`
	Email       string    `json:"email,omitempty"`
	TrackingID  string    `json:"trackingId,omitempty"`
	AmountCents int64     `json:"amountCents,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// New stamps an event of the given type with an id and the current time.
func New(eventType string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
	}
}
