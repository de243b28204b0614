package orders

import (
	"time"

	"github.com/bookcourier/courier-api/internal/document"
)

// Order statuses
const (
	StatusPending  = "pending"
	StatusCanceled = "canceled"
	StatusComplete = "complete"
)

// Payment statuses
const (
	PaymentUnpaid = "unpaid"
	PaymentPaid   = "paid"
)

// Order represents the item stored in the orders table. Fields a client sends
// beyond these are kept in Extra and returned unchanged.
type Order struct {
	ID            string     `json:"_id" dynamodbav:"_id"`
	Email         string     `json:"email" dynamodbav:"email"`
	BookID        string     `json:"bookId,omitempty" dynamodbav:"bookId,omitempty"`
	BookTitle     string     `json:"bookTitle" dynamodbav:"bookTitle"`
	Price         float64    `json:"price" dynamodbav:"price"`
	Status        string     `json:"status" dynamodbav:"status"`
	PaymentStatus string     `json:"paymentStatus" dynamodbav:"paymentStatus"`
	TrackingID    string     `json:"trackingId,omitempty" dynamodbav:"trackingId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" dynamodbav:"createdAt"`
	PaidAt        *time.Time `json:"paidAt,omitempty" dynamodbav:"paidAt,omitempty"`
	CanceledAt    *time.Time `json:"canceledAt,omitempty" dynamodbav:"canceledAt,omitempty"`

	Extra document.Fields `json:"-" dynamodbav:"-"`
}

// MarshalJSON renders the declared fields together with Extra.
func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	return document.MarshalJSON(plain(o), o.Extra)
}

// IsPaid reports whether the payment for the order has been reconciled.
func (o *Order) IsPaid() bool { return o.PaymentStatus == PaymentPaid }
