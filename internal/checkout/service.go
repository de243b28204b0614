// Package checkout is the boundary to the external payment processor.
package checkout

import "context"

// PaymentStatusPaid is the session payment status of a completed payment.
const PaymentStatusPaid = "paid"

// Session metadata keys.
const (
	MetaOrderID   = "orderId"
	MetaOrderName = "orderName"
)

// CreateSessionRequest describes a single-item hosted checkout.
type CreateSessionRequest struct {
	AmountCents   int64
	Currency      string
	ProductName   string
	OrderID       string
	OrderName     string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// Session is the processor's view of a payment attempt.
type Session struct {
	ID              string
	URL             string
	Status          string
	PaymentStatus   string
	AmountTotal     int64
	Currency        string
	CustomerEmail   string
	PaymentIntentID string
	Metadata        map[string]string
}

// TransactionID is the processor's identifier for the money movement. It is
// the payment intent id, or the session id when no intent was attached.
func (s *Session) TransactionID() string {
	if s.PaymentIntentID != "" {
		return s.PaymentIntentID
	}
	return s.ID
}

// IsPaid reports whether the session's payment completed.
func (s *Session) IsPaid() bool { return s.PaymentStatus == PaymentStatusPaid }

// Service creates and retrieves checkout sessions.
type Service interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
}
