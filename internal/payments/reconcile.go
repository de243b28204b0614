package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookcourier/courier-api/internal/apperr"
	"github.com/bookcourier/courier-api/internal/checkout"
	"github.com/bookcourier/courier-api/internal/events"
	"github.com/bookcourier/courier-api/internal/store"
)

// MessageAlreadyExists is returned when the transaction was reconciled before.
const MessageAlreadyExists = "already exists"

// OrderMarker records a reconciled payment on an order.
type OrderMarker interface {
	MarkPaid(ctx context.Context, id, trackingID string) (store.UpdateResult, error)
}

// CodeGenerator issues tracking codes.
type CodeGenerator interface {
	Next() (string, error)
}

// EventPublisher emits domain events.
type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// Result is the outcome of one reconciliation, returned to the client as-is.
type Result struct {
	Success       bool                `json:"success"`
	Message       string              `json:"message,omitempty"`
	TrackingID    string              `json:"trackingId,omitempty"`
	TransactionID string              `json:"transactionId,omitempty"`
	ModifyOrder   *store.UpdateResult `json:"modifyOrder,omitempty"`
	PaymentInfo   *store.InsertResult `json:"paymentInfo,omitempty"`
}

// Reconciler turns a completed checkout session into a paid order and a
// payment receipt, at most once per processor transaction.
type Reconciler struct {
	checkout checkout.Service
	orders   OrderMarker
	payments *Store
	codes    CodeGenerator
	events   EventPublisher
	log      *slog.Logger
	nowFunc  func() time.Time
}

// NewReconciler wires a Reconciler. events may be nil.
func NewReconciler(cs checkout.Service, orders OrderMarker, payments *Store, codes CodeGenerator, ev EventPublisher) *Reconciler {
	return &Reconciler{
		checkout: cs,
		orders:   orders,
		payments: payments,
		codes:    codes,
		events:   ev,
		log:      slog.Default(),
		nowFunc:  time.Now,
	}
}

// Reconcile confirms the checkout session sessionID.
//
// A transaction that already has a receipt yields the recorded tracking code
// and mutates nothing. An unpaid session yields Success=false. Otherwise the
// order is marked paid and a receipt inserted. When a concurrent call wins the
// insert, the order is re-pointed at the winner's tracking code.
func (r *Reconciler) Reconcile(ctx context.Context, sessionID string) (Result, error) {
	sess, err := r.checkout.RetrieveSession(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, apperr.ErrUpstream) {
			err = fmt.Errorf("%v: %w", err, apperr.ErrUpstream)
		}
		return Result{}, err
	}

	txID := sess.TransactionID()
	existing, err := r.payments.FindByTransactionID(ctx, txID)
	if err != nil {
		return Result{}, err
	}
	if existing != nil {
		return alreadyExists(existing), nil
	}

	if !sess.IsPaid() {
		r.log.InfoContext(ctx, "checkout session not paid",
			"session_id", sess.ID, "payment_status", sess.PaymentStatus)
		return Result{Success: false}, nil
	}

	code, err := r.codes.Next()
	if err != nil {
		return Result{}, fmt.Errorf("generate tracking code: %w", err)
	}

	orderID := sess.Metadata[checkout.MetaOrderID]
	modified, err := r.markPaid(ctx, orderID, code)
	if err != nil {
		return Result{}, err
	}

	p := Payment{
		Amount:        checkout.FromCents(sess.AmountTotal).InexactFloat64(),
		Currency:      sess.Currency,
		CustomerEmail: sess.CustomerEmail,
		OrderID:       orderID,
		OrderName:     sess.Metadata[checkout.MetaOrderName],
		TransactionID: txID,
		PaymentStatus: sess.PaymentStatus,
		Status:        sess.Status,
		PaidAt:        r.nowFunc().UTC(),
		TrackingID:    code,
	}
	inserted, err := r.payments.Insert(ctx, p)
	if errors.Is(err, ErrDuplicate) {
		return r.settleLostRace(ctx, orderID, txID)
	}
	if err != nil {
		return Result{}, err
	}

	r.log.InfoContext(ctx, "payment reconciled",
		"transaction_id", txID, "order_id", orderID, "tracking_id", code)
	r.publishPaid(ctx, sess, orderID, code)

	return Result{
		Success:       true,
		TrackingID:    code,
		TransactionID: txID,
		ModifyOrder:   &modified,
		PaymentInfo:   &inserted,
	}, nil
}

func (r *Reconciler) markPaid(ctx context.Context, orderID, code string) (store.UpdateResult, error) {
	if orderID == "" {
		r.log.WarnContext(ctx, "checkout session carries no order id")
		return store.UpdateResult{}, nil
	}
	res, err := r.orders.MarkPaid(ctx, orderID, code)
	if err != nil {
		return res, err
	}
	if res.MatchedCount == 0 {
		r.log.WarnContext(ctx, "paid order not found", "order_id", orderID)
	}
	return res, nil
}

// settleLostRace handles an insert that collided with a concurrent
// reconciliation of the same transaction.
func (r *Reconciler) settleLostRace(ctx context.Context, orderID, txID string) (Result, error) {
	winner, err := r.payments.FindByTransactionID(ctx, txID)
	if err != nil {
		return Result{}, err
	}
	if winner == nil {
		return Result{}, fmt.Errorf("payment %s vanished after duplicate insert", txID)
	}
	if _, err := r.markPaid(ctx, orderID, winner.TrackingID); err != nil {
		return Result{}, err
	}
	r.log.InfoContext(ctx, "concurrent reconciliation settled",
		"transaction_id", txID, "tracking_id", winner.TrackingID)
	return alreadyExists(winner), nil
}

func (r *Reconciler) publishPaid(ctx context.Context, sess *checkout.Session, orderID, code string) {
	if r.events == nil {
		return
	}
	ev := events.New(events.TypeOrderPaid)
	ev.OrderID = orderID
	ev.Email = sess.CustomerEmail
	ev.TrackingID = code
	ev.AmountCents = sess.AmountTotal
	ev.Currency = sess.Currency
	if err := r.events.Publish(ctx, ev); err != nil {
		r.log.ErrorContext(ctx, "publish order.paid failed", "order_id", orderID, "error", err)
	}
}

func alreadyExists(p *Payment) Result {
	return Result{
		Success:       true,
		Message:       MessageAlreadyExists,
		TransactionID: p.TransactionID,
		TrackingID:    p.TrackingID,
	}
}
