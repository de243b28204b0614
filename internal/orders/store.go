package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bookcourier/courier-api/internal/apperr"
	"github.com/bookcourier/courier-api/internal/document"
	"github.com/bookcourier/courier-api/internal/store"
)

// EmailIndex is the GSI on the orders table keyed by purchaser email.
const EmailIndex = "email-index"

// ErrPaid is returned when canceling an order whose payment is recorded.
var ErrPaid = apperr.New(apperr.ErrInvalidState, "Paid order cannot be canceled")

// ErrIdempotencyConflict means the idempotency key of a create was already used.
var ErrIdempotencyConflict = errors.New("idempotency key already used")

// Store encapsulates operations on the orders table.
type Store struct {
	gw        *store.Gateway
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(gw *store.Gateway, tableName string) *Store {
	return &Store{
		gw:        gw,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// prepare assigns an id, creation time and the initial lifecycle tags.
func (s *Store) prepare(o *Order) {
	if o.ID == "" {
		o.ID = store.NewID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.nowFunc().UTC()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentUnpaid
	}
}

// Create inserts a new order.
func (s *Store) Create(ctx context.Context, o Order) (store.InsertResult, error) {
	s.prepare(&o)
	item, err := document.MarshalItem(o, o.Extra)
	if err != nil {
		return store.InsertResult{}, fmt.Errorf("marshal order item: %w", err)
	}
	if err := s.gw.Insert(ctx, s.tableName, store.IDAttr, item); err != nil {
		return store.InsertResult{}, fmt.Errorf("insert order: %w", err)
	}
	return store.InsertResult{Acknowledged: true, InsertedID: o.ID}, nil
}

// CreateWithIdempotencyTransaction atomically creates:
//   - idempotency record in idempotencyTable (with ConditionExpression attribute_not_exists(idempotency_key))
//   - order record in orders table
//
// The order id is assigned before the write so the caller can store the
// response in the idempotency record. Returns ErrIdempotencyConflict when the
// key already exists.
func (s *Store) CreateWithIdempotencyTransaction(ctx context.Context, idempotencyTable string, idempotencyItem interface{}, o *Order, ttlWindow time.Duration) error {
	idempMap, err := attributevalue.MarshalMap(idempotencyItem)
	if err != nil {
		return fmt.Errorf("marshal idempotency item: %w", err)
	}
	// ensure idempotency TTL if needed: caller can include expires_at field; if not present, add it
	if _, ok := idempMap["expires_at"]; !ok && ttlWindow > 0 {
		expires := s.nowFunc().Add(ttlWindow).Unix()
		idempMap["expires_at"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expires)}
	}

	s.prepare(o)
	orderMap, err := document.MarshalItem(*o, o.Extra)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}

	input := &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           &idempotencyTable,
					Item:                idempMap,
					ConditionExpression: awsString("attribute_not_exists(idempotency_key)"),
				},
			},
			{
				Put: &types.Put{
					TableName:                &s.tableName,
					Item:                     orderMap,
					ConditionExpression:      awsString("attribute_not_exists(#pk)"),
					ExpressionAttributeNames: map[string]string{"#pk": store.IDAttr},
				},
			},
		},
	}

	if _, err := s.gw.Client().TransactWriteItems(ctx, input); err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return ErrIdempotencyConflict
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// Get fetches an order by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, id string) (*Order, error) {
	item, err := s.gw.Get(ctx, s.tableName, store.IDAttr, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if item == nil {
		return nil, nil
	}
	return decode(item)
}

// List returns all orders, or only those of email when it is set.
func (s *Store) List(ctx context.Context, email string) ([]Order, error) {
	var (
		items []map[string]types.AttributeValue
		err   error
	)
	if email != "" {
		items, err = s.gw.QueryEq(ctx, s.tableName, EmailIndex, "email", email)
	} else {
		items, err = s.gw.ScanEq(ctx, s.tableName, "", "")
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]Order, 0, len(items))
	for _, it := range items {
		o, err := decode(it)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, nil
}

// MarkPaid records a reconciled payment on the order: payment status paid,
// lifecycle complete, the tracking code and the payment time. Reapplying it
// with the same tracking code is harmless.
func (s *Store) MarkPaid(ctx context.Context, id, trackingID string) (store.UpdateResult, error) {
	res, err := s.gw.Update(ctx, s.tableName, store.IDAttr, id, map[string]any{
		"paymentStatus": PaymentPaid,
		"status":        StatusComplete,
		"trackingId":    trackingID,
		"paidAt":        s.nowFunc().UTC(),
	})
	if err != nil {
		return res, fmt.Errorf("mark order %s paid: %w", id, err)
	}
	return res, nil
}

// Cancel sets the order status to canceled and stamps canceledAt. Callers
// check ownership first. The write is guarded on the order being unpaid, so a
// payment that lands after the caller's check still wins.
func (s *Store) Cancel(ctx context.Context, id string) (store.UpdateResult, error) {
	res, err := s.gw.UpdateWhere(ctx, s.tableName, store.IDAttr, id,
		map[string]any{
			"status":     StatusCanceled,
			"canceledAt": s.nowFunc().UTC(),
		},
		map[string]any{"paymentStatus": PaymentUnpaid},
	)
	if err != nil {
		return res, fmt.Errorf("cancel order %s: %w", id, err)
	}
	if res.MatchedCount > 0 {
		return res, nil
	}

	o, err := s.Get(ctx, id)
	if err != nil {
		return res, err
	}
	if o != nil && o.IsPaid() {
		return res, ErrPaid
	}
	return res, nil
}

func decode(item map[string]types.AttributeValue) (*Order, error) {
	var o Order
	extra, err := document.UnmarshalItem(item, &o)
	if err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	o.Extra = extra
	return &o, nil
}

func awsString(s string) *string { return &s }
