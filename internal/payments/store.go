package payments

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bookcourier/courier-api/internal/store"
)

const (
	// KeyAttr is the partition key of the payments table. Keying on the
	// processor transaction id makes a second receipt for it impossible.
	KeyAttr = "transactionId"
	// CustomerEmailIndex is the GSI keyed by payer email.
	CustomerEmailIndex = "customer_email-index"
)

// ErrDuplicate means a payment for the transaction id is already recorded.
var ErrDuplicate = errors.New("payment already recorded")

// Store encapsulates operations on the payments table.
type Store struct {
	gw        *store.Gateway
	tableName string
}

// NewStore creates a new payments Store.
func NewStore(gw *store.Gateway, tableName string) *Store {
	return &Store{gw: gw, tableName: tableName}
}

// FindByTransactionID returns the payment recorded for transactionID, or (nil, nil).
func (s *Store) FindByTransactionID(ctx context.Context, transactionID string) (*Payment, error) {
	item, err := s.gw.Get(ctx, s.tableName, KeyAttr, transactionID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if item == nil {
		return nil, nil
	}
	var p Payment
	if err := attributevalue.UnmarshalMap(item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal payment: %w", err)
	}
	return &p, nil
}

// Insert records p. Returns ErrDuplicate if its transaction id is taken.
func (s *Store) Insert(ctx context.Context, p Payment) (store.InsertResult, error) {
	if p.ID == "" {
		p.ID = store.NewID()
	}
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return store.InsertResult{}, fmt.Errorf("marshal payment: %w", err)
	}
	if err := s.gw.Insert(ctx, s.tableName, KeyAttr, item); err != nil {
		if errors.Is(err, store.ErrConditionFailed) {
			return store.InsertResult{}, ErrDuplicate
		}
		return store.InsertResult{}, fmt.Errorf("insert payment: %w", err)
	}
	return store.InsertResult{Acknowledged: true, InsertedID: p.ID}, nil
}

// List returns payments newest first, restricted to customer email when set.
func (s *Store) List(ctx context.Context, email string) ([]Payment, error) {
	var (
		items []map[string]types.AttributeValue
		err   error
	)
	if email != "" {
		items, err = s.gw.QueryEq(ctx, s.tableName, CustomerEmailIndex, "customer_email", email)
	} else {
		items, err = s.gw.ScanEq(ctx, s.tableName, "", "")
	}
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	out := make([]Payment, 0, len(items))
	if err := attributevalue.UnmarshalListOfMaps(items, &out); err != nil {
		return nil, fmt.Errorf("unmarshal payments: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PaidAt.After(out[j].PaidAt)
	})
	return out, nil
}
