package librarians

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bookcourier/courier-api/internal/document"
	"github.com/bookcourier/courier-api/internal/store"
)

// Store encapsulates operations on the librarians table.
type Store struct {
	gw        *store.Gateway
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new librarians Store.
func NewStore(gw *store.Gateway, tableName string) *Store {
	return &Store{
		gw:        gw,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// List returns every application, or only those in status when it is set.
func (s *Store) List(ctx context.Context, status string) ([]Application, error) {
	attr := ""
	if status != "" {
		attr = "status"
	}
	items, err := s.gw.ScanEq(ctx, s.tableName, attr, status)
	if err != nil {
		return nil, fmt.Errorf("list librarian applications: %w", err)
	}
	out := make([]Application, 0, len(items))
	for _, it := range items {
		a, err := decode(it)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

// Get returns the application with id, or (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*Application, error) {
	item, err := s.gw.Get(ctx, s.tableName, store.IDAttr, id)
	if err != nil {
		return nil, fmt.Errorf("get librarian application: %w", err)
	}
	if item == nil {
		return nil, nil
	}
	return decode(item)
}

// Create files a new application. Status is always pending on creation.
func (s *Store) Create(ctx context.Context, a Application) (store.InsertResult, error) {
	a.ID = store.NewID()
	a.Status = StatusPending
	a.CreateAt = s.nowFunc().UTC()
	item, err := document.MarshalItem(a, a.Extra)
	if err != nil {
		return store.InsertResult{}, fmt.Errorf("marshal application item: %w", err)
	}
	if err := s.gw.Insert(ctx, s.tableName, store.IDAttr, item); err != nil {
		return store.InsertResult{}, fmt.Errorf("insert librarian application: %w", err)
	}
	return store.InsertResult{Acknowledged: true, InsertedID: a.ID}, nil
}

// UpdateStatus sets the status of the application with id.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) (store.UpdateResult, error) {
	res, err := s.gw.Update(ctx, s.tableName, store.IDAttr, id, map[string]any{"status": status})
	if err != nil {
		return res, fmt.Errorf("update librarian application %s: %w", id, err)
	}
	return res, nil
}

func decode(item map[string]types.AttributeValue) (*Application, error) {
	var a Application
	extra, err := document.UnmarshalItem(item, &a)
	if err != nil {
		return nil, fmt.Errorf("unmarshal librarian application: %w", err)
	}
	a.Extra = extra
	return &a, nil
}
