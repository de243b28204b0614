// Package books stores the catalogue. Books are created by client submission
// and never modified afterwards.
package books

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bookcourier/courier-api/internal/document"
	"github.com/bookcourier/courier-api/internal/store"
)

// Book is a catalogue entry. Only the fields below are interpreted; anything
// else the client submitted is kept in Extra.
type Book struct {
	ID     string  `json:"_id" dynamodbav:"_id"`
	Title  string  `json:"title,omitempty" dynamodbav:"title,omitempty"`
	Author string  `json:"author,omitempty" dynamodbav:"author,omitempty"`
	Price  float64 `json:"price,omitempty" dynamodbav:"price,omitempty"`

	Extra document.Fields `json:"-" dynamodbav:"-"`
}

func (b Book) MarshalJSON() ([]byte, error) {
	type plain Book
	return document.MarshalJSON(plain(b), b.Extra)
}

// Store encapsulates operations on the books table.
type Store struct {
	gw        *store.Gateway
	tableName string
}

// NewStore creates a new books Store.
func NewStore(gw *store.Gateway, tableName string) *Store {
	return &Store{gw: gw, tableName: tableName}
}

// List returns every book.
func (s *Store) List(ctx context.Context) ([]Book, error) {
	items, err := s.gw.ScanEq(ctx, s.tableName, "", "")
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	out := make([]Book, 0, len(items))
	for _, it := range items {
		b, err := decode(it)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}

// Get returns the book with id, or (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*Book, error) {
	item, err := s.gw.Get(ctx, s.tableName, store.IDAttr, id)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	if item == nil {
		return nil, nil
	}
	return decode(item)
}

// Create inserts b under a fresh id.
func (s *Store) Create(ctx context.Context, b Book) (store.InsertResult, error) {
	b.ID = store.NewID()
	item, err := document.MarshalItem(b, b.Extra)
	if err != nil {
		return store.InsertResult{}, fmt.Errorf("marshal book item: %w", err)
	}
	if err := s.gw.Insert(ctx, s.tableName, store.IDAttr, item); err != nil {
		return store.InsertResult{}, fmt.Errorf("insert book: %w", err)
	}
	return store.InsertResult{Acknowledged: true, InsertedID: b.ID}, nil
}

func decode(item map[string]types.AttributeValue) (*Book, error) {
	var b Book
	extra, err := document.UnmarshalItem(item, &b)
	if err != nil {
		return nil, fmt.Errorf("unmarshal book: %w", err)
	}
	b.Extra = extra
	return &b, nil
}
