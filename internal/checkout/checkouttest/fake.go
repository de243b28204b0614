// Package checkouttest provides an in-memory checkout.Service for tests.
package checkouttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/bookcourier/courier-api/internal/apperr"
	"github.com/bookcourier/courier-api/internal/checkout"
)

// Fake hands out sessions registered with Put and records create requests.
type Fake struct {
	mu       sync.Mutex
	sessions map[string]*checkout.Session
	Created  []checkout.CreateSessionRequest
	Err      error
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{sessions: map[string]*checkout.Session{}}
}

// Put registers a session for RetrieveSession.
func (f *Fake) Put(s *checkout.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
}

func (f *Fake) CreateSession(ctx context.Context, req checkout.CreateSessionRequest) (*checkout.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.Created = append(f.Created, req)
	id := fmt.Sprintf("cs_test_%d", len(f.Created))
	s := &checkout.Session{
		ID:            id,
		URL:           "https://checkout.test/pay/" + id,
		Status:        "open",
		PaymentStatus: "unpaid",
		AmountTotal:   req.AmountCents,
		Currency:      req.Currency,
		CustomerEmail: req.CustomerEmail,
		Metadata: map[string]string{
			checkout.MetaOrderID:   req.OrderID,
			checkout.MetaOrderName: req.OrderName,
		},
	}
	f.sessions[id] = s
	return s, nil
}

func (f *Fake) RetrieveSession(ctx context.Context, id string) (*checkout.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("no such checkout session %s: %w", id, apperr.ErrUpstream)
	}
	cp := *s
	return &cp, nil
}
