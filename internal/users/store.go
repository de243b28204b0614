package users

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bookcourier/courier-api/internal/document"
	"github.com/bookcourier/courier-api/internal/store"
)

// EmailIndex is the GSI on the users table keyed by email.
const EmailIndex = "email-index"

// SearchLimit caps the number of users Search returns.
const SearchLimit = 5

// Store encapsulates operations on the users table.
type Store struct {
	gw        *store.Gateway
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new users Store.
func NewStore(gw *store.Gateway, tableName string) *Store {
	return &Store{
		gw:        gw,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// FindByEmail returns the user with email, or (nil, nil).
//
// The email index only resolves the id. The user itself is re-read from the
// table with a consistent read, so a role written by UpdateRole is visible to
// the next admin check even while the index lags.
func (s *Store) FindByEmail(ctx context.Context, email string) (*User, error) {
	items, err := s.gw.QueryEq(ctx, s.tableName, EmailIndex, "email", email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	hit, err := decode(items[0])
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, hit.ID)
}

// Get returns the user with id, or (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*User, error) {
	item, err := s.gw.Get(ctx, s.tableName, store.IDAttr, id)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	if item == nil {
		return nil, nil
	}
	return decode(item)
}

// RoleOf returns the role of the user with email, defaulting to RoleUser
// when the user or the role is missing.
func (s *Store) RoleOf(ctx context.Context, email string) (string, error) {
	u, err := s.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil || u.Role == "" {
		return RoleUser, nil
	}
	return u.Role, nil
}

// CreateIfAbsent inserts u with role user unless a user with the same email
// exists. created is false when one did.
func (s *Store) CreateIfAbsent(ctx context.Context, u User) (res store.InsertResult, created bool, err error) {
	existing, err := s.FindByEmail(ctx, u.Email)
	if err != nil {
		return res, false, err
	}
	if existing != nil {
		return res, false, nil
	}

	u.ID = store.NewID()
	u.Role = RoleUser
	u.CreateAt = s.nowFunc().UTC()
	item, err := document.MarshalItem(u, u.Extra)
	if err != nil {
		return res, false, fmt.Errorf("marshal user item: %w", err)
	}
	if err := s.gw.Insert(ctx, s.tableName, store.IDAttr, item); err != nil {
		return res, false, fmt.Errorf("insert user: %w", err)
	}
	return store.InsertResult{Acknowledged: true, InsertedID: u.ID}, true, nil
}

// Search returns up to SearchLimit users, newest first, whose display name or
// email contains text, ignoring case. An empty text matches everyone.
func (s *Store) Search(ctx context.Context, text string) ([]User, error) {
	items, err := s.gw.ScanEq(ctx, s.tableName, "", "")
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	needle := strings.ToLower(text)
	out := []User{}
	for _, it := range items {
		u, err := decode(it)
		if err != nil {
			return nil, err
		}
		if needle == "" ||
			strings.Contains(strings.ToLower(u.DisplayName), needle) ||
			strings.Contains(strings.ToLower(u.Email), needle) {
			out = append(out, *u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreateAt.After(out[j].CreateAt)
	})
	if len(out) > SearchLimit {
		out = out[:SearchLimit]
	}
	return out, nil
}

// UpdateRole sets the role of the user with id.
func (s *Store) UpdateRole(ctx context.Context, id, role string) (store.UpdateResult, error) {
	res, err := s.gw.Update(ctx, s.tableName, store.IDAttr, id, map[string]any{"role": role})
	if err != nil {
		return res, fmt.Errorf("update role of user %s: %w", id, err)
	}
	return res, nil
}

// SetRoleByEmail sets the role of the user with email. A missing user is
// reported as MatchedCount 0.
func (s *Store) SetRoleByEmail(ctx context.Context, email, role string) (store.UpdateResult, error) {
	u, err := s.FindByEmail(ctx, email)
	if err != nil {
		return store.UpdateResult{}, err
	}
	if u == nil {
		return store.UpdateResult{Acknowledged: true}, nil
	}
	return s.UpdateRole(ctx, u.ID, role)
}

func decode(item map[string]types.AttributeValue) (*User, error) {
	var u User
	extra, err := document.UnmarshalItem(item, &u)
	if err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	u.Extra = extra
	return &u, nil
}
