package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bookcourier/courier-api/internal/store/dynamotest"
)

const table = "idempotency-table"

func newTestStore() (*Store, *dynamotest.Fake) {
	fake := dynamotest.New()
	fake.CreateTable(table, "idempotency_key")
	return NewStore(fake, table, 48*time.Hour), fake
}

func TestCreateIfNotExists_Get_MarkDone_MarkFailed(t *testing.T) {
	s, fake := newTestStore()

	ctx := context.Background()
	key := ScopedKey(ScopeCheckoutSession, "test-key-1")
	orderID := "order-123"

	created, err := s.CreateIfNotExists(ctx, key, orderID)
	if err != nil {
		t.Fatalf("CreateIfNotExists error: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true")
	}

	// second create should return created=false (exists)
	created2, err := s.CreateIfNotExists(ctx, key, orderID)
	if err != nil {
		t.Fatalf("second CreateIfNotExists error: %v", err)
	}
	if created2 {
		t.Fatalf("expected created=false on duplicate create")
	}

	rec, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec == nil {
		t.Fatalf("expected record, got nil")
	}
	if rec.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", rec.Status)
	}
	if rec.Ref != orderID {
		t.Fatalf("ref mismatch")
	}

	if err := s.MarkDone(ctx, key, `{"url":"https://checkout.example/s"}`, 200); err != nil {
		t.Fatalf("MarkDone error: %v", err)
	}
	item := fake.Item(table, key)
	if st, ok := item["status"].(*types.AttributeValueMemberS); !ok || st.Value != StatusDone {
		t.Fatalf("status not updated to DONE, got %+v", item["status"])
	}
	done, _ := s.Get(ctx, key)
	if done.ResponseStatus != 200 || done.ResponseBody != `{"url":"https://checkout.example/s"}` {
		t.Fatalf("response not stored: %+v", done)
	}

	// MarkFailed (should overwrite status)
	if err := s.MarkFailed(ctx, key, "failed-reason"); err != nil {
		t.Fatalf("MarkFailed error: %v", err)
	}
	item2 := fake.Item(table, key)
	if st, ok := item2["status"].(*types.AttributeValueMemberS); !ok || st.Value != StatusFailed {
		t.Fatalf("status not updated to FAILED, got %+v", item2["status"])
	}
	if n, ok := item2["note"].(*types.AttributeValueMemberS); !ok || n.Value != "failed-reason" {
		t.Fatalf("note not set, got %+v", item2["note"])
	}
}

func TestGet_Missing(t *testing.T) {
	s, _ := newTestStore()
	rec, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestDoneRecord_Marshals(t *testing.T) {
	s, _ := newTestStore()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.nowFunc = func() time.Time { return fixed }

	rec := s.DoneRecord(ScopedKey(ScopeCreateOrder, "k1"), "o1", `{"insertedId":"o1"}`, 201)
	if rec.ExpiresAt != fixed.Add(48*time.Hour).Unix() {
		t.Fatalf("unexpected expiry %d", rec.ExpiresAt)
	}

	m, err := attributevalue.MarshalMap(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out IdempotencyRecord
	if err := attributevalue.UnmarshalMap(m, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.IdempotencyKey != "order:k1" || out.Status != StatusDone {
		t.Fatalf("unmarshal mismatch: %+v", out)
	}
}
