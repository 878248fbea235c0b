package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func newTestStore(mock *simpleMock, now time.Time) *Store {
	s := NewStore(mock, "idempotency-table", 48*time.Hour)
	s.nowFunc = func() time.Time { return now }
	return s
}

func TestClaim_Get_MarkDone(t *testing.T) {
	mock := newSimpleMock()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(mock, now)
	ctx := context.Background()
	key := "test-key-1"

	claimed, err := s.Claim(ctx, key)
	if err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if !claimed {
		t.Fatalf("expected claimed=true")
	}

	// second claim while in progress is refused
	claimed, err = s.Claim(ctx, key)
	if err != nil {
		t.Fatalf("second Claim error: %v", err)
	}
	if claimed {
		t.Fatalf("expected claimed=false for in-progress key")
	}

	rec, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec == nil || rec.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS record, got %+v", rec)
	}
	if rec.ExpiresAt != now.Add(48*time.Hour).Unix() {
		t.Fatalf("unexpected expires_at %d", rec.ExpiresAt)
	}

	if err := s.MarkDone(ctx, key, "order-123", `{"detail":"ok"}`, 200); err != nil {
		t.Fatalf("MarkDone error: %v", err)
	}

	rec, err = s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after done error: %v", err)
	}
	if rec.Status != StatusDone {
		t.Fatalf("expected DONE, got %s", rec.Status)
	}
	if rec.ResponseBody != `{"detail":"ok"}` || rec.ResponseStatus != 200 {
		t.Fatalf("response not stored: %+v", rec)
	}
	if rec.OrderID != "order-123" {
		t.Fatalf("order id mismatch: %q", rec.OrderID)
	}

	// DONE keys cannot be claimed again
	claimed, err = s.Claim(ctx, key)
	if err != nil {
		t.Fatalf("Claim after done error: %v", err)
	}
	if claimed {
		t.Fatalf("expected claimed=false for done key")
	}
}

func TestMarkFailed_AllowsReclaim(t *testing.T) {
	mock := newSimpleMock()
	s := newTestStore(mock, time.Now())
	ctx := context.Background()

	if _, err := s.Claim(ctx, "k"); err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if err := s.MarkFailed(ctx, "k", "store returned 500"); err != nil {
		t.Fatalf("MarkFailed error: %v", err)
	}
	if n := strAttr(mock.table["k"], "note"); n != "store returned 500" {
		t.Fatalf("note not set, got %q", n)
	}

	claimed, err := s.Claim(ctx, "k")
	if err != nil {
		t.Fatalf("reclaim error: %v", err)
	}
	if !claimed {
		t.Fatalf("expected FAILED key to be claimable")
	}
	if st := strAttr(mock.table["k"], attrStatus); st != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS after reclaim, got %s", st)
	}
}

func TestClaim_ExpiredRecord(t *testing.T) {
	mock := newSimpleMock()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(mock, start)
	ctx := context.Background()

	if _, err := s.Claim(ctx, "k"); err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	s.nowFunc = func() time.Time { return start.Add(72 * time.Hour) }

	claimed, err := s.Claim(ctx, "k")
	if err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if !claimed {
		t.Fatalf("expected expired key to be claimable")
	}
}

func TestMarkDone_WithoutClaim(t *testing.T) {
	mock := newSimpleMock()
	s := newTestStore(mock, time.Now())

	err := s.MarkDone(context.Background(), "missing", "", "{}", 200)
	if !errors.Is(err, ErrNotClaimed) {
		t.Fatalf("expected ErrNotClaimed, got %v", err)
	}
}

func TestGet_Missing(t *testing.T) {
	s := newTestStore(newSimpleMock(), time.Now())
	rec, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestBackendErrorsAreWrapped(t *testing.T) {
	mock := newSimpleMock()
	mock.err = errors.New("throttled")
	s := newTestStore(mock, time.Now())
	ctx := context.Background()

	if _, err := s.Claim(ctx, "k"); err == nil {
		t.Fatalf("expected Claim error")
	}
	if _, err := s.Get(ctx, "k"); err == nil {
		t.Fatalf("expected Get error")
	}
	if err := s.MarkFailed(ctx, "k", ""); err == nil || errors.Is(err, ErrNotClaimed) {
		t.Fatalf("expected wrapped backend error, got %v", err)
	}
}

func TestRecordMarshal(t *testing.T) {
	rec := Record{
		IdempotencyKey: "k1",
		Status:         StatusInProgress,
		CreatedAt:      time.Now().Round(time.Second).UTC(),
		UpdatedAt:      time.Now().Round(time.Second).UTC(),
		ExpiresAt:      time.Now().Add(24 * time.Hour).Unix(),
	}
	m, err := attributevalue.MarshalMap(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, ok := m["expires_at"].(*types.AttributeValueMemberN); !ok {
		t.Fatalf("expires_at must be a number for TTL, got %T", m["expires_at"])
	}
	if _, ok := m["order_id"]; ok {
		t.Fatalf("empty order_id should be omitted")
	}
	var out Record
	if err := attributevalue.UnmarshalMap(m, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.IdempotencyKey != rec.IdempotencyKey || !out.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("unmarshal mismatch: %+v", out)
	}
	if out.Expired(time.Now()) {
		t.Fatalf("fresh record reported expired")
	}
}
