package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-order-gateway/internal/attr"
	"github.com/imrishuroy/go-order-gateway/internal/idempotency"
	"github.com/imrishuroy/go-order-gateway/internal/operations"
	"github.com/imrishuroy/go-order-gateway/internal/orders"
)

const validToken = "good-token"

type fakeValidator struct {
	mu    sync.Mutex
	calls int
}

func (v *fakeValidator) Validate(ctx context.Context, token string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	return token == validToken
}

type memoryStore struct {
	mu    sync.Mutex
	items map[string]attr.Map
}

func newMemoryStore() *memoryStore {
	return &memoryStore{items: map[string]attr.Map{}}
}

func (s *memoryStore) Get(ctx context.Context, userID, orderID string) (attr.Map, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[userID+"#"+orderID], http.StatusOK, nil
}

func (s *memoryStore) Put(ctx context.Context, item attr.Map) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, _ := item.GetString(orders.AttrUserID)
	orderID, _ := item.GetString(orders.AttrOrderID)
	s.items[userID+"#"+orderID] = item
	return http.StatusOK, nil
}

func (s *memoryStore) Delete(ctx context.Context, userID, orderID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, userID+"#"+orderID)
	return http.StatusOK, nil
}

// panicOps blows up on every call.
type panicOps struct{}

func (panicOps) Create(ctx context.Context, req orders.OrderRequest) orders.OrderResponse {
	panic("boom")
}
func (panicOps) Read(ctx context.Context, userID, orderID string) orders.OrderResponse {
	panic("boom")
}
func (panicOps) Update(ctx context.Context, req orders.OrderRequest) orders.OrderResponse {
	panic("boom")
}
func (panicOps) Delete(ctx context.Context, userID, orderID string) orders.OrderResponse {
	panic("boom")
}

type memoryIdempotency struct {
	mu      sync.Mutex
	records map[string]*idempotency.Record
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{records: map[string]*idempotency.Record{}}
}

func (m *memoryIdempotency) Claim(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[key]; ok && rec.Status != idempotency.StatusFailed {
		return false, nil
	}
	m.records[key] = &idempotency.Record{IdempotencyKey: key, Status: idempotency.StatusInProgress}
	return true, nil
}

func (m *memoryIdempotency) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memoryIdempotency) MarkDone(ctx context.Context, key, orderID, responseBody string, responseStatus int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.records[key]
	rec.Status = idempotency.StatusDone
	rec.OrderID = orderID
	rec.ResponseBody = responseBody
	rec.ResponseStatus = responseStatus
	return nil
}

func (m *memoryIdempotency) MarkFailed(ctx context.Context, key, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.records[key]
	rec.Status = idempotency.StatusFailed
	rec.Note = note
	return nil
}

type recordedRequest struct {
	operation string
	status    int
}

type fakeMetrics struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeMetrics) RecordRequest(ctx context.Context, operation string, status int, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{operation: operation, status: status})
	return nil
}

type testEnv struct {
	dispatcher *Dispatcher
	validator  *fakeValidator
	store      *memoryStore
	idem       *memoryIdempotency
	metrics    *fakeMetrics
}

func newTestEnv() *testEnv {
	env := &testEnv{
		validator: &fakeValidator{},
		store:     newMemoryStore(),
		idem:      newMemoryIdempotency(),
		metrics:   &fakeMetrics{},
	}
	env.dispatcher = NewDispatcher(HandlerConfig{
		Validator:   env.validator,
		Operations:  operations.NewService(env.store, nil, zap.NewNop()),
		Idempotency: env.idem,
		Metrics:     env.metrics,
		Logger:      zap.NewNop(),
	})
	return env
}
