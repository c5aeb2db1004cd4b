package purchasing

import (
	"context"
	"sync"
	"time"

	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockPurchaseOrderRepository is a mock implementation of PurchaseOrderRepository
type MockPurchaseOrderRepository struct {
	mock.Mock
}

func (m *MockPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.PurchaseOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchasing.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*purchasing.PurchaseOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchasing.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindAll(ctx context.Context, filter purchasing.OrderFilter) ([]purchasing.PurchaseOrder, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]purchasing.PurchaseOrder), args.Get(1).(int64), args.Error(2)
}

func (m *MockPurchaseOrderRepository) Create(ctx context.Context, order *purchasing.PurchaseOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) SaveTransition(ctx context.Context, order *purchasing.PurchaseOrder, expectedVersion int, claimReceipt bool) (bool, error) {
	args := m.Called(ctx, order, expectedVersion, claimReceipt)
	return args.Bool(0), args.Error(1)
}

// MockSupplierReader is a mock implementation of SupplierReader
type MockSupplierReader struct {
	mock.Mock
}

func (m *MockSupplierReader) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.Supplier, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchasing.Supplier), args.Error(1)
}

// MockVariantRepository is a mock implementation of VariantRepository
type MockVariantRepository struct {
	mock.Mock
}

func (m *MockVariantRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.ProductVariant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchasing.ProductVariant), args.Error(1)
}

func (m *MockVariantRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]purchasing.ProductVariant, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]purchasing.ProductVariant), args.Error(1)
}

func (m *MockVariantRepository) IncrementStock(ctx context.Context, id uuid.UUID, amount int) (int, error) {
	args := m.Called(ctx, id, amount)
	return args.Int(0), args.Error(1)
}

// MockStockMovementRepository is a mock implementation of StockMovementRepository
type MockStockMovementRepository struct {
	mock.Mock
}

func (m *MockStockMovementRepository) Create(ctx context.Context, movement *purchasing.StockMovement) error {
	args := m.Called(ctx, movement)
	return args.Error(0)
}

func (m *MockStockMovementRepository) FindBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) ([]purchasing.StockMovement, error) {
	args := m.Called(ctx, sourceType, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]purchasing.StockMovement), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type mockTransactionalRepositories struct {
	orders    *MockPurchaseOrderRepository
	variants  *MockVariantRepository
	movements *MockStockMovementRepository
}

func (r *mockTransactionalRepositories) Orders() purchasing.PurchaseOrderRepository    { return r.orders }
func (r *mockTransactionalRepositories) Variants() purchasing.VariantRepository        { return r.variants }
func (r *mockTransactionalRepositories) Movements() purchasing.StockMovementRepository { return r.movements }

// mockTransactionScope runs fn directly; rollback is observed through the
// returned error
type mockTransactionScope struct {
	repos *mockTransactionalRepositories
	calls int
}

func (s *mockTransactionScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	s.calls++
	return fn(s.repos)
}

type fakeDraftStore struct {
	mu     sync.Mutex
	drafts map[uuid.UUID]purchasing.Draft
}

func newFakeDraftStore() *fakeDraftStore {
	return &fakeDraftStore{drafts: make(map[uuid.UUID]purchasing.Draft)}
}

func (s *fakeDraftStore) Get(_ context.Context, id uuid.UUID) (*purchasing.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, shared.NewNotFoundError("draft", id)
	}
	return &d, nil
}

func (s *fakeDraftStore) Save(_ context.Context, draft purchasing.Draft, expectedRevision int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.drafts[draft.ID]
	if (!ok && expectedRevision != 0) || (ok && current.Revision != expectedRevision) {
		return shared.ErrConcurrencyConflict
	}
	s.drafts[draft.ID] = draft
	return nil
}

func (s *fakeDraftStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
	return nil
}

type fakeIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string][]byte
	claimed map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{entries: make(map[string][]byte), claimed: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) Reserve(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed[key] {
		return false, nil
	}
	s.claimed[key] = true
	return true, nil
}

func (s *fakeIdempotencyStore) Complete(_ context.Context, key string, payload []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = payload
	return nil
}

func (s *fakeIdempotencyStore) Lookup(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[key], s.claimed[key], nil
}

func (s *fakeIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claimed, key)
	delete(s.entries, key)
	return nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }

type recordedTransition struct {
	outcome, from, to string
}

type recordingMetrics struct {
	mu          sync.Mutex
	transitions []recordedTransition
	units       int64
	replays     map[bool]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{replays: make(map[bool]int)}
}

func (m *recordingMetrics) RecordTransition(_ context.Context, outcome, from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, recordedTransition{outcome: outcome, from: from, to: to})
}

func (m *recordingMetrics) RecordStockReceived(_ context.Context, units int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units += units
}

func (m *recordingMetrics) RecordIdempotentReplay(_ context.Context, served bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replays[served]++
}
