package tests

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"homelet/internal/domain"
	"homelet/internal/gateway"
	"homelet/internal/redis"
	"homelet/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TRANSACTION REPOSITORY
// ──────────────────────────────────────────────

// MockTransactionRepository is an in-memory implementation of
// repository.TransactionRepository with the same conditional-transition
// semantics as the PostgreSQL implementation.
type MockTransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction // keyed by reference

	// Counters for verification
	CreateCallCount        int32
	MarkCompletedCallCount int32

	// Error injection
	CreateError        error
	MarkCompletedError error
}

// NewMockTransactionRepository creates a new mock transaction repository.
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		transactions: make(map[string]*domain.Transaction),
	}
}

// AddTransaction seeds a transaction into the repository.
func (m *MockTransactionRepository) AddTransaction(tx *domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[tx.Reference] = tx
}

// GetTransaction returns a transaction for test assertions.
func (m *MockTransactionRepository) GetTransaction(reference string) *domain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactions[reference]
}

// Count returns the number of stored transactions.
func (m *MockTransactionRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transactions)
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.transactions[tx.Reference]; exists {
		return repository.ErrDuplicateReference
	}
	now := time.Now()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	copy := *tx
	m.transactions[tx.Reference] = &copy
	return nil
}

func (m *MockTransactionRepository) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.transactions[reference]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *tx
	return &copy, nil
}

func (m *MockTransactionRepository) GetByReferenceForUser(ctx context.Context, reference, userID string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.transactions[reference]
	if !ok || tx.UserID != userID {
		return nil, repository.ErrNotFound
	}
	copy := *tx
	return &copy, nil
}

func (m *MockTransactionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Transaction
	for _, tx := range m.transactions {
		if tx.UserID == userID {
			copy := *tx
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockTransactionRepository) UpdateProviderData(ctx context.Context, id string, data json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.transactions {
		if tx.ID == id {
			tx.ProviderData = data
			tx.UpdatedAt = time.Now()
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *MockTransactionRepository) MarkCompleted(ctx context.Context, reference string, status domain.TransactionStatus, providerData json.RawMessage) (bool, error) {
	atomic.AddInt32(&m.MarkCompletedCallCount, 1)
	if m.MarkCompletedError != nil {
		return false, m.MarkCompletedError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[reference]
	if !ok {
		return false, nil
	}
	// Same condition as the SQL: only pending or abandoned rows move.
	if tx.Status != domain.TransactionPending && tx.Status != domain.TransactionAbandoned {
		return false, nil
	}
	tx.Status = status
	if providerData != nil {
		tx.ProviderData = providerData
	}
	now := time.Now()
	tx.CompletedAt = &now
	tx.UpdatedAt = now
	return true, nil
}

func (m *MockTransactionRepository) MarkAbandoned(ctx context.Context, reference string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[reference]
	if !ok || tx.Status != domain.TransactionPending {
		return false, nil
	}
	tx.Status = domain.TransactionAbandoned
	tx.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockTransactionRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Transaction
	for _, tx := range m.transactions {
		if tx.Status == domain.TransactionPending && tx.CreatedAt.Before(cutoff) {
			copy := *tx
			result = append(result, &copy)
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK USER REPOSITORY
// ──────────────────────────────────────────────

// MockUserRepository is an in-memory implementation of repository.UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

// NewMockUserRepository creates a new mock user repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

// AddUser seeds a user.
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *user
	return &copy, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		copy := *u
		result = append(result, &copy)
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK LISTING REPOSITORY
// ──────────────────────────────────────────────

// MockListingRepository is an in-memory implementation of repository.ListingRepository.
type MockListingRepository struct {
	mu         sync.RWMutex
	properties map[string]*domain.Property
	rooms      map[string]*domain.Room
}

// NewMockListingRepository creates a new mock listing repository.
func NewMockListingRepository() *MockListingRepository {
	return &MockListingRepository{
		properties: make(map[string]*domain.Property),
		rooms:      make(map[string]*domain.Room),
	}
}

// AddProperty seeds a property.
func (m *MockListingRepository) AddProperty(p *domain.Property) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[p.ID] = p
}

// AddRoom seeds a room.
func (m *MockListingRepository) AddRoom(r *domain.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.ID] = r
}

func (m *MockListingRepository) GetPropertyByID(ctx context.Context, id string) (*domain.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.properties[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

func (m *MockListingRepository) GetRoomByID(ctx context.Context, id string) (*domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *r
	return &copy, nil
}

func (m *MockListingRepository) ListProperties(ctx context.Context) ([]*domain.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Property, 0, len(m.properties))
	for _, p := range m.properties {
		copy := *p
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockListingRepository) ListRoomsByProperty(ctx context.Context, propertyID string) ([]*domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Room
	for _, r := range m.rooms {
		if r.PropertyID == propertyID {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK GATEWAY CLIENT
// ──────────────────────────────────────────────

// validTestSignature is the signature the mock gateway accepts.
const validTestSignature = "valid-signature"

// MockGateway is a mock implementation of gateway.Client.
type MockGateway struct {
	mu sync.Mutex

	InitializeCallCount int32
	VerifyCallCount     int32

	LastInitializeRequest gateway.InitializeRequest

	// Error/result injection
	InitializeError    error
	InitializeResponse *gateway.InitializeResponse
	VerifyError        error
	VerifyResult       *gateway.VerifyResult
}

// NewMockGateway creates a new mock gateway client.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) Initialize(ctx context.Context, req gateway.InitializeRequest) (*gateway.InitializeResponse, error) {
	atomic.AddInt32(&m.InitializeCallCount, 1)
	m.mu.Lock()
	m.LastInitializeRequest = req
	m.mu.Unlock()

	if m.InitializeError != nil {
		return nil, m.InitializeError
	}
	if m.InitializeResponse != nil {
		return m.InitializeResponse, nil
	}
	return &gateway.InitializeResponse{
		AuthorizationURL: "https://checkout.example/" + req.Reference,
		AccessCode:       "ACCESS_" + req.Reference,
		Reference:        req.Reference,
		Raw:              json.RawMessage(`{"status":true}`),
	}, nil
}

func (m *MockGateway) Verify(ctx context.Context, reference string) (*gateway.VerifyResult, error) {
	atomic.AddInt32(&m.VerifyCallCount, 1)
	if m.VerifyError != nil {
		return nil, m.VerifyError
	}
	if m.VerifyResult != nil {
		return m.VerifyResult, nil
	}
	return &gateway.VerifyResult{Success: false, Raw: json.RawMessage(`{"data":{"status":"ongoing"}}`)}, nil
}

// VerifySignature accepts only validTestSignature.
func (m *MockGateway) VerifySignature(body []byte, signature string) bool {
	return signature == validTestSignature
}

// LastRequest returns the last initialize request for assertions.
func (m *MockGateway) LastRequest() gateway.InitializeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastInitializeRequest
}

// ──────────────────────────────────────────────
// MOCK NOTIFICATION SINKS
// ──────────────────────────────────────────────

// PublishedEvent records one call to the publisher.
type PublishedEvent struct {
	UserID string
	Event  string
	Data   map[string]any
}

// MockPublisher records published real-time events.
type MockPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent

	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, userID, event string, data map[string]any) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{UserID: userID, Event: event, Data: data})
	return nil
}

// Events returns a snapshot of published events.
func (m *MockPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedEvent(nil), m.events...)
}

// MockEmailQueue is an in-memory email job queue.
type MockEmailQueue struct {
	mu   sync.Mutex
	jobs []redis.EmailJob

	EnqueueError error
}

// NewMockEmailQueue creates a new mock email queue.
func NewMockEmailQueue() *MockEmailQueue {
	return &MockEmailQueue{}
}

func (m *MockEmailQueue) Enqueue(ctx context.Context, job redis.EmailJob) error {
	if m.EnqueueError != nil {
		return m.EnqueueError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *MockEmailQueue) Dequeue(ctx context.Context, timeout time.Duration) (*redis.EmailJob, error) {
	m.mu.Lock()
	if len(m.jobs) == 0 {
		m.mu.Unlock()
		// Simulate the blocking pop without spinning the worker loop.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
		return nil, redis.ErrQueueEmpty
	}
	job := m.jobs[0]
	m.jobs = m.jobs[1:]
	m.mu.Unlock()
	return &job, nil
}

// Jobs returns a snapshot of queued jobs.
func (m *MockEmailQueue) Jobs() []redis.EmailJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]redis.EmailJob(nil), m.jobs...)
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is an in-memory implementation of redis.LockStoreInterface.
type MockLockStore struct {
	mu         sync.Mutex
	sweepHeld  bool
	references map[string]bool

	// SweepLockDenied forces AcquireSweepLock to fail, simulating another
	// instance holding the lock.
	SweepLockDenied bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{references: make(map[string]bool)}
}

func (m *MockLockStore) AcquireSweepLock(ctx context.Context, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SweepLockDenied || m.sweepHeld {
		return false, nil
	}
	m.sweepHeld = true
	return true, nil
}

func (m *MockLockStore) ReleaseSweepLock(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepHeld = false
	return nil
}

func (m *MockLockStore) AcquireReferenceLock(ctx context.Context, reference string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.references[reference] {
		return false, nil
	}
	m.references[reference] = true
	return true, nil
}

func (m *MockLockStore) ReleaseReferenceLock(ctx context.Context, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.references, reference)
	return nil
}

// ──────────────────────────────────────────────
// MOCK MAILER
// ──────────────────────────────────────────────

// SentEmail records one delivered message.
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// MockMailer is a Mailer that can fail a configured number of times.
type MockMailer struct {
	mu   sync.Mutex
	sent []SentEmail

	// FailFirst makes the first N sends fail.
	FailFirst int
	attempts  int32

	SendError error
}

// NewMockMailer creates a new mock mailer.
func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

func (m *MockMailer) Send(ctx context.Context, to, subject, body string) error {
	attempt := atomic.AddInt32(&m.attempts, 1)
	if m.SendError != nil {
		return m.SendError
	}
	if int(attempt) <= m.FailFirst {
		return context.DeadlineExceeded
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentEmail{To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns a snapshot of delivered messages.
func (m *MockMailer) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.sent...)
}

// Attempts returns the number of send attempts.
func (m *MockMailer) Attempts() int {
	return int(atomic.LoadInt32(&m.attempts))
}
