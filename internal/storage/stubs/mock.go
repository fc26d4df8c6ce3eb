package stubs

import (
	"context"
	"sort"
	"sync"
	"time"

	"chatlock/internal/models"
)

// MockDB is an in-memory implementation of the Storage interface for testing
// and for running without a database (USE_MOCK_DB=true). State is lost on
// restart, matching the bot's original in-memory-only behavior.
type MockDB struct {
	mu        sync.RWMutex
	locks     map[int64]models.ChatLock
	threshold int
	hasValue  bool
	events    []models.ModerationEvent
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		locks:  make(map[int64]models.ChatLock),
		events: make([]models.ModerationEvent, 0),
	}
}

// Initialize does nothing for the mock DB
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

// SaveLock records a chat as locked
func (m *MockDB) SaveLock(ctx context.Context, lock models.ChatLock) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.locks[lock.ChatID] = lock
	return nil
}

// ReleaseLock removes the lock record for a chat
func (m *MockDB) ReleaseLock(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.locks, chatID)
	return nil
}

// ActiveLocks returns all locked chats sorted by chat id
func (m *MockDB) ActiveLocks(ctx context.Context) ([]models.ChatLock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var locks []models.ChatLock
	for _, lock := range m.locks {
		locks = append(locks, lock)
	}

	sort.Slice(locks, func(i, j int) bool {
		return locks[i].ChatID < locks[j].ChatID
	})

	return locks, nil
}

// SaveRequiredReactions stores the threshold
func (m *MockDB) SaveRequiredReactions(ctx context.Context, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.threshold = count
	m.hasValue = true
	return nil
}

// RequiredReactions returns the stored threshold, ok=false when never set
func (m *MockDB) RequiredReactions(ctx context.Context) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.threshold, m.hasValue, nil
}

// RecordModerationEvent appends an audit record
func (m *MockDB) RecordModerationEvent(ctx context.Context, event models.ModerationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	m.events = append(m.events, event)
	return nil
}

// RecentModerationEvents returns the last N audit records, newest first
func (m *MockDB) RecentModerationEvents(ctx context.Context, limit int) ([]models.ModerationEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sorted := make([]models.ModerationEvent, len(m.events))
	copy(sorted, m.events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.After(sorted[j].Time)
	})

	if limit > len(sorted) {
		limit = len(sorted)
	}

	return sorted[:limit], nil
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}
