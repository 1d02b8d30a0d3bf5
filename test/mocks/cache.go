package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/bhashahub/crowdsource/internal/cache"
)

// MockTicketStore is an in-memory upload ticket store.
// Used for testing without requiring a real Redis instance
type MockTicketStore struct {
	mu     sync.Mutex
	owners map[string]string

	// Err, when set, is returned by every call.
	Err error
}

// NewMockTicketStore creates an empty ticket store.
func NewMockTicketStore() *MockTicketStore {
	return &MockTicketStore{owners: make(map[string]string)}
}

// Issue records that ownerID may claim objectKey.
func (m *MockTicketStore) Issue(_ context.Context, objectKey, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if _, exists := m.owners[objectKey]; exists {
		return fmt.Errorf("upload ticket for %s already exists", objectKey)
	}
	m.owners[objectKey] = ownerID
	return nil
}

// Redeem consumes the ticket. Like Redis GETDEL, a ticket presented by the
// wrong owner is consumed too.
func (m *MockTicketStore) Redeem(_ context.Context, objectKey, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	owner, ok := m.owners[objectKey]
	if !ok {
		return cache.ErrTicketNotFound
	}
	delete(m.owners, objectKey)
	if owner != ownerID {
		return cache.ErrTicketOwner
	}
	return nil
}

// Has reports whether an unredeemed ticket exists for objectKey.
func (m *MockTicketStore) Has(objectKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.owners[objectKey]
	return ok
}
