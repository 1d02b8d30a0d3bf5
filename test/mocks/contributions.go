// Package mocks provides in-memory fakes shared by service tests.
package mocks

import (
	"context"
	"sync"

	"github.com/bhashahub/crowdsource/internal/models"
)

// MockContributionStore serves contributions partitioned by kind and can fail per kind.
type MockContributionStore struct {
	mu       sync.Mutex
	records  []models.Contribution
	failures map[models.ContributionKind]error
	calls    map[models.ContributionKind]int

	// ListByOwnerAndKindFunc overrides the in-memory lookup when set.
	ListByOwnerAndKindFunc func(ctx context.Context, ownerID string, kind models.ContributionKind) ([]models.Contribution, error)
}

// NewMockContributionStore creates a store holding records.
func NewMockContributionStore(records ...models.Contribution) *MockContributionStore {
	return &MockContributionStore{
		records:  records,
		failures: make(map[models.ContributionKind]error),
		calls:    make(map[models.ContributionKind]int),
	}
}

// Add appends records.
func (m *MockContributionStore) Add(records ...models.Contribution) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
}

// Fail makes every read of kind return err.
func (m *MockContributionStore) Fail(kind models.ContributionKind, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[kind] = err
}

// Calls returns how many times kind was read.
func (m *MockContributionStore) Calls(kind models.ContributionKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[kind]
}

// ListByOwnerAndKind returns ownerID's records of kind, never nil on success.
func (m *MockContributionStore) ListByOwnerAndKind(ctx context.Context, ownerID string, kind models.ContributionKind) ([]models.Contribution, error) {
	m.mu.Lock()
	m.calls[kind]++
	override := m.ListByOwnerAndKindFunc
	err, failed := m.failures[kind]
	m.mu.Unlock()

	if override != nil {
		return override(ctx, ownerID, kind)
	}
	if failed {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Contribution{}
	for _, r := range m.records {
		if r.OwnerID == ownerID && r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, nil
}
