package api_test

import (
	"context"
	"sync"

	"github.com/persistorai/dashsync/client"
	"github.com/persistorai/dashsync/internal/models"
	"github.com/persistorai/dashsync/internal/query"
	"github.com/persistorai/dashsync/internal/syncer"
)

// mockSync implements api.SyncController for testing.
type mockSync struct {
	mu         sync.Mutex
	state      syncer.State
	selections []query.Selection
	setErr     error
	refreshErr error
	insertFn   func(ctx context.Context, records []models.Record) (*client.InsertResponse, error)
	refreshes  int
}

func (m *mockSync) Snapshot() syncer.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

func (m *mockSync) SetSelection(_ context.Context, sel query.Selection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.setErr != nil {
		return m.setErr
	}
	m.selections = append(m.selections, sel)

	return nil
}

func (m *mockSync) Refresh() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refreshErr != nil {
		return m.refreshErr
	}
	m.refreshes++

	return nil
}

func (m *mockSync) Insert(ctx context.Context, records []models.Record) (*client.InsertResponse, error) {
	return m.insertFn(ctx, records)
}

// mockReconciler resolves labels from a fixed table.
type mockReconciler map[string]string

func (m mockReconciler) Matches(label string) (string, bool) {
	name, ok := m[label]
	return name, ok
}
