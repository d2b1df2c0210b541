// ABOUTME: Mock Sessions implementation for testing
// ABOUTME: Allows tests to run without a database while keeping the store's merge and soft-delete rules

package store

import (
	"context"
	"sync"
)

// mockRow mirrors a row of the session table
type mockRow struct {
	uid     string
	meta    string
	data    string
	deleted bool
}

// MockStore is an in-memory Sessions implementation for testing.
// Rows are kept serialized so stored-document edge cases behave like the SQL store.
type MockStore struct {
	mu   sync.RWMutex
	rows []*mockRow // insertion order, like a heap table without ORDER BY
	err  error      // returned by every operation when set
}

var _ Sessions = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// Add appends a new row. Like the SQL store, there is no existence check.
func (m *MockStore) Add(ctx context.Context, uid string, meta, data Document) (Document, Document, error) {
	if err := m.injectedErr(); err != nil {
		return nil, nil, err
	}

	metaText, err := encodeDocument(meta)
	if err != nil {
		return nil, nil, err
	}
	dataText, err := encodeDocument(data)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows = append(m.rows, &mockRow{uid: uid, meta: metaText, data: dataText})
	return meta, data, nil
}

// UIDs lists live uids in insertion order.
func (m *MockStore) UIDs(ctx context.Context) ([]string, error) {
	if err := m.injectedErr(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	uids := make([]string, 0, len(m.rows))
	for _, r := range m.rows {
		if !r.deleted {
			uids = append(uids, r.uid)
		}
	}
	return uids, nil
}

// Set merges the patches into the first live row for uid.
// The SQL update has no deleted_at predicate, so every row with the uid is rewritten.
func (m *MockStore) Set(ctx context.Context, uid string, metaPatch, dataPatch Document) error {
	if err := m.injectedErr(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.liveLocked(uid)
	if live == nil {
		return ErrNotFound
	}

	metaText, err := encodeDocument(Merge(ParseOrDefault(live.meta), metaPatch))
	if err != nil {
		return err
	}
	dataText, err := encodeDocument(Merge(ParseOrDefault(live.data), dataPatch))
	if err != nil {
		return err
	}

	for _, r := range m.rows {
		if r.uid == uid {
			r.meta = metaText
			r.data = dataText
		}
	}
	return nil
}

// Get returns the documents of the first live row for uid.
func (m *MockStore) Get(ctx context.Context, uid string) (Document, Document, error) {
	if err := m.injectedErr(); err != nil {
		return nil, nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	live := m.liveLocked(uid)
	if live == nil {
		return nil, nil, ErrNotFound
	}
	return ParseOrDefault(live.meta), ParseOrDefault(live.data), nil
}

// Remove soft-deletes every live row for uid.
func (m *MockStore) Remove(ctx context.Context, uid string) error {
	if err := m.injectedErr(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.rows {
		if r.uid == uid && !r.deleted {
			r.meta = ""
			r.data = ""
			r.deleted = true
		}
	}
	return nil
}

// SetErr makes every operation fail with err until it is reset with nil.
// It is safe to call while other goroutines use the store.
func (m *MockStore) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockStore) injectedErr() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// PutRaw appends a live row with the given stored text, bypassing encoding.
// Tests use it to seed malformed documents.
func (m *MockStore) PutRaw(uid, meta, data string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows = append(m.rows, &mockRow{uid: uid, meta: meta, data: data})
}

// liveLocked returns the first live row for uid. Must be called with mu held.
func (m *MockStore) liveLocked(uid string) *mockRow {
	for _, r := range m.rows {
		if r.uid == uid && !r.deleted {
			return r
		}
	}
	return nil
}
