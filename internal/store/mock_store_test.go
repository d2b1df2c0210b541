// ABOUTME: Unit tests for MockStore to ensure behavior matches SessionStore
// ABOUTME: Focuses on soft delete, merge and duplicate-uid edge cases of the in-memory implementation

package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_RoundTrip(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	_, _, err := m.Add(ctx, "AAA1", Document{}, Document{"user_id": 1})
	require.NoError(t, err)

	meta, data, err := m.Get(ctx, "AAA1")
	require.NoError(t, err)
	assert.Equal(t, Document{}, meta)
	assert.Equal(t, Document{"user_id": json.Number("1")}, data)
}

func TestMockStore_SetMerges(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	_, _, err := m.Add(ctx, "ABC1", Document{"b": 2}, Document{"a": 1})
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "ABC1", Document{"y": 4}, Document{"z": 3}))

	meta, data, err := m.Get(ctx, "ABC1")
	require.NoError(t, err)
	assert.Equal(t, Document{"b": json.Number("2"), "y": json.Number("4")}, meta)
	assert.Equal(t, Document{"a": json.Number("1"), "z": json.Number("3")}, data)
}

func TestMockStore_SetNotFound(t *testing.T) {
	m := NewMockStore()

	err := m.Set(context.Background(), "missing", Document{"a": 1}, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	uids, err := m.UIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, uids, "Set must not create a session")
}

func TestMockStore_RemoveHidesSession(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	_, _, err := m.Add(ctx, "A", nil, nil)
	require.NoError(t, err)
	_, _, err = m.Add(ctx, "B", nil, nil)
	require.NoError(t, err)

	require.NoError(t, m.Remove(ctx, "A"))
	require.NoError(t, m.Remove(ctx, "A"), "second remove should succeed")
	require.NoError(t, m.Remove(ctx, "never-added"))

	uids, err := m.UIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, uids)

	_, _, err = m.Get(ctx, "A")
	assert.ErrorIs(t, err, ErrNotFound)

	err = m.Set(ctx, "A", Document{"x": 1}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMockStore_AddAfterRemove(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	_, _, err := m.Add(ctx, "A", Document{"v": 1}, nil)
	require.NoError(t, err)
	require.NoError(t, m.Remove(ctx, "A"))

	_, _, err = m.Add(ctx, "A", Document{"v": 2}, nil)
	require.NoError(t, err)

	meta, _, err := m.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, Document{"v": json.Number("2")}, meta)
}

func TestMockStore_MalformedRawDocuments(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	m.PutRaw("R", "not json", `{"a":1}`)

	meta, data, err := m.Get(ctx, "R")
	require.NoError(t, err)
	assert.Equal(t, Document{}, meta)
	assert.Equal(t, Document{"a": json.Number("1")}, data)

	require.NoError(t, m.Set(ctx, "R", Document{"y": 4}, nil))
	meta, _, err = m.Get(ctx, "R")
	require.NoError(t, err)
	assert.Equal(t, Document{"y": json.Number("4")}, meta)
}

func TestMockStore_Err(t *testing.T) {
	m := NewMockStore()
	m.SetErr(errors.New("boom"))
	ctx := context.Background()

	_, _, err := m.Add(ctx, "A", nil, nil)
	assert.EqualError(t, err, "boom")
	_, err = m.UIDs(ctx)
	assert.EqualError(t, err, "boom")
	assert.EqualError(t, m.Set(ctx, "A", nil, nil), "boom")
	_, _, err = m.Get(ctx, "A")
	assert.EqualError(t, err, "boom")
	assert.EqualError(t, m.Remove(ctx, "A"), "boom")
}

func TestMockStore_SetErrConcurrentWithOperations(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	_, _, err := m.Add(ctx, "A", nil, nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if i%2 == 0 {
				m.SetErr(boom)
			} else {
				m.SetErr(nil)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_, _, err := m.Get(ctx, "A")
			if err != nil {
				assert.ErrorIs(t, err, boom)
			}
		}
	}()
	wg.Wait()

	m.SetErr(nil)
	_, _, err = m.Get(ctx, "A")
	assert.NoError(t, err)
}
