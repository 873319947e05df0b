package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.Put("bucket", "key", []byte("value")))
	value, ok, err := store.Get("bucket", "key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "value", string(value))

	require.NoError(t, store.Delete("bucket", "key"))
	_, ok, err = store.Get("bucket", "key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_KeysSorted(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put("b", "charlie", nil))
	require.NoError(t, store.Put("b", "alpha", nil))
	require.NoError(t, store.Put("b", "bravo", nil))

	keys, err := store.Keys("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, keys)
}

func TestMemoryStore_ValueIsolated(t *testing.T) {
	store := NewMemoryStore()
	original := []byte("value")
	require.NoError(t, store.Put("b", "k", original))
	original[0] = 'X'

	value, _, err := store.Get("b", "k")
	require.NoError(t, err)
	assert.Equal(t, "value", string(value))
}

func TestBoltStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := NewBoltStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put("orders", "O-1", []byte("payload")))

	value, ok, err := store.Get("orders", "O-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "payload", string(value))

	keys, err := store.Keys("orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"O-1"}, keys)

	_, ok, err = store.Get("missing-bucket", "O-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete("orders", "O-1"))
	_, ok, err = store.Get("orders", "O-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
