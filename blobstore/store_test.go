package blobstore

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]ConditionalStore {
	t.Helper()
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	caching, err := NewCachingStore(NewMemoryStore(), 8, nil)
	require.NoError(t, err)
	return map[string]ConditionalStore{
		"memory":  NewMemoryStore(),
		"local":   local,
		"caching": caching,
	}
}

func TestBlobStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Put(ctx, "CATALOG-000001.bin", []byte("v1")))
			require.NoError(t, store.Put(ctx, "CATALOG-000002.bin", []byte("v2")))
			require.NoError(t, store.Put(ctx, "CURRENT", []byte("CATALOG-000001.bin")))
			require.NoError(t, store.Put(ctx, "CURRENT", []byte("CATALOG-000002.bin")))

			data, err := store.Get(ctx, "CURRENT")
			require.NoError(t, err)
			assert.Equal(t, "CATALOG-000002.bin", string(data))

			names, err := store.List(ctx, "CATALOG-")
			require.NoError(t, err)
			assert.Equal(t, []string{"CATALOG-000001.bin", "CATALOG-000002.bin"}, names)

			all, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)

			err = store.PutIfAbsent(ctx, "CATALOG-000002.bin", []byte("other"))
			require.ErrorIs(t, err, ErrExists)
			require.NoError(t, store.PutIfAbsent(ctx, "CATALOG-000003.bin", []byte("v3")))

			require.NoError(t, store.Delete(ctx, "CATALOG-000001.bin"))
			require.NoError(t, store.Delete(ctx, "CATALOG-000001.bin"))
			_, err = store.Get(ctx, "CATALOG-000001.bin")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	data := []byte("abc")
	require.NoError(t, store.Put(ctx, "a", data))
	data[0] = 'x'

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	got[1] = 'y'

	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))

	assert.True(t, store.Corrupt("a", 0))
	assert.False(t, store.Corrupt("a", 3))
	assert.False(t, store.Corrupt("b", 0))
}

func TestLocalStoreRejectsNestedNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../escape", "a/b", "", "/abs"} {
		assert.Error(t, store.Put(context.Background(), name, nil), name)
	}
}

type countingStore struct {
	BlobStore
	gets atomic.Int64
}

func (c *countingStore) Get(ctx context.Context, name string) ([]byte, error) {
	c.gets.Add(1)
	return c.BlobStore.Get(ctx, name)
}

func TestCachingStore(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{BlobStore: NewMemoryStore()}
	store, err := NewCachingStore(inner, 2, func(name string) bool { return name != "CURRENT" })
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "v1", []byte("one")))
	require.NoError(t, store.Put(ctx, "CURRENT", []byte("v1")))

	for range 3 {
		data, err := store.Get(ctx, "v1")
		require.NoError(t, err)
		assert.Equal(t, "one", string(data))
		_, err = store.Get(ctx, "CURRENT")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(4), inner.gets.Load())
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Put(ctx, "v1", []byte("uno")))
	data, err := store.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "uno", string(data))

	require.NoError(t, store.Delete(ctx, "v1"))
	_, err = store.Get(ctx, "v1")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.PutIfAbsent(ctx, "v2", nil)
	assert.True(t, errors.Is(err, errors.ErrUnsupported))
}
