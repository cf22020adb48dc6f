package blobstore

import (
	"context"
	"errors"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachingStore wraps a BlobStore and keeps recently read blobs in an LRU
// cache. Writes and deletes go to the inner store and invalidate the entry.
//
// Only blobs accepted by the cacheable predicate are cached. Blobs that
// other processes may rewrite, such as a version pointer, should be left
// out so that reads observe the latest content.
type CachingStore struct {
	inner     BlobStore
	cache     *lru.Cache[string, []byte]
	cacheable func(name string) bool
}

var _ ConditionalStore = (*CachingStore)(nil)

// NewCachingStore creates a CachingStore holding up to size blobs. A nil
// cacheable caches every blob.
func NewCachingStore(inner BlobStore, size int, cacheable func(name string) bool) (*CachingStore, error) {
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create blob cache: %w", err)
	}
	if cacheable == nil {
		cacheable = func(string) bool { return true }
	}
	return &CachingStore{inner: inner, cache: cache, cacheable: cacheable}, nil
}

// Get serves the blob from the cache when possible.
func (s *CachingStore) Get(ctx context.Context, name string) ([]byte, error) {
	if data, ok := s.cache.Get(name); ok {
		return slices.Clone(data), nil
	}
	data, err := s.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if s.cacheable(name) {
		s.cache.Add(name, slices.Clone(data))
	}
	return data, nil
}

// Put writes through and invalidates the cached copy.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Remove(name)
	return s.inner.Put(ctx, name, data)
}

// PutIfAbsent delegates to the inner store. It fails with
// errors.ErrUnsupported if the inner store has no conditional writes.
func (s *CachingStore) PutIfAbsent(ctx context.Context, name string, data []byte) error {
	cs, ok := s.inner.(ConditionalStore)
	if !ok {
		return fmt.Errorf("conditional put: %w", errors.ErrUnsupported)
	}
	s.cache.Remove(name)
	return cs.PutIfAbsent(ctx, name, data)
}

// Delete removes the blob from the inner store and the cache.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Remove(name)
	return s.inner.Delete(ctx, name)
}

// List is never cached.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Len returns the number of cached blobs.
func (s *CachingStore) Len() int { return s.cache.Len() }
