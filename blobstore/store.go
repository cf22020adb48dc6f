package blobstore

import (
	"context"
	"errors"
	"os"
	"strings"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// ErrExists is returned by ConditionalStore.PutIfAbsent when the blob is
// already present.
var ErrExists = errors.New("blob already exists")

// BlobStore is a flat namespace of immutable-by-convention blobs.
type BlobStore interface {
	// Get returns the content of a blob.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put writes a blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob succeeds.
	Delete(ctx context.Context, name string) error

	// List returns the sorted names that start with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ConditionalStore is implemented by stores that can create a blob only if
// it does not exist yet.
type ConditionalStore interface {
	BlobStore

	// PutIfAbsent writes the blob unless one with that name exists, in which
	// case it returns an error matching ErrExists.
	PutIfAbsent(ctx context.Context, name string, data []byte) error
}

func hasPrefix(name, prefix string) bool {
	return prefix == "" || strings.HasPrefix(name, prefix)
}
