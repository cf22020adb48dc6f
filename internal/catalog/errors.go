package catalog

import "errors"

var (
	// ErrNotFound is returned when no version has been committed yet, or the
	// requested version does not exist.
	ErrNotFound = errors.New("catalog version not found")

	// ErrVersionExists is returned when another writer committed the same
	// version number first.
	ErrVersionExists = errors.New("catalog version already exists")

	// ErrCorrupt is returned for version blobs that fail envelope checks.
	ErrCorrupt = errors.New("corrupt catalog version")

	// ErrIncompatibleVersion is returned when the envelope format version is
	// not supported.
	ErrIncompatibleVersion = errors.New("incompatible catalog format version")
)
