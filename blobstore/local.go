package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hupe1980/metacat/internal/fs"
)

const (
	lockFileName = "LOCK"
	tempPattern  = ".tmp-*"
)

// ErrLocked is returned by LocalStore.Lock when another process holds the
// directory.
var ErrLocked = errors.New("blob directory is locked by another process")

// LocalStore implements BlobStore on a local directory. Writes go to a
// temporary file that is synced and renamed into place.
type LocalStore struct {
	root string
	fs   fs.FileSystem
}

var _ ConditionalStore = (*LocalStore)(nil)

// NewLocalStore creates a new LocalStore rooted at the given directory. The
// directory is created if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	return newLocalStore(root, fs.Default)
}

func newLocalStore(root string, fsys fs.FileSystem) (*LocalStore, error) {
	if err := fsys.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &LocalStore{root: root, fs: fsys}, nil
}

// Root returns the directory of the store.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) path(name string) (string, error) {
	if !filepath.IsLocal(name) || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return filepath.Join(s.root, name), nil
}

// Get reads a blob.
func (s *LocalStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	return s.fs.ReadFile(p)
}

// Put replaces a blob atomically.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	return s.write(ctx, name, data, s.fs.Rename)
}

// PutIfAbsent hard-links the synced temporary file into place, which fails
// if the target exists.
func (s *LocalStore) PutIfAbsent(ctx context.Context, name string, data []byte) error {
	err := s.write(ctx, name, data, s.fs.Link)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}
	return err
}

func (s *LocalStore) write(ctx context.Context, name string, data []byte, publish func(from, to string) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(name)
	if err != nil {
		return err
	}

	f, err := s.fs.CreateTemp(s.root, tempPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = s.fs.Remove(tmp) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := publish(tmp, p); err != nil {
		return err
	}
	return s.fs.SyncDir(s.root)
}

// Delete removes a blob.
func (s *LocalStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List returns blob names with the given prefix. Temporary files and the
// lock file are skipped.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := s.fs.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == lockFileName || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		if hasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Lock takes an exclusive, non-blocking lock on the directory. The lock is
// held until the returned closer is closed or the process exits.
func (s *LocalStore) Lock() (io.Closer, error) {
	f, err := os.OpenFile(filepath.Join(s.root, lockFileName), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &fileLock{f: f}, nil
}

type fileLock struct {
	f *os.File
}

func (l *fileLock) Close() error {
	if l.f == nil {
		return nil
	}
	err := unlockFile(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
