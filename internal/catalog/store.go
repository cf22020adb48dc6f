package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/metacat/blobstore"
	"github.com/hupe1980/metacat/codec"
	"github.com/hupe1980/metacat/metainf"
	"github.com/hupe1980/metacat/tableref"
)

const (
	// VersionPrefix starts the name of every version blob.
	VersionPrefix = "CATALOG-"
	// CurrentFileName is the pointer to the latest committed version.
	CurrentFileName = "CURRENT"

	blobConcurrency = 8
)

// VersionFileName returns the blob name of a version.
func VersionFileName(version uint64) string {
	return fmt.Sprintf("%s%06d.bin", VersionPrefix, version)
}

func parseVersionFileName(name string) (uint64, bool) {
	s, ok := strings.CutPrefix(name, VersionPrefix)
	if !ok {
		return 0, false
	}
	s, ok = strings.CutSuffix(s, ".bin")
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}

// Meta is recorded alongside a saved snapshot.
type Meta struct {
	// Parent is the version the snapshot was derived from. Save fails with
	// ErrVersionExists when a newer version was stored meanwhile.
	Parent uint64
	// MergeID identifies the merge stage that produced the snapshot.
	MergeID string
}

// Version is a loaded catalog version.
type Version struct {
	ID          uint64
	Parent      uint64
	CreatedAt   time.Time
	MergeID     string
	Codec       string
	Compression codec.Compression
	Snapshot    *metainf.Snapshot
	Record      SnapshotRecord
}

// Option configures a Store.
type Option func(*Store)

// WithCodec sets the codec for newly written versions.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithCompression sets the compression for newly written versions.
func WithCompression(c codec.Compression) Option {
	return func(s *Store) {
		s.compression = c
	}
}

// WithFactory sets the factory that interns the paths of loaded snapshots.
func WithFactory(refs *tableref.Factory) Option {
	return func(s *Store) {
		if refs != nil {
			s.refs = refs
		}
	}
}

// Store persists committed snapshots as numbered versions.
//
// Save first writes the version blob, then points CURRENT at it. Version
// numbers come from the blobs that exist, so a writer that lost a race
// either fails to create its blob (conditional stores) or to move the
// pointer (commit stores) and gets ErrVersionExists.
type Store struct {
	blobs       blobstore.BlobStore
	codec       codec.Codec
	compression codec.Compression
	refs        *tableref.Factory
	mu          sync.Mutex
}

// NewStore creates a new catalog store.
func NewStore(blobs blobstore.BlobStore, optFns ...Option) *Store {
	s := &Store{
		blobs: blobs,
		codec: codec.Default,
		refs:  tableref.NewFactory(),
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// Save writes snap as the next version and returns its number.
func (s *Store) Save(ctx context.Context, snap *metainf.Snapshot, meta Meta) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.versions(ctx)
	if err != nil {
		return 0, err
	}
	var latest uint64
	if !versions.IsEmpty() {
		latest = versions.Maximum()
	}
	if latest != meta.Parent {
		return 0, fmt.Errorf("%w: version %d was derived from %d", ErrVersionExists, latest, meta.Parent)
	}
	version := latest + 1

	data, err := writeBinary(&document{
		Version:   version,
		Parent:    meta.Parent,
		CreatedAt: time.Now().UTC(),
		MergeID:   meta.MergeID,
		Catalog:   NewSnapshotRecord(snap),
	}, s.codec, s.compression)
	if err != nil {
		return 0, err
	}

	filename := VersionFileName(version)
	if err := s.create(ctx, filename, data); err != nil {
		return 0, err
	}

	if err := s.blobs.Put(ctx, CurrentFileName, []byte(filename)); err != nil {
		if errors.Is(err, blobstore.ErrExists) {
			_ = s.blobs.Delete(ctx, filename)
			return 0, fmt.Errorf("%w: %d", ErrVersionExists, version)
		}
		return 0, fmt.Errorf("update %s: %w", CurrentFileName, err)
	}
	return version, nil
}

// create writes a version blob, refusing to replace an existing one when the
// backend supports conditional writes.
func (s *Store) create(ctx context.Context, name string, data []byte) error {
	if cs, ok := s.blobs.(blobstore.ConditionalStore); ok {
		err := cs.PutIfAbsent(ctx, name, data)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, blobstore.ErrExists):
			return fmt.Errorf("%w: %s", ErrVersionExists, name)
		case !errors.Is(err, errors.ErrUnsupported):
			return err
		}
	}
	return s.blobs.Put(ctx, name, data)
}

// Load loads the current version.
func (s *Store) Load(ctx context.Context) (*Version, error) {
	return s.LoadVersion(ctx, 0)
}

// LoadVersion loads a specific version. 0 means latest.
func (s *Store) LoadVersion(ctx context.Context, version uint64) (*Version, error) {
	filename := VersionFileName(version)
	if version == 0 {
		content, err := s.blobs.Get(ctx, CurrentFileName)
		if err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		filename = strings.TrimSpace(string(content))
		if _, ok := parseVersionFileName(filename); !ok {
			return nil, fmt.Errorf("%w: %s points to %q", ErrCorrupt, CurrentFileName, filename)
		}
	}

	data, err := s.blobs.Get(ctx, filename)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	doc, h, err := readBinary(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	snap, err := doc.Catalog.Snapshot(s.refs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, filename, err)
	}

	return &Version{
		ID:          doc.Version,
		Parent:      doc.Parent,
		CreatedAt:   doc.CreatedAt,
		MergeID:     doc.MergeID,
		Codec:       h.codec.Name(),
		Compression: h.compression,
		Snapshot:    snap,
		Record:      doc.Catalog,
	}, nil
}

// Current returns the number of the version CURRENT points to.
func (s *Store) Current(ctx context.Context) (uint64, error) {
	content, err := s.blobs.Get(ctx, CurrentFileName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	v, ok := parseVersionFileName(strings.TrimSpace(string(content)))
	if !ok {
		return 0, fmt.Errorf("%w: %s points to %q", ErrCorrupt, CurrentFileName, content)
	}
	return v, nil
}

// Versions returns the numbers of all stored versions.
func (s *Store) Versions(ctx context.Context) (*roaring64.Bitmap, error) {
	return s.versions(ctx)
}

func (s *Store) versions(ctx context.Context) (*roaring64.Bitmap, error) {
	names, err := s.blobs.List(ctx, VersionPrefix)
	if err != nil {
		return nil, err
	}
	bm := roaring64.New()
	for _, name := range names {
		if v, ok := parseVersionFileName(name); ok {
			bm.Add(v)
		}
	}
	return bm, nil
}

// Vacuum deletes all but the newest keep versions and returns the deleted
// ones. The current version is never deleted.
func (s *Store) Vacuum(ctx context.Context, keep int) (*roaring64.Bitmap, error) {
	if keep < 1 {
		return nil, fmt.Errorf("vacuum must keep at least one version, got %d", keep)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.versions(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.Current(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	all := versions.ToArray()
	doomed := roaring64.New()
	if len(all) > keep {
		doomed.AddMany(all[:len(all)-keep])
	}
	doomed.Remove(current)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(blobConcurrency)
	it := doomed.Iterator()
	for it.HasNext() {
		v := it.Next()
		g.Go(func() error {
			if err := s.blobs.Delete(gctx, VersionFileName(v)); err != nil {
				return fmt.Errorf("delete version %d: %w", v, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return doomed, nil
}

// Verify checks the envelope of every stored version and returns the
// versions that failed. err is only set when the versions could not be
// listed or read.
func (s *Store) Verify(ctx context.Context) (*roaring64.Bitmap, error) {
	versions, err := s.versions(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	corrupt := roaring64.New()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(blobConcurrency)
	it := versions.Iterator()
	for it.HasNext() {
		v := it.Next()
		g.Go(func() error {
			_, err := s.LoadVersion(gctx, v)
			if err == nil {
				return nil
			}
			if !errors.Is(err, ErrCorrupt) && !errors.Is(err, ErrIncompatibleVersion) {
				return err
			}
			mu.Lock()
			corrupt.Add(v)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return corrupt, nil
}
