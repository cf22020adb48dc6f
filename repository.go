package metacat

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/hupe1980/metacat/blobstore"
	"github.com/hupe1980/metacat/internal/catalog"
	"github.com/hupe1980/metacat/merge"
	"github.com/hupe1980/metacat/metainf"
	"github.com/hupe1980/metacat/tableref"
)

// head is the committed catalog and its version. It is published as one
// value so that readers never see a snapshot with another version number.
type head struct {
	snapshot *metainf.Snapshot
	version  uint64
}

// Repository holds the committed catalog snapshot. Snapshot stages read it
// without blocking; merge stages replace it one at a time.
//
// Repository is safe for concurrent use.
type Repository struct {
	opts    options
	logger  *Logger
	metrics MetricsCollector
	store   *catalog.Store

	head   atomic.Pointer[head]
	gate   *semaphore.Weighted
	closed atomic.Bool
}

// Open creates a repository. With a blob store it starts from the latest
// persisted version, otherwise from the initial snapshot.
func Open(ctx context.Context, optFns ...Option) (*Repository, error) {
	o := applyOptions(optFns)
	r := &Repository{
		opts:    o,
		logger:  o.logger,
		metrics: o.metricsCollector,
		gate:    semaphore.NewWeighted(1),
	}
	r.head.Store(&head{snapshot: o.initial})

	if o.blobStore == nil {
		return r, nil
	}

	blobs := o.blobStore
	if o.cacheSize > 0 {
		cached, err := blobstore.NewCachingStore(blobs, o.cacheSize, func(name string) bool {
			return name != catalog.CurrentFileName
		})
		if err != nil {
			return nil, err
		}
		blobs = cached
	}
	r.store = catalog.NewStore(blobs,
		catalog.WithCodec(o.codec),
		catalog.WithCompression(o.compression),
		catalog.WithFactory(o.refs),
	)

	v, err := r.store.Load(ctx)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		r.logger.LogLoad(ctx, 0, nil)
	case err != nil:
		r.logger.LogLoad(ctx, 0, err)
		return nil, fmt.Errorf("load catalog: %w", err)
	default:
		r.head.Store(&head{snapshot: v.Snapshot, version: v.ID})
		r.logger.LogLoad(ctx, v.ID, nil)
	}
	return r, nil
}

// Refs returns the factory used for the paths of loaded catalogs.
func (r *Repository) Refs() *tableref.Factory { return r.opts.refs }

// Snapshot returns the committed snapshot.
func (r *Repository) Snapshot() *metainf.Snapshot { return r.head.Load().snapshot }

// Version returns the committed version. The initial catalog is version 0.
func (r *Repository) Version() uint64 { return r.head.Load().version }

// Close closes the repository. Open stages stay usable; new stages fail
// with ErrClosed.
func (r *Repository) Close() error {
	r.closed.Store(true)
	return nil
}

// StartSnapshotStage pins the committed snapshot for reading and for
// deriving overlays.
func (r *Repository) StartSnapshotStage(ctx context.Context) (*SnapshotStage, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := r.head.Load()
	r.metrics.RecordSnapshotStage()
	r.logger.LogSnapshotStage(ctx, h.version)
	return &SnapshotStage{head: h}, nil
}

// StartMerge waits for the single writer slot, then merges overlay into the
// committed snapshot, which may be newer than the one overlay was derived
// from. A conflict returns *UnmergeableError and leaves the repository
// untouched.
//
// On success the stage holds the writer slot until it is closed: call
// Commit, then Close to publish, or only Close to roll back.
func (r *Repository) StartMerge(ctx context.Context, overlay *metainf.MutableSnapshot) (*MergerStage, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	if err := r.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if r.closed.Load() {
		r.gate.Release(1)
		return nil, ErrClosed
	}

	id := uuid.NewString()
	base := r.head.Load()

	start := time.Now()
	res, err := merge.Merge(base.snapshot, overlay)
	var stats merge.Stats
	if res != nil {
		stats = res.Stats
	}
	r.metrics.RecordMerge(time.Since(start), stats, err)
	r.logger.LogMerge(ctx, id, stats, err)
	if err != nil {
		r.gate.Release(1)
		return nil, err
	}

	return &MergerStage{
		repo:   r,
		id:     id,
		base:   base,
		result: res,
		logger: r.logger.WithStage(id),
	}, nil
}

// Update runs fn on a fresh overlay and commits it. On a conflict it
// derives a new overlay from the now committed snapshot and runs fn again,
// up to WithMaxMergeAttempts times. fn must therefore be safe to repeat.
// Errors from fn are returned unchanged.
func (r *Repository) Update(ctx context.Context, fn func(*metainf.MutableSnapshot) error) (uint64, error) {
	limiter := rate.NewLimiter(r.opts.retryRate, 1)

	var lastErr error
	for attempt := 1; attempt <= r.opts.maxMergeAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return 0, err
		}

		version, err := r.update(ctx, fn)
		switch {
		case err == nil:
			return version, nil
		case errors.Is(err, ErrUnmergeable):
		case errors.Is(err, ErrVersionExists):
			if err := r.Refresh(ctx); err != nil {
				return 0, err
			}
		default:
			return 0, err
		}
		lastErr = err
		r.logger.WarnContext(ctx, "retrying update", "attempt", attempt, "error", err)
	}
	return 0, fmt.Errorf("giving up after %d attempts: %w", r.opts.maxMergeAttempts, lastErr)
}

func (r *Repository) update(ctx context.Context, fn func(*metainf.MutableSnapshot) error) (uint64, error) {
	stage, err := r.StartSnapshotStage(ctx)
	if err != nil {
		return 0, err
	}
	overlay, err := stage.CreateMutableSnapshot()
	_ = stage.Close()
	if err != nil {
		return 0, err
	}
	if err := fn(overlay); err != nil {
		return 0, err
	}

	merger, err := r.StartMerge(ctx, overlay)
	if err != nil {
		return 0, err
	}
	defer func() { _ = merger.Close() }()

	if err := merger.Commit(ctx); err != nil {
		return 0, err
	}
	return merger.Version()
}

// Refresh loads the latest persisted version and publishes it when it is
// newer than the committed one. It is a no-op without a blob store.
func (r *Repository) Refresh(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	if err := r.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer r.gate.Release(1)

	v, err := r.store.Load(ctx)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil
		}
		r.logger.LogLoad(ctx, 0, err)
		return err
	}
	if v.ID > r.head.Load().version {
		r.head.Store(&head{snapshot: v.Snapshot, version: v.ID})
		r.logger.LogLoad(ctx, v.ID, nil)
	}
	return nil
}

// SnapshotStage is a read handle on the snapshot committed when it was
// started. It is owned by one goroutine.
type SnapshotStage struct {
	head   *head
	closed bool
}

// Version returns the version of the pinned snapshot.
func (s *SnapshotStage) Version() uint64 { return s.head.version }

// CreateMutableSnapshot returns a fresh overlay over the pinned snapshot.
func (s *SnapshotStage) CreateMutableSnapshot() (*metainf.MutableSnapshot, error) {
	if s.closed {
		return nil, ErrStageClosed
	}
	return metainf.NewMutableSnapshot(s.head.snapshot), nil
}

// CreateImmutableSnapshot returns the pinned snapshot.
func (s *SnapshotStage) CreateImmutableSnapshot() (*metainf.Snapshot, error) {
	if s.closed {
		return nil, ErrStageClosed
	}
	return s.head.snapshot, nil
}

// Close ends the stage. Closing twice is a no-op.
func (s *SnapshotStage) Close() error {
	s.closed = true
	return nil
}

// MergerStage holds a merged snapshot and the writer slot of its
// repository. It is owned by one goroutine.
type MergerStage struct {
	repo      *Repository
	id        string
	base      *head
	result    *merge.Result
	logger    *Logger
	version   uint64
	committed bool
	closed    bool
}

// ID returns the id recorded with the committed version.
func (s *MergerStage) ID() string { return s.id }

// Snapshot returns the merged snapshot.
func (s *MergerStage) Snapshot() *metainf.Snapshot { return s.result.Snapshot }

// Stats returns what the merge did.
func (s *MergerStage) Stats() merge.Stats { return s.result.Stats }

// Version returns the version assigned by Commit.
func (s *MergerStage) Version() (uint64, error) {
	if !s.committed {
		return 0, ErrNotCommitted
	}
	return s.version, nil
}

// Commit persists the merged snapshot when the repository has a blob store
// and marks the stage for publishing on Close. A merge without changes
// keeps the committed version.
func (s *MergerStage) Commit(ctx context.Context) error {
	if s.closed {
		return ErrStageClosed
	}
	if s.committed {
		return ErrAlreadyCommitted
	}

	version := s.base.version
	if s.result.Snapshot != s.base.snapshot {
		start := time.Now()
		var err error
		version, err = s.persist(ctx)
		s.repo.metrics.RecordCommit(time.Since(start), err)
		s.logger.LogCommit(ctx, s.id, version, err)
		if err != nil {
			return err
		}
	}

	s.version = version
	s.committed = true
	return nil
}

func (s *MergerStage) persist(ctx context.Context) (uint64, error) {
	if s.repo.store == nil {
		return s.base.version + 1, nil
	}
	v, err := s.repo.store.Save(ctx, s.result.Snapshot, catalog.Meta{Parent: s.base.version, MergeID: s.id})
	if err != nil {
		return 0, fmt.Errorf("persist catalog: %w", err)
	}
	return v, nil
}

// Close publishes the merged snapshot if the stage was committed and
// releases the writer slot. Closing twice is a no-op.
func (s *MergerStage) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.committed && s.version != s.base.version {
		s.repo.head.Store(&head{snapshot: s.result.Snapshot, version: s.version})
	}
	s.repo.gate.Release(1)
	return nil
}
