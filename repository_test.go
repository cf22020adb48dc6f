package metacat_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/metacat"
	"github.com/hupe1980/metacat/blobstore"
	"github.com/hupe1980/metacat/codec"
	"github.com/hupe1980/metacat/merge"
	"github.com/hupe1980/metacat/metainf"
	"github.com/hupe1980/metacat/model"
	"github.com/hupe1980/metacat/tableref"
	"github.com/hupe1980/metacat/testutil"
)

func openRepo(t *testing.T, opts ...metacat.Option) *metacat.Repository {
	t.Helper()
	repo, err := metacat.Open(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func overlayOf(t *testing.T, repo *metacat.Repository) *metainf.MutableSnapshot {
	t.Helper()
	stage, err := repo.StartSnapshotStage(context.Background())
	require.NoError(t, err)
	defer func() { _ = stage.Close() }()

	overlay, err := stage.CreateMutableSnapshot()
	require.NoError(t, err)
	return overlay
}

func commit(t *testing.T, repo *metacat.Repository, overlay *metainf.MutableSnapshot) {
	t.Helper()
	ctx := context.Background()
	merger, err := repo.StartMerge(ctx, overlay)
	require.NoError(t, err)
	require.NoError(t, merger.Commit(ctx))
	require.NoError(t, merger.Close())
}

func fieldNames(part *metainf.DocPart) []string {
	var names []string
	for _, f := range part.Fields() {
		names = append(names, f.Name())
	}
	return names
}

func addFields(t *testing.T, part *metainf.MutableDocPart, names ...string) {
	t.Helper()
	for _, name := range names {
		_, err := part.AddField(name, part.Identifier()+"_"+name, model.FieldTypeString)
		require.NoError(t, err)
	}
}

func TestNestedDocPartChain(t *testing.T) {
	repo := openRepo(t)
	refs := repo.Refs()

	t1, err := refs.Child(refs.Root(), "t1")
	require.NoError(t, err)
	t2, err := refs.ArrayChild(t1, 2)
	require.NoError(t, err)
	t3, err := refs.ArrayChild(t2, 3)
	require.NoError(t, err)
	chain := []*tableref.TableRef{t1, t2, t3}

	overlay := overlayOf(t, repo)
	db, err := overlay.AddDatabase("db", "db")
	require.NoError(t, err)
	col, err := db.AddCollection("col", "col")
	require.NoError(t, err)
	for i, ref := range chain {
		part, err := col.AddDocPart(ref, fmt.Sprintf("t%d", i+1))
		require.NoError(t, err)
		addFields(t, part, "a", "b", "c", "d", "e")
	}
	commit(t, repo, overlay)
	before := repo.Snapshot()

	overlay = overlayOf(t, repo)
	col = overlay.DatabaseByName("db").CollectionByName("col")
	for _, ref := range chain {
		addFields(t, col.DocPartByTableRef(ref), "x", "y", "z")
	}
	commit(t, repo, overlay)
	after := repo.Snapshot()

	for _, ref := range chain {
		oldPart := before.DatabaseByName("db").CollectionByName("col").DocPartByTableRef(ref)
		newPart := after.DatabaseByName("db").CollectionByName("col").DocPartByTableRef(ref)
		require.NotNil(t, newPart)

		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, fieldNames(oldPart))
		assert.Equal(t, []string{"a", "b", "c", "d", "e", "x", "y", "z"}, fieldNames(newPart))

		types := map[string]model.FieldType{}
		for _, f := range newPart.Fields() {
			if typ, ok := types[f.Identifier()]; ok {
				assert.Equal(t, typ, f.Type(), "identifier %s", f.Identifier())
			}
			types[f.Identifier()] = f.Type()
		}
	}
	assert.Equal(t, uint64(2), repo.Version())
}

func TestMergeAddsFieldsWithoutTouchingCommittedSnapshot(t *testing.T) {
	repo := openRepo(t)

	overlay := overlayOf(t, repo)
	db, _ := overlay.AddDatabase("db", "db")
	col, _ := db.AddCollection("col", "col")
	part, err := col.AddDocPart(repo.Refs().Root(), "t1")
	require.NoError(t, err)
	addFields(t, part, "a", "b")
	commit(t, repo, overlay)
	committed := repo.Snapshot()

	overlay = overlayOf(t, repo)
	addFields(t, overlay.DatabaseByName("db").CollectionByName("col").DocPartByTableRef(repo.Refs().Root()), "c", "d")
	commit(t, repo, overlay)

	root := repo.Refs().Root()
	assert.Equal(t, []string{"a", "b", "c", "d"}, fieldNames(repo.Snapshot().DatabaseByName("db").CollectionByName("col").DocPartByTableRef(root)))
	assert.Equal(t, []string{"a", "b"}, fieldNames(committed.DatabaseByName("db").CollectionByName("col").DocPartByTableRef(root)))
}

func TestConcurrentStagesConflictOnCollectionIdentifier(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t)

	overlay := overlayOf(t, repo)
	_, err := overlay.AddDatabase("db", "db")
	require.NoError(t, err)
	commit(t, repo, overlay)

	first := overlayOf(t, repo)
	second := overlayOf(t, repo)
	_, err = first.DatabaseByName("db").AddCollection("users", "c1")
	require.NoError(t, err)
	_, err = second.DatabaseByName("db").AddCollection("accounts", "c1")
	require.NoError(t, err)

	commit(t, repo, first)
	before := repo.Snapshot()

	_, err = repo.StartMerge(ctx, second)
	require.ErrorIs(t, err, metacat.ErrUnmergeable)

	var unmergeable *metacat.UnmergeableError
	require.ErrorAs(t, err, &unmergeable)
	assert.Equal(t, merge.ReasonIdentifierClash, unmergeable.Conflict.Reason)
	assert.Equal(t, "c1", unmergeable.Conflict.Identifier)
	assert.Contains(t, err.Error(), "c1")
	assert.Same(t, before, unmergeable.Old)
	assert.Same(t, second, unmergeable.Overlay)

	assert.Same(t, before, repo.Snapshot())

	// The gate was released: the next merge proceeds.
	overlay = overlayOf(t, repo)
	_, err = overlay.DatabaseByName("db").AddCollection("accounts", "c2")
	require.NoError(t, err)
	commit(t, repo, overlay)
}

func TestScalarTypeConflict(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t)
	root := repo.Refs().Root()

	overlay := overlayOf(t, repo)
	db, _ := overlay.AddDatabase("db", "db")
	col, _ := db.AddCollection("col", "col")
	part, err := col.AddDocPart(root, "t1")
	require.NoError(t, err)
	_, err = part.AddScalar("v", model.FieldTypeInteger)
	require.NoError(t, err)
	commit(t, repo, overlay)

	stale := metainf.NewMutableSnapshot(metainf.EmptySnapshot())
	db, _ = stale.AddDatabase("db", "db")
	col, _ = db.AddCollection("col", "col")
	part, _ = col.AddDocPart(root, "t1")
	_, err = part.AddScalar("v", model.FieldTypeString)
	require.NoError(t, err)

	_, err = repo.StartMerge(ctx, stale)
	require.ErrorIs(t, err, metacat.ErrUnmergeable)
}

func TestSnapshotStage(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t)

	stage, err := repo.StartSnapshotStage(ctx)
	require.NoError(t, err)

	overlay := overlayOf(t, repo)
	_, err = overlay.AddDatabase("db", "db")
	require.NoError(t, err)
	commit(t, repo, overlay)

	pinned, err := stage.CreateImmutableSnapshot()
	require.NoError(t, err)
	assert.Nil(t, pinned.DatabaseByName("db"))
	assert.Equal(t, uint64(0), stage.Version())

	fresh, err := stage.CreateMutableSnapshot()
	require.NoError(t, err)
	assert.Same(t, pinned, fresh.Base())

	require.NoError(t, stage.Close())
	require.NoError(t, stage.Close())
	_, err = stage.CreateMutableSnapshot()
	assert.ErrorIs(t, err, metacat.ErrStageClosed)
	_, err = stage.CreateImmutableSnapshot()
	assert.ErrorIs(t, err, metacat.ErrStageClosed)
}

func TestMergerStageLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t)

	overlay := overlayOf(t, repo)
	_, err := overlay.AddDatabase("db", "db")
	require.NoError(t, err)

	merger, err := repo.StartMerge(ctx, overlay)
	require.NoError(t, err)
	assert.NotEmpty(t, merger.ID())
	assert.Equal(t, 1, merger.Stats().Inserted)
	assert.NotNil(t, merger.Snapshot().DatabaseByName("db"))

	_, err = merger.Version()
	assert.ErrorIs(t, err, metacat.ErrNotCommitted)

	// Rollback.
	require.NoError(t, merger.Close())
	assert.Nil(t, repo.Snapshot().DatabaseByName("db"))
	assert.ErrorIs(t, merger.Commit(ctx), metacat.ErrStageClosed)

	merger, err = repo.StartMerge(ctx, overlay)
	require.NoError(t, err)
	require.NoError(t, merger.Commit(ctx))
	assert.ErrorIs(t, merger.Commit(ctx), metacat.ErrAlreadyCommitted)

	// Committed but not yet published.
	assert.Nil(t, repo.Snapshot().DatabaseByName("db"))
	require.NoError(t, merger.Close())
	require.NoError(t, merger.Close())

	assert.NotNil(t, repo.Snapshot().DatabaseByName("db"))
	v, err := merger.Version()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
	assert.Equal(t, uint64(1), repo.Version())
}

func TestEmptyMergeKeepsVersion(t *testing.T) {
	repo := openRepo(t)
	before := repo.Snapshot()

	commit(t, repo, overlayOf(t, repo))

	assert.Same(t, before, repo.Snapshot())
	assert.Equal(t, uint64(0), repo.Version())
}

func TestStartMergeIsSingleWriter(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t)

	merger, err := repo.StartMerge(ctx, overlayOf(t, repo))
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = repo.StartMerge(waitCtx, overlayOf(t, repo))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Snapshot stages never block.
	stage, err := repo.StartSnapshotStage(ctx)
	require.NoError(t, err)
	require.NoError(t, stage.Close())

	require.NoError(t, merger.Close())
	next, err := repo.StartMerge(ctx, overlayOf(t, repo))
	require.NoError(t, err)
	require.NoError(t, next.Close())
}

func TestClosedRepository(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t)
	require.NoError(t, repo.Close())

	_, err := repo.StartSnapshotStage(ctx)
	assert.ErrorIs(t, err, metacat.ErrClosed)
	_, err = repo.StartMerge(ctx, metainf.NewMutableSnapshot(repo.Snapshot()))
	assert.ErrorIs(t, err, metacat.ErrClosed)
	_, err = repo.Update(ctx, func(*metainf.MutableSnapshot) error { return nil })
	assert.ErrorIs(t, err, metacat.ErrClosed)
}

// ensureCollection adds the collection unless it is already committed.
func ensureCollection(name, identifier string) func(*metainf.MutableSnapshot) error {
	return func(overlay *metainf.MutableSnapshot) error {
		db := overlay.DatabaseByName("db")
		if db.CollectionByName(name) != nil {
			return nil
		}
		_, err := db.AddCollection(name, identifier)
		return err
	}
}

func TestConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, metacat.WithRetryRate(rate.Inf), metacat.WithMaxMergeAttempts(20))

	_, err := repo.Update(ctx, func(overlay *metainf.MutableSnapshot) error {
		_, err := overlay.AddDatabase("db", "db")
		return err
	})
	require.NoError(t, err)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			// Distinct collections never conflict.
			if _, err := repo.Update(gctx, ensureCollection(fmt.Sprintf("col%d", i), fmt.Sprintf("col%d", i))); err != nil {
				return err
			}
			// The same name under different identifiers converges on the
			// first one committed.
			_, err := repo.Update(gctx, ensureCollection("shared", fmt.Sprintf("shared%d", i)))
			return err
		})
	}
	require.NoError(t, g.Wait())

	db := repo.Snapshot().DatabaseByName("db")
	assert.Len(t, db.Collections(), 9)
	assert.NotNil(t, db.CollectionByName("shared"))
}

func TestUpdateReturnsCallbackErrors(t *testing.T) {
	repo := openRepo(t)
	boom := errors.New("boom")

	_, err := repo.Update(context.Background(), func(*metainf.MutableSnapshot) error { return boom })
	assert.Same(t, boom, err)

	_, err = repo.Update(context.Background(), func(overlay *metainf.MutableSnapshot) error {
		_, err := overlay.AddDatabase("", "id")
		return err
	})
	assert.ErrorIs(t, err, metacat.ErrInvalidArgument)
}

func TestUpdateGivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	metrics := &metacat.BasicMetricsCollector{}
	repo := openRepo(t,
		metacat.WithRetryRate(rate.Inf),
		metacat.WithMaxMergeAttempts(3),
		metacat.WithMetricsCollector(metrics),
	)

	attempts := 0
	_, err := repo.Update(ctx, func(overlay *metainf.MutableSnapshot) error {
		attempts++
		id := fmt.Sprintf("db%d", attempts)
		// A competing writer takes the identifier before this overlay merges.
		if _, err := repo.Update(ctx, func(o *metainf.MutableSnapshot) error {
			_, err := o.AddDatabase("other"+id, id)
			return err
		}); err != nil {
			return err
		}
		_, err := overlay.AddDatabase("mine", id)
		return err
	})

	require.ErrorIs(t, err, metacat.ErrUnmergeable)
	assert.Equal(t, 3, attempts)
	assert.Nil(t, repo.Snapshot().DatabaseByName("mine"))
	assert.Equal(t, int64(3), metrics.GetStats().MergeConflicts)
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	refs := tableref.NewFactory()

	repo := openRepo(t, metacat.WithBlobStore(blobs), metacat.WithCompression(codec.CompressionZSTD), metacat.WithTableRefFactory(refs))
	sample := testutil.SampleSnapshot(t, refs)

	v, err := repo.Update(ctx, func(overlay *metainf.MutableSnapshot) error {
		for _, db := range sample.Databases() {
			mdb, err := overlay.AddDatabase(db.Name(), db.Identifier())
			if err != nil {
				return err
			}
			for _, col := range db.Collections() {
				mcol, err := mdb.AddCollection(col.Name(), col.Identifier())
				if err != nil {
					return err
				}
				for _, part := range col.DocParts() {
					mpart, err := mcol.AddDocPart(part.TableRef(), part.Identifier())
					if err != nil {
						return err
					}
					for _, f := range part.Fields() {
						if _, err := mpart.AddField(f.Name(), f.Identifier(), f.Type()); err != nil {
							return err
						}
					}
				}
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	reopened := openRepo(t, metacat.WithBlobStore(blobs), metacat.WithCacheSize(4), metacat.WithTableRefFactory(refs))
	assert.Equal(t, uint64(1), reopened.Version())

	col := reopened.Snapshot().DatabaseByName("db").CollectionByName("col")
	require.NotNil(t, col)
	for _, part := range sample.DatabaseByName("db").CollectionByName("col").DocParts() {
		loaded := col.DocPartByTableRef(part.TableRef())
		require.NotNil(t, loaded, "doc part %s", part.TableRef())
		assert.Same(t, part.TableRef(), loaded.TableRef())
		assert.Equal(t, fieldNames(part), fieldNames(loaded))
	}
}

func TestUpdateRefreshesAfterForeignCommit(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	a := openRepo(t, metacat.WithBlobStore(blobs), metacat.WithRetryRate(rate.Inf))
	b := openRepo(t, metacat.WithBlobStore(blobs), metacat.WithRetryRate(rate.Inf))

	_, err := a.Update(ctx, func(overlay *metainf.MutableSnapshot) error {
		_, err := overlay.AddDatabase("from_a", "a")
		return err
	})
	require.NoError(t, err)

	v, err := b.Update(ctx, func(overlay *metainf.MutableSnapshot) error {
		if overlay.DatabaseByName("from_b") != nil {
			return nil
		}
		_, err := overlay.AddDatabase("from_b", "b")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v)
	assert.NotNil(t, b.Snapshot().DatabaseByName("from_a"))
	assert.NotNil(t, b.Snapshot().DatabaseByName("from_b"))

	require.NoError(t, a.Refresh(ctx))
	assert.Equal(t, uint64(2), a.Version())
}

func TestCorruptCatalogFailsOpen(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	repo := openRepo(t, metacat.WithBlobStore(blobs))
	_, err := repo.Update(ctx, func(overlay *metainf.MutableSnapshot) error {
		_, err := overlay.AddDatabase("db", "db")
		return err
	})
	require.NoError(t, err)

	data, err := blobs.Get(ctx, "CATALOG-000001.bin")
	require.NoError(t, err)
	require.True(t, blobs.Corrupt("CATALOG-000001.bin", len(data)-1))

	_, err = metacat.Open(ctx, metacat.WithBlobStore(blobs))
	assert.ErrorIs(t, err, metacat.ErrCorrupt)
}

func TestMergeConflictIsLogged(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := metacat.NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	repo := openRepo(t, metacat.WithLogger(logger))

	first := overlayOf(t, repo)
	second := overlayOf(t, repo)
	_, _ = first.AddDatabase("a", "id")
	_, _ = second.AddDatabase("b", "id")
	commit(t, repo, first)

	_, err := repo.StartMerge(ctx, second)
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"merge completed"`)
	assert.Contains(t, out, `"msg":"commit completed"`)
	assert.Contains(t, out, `"msg":"merge conflict"`)
	assert.Contains(t, out, `"reason":"identifier clash"`)
}

func TestBasicMetrics(t *testing.T) {
	metrics := &metacat.BasicMetricsCollector{}
	repo := openRepo(t, metacat.WithMetricsCollector(metrics))

	_, err := repo.Update(context.Background(), func(overlay *metainf.MutableSnapshot) error {
		_, err := overlay.AddDatabase("db", "db")
		return err
	})
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.SnapshotStages)
	assert.Equal(t, int64(1), stats.MergeCount)
	assert.Equal(t, int64(1), stats.ElementsInserted)
	assert.Equal(t, int64(1), stats.CommitCount)
	assert.Zero(t, stats.CommitErrors)
}
