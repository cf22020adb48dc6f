// Package metacat is an embedded schema catalog for document stores that
// map documents onto relational tables.
//
// The catalog describes databases, collections and the doc parts a
// collection is split into, together with the fields, scalars and indexes
// of each doc part. Readers work on immutable snapshots. Writers record
// their changes in a copy-on-write overlay and hand it to a single merger,
// which folds it into the latest committed snapshot and publishes the
// result atomically.
//
// # Quick Start
//
//	ctx := context.Background()
//	repo, _ := metacat.Open(ctx)
//
//	stage, _ := repo.StartSnapshotStage(ctx)
//	overlay, _ := stage.CreateMutableSnapshot()
//	stage.Close()
//
//	db, _ := overlay.AddDatabase("shop", "shop")
//	col, _ := db.AddCollection("orders", "orders")
//	root, _ := col.AddDocPart(repo.Refs().Root(), "orders_root")
//	root.AddField("total", "total_d", model.FieldTypeDouble)
//
//	merger, err := repo.StartMerge(ctx, overlay)
//	if errors.Is(err, metacat.ErrUnmergeable) {
//	    // another writer committed a clashing change; start over
//	}
//	merger.Commit(ctx)
//	merger.Close() // publishes
//
// Update wraps the cycle and retries on conflicts:
//
//	version, err := repo.Update(ctx, func(overlay *metainf.MutableSnapshot) error {
//	    _, err := overlay.AddDatabase("shop", "shop")
//	    return err
//	})
//
// # Persistence
//
// With WithBlobStore every commit is written as a new immutable catalog
// version, and Open resumes from the latest one:
//
//	store, _ := blobstore.NewLocalStore("./catalog")
//	repo, _ := metacat.Open(ctx, metacat.WithBlobStore(store))
//
// The s3 and minio sub-packages provide object store backends. Writers in
// several processes may share one store: a commit based on a stale version
// fails with ErrVersionExists, and Update refreshes and retries.
//
// # Concurrency
//
// Repository is safe for concurrent use. Snapshot stages never block.
// StartMerge waits until the previous merge stage is closed, so at most one
// merge is in flight. Stages and overlays are owned by one goroutine.
package metacat
