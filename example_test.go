package metacat_test

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hupe1980/metacat"
	"github.com/hupe1980/metacat/blobstore"
	"github.com/hupe1980/metacat/metainf"
	"github.com/hupe1980/metacat/model"
)

func Example() {
	ctx := context.Background()
	repo, err := metacat.Open(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer repo.Close()

	stage, err := repo.StartSnapshotStage(ctx)
	if err != nil {
		log.Fatal(err)
	}
	overlay, _ := stage.CreateMutableSnapshot()
	_ = stage.Close()

	db, _ := overlay.AddDatabase("shop", "shop")
	col, _ := db.AddCollection("orders", "orders")
	root, _ := col.AddDocPart(repo.Refs().Root(), "orders_root")
	if _, err := root.AddField("total", "total_d", model.FieldTypeDouble); err != nil {
		log.Fatal(err)
	}

	merger, err := repo.StartMerge(ctx, overlay)
	if err != nil {
		log.Fatal(err)
	}
	if err := merger.Commit(ctx); err != nil {
		log.Fatal(err)
	}
	_ = merger.Close()

	part := repo.Snapshot().DatabaseByName("shop").CollectionByName("orders").DocPartByTableRef(repo.Refs().Root())
	for _, f := range part.Fields() {
		fmt.Println(f.Name(), f.Identifier(), f.Type())
	}
	fmt.Println("version", repo.Version())
	// Output:
	// total total_d double
	// version 1
}

func ExampleRepository_StartMerge_conflict() {
	ctx := context.Background()
	repo, _ := metacat.Open(ctx)
	defer repo.Close()

	newOverlay := func() *metainf.MutableSnapshot {
		stage, _ := repo.StartSnapshotStage(ctx)
		defer stage.Close()
		overlay, _ := stage.CreateMutableSnapshot()
		return overlay
	}

	first, second := newOverlay(), newOverlay()
	_, _ = first.AddDatabase("sales", "db1")
	_, _ = second.AddDatabase("billing", "db1")

	merger, _ := repo.StartMerge(ctx, first)
	_ = merger.Commit(ctx)
	_ = merger.Close()

	_, err := repo.StartMerge(ctx, second)
	var unmergeable *metacat.UnmergeableError
	if errors.As(err, &unmergeable) {
		fmt.Println(unmergeable.Conflict.Reason, unmergeable.Conflict.Identifier)
	}
	// Output: identifier clash db1
}

func ExampleRepository_Update() {
	ctx := context.Background()
	repo, _ := metacat.Open(ctx, metacat.WithBlobStore(blobstore.NewMemoryStore()))
	defer repo.Close()

	for _, name := range []string{"a", "b", "a"} {
		version, err := repo.Update(ctx, func(overlay *metainf.MutableSnapshot) error {
			if overlay.DatabaseByName(name) != nil {
				return nil
			}
			_, err := overlay.AddDatabase(name, name+"_id")
			return err
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(name, version)
	}
	// Output:
	// a 1
	// b 2
	// a 2
}
