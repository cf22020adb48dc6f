package merge

import (
	"errors"
	"fmt"

	"github.com/hupe1980/metacat/metainf"
)

// Stats counts what a merge did with the changed elements it visited.
type Stats struct {
	Inserted int
	Recursed int
	Deleted  int
	Skipped  int
}

// Total returns the number of changed elements visited.
func (s Stats) Total() int {
	return s.Inserted + s.Recursed + s.Deleted + s.Skipped
}

func (s *Stats) count(a action) {
	switch a {
	case actInsert:
		s.Inserted++
	case actRecurse:
		s.Recursed++
	case actDelete:
		s.Deleted++
	case actNoop:
		s.Skipped++
	}
}

// Result is the outcome of a successful merge.
type Result struct {
	// Snapshot is the merged catalog. It is old itself when the overlay
	// held no change.
	Snapshot *metainf.Snapshot
	Stats    Stats
}

type merger struct {
	old     *metainf.Snapshot
	overlay *metainf.MutableSnapshot
	stats   Stats
}

// Merge folds the changes of overlay into old, which is usually newer than
// the snapshot the overlay was derived from. Neither argument is modified.
//
// A conflict is returned as *UnmergeableError. Any other error means an
// invariant of the catalog was broken.
func Merge(old *metainf.Snapshot, overlay *metainf.MutableSnapshot) (*Result, error) {
	m := &merger{old: old, overlay: overlay}

	b := old.ToBuilder()
	for _, db := range overlay.ChangedDatabases() {
		if c := m.database(b, db); c != nil {
			return nil, &UnmergeableError{Old: old, Overlay: overlay, Conflict: c}
		}
	}

	snap, c := finish(b.Build())
	if c != nil {
		return nil, &UnmergeableError{Old: old, Overlay: overlay, Conflict: c}
	}
	return &Result{Snapshot: snap, Stats: m.stats}, nil
}

// finish turns the error of a builder into a conflict. Builders only fail on
// duplicates once the strategies ran; anything else is a bug.
func finish[T any](v T, err error) (T, *Conflict) {
	if err == nil {
		return v, nil
	}
	var dup *metainf.ErrDuplicate
	if errors.As(err, &dup) {
		return v, newConflict(ReasonIdentifierClash, dup.Kind, dup.Key, func(parent string) string {
			return fmt.Sprintf("there is another %s with %s in %s on %s", dup.Kind, dup.Key, dup.Parent, parent)
		})
	}
	panic(fmt.Sprintf("merge: invariant violated: %v", err))
}

func databaseAncestor(db *metainf.Database) Ancestor {
	return Ancestor{Kind: metainf.KindDatabase, Name: db.Name(), Identifier: db.Identifier()}
}

func collectionAncestor(col *metainf.Collection) Ancestor {
	return Ancestor{Kind: metainf.KindCollection, Name: col.Name(), Identifier: col.Identifier()}
}

func docPartAncestor(d *metainf.DocPart) Ancestor {
	return Ancestor{Kind: metainf.KindDocPart, Name: d.TableRef().String(), Identifier: d.Identifier()}
}

func (m *merger) database(b *metainf.SnapshotBuilder, db *metainf.MutableDatabase) *Conflict {
	byName := m.old.DatabaseByName(db.Name())
	byID := m.old.DatabaseByIdentifier(db.Identifier())
	rel := relate(byName, byID)

	act := pick(db.State(), rel)
	m.stats.count(act)

	switch act {
	case actInsert:
		b.PutDatabase(db.ImmutableCopy())
	case actDelete:
		b.RemoveDatabase(byName.Name())
	case actConflict:
		old := byName
		if rel == relIdentifierClash {
			old = byID
		}
		return clash(metainf.KindDatabase, rel, "name", db.Name(), db.Identifier(), old.Name(), old.Identifier())
	case actRecurse:
		child := byID.ToBuilder()
		for _, col := range db.ChangedCollections() {
			if c := m.collection(byID, child, col); c != nil {
				return c.within(databaseAncestor(byID))
			}
		}
		merged, c := finish(child.Build())
		if c != nil {
			return c.within(databaseAncestor(byID))
		}
		b.PutDatabase(merged)
	}
	return nil
}

func (m *merger) collection(oldDB *metainf.Database, b *metainf.DatabaseBuilder, col *metainf.MutableCollection) *Conflict {
	byName := oldDB.CollectionByName(col.Name())
	byID := oldDB.CollectionByIdentifier(col.Identifier())
	rel := relate(byName, byID)

	act := pick(col.State(), rel)
	m.stats.count(act)

	switch act {
	case actInsert:
		b.PutCollection(col.ImmutableCopy())
	case actDelete:
		b.RemoveCollection(byName.Name())
	case actConflict:
		old := byName
		if rel == relIdentifierClash {
			old = byID
		}
		return clash(metainf.KindCollection, rel, "name", col.Name(), col.Identifier(), old.Name(), old.Identifier())
	case actRecurse:
		child := byID.ToBuilder()
		for _, d := range col.ChangedDocParts() {
			if c := m.docPart(col, byID, child, d); c != nil {
				return c.within(collectionAncestor(byID))
			}
		}
		for _, idx := range col.ChangedIndexes() {
			if c := m.index(col, byID, child, idx); c != nil {
				return c.within(collectionAncestor(byID))
			}
		}
		merged, c := finish(child.Build())
		if c != nil {
			return c.within(collectionAncestor(byID))
		}
		b.PutCollection(merged)
	}
	return nil
}
