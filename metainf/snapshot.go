package metainf

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Snapshot is an immutable version of the whole catalog. It is safe to share
// between goroutines.
type Snapshot struct {
	databases     map[string]*Database
	databasesByID map[string]*Database
}

var emptySnapshot = &Snapshot{
	databases:     map[string]*Database{},
	databasesByID: map[string]*Database{},
}

// EmptySnapshot returns the catalog without databases.
func EmptySnapshot() *Snapshot {
	return emptySnapshot
}

// DatabaseByName returns the database with the given name, or nil.
func (s *Snapshot) DatabaseByName(name string) *Database {
	return s.databases[name]
}

// DatabaseByIdentifier returns the database with the given identifier, or nil.
func (s *Snapshot) DatabaseByIdentifier(identifier string) *Database {
	return s.databasesByID[identifier]
}

// Databases returns the databases ordered by name.
func (s *Snapshot) Databases() []*Database {
	dbs := slices.Collect(maps.Values(s.databases))
	slices.SortFunc(dbs, func(a, b *Database) int { return strings.Compare(a.name, b.name) })
	return dbs
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("snapshot with %d databases", len(s.databases))
}

// SnapshotBuilder assembles a Snapshot.
type SnapshotBuilder struct {
	base  *Snapshot
	snap  Snapshot
	owned bool
	err   error
}

// NewSnapshotBuilder starts an empty snapshot.
func NewSnapshotBuilder() *SnapshotBuilder {
	return EmptySnapshot().ToBuilder()
}

// ToBuilder starts a builder seeded with s. Unchanged parts stay shared.
func (s *Snapshot) ToBuilder() *SnapshotBuilder {
	return &SnapshotBuilder{base: s, snap: *s}
}

func (b *SnapshotBuilder) own() {
	if b.owned {
		return
	}
	b.snap.databases = maps.Clone(b.snap.databases)
	b.snap.databasesByID = maps.Clone(b.snap.databasesByID)
	b.owned = true
}

// PutDatabase adds d, or replaces the database with the same name and
// identifier.
func (b *SnapshotBuilder) PutDatabase(d *Database) *SnapshotBuilder {
	if b.err != nil {
		return b
	}
	if old := b.snap.databases[d.name]; old != nil && old.identifier != d.identifier {
		b.err = &ErrDuplicate{Kind: KindDatabase, Parent: "snapshot", Key: fmt.Sprintf("name %q", d.name)}
		return b
	}
	if old := b.snap.databasesByID[d.identifier]; old != nil && old.name != d.name {
		b.err = &ErrDuplicate{Kind: KindDatabase, Parent: "snapshot", Key: "identifier " + d.identifier}
		return b
	}
	b.own()
	b.snap.databases[d.name] = d
	b.snap.databasesByID[d.identifier] = d
	return b
}

// RemoveDatabase drops the database with the given name.
func (b *SnapshotBuilder) RemoveDatabase(name string) *SnapshotBuilder {
	old := b.snap.databases[name]
	if b.err != nil || old == nil {
		return b
	}
	b.own()
	delete(b.snap.databases, name)
	delete(b.snap.databasesByID, old.identifier)
	return b
}

// Build returns the snapshot. A builder seeded by ToBuilder that saw no
// change returns the original instance.
func (b *SnapshotBuilder) Build() (*Snapshot, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.owned {
		return b.base, nil
	}
	snap := b.snap
	b.owned = false
	b.base = &snap
	return &snap, nil
}
