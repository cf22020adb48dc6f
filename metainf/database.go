package metainf

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Database groups collections.
type Database struct {
	name       string
	identifier string

	collections     map[string]*Collection
	collectionsByID map[string]*Collection
}

func (d *Database) Name() string       { return d.name }
func (d *Database) Identifier() string { return d.identifier }

// CollectionByName returns the collection with the given name, or nil.
func (d *Database) CollectionByName(name string) *Collection {
	return d.collections[name]
}

// CollectionByIdentifier returns the collection with the given identifier,
// or nil.
func (d *Database) CollectionByIdentifier(identifier string) *Collection {
	return d.collectionsByID[identifier]
}

// Collections returns the collections ordered by name.
func (d *Database) Collections() []*Collection {
	cols := slices.Collect(maps.Values(d.collections))
	slices.SortFunc(cols, func(a, b *Collection) int { return strings.Compare(a.name, b.name) })
	return cols
}

func (d *Database) String() string {
	return fmt.Sprintf("database %q (%s)", d.name, d.identifier)
}

// DatabaseBuilder assembles a Database.
type DatabaseBuilder struct {
	base  *Database
	db    Database
	owned bool
	err   error
}

// NewDatabaseBuilder starts an empty database.
func NewDatabaseBuilder(name, identifier string) *DatabaseBuilder {
	b := &DatabaseBuilder{
		db: Database{
			name:            name,
			identifier:      identifier,
			collections:     map[string]*Collection{},
			collectionsByID: map[string]*Collection{},
		},
		owned: true,
	}
	if name == "" || identifier == "" {
		b.err = invalidArgument("database needs a name and an identifier, got %q and %q", name, identifier)
	}
	return b
}

// ToBuilder starts a builder seeded with d. Unchanged parts stay shared.
func (d *Database) ToBuilder() *DatabaseBuilder {
	return &DatabaseBuilder{base: d, db: *d}
}

func (b *DatabaseBuilder) own() {
	if b.owned {
		return
	}
	b.db.collections = maps.Clone(b.db.collections)
	b.db.collectionsByID = maps.Clone(b.db.collectionsByID)
	b.owned = true
}

// PutCollection adds c, or replaces the collection with the same name and
// identifier.
func (b *DatabaseBuilder) PutCollection(c *Collection) *DatabaseBuilder {
	if b.err != nil {
		return b
	}
	if old := b.db.collections[c.name]; old != nil && old.identifier != c.identifier {
		b.err = &ErrDuplicate{Kind: KindCollection, Parent: b.db.String(), Key: fmt.Sprintf("name %q", c.name)}
		return b
	}
	if old := b.db.collectionsByID[c.identifier]; old != nil && old.name != c.name {
		b.err = &ErrDuplicate{Kind: KindCollection, Parent: b.db.String(), Key: "identifier " + c.identifier}
		return b
	}
	b.own()
	b.db.collections[c.name] = c
	b.db.collectionsByID[c.identifier] = c
	return b
}

// RemoveCollection drops the collection with the given name.
func (b *DatabaseBuilder) RemoveCollection(name string) *DatabaseBuilder {
	old := b.db.collections[name]
	if b.err != nil || old == nil {
		return b
	}
	b.own()
	delete(b.db.collections, name)
	delete(b.db.collectionsByID, old.identifier)
	return b
}

// Build returns the database. A builder seeded by ToBuilder that saw no
// change returns the original instance.
func (b *DatabaseBuilder) Build() (*Database, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.owned {
		return b.base, nil
	}
	db := b.db
	b.owned = false
	b.base = &db
	return &db, nil
}
