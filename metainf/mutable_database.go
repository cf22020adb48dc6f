package metainf

import (
	"slices"
	"strings"

	"github.com/hupe1980/metacat/model"
)

// MutableDatabase is the overlay view of a database.
type MutableDatabase struct {
	base       *Database
	name       string
	identifier string
	state      model.ElementState

	collections tracked[*MutableCollection]
}

func newMutableDatabase(name, identifier string) *MutableDatabase {
	return &MutableDatabase{
		name:        name,
		identifier:  identifier,
		state:       model.StateAdded,
		collections: newTracked[*MutableCollection](),
	}
}

func wrapDatabase(base *Database) *MutableDatabase {
	return &MutableDatabase{
		base:        base,
		name:        base.name,
		identifier:  base.identifier,
		state:       model.StateNotChanged,
		collections: newTracked[*MutableCollection](),
	}
}

func (d *MutableDatabase) Name() string              { return d.name }
func (d *MutableDatabase) Identifier() string        { return d.identifier }
func (d *MutableDatabase) State() model.ElementState { return d.state }

// Base returns the committed database this overlay node wraps, or nil when
// the database was added by the overlay.
func (d *MutableDatabase) Base() *Database { return d.base }

func (d *MutableDatabase) changed() {
	d.state = d.state.Next()
}

func (d *MutableDatabase) checkAlive() error {
	if !d.state.IsAlive() {
		return illegalTransition(KindDatabase, d.name, d.state, model.StateModified)
	}
	return nil
}

func (d *MutableDatabase) lookup(name string) *MutableCollection {
	if col, ok := d.collections.get(name); ok {
		return col
	}
	if d.base == nil {
		return nil
	}
	base := d.base.CollectionByName(name)
	if base == nil {
		return nil
	}
	col := wrapCollection(base, d)
	d.collections.put(name, col)
	return col
}

// CollectionByName returns the live collection with the given name, or nil.
func (d *MutableDatabase) CollectionByName(name string) *MutableCollection {
	if col := d.lookup(name); col != nil && col.state.IsAlive() {
		return col
	}
	return nil
}

// CollectionByIdentifier returns the live collection with the given
// identifier, or nil.
func (d *MutableDatabase) CollectionByIdentifier(identifier string) *MutableCollection {
	for _, col := range d.collections.values() {
		if col.identifier == identifier && col.state.IsAlive() {
			return col
		}
	}
	if d.base != nil {
		if base := d.base.CollectionByIdentifier(identifier); base != nil {
			if col := d.CollectionByName(base.name); col != nil && col.identifier == identifier {
				return col
			}
		}
	}
	return nil
}

// Collections returns the live collections ordered by name.
func (d *MutableDatabase) Collections() []*MutableCollection {
	var cols []*MutableCollection
	if d.base != nil {
		for _, base := range d.base.Collections() {
			if col := d.CollectionByName(base.name); col != nil {
				cols = append(cols, col)
			}
		}
	}
	for _, col := range d.collections.values() {
		if col.base == nil && col.state.IsAlive() {
			cols = append(cols, col)
		}
	}
	slices.SortFunc(cols, func(a, b *MutableCollection) int { return strings.Compare(a.name, b.name) })
	return cols
}

// AddCollection creates a collection in the database.
func (d *MutableDatabase) AddCollection(name, identifier string) (*MutableCollection, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	if name == "" || identifier == "" {
		return nil, invalidArgument("collection needs a name and an identifier, got %q and %q", name, identifier)
	}
	if existing := d.lookup(name); existing != nil {
		if !existing.state.IsAlive() {
			return nil, illegalTransition(KindCollection, name, existing.state, model.StateAdded)
		}
		return nil, &ErrDuplicate{Kind: KindCollection, Parent: "database " + d.name, Key: "name " + name}
	}
	if d.identifierInUse(identifier) {
		return nil, &ErrDuplicate{Kind: KindCollection, Parent: "database " + d.name, Key: "identifier " + identifier}
	}
	col := newMutableCollection(name, identifier, d)
	d.collections.put(name, col)
	d.changed()
	return col, nil
}

func (d *MutableDatabase) identifierInUse(identifier string) bool {
	for _, col := range d.collections.values() {
		if col.identifier == identifier {
			return true
		}
	}
	return d.base != nil && d.base.CollectionByIdentifier(identifier) != nil
}

// RemoveCollection drops the collection with the given name. It reports
// whether a live collection was found.
func (d *MutableDatabase) RemoveCollection(name string) bool {
	if d.checkAlive() != nil {
		return false
	}
	col := d.CollectionByName(name)
	if col == nil {
		return false
	}
	if col.state == model.StateAdded {
		col.state = model.StateNotExistent
		d.collections.delete(name)
	} else {
		col.state = model.StateRemoved
	}
	d.changed()
	return true
}

// ChangedCollections returns the collections that were added, modified or
// removed, in the order they were first touched.
func (d *MutableDatabase) ChangedCollections() []*MutableCollection {
	var changed []*MutableCollection
	for _, col := range d.collections.values() {
		if col.state.HasChanged() {
			changed = append(changed, col)
		}
	}
	return changed
}

// ImmutableCopy freezes the current state of the database.
func (d *MutableDatabase) ImmutableCopy() *Database {
	var b *DatabaseBuilder
	if d.base != nil {
		b = d.base.ToBuilder()
	} else {
		b = NewDatabaseBuilder(d.name, d.identifier)
	}
	for _, col := range d.ChangedCollections() {
		if col.state == model.StateRemoved {
			b.RemoveCollection(col.name)
			continue
		}
		b.PutCollection(col.ImmutableCopy())
	}
	return mustBuild(b.Build())
}
