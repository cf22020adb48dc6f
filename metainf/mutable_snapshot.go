package metainf

import (
	"slices"
	"strings"

	"github.com/hupe1980/metacat/model"
)

// MutableSnapshot is a copy-on-write overlay over an immutable Snapshot.
//
// Reads see the base snapshot plus the changes made through the overlay.
// The base is never modified. A MutableSnapshot is not safe for concurrent
// use.
type MutableSnapshot struct {
	base      *Snapshot
	databases tracked[*MutableDatabase]
}

// NewMutableSnapshot creates an overlay over base.
func NewMutableSnapshot(base *Snapshot) *MutableSnapshot {
	return &MutableSnapshot{base: base, databases: newTracked[*MutableDatabase]()}
}

// Base returns the snapshot the overlay was derived from.
func (s *MutableSnapshot) Base() *Snapshot { return s.base }

func (s *MutableSnapshot) lookup(name string) *MutableDatabase {
	if db, ok := s.databases.get(name); ok {
		return db
	}
	base := s.base.DatabaseByName(name)
	if base == nil {
		return nil
	}
	db := wrapDatabase(base)
	s.databases.put(name, db)
	return db
}

// DatabaseByName returns the live database with the given name, or nil.
func (s *MutableSnapshot) DatabaseByName(name string) *MutableDatabase {
	if db := s.lookup(name); db != nil && db.state.IsAlive() {
		return db
	}
	return nil
}

// DatabaseByIdentifier returns the live database with the given identifier,
// or nil.
func (s *MutableSnapshot) DatabaseByIdentifier(identifier string) *MutableDatabase {
	for _, db := range s.databases.values() {
		if db.identifier == identifier && db.state.IsAlive() {
			return db
		}
	}
	if base := s.base.DatabaseByIdentifier(identifier); base != nil {
		if db := s.DatabaseByName(base.name); db != nil && db.identifier == identifier {
			return db
		}
	}
	return nil
}

// Databases returns the live databases ordered by name.
func (s *MutableSnapshot) Databases() []*MutableDatabase {
	var dbs []*MutableDatabase
	for _, base := range s.base.Databases() {
		if db := s.DatabaseByName(base.name); db != nil {
			dbs = append(dbs, db)
		}
	}
	for _, db := range s.databases.values() {
		if db.base == nil && db.state.IsAlive() {
			dbs = append(dbs, db)
		}
	}
	slices.SortFunc(dbs, func(a, b *MutableDatabase) int { return strings.Compare(a.name, b.name) })
	return dbs
}

// AddDatabase creates a database.
func (s *MutableSnapshot) AddDatabase(name, identifier string) (*MutableDatabase, error) {
	if name == "" || identifier == "" {
		return nil, invalidArgument("database needs a name and an identifier, got %q and %q", name, identifier)
	}
	if existing := s.lookup(name); existing != nil {
		if !existing.state.IsAlive() {
			return nil, illegalTransition(KindDatabase, name, existing.state, model.StateAdded)
		}
		return nil, &ErrDuplicate{Kind: KindDatabase, Parent: "snapshot", Key: "name " + name}
	}
	if s.identifierInUse(identifier) {
		return nil, &ErrDuplicate{Kind: KindDatabase, Parent: "snapshot", Key: "identifier " + identifier}
	}
	db := newMutableDatabase(name, identifier)
	s.databases.put(name, db)
	return db, nil
}

func (s *MutableSnapshot) identifierInUse(identifier string) bool {
	for _, db := range s.databases.values() {
		if db.identifier == identifier {
			return true
		}
	}
	return s.base.DatabaseByIdentifier(identifier) != nil
}

// RemoveDatabase drops the database with the given name. It reports whether
// a live database was found.
func (s *MutableSnapshot) RemoveDatabase(name string) bool {
	db := s.DatabaseByName(name)
	if db == nil {
		return false
	}
	if db.state == model.StateAdded {
		db.state = model.StateNotExistent
		s.databases.delete(name)
		return true
	}
	db.state = model.StateRemoved
	return true
}

// ChangedDatabases returns the databases that were added, modified or
// removed, in the order they were first touched.
func (s *MutableSnapshot) ChangedDatabases() []*MutableDatabase {
	var changed []*MutableDatabase
	for _, db := range s.databases.values() {
		if db.state.HasChanged() {
			changed = append(changed, db)
		}
	}
	return changed
}

// HasChanges reports whether the overlay holds any change.
func (s *MutableSnapshot) HasChanges() bool {
	return len(s.ChangedDatabases()) > 0
}

// ImmutableCopy freezes the current state of the overlay. It returns the
// base snapshot when nothing changed.
func (s *MutableSnapshot) ImmutableCopy() *Snapshot {
	b := s.base.ToBuilder()
	for _, db := range s.ChangedDatabases() {
		if db.state == model.StateRemoved {
			b.RemoveDatabase(db.name)
			continue
		}
		b.PutDatabase(db.ImmutableCopy())
	}
	return mustBuild(b.Build())
}
