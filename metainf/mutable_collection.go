package metainf

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/metacat/model"
	"github.com/hupe1980/metacat/tableref"
)

// MutableCollection is the overlay view of a collection.
type MutableCollection struct {
	base       *Collection
	name       string
	identifier string
	state      model.ElementState
	parent     container

	docParts tracked[*MutableDocPart] // by TableRef key
	indexes  tracked[*MutableIndex]
}

func newMutableCollection(name, identifier string, parent container) *MutableCollection {
	return &MutableCollection{
		name:       name,
		identifier: identifier,
		state:      model.StateAdded,
		parent:     parent,
		docParts:   newTracked[*MutableDocPart](),
		indexes:    newTracked[*MutableIndex](),
	}
}

func wrapCollection(base *Collection, parent container) *MutableCollection {
	return &MutableCollection{
		base:       base,
		name:       base.name,
		identifier: base.identifier,
		state:      model.StateNotChanged,
		parent:     parent,
		docParts:   newTracked[*MutableDocPart](),
		indexes:    newTracked[*MutableIndex](),
	}
}

func (c *MutableCollection) Name() string              { return c.name }
func (c *MutableCollection) Identifier() string        { return c.identifier }
func (c *MutableCollection) State() model.ElementState { return c.state }

// Base returns the committed collection, or nil when the collection was
// added by the overlay.
func (c *MutableCollection) Base() *Collection { return c.base }

func (c *MutableCollection) changed() {
	c.state = c.state.Next()
	c.parent.changed()
}

func (c *MutableCollection) checkAlive() error {
	if !c.state.IsAlive() {
		return illegalTransition(KindCollection, c.name, c.state, model.StateModified)
	}
	return c.parent.checkAlive()
}

func (c *MutableCollection) String() string {
	return fmt.Sprintf("collection %q (%s)", c.name, c.identifier)
}

// DocPartByTableRef returns the doc part stored at ref, or nil.
func (c *MutableCollection) DocPartByTableRef(ref *tableref.TableRef) *MutableDocPart {
	if d, ok := c.docParts.get(ref.Key()); ok {
		return d
	}
	if c.base == nil {
		return nil
	}
	base := c.base.DocPartByTableRef(ref)
	if base == nil {
		return nil
	}
	d := wrapDocPart(base, c)
	c.docParts.put(ref.Key(), d)
	return d
}

// DocPartByIdentifier returns the doc part with the given identifier, or nil.
func (c *MutableCollection) DocPartByIdentifier(identifier string) *MutableDocPart {
	for _, d := range c.docParts.values() {
		if d.identifier == identifier {
			return d
		}
	}
	if c.base != nil {
		if base := c.base.DocPartByIdentifier(identifier); base != nil {
			return c.DocPartByTableRef(base.ref)
		}
	}
	return nil
}

// DocParts returns the doc parts, parents before children.
func (c *MutableCollection) DocParts() []*MutableDocPart {
	var parts []*MutableDocPart
	if c.base != nil {
		for _, base := range c.base.DocParts() {
			parts = append(parts, c.DocPartByTableRef(base.ref))
		}
	}
	for _, d := range c.docParts.values() {
		if d.base == nil {
			parts = append(parts, d)
		}
	}
	slices.SortFunc(parts, func(a, b *MutableDocPart) int {
		if a.ref.Depth() != b.ref.Depth() {
			return a.ref.Depth() - b.ref.Depth()
		}
		return strings.Compare(a.ref.Key(), b.ref.Key())
	})
	return parts
}

// AddDocPart creates the doc part of ref.
func (c *MutableCollection) AddDocPart(ref *tableref.TableRef, identifier string) (*MutableDocPart, error) {
	if err := c.checkAlive(); err != nil {
		return nil, err
	}
	if ref == nil || identifier == "" {
		return nil, invalidArgument("doc part needs a path and an identifier, got %q and %q", ref, identifier)
	}
	if c.DocPartByTableRef(ref) != nil {
		return nil, &ErrDuplicate{Kind: KindDocPart, Parent: c.String(), Key: fmt.Sprintf("path %q", ref)}
	}
	if c.DocPartByIdentifier(identifier) != nil {
		return nil, &ErrDuplicate{Kind: KindDocPart, Parent: c.String(), Key: "identifier " + identifier}
	}
	d := newMutableDocPart(ref, identifier, c)
	c.docParts.put(ref.Key(), d)
	c.changed()
	return d, nil
}

// ChangedDocParts returns the doc parts that were added or modified, in the
// order they were first touched.
func (c *MutableCollection) ChangedDocParts() []*MutableDocPart {
	var changed []*MutableDocPart
	for _, d := range c.docParts.values() {
		if d.state.HasChanged() {
			changed = append(changed, d)
		}
	}
	return changed
}

func (c *MutableCollection) lookupIndex(name string) *MutableIndex {
	if idx, ok := c.indexes.get(name); ok {
		return idx
	}
	if c.base == nil {
		return nil
	}
	base := c.base.IndexByName(name)
	if base == nil {
		return nil
	}
	idx := wrapIndex(base, c)
	c.indexes.put(name, idx)
	return idx
}

// IndexByName returns the live index with the given name, or nil.
func (c *MutableCollection) IndexByName(name string) *MutableIndex {
	if idx := c.lookupIndex(name); idx != nil && idx.state.IsAlive() {
		return idx
	}
	return nil
}

// Indexes returns the live indexes ordered by name.
func (c *MutableCollection) Indexes() []*MutableIndex {
	var indexes []*MutableIndex
	if c.base != nil {
		for _, base := range c.base.Indexes() {
			if idx := c.IndexByName(base.name); idx != nil {
				indexes = append(indexes, idx)
			}
		}
	}
	for _, idx := range c.indexes.values() {
		if idx.base == nil && idx.state.IsAlive() {
			indexes = append(indexes, idx)
		}
	}
	slices.SortFunc(indexes, func(a, b *MutableIndex) int { return strings.Compare(a.name, b.name) })
	return indexes
}

// AddIndex declares a new index. Its fields are added with
// MutableIndex.AddField.
func (c *MutableCollection) AddIndex(name string, unique bool) (*MutableIndex, error) {
	if err := c.checkAlive(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, invalidArgument("index name must not be empty")
	}
	if existing := c.lookupIndex(name); existing != nil {
		if !existing.state.IsAlive() {
			return nil, illegalTransition(KindIndex, name, existing.state, model.StateAdded)
		}
		return nil, &ErrDuplicate{Kind: KindIndex, Parent: c.String(), Key: "name " + name}
	}
	idx := newMutableIndex(name, unique, c)
	c.indexes.put(name, idx)
	c.changed()
	return idx, nil
}

// RemoveIndex drops the index with the given name. It reports whether a live
// index was found.
func (c *MutableCollection) RemoveIndex(name string) bool {
	if c.checkAlive() != nil {
		return false
	}
	idx := c.IndexByName(name)
	if idx == nil {
		return false
	}
	if idx.state == model.StateAdded {
		idx.state = model.StateNotExistent
		c.indexes.delete(name)
	} else {
		idx.state = model.StateRemoved
	}
	c.changed()
	return true
}

// RemovedIndex returns the committed index the overlay dropped under name,
// or nil.
func (c *MutableCollection) RemovedIndex(name string) *Index {
	if idx, ok := c.indexes.get(name); ok && idx.state == model.StateRemoved {
		return idx.base
	}
	return nil
}

// ChangedIndexes returns the indexes that were added or removed, in the
// order they were first touched.
func (c *MutableCollection) ChangedIndexes() []*MutableIndex {
	var changed []*MutableIndex
	for _, idx := range c.indexes.values() {
		if idx.state.HasChanged() {
			changed = append(changed, idx)
		}
	}
	return changed
}

// ImmutableCopy freezes the current state of the collection.
func (c *MutableCollection) ImmutableCopy() *Collection {
	var b *CollectionBuilder
	if c.base != nil {
		b = c.base.ToBuilder()
	} else {
		b = NewCollectionBuilder(c.name, c.identifier)
	}
	for _, d := range c.ChangedDocParts() {
		b.PutDocPart(d.ImmutableCopy())
	}
	for _, idx := range c.ChangedIndexes() {
		if idx.state == model.StateRemoved {
			b.RemoveIndex(idx.name)
			continue
		}
		b.PutIndex(idx.ImmutableCopy())
	}
	return mustBuild(b.Build())
}
