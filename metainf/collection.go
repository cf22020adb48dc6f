package metainf

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/hupe1980/metacat/tableref"
)

// Collection groups the doc parts and indexes of one document collection.
type Collection struct {
	name       string
	identifier string

	docParts     map[string]*DocPart // by TableRef key
	docPartsByID map[string]*DocPart
	indexes      map[string]*Index
}

func (c *Collection) Name() string       { return c.name }
func (c *Collection) Identifier() string { return c.identifier }

// DocPartByTableRef returns the doc part stored at ref, or nil.
func (c *Collection) DocPartByTableRef(ref *tableref.TableRef) *DocPart {
	return c.docParts[ref.Key()]
}

// DocPartByIdentifier returns the doc part with the given identifier, or nil.
func (c *Collection) DocPartByIdentifier(identifier string) *DocPart {
	return c.docPartsByID[identifier]
}

// DocParts returns the doc parts, parents before children.
func (c *Collection) DocParts() []*DocPart {
	parts := slices.Collect(maps.Values(c.docParts))
	sortDocParts(parts)
	return parts
}

// IndexByName returns the index with the given name, or nil.
func (c *Collection) IndexByName(name string) *Index {
	return c.indexes[name]
}

// Indexes returns the indexes ordered by name.
func (c *Collection) Indexes() []*Index {
	indexes := slices.Collect(maps.Values(c.indexes))
	slices.SortFunc(indexes, func(a, b *Index) int { return strings.Compare(a.name, b.name) })
	return indexes
}

func (c *Collection) String() string {
	return fmt.Sprintf("collection %q (%s)", c.name, c.identifier)
}

func sortDocParts(parts []*DocPart) {
	slices.SortFunc(parts, func(a, b *DocPart) int {
		return cmp.Or(cmp.Compare(a.ref.Depth(), b.ref.Depth()), strings.Compare(a.ref.Key(), b.ref.Key()))
	})
}

// CollectionBuilder assembles a Collection. The first failing call is
// remembered and returned by Build.
type CollectionBuilder struct {
	base  *Collection
	col   Collection
	owned bool
	err   error
}

// NewCollectionBuilder starts an empty collection.
func NewCollectionBuilder(name, identifier string) *CollectionBuilder {
	b := &CollectionBuilder{
		col: Collection{
			name:         name,
			identifier:   identifier,
			docParts:     map[string]*DocPart{},
			docPartsByID: map[string]*DocPart{},
			indexes:      map[string]*Index{},
		},
		owned: true,
	}
	if name == "" || identifier == "" {
		b.err = invalidArgument("collection needs a name and an identifier, got %q and %q", name, identifier)
	}
	return b
}

// ToBuilder starts a builder seeded with c. Unchanged parts stay shared.
func (c *Collection) ToBuilder() *CollectionBuilder {
	return &CollectionBuilder{base: c, col: *c}
}

func (b *CollectionBuilder) own() {
	if b.owned {
		return
	}
	b.col.docParts = maps.Clone(b.col.docParts)
	b.col.docPartsByID = maps.Clone(b.col.docPartsByID)
	b.col.indexes = maps.Clone(b.col.indexes)
	b.owned = true
}

// DocPartByTableRef looks up a doc part in the collection being built.
func (b *CollectionBuilder) DocPartByTableRef(ref *tableref.TableRef) *DocPart {
	return b.col.docParts[ref.Key()]
}

// PutDocPart adds d, or replaces the doc part with the same path and
// identifier.
func (b *CollectionBuilder) PutDocPart(d *DocPart) *CollectionBuilder {
	if b.err != nil {
		return b
	}
	if old := b.col.docParts[d.ref.Key()]; old != nil && old.identifier != d.identifier {
		b.err = &ErrDuplicate{Kind: KindDocPart, Parent: b.col.String(), Key: fmt.Sprintf("path %q", d.ref)}
		return b
	}
	if old := b.col.docPartsByID[d.identifier]; old != nil && !old.ref.Equal(d.ref) {
		b.err = &ErrDuplicate{Kind: KindDocPart, Parent: b.col.String(), Key: "identifier " + d.identifier}
		return b
	}
	b.own()
	b.col.docParts[d.ref.Key()] = d
	b.col.docPartsByID[d.identifier] = d
	return b
}

// PutIndex adds idx. Putting an index equal to the present one is a no-op.
func (b *CollectionBuilder) PutIndex(idx *Index) *CollectionBuilder {
	if b.err != nil {
		return b
	}
	if old := b.col.indexes[idx.name]; old != nil {
		if !old.HasSameFields(idx) {
			b.err = &ErrDuplicate{Kind: KindIndex, Parent: b.col.String(), Key: fmt.Sprintf("name %q", idx.name)}
		}
		return b
	}
	b.own()
	b.col.indexes[idx.name] = idx
	return b
}

// RemoveIndex drops the index with the given name.
func (b *CollectionBuilder) RemoveIndex(name string) *CollectionBuilder {
	if b.err != nil || b.col.indexes[name] == nil {
		return b
	}
	b.own()
	delete(b.col.indexes, name)
	return b
}

// Build returns the collection. A builder seeded by ToBuilder that saw no
// change returns the original instance.
func (b *CollectionBuilder) Build() (*Collection, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.owned {
		return b.base, nil
	}
	col := b.col
	b.owned = false
	b.base = &col
	return &col, nil
}
