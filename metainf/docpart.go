package metainf

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/hupe1980/metacat/model"
	"github.com/hupe1980/metacat/tableref"
)

// DocPart is the table-like storage unit of one TableRef of a collection.
type DocPart struct {
	ref        *tableref.TableRef
	identifier string
	lastRowID  int64

	fieldsByID  map[string]*Field
	fieldsByKey map[fieldKey]*Field
	scalars     map[model.FieldType]*Scalar
	indexes     map[string]*DocPartIndex
}

func (d *DocPart) TableRef() *tableref.TableRef { return d.ref }
func (d *DocPart) Identifier() string           { return d.identifier }

// LastRowID returns the highest row id handed out for this doc part. It only
// grows.
func (d *DocPart) LastRowID() int64 { return d.lastRowID }

// FieldByIdentifier returns the field with the given identifier, or nil.
func (d *DocPart) FieldByIdentifier(identifier string) *Field {
	return d.fieldsByID[identifier]
}

// FieldByNameAndType returns the field with the given identity, or nil.
func (d *DocPart) FieldByNameAndType(name string, fieldType model.FieldType) *Field {
	return d.fieldsByKey[fieldKey{name: name, fieldType: fieldType}]
}

// FieldsByName returns the fields stored for name, ordered by type.
func (d *DocPart) FieldsByName(name string) []*Field {
	var fields []*Field
	for _, f := range d.fieldsByID {
		if f.name == name {
			fields = append(fields, f)
		}
	}
	sortFields(fields)
	return fields
}

// Fields returns all fields ordered by name and type.
func (d *DocPart) Fields() []*Field {
	fields := slices.Collect(maps.Values(d.fieldsByID))
	sortFields(fields)
	return fields
}

// ScalarByType returns the scalar of the given type, or nil.
func (d *DocPart) ScalarByType(fieldType model.FieldType) *Scalar {
	return d.scalars[fieldType]
}

// ScalarByIdentifier returns the scalar with the given identifier, or nil.
func (d *DocPart) ScalarByIdentifier(identifier string) *Scalar {
	for _, s := range d.scalars {
		if s.identifier == identifier {
			return s
		}
	}
	return nil
}

// Scalars returns all scalars ordered by type.
func (d *DocPart) Scalars() []*Scalar {
	scalars := slices.Collect(maps.Values(d.scalars))
	slices.SortFunc(scalars, func(a, b *Scalar) int { return cmp.Compare(a.fieldType, b.fieldType) })
	return scalars
}

// DocPartIndexByIdentifier returns the doc part index with the given
// identifier, or nil.
func (d *DocPart) DocPartIndexByIdentifier(identifier string) *DocPartIndex {
	return d.indexes[identifier]
}

// DocPartIndexes returns all doc part indexes ordered by identifier.
func (d *DocPart) DocPartIndexes() []*DocPartIndex {
	indexes := slices.Collect(maps.Values(d.indexes))
	slices.SortFunc(indexes, func(a, b *DocPartIndex) int { return strings.Compare(a.identifier, b.identifier) })
	return indexes
}

func (d *DocPart) String() string {
	return fmt.Sprintf("doc part %q (%s)", d.ref, d.identifier)
}

func sortFields(fields []*Field) {
	slices.SortFunc(fields, func(a, b *Field) int {
		return cmp.Or(strings.Compare(a.name, b.name), cmp.Compare(a.fieldType, b.fieldType))
	})
}

// DocPartBuilder assembles a DocPart. The first failing call is remembered
// and returned by Build; later calls are ignored.
type DocPartBuilder struct {
	base  *DocPart
	part  DocPart
	owned bool
	err   error
}

// NewDocPartBuilder starts an empty doc part.
func NewDocPartBuilder(ref *tableref.TableRef, identifier string) *DocPartBuilder {
	b := &DocPartBuilder{
		part: DocPart{
			ref:         ref,
			identifier:  identifier,
			fieldsByID:  map[string]*Field{},
			fieldsByKey: map[fieldKey]*Field{},
			scalars:     map[model.FieldType]*Scalar{},
			indexes:     map[string]*DocPartIndex{},
		},
		owned: true,
	}
	if ref == nil {
		b.err = invalidArgument("doc part %q needs a path", identifier)
	} else if identifier == "" {
		b.err = invalidArgument("doc part %q needs an identifier", ref)
	}
	return b
}

// ToBuilder starts a builder seeded with d. Unchanged parts stay shared.
func (d *DocPart) ToBuilder() *DocPartBuilder {
	return &DocPartBuilder{base: d, part: *d}
}

func (b *DocPartBuilder) own() {
	if b.owned {
		return
	}
	b.part.fieldsByID = maps.Clone(b.part.fieldsByID)
	b.part.fieldsByKey = maps.Clone(b.part.fieldsByKey)
	b.part.scalars = maps.Clone(b.part.scalars)
	b.part.indexes = maps.Clone(b.part.indexes)
	b.owned = true
}

// Identifier returns the identifier of the doc part being built.
func (b *DocPartBuilder) Identifier() string { return b.part.identifier }

// FieldByIdentifier looks up a field in the doc part being built.
func (b *DocPartBuilder) FieldByIdentifier(identifier string) *Field {
	return b.part.fieldsByID[identifier]
}

// PutField adds f. Putting a field that is already present is a no-op.
func (b *DocPartBuilder) PutField(f *Field) *DocPartBuilder {
	if b.err != nil {
		return b
	}
	if old := b.part.fieldsByID[f.identifier]; old != nil {
		if old.key() != f.key() {
			b.err = &ErrDuplicate{Kind: KindField, Parent: b.part.String(), Key: "identifier " + f.identifier}
		}
		return b
	}
	if old := b.part.fieldsByKey[f.key()]; old != nil {
		b.err = &ErrDuplicate{Kind: KindField, Parent: b.part.String(), Key: fmt.Sprintf("name %q and type %s", f.name, f.fieldType)}
		return b
	}
	if b.part.ScalarByIdentifier(f.identifier) != nil {
		b.err = &ErrDuplicate{Kind: KindField, Parent: b.part.String(), Key: "identifier " + f.identifier + " used by a scalar"}
		return b
	}
	b.own()
	b.part.fieldsByID[f.identifier] = f
	b.part.fieldsByKey[f.key()] = f
	return b
}

// PutScalar adds s. Putting a scalar that is already present is a no-op.
func (b *DocPartBuilder) PutScalar(s *Scalar) *DocPartBuilder {
	if b.err != nil {
		return b
	}
	if old := b.part.scalars[s.fieldType]; old != nil {
		if old.identifier != s.identifier {
			b.err = &ErrDuplicate{Kind: KindScalar, Parent: b.part.String(), Key: "type " + s.fieldType.String()}
		}
		return b
	}
	if old := b.part.ScalarByIdentifier(s.identifier); old != nil {
		b.err = &ErrDuplicate{Kind: KindScalar, Parent: b.part.String(), Key: "identifier " + s.identifier}
		return b
	}
	if b.part.fieldsByID[s.identifier] != nil {
		b.err = &ErrDuplicate{Kind: KindScalar, Parent: b.part.String(), Key: "identifier " + s.identifier + " used by a field"}
		return b
	}
	b.own()
	b.part.scalars[s.fieldType] = s
	return b
}

// PutDocPartIndex adds idx. Putting an index with the same identifier and
// columns is a no-op.
func (b *DocPartBuilder) PutDocPartIndex(idx *DocPartIndex) *DocPartBuilder {
	if b.err != nil {
		return b
	}
	if old := b.part.indexes[idx.identifier]; old != nil {
		if !old.HasSameColumns(idx) {
			b.err = &ErrDuplicate{Kind: KindDocPartIndex, Parent: b.part.String(), Key: "identifier " + idx.identifier}
		}
		return b
	}
	b.own()
	b.part.indexes[idx.identifier] = idx
	return b
}

// RemoveDocPartIndex drops the doc part index with the given identifier.
func (b *DocPartBuilder) RemoveDocPartIndex(identifier string) *DocPartBuilder {
	if b.err != nil || b.part.indexes[identifier] == nil {
		return b
	}
	b.own()
	delete(b.part.indexes, identifier)
	return b
}

// SetLastRowID raises the row id counter. Lowering it is an error.
func (b *DocPartBuilder) SetLastRowID(rowID int64) *DocPartBuilder {
	if b.err != nil || rowID == b.part.lastRowID {
		return b
	}
	if rowID < b.part.lastRowID {
		b.err = invalidArgument("%s: row id counter cannot go back from %d to %d", b.part.String(), b.part.lastRowID, rowID)
		return b
	}
	b.own()
	b.part.lastRowID = rowID
	return b
}

// Build returns the doc part. A builder seeded by ToBuilder that saw no
// change returns the original instance.
func (b *DocPartBuilder) Build() (*DocPart, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.owned {
		return b.base, nil
	}
	for _, idx := range b.part.indexes {
		for _, c := range idx.columns {
			if b.part.fieldsByID[c.Identifier] == nil {
				return nil, invalidArgument("%s: doc part index %q refers to unknown field %q", b.part.String(), idx.identifier, c.Identifier)
			}
		}
	}
	part := b.part
	b.owned = false
	b.base = &part
	return &part, nil
}
