package metainf

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/hupe1980/metacat/model"
	"github.com/hupe1980/metacat/tableref"
)

// DocPartIndexChange is a doc part index together with what the overlay did
// to it.
type DocPartIndexChange struct {
	State model.ElementState
	Index *DocPartIndex
}

// MutableDocPart is the overlay view of a doc part. Fields and scalars can
// only be added; doc part indexes can be added and removed.
type MutableDocPart struct {
	base       *DocPart
	ref        *tableref.TableRef
	identifier string
	state      model.ElementState
	parent     container

	addedFields  []*Field
	fieldsByID   map[string]*Field
	fieldsByKey  map[fieldKey]*Field
	addedScalars []*Scalar
	indexes      tracked[DocPartIndexChange]
	rowIDs       int64
}

func newMutableDocPart(ref *tableref.TableRef, identifier string, parent container) *MutableDocPart {
	return &MutableDocPart{
		ref:         ref,
		identifier:  identifier,
		state:       model.StateAdded,
		parent:      parent,
		fieldsByID:  map[string]*Field{},
		fieldsByKey: map[fieldKey]*Field{},
		indexes:     newTracked[DocPartIndexChange](),
	}
}

func wrapDocPart(base *DocPart, parent container) *MutableDocPart {
	d := newMutableDocPart(base.ref, base.identifier, parent)
	d.base = base
	d.state = model.StateNotChanged
	return d
}

func (d *MutableDocPart) TableRef() *tableref.TableRef { return d.ref }
func (d *MutableDocPart) Identifier() string           { return d.identifier }
func (d *MutableDocPart) State() model.ElementState    { return d.state }

// Base returns the committed doc part, or nil when the doc part was added by
// the overlay.
func (d *MutableDocPart) Base() *DocPart { return d.base }

func (d *MutableDocPart) String() string {
	return fmt.Sprintf("doc part %q (%s)", d.ref, d.identifier)
}

func (d *MutableDocPart) changed() {
	d.state = d.state.Next()
	d.parent.changed()
}

// checkAlive fails once the collection or database holding the doc part was
// removed from the overlay.
func (d *MutableDocPart) checkAlive() error {
	if !d.state.IsAlive() {
		return illegalTransition(KindDocPart, d.identifier, d.state, model.StateModified)
	}
	return d.parent.checkAlive()
}

// FieldByIdentifier returns the field with the given identifier, or nil.
func (d *MutableDocPart) FieldByIdentifier(identifier string) *Field {
	if f := d.fieldsByID[identifier]; f != nil {
		return f
	}
	if d.base != nil {
		return d.base.FieldByIdentifier(identifier)
	}
	return nil
}

// FieldByNameAndType returns the field with the given identity, or nil.
func (d *MutableDocPart) FieldByNameAndType(name string, fieldType model.FieldType) *Field {
	if f := d.fieldsByKey[fieldKey{name: name, fieldType: fieldType}]; f != nil {
		return f
	}
	if d.base != nil {
		return d.base.FieldByNameAndType(name, fieldType)
	}
	return nil
}

// FieldsByName returns the fields stored for name, ordered by type.
func (d *MutableDocPart) FieldsByName(name string) []*Field {
	var fields []*Field
	if d.base != nil {
		fields = d.base.FieldsByName(name)
	}
	for _, f := range d.addedFields {
		if f.name == name {
			fields = append(fields, f)
		}
	}
	sortFields(fields)
	return fields
}

// Fields returns all fields ordered by name and type.
func (d *MutableDocPart) Fields() []*Field {
	var fields []*Field
	if d.base != nil {
		fields = d.base.Fields()
	}
	fields = append(fields, d.addedFields...)
	sortFields(fields)
	return fields
}

// AddedFields returns the fields added by the overlay, in insertion order.
func (d *MutableDocPart) AddedFields() []*Field { return slices.Clone(d.addedFields) }

// IsAddedField reports whether the field with the given identifier was
// added by the overlay.
func (d *MutableDocPart) IsAddedField(identifier string) bool {
	return d.fieldsByID[identifier] != nil
}

// AddField adds a column for the attribute name stored with fieldType.
func (d *MutableDocPart) AddField(name, identifier string, fieldType model.FieldType) (*Field, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	f, err := NewField(name, identifier, fieldType)
	if err != nil {
		return nil, err
	}
	if d.FieldByNameAndType(name, fieldType) != nil {
		return nil, &ErrDuplicate{Kind: KindField, Parent: d.String(), Key: fmt.Sprintf("name %q and type %s", name, fieldType)}
	}
	if d.columnInUse(identifier) {
		return nil, &ErrDuplicate{Kind: KindField, Parent: d.String(), Key: "identifier " + identifier}
	}
	d.addedFields = append(d.addedFields, f)
	d.fieldsByID[identifier] = f
	d.fieldsByKey[f.key()] = f
	d.changed()
	return f, nil
}

func (d *MutableDocPart) columnInUse(identifier string) bool {
	return d.FieldByIdentifier(identifier) != nil || d.ScalarByIdentifier(identifier) != nil
}

// ScalarByType returns the scalar of the given type, or nil.
func (d *MutableDocPart) ScalarByType(fieldType model.FieldType) *Scalar {
	for _, s := range d.addedScalars {
		if s.fieldType == fieldType {
			return s
		}
	}
	if d.base != nil {
		return d.base.ScalarByType(fieldType)
	}
	return nil
}

// ScalarByIdentifier returns the scalar with the given identifier, or nil.
func (d *MutableDocPart) ScalarByIdentifier(identifier string) *Scalar {
	for _, s := range d.addedScalars {
		if s.identifier == identifier {
			return s
		}
	}
	if d.base != nil {
		return d.base.ScalarByIdentifier(identifier)
	}
	return nil
}

// Scalars returns all scalars ordered by type.
func (d *MutableDocPart) Scalars() []*Scalar {
	var scalars []*Scalar
	if d.base != nil {
		scalars = d.base.Scalars()
	}
	scalars = append(scalars, d.addedScalars...)
	slices.SortFunc(scalars, func(a, b *Scalar) int { return cmp.Compare(a.fieldType, b.fieldType) })
	return scalars
}

// AddedScalars returns the scalars added by the overlay, in insertion order.
func (d *MutableDocPart) AddedScalars() []*Scalar { return slices.Clone(d.addedScalars) }

// AddScalar adds the scalar column for fieldType.
func (d *MutableDocPart) AddScalar(identifier string, fieldType model.FieldType) (*Scalar, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	s, err := NewScalar(identifier, fieldType)
	if err != nil {
		return nil, err
	}
	if d.ScalarByType(fieldType) != nil {
		return nil, &ErrDuplicate{Kind: KindScalar, Parent: d.String(), Key: "type " + fieldType.String()}
	}
	if d.columnInUse(identifier) {
		return nil, &ErrDuplicate{Kind: KindScalar, Parent: d.String(), Key: "identifier " + identifier}
	}
	d.addedScalars = append(d.addedScalars, s)
	d.changed()
	return s, nil
}

// DocPartIndexByIdentifier returns the live doc part index with the given
// identifier, or nil.
func (d *MutableDocPart) DocPartIndexByIdentifier(identifier string) *DocPartIndex {
	if c, ok := d.indexes.get(identifier); ok {
		if c.State.IsAlive() {
			return c.Index
		}
		return nil
	}
	if d.base != nil {
		return d.base.DocPartIndexByIdentifier(identifier)
	}
	return nil
}

// DocPartIndexes returns the live doc part indexes ordered by identifier.
func (d *MutableDocPart) DocPartIndexes() []*DocPartIndex {
	var indexes []*DocPartIndex
	if d.base != nil {
		for _, idx := range d.base.DocPartIndexes() {
			if _, touched := d.indexes.get(idx.identifier); !touched {
				indexes = append(indexes, idx)
			}
		}
	}
	for _, c := range d.indexes.values() {
		if c.State.IsAlive() {
			indexes = append(indexes, c.Index)
		}
	}
	slices.SortFunc(indexes, func(a, b *DocPartIndex) int { return strings.Compare(a.identifier, b.identifier) })
	return indexes
}

// AddDocPartIndex creates a physical index on columns of this doc part.
// Every column must refer to a field of the doc part.
func (d *MutableDocPart) AddDocPartIndex(identifier string, unique bool, columns ...DocPartIndexColumn) (*DocPartIndex, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	idx, err := NewDocPartIndex(identifier, unique, columns...)
	if err != nil {
		return nil, err
	}
	if c, ok := d.indexes.get(identifier); ok && c.State == model.StateRemoved {
		return nil, illegalTransition(KindDocPartIndex, identifier, c.State, model.StateAdded)
	}
	if d.DocPartIndexByIdentifier(identifier) != nil {
		return nil, &ErrDuplicate{Kind: KindDocPartIndex, Parent: d.String(), Key: "identifier " + identifier}
	}
	for _, c := range idx.columns {
		if d.FieldByIdentifier(c.Identifier) == nil {
			return nil, invalidArgument("%s has no field %q for doc part index %q", d, c.Identifier, identifier)
		}
	}
	d.indexes.put(identifier, DocPartIndexChange{State: model.StateAdded, Index: idx})
	d.changed()
	return idx, nil
}

// RemoveDocPartIndex drops the doc part index with the given identifier. It
// reports whether a live index was found.
func (d *MutableDocPart) RemoveDocPartIndex(identifier string) bool {
	if d.checkAlive() != nil {
		return false
	}
	idx := d.DocPartIndexByIdentifier(identifier)
	if idx == nil {
		return false
	}
	if c, ok := d.indexes.get(identifier); ok && c.State == model.StateAdded {
		d.indexes.delete(identifier)
	} else {
		d.indexes.put(identifier, DocPartIndexChange{State: model.StateRemoved, Index: idx})
	}
	d.changed()
	return true
}

// IsRemovedDocPartIndex reports whether the overlay dropped the committed
// doc part index with the given identifier.
func (d *MutableDocPart) IsRemovedDocPartIndex(identifier string) bool {
	c, ok := d.indexes.get(identifier)
	return ok && c.State == model.StateRemoved
}

// ChangedDocPartIndexes returns the doc part indexes that were added or
// removed, in the order they were first touched.
func (d *MutableDocPart) ChangedDocPartIndexes() []DocPartIndexChange {
	return d.indexes.values()
}

// LastRowID returns the highest row id handed out, including the ids
// reserved by this overlay.
func (d *MutableDocPart) LastRowID() int64 {
	return d.BaseLastRowID() + d.rowIDs
}

// BaseLastRowID returns the row id counter of the committed doc part.
func (d *MutableDocPart) BaseLastRowID() int64 {
	if d.base == nil {
		return 0
	}
	return d.base.lastRowID
}

// ReservedRowIDs returns how many row ids this overlay reserved.
func (d *MutableDocPart) ReservedRowIDs() int64 { return d.rowIDs }

// ReserveRowIDs reserves n consecutive row ids and returns the first one.
func (d *MutableDocPart) ReserveRowIDs(n int64) (int64, error) {
	if err := d.checkAlive(); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, invalidArgument("cannot reserve %d row ids", n)
	}
	if n > math.MaxInt64-d.LastRowID() {
		return 0, invalidArgument("cannot reserve %d row ids after row id %d", n, d.LastRowID())
	}
	first := d.LastRowID() + 1
	d.rowIDs += n
	d.changed()
	return first, nil
}

// ImmutableCopy freezes the current state of the doc part. It returns the
// committed doc part when nothing changed.
func (d *MutableDocPart) ImmutableCopy() *DocPart {
	var b *DocPartBuilder
	if d.base != nil {
		b = d.base.ToBuilder()
	} else {
		b = NewDocPartBuilder(d.ref, d.identifier)
	}
	for _, f := range d.addedFields {
		b.PutField(f)
	}
	for _, s := range d.addedScalars {
		b.PutScalar(s)
	}
	for _, c := range d.indexes.values() {
		if c.State == model.StateRemoved {
			b.RemoveDocPartIndex(c.Index.identifier)
			continue
		}
		b.PutDocPartIndex(c.Index)
	}
	b.SetLastRowID(d.LastRowID())
	return mustBuild(b.Build())
}
