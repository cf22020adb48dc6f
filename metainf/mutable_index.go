package metainf

import (
	"fmt"
	"slices"

	"github.com/hupe1980/metacat/model"
	"github.com/hupe1980/metacat/tableref"
)

// MutableIndex is the overlay view of a logical index. Only indexes added by
// the overlay accept new fields; committed indexes can only be removed.
type MutableIndex struct {
	base     *Index
	name     string
	unique   bool
	fields   []IndexField
	state    model.ElementState
	parent   container
}

func newMutableIndex(name string, unique bool, parent container) *MutableIndex {
	return &MutableIndex{name: name, unique: unique, state: model.StateAdded, parent: parent}
}

func wrapIndex(base *Index, parent container) *MutableIndex {
	return &MutableIndex{
		base:     base,
		name:     base.name,
		unique:   base.unique,
		fields:   base.fields,
		state:    model.StateNotChanged,
		parent:   parent,
	}
}

func (i *MutableIndex) Name() string              { return i.name }
func (i *MutableIndex) IsUnique() bool            { return i.unique }
func (i *MutableIndex) State() model.ElementState { return i.state }
func (i *MutableIndex) Size() int                 { return len(i.fields) }

// Base returns the committed index, or nil when the index was added by the
// overlay.
func (i *MutableIndex) Base() *Index { return i.base }

// Fields returns the fields in position order.
func (i *MutableIndex) Fields() []IndexField { return slices.Clone(i.fields) }

// AddField appends a field at the next position.
func (i *MutableIndex) AddField(ref *tableref.TableRef, name string, ordering model.FieldIndexOrdering) (IndexField, error) {
	if i.state != model.StateAdded {
		return IndexField{}, illegalTransition(KindIndex, i.name, i.state, model.StateModified)
	}
	if err := i.parent.checkAlive(); err != nil {
		return IndexField{}, err
	}
	f := IndexField{Position: len(i.fields), TableRef: ref, Name: name, Ordering: ordering}
	if err := validateIndexField(i.name, f); err != nil {
		return IndexField{}, err
	}
	for _, prev := range i.fields {
		if prev.TableRef.Equal(ref) && prev.Name == name {
			return IndexField{}, &ErrDuplicate{Kind: KindIndexField, Parent: "index " + i.name, Key: fmt.Sprintf("path %q and name %q", ref, name)}
		}
	}
	i.fields = append(i.fields, f)
	i.parent.changed()
	return f, nil
}

// ImmutableCopy freezes the current state of the index.
func (i *MutableIndex) ImmutableCopy() *Index {
	if i.base != nil {
		return i.base
	}
	return mustBuild(NewIndex(i.name, i.unique, i.fields...))
}
