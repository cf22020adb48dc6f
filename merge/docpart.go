package merge

import (
	"fmt"
	"strings"

	"github.com/hupe1980/metacat/metainf"
	"github.com/hupe1980/metacat/model"
)

func (m *merger) docPart(col *metainf.MutableCollection, oldCol *metainf.Collection, b *metainf.CollectionBuilder, d *metainf.MutableDocPart) *Conflict {
	byRef := oldCol.DocPartByTableRef(d.TableRef())
	byID := oldCol.DocPartByIdentifier(d.Identifier())
	rel := relate(byRef, byID)

	act := pick(d.State(), rel)
	m.stats.count(act)

	switch act {
	case actInsert:
		b.PutDocPart(d.ImmutableCopy())
	case actConflict:
		old := byRef
		if rel == relIdentifierClash {
			old = byID
		}
		return clash(metainf.KindDocPart, rel, "path", d.TableRef().String(), d.Identifier(), old.TableRef().String(), old.Identifier())
	case actRecurse:
		child := byID.ToBuilder()
		for _, f := range d.AddedFields() {
			if c := m.field(col, oldCol, d, byID, child, f); c != nil {
				return c.within(docPartAncestor(byID))
			}
		}
		for _, s := range d.AddedScalars() {
			if c := m.scalar(byID, child, s); c != nil {
				return c.within(docPartAncestor(byID))
			}
		}
		for _, change := range d.ChangedDocPartIndexes() {
			if c := m.docPartIndex(col, oldCol, d, byID, child, change); c != nil {
				return c.within(docPartAncestor(byID))
			}
		}
		if d.ReservedRowIDs() > 0 {
			if byID.LastRowID() != d.BaseLastRowID() {
				return rowIDClash(d, byID).within(docPartAncestor(byID))
			}
			child.SetLastRowID(d.LastRowID())
		}
		merged, c := finish(child.Build())
		if c != nil {
			return c.within(docPartAncestor(byID))
		}
		b.PutDocPart(merged)
	}
	return nil
}

func rowIDClash(d *metainf.MutableDocPart, old *metainf.DocPart) *Conflict {
	base, committed, reserved := d.BaseLastRowID(), old.LastRowID(), d.ReservedRowIDs()
	return newConflict(ReasonRowIDClash, metainf.KindDocPart, d.Identifier(), func(parent string) string {
		return fmt.Sprintf("%d row ids were reserved on %s after row %d but %s already handed out rows up to %d",
			reserved, d, base, parent, committed)
	})
}

func fieldIdentity(name string, fieldType model.FieldType) string {
	return name + ":" + fieldType.String()
}

// field merges a field added to a doc part that exists in both snapshots.
// Fields are never modified nor removed.
func (m *merger) field(col *metainf.MutableCollection, oldCol *metainf.Collection, d *metainf.MutableDocPart, oldPart *metainf.DocPart, b *metainf.DocPartBuilder, f *metainf.Field) *Conflict {
	byKey := oldPart.FieldByNameAndType(f.Name(), f.Type())
	byID := oldPart.FieldByIdentifier(f.Identifier())
	rel := relate(byKey, byID)

	if rel == relNone {
		if s := oldPart.ScalarByIdentifier(f.Identifier()); s != nil {
			return newConflict(ReasonIdentifierClash, metainf.KindField, f.Identifier(), func(parent string) string {
				return fmt.Sprintf("identifier %s of new field %s is used by %s on %s", f.Identifier(), f, s, parent)
			})
		}
	}

	act := pick(model.StateAdded, rel)
	m.stats.count(act)

	switch act {
	case actInsert:
		if idx := missedIndexForField(col, oldCol, d, f); idx != nil {
			return newConflict(ReasonMissingDocPartIndex, metainf.KindField, f.Identifier(), func(parent string) string {
				return fmt.Sprintf("there is a previous index %s on %s that covers new field %s but the doc part index it needs was not created",
					idx, parent, f)
			})
		}
		b.PutField(f)
	case actConflict:
		old := byKey
		if rel == relIdentifierClash {
			old = byID
		}
		return clash(metainf.KindField, rel, "name and type", fieldIdentity(f.Name(), f.Type()), f.Identifier(),
			fieldIdentity(old.Name(), old.Type()), old.Identifier())
	}
	return nil
}

// scalar merges a scalar added to a doc part that exists in both snapshots.
func (m *merger) scalar(oldPart *metainf.DocPart, b *metainf.DocPartBuilder, s *metainf.Scalar) *Conflict {
	byType := oldPart.ScalarByType(s.Type())
	byID := oldPart.ScalarByIdentifier(s.Identifier())
	rel := relate(byType, byID)

	if rel == relNone {
		if f := oldPart.FieldByIdentifier(s.Identifier()); f != nil {
			return newConflict(ReasonIdentifierClash, metainf.KindScalar, s.Identifier(), func(parent string) string {
				return fmt.Sprintf("identifier %s of new %s is used by field %s on %s", s.Identifier(), s, f, parent)
			})
		}
	}

	act := pick(model.StateAdded, rel)
	m.stats.count(act)

	switch act {
	case actInsert:
		b.PutScalar(s)
	case actConflict:
		old := byType
		if rel == relIdentifierClash {
			old = byID
		}
		return clash(metainf.KindScalar, rel, "type", s.Type().String(), s.Identifier(), old.Type().String(), old.Identifier())
	}
	return nil
}

func columnsOf(idx *metainf.DocPartIndex) string {
	cols := idx.Columns()
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c.Identifier + " " + c.Ordering.String()
	}
	s := "(" + strings.Join(parts, ", ") + ")"
	if idx.IsUnique() {
		s = "unique " + s
	}
	return s
}

// sameColumns returns the committed doc part index with the columns of idx,
// preferring the one with the same identifier.
func sameColumns(oldPart *metainf.DocPart, idx, byID *metainf.DocPartIndex) *metainf.DocPartIndex {
	if byID != nil && byID.HasSameColumns(idx) {
		return byID
	}
	for _, old := range oldPart.DocPartIndexes() {
		if old.HasSameColumns(idx) {
			return old
		}
	}
	return nil
}

func (m *merger) docPartIndex(col *metainf.MutableCollection, oldCol *metainf.Collection, d *metainf.MutableDocPart, oldPart *metainf.DocPart, b *metainf.DocPartBuilder, change metainf.DocPartIndexChange) *Conflict {
	idx := change.Index
	byID := oldPart.DocPartIndexByIdentifier(idx.Identifier())
	bySame := sameColumns(oldPart, idx, byID)
	rel := relate(bySame, byID)

	switch change.State {
	case model.StateAdded:
		if !hasRelatedIndex(col, oldCol, d, idx) {
			return newConflict(ReasonOrphanDocPartIndex, metainf.KindDocPartIndex, idx.Identifier(), func(parent string) string {
				return fmt.Sprintf("there is a new doc part index %s on %s that has no index associated", idx, parent)
			})
		}
	case model.StateRemoved:
		if missed := indexNeeding(col, oldCol, oldPart, idx); missed != nil {
			return newConflict(ReasonMissingDocPartIndex, metainf.KindDocPartIndex, idx.Identifier(), func(parent string) string {
				return fmt.Sprintf("there is a previous index %s that is realized by the removed doc part index %s on %s", missed, idx, parent)
			})
		}
	}

	act := pick(change.State, rel)
	m.stats.count(act)

	switch act {
	case actInsert:
		b.PutDocPartIndex(idx)
	case actDelete:
		b.RemoveDocPartIndex(byID.Identifier())
	case actConflict:
		old := bySame
		if rel == relIdentifierClash {
			old = byID
		}
		return clash(metainf.KindDocPartIndex, rel, "columns", columnsOf(idx), idx.Identifier(), columnsOf(old), old.Identifier())
	}
	return nil
}
