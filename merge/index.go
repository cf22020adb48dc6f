package merge

import (
	"fmt"
	"slices"

	"github.com/hupe1980/metacat/metainf"
	"github.com/hupe1980/metacat/model"
)

func (m *merger) index(col *metainf.MutableCollection, oldCol *metainf.Collection, b *metainf.CollectionBuilder, idx *metainf.MutableIndex) *Conflict {
	byName := oldCol.IndexByName(idx.Name())
	changed := idx.ImmutableCopy()

	switch idx.State() {
	case model.StateAdded, model.StateModified:
		if old := conflictingIndex(col, oldCol, changed); old != nil {
			return newConflict(ReasonIndexClash, metainf.KindIndex, old.Name(), func(parent string) string {
				return fmt.Sprintf("there is a previous index %s on %s that conflicts with new index %s", old, parent, changed)
			})
		}
		if part := docPartMissingIndex(col, oldCol, changed); part != nil {
			return newConflict(ReasonMissingDocPartIndex, metainf.KindIndex, changed.Name(), func(parent string) string {
				return fmt.Sprintf("there should be a doc part index on %s.%s for new index %s but it was not created",
					parent, RenderPath([]Ancestor{docPartAncestor(part)}), changed)
			})
		}
	case model.StateRemoved:
		if orphan, part := orphanDocPartIndex(col, oldCol, changed); orphan != nil {
			return newConflict(ReasonOrphanDocPartIndex, metainf.KindDocPartIndex, orphan.Identifier(), func(parent string) string {
				return fmt.Sprintf("there is a previous doc part index %s on %s.%s associated only with removed index %s that was not removed",
					orphan, parent, RenderPath([]Ancestor{docPartAncestor(part)}), changed)
			})
		}
	}

	act := pick(idx.State(), relate(byName, byName))
	m.stats.count(act)

	switch act {
	case actInsert:
		b.PutIndex(changed)
	case actDelete:
		b.RemoveIndex(byName.Name())
	}
	// An added index whose name is committed was reported by
	// conflictingIndex, so actRecurse has nothing left to do.
	return nil
}

// survives reports whether the committed index old is still alive once the
// overlay is applied.
func survives(col *metainf.MutableCollection, old *metainf.Index) bool {
	return col.RemovedIndex(old.Name()) == nil
}

// addedIndexes returns the indexes created by the overlay.
func addedIndexes(col *metainf.MutableCollection) []*metainf.Index {
	var added []*metainf.Index
	for _, idx := range col.ChangedIndexes() {
		if idx.State() == model.StateAdded {
			added = append(added, idx.ImmutableCopy())
		}
	}
	return added
}

// conflictingIndex returns the surviving committed index that has the name
// or the fields of the new index.
func conflictingIndex(col *metainf.MutableCollection, oldCol *metainf.Collection, changed *metainf.Index) *metainf.Index {
	for _, old := range oldCol.Indexes() {
		if old.IsMatch(changed) && survives(col, old) {
			return old
		}
	}
	return nil
}

// docPartMissingIndex returns the committed doc part that lacks a doc part
// index for one of the column combinations the new index needs there.
func docPartMissingIndex(col *metainf.MutableCollection, oldCol *metainf.Collection, changed *metainf.Index) *metainf.DocPart {
	for _, ref := range changed.TableRefs() {
		part := oldCol.DocPartByTableRef(ref)
		if part == nil || !changed.IsCompatible(part) {
			continue
		}
		overlay := col.DocPartByTableRef(ref)
		for _, identifiers := range changed.DocPartIndexIdentifiers(part) {
			realized := slices.ContainsFunc(part.DocPartIndexes(), func(dpi *metainf.DocPartIndex) bool {
				return changed.IsMatchFor(part, identifiers, dpi) &&
					(overlay == nil || !overlay.IsRemovedDocPartIndex(dpi.Identifier()))
			})
			if !realized && overlay != nil {
				realized = slices.ContainsFunc(overlay.ChangedDocPartIndexes(), func(c metainf.DocPartIndexChange) bool {
					return c.State == model.StateAdded && changed.IsMatchFor(overlay, identifiers, c.Index)
				})
			}
			if !realized {
				return part
			}
		}
	}
	return nil
}

// orphanDocPartIndex returns a committed doc part index realizing the
// removed index that no surviving index needs and the overlay kept.
func orphanDocPartIndex(col *metainf.MutableCollection, oldCol *metainf.Collection, removed *metainf.Index) (*metainf.DocPartIndex, *metainf.DocPart) {
	added := addedIndexes(col)
	for _, ref := range removed.TableRefs() {
		part := oldCol.DocPartByTableRef(ref)
		if part == nil || !removed.IsCompatible(part) {
			continue
		}
		overlay := col.DocPartByTableRef(ref)
		for _, dpi := range part.DocPartIndexes() {
			if !removed.IsCompatibleWith(part, dpi) {
				continue
			}
			if overlay != nil && overlay.IsRemovedDocPartIndex(dpi.Identifier()) {
				continue
			}
			needed := slices.ContainsFunc(oldCol.Indexes(), func(old *metainf.Index) bool {
				return survives(col, old) && old.IsCompatibleWith(part, dpi)
			}) || slices.ContainsFunc(added, func(idx *metainf.Index) bool {
				return idx.IsCompatibleWith(part, dpi)
			})
			if !needed {
				return dpi, part
			}
		}
	}
	return nil, nil
}

// hasRelatedIndex reports whether a surviving or new index is realized by the
// new doc part index dpi of doc part d.
func hasRelatedIndex(col *metainf.MutableCollection, oldCol *metainf.Collection, d *metainf.MutableDocPart, dpi *metainf.DocPartIndex) bool {
	for _, idx := range addedIndexes(col) {
		if idx.IsCompatibleWith(d, dpi) {
			return true
		}
	}
	for _, old := range oldCol.Indexes() {
		if survives(col, old) && old.IsCompatibleWith(d, dpi) {
			return true
		}
	}
	return false
}

// indexNeeding returns a surviving committed index that the removed doc part
// index dpi of oldPart realizes.
func indexNeeding(col *metainf.MutableCollection, oldCol *metainf.Collection, oldPart *metainf.DocPart, dpi *metainf.DocPartIndex) *metainf.Index {
	for _, old := range oldCol.Indexes() {
		if survives(col, old) && old.IsCompatibleWith(oldPart, dpi) {
			return old
		}
	}
	return nil
}

// missedIndexForField returns the surviving committed index that covers the
// new field f of d but lacks a doc part index for one of the column
// combinations f takes part in.
func missedIndexForField(col *metainf.MutableCollection, oldCol *metainf.Collection, d *metainf.MutableDocPart, f *metainf.Field) *metainf.Index {
	for _, old := range oldCol.Indexes() {
		if _, ok := old.FieldByTableRefAndName(d.TableRef(), f.Name()); !ok || !survives(col, old) {
			continue
		}
		if col.IndexByName(old.Name()) == nil {
			// Committed by another writer: the overlay could not create
			// the doc part index it needs.
			return old
		}
		for _, identifiers := range old.DocPartIndexIdentifiers(d) {
			if !slices.Contains(identifiers, f.Identifier()) {
				continue
			}
			if !slices.ContainsFunc(d.DocPartIndexes(), func(dpi *metainf.DocPartIndex) bool {
				return old.IsMatchFor(d, identifiers, dpi)
			}) {
				return old
			}
		}
	}
	return nil
}
