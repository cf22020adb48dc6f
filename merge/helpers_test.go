package merge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metacat/metainf"
	"github.com/hupe1980/metacat/model"
	"github.com/hupe1980/metacat/tableref"
)

var refs = tableref.NewFactory()

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func asc(position int, identifier string) metainf.DocPartIndexColumn {
	return metainf.DocPartIndexColumn{Position: position, Identifier: identifier, Ordering: model.Ascending}
}

// baseSnapshot returns dbName1/colName1 with a root doc part holding
// fieldName1 (integer), an integer scalar, the doc part index idxId1 on
// fieldName1 and the index idxName1 it realizes.
func baseSnapshot(t *testing.T) *metainf.Snapshot {
	t.Helper()

	part, err := metainf.NewDocPartBuilder(refs.Root(), "docPartId1").
		PutField(must(metainf.NewField("fieldName1", "fieldId1", model.FieldTypeInteger))).
		PutScalar(must(metainf.NewScalar("scalarId1", model.FieldTypeInteger))).
		PutDocPartIndex(must(metainf.NewDocPartIndex("idxId1", false, asc(0, "fieldId1")))).
		Build()
	require.NoError(t, err)

	col, err := metainf.NewCollectionBuilder("colName1", "colId1").
		PutDocPart(part).
		PutIndex(must(metainf.NewIndex("idxName1", false,
			metainf.IndexField{Position: 0, TableRef: refs.Root(), Name: "fieldName1", Ordering: model.Ascending}))).
		Build()
	require.NoError(t, err)

	db, err := metainf.NewDatabaseBuilder("dbName1", "dbId1").PutCollection(col).Build()
	require.NoError(t, err)

	snap, err := metainf.NewSnapshotBuilder().PutDatabase(db).Build()
	require.NoError(t, err)
	return snap
}

// derive applies change to an overlay over base and freezes it, the way a
// concurrent writer would have committed it.
func derive(t *testing.T, base *metainf.Snapshot, change func(*metainf.MutableSnapshot)) *metainf.Snapshot {
	t.Helper()
	overlay := metainf.NewMutableSnapshot(base)
	change(overlay)
	return overlay.ImmutableCopy()
}

func collection(s *metainf.MutableSnapshot) *metainf.MutableCollection {
	return s.DatabaseByName("dbName1").CollectionByName("colName1")
}

func rootPart(s *metainf.MutableSnapshot) *metainf.MutableDocPart {
	return collection(s).DocPartByTableRef(refs.Root())
}

func committedRoot(s *metainf.Snapshot) *metainf.DocPart {
	return s.DatabaseByName("dbName1").CollectionByName("colName1").DocPartByTableRef(refs.Root())
}

func addIndex(t *testing.T, col *metainf.MutableCollection, name string, unique bool, fields ...metainf.IndexField) {
	t.Helper()
	idx, err := col.AddIndex(name, unique)
	require.NoError(t, err)
	for _, f := range fields {
		_, err := idx.AddField(f.TableRef, f.Name, f.Ordering)
		require.NoError(t, err)
	}
}

func rootField(name string) metainf.IndexField {
	return metainf.IndexField{TableRef: refs.Root(), Name: name, Ordering: model.Ascending}
}

func requireConflict(t *testing.T, err error, reason Reason) *UnmergeableError {
	t.Helper()
	require.ErrorIs(t, err, ErrUnmergeable)
	var unmergeable *UnmergeableError
	require.ErrorAs(t, err, &unmergeable)
	require.Equal(t, reason, unmergeable.Conflict.Reason, unmergeable.Error())
	return unmergeable
}
