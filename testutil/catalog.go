package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metacat/metainf"
	"github.com/hupe1980/metacat/model"
	"github.com/hupe1980/metacat/tableref"
)

// SampleSnapshot returns a small catalog that uses every kind of entity:
// database "db" with collection "col", a root doc part, an object child
// "addr" and the array child "tags.$2", scalars, doc part indexes, logical
// indexes and reserved row ids.
func SampleSnapshot(tb testing.TB, refs *tableref.Factory) *metainf.Snapshot {
	tb.Helper()

	overlay := metainf.NewMutableSnapshot(metainf.EmptySnapshot())
	db, err := overlay.AddDatabase("db", "db_id")
	require.NoError(tb, err)
	col, err := db.AddCollection("col", "col_id")
	require.NoError(tb, err)

	root := refs.Root()
	addr, err := refs.Child(root, "addr")
	require.NoError(tb, err)
	tags, err := refs.Child(root, "tags")
	require.NoError(tb, err)
	tagsArray, err := refs.ArrayChild(tags, tableref.FirstArrayDimension)
	require.NoError(tb, err)

	rootPart, err := col.AddDocPart(root, "col_root")
	require.NoError(tb, err)
	for _, f := range []struct {
		name string
		typ  model.FieldType
	}{
		{"name", model.FieldTypeString},
		{"age", model.FieldTypeInteger},
		{"age", model.FieldTypeDouble},
		{"addr", model.FieldTypeDocument},
		{"tags", model.FieldTypeArray},
	} {
		_, err = rootPart.AddField(f.name, ColumnIdentifier(f.name, f.typ), f.typ)
		require.NoError(tb, err)
	}
	_, err = rootPart.AddDocPartIndex("col_root_name", true, metainf.DocPartIndexColumn{
		Position: 0, Identifier: ColumnIdentifier("name", model.FieldTypeString), Ordering: model.Ascending,
	})
	require.NoError(tb, err)
	_, err = rootPart.ReserveRowIDs(10)
	require.NoError(tb, err)

	addrPart, err := col.AddDocPart(addr, "col_addr")
	require.NoError(tb, err)
	_, err = addrPart.AddField("city", ColumnIdentifier("city", model.FieldTypeString), model.FieldTypeString)
	require.NoError(tb, err)
	_, err = addrPart.ReserveRowIDs(4)
	require.NoError(tb, err)

	tagsPart, err := col.AddDocPart(tagsArray, "col_tags")
	require.NoError(tb, err)
	_, err = tagsPart.AddScalar(ColumnIdentifier("v", model.FieldTypeString), model.FieldTypeString)
	require.NoError(tb, err)
	_, err = tagsPart.AddScalar(ColumnIdentifier("v", model.FieldTypeInteger), model.FieldTypeInteger)
	require.NoError(tb, err)

	idx, err := col.AddIndex("name_unique", true)
	require.NoError(tb, err)
	_, err = idx.AddField(root, "name", model.Ascending)
	require.NoError(tb, err)

	multi, err := col.AddIndex("age_city", false)
	require.NoError(tb, err)
	_, err = multi.AddField(root, "age", model.Descending)
	require.NoError(tb, err)
	_, err = multi.AddField(addr, "city", model.Ascending)
	require.NoError(tb, err)

	return overlay.ImmutableCopy()
}

// RandomSnapshotOptions shapes RandomSnapshot.
type RandomSnapshotOptions struct {
	Databases   int
	Collections int
	Depth       int
	Fields      int
}

// RandomSnapshot builds a valid random catalog. Equal seeds give equal
// catalogs.
func (r *RNG) RandomSnapshot(tb testing.TB, refs *tableref.Factory, opts RandomSnapshotOptions) *metainf.Snapshot {
	tb.Helper()

	overlay := metainf.NewMutableSnapshot(metainf.EmptySnapshot())
	for d := 0; d < opts.Databases; d++ {
		db, err := overlay.AddDatabase(fmt.Sprintf("db%d", d), fmt.Sprintf("db%d_id", d))
		require.NoError(tb, err)

		for c := 0; c < opts.Collections; c++ {
			col, err := db.AddCollection(fmt.Sprintf("col%d", c), fmt.Sprintf("db%d_col%d", d, c))
			require.NoError(tb, err)
			r.fillCollection(tb, refs, col, opts)
		}
	}
	return overlay.ImmutableCopy()
}

func (r *RNG) fillCollection(tb testing.TB, refs *tableref.Factory, col *metainf.MutableCollection, opts RandomSnapshotOptions) {
	ref := refs.Root()
	for level := 0; level <= opts.Depth; level++ {
		part, err := col.AddDocPart(ref, fmt.Sprintf("%s_l%d", col.Identifier(), level))
		require.NoError(tb, err)

		var first *metainf.Field
		for i := 0; i < opts.Fields; i++ {
			name := r.Name(3)
			typ := r.FieldType()
			if part.FieldByNameAndType(name, typ) != nil {
				continue
			}
			f, err := part.AddField(name, ColumnIdentifier(name, typ), typ)
			require.NoError(tb, err)
			if first == nil {
				first = f
			}
		}
		if r.Bool(0.5) {
			typ := r.FieldType()
			_, err = part.AddScalar(ColumnIdentifier("v", typ), typ)
			require.NoError(tb, err)
		}
		if first != nil && r.Bool(0.5) {
			_, err = part.AddDocPartIndex(first.Identifier()+"_idx", false, metainf.DocPartIndexColumn{
				Position: 0, Identifier: first.Identifier(), Ordering: model.Ascending,
			})
			require.NoError(tb, err)

			idx, err := col.AddIndex(fmt.Sprintf("%s_idx%d", first.Name(), level), false)
			require.NoError(tb, err)
			_, err = idx.AddField(ref, first.Name(), model.Ascending)
			require.NoError(tb, err)
		}
		if n := int64(r.Intn(100)); n > 0 {
			_, err = part.ReserveRowIDs(n)
			require.NoError(tb, err)
		}

		if r.Bool(0.3) {
			ref, err = refs.Child(ref, "a"+r.Name(2))
			require.NoError(tb, err)
			ref, err = refs.ArrayChild(ref, tableref.FirstArrayDimension)
		} else {
			ref, err = refs.Child(ref, "o"+r.Name(2))
		}
		require.NoError(tb, err)
	}
}
