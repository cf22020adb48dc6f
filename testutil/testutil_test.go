package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metacat/tableref"
)

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	first := []uint64{rng.Uint64(), rng.Uint64()}

	rng.Reset()

	assert.Equal(t, first, []uint64{rng.Uint64(), rng.Uint64()})
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestName(t *testing.T) {
	rng := NewRNG(1)
	name := rng.Name(6)
	assert.Len(t, name, 6)
	assert.Regexp(t, "^[a-z]+$", name)
}

func TestFieldTypeIsSkewed(t *testing.T) {
	rng := NewRNG(7)
	counts := map[string]int{}
	for i := 0; i < 2000; i++ {
		typ := rng.FieldType()
		require.False(t, typ.IsChild())
		counts[typ.String()]++
	}
	assert.Greater(t, counts["string"], counts["date"])
}

func TestSampleSnapshot(t *testing.T) {
	refs := tableref.NewFactory()
	snap := SampleSnapshot(t, refs)

	col := snap.DatabaseByName("db").CollectionByName("col")
	require.NotNil(t, col)
	assert.Len(t, col.DocParts(), 3)
	assert.Len(t, col.Indexes(), 2)

	tags := col.DocPartByTableRef(refs.MustDecode("tags", "$2"))
	require.NotNil(t, tags)
	assert.Len(t, tags.Scalars(), 2)
	assert.Equal(t, int64(10), col.DocPartByTableRef(refs.Root()).LastRowID())
}

func TestRandomSnapshotIsDeterministic(t *testing.T) {
	opts := RandomSnapshotOptions{Databases: 2, Collections: 2, Depth: 3, Fields: 4}

	a := NewRNG(42).RandomSnapshot(t, tableref.NewFactory(), opts)
	b := NewRNG(42).RandomSnapshot(t, tableref.NewFactory(), opts)

	require.Len(t, a.Databases(), 2)
	for _, db := range a.Databases() {
		other := b.DatabaseByName(db.Name())
		require.NotNil(t, other)
		for _, col := range db.Collections() {
			otherCol := other.CollectionByName(col.Name())
			require.NotNil(t, otherCol)
			assert.Len(t, col.DocParts(), opts.Depth+1)
			assert.Equal(t, len(col.DocParts()), len(otherCol.DocParts()))
			assert.Equal(t, len(col.Indexes()), len(otherCol.Indexes()))
		}
	}
}
