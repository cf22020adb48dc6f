package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	f, err := lfs.CreateTemp(dir, ".tmp-*")
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	target := filepath.Join(dir, "blob")
	require.NoError(t, lfs.Link(f.Name(), target))
	assert.ErrorIs(t, lfs.Link(f.Name(), target), os.ErrExist)
	require.NoError(t, lfs.Rename(f.Name(), filepath.Join(dir, "other")))
	require.NoError(t, lfs.SyncDir(dir))

	data, err := lfs.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	entries, err := lfs.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, lfs.Remove(target))
	_, err = lfs.ReadFile(target)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFaultyFS(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")

	tests := []struct {
		name  string
		fault Fault
		step  func(File) error
		want  error
	}{
		{"write limit", Fault{FailAfterBytes: 3, Err: boom}, func(f File) error {
			_, err := f.Write([]byte("hello"))
			return err
		}, boom},
		{"sync", Fault{FailAfterBytes: -1, FailOnSync: true}, func(f File) error { return f.Sync() }, ErrInjected},
		{"close", Fault{FailAfterBytes: -1, FailOnClose: true}, func(f File) error { return f.Close() }, ErrInjected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ffs := NewFaultyFS(nil)
			ffs.SetFault(tt.fault)

			f, err := ffs.CreateTemp(dir, ".tmp-*")
			require.NoError(t, err)
			defer func() { _ = f.Close() }()

			assert.ErrorIs(t, tt.step(f), tt.want)
		})
	}
}

func TestFaultyFSPublish(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.FailPublish("CURRENT", nil)

	f, err := ffs.CreateTemp(dir, ".tmp-*")
	require.NoError(t, err)
	_, err = f.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, int64(3), ffs.Written())

	assert.ErrorIs(t, ffs.Rename(f.Name(), filepath.Join(dir, "CURRENT")), ErrInjected)
	assert.ErrorIs(t, ffs.Link(f.Name(), filepath.Join(dir, "CURRENT")), ErrInjected)
	require.NoError(t, ffs.Link(f.Name(), filepath.Join(dir, "CATALOG-000001.bin")))
}
