package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metacat"
	"github.com/hupe1980/metacat/blobstore"
	"github.com/hupe1980/metacat/metainf"
)

// seedCatalog writes two catalog versions into dir and returns the config
// file pointing at it.
func seedCatalog(t *testing.T) (dir, configPath string) {
	t.Helper()
	ctx := context.Background()
	dir = t.TempDir()

	store, err := blobstore.NewLocalStore(dir)
	require.NoError(t, err)
	repo, err := metacat.Open(ctx, metacat.WithBlobStore(store))
	require.NoError(t, err)
	defer repo.Close()

	for _, name := range []string{"sales", "billing"} {
		_, err := repo.Update(ctx, func(overlay *metainf.MutableSnapshot) error {
			db, err := overlay.AddDatabase(name, name+"_id")
			if err != nil {
				return err
			}
			_, err = db.AddCollection("orders", name+"_orders")
			return err
		})
		require.NoError(t, err)
	}

	configPath = filepath.Join(t.TempDir(), "metacat.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("backend: local\ndir: "+dir+"\n"), 0o600))
	return dir, configPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionsCommand(t *testing.T) {
	_, cfg := seedCatalog(t)

	out, err := run(t, "versions", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "  CATALOG-000001.bin\n* CATALOG-000002.bin\n", out)
}

func TestShowCommand(t *testing.T) {
	_, cfg := seedCatalog(t)

	out, err := run(t, "show", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "version: 2")
	assert.Contains(t, out, "parent: 1")
	assert.Contains(t, out, "name: billing")
	assert.Contains(t, out, "identifier: sales_orders")

	out, err = run(t, "show", "--config", cfg, "--version", "1", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": 1`)
	assert.Contains(t, out, `"name": "sales"`)
	assert.NotContains(t, out, "billing")

	_, err = run(t, "show", "--config", cfg, "-o", "xml")
	assert.ErrorContains(t, err, "unsupported output")

	_, err = run(t, "show", "--config", cfg, "--version", "9")
	assert.Error(t, err)
}

func TestVacuumCommand(t *testing.T) {
	dir, cfg := seedCatalog(t)

	out, err := run(t, "vacuum", "--config", cfg, "--keep", "1")
	require.NoError(t, err)
	assert.Equal(t, "deleted CATALOG-000001.bin\n", out)
	assert.NoFileExists(t, filepath.Join(dir, "CATALOG-000001.bin"))

	out, err = run(t, "versions", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "* CATALOG-000002.bin\n", out)

	_, err = run(t, "vacuum", "--config", cfg, "--keep", "0")
	assert.Error(t, err)
}

func TestVerifyCommand(t *testing.T) {
	dir, cfg := seedCatalog(t)

	out, err := run(t, "verify", "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "ok: 2 versions\n", out)

	path := filepath.Join(dir, "CATALOG-000001.bin")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o600))

	out, err = run(t, "verify", "--config", cfg)
	require.ErrorIs(t, err, metacat.ErrCorrupt)
	assert.Equal(t, "corrupt CATALOG-000001.bin\n", out)
}

func TestRootCommandErrors(t *testing.T) {
	_, cfg := seedCatalog(t)

	_, err := run(t, "versions", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = run(t, "versions", "--config", cfg, "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid log level")
}

func TestOpenUsesBlobStoreFactory(t *testing.T) {
	mem := blobstore.NewMemoryStore()
	a := &app{openBlobs: func(context.Context, *Config) (blobstore.BlobStore, error) { return mem, nil }}

	cfg := filepath.Join(t.TempDir(), "metacat.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("backend: s3\nbucket: b\n"), 0o600))

	var out bytes.Buffer
	cmd := a.rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"verify", "--config", cfg})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t, "ok: 0 versions\n", out.String())
	assert.Same(t, mem, a.blobs)
}
