package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/metacat/codec"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"local", "backend: local\ndir: /tmp/catalog\n", ""},
		{"local without dir", "backend: local\n", "Dir: failed required_if"},
		{"unknown backend", "backend: gcs\nbucket: b\n", "Backend: failed oneof"},
		{"s3", "backend: s3\nbucket: b\nprefix: p/\nregion: eu-central-1\ndynamodb_table: commits\n", ""},
		{"s3 without bucket", "backend: s3\n", "Bucket: failed required_unless"},
		{"minio", "backend: minio\nbucket: b\nendpoint: localhost:9000\naccess_key_id: k\nsecret_access_key: s\n", ""},
		{"minio without credentials", "backend: minio\nbucket: b\nendpoint: localhost:9000\n", "AccessKeyID: failed required_if"},
		{"dynamodb outside s3", "backend: minio\nbucket: b\nendpoint: e:1\naccess_key_id: k\nsecret_access_key: s\ndynamodb_table: t\n", "DynamoDBTable: failed excluded_unless"},
		{"bad compression", "backend: local\ndir: d\ncompression: gzip\n", "Compression: failed oneof"},
		{"unknown key", "backend: local\ndir: d\nbukket: b\n", "field bukket not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, cfg.Backend)
		})
	}
}

func TestParseConfigExpandsEnv(t *testing.T) {
	t.Setenv("METACAT_TEST_SECRET", "s3cr3t")

	cfg, err := ParseConfig([]byte("backend: minio\nbucket: b\nendpoint: localhost:9000\naccess_key_id: k\nsecret_access_key: ${METACAT_TEST_SECRET}\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", cfg.SecretAccessKey)
}

func TestConfigCatalogOptions(t *testing.T) {
	cfg := &Config{Backend: "local", Dir: "d"}
	assert.Equal(t, codec.Default.Name(), cfg.CatalogCodec().Name())
	assert.Equal(t, codec.CompressionNone, cfg.CatalogCompression())

	cfg.Codec = "json"
	cfg.Compression = "zstd"
	assert.Equal(t, "json", cfg.CatalogCodec().Name())
	assert.Equal(t, codec.CompressionZSTD, cfg.CatalogCompression())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
