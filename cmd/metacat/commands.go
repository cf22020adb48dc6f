package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/metacat"
	"github.com/hupe1980/metacat/blobstore"
	"github.com/hupe1980/metacat/internal/catalog"
)

type app struct {
	configPath string
	logLevel   string

	// openBlobs is replaced in tests.
	openBlobs func(context.Context, *Config) (blobstore.BlobStore, error)

	blobs  blobstore.BlobStore
	store  *catalog.Store
	logger *metacat.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{openBlobs: openBlobStore}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "metacat",
		Short:        "Inspect and maintain a persisted schema catalog",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "metacat.yaml", "path to the config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(a.versionsCmd(), a.showCmd(), a.vacuumCmd(), a.verifyCmd())
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", a.logLevel, err)
	}
	a.logger = metacat.NewLogger(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	blobs, err := a.openBlobs(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	a.blobs = blobs
	a.store = catalog.NewStore(blobs,
		catalog.WithCodec(cfg.CatalogCodec()),
		catalog.WithCompression(cfg.CatalogCompression()),
	)
	a.logger.DebugContext(cmd.Context(), "catalog opened", "backend", cfg.Backend)
	return nil
}

func (a *app) versionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "List the persisted catalog versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			versions, err := a.store.Versions(ctx)
			if err != nil {
				return err
			}
			current, err := a.store.Current(ctx)
			if err != nil && !errors.Is(err, catalog.ErrNotFound) {
				return err
			}

			out := cmd.OutOrStdout()
			it := versions.Iterator()
			for it.HasNext() {
				v := it.Next()
				marker := " "
				if v == current {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, catalog.VersionFileName(v))
			}
			return nil
		},
	}
}

// versionDocument is the printed form of a catalog version.
type versionDocument struct {
	Version     uint64                 `json:"version" yaml:"version"`
	Parent      uint64                 `json:"parent,omitempty" yaml:"parent,omitempty"`
	CreatedAt   time.Time              `json:"created_at" yaml:"created_at"`
	MergeID     string                 `json:"merge_id,omitempty" yaml:"merge_id,omitempty"`
	Codec       string                 `json:"codec" yaml:"codec"`
	Compression string                 `json:"compression" yaml:"compression"`
	Catalog     catalog.SnapshotRecord `json:"catalog" yaml:"catalog"`
}

func (a *app) showCmd() *cobra.Command {
	var (
		version uint64
		output  string
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a catalog version (the current one by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != "yaml" && output != "json" {
				return fmt.Errorf("unsupported output %q", output)
			}
			v, err := a.store.LoadVersion(cmd.Context(), version)
			if err != nil {
				return err
			}
			doc := versionDocument{
				Version:     v.ID,
				Parent:      v.Parent,
				CreatedAt:   v.CreatedAt,
				MergeID:     v.MergeID,
				Codec:       v.Codec,
				Compression: v.Compression.String(),
				Catalog:     v.Record,
			}
			return writeDocument(cmd.OutOrStdout(), output, doc)
		},
	}
	cmd.Flags().Uint64Var(&version, "version", 0, "version to print, 0 for the current one")
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml, json)")
	return cmd
}

func writeDocument(w io.Writer, format string, doc any) error {
	if format == "json" {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// locker is implemented by stores that can be locked against other
// processes on the same host.
type locker interface {
	Lock() (io.Closer, error)
}

func (a *app) vacuumCmd() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "vacuum",
		Short: "Delete all but the newest catalog versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if l, ok := a.blobs.(locker); ok {
				lock, err := l.Lock()
				if err != nil {
					return err
				}
				defer lock.Close()
			}

			deleted, err := a.store.Vacuum(ctx, keep)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			it := deleted.Iterator()
			for it.HasNext() {
				fmt.Fprintf(out, "deleted %s\n", catalog.VersionFileName(it.Next()))
			}
			a.logger.InfoContext(ctx, "vacuum completed", "deleted", deleted.GetCardinality(), "keep", keep)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 1, "number of newest versions to keep")
	return cmd
}

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the envelope and checksum of every catalog version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			versions, err := a.store.Versions(ctx)
			if err != nil {
				return err
			}
			corrupt, err := a.store.Verify(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if corrupt.IsEmpty() {
				fmt.Fprintf(out, "ok: %d versions\n", versions.GetCardinality())
				return nil
			}
			it := corrupt.Iterator()
			for it.HasNext() {
				fmt.Fprintf(out, "corrupt %s\n", catalog.VersionFileName(it.Next()))
			}
			return fmt.Errorf("%d of %d versions are corrupt: %w", corrupt.GetCardinality(), versions.GetCardinality(), metacat.ErrCorrupt)
		},
	}
}
