package metacat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/metacat/merge"
)

// Logger wraps slog.Logger with metacat-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(1000), // Unreachable level
		})),
	}
}

// WithStage adds the id of a merge stage to the logger.
func (l *Logger) WithStage(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("stage", id),
	}
}

// WithDatabase adds a database name to the logger.
func (l *Logger) WithDatabase(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("database", name),
	}
}

// LogSnapshotStage logs the start of a snapshot stage.
func (l *Logger) LogSnapshotStage(ctx context.Context, version uint64) {
	l.DebugContext(ctx, "snapshot stage started",
		"version", version,
	)
}

// LogMerge logs a merge attempt. Conflicts are expected under concurrency
// and log at warn level.
func (l *Logger) LogMerge(ctx context.Context, id string, stats merge.Stats, err error) {
	var unmergeable *merge.UnmergeableError
	switch {
	case errors.As(err, &unmergeable):
		l.WarnContext(ctx, "merge conflict",
			"stage", id,
			"reason", unmergeable.Conflict.Reason.String(),
			"kind", unmergeable.Conflict.Kind.String(),
			"identifier", unmergeable.Conflict.Identifier,
			"conflict", unmergeable.Conflict.String(),
		)
	case err != nil:
		l.ErrorContext(ctx, "merge failed",
			"stage", id,
			"error", err,
		)
	default:
		l.DebugContext(ctx, "merge completed",
			"stage", id,
			"inserted", stats.Inserted,
			"recursed", stats.Recursed,
			"deleted", stats.Deleted,
			"skipped", stats.Skipped,
		)
	}
}

// LogCommit logs the commit of a merge stage.
func (l *Logger) LogCommit(ctx context.Context, id string, version uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "commit failed",
			"stage", id,
			"version", version,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "commit completed",
			"stage", id,
			"version", version,
		)
	}
}

// LogLoad logs loading the persisted catalog.
func (l *Logger) LogLoad(ctx context.Context, version uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "catalog load failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "catalog loaded",
			"version", version,
		)
	}
}
