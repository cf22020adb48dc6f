package metacat

import (
	"errors"

	"github.com/hupe1980/metacat/internal/catalog"
	"github.com/hupe1980/metacat/merge"
	"github.com/hupe1980/metacat/metainf"
)

var (
	// ErrClosed is returned when the repository is closed.
	ErrClosed = errors.New("repository is closed")

	// ErrStageClosed is returned when a closed stage is used.
	ErrStageClosed = errors.New("stage is closed")

	// ErrAlreadyCommitted is returned by a second Commit on a merge stage.
	ErrAlreadyCommitted = errors.New("merge stage already committed")

	// ErrNotCommitted is returned when asking for the version of a merge
	// stage that was not committed.
	ErrNotCommitted = errors.New("merge stage not committed")

	// ErrUnmergeable is matched by every merge conflict.
	ErrUnmergeable = merge.ErrUnmergeable

	// ErrInvalidArgument is matched by overlay mutators that reject their
	// arguments.
	ErrInvalidArgument = metainf.ErrInvalidArgument

	// ErrIllegalTransition is matched when an overlay change contradicts the
	// state of the element.
	ErrIllegalTransition = metainf.ErrIllegalTransition

	// ErrVersionExists is returned when another process committed the same
	// catalog version first.
	ErrVersionExists = catalog.ErrVersionExists

	// ErrCorrupt is returned for persisted versions that fail integrity
	// checks.
	ErrCorrupt = catalog.ErrCorrupt
)

// UnmergeableError reports the conflict that rejected an overlay.
type UnmergeableError = merge.UnmergeableError
