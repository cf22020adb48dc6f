package merge

import (
	"errors"

	"github.com/hupe1980/metacat/metainf"
)

// ErrUnmergeable is matched by every *UnmergeableError.
var ErrUnmergeable = errors.New("unmergeable overlay")

// UnmergeableError reports that an overlay conflicts with the committed
// snapshot. Nothing was published; the caller should derive a fresh overlay
// from the current snapshot and retry.
type UnmergeableError struct {
	// Old is the committed snapshot the overlay was merged against.
	Old *metainf.Snapshot
	// Overlay is the rejected overlay.
	Overlay *metainf.MutableSnapshot
	// Conflict is the first conflict found.
	Conflict *Conflict
}

func (e *UnmergeableError) Error() string {
	return ErrUnmergeable.Error() + ": " + e.Conflict.String()
}

// Is makes errors.Is(err, ErrUnmergeable) hold.
func (e *UnmergeableError) Is(target error) bool { return target == ErrUnmergeable }
