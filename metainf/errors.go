package metainf

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is the root of every validation error raised by
	// builders and overlay mutators. Use errors.Is to detect it.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIllegalTransition is returned when a mutator would move an entity
	// into a change state it cannot reach from its current one.
	ErrIllegalTransition = errors.New("illegal state transition")
)

// ErrDuplicate indicates that a parent already holds an entity with the same
// logical identity or the same physical identifier.
type ErrDuplicate struct {
	Kind   Kind
	Parent string
	Key    string
}

func (e *ErrDuplicate) Error() string {
	return fmt.Sprintf("%s: there is another %s with %s in %s", ErrInvalidArgument, e.Kind, e.Key, e.Parent)
}

// Is makes errors.Is(err, ErrInvalidArgument) hold for duplicates.
func (e *ErrDuplicate) Is(target error) bool { return target == ErrInvalidArgument }

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func illegalTransition(kind Kind, key string, from, to fmt.Stringer) error {
	return fmt.Errorf("%w: %s %s cannot go from %s to %s", ErrIllegalTransition, kind, key, from, to)
}
