package model

import "fmt"

// ElementState is the change state of an entity inside a mutable overlay.
type ElementState uint8

const (
	// StateNotExistent is the zero value: the overlay does not know the entity.
	StateNotExistent ElementState = iota
	StateNotChanged
	StateAdded
	StateModified
	StateRemoved
)

// String returns the upper-case name of the state.
func (s ElementState) String() string {
	switch s {
	case StateNotExistent:
		return "NOT_EXISTENT"
	case StateNotChanged:
		return "NOT_CHANGED"
	case StateAdded:
		return "ADDED"
	case StateModified:
		return "MODIFIED"
	case StateRemoved:
		return "REMOVED"
	default:
		return fmt.Sprintf("ElementState(%d)", uint8(s))
	}
}

// IsAlive reports whether an entity in this state is visible to readers.
func (s ElementState) IsAlive() bool {
	return s == StateNotChanged || s == StateAdded || s == StateModified
}

// HasChanged reports whether the state must be considered by a merge.
func (s ElementState) HasChanged() bool {
	return s == StateAdded || s == StateModified || s == StateRemoved
}

// CanTransitionTo reports whether an entity may move from s to next.
//
// A removed entity cannot be added again within the same overlay, and an
// added entity stays added when its children change.
func (s ElementState) CanTransitionTo(next ElementState) bool {
	switch s {
	case StateNotExistent:
		return next == StateAdded
	case StateNotChanged:
		return next == StateModified || next == StateRemoved
	case StateAdded:
		return next == StateAdded || next == StateRemoved
	case StateModified:
		return next == StateModified || next == StateRemoved
	default:
		return false
	}
}

// Next returns the state an entity moves to when one of its children changes.
func (s ElementState) Next() ElementState {
	if s == StateNotChanged {
		return StateModified
	}
	return s
}
