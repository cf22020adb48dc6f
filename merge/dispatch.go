package merge

import (
	"fmt"

	"github.com/hupe1980/metacat/model"
)

// relation classifies a changed element against the committed entity that
// shares its logical identity and the one that shares its identifier.
type relation uint8

const (
	relNone relation = iota
	relSame
	relIdentityClash   // identity committed under another identifier
	relIdentifierClash // identifier committed for another identity
)

func (r relation) String() string {
	switch r {
	case relNone:
		return "none"
	case relSame:
		return "same"
	case relIdentityClash:
		return "identity clash"
	case relIdentifierClash:
		return "identifier clash"
	default:
		return "unknown"
	}
}

func relate[T any](byIdentity, byIdentifier *T) relation {
	switch {
	case byIdentity == nil && byIdentifier == nil:
		return relNone
	case byIdentity == byIdentifier:
		return relSame
	case byIdentity != nil:
		return relIdentityClash
	default:
		return relIdentifierClash
	}
}

type action uint8

const (
	actNoop action = iota
	actInsert
	actRecurse
	actDelete
	actConflict
)

func (a action) String() string {
	switch a {
	case actNoop:
		return "noop"
	case actInsert:
		return "insert"
	case actRecurse:
		return "recurse"
	case actDelete:
		return "delete"
	case actConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// pick resolves the single action for a changed element. Overlays only
// report changed elements, so any other state is a broken invariant.
func pick(state model.ElementState, rel relation) action {
	switch state {
	case model.StateAdded, model.StateModified:
		switch rel {
		case relNone:
			return actInsert
		case relSame:
			return actRecurse
		default:
			return actConflict
		}
	case model.StateRemoved:
		switch rel {
		case relNone:
			return actNoop
		case relSame:
			return actDelete
		default:
			return actConflict
		}
	}
	panic(fmt.Sprintf("merge: a change was expected, got state %s", state))
}
