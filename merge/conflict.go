package merge

import (
	"fmt"
	"strings"

	"github.com/hupe1980/metacat/metainf"
)

// Reason classifies a conflict.
type Reason uint8

const (
	// ReasonIdentifierClash means the physical identifier is committed for
	// another logical identity.
	ReasonIdentifierClash Reason = iota + 1
	// ReasonIdentityClash means the logical identity is committed under
	// another physical identifier.
	ReasonIdentityClash
	// ReasonIndexClash means a new index has the name or the fields of a
	// committed index.
	ReasonIndexClash
	// ReasonOrphanDocPartIndex means a doc part index would be left without
	// any index it realizes.
	ReasonOrphanDocPartIndex
	// ReasonMissingDocPartIndex means an index would be left without one of
	// the doc part indexes that realize it.
	ReasonMissingDocPartIndex
	// ReasonRowIDClash means row ids were handed out by two writers for the
	// same doc part.
	ReasonRowIDClash
)

func (r Reason) String() string {
	switch r {
	case ReasonIdentifierClash:
		return "identifier clash"
	case ReasonIdentityClash:
		return "identity clash"
	case ReasonIndexClash:
		return "index clash"
	case ReasonOrphanDocPartIndex:
		return "orphan doc part index"
	case ReasonMissingDocPartIndex:
		return "missing doc part index"
	case ReasonRowIDClash:
		return "row id clash"
	default:
		return "unknown"
	}
}

// Ancestor is one container of the conflicting element.
type Ancestor struct {
	Kind       metainf.Kind
	Name       string
	Identifier string
}

func (a Ancestor) String() string {
	return fmt.Sprintf("%s %q (%s)", a.Kind, a.Name, a.Identifier)
}

// Conflict describes why an element of an overlay cannot be merged.
//
// The message is produced by a closure over the clashing values and is only
// rendered when Message or String is called.
type Conflict struct {
	Reason Reason
	// Kind is the kind of the conflicting element.
	Kind metainf.Kind
	// Identifier is the physical identifier (or index name) at the heart of
	// the conflict.
	Identifier string

	ancestors []Ancestor
	describe  func(parent string) string
}

func newConflict(reason Reason, kind metainf.Kind, identifier string, describe func(parent string) string) *Conflict {
	return &Conflict{Reason: reason, Kind: kind, Identifier: identifier, describe: describe}
}

// within records that the conflicting element lives inside a.
func (c *Conflict) within(a Ancestor) *Conflict {
	c.ancestors = append([]Ancestor{a}, c.ancestors...)
	return c
}

// Ancestors returns the containers of the conflicting element, outermost
// first.
func (c *Conflict) Ancestors() []Ancestor {
	return append([]Ancestor(nil), c.ancestors...)
}

// Message renders the conflict, using render to describe the ancestors.
func (c *Conflict) Message(render func([]Ancestor) string) string {
	return c.describe(render(c.ancestors))
}

func (c *Conflict) String() string {
	return c.Message(RenderPath)
}

// RenderPath joins the ancestors as name(identifier) pairs separated by dots.
func RenderPath(ancestors []Ancestor) string {
	if len(ancestors) == 0 {
		return "the snapshot"
	}
	parts := make([]string, len(ancestors))
	for i, a := range ancestors {
		parts[i] = a.Name + "(" + a.Identifier + ")"
	}
	return strings.Join(parts, ".")
}

// clash reports the conflict behind relIdentityClash or relIdentifierClash.
// identity names what the logical identity is for kind (name, type, ...).
func clash(kind metainf.Kind, rel relation, identity string, newIdentity, newIdentifier, oldIdentity, oldIdentifier string) *Conflict {
	if rel == relIdentityClash {
		return newConflict(ReasonIdentityClash, kind, oldIdentifier, func(parent string) string {
			return fmt.Sprintf("there is a previous %s on %s with %s %s but identifier %s, the new one uses identifier %s",
				kind, parent, identity, oldIdentity, oldIdentifier, newIdentifier)
		})
	}
	return newConflict(ReasonIdentifierClash, kind, newIdentifier, func(parent string) string {
		return fmt.Sprintf("there is a previous %s on %s with identifier %s but %s %s, the new one has %s %s",
			kind, parent, newIdentifier, identity, oldIdentity, identity, newIdentity)
	})
}
