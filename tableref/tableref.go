package tableref

import (
	"strconv"
	"strings"
)

const (
	arrayPrefix  = '$'
	escapePrefix = '\\'

	// FirstArrayDimension is the dimension of an array directly below an object.
	FirstArrayDimension = 2
)

// TableRef is an immutable node of a document path.
type TableRef struct {
	parent         *TableRef
	name           string
	depth          int
	arrayDimension int
	key            string
}

var root = &TableRef{}

// Root returns the shared root node.
func Root() *TableRef {
	return root
}

// Parent returns the parent node. ok is false for the root.
func (r *TableRef) Parent() (parent *TableRef, ok bool) {
	return r.parent, r.parent != nil
}

// Name returns the object field name, or the "$<dimension>" token of an
// array node. The root has an empty name.
func (r *TableRef) Name() string { return r.name }

// Depth returns the number of levels between r and the root.
func (r *TableRef) Depth() int { return r.depth }

// ArrayDimension returns 0 for the root and object nodes.
func (r *TableRef) ArrayDimension() int { return r.arrayDimension }

// IsRoot reports whether r is the root node.
func (r *TableRef) IsRoot() bool { return r.parent == nil }

// IsArray reports whether r is an array-in-array node.
func (r *TableRef) IsArray() bool { return r.arrayDimension > 0 }

// Key returns a string that is equal for two TableRefs exactly when they are
// structurally equal. It is meant to be used as a map key.
func (r *TableRef) Key() string { return r.key }

// Equal reports whether r and other address the same path.
func (r *TableRef) Equal(other *TableRef) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.key == other.key
}

// Token returns the encoded form of this level. The root has no token.
func (r *TableRef) Token() string {
	if r.IsRoot() {
		return ""
	}
	if r.IsArray() {
		return r.name
	}
	return escapeName(r.name)
}

// Tokens returns the encoded path from the first level below the root to r.
func (r *TableRef) Tokens() []string {
	tokens := make([]string, r.depth)
	for n := r; !n.IsRoot(); n = n.parent {
		tokens[n.depth-1] = n.Token()
	}
	return tokens
}

// String renders the path with dots for humans. It is not an encoding:
// names containing dots make it ambiguous. Use Tokens to persist a TableRef.
func (r *TableRef) String() string {
	if r.IsRoot() {
		return ""
	}
	return strings.Join(r.Tokens(), ".")
}

func newChild(parent *TableRef, name string, arrayDimension int) *TableRef {
	ref := &TableRef{
		parent:         parent,
		name:           name,
		depth:          parent.depth + 1,
		arrayDimension: arrayDimension,
	}
	token := ref.Token()
	ref.key = parent.key + strconv.Itoa(len(token)) + ":" + token
	return ref
}

func arrayName(dimension int) string {
	return string(arrayPrefix) + strconv.Itoa(dimension)
}

func escapeName(name string) string {
	if name != "" && (name[0] == arrayPrefix || name[0] == escapePrefix) {
		return string(escapePrefix) + name
	}
	return name
}
