package tableref

import (
	"fmt"
	"strconv"
	"sync"
)

// Factory creates TableRefs and validates their shape.
//
// A Factory interns the nodes it creates so entities that refer to the same
// path share one instance. It is safe for concurrent use.
type Factory struct {
	refs sync.Map // key -> *TableRef
}

// NewFactory creates a new Factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Root returns the shared root node.
func (f *Factory) Root() *TableRef {
	return root
}

// Child creates the object child of parent with the given field name.
func (f *Factory) Child(parent *TableRef, name string) (*TableRef, error) {
	if parent == nil {
		return nil, fmt.Errorf("%w: nil parent", ErrInvalidName)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: object child of %q needs a name", ErrInvalidName, parent)
	}
	return f.intern(newChild(parent, name, 0)), nil
}

// ArrayChild creates the array child of parent with the given dimension.
//
// The dimension must be FirstArrayDimension when parent is an object node
// (or the root) and parent.ArrayDimension()+1 when parent is itself an array
// node.
func (f *Factory) ArrayChild(parent *TableRef, dimension int) (*TableRef, error) {
	if parent == nil {
		return nil, fmt.Errorf("%w: nil parent", ErrInvalidDimension)
	}
	if dimension < FirstArrayDimension {
		return nil, fmt.Errorf("%w: %d is lower than %d", ErrInvalidDimension, dimension, FirstArrayDimension)
	}
	expected := FirstArrayDimension
	if parent.IsArray() {
		expected = parent.arrayDimension + 1
	}
	if dimension != expected {
		return nil, fmt.Errorf("%w: child of %q must have dimension %d, got %d",
			ErrInvalidDimension, parent, expected, dimension)
	}
	return f.intern(newChild(parent, arrayName(dimension), dimension)), nil
}

// Decode rebuilds a TableRef from the output of TableRef.Tokens.
func (f *Factory) Decode(tokens []string) (*TableRef, error) {
	ref := f.Root()
	for i, token := range tokens {
		var err error
		switch {
		case token == "":
			return nil, fmt.Errorf("%w: empty token at position %d", ErrInvalidToken, i)
		case token[0] == escapePrefix:
			if len(token) == 1 || (token[1] != arrayPrefix && token[1] != escapePrefix) {
				return nil, fmt.Errorf("%w: unexpected escape in %q at position %d", ErrInvalidToken, token, i)
			}
			ref, err = f.Child(ref, token[1:])
		case token[0] == arrayPrefix:
			dimension, convErr := strconv.Atoi(token[1:])
			if convErr != nil || arrayName(dimension) != token {
				return nil, fmt.Errorf("%w: %q at position %d is not an array token", ErrInvalidToken, token, i)
			}
			ref, err = f.ArrayChild(ref, dimension)
		default:
			ref, err = f.Child(ref, token)
		}
		if err != nil {
			return nil, err
		}
	}
	return ref, nil
}

// MustDecode is like Decode but panics on error. It is meant for tests and
// fixtures with literal paths.
func (f *Factory) MustDecode(tokens ...string) *TableRef {
	ref, err := f.Decode(tokens)
	if err != nil {
		panic(err)
	}
	return ref
}

func (f *Factory) intern(ref *TableRef) *TableRef {
	actual, _ := f.refs.LoadOrStore(ref.key, ref)
	return actual.(*TableRef)
}
