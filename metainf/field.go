package metainf

import (
	"fmt"

	"github.com/hupe1980/metacat/model"
)

// Field is a column of a doc part.
//
// Its logical identity is the pair (name, type): a document attribute that was
// stored with two different types owns two fields.
type Field struct {
	name       string
	identifier string
	fieldType  model.FieldType
}

// NewField creates a field.
func NewField(name, identifier string, fieldType model.FieldType) (*Field, error) {
	if name == "" {
		return nil, invalidArgument("field name must not be empty")
	}
	if identifier == "" {
		return nil, invalidArgument("field %q needs an identifier", name)
	}
	if !fieldType.Valid() {
		return nil, invalidArgument("field %q has unknown type %s", name, fieldType)
	}
	return &Field{name: name, identifier: identifier, fieldType: fieldType}, nil
}

func (f *Field) Name() string          { return f.name }
func (f *Field) Identifier() string    { return f.identifier }
func (f *Field) Type() model.FieldType { return f.fieldType }
func (f *Field) key() fieldKey         { return fieldKey{name: f.name, fieldType: f.fieldType} }

func (f *Field) String() string {
	return fmt.Sprintf("%s:%s(%s)", f.name, f.fieldType, f.identifier)
}

type fieldKey struct {
	name      string
	fieldType model.FieldType
}

// Scalar is the column that holds the values of an array whose elements are
// not documents. A doc part has at most one scalar per type.
type Scalar struct {
	identifier string
	fieldType  model.FieldType
}

// NewScalar creates a scalar.
func NewScalar(identifier string, fieldType model.FieldType) (*Scalar, error) {
	if identifier == "" {
		return nil, invalidArgument("scalar of type %s needs an identifier", fieldType)
	}
	if !fieldType.Valid() {
		return nil, invalidArgument("scalar %q has unknown type %s", identifier, fieldType)
	}
	return &Scalar{identifier: identifier, fieldType: fieldType}, nil
}

func (s *Scalar) Identifier() string    { return s.identifier }
func (s *Scalar) Type() model.FieldType { return s.fieldType }

func (s *Scalar) String() string {
	return fmt.Sprintf("scalar:%s(%s)", s.fieldType, s.identifier)
}
