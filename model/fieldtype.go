package model

import (
	"fmt"
	"strings"
)

// FieldType is the type tag of a document value.
type FieldType uint8

const (
	// FieldTypeNull is the type of the null value.
	FieldTypeNull FieldType = iota + 1
	FieldTypeBoolean
	FieldTypeInteger
	FieldTypeLong
	FieldTypeDouble
	FieldTypeString
	FieldTypeDate
	FieldTypeTime
	FieldTypeInstant
	FieldTypeBinary
	FieldTypeObjectID
	FieldTypeMongoTimestamp
	FieldTypeDecimal128
	// FieldTypeDocument marks a field whose value is a nested document.
	FieldTypeDocument
	// FieldTypeArray marks a field whose value is a nested array.
	FieldTypeArray
)

var fieldTypeNames = map[FieldType]string{
	FieldTypeNull:           "null",
	FieldTypeBoolean:        "boolean",
	FieldTypeInteger:        "integer",
	FieldTypeLong:           "long",
	FieldTypeDouble:         "double",
	FieldTypeString:         "string",
	FieldTypeDate:           "date",
	FieldTypeTime:           "time",
	FieldTypeInstant:        "instant",
	FieldTypeBinary:         "binary",
	FieldTypeObjectID:       "objectid",
	FieldTypeMongoTimestamp: "mongotimestamp",
	FieldTypeDecimal128:     "decimal128",
	FieldTypeDocument:       "document",
	FieldTypeArray:          "array",
}

// FieldTypes returns every known field type in declaration order.
func FieldTypes() []FieldType {
	types := make([]FieldType, 0, len(fieldTypeNames))
	for t := FieldTypeNull; t <= FieldTypeArray; t++ {
		types = append(types, t)
	}
	return types
}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	_, ok := fieldTypeNames[t]
	return ok
}

// IsChild reports whether values of this type are stored in a child doc part.
func (t FieldType) IsChild() bool {
	return t == FieldTypeDocument || t == FieldTypeArray
}

// String returns the stable lower-case name of the type.
func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", uint8(t))
}

// ParseFieldType parses the name produced by FieldType.String.
func ParseFieldType(s string) (FieldType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range fieldTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown field type %q", ErrInvalidValue, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t FieldType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: field type %d", ErrInvalidValue, uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FieldType) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
