package model

import "fmt"

// FieldIndexOrdering is the sort direction of an indexed column.
type FieldIndexOrdering uint8

const (
	// Ascending sorts values from low to high.
	Ascending FieldIndexOrdering = iota + 1
	// Descending sorts values from high to low.
	Descending
)

// Valid reports whether o is a known ordering.
func (o FieldIndexOrdering) Valid() bool {
	return o == Ascending || o == Descending
}

// String returns "asc" or "desc".
func (o FieldIndexOrdering) String() string {
	switch o {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	default:
		return fmt.Sprintf("FieldIndexOrdering(%d)", uint8(o))
	}
}

// ParseFieldIndexOrdering parses the name produced by FieldIndexOrdering.String.
func ParseFieldIndexOrdering(s string) (FieldIndexOrdering, error) {
	switch s {
	case "asc":
		return Ascending, nil
	case "desc":
		return Descending, nil
	default:
		return 0, fmt.Errorf("%w: unknown index ordering %q", ErrInvalidValue, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o FieldIndexOrdering) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("%w: index ordering %d", ErrInvalidValue, uint8(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *FieldIndexOrdering) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldIndexOrdering(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
