package metainf

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/metacat/model"
)

// DocPartIndexColumn is one column of a physical index.
type DocPartIndexColumn struct {
	Position   int
	Identifier string
	Ordering   model.FieldIndexOrdering
}

func (c DocPartIndexColumn) String() string {
	return fmt.Sprintf("%d:%s %s", c.Position, c.Identifier, c.Ordering)
}

// DocPartIndex is a physical index created on the columns of one doc part.
// It realizes the part of one or more logical indexes that covers that doc
// part.
type DocPartIndex struct {
	identifier string
	unique     bool
	columns    []DocPartIndexColumn
}

// NewDocPartIndex creates a doc part index. Columns may be given in any order
// but their positions must be 0..n-1 and each column identifier may appear
// only once.
func NewDocPartIndex(identifier string, unique bool, columns ...DocPartIndexColumn) (*DocPartIndex, error) {
	if identifier == "" {
		return nil, invalidArgument("doc part index needs an identifier")
	}
	if len(columns) == 0 {
		return nil, invalidArgument("doc part index %q needs at least one column", identifier)
	}

	sorted := slices.Clone(columns)
	slices.SortFunc(sorted, func(a, b DocPartIndexColumn) int { return a.Position - b.Position })

	seen := make(map[string]struct{}, len(sorted))
	for i, c := range sorted {
		if c.Position != i {
			return nil, invalidArgument("doc part index %q has no column at position %d", identifier, i)
		}
		if c.Identifier == "" {
			return nil, invalidArgument("doc part index %q has an unnamed column at position %d", identifier, i)
		}
		if !c.Ordering.Valid() {
			return nil, invalidArgument("doc part index %q has an unknown ordering at position %d", identifier, i)
		}
		if _, dup := seen[c.Identifier]; dup {
			return nil, &ErrDuplicate{Kind: KindDocPartIndex, Parent: identifier, Key: "column " + c.Identifier}
		}
		seen[c.Identifier] = struct{}{}
	}

	return &DocPartIndex{identifier: identifier, unique: unique, columns: sorted}, nil
}

func (i *DocPartIndex) Identifier() string { return i.identifier }
func (i *DocPartIndex) IsUnique() bool     { return i.unique }
func (i *DocPartIndex) Size() int          { return len(i.columns) }

// Columns returns the columns in position order.
func (i *DocPartIndex) Columns() []DocPartIndexColumn {
	return slices.Clone(i.columns)
}

// ColumnByPosition returns the column at position, or false.
func (i *DocPartIndex) ColumnByPosition(position int) (DocPartIndexColumn, bool) {
	if position < 0 || position >= len(i.columns) {
		return DocPartIndexColumn{}, false
	}
	return i.columns[position], true
}

// ColumnByIdentifier returns the column on the given field identifier, or false.
func (i *DocPartIndex) ColumnByIdentifier(identifier string) (DocPartIndexColumn, bool) {
	for _, c := range i.columns {
		if c.Identifier == identifier {
			return c, true
		}
	}
	return DocPartIndexColumn{}, false
}

// HasSameColumns reports whether both indexes enforce the same uniqueness on
// the same columns in the same order.
func (i *DocPartIndex) HasSameColumns(other *DocPartIndex) bool {
	return i.unique == other.unique && slices.Equal(i.columns, other.columns)
}

func (i *DocPartIndex) String() string {
	cols := make([]string, len(i.columns))
	for n, c := range i.columns {
		cols[n] = c.Identifier + " " + c.Ordering.String()
	}
	return fmt.Sprintf("%s(%s) unique=%t", i.identifier, strings.Join(cols, ", "), i.unique)
}
