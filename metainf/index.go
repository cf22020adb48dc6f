package metainf

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/metacat/model"
	"github.com/hupe1980/metacat/tableref"
)

// DocPartView is the read surface shared by DocPart and MutableDocPart that
// index compatibility checks need.
type DocPartView interface {
	TableRef() *tableref.TableRef
	Identifier() string
	FieldByIdentifier(identifier string) *Field
	FieldsByName(name string) []*Field
}

// IndexField is one attribute of a logical index, addressed by the doc part
// path and the attribute name.
type IndexField struct {
	Position int
	TableRef *tableref.TableRef
	Name     string
	Ordering model.FieldIndexOrdering
}

func (f IndexField) sameAs(o IndexField) bool {
	return f.Position == o.Position && f.TableRef.Equal(o.TableRef) && f.Name == o.Name && f.Ordering == o.Ordering
}

// IsCompatible reports whether column can realize f on docPart: the column
// must point to a field named like f and share its ordering.
func (f IndexField) IsCompatible(docPart DocPartView, column DocPartIndexColumn) bool {
	if f.Ordering != column.Ordering {
		return false
	}
	field := docPart.FieldByIdentifier(column.Identifier)
	return field != nil && field.Name() == f.Name
}

// IsMatch is like IsCompatible and also requires the column to sit on the
// field with the given identifier.
func (f IndexField) IsMatch(docPart DocPartView, identifier string, column DocPartIndexColumn) bool {
	return column.Identifier == identifier && f.IsCompatible(docPart, column)
}

func (f IndexField) String() string {
	return fmt.Sprintf("%d:%s.%s %s", f.Position, f.TableRef, f.Name, f.Ordering)
}

// Index is a logical index declared on a collection. Its fields may span
// several doc parts; each covered doc part realizes its share of the index
// with DocPartIndexes.
type Index struct {
	name   string
	unique bool
	fields []IndexField
}

// NewIndex creates an index. Field positions must be 0..n-1 and each
// (TableRef, Name) pair may appear only once.
func NewIndex(name string, unique bool, fields ...IndexField) (*Index, error) {
	if name == "" {
		return nil, invalidArgument("index name must not be empty")
	}
	sorted := slices.Clone(fields)
	slices.SortFunc(sorted, func(a, b IndexField) int { return a.Position - b.Position })
	for i, f := range sorted {
		if f.Position != i {
			return nil, invalidArgument("index %q has no field at position %d", name, i)
		}
		if err := validateIndexField(name, f); err != nil {
			return nil, err
		}
		for _, prev := range sorted[:i] {
			if prev.TableRef.Equal(f.TableRef) && prev.Name == f.Name {
				return nil, &ErrDuplicate{Kind: KindIndexField, Parent: "index " + name, Key: fmt.Sprintf("path %q and name %q", f.TableRef, f.Name)}
			}
		}
	}
	return &Index{name: name, unique: unique, fields: sorted}, nil
}

func validateIndexField(index string, f IndexField) error {
	if f.TableRef == nil {
		return invalidArgument("index %q has a field without path at position %d", index, f.Position)
	}
	if f.Name == "" {
		return invalidArgument("index %q has an unnamed field at position %d", index, f.Position)
	}
	if !f.Ordering.Valid() {
		return invalidArgument("index %q has an unknown ordering at position %d", index, f.Position)
	}
	return nil
}

func (i *Index) Name() string   { return i.name }
func (i *Index) IsUnique() bool { return i.unique }
func (i *Index) Size() int      { return len(i.fields) }

// Fields returns the fields in position order.
func (i *Index) Fields() []IndexField { return slices.Clone(i.fields) }

// FieldByPosition returns the field at position, or false.
func (i *Index) FieldByPosition(position int) (IndexField, bool) {
	if position < 0 || position >= len(i.fields) {
		return IndexField{}, false
	}
	return i.fields[position], true
}

// FieldByTableRefAndName returns the field on the given attribute, or false.
func (i *Index) FieldByTableRefAndName(ref *tableref.TableRef, name string) (IndexField, bool) {
	for _, f := range i.fields {
		if f.TableRef.Equal(ref) && f.Name == name {
			return f, true
		}
	}
	return IndexField{}, false
}

// FieldsByTableRef returns the fields on doc part ref in position order.
func (i *Index) FieldsByTableRef(ref *tableref.TableRef) []IndexField {
	var fields []IndexField
	for _, f := range i.fields {
		if f.TableRef.Equal(ref) {
			fields = append(fields, f)
		}
	}
	return fields
}

// TableRefs returns the distinct doc part paths the index covers, in the
// order of their first field.
func (i *Index) TableRefs() []*tableref.TableRef {
	var refs []*tableref.TableRef
	for _, f := range i.fields {
		if !slices.ContainsFunc(refs, f.TableRef.Equal) {
			refs = append(refs, f.TableRef)
		}
	}
	return refs
}

// HasSameFields reports whether both indexes have the same uniqueness and
// the same fields.
func (i *Index) HasSameFields(other *Index) bool {
	return i.unique == other.unique && slices.EqualFunc(i.fields, other.fields, IndexField.sameAs)
}

// IsMatch reports whether other would clash with i if both existed: they
// share the name or they declare the same fields.
func (i *Index) IsMatch(other *Index) bool {
	return i.name == other.name || i.HasSameFields(other)
}

// IsCompatible reports whether the index covers docPart and docPart has at
// least one field for each covered attribute.
func (i *Index) IsCompatible(docPart DocPartView) bool {
	fields := i.FieldsByTableRef(docPart.TableRef())
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if len(docPart.FieldsByName(f.Name)) == 0 {
			return false
		}
	}
	return true
}

// IsCompatibleWith reports whether docPartIndex realizes the share of the
// index that covers docPart.
func (i *Index) IsCompatibleWith(docPart DocPartView, docPartIndex *DocPartIndex) bool {
	fields := i.FieldsByTableRef(docPart.TableRef())
	if len(fields) == 0 || i.unique != docPartIndex.IsUnique() || len(fields) != docPartIndex.Size() {
		return false
	}
	for n, f := range fields {
		column, _ := docPartIndex.ColumnByPosition(n)
		if !f.IsCompatible(docPart, column) {
			return false
		}
	}
	return true
}

// IsMatchFor is like IsCompatibleWith and also requires the columns of
// docPartIndex to be exactly identifiers.
func (i *Index) IsMatchFor(docPart DocPartView, identifiers []string, docPartIndex *DocPartIndex) bool {
	fields := i.FieldsByTableRef(docPart.TableRef())
	if len(identifiers) != len(fields) || !i.IsCompatibleWith(docPart, docPartIndex) {
		return false
	}
	for n, f := range fields {
		column, _ := docPartIndex.ColumnByPosition(n)
		if !f.IsMatch(docPart, identifiers[n], column) {
			return false
		}
	}
	return true
}

// DocPartIndexIdentifiers returns every column combination of docPart that
// needs its own doc part index to realize the index. A covered attribute
// stored with several types contributes one alternative per type.
func (i *Index) DocPartIndexIdentifiers(docPart DocPartView) [][]string {
	fields := i.FieldsByTableRef(docPart.TableRef())
	if len(fields) == 0 {
		return nil
	}
	combinations := [][]string{{}}
	for _, f := range fields {
		candidates := docPart.FieldsByName(f.Name)
		next := make([][]string, 0, len(combinations)*len(candidates))
		for _, prefix := range combinations {
			for _, field := range candidates {
				combination := append(slices.Clone(prefix), field.Identifier())
				next = append(next, combination)
			}
		}
		combinations = next
	}
	return combinations
}

func (i *Index) String() string {
	fields := make([]string, len(i.fields))
	for n, f := range i.fields {
		fields[n] = f.String()
	}
	return fmt.Sprintf("%s[%s] unique=%t", i.name, strings.Join(fields, ", "), i.unique)
}
