package catalog

import (
	"fmt"

	"github.com/hupe1980/metacat/metainf"
	"github.com/hupe1980/metacat/model"
	"github.com/hupe1980/metacat/tableref"
)

// SnapshotRecord is the serializable form of a metainf.Snapshot. Doc parts
// and index fields address their path with TableRef tokens.
type SnapshotRecord struct {
	Databases []DatabaseRecord `json:"databases" yaml:"databases"`
}

// DatabaseRecord describes a database.
type DatabaseRecord struct {
	Name        string             `json:"name" yaml:"name"`
	Identifier  string             `json:"identifier" yaml:"identifier"`
	Collections []CollectionRecord `json:"collections,omitempty" yaml:"collections,omitempty"`
}

// CollectionRecord describes a collection.
type CollectionRecord struct {
	Name       string          `json:"name" yaml:"name"`
	Identifier string          `json:"identifier" yaml:"identifier"`
	DocParts   []DocPartRecord `json:"doc_parts,omitempty" yaml:"doc_parts,omitempty"`
	Indexes    []IndexRecord   `json:"indexes,omitempty" yaml:"indexes,omitempty"`
}

// DocPartRecord describes a doc part.
type DocPartRecord struct {
	Path       []string             `json:"path" yaml:"path,flow"`
	Identifier string               `json:"identifier" yaml:"identifier"`
	LastRowID  int64                `json:"last_row_id,omitempty" yaml:"last_row_id,omitempty"`
	Fields     []FieldRecord        `json:"fields,omitempty" yaml:"fields,omitempty"`
	Scalars    []ScalarRecord       `json:"scalars,omitempty" yaml:"scalars,omitempty"`
	Indexes    []DocPartIndexRecord `json:"indexes,omitempty" yaml:"indexes,omitempty"`
}

// FieldRecord describes a field.
type FieldRecord struct {
	Name       string          `json:"name" yaml:"name"`
	Identifier string          `json:"identifier" yaml:"identifier"`
	Type       model.FieldType `json:"type" yaml:"type"`
}

// ScalarRecord describes a scalar.
type ScalarRecord struct {
	Identifier string          `json:"identifier" yaml:"identifier"`
	Type       model.FieldType `json:"type" yaml:"type"`
}

// DocPartIndexRecord describes a doc part index.
type DocPartIndexRecord struct {
	Identifier string         `json:"identifier" yaml:"identifier"`
	Unique     bool           `json:"unique,omitempty" yaml:"unique,omitempty"`
	Columns    []ColumnRecord `json:"columns" yaml:"columns"`
}

// ColumnRecord describes a doc part index column.
type ColumnRecord struct {
	Position   int                      `json:"position" yaml:"position"`
	Identifier string                   `json:"identifier" yaml:"identifier"`
	Ordering   model.FieldIndexOrdering `json:"ordering" yaml:"ordering"`
}

// IndexRecord describes a logical index.
type IndexRecord struct {
	Name   string             `json:"name" yaml:"name"`
	Unique bool               `json:"unique,omitempty" yaml:"unique,omitempty"`
	Fields []IndexFieldRecord `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// IndexFieldRecord describes a field of a logical index.
type IndexFieldRecord struct {
	Position int                      `json:"position" yaml:"position"`
	Path     []string                 `json:"path" yaml:"path,flow"`
	Name     string                   `json:"name" yaml:"name"`
	Ordering model.FieldIndexOrdering `json:"ordering" yaml:"ordering"`
}

// NewSnapshotRecord converts a snapshot into its record form. Entities are
// emitted in the order of the snapshot accessors, so equal snapshots
// produce equal records.
func NewSnapshotRecord(snap *metainf.Snapshot) SnapshotRecord {
	var rec SnapshotRecord
	for _, db := range snap.Databases() {
		dbRec := DatabaseRecord{Name: db.Name(), Identifier: db.Identifier()}
		for _, col := range db.Collections() {
			dbRec.Collections = append(dbRec.Collections, newCollectionRecord(col))
		}
		rec.Databases = append(rec.Databases, dbRec)
	}
	return rec
}

func newCollectionRecord(col *metainf.Collection) CollectionRecord {
	rec := CollectionRecord{Name: col.Name(), Identifier: col.Identifier()}
	for _, part := range col.DocParts() {
		partRec := DocPartRecord{
			Path:       part.TableRef().Tokens(),
			Identifier: part.Identifier(),
			LastRowID:  part.LastRowID(),
		}
		for _, f := range part.Fields() {
			partRec.Fields = append(partRec.Fields, FieldRecord{Name: f.Name(), Identifier: f.Identifier(), Type: f.Type()})
		}
		for _, s := range part.Scalars() {
			partRec.Scalars = append(partRec.Scalars, ScalarRecord{Identifier: s.Identifier(), Type: s.Type()})
		}
		for _, idx := range part.DocPartIndexes() {
			idxRec := DocPartIndexRecord{Identifier: idx.Identifier(), Unique: idx.IsUnique()}
			for _, c := range idx.Columns() {
				idxRec.Columns = append(idxRec.Columns, ColumnRecord(c))
			}
			partRec.Indexes = append(partRec.Indexes, idxRec)
		}
		rec.DocParts = append(rec.DocParts, partRec)
	}
	for _, idx := range col.Indexes() {
		idxRec := IndexRecord{Name: idx.Name(), Unique: idx.IsUnique()}
		for _, f := range idx.Fields() {
			idxRec.Fields = append(idxRec.Fields, IndexFieldRecord{
				Position: f.Position,
				Path:     f.TableRef.Tokens(),
				Name:     f.Name,
				Ordering: f.Ordering,
			})
		}
		rec.Indexes = append(rec.Indexes, idxRec)
	}
	return rec
}

// Snapshot rebuilds the snapshot. Paths are interned through refs.
func (r SnapshotRecord) Snapshot(refs *tableref.Factory) (*metainf.Snapshot, error) {
	sb := metainf.NewSnapshotBuilder()
	for _, dbRec := range r.Databases {
		db := metainf.NewDatabaseBuilder(dbRec.Name, dbRec.Identifier)
		for _, colRec := range dbRec.Collections {
			col, err := colRec.collection(refs)
			if err != nil {
				return nil, fmt.Errorf("database %q: %w", dbRec.Name, err)
			}
			db.PutCollection(col)
		}
		built, err := db.Build()
		if err != nil {
			return nil, err
		}
		sb.PutDatabase(built)
	}
	return sb.Build()
}

func (r CollectionRecord) collection(refs *tableref.Factory) (*metainf.Collection, error) {
	cb := metainf.NewCollectionBuilder(r.Name, r.Identifier)
	for _, partRec := range r.DocParts {
		part, err := partRec.docPart(refs)
		if err != nil {
			return nil, fmt.Errorf("collection %q: %w", r.Name, err)
		}
		cb.PutDocPart(part)
	}
	for _, idxRec := range r.Indexes {
		fields := make([]metainf.IndexField, 0, len(idxRec.Fields))
		for _, f := range idxRec.Fields {
			ref, err := refs.Decode(f.Path)
			if err != nil {
				return nil, fmt.Errorf("index %q: %w", idxRec.Name, err)
			}
			fields = append(fields, metainf.IndexField{Position: f.Position, TableRef: ref, Name: f.Name, Ordering: f.Ordering})
		}
		idx, err := metainf.NewIndex(idxRec.Name, idxRec.Unique, fields...)
		if err != nil {
			return nil, fmt.Errorf("collection %q: %w", r.Name, err)
		}
		cb.PutIndex(idx)
	}
	return cb.Build()
}

func (r DocPartRecord) docPart(refs *tableref.Factory) (*metainf.DocPart, error) {
	ref, err := refs.Decode(r.Path)
	if err != nil {
		return nil, fmt.Errorf("doc part %q: %w", r.Identifier, err)
	}
	b := metainf.NewDocPartBuilder(ref, r.Identifier).SetLastRowID(r.LastRowID)
	for _, f := range r.Fields {
		field, err := metainf.NewField(f.Name, f.Identifier, f.Type)
		if err != nil {
			return nil, err
		}
		b.PutField(field)
	}
	for _, s := range r.Scalars {
		scalar, err := metainf.NewScalar(s.Identifier, s.Type)
		if err != nil {
			return nil, err
		}
		b.PutScalar(scalar)
	}
	for _, idxRec := range r.Indexes {
		columns := make([]metainf.DocPartIndexColumn, len(idxRec.Columns))
		for i, c := range idxRec.Columns {
			columns[i] = metainf.DocPartIndexColumn(c)
		}
		idx, err := metainf.NewDocPartIndex(idxRec.Identifier, idxRec.Unique, columns...)
		if err != nil {
			return nil, err
		}
		b.PutDocPartIndex(idx)
	}
	return b.Build()
}
