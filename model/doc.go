// Package model defines the value types shared by the catalog packages.
//
// # Field Types
//
// FieldType tags the document values a column can hold. A doc part stores one
// column per (field name, FieldType) pair, so a field that was seen with two
// different types owns two columns.
//
// # Change States
//
// ElementState records what a mutable overlay did to an entity relative to
// the immutable snapshot it was derived from:
//
//   - StateNotExistent: the entity is unknown to the overlay
//   - StateNotChanged: the entity is inherited from the base snapshot
//   - StateAdded: the entity was created by the overlay
//   - StateModified: the entity exists in the base and one of its children changed
//   - StateRemoved: the entity was dropped by the overlay
//
// # Index Ordering
//
// FieldIndexOrdering is the sort direction of one indexed column.
package model
