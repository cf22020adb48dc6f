// Package metainf models the schema catalog: databases, collections, doc
// parts with their fields and scalars, logical indexes and the doc part
// indexes that realize them.
//
// Every entity has a logical identity (a name, a name and type, a path) and
// a physical identifier used by the storage layer. Once committed, the two
// stay bound to each other.
//
// The package offers two forms of the catalog:
//
//   - Snapshot and its entities are immutable values. Builders derived with
//     ToBuilder copy only the maps they touch, so unrelated branches stay
//     shared between versions.
//   - MutableSnapshot is a copy-on-write overlay over a Snapshot. Every node
//     of the overlay carries a model.ElementState and mutators validate
//     their arguments eagerly, returning errors that match
//     ErrInvalidArgument or ErrIllegalTransition.
//
// Overlays are not safe for concurrent use. Snapshots are.
package metainf
