// Package merge folds the changes of a mutable snapshot into the committed
// catalog.
//
// Merge walks the change set of an overlay top-down (database, collection,
// doc part, then fields, scalars and indexes) and compares every changed
// element with the committed entities that share its physical identifier or
// its logical identity. Each element resolves to exactly one action:
//
//	state \ relation   none     same       clash
//	added, modified    insert   recurse    conflict
//	removed            no-op    delete     conflict
//
// Indexes and doc part indexes add their own checks so that no physical
// index is left without a logical index and no logical index is left without
// its physical realization.
//
// A merge either produces a complete new snapshot or fails with an
// *UnmergeableError. Conflicts are described lazily: nothing is formatted
// unless the error is printed.
package merge
