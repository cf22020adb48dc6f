// Package fs provides the file system abstraction of the local blob store
// for testability and fault injection.
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test utility that fails writes, syncs, closes, renames
//     and links on demand
//
// Production code uses fs.Default:
//
//	f, err := fs.Default.CreateTemp(dir, ".tmp-*")
//
// Tests inject a FaultyFS to simulate failures:
//
//	faulty := fs.NewFaultyFS(nil)
//	faulty.SetFault(fs.Fault{FailAfterBytes: -1, FailOnSync: true})
package fs
