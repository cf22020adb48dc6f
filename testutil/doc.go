// Package testutil provides testing utilities for metacat.
//
// This package is intended for use in tests only. It provides a seeded,
// thread-safe RNG and catalog fixtures.
//
//	rng := testutil.NewRNG(seed)
//	snap := rng.RandomSnapshot(t, refs, testutil.RandomSnapshotOptions{
//	    Databases: 2, Collections: 3, Depth: 2, Fields: 5,
//	})
//
// SampleSnapshot returns a fixed catalog that uses every kind of entity.
package testutil
