//go:build !unix

package blobstore

import "os"

// Locking is unix only.

func lockFile(*os.File) error   { return nil }
func unlockFile(*os.File) error { return nil }
