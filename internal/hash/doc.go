// Package hash provides the CRC32-Castagnoli checksum of catalog envelopes.
//
//	checksum := hash.CRC32C(payload)
package hash
