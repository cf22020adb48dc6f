// Package catalog persists committed schema snapshots as numbered versions
// on a blob store.
//
// # Binary Format
//
// Every version is stored in its own blob, CATALOG-NNNNNN.bin:
//
//	Header:
//	  Magic         (4 bytes) - 0x5441434D ("MCAT")
//	  Version       (4 bytes) - Format version (currently 1)
//	  Compression   (1 byte)  - none, lz4 or zstd
//	  Codec         (string)  - codec name, 1-byte length + bytes
//	  Checksum      (4 bytes) - CRC32C of the stored payload
//	  RawLength     (4 bytes) - Payload length before compression
//	  PayloadLength (4 bytes) - Stored payload length
//
//	Payload: the codec encoding of the version document, compressed.
//
// The document carries the version number, its parent version, its creation
// time, the id of the merge that produced it and the catalog itself. Doc
// parts and index fields address their path with TableRef tokens.
//
// # Atomic Protocol
//
// Save follows a two-phase protocol:
//
//  1. Create CATALOG-NNNNNN.bin, conditionally when the blob store supports it
//  2. Point CURRENT at the new blob
//
// Save is optimistic: it names the version the snapshot was derived from and
// fails with ErrVersionExists when another writer stored a newer one first.
//
// Load reads CURRENT to find the active version, then loads that blob.
//
// Versions, Vacuum and Verify work on the set of stored versions, which is
// kept in a roaring64 bitmap.
package catalog
