// Package conv provides checked integer conversions for lengths read from
// and written to catalog envelopes.
package conv
