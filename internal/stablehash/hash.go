// Package stablehash provides the deterministic hash behind the values'
// Hash methods, which key the dict index in internal/value. Go's builtin
// map hash is randomized per process (by design, to resist hash-flooding),
// which would make dict key hashes vary between runs of the same
// program — unacceptable for a configuration
// language whose evaluation is supposed to be reproducible. xxhash is
// seedless and gives the same digest for the same bytes on every run.
package stablehash

import "github.com/cespare/xxhash/v2"

// Sum64 returns the stable 64-bit hash of b.
func Sum64(b []byte) uint64 { return xxhash.Sum64(b) }

// Sum64String is Sum64 without the []byte conversion allocation.
func Sum64String(s string) uint64 { return xxhash.Sum64String(s) }

// Small truncates a digest to 32 bits, mirroring the original evaluator's
// practice of keeping a small hash alongside values for cheap inequality
// checks (two different 32-bit hashes prove inequality without a full
// comparison; equal hashes still require the real comparison).
func Small(h uint64) uint32 {
	return uint32(h)
}
