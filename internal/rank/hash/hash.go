// Package hash maps n-gram strings onto the fixed feature space shared
// with the offline index build. The hash function and the feature
// dimensionality are a versioned contract: an index built with a
// different hash or size silently corrupts every score, so both sides
// must use exactly this function.
package hash

import (
	"github.com/spaolacci/murmur3"
)

// Bucket returns the feature bucket for token in [0, hashSize).
// MurmurHash3 x86 32-bit, zero seed, over the token's UTF-8 bytes.
// Pure and deterministic. hashSize must be positive; the index loader
// rejects zero-sized feature spaces before this layer is reached.
func Bucket(token string, hashSize uint32) uint32 {
	return murmur3.Sum32([]byte(token)) % hashSize
}
