package idhash

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// DeriveSubSeed derives an independent sub-seed for one indexed random draw
// (e.g. a single bootstrap resample) from a root seed.
// Formula: SHA256(seed|index), first 8 bytes big-endian, sign bit cleared.
// The derivation depends only on (seed, index), so draws can run in any
// order or in parallel and still reproduce the serial results.
func DeriveSubSeed(seed int64, index int) int64 {
	data := fmt.Sprintf("%d|%d", seed, index)

	hash := sha256.Sum256([]byte(data))
	v := binary.BigEndian.Uint64(hash[:8])
	return int64(v & 0x7fffffffffffffff)
}

// DeriveNamedSeed derives a sub-seed for a named random component
// (e.g. scenario SKU selection) from a root seed.
// Formula: SHA256(name|seed), first 8 bytes big-endian, sign bit cleared.
func DeriveNamedSeed(seed int64, name string) int64 {
	data := fmt.Sprintf("%s|%d", name, seed)

	hash := sha256.Sum256([]byte(data))
	v := binary.BigEndian.Uint64(hash[:8])
	return int64(v & 0x7fffffffffffffff)
}
