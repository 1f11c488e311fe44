package core

import (
	"encoding/hex"
	"fmt"
)

// GIDSize is the width of a global identifier in bytes.
const GIDSize = 12

// GID is the stable, location-independent external identifier of a document.
// It is opaque to the storage layer: never interpreted, only compared and
// used as a map key.
type GID [GIDSize]byte

// GIDFromBytes builds a GID from a byte slice. The slice must be exactly
// GIDSize bytes long.
func GIDFromBytes(b []byte) (GID, error) {
	var g GID
	if len(b) != GIDSize {
		return g, fmt.Errorf("gid must be %d bytes, got %d", GIDSize, len(b))
	}
	copy(g[:], b)
	return g, nil
}

// String returns the hex representation of the GID.
func (g GID) String() string {
	return hex.EncodeToString(g[:])
}

// LID is a dense, internal identifier for a document within a single
// document type. It is strictly 32-bit, allowing for max 4 Billion documents
// per document type. Used for all hot-path structures (postings, bitsets).
type LID uint32

// MaxLID is the maximum possible value for a LID.
const MaxLID = ^LID(0)

// SerialNum is a globally monotonic sequence number stamped on every write
// operation by the upstream log. It defines a total order of operations; two
// distinct operations on the same GID never share a serial number.
type SerialNum uint64
