// Package memread resolves named pointer chains inside the observed
// game process. Every failure mode (process gone, module missing,
// unreadable page) reports the value as absent; callers treat that as
// signal loss, not as an error.
package memread

import (
	"encoding/binary"
	"math"
)

// Chain describes one pointer chain: module base plus static offset,
// then a dereference per offset, then a typed read at the final address.
type Chain struct {
	Module  string
	Base    uint64
	Offsets []uint64
	// Type is one of float, double, int, bool. Empty means float.
	Type string
}

// valueSize returns how many bytes the final typed read needs.
func (c Chain) valueSize() int {
	switch c.Type {
	case "double":
		return 8
	case "bool":
		return 1
	default: // float, int
		return 4
	}
}

// decodeValue interprets a little-endian read per the chain's type.
func (c Chain) decodeValue(buf []byte) (float64, bool) {
	if len(buf) < c.valueSize() {
		return 0, false
	}
	switch c.Type {
	case "double":
		return math.Float64frombits(binary.LittleEndian.Uint64(buf)), true
	case "int":
		return float64(int32(binary.LittleEndian.Uint32(buf))), true
	case "bool":
		if buf[0] != 0 {
			return 1, true
		}
		return 0, true
	default:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf))), true
	}
}
