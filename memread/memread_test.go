package memread

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestChain_DecodeFloat(t *testing.T) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(12.5))
	v, ok := Chain{}.decodeValue(buf[:])
	if !ok || v != 12.5 {
		t.Fatalf("decode = (%v,%v), want (12.5,true)", v, ok)
	}
}

func TestChain_DecodeDouble(t *testing.T) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(-3.25))
	v, ok := Chain{Type: "double"}.decodeValue(buf[:])
	if !ok || v != -3.25 {
		t.Fatalf("decode = (%v,%v), want (-3.25,true)", v, ok)
	}
}

func TestChain_DecodeInt(t *testing.T) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(0xFFFFFFFF)) // -1
	v, ok := Chain{Type: "int"}.decodeValue(buf[:])
	if !ok || v != -1 {
		t.Fatalf("decode = (%v,%v), want (-1,true)", v, ok)
	}
}

func TestChain_DecodeBool(t *testing.T) {
	if v, ok := (Chain{Type: "bool"}).decodeValue([]byte{1}); !ok || v != 1 {
		t.Fatalf("true decoded as (%v,%v)", v, ok)
	}
	if v, ok := (Chain{Type: "bool"}).decodeValue([]byte{0}); !ok || v != 0 {
		t.Fatalf("false decoded as (%v,%v)", v, ok)
	}
}

func TestChain_ShortBuffer(t *testing.T) {
	if _, ok := (Chain{Type: "double"}).decodeValue([]byte{1, 2, 3}); ok {
		t.Fatal("short buffer decoded")
	}
}

func TestChain_ValueSize(t *testing.T) {
	sizes := map[string]int{"": 4, "float": 4, "int": 4, "double": 8, "bool": 1}
	for typ, want := range sizes {
		if got := (Chain{Type: typ}).valueSize(); got != want {
			t.Fatalf("valueSize(%q) = %d, want %d", typ, got, want)
		}
	}
}
