package buf

import (
	"math"
	"testing"
)

func TestU32LE(t *testing.T) {
	b := []byte{0x78, 0x56, 0x34, 0x12}
	if got := U32LE(b); got != 0x12345678 {
		t.Errorf("U32LE = %#x, want 0x12345678", got)
	}
	if got := U32LE(b[:3]); got != 0 {
		t.Errorf("short U32LE = %#x, want 0", got)
	}
}

func TestU64RoundTrip(t *testing.T) {
	b := make([]byte, 8)
	PutU64(b, 0, 0xdeadbeefcafef00d)
	if got := U64LE(b); got != 0xdeadbeefcafef00d {
		t.Errorf("U64LE = %#x", got)
	}
	if got := ReadU64(b, 0); got != 0xdeadbeefcafef00d {
		t.Errorf("ReadU64 = %#x", got)
	}
	if got := U64LE(b[:7]); got != 0 {
		t.Errorf("short U64LE = %#x, want 0", got)
	}
}

func TestU32RoundTrip(t *testing.T) {
	b := make([]byte, 8)
	PutU32(b, 4, 0xa1b2c3d4)
	if got := ReadU32(b, 4); got != 0xa1b2c3d4 {
		t.Errorf("ReadU32 = %#x", got)
	}
}

func TestCheckSliceBounds(t *testing.T) {
	end, err := CheckSliceBounds(64, 32, 1, 16)
	if err != nil || end != 48 {
		t.Errorf("CheckSliceBounds = (%d, %v), want (48, nil)", end, err)
	}
	if _, err := CheckSliceBounds(40, 32, 1, 16); err == nil {
		t.Error("out of bounds: want error")
	}
	if _, err := CheckSliceBounds(64, -1, 1, 16); err == nil {
		t.Error("negative offset: want error")
	}
	if _, err := CheckSliceBounds(64, 0, math.MaxInt/2, 3); err == nil {
		t.Error("overflow: want error")
	}
}

func TestOverflowSafeMath(t *testing.T) {
	if v, ok := AddOverflowSafe(1, 2); !ok || v != 3 {
		t.Errorf("AddOverflowSafe = (%d, %v)", v, ok)
	}
	if _, ok := AddOverflowSafe(int(^uint(0)>>1), 1); ok {
		t.Error("AddOverflowSafe overflow not detected")
	}
	if v, ok := MulOverflowSafe(0, 99); !ok || v != 0 {
		t.Errorf("MulOverflowSafe zero = (%d, %v)", v, ok)
	}
	if _, ok := MulOverflowSafe(math.MaxInt/2, 3); ok {
		t.Error("MulOverflowSafe overflow not detected")
	}
}
