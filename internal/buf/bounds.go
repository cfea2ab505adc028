package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative ints, returning ok = false when
// the result would overflow. This is essential for slot * entrySize
// calculations when slicing entry runs out of a block.
func MulOverflowSafe(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// CheckSliceBounds validates that count elements of elementSize bytes fit in a
// buffer of bufLen bytes starting at offset. Returns the end offset if valid,
// or an error describing the specific failure (overflow or out of bounds).
func CheckSliceBounds(bufLen, offset, count, elementSize int) (int, error) {
	if offset < 0 || count < 0 || elementSize < 0 {
		return 0, fmt.Errorf("negative bounds: offset=%d count=%d elementSize=%d", offset, count, elementSize)
	}
	total, ok := MulOverflowSafe(count, elementSize)
	if !ok {
		return 0, fmt.Errorf("size overflow: %d * %d", count, elementSize)
	}
	end, ok := AddOverflowSafe(offset, total)
	if !ok {
		return 0, fmt.Errorf("offset overflow: %d + %d", offset, total)
	}
	if end > bufLen {
		return 0, fmt.Errorf("range [%d, %d) exceeds buffer length %d", offset, end, bufLen)
	}
	return end, nil
}
