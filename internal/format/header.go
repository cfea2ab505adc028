package format

import (
	"fmt"

	"github.com/loglayer/segkit/internal/buf"
)

// Header is the decoded form of the persisted counter record at file offset 0.
type Header struct {
	CleanSegs     uint64
	DirtySegs     uint64
	LastAllocated uint64
}

// ParseHeader decodes the header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("header: %w", ErrTruncated)
	}
	return Header{
		CleanSegs:     buf.ReadU64(b, HeaderCleanOffset),
		DirtySegs:     buf.ReadU64(b, HeaderDirtyOffset),
		LastAllocated: buf.ReadU64(b, HeaderLastAllocOffset),
	}, nil
}

// PutHeader encodes h at the start of b.
func PutHeader(b []byte, h Header) {
	buf.PutU64(b, HeaderCleanOffset, h.CleanSegs)
	buf.PutU64(b, HeaderDirtyOffset, h.DirtySegs)
	buf.PutU64(b, HeaderLastAllocOffset, h.LastAllocated)
}

// AddHeaderCounters adjusts the persisted clean and dirty counters in place.
// Deltas are applied with two's-complement wrap, matching the on-disk
// unsigned arithmetic.
func AddHeaderCounters(b []byte, cleanAdd, dirtyAdd int64) {
	buf.PutU64(b, HeaderCleanOffset, buf.ReadU64(b, HeaderCleanOffset)+uint64(cleanAdd))
	buf.PutU64(b, HeaderDirtyOffset, buf.ReadU64(b, HeaderDirtyOffset)+uint64(dirtyAdd))
}

// PutLastAllocated stores the allocation search hint.
func PutLastAllocated(b []byte, segnum uint64) {
	buf.PutU64(b, HeaderLastAllocOffset, segnum)
}

// PutCleanSegs overwrites the persisted clean counter. Used by resize, which
// republishes the cached value instead of applying a delta.
func PutCleanSegs(b []byte, n uint64) {
	buf.PutU64(b, HeaderCleanOffset, n)
}
