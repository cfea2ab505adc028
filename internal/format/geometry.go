package format

import (
	"fmt"

	"github.com/loglayer/segkit/internal/buf"
)

// Geometry maps segment numbers onto (block, byte offset) coordinates within
// the metadata file. The header occupies the start of block 0, so the first
// entry slot is pushed up by however many strides the header covers.
type Geometry struct {
	BlockSize        int
	EntrySize        int
	EntriesPerBlock  int
	FirstEntryOffset int
}

// NewGeometry derives the entry layout for the given block and entry sizes.
// The entry size is negotiated at file-creation time and must satisfy
// MinEntrySize <= entrySize <= blockSize.
func NewGeometry(blockSize, entrySize int) (Geometry, error) {
	if entrySize < MinEntrySize {
		return Geometry{}, fmt.Errorf("too small segment usage entry size %d: %w", entrySize, ErrInvalidLayout)
	}
	if entrySize > blockSize {
		return Geometry{}, fmt.Errorf("segment usage entry size %d exceeds block size %d: %w", entrySize, blockSize, ErrInvalidLayout)
	}
	return Geometry{
		BlockSize:        blockSize,
		EntrySize:        entrySize,
		EntriesPerBlock:  blockSize / entrySize,
		FirstEntryOffset: (HeaderSize + entrySize - 1) / entrySize,
	}, nil
}

// BlockOf returns the metadata-file block holding the entry for segnum.
func (g Geometry) BlockOf(segnum uint64) uint64 {
	return (segnum + uint64(g.FirstEntryOffset)) / uint64(g.EntriesPerBlock)
}

// OffsetInBlock returns the entry slot index of segnum within its block.
func (g Geometry) OffsetInBlock(segnum uint64) int {
	return int((segnum + uint64(g.FirstEntryOffset)) % uint64(g.EntriesPerBlock))
}

// EntriesInBlock returns the length of the contiguous in-block run starting
// at curr and bounded by max (inclusive). Batch operations use it to size
// per-block scans.
func (g Geometry) EntriesInBlock(curr, max uint64) int {
	run := g.EntriesPerBlock - g.OffsetInBlock(curr)
	if rem := max - curr + 1; rem < uint64(run) {
		return int(rem)
	}
	return run
}

// EntrySlice returns the entry bytes for segnum within its block's data.
// Bounds are checked here once so codec paths can slice freely.
func (g Geometry) EntrySlice(blockData []byte, segnum uint64) ([]byte, error) {
	off, ok := buf.MulOverflowSafe(g.OffsetInBlock(segnum), g.EntrySize)
	if !ok {
		return nil, fmt.Errorf("entry slice for segment %d: offset overflow", segnum)
	}
	end, err := buf.CheckSliceBounds(len(blockData), off, 1, g.EntrySize)
	if err != nil {
		return nil, fmt.Errorf("entry slice for segment %d: %w", segnum, err)
	}
	return blockData[off:end], nil
}
