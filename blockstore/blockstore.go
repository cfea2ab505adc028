// Package blockstore provides the metadata-file block store consumed by the
// segment usage file: fixed-size blocks addressed by logical block number,
// fetched on demand, marked dirty for later write-back, and deletable so a
// truncated region reads back as a hole.
//
// Two implementations are provided. MemStore keeps blocks in a map and is
// the store used by tests and tooling. FileStore backs blocks with a regular
// file, coalesces dirty blocks into contiguous writes on flush, and punches
// holes on delete so reclaimed metadata blocks release disk space.
package blockstore

import "errors"

var (
	// ErrNotFound indicates the requested block was never written (a hole).
	ErrNotFound = errors.New("blockstore: block not found")

	// ErrClosed indicates an operation on a closed store.
	ErrClosed = errors.New("blockstore: store is closed")
)

// Store is the block-store surface the segment usage file depends on.
//
// GetBlock returns a handle whose Data aliases the store's buffer for the
// block; mutations through the slice followed by MarkDirty schedule the
// block for write-back. When create is false a never-written block yields
// ErrNotFound. The store itself performs no locking; callers serialize
// access (the segment usage file holds its own lock across every fetch).
type Store interface {
	// BlockSize returns the fixed block size in bytes.
	BlockSize() int

	// GetBlock fetches the block at the given logical number, creating it
	// zero-filled when create is set.
	GetBlock(num uint64, create bool) (*Block, error)

	// DeleteBlock removes a block, turning it back into a hole. Deleting a
	// hole is a no-op.
	DeleteBlock(num uint64) error

	// MarkFileDirty records that file-level metadata changed and should be
	// included in the next write-back.
	MarkFileDirty()
}

// Block is a handle on a fetched metadata-file block.
type Block struct {
	num       uint64
	data      []byte
	markDirty func(uint64)
}

// NewBlock wraps a block buffer for hand-out. markDirty is invoked with the
// block number on MarkDirty; stores use it to maintain their dirty sets.
func NewBlock(num uint64, data []byte, markDirty func(uint64)) *Block {
	return &Block{num: num, data: data, markDirty: markDirty}
}

// Number returns the logical block number.
func (b *Block) Number() uint64 { return b.num }

// Data returns the block contents. The slice aliases store memory; writes
// must be followed by MarkDirty to be persisted.
func (b *Block) Data() []byte { return b.data }

// MarkDirty schedules the block for write-back.
func (b *Block) MarkDirty() {
	if b.markDirty != nil {
		b.markDirty(b.num)
	}
}
