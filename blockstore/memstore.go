package blockstore

import (
	"fmt"
	"sort"
)

// MemStore is an in-memory Store. It is the backing store for tests and for
// tooling that assembles a metadata file before writing it out.
type MemStore struct {
	blockSize int
	blocks    map[uint64][]byte
	dirty     map[uint64]struct{}
	fileDirty bool

	// Test hook: when non-nil, consulted before every fetch so tests can
	// inject block-store failures (nil in production).
	FailGet func(num uint64, create bool) error
}

// NewMemStore creates an empty in-memory store with the given block size.
func NewMemStore(blockSize int) *MemStore {
	return &MemStore{
		blockSize: blockSize,
		blocks:    make(map[uint64][]byte),
		dirty:     make(map[uint64]struct{}),
	}
}

// BlockSize returns the fixed block size in bytes.
func (s *MemStore) BlockSize() int { return s.blockSize }

// GetBlock fetches or creates the block at num.
func (s *MemStore) GetBlock(num uint64, create bool) (*Block, error) {
	if s.FailGet != nil {
		if err := s.FailGet(num, create); err != nil {
			return nil, err
		}
	}
	data, ok := s.blocks[num]
	if !ok {
		if !create {
			return nil, fmt.Errorf("block %d: %w", num, ErrNotFound)
		}
		data = make([]byte, s.blockSize)
		s.blocks[num] = data
		s.dirty[num] = struct{}{}
	}
	return NewBlock(num, data, s.addDirty), nil
}

// DeleteBlock removes the block at num, turning it back into a hole.
func (s *MemStore) DeleteBlock(num uint64) error {
	delete(s.blocks, num)
	delete(s.dirty, num)
	return nil
}

// MarkFileDirty records a pending file-level metadata change.
func (s *MemStore) MarkFileDirty() { s.fileDirty = true }

func (s *MemStore) addDirty(num uint64) { s.dirty[num] = struct{}{} }

// Exists reports whether the block at num has been written.
func (s *MemStore) Exists(num uint64) bool {
	_, ok := s.blocks[num]
	return ok
}

// DirtyBlocks returns the numbers of all blocks awaiting write-back, sorted.
func (s *MemStore) DirtyBlocks() []uint64 {
	nums := make([]uint64, 0, len(s.dirty))
	for n := range s.dirty {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums
}

// FileDirty reports whether file-level metadata changed since the last Reset.
func (s *MemStore) FileDirty() bool { return s.fileDirty }

// ResetDirty clears the dirty bookkeeping, as a write-back would.
func (s *MemStore) ResetDirty() {
	s.dirty = make(map[uint64]struct{})
	s.fileDirty = false
}
