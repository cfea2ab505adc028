package blockstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// FileStore backs the metadata file with a regular file. Fetched blocks are
// cached in memory; dirty blocks are coalesced into contiguous runs and
// written back in single writes on Flush. Deleted blocks are punched out of
// the file so they read back as holes (platforms without hole punching fall
// back to writing zeros, which decodes to the same all-clean entries).
type FileStore struct {
	f         *os.File
	blockSize int
	cache     map[uint64][]byte
	dirty     map[uint64]struct{}
	fileDirty bool
	closed    bool
}

// OpenFileStore opens (or creates) the metadata file at path.
func OpenFileStore(path string, blockSize int) (*FileStore, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("blockstore: invalid block size %d", blockSize)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileStore{
		f:         f,
		blockSize: blockSize,
		cache:     make(map[uint64][]byte),
		dirty:     make(map[uint64]struct{}),
	}, nil
}

// BlockSize returns the fixed block size in bytes.
func (s *FileStore) BlockSize() int { return s.blockSize }

// GetBlock fetches the block at num, creating it zero-filled when create is
// set. Never-written and punched-out regions report ErrNotFound.
func (s *FileStore) GetBlock(num uint64, create bool) (*Block, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if data, ok := s.cache[num]; ok {
		return NewBlock(num, data, s.addDirty), nil
	}
	off := int64(num) * int64(s.blockSize)
	present, err := s.blockPresent(off)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", num, err)
	}
	if !present && !create {
		return nil, fmt.Errorf("block %d: %w", num, ErrNotFound)
	}
	data := make([]byte, s.blockSize)
	if present {
		if _, err := s.f.ReadAt(data, off); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("block %d: %w", num, err)
		}
	} else {
		// Newly created block: materialize it on the next flush.
		s.dirty[num] = struct{}{}
	}
	s.cache[num] = data
	return NewBlock(num, data, s.addDirty), nil
}

// DeleteBlock drops the block at num from the cache and punches it out of
// the file.
func (s *FileStore) DeleteBlock(num uint64) error {
	if s.closed {
		return ErrClosed
	}
	delete(s.cache, num)
	delete(s.dirty, num)
	off := int64(num) * int64(s.blockSize)
	size, err := s.fileSize()
	if err != nil {
		return err
	}
	if off >= size {
		return nil
	}
	return s.punchHole(off, int64(s.blockSize))
}

// MarkFileDirty records a pending file-level metadata change; Flush responds
// with an fsync.
func (s *FileStore) MarkFileDirty() { s.fileDirty = true }

// Flush writes all dirty blocks back to the file, coalescing adjacent block
// numbers into single writes, and syncs when file-level metadata changed.
func (s *FileStore) Flush() error {
	if s.closed {
		return ErrClosed
	}
	if len(s.dirty) > 0 {
		nums := make([]uint64, 0, len(s.dirty))
		for n := range s.dirty {
			nums = append(nums, n)
		}
		sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })

		for i := 0; i < len(nums); {
			j := i + 1
			for j < len(nums) && nums[j] == nums[j-1]+1 {
				j++
			}
			run := make([]byte, 0, (j-i)*s.blockSize)
			for _, n := range nums[i:j] {
				run = append(run, s.cache[n]...)
			}
			off := int64(nums[i]) * int64(s.blockSize)
			if _, err := s.f.WriteAt(run, off); err != nil {
				return fmt.Errorf("blockstore: write-back at block %d: %w", nums[i], err)
			}
			i = j
		}
		s.dirty = make(map[uint64]struct{})
	}
	if s.fileDirty {
		if err := s.f.Sync(); err != nil {
			return err
		}
		s.fileDirty = false
	}
	return nil
}

// Close flushes pending writes and closes the underlying file.
func (s *FileStore) Close() error {
	if s.closed {
		return nil
	}
	flushErr := s.Flush()
	s.closed = true
	if err := s.f.Close(); err != nil {
		return err
	}
	return flushErr
}

func (s *FileStore) addDirty(num uint64) { s.dirty[num] = struct{}{} }

func (s *FileStore) fileSize() (int64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
