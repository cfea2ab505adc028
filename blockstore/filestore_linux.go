//go:build linux

package blockstore

import (
	"errors"

	"golang.org/x/sys/unix"
)

// blockPresent reports whether the file region at off holds data. Punched-out
// and never-written regions are holes, detected with SEEK_DATA so a deleted
// block reads back as missing rather than as stored zeros.
func (s *FileStore) blockPresent(off int64) (bool, error) {
	size, err := s.fileSize()
	if err != nil {
		return false, err
	}
	if off >= size {
		return false, nil
	}
	dataOff, err := unix.Seek(int(s.f.Fd()), off, unix.SEEK_DATA)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			// No data between off and EOF.
			return false, nil
		}
		return false, err
	}
	return dataOff < off+int64(s.blockSize), nil
}

// punchHole deallocates the byte range without shrinking the file.
func (s *FileStore) punchHole(off, length int64) error {
	return unix.Fallocate(int(s.f.Fd()),
		unix.FALLOC_FL_PUNCH_HOLE|unix.FALLOC_FL_KEEP_SIZE, off, length)
}
