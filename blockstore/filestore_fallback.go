//go:build !linux

package blockstore

// blockPresent reports whether the file region at off holds data. Without
// SEEK_DATA support, everything inside the file is considered present; a
// zeroed block decodes to all-clean entries, so the difference is invisible
// to readers.
func (s *FileStore) blockPresent(off int64) (bool, error) {
	size, err := s.fileSize()
	if err != nil {
		return false, err
	}
	return off < size, nil
}

// punchHole overwrites the range with zeros when real hole punching is not
// available.
func (s *FileStore) punchHole(off, length int64) error {
	zero := make([]byte, length)
	_, err := s.f.WriteAt(zero, off)
	return err
}
