// Package device issues discard (trim) requests against the volume backing a
// log-structured filesystem. The trimmer hands over extents in device blocks;
// implementations translate them to whatever the underlying storage offers:
// BLKDISCARD on raw block devices, hole punching on file-backed images, or
// nothing at all.
package device

import "os"

// Discarder receives the coalesced free extents produced by a trim pass.
// Implementations must tolerate repeated discards of the same range.
type Discarder interface {
	// Discard releases nblocks device blocks starting at startBlock.
	Discard(startBlock, nblocks uint64) error
}

// NopDiscarder accepts and ignores every request. Useful on storage without
// discard support.
type NopDiscarder struct{}

// Discard implements Discarder.
func (NopDiscarder) Discard(startBlock, nblocks uint64) error { return nil }

// FileDiscarder punches holes in a file-backed volume image, releasing the
// underlying extents while keeping the file size.
type FileDiscarder struct {
	f         *os.File
	blockSize int64
}

// NewFileDiscarder wraps an open image file. blockSize is the filesystem
// block size used to convert block extents to byte ranges.
func NewFileDiscarder(f *os.File, blockSize int) *FileDiscarder {
	return &FileDiscarder{f: f, blockSize: int64(blockSize)}
}

// Discard implements Discarder.
func (d *FileDiscarder) Discard(startBlock, nblocks uint64) error {
	return punchHole(d.f, int64(startBlock)*d.blockSize, int64(nblocks)*d.blockSize)
}
