//go:build linux

package device

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// blkDiscard is the BLKDISCARD ioctl request, _IO(0x12, 119). Not exported
// by x/sys/unix.
const blkDiscard = 0x1277

// BlockDiscarder issues BLKDISCARD ioctls against a raw block device.
type BlockDiscarder struct {
	f         *os.File
	blockSize int64
}

// NewBlockDiscarder wraps an open block device. blockSize is the filesystem
// block size used to convert block extents to byte ranges.
func NewBlockDiscarder(f *os.File, blockSize int) *BlockDiscarder {
	return &BlockDiscarder{f: f, blockSize: int64(blockSize)}
}

// Discard implements Discarder.
func (d *BlockDiscarder) Discard(startBlock, nblocks uint64) error {
	rng := [2]uint64{
		startBlock * uint64(d.blockSize),
		nblocks * uint64(d.blockSize),
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), blkDiscard,
		uintptr(unsafe.Pointer(&rng[0])))
	if errno != 0 {
		return &os.PathError{Op: "blkdiscard", Path: d.f.Name(), Err: errno}
	}
	return nil
}

func punchHole(f *os.File, off, length int64) error {
	return unix.Fallocate(int(f.Fd()),
		unix.FALLOC_FL_PUNCH_HOLE|unix.FALLOC_FL_KEEP_SIZE, off, length)
}
