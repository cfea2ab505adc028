package segfile

import (
	"errors"
	"fmt"

	"github.com/loglayer/segkit/blockstore"
	"github.com/loglayer/segkit/metrics"
)

// TrimRange describes a byte range of the device to trim and the smallest
// extent worth discarding.
type TrimRange struct {
	// Start is the byte offset of the range on the device.
	Start uint64

	// Len is the byte length of the range.
	Len uint64

	// MinLen suppresses discards of extents shorter than this many bytes.
	MinLen uint64
}

// Trim issues device discards for every run of clean segments intersecting
// the given byte range and returns the number of bytes discarded. Adjacent
// clean segments coalesce into one discard; extents shorter than MinLen are
// skipped. Metadata is only read, never modified, so a discard failure
// leaves the file intact and reports the bytes discarded so far.
func (f *SegmentFile) Trim(r TrimRange) (uint64, error) {
	bsz := uint64(f.store.BlockSize())
	length := r.Len / bsz
	minBlocks := r.MinLen / bsz

	f.mu.RLock()
	defer f.mu.RUnlock()

	maxBlocks := f.nsegments * f.blocksPerSegment
	if length == 0 || r.Start >= maxBlocks*bsz {
		return 0, fmt.Errorf("trim range start=%d len=%d: %w", r.Start, r.Len, ErrInvalidArgument)
	}
	startBlock := (r.Start + bsz - 1) / bsz
	endBlock := startBlock + length - 1
	if endBlock > maxBlocks-1 {
		endBlock = maxBlocks - 1
	}
	segStart := f.devGeo.SegmentOfBlock(startBlock)
	segEnd := f.devGeo.SegmentOfBlock(endBlock)

	var (
		extStart, extEnd uint64
		haveExt          bool
		ndiscarded       uint64
	)
	flush := func() error {
		if !haveExt {
			return nil
		}
		haveExt = false
		// Clip the extent to the requested range; the first and last
		// segments may straddle its edges.
		start, end := extStart, extEnd
		if start < startBlock {
			start = startBlock
		}
		if end > endBlock {
			end = endBlock
		}
		if start > end {
			return nil
		}
		nblocks := end - start + 1
		if nblocks < minBlocks {
			return nil
		}
		if err := f.disc.Discard(start, nblocks); err != nil {
			return fmt.Errorf("discard blocks [%d, %d]: %w", start, end, err)
		}
		ndiscarded += nblocks
		return nil
	}

	var n int
	for segnum := segStart; segnum <= segEnd; segnum += uint64(n) {
		n = f.geo.EntriesInBlock(segnum, segEnd)
		eb, err := f.entryBlock(segnum, false)
		hole := false
		if err != nil {
			if !errors.Is(err, blockstore.ErrNotFound) {
				return ndiscarded * bsz, err
			}
			// Hole: every segment in the run is clean.
			hole = true
		}
		for j := 0; j < n; j++ {
			sn := segnum + uint64(j)
			clean := hole
			if !hole {
				_, e, err := f.entryAt(eb, sn)
				if err != nil {
					return ndiscarded * bsz, err
				}
				clean = e.Clean()
			}
			if !clean {
				if err := flush(); err != nil {
					return ndiscarded * bsz, err
				}
				continue
			}
			first, last := f.devGeo.SegmentBlockRange(sn)
			if haveExt && first == extEnd+1 {
				extEnd = last
				continue
			}
			if err := flush(); err != nil {
				return ndiscarded * bsz, err
			}
			extStart, extEnd, haveExt = first, last, true
		}
	}
	if err := flush(); err != nil {
		return ndiscarded * bsz, err
	}

	nbytes := ndiscarded * bsz
	metrics.DiscardedBytesTotal.Add(float64(nbytes))
	return nbytes, nil
}
