package segfile

import (
	"errors"
	"fmt"

	"github.com/loglayer/segkit/blockstore"
	"github.com/loglayer/segkit/internal/format"
)

// SetAllocationRange limits where Allocate may land. Both bounds are
// inclusive and must fit the segment universe.
func (f *SegmentFile) SetAllocationRange(start, end uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if start > end || end >= f.nsegments {
		return fmt.Errorf("allocation range [%d, %d]: %w", start, end, ErrOutOfRange)
	}
	f.allocMin = start
	f.allocMax = end
	return nil
}

// truncateRange reclaims [start, end]: errored entries revert to clean, and
// blocks whose entries all fall inside the range are punched out of the
// metadata file. Fails ErrBusy without touching anything when the range
// holds a dirty or active segment. Caller holds the write lock.
func (f *SegmentFile) truncateRange(start, end uint64) error {
	if start > end || start >= f.nsegments {
		return fmt.Errorf("truncate range [%d, %d]: %w", start, end, ErrInvalidArgument)
	}
	hb, err := f.headerBlock()
	if err != nil {
		return err
	}

	// Validate the whole range first so a rejected truncation leaves every
	// entry byte-identical.
	var n int
	for segnum := start; segnum <= end; segnum += uint64(n) {
		n = f.geo.EntriesInBlock(segnum, end)
		eb, err := f.entryBlock(segnum, false)
		if err != nil {
			if errors.Is(err, blockstore.ErrNotFound) {
				// Hole: nothing but clean entries.
				continue
			}
			return err
		}
		for j := 0; j < n; j++ {
			sn := segnum + uint64(j)
			_, e, err := f.entryAt(eb, sn)
			if err != nil {
				return err
			}
			if e.Flags&^format.FlagError != 0 || f.isActive(sn) {
				return fmt.Errorf("segment %d in truncation range: %w", sn, ErrBusy)
			}
		}
	}

	var ncleaned int64
	for segnum := start; segnum <= end; segnum += uint64(n) {
		n = f.geo.EntriesInBlock(segnum, end)
		eb, err := f.entryBlock(segnum, false)
		if err != nil {
			if errors.Is(err, blockstore.ErrNotFound) {
				continue
			}
			return err
		}
		var nc int64
		for j := 0; j < n; j++ {
			sn := segnum + uint64(j)
			s, e, err := f.entryAt(eb, sn)
			if err != nil {
				return err
			}
			if e.Error() {
				e.SetClean()
				format.PutEntry(s, e)
				nc++
			}
		}
		if nc > 0 {
			eb.MarkDirty()
			ncleaned += nc
		}
		if n == f.geo.EntriesPerBlock {
			// Every entry of the block is inside the range: make a hole.
			if err := f.deleteEntryBlock(segnum); err != nil {
				return err
			}
		}
	}

	if ncleaned > 0 {
		f.modCounters(hb, ncleaned, 0)
		f.store.MarkFileDirty()
	}
	return nil
}

// Resize grows or shrinks the segment universe. Growing credits the new
// segments as clean. Shrinking first checks that enough clean capacity
// remains above the reserve, truncates the dropped tail, and narrows the
// allocatable range to the surviving universe before publishing the new
// size, all in one critical section.
func (f *SegmentFile) Resize(newNSegs uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	nsegs := f.nsegments
	if nsegs == newNSegs {
		return nil
	}
	if newNSegs < nsegs && nsegs-newNSegs+f.reservedSegments(newNSegs) > f.cleanSegs {
		return fmt.Errorf("shrink to %d segments: %w", newNSegs, ErrNoSpace)
	}
	hb, err := f.headerBlock()
	if err != nil {
		return err
	}

	if newNSegs > nsegs {
		f.cleanSegs += newNSegs - nsegs
	} else {
		if err := f.truncateRange(newNSegs, nsegs-1); err != nil {
			return err
		}
		f.cleanSegs -= nsegs - newNSegs

		// Narrow the allocatable range while still holding the lock so no
		// allocation can land in the truncated region, even momentarily.
		f.allocMax = newNSegs - 1
		f.allocMin = 0
	}

	format.PutCleanSegs(hb.Data(), f.cleanSegs)
	hb.MarkDirty()
	f.store.MarkFileDirty()
	f.nsegments = newNSegs
	return nil
}
