package segfile

import (
	"errors"
	"fmt"

	"github.com/loglayer/segkit/blockstore"
	"github.com/loglayer/segkit/internal/format"
)

// Segment usage flag bits as seen through GetInfo and SetInfo. FlagActive
// is virtual: it is overlaid on read paths and stripped on write paths.
const (
	FlagActive = format.FlagActive
	FlagDirty  = format.FlagDirty
	FlagError  = format.FlagError
)

// Info is one segment's usage as seen by callers: the persisted record plus
// the virtual ACTIVE flag.
type Info struct {
	LastModified uint64
	LiveBlocks   uint32
	Flags        uint32
}

// Clean reports whether the segment is allocatable. The virtual ACTIVE flag
// does not count against cleanliness.
func (i Info) Clean() bool { return i.Flags&^FlagActive == 0 }

// Dirty reports whether the segment is in use or awaiting reclamation.
func (i Info) Dirty() bool { return i.Flags&FlagDirty != 0 }

// Error reports whether the segment is quarantined as faulty.
func (i Info) Error() bool { return i.Flags&FlagError != 0 }

// Active reports whether the segment is currently a live write target.
func (i Info) Active() bool { return i.Flags&FlagActive != 0 }

// GetInfo returns usage records for up to max segments starting at start.
// Holes in the metadata file synthesize all-zero records. Read-only.
func (f *SegmentFile) GetInfo(start uint64, max int) ([]Info, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if max <= 0 || start >= f.nsegments {
		return nil, nil
	}
	total := f.nsegments - start
	if uint64(max) < total {
		total = uint64(max)
	}
	out := make([]Info, 0, total)
	var n int
	for i := uint64(0); i < total; i += uint64(n) {
		segnum := start + i
		n = f.geo.EntriesInBlock(segnum, start+total-1)
		eb, err := f.entryBlock(segnum, false)
		if err != nil {
			if errors.Is(err, blockstore.ErrNotFound) {
				// Hole: a run of clean, all-zero records.
				out = append(out, make([]Info, n)...)
				continue
			}
			return nil, err
		}
		for j := 0; j < n; j++ {
			sn := segnum + uint64(j)
			_, e, err := f.entryAt(eb, sn)
			if err != nil {
				return nil, err
			}
			flags := e.Flags &^ format.FlagActive
			if f.isActive(sn) {
				flags |= format.FlagActive
			}
			out = append(out, Info{
				LastModified: e.LastModified,
				LiveBlocks:   e.LiveBlocks,
				Flags:        flags,
			})
		}
	}
	return out, nil
}

// InfoUpdate is one element of a bulk write: only the fields with their Set
// flag raised are applied.
type InfoUpdate struct {
	Segnum uint64

	SetLastModified bool
	LastModified    uint64

	SetLiveBlocks bool
	LiveBlocks    uint32

	SetFlags bool
	Flags    uint32
}

// SetInfo applies a batch of partial usage updates. Every update is
// validated before anything is written: an unknown segment number, a flag
// outside the recognized set, or a live block count beyond the segment
// capacity aborts the whole call with ErrInvalidArgument. A caller-supplied
// ACTIVE bit is stripped rather than persisted. Clean/dirty counter deltas
// accumulate across the batch and are applied to the header once at the
// end.
func (f *SegmentFile) SetInfo(updates []InfoUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, up := range updates {
		if up.Segnum >= f.nsegments {
			return fmt.Errorf("segment %d: %w", up.Segnum, ErrInvalidArgument)
		}
		if up.SetFlags && up.Flags&^format.KnownFlagMask != 0 {
			return fmt.Errorf("unknown flags %#x for segment %d: %w", up.Flags, up.Segnum, ErrInvalidArgument)
		}
		if up.SetLiveBlocks && uint64(up.LiveBlocks) > f.blocksPerSegment {
			return fmt.Errorf("live block count %d exceeds segment capacity %d: %w",
				up.LiveBlocks, f.blocksPerSegment, ErrInvalidArgument)
		}
	}

	hb, err := f.headerBlock()
	if err != nil {
		return err
	}
	blkoff := f.geo.BlockOf(updates[0].Segnum)
	eb, err := f.store.GetBlock(blkoff, true)
	if err != nil {
		return err
	}

	var ncleaned, ndirtied int64
	var loopErr error
	for i, up := range updates {
		if i > 0 {
			if off := f.geo.BlockOf(up.Segnum); off != blkoff {
				eb.MarkDirty()
				blkoff = off
				if eb, loopErr = f.store.GetBlock(blkoff, true); loopErr != nil {
					break
				}
			}
		}
		s, e, err := f.entryAt(eb, up.Segnum)
		if err != nil {
			loopErr = err
			break
		}
		if up.SetLastModified {
			e.LastModified = up.LastModified
		}
		if up.SetLiveBlocks {
			e.LiveBlocks = up.LiveBlocks
		}
		if up.SetFlags {
			// ACTIVE is projected by the running filesystem; drop it so it
			// never reaches disk.
			flags := up.Flags &^ format.FlagActive

			cleanIn, cleanCur := flags == 0, e.Clean()
			dirtyIn, dirtyCur := flags&format.FlagDirty != 0, e.Dirty()
			switch {
			case cleanIn && !cleanCur:
				ncleaned++
			case !cleanIn && cleanCur:
				ncleaned--
			}
			switch {
			case dirtyIn && !dirtyCur:
				ndirtied++
			case !dirtyIn && dirtyCur:
				ndirtied--
			}
			e.Flags = flags
		}
		format.PutEntry(s, e)
	}
	if loopErr == nil {
		eb.MarkDirty()
	}

	if ncleaned != 0 || ndirtied != 0 {
		f.modCounters(hb, ncleaned, ndirtied)
	}
	f.store.MarkFileDirty()
	return loopErr
}
