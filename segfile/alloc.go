package segfile

import (
	"fmt"

	"github.com/loglayer/segkit/internal/format"
	"github.com/loglayer/segkit/metrics"
)

// Allocate hands out a clean segment, marking it dirty and recording it as
// the new search hint. The scan starts after the last allocated segment and
// wraps through up to three sub-ranges in priority order: the remainder of
// the allocatable range, the tail of the universe above it, and the head of
// the universe below it. Returns ErrNoSpace once every segment has been
// visited without finding a clean one.
func (f *SegmentFile) Allocate() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	hb, err := f.headerBlock()
	if err != nil {
		return 0, err
	}
	hdr, err := format.ParseHeader(hb.Data())
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, ErrIO)
	}
	lastAlloc := hdr.LastAllocated

	nsegments := f.nsegments
	maxsegnum := f.allocMax
	segnum := lastAlloc + 1
	if segnum < f.allocMin || segnum > f.allocMax {
		segnum = f.allocMin
	}

	var nsus uint64
scan:
	for cnt := uint64(0); cnt < nsegments; cnt += nsus {
		if segnum > maxsegnum {
			switch {
			case cnt < f.allocMax-f.allocMin+1:
				// Wrap around in the limited range. If the scan started
				// from allocMin this never happens.
				segnum = f.allocMin
				maxsegnum = lastAlloc
			case segnum > f.allocMin && f.allocMax+1 < nsegments:
				segnum = f.allocMax + 1
				maxsegnum = nsegments - 1
			case f.allocMin > 0:
				segnum = 0
				maxsegnum = f.allocMin - 1
			default:
				break scan
			}
		}
		eb, err := f.entryBlock(segnum, true)
		if err != nil {
			return 0, err
		}
		nsus = uint64(f.geo.EntriesInBlock(segnum, maxsegnum))
		for j := uint64(0); j < nsus; j++ {
			sn := segnum + j
			s, e, err := f.entryAt(eb, sn)
			if err != nil {
				return 0, err
			}
			if !e.Clean() {
				continue
			}
			e.SetDirty()
			format.PutEntry(s, e)
			eb.MarkDirty()
			f.modCounters(hb, -1, 1)
			format.PutLastAllocated(hb.Data(), sn)
			f.store.MarkFileDirty()
			metrics.AllocationsTotal.Inc()
			return sn, nil
		}
		segnum += nsus
	}

	metrics.NoSpaceTotal.Inc()
	return 0, ErrNoSpace
}
