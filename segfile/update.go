package segfile

import (
	"errors"
	"fmt"

	"github.com/loglayer/segkit/blockstore"
	"github.com/loglayer/segkit/internal/format"
	"github.com/loglayer/segkit/metrics"
)

// Op selects one of the entry state transitions for batched updates.
type Op int

const (
	// OpFree returns segments to the clean pool.
	OpFree Op = iota
	// OpCancelFree rolls back an uncommitted free.
	OpCancelFree
	// OpScrap invalidates segment contents prior to reclamation.
	OpScrap
	// OpSetError quarantines faulty segments.
	OpSetError
)

// doFunc is an entry transition primitive. It receives the already-fetched
// header and entry blocks so batched callers fetch once and apply many
// times.
type doFunc func(segnum uint64, hb, eb *blockstore.Block) error

// entryAt resolves the entry bytes for segnum inside eb and decodes them.
// A failure here means the block is shorter than the layout demands, which
// is on-disk corruption.
func (f *SegmentFile) entryAt(eb *blockstore.Block, segnum uint64) ([]byte, format.Entry, error) {
	s, err := f.geo.EntrySlice(eb.Data(), segnum)
	if err != nil {
		return nil, format.Entry{}, fmt.Errorf("%v: %w", err, ErrIO)
	}
	e, err := format.ParseEntry(s)
	if err != nil {
		return nil, format.Entry{}, fmt.Errorf("%v: %w", err, ErrIO)
	}
	return s, e, nil
}

// update applies one transition primitive to a single segment under the
// write lock.
func (f *SegmentFile) update(segnum uint64, create bool, fn doFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if segnum >= f.nsegments {
		f.log.Warn("invalid segment number", "segnum", segnum)
		return fmt.Errorf("segment %d: %w", segnum, ErrInvalidArgument)
	}
	hb, err := f.headerBlock()
	if err != nil {
		return err
	}
	eb, err := f.entryBlock(segnum, create)
	if err != nil {
		return err
	}
	return fn(segnum, hb, eb)
}

// updateMany applies one transition primitive to each segment number in
// order. Every number is validated up front; an invalid one aborts the
// whole batch untouched. Entry blocks are refetched only when the next
// segment maps to a different block, so sorted input clusters fetches. The
// returned count is the number of entries processed before any block-fetch
// failure, letting the caller resume instead of re-applying.
func (f *SegmentFile) updateMany(segnums []uint64, create bool, fn doFunc) (int, error) {
	if len(segnums) == 0 {
		return 0, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	nerr := 0
	for _, segnum := range segnums {
		if segnum >= f.nsegments {
			f.log.Warn("invalid segment number", "segnum", segnum)
			nerr++
		}
	}
	if nerr > 0 {
		return 0, fmt.Errorf("%d invalid segment numbers: %w", nerr, ErrInvalidArgument)
	}

	hb, err := f.headerBlock()
	if err != nil {
		return 0, err
	}
	blkoff := f.geo.BlockOf(segnums[0])
	eb, err := f.store.GetBlock(blkoff, create)
	if err != nil {
		return 0, err
	}
	done := 0
	for i, segnum := range segnums {
		if i > 0 {
			if off := f.geo.BlockOf(segnum); off != blkoff {
				blkoff = off
				if eb, err = f.store.GetBlock(blkoff, create); err != nil {
					return done, err
				}
			}
		}
		if err := fn(segnum, hb, eb); err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}

func (f *SegmentFile) opFunc(op Op) (fn doFunc, create bool, err error) {
	switch op {
	case OpFree:
		return f.doFree, false, nil
	case OpCancelFree:
		return f.doCancelFree, false, nil
	case OpScrap:
		return f.doScrap, true, nil
	case OpSetError:
		return f.doSetError, false, nil
	default:
		return nil, false, fmt.Errorf("unknown op %d: %w", op, ErrInvalidArgument)
	}
}

// Free returns segnum to the clean pool. Freeing an already-clean segment
// is a logged no-op; freeing an errored or never-allocated segment proceeds
// with a warning.
func (f *SegmentFile) Free(segnum uint64) error {
	return f.update(segnum, false, f.doFree)
}

// CancelFree rolls back an in-flight free that was never committed,
// re-marking the segment dirty. A non-clean segment is a logged no-op.
func (f *SegmentFile) CancelFree(segnum uint64) error {
	return f.update(segnum, false, f.doCancelFree)
}

// Scrap invalidates segnum's contents: dirty, zero live blocks, no
// timestamp. Idempotent on an already-scrapped segment.
func (f *SegmentFile) Scrap(segnum uint64) error {
	return f.update(segnum, true, f.doScrap)
}

// SetError quarantines segnum. Idempotent on an already-errored segment;
// errored segments are never handed out by Allocate.
func (f *SegmentFile) SetError(segnum uint64) error {
	return f.update(segnum, false, f.doSetError)
}

// FreeMany frees a batch of segments, returning how many were processed.
func (f *SegmentFile) FreeMany(segnums []uint64) (int, error) {
	return f.updateMany(segnums, false, f.doFree)
}

// UpdateMany applies op to each segment in segnums, returning how many were
// processed before any failure.
func (f *SegmentFile) UpdateMany(op Op, segnums []uint64) (int, error) {
	fn, create, err := f.opFunc(op)
	if err != nil {
		return 0, err
	}
	return f.updateMany(segnums, create, fn)
}

func (f *SegmentFile) doFree(segnum uint64, hb, eb *blockstore.Block) error {
	s, e, err := f.entryAt(eb, segnum)
	if err != nil {
		return err
	}
	if e.Clean() {
		f.log.Warn("segment is already clean", "segnum", segnum)
		return nil
	}
	if e.Error() {
		f.log.Warn("freeing segment marked in error", "segnum", segnum)
	}
	wasDirty := e.Dirty()
	if !wasDirty {
		f.log.Warn("freeing unallocated segment", "segnum", segnum)
	}
	e.SetClean()
	format.PutEntry(s, e)
	eb.MarkDirty()
	var dirtyAdd int64
	if wasDirty {
		dirtyAdd = -1
	}
	f.modCounters(hb, 1, dirtyAdd)
	f.store.MarkFileDirty()
	metrics.FreedTotal.Inc()
	return nil
}

func (f *SegmentFile) doCancelFree(segnum uint64, hb, eb *blockstore.Block) error {
	s, e, err := f.entryAt(eb, segnum)
	if err != nil {
		return err
	}
	if !e.Clean() {
		f.log.Warn("segment must be clean to cancel a free", "segnum", segnum)
		return nil
	}
	e.SetDirty()
	format.PutEntry(s, e)
	eb.MarkDirty()
	f.modCounters(hb, -1, 1)
	f.store.MarkFileDirty()
	return nil
}

func (f *SegmentFile) doScrap(segnum uint64, hb, eb *blockstore.Block) error {
	s, e, err := f.entryAt(eb, segnum)
	if err != nil {
		return err
	}
	if e.Flags == format.FlagDirty && e.LiveBlocks == 0 {
		// Already scrapped.
		return nil
	}
	wasClean, wasDirty := e.Clean(), e.Dirty()

	// Make the segment garbage.
	e = format.Entry{Flags: format.FlagDirty}
	format.PutEntry(s, e)
	eb.MarkDirty()

	var cleanAdd, dirtyAdd int64
	if wasClean {
		cleanAdd = -1
	}
	if !wasDirty {
		dirtyAdd = 1
	}
	f.modCounters(hb, cleanAdd, dirtyAdd)
	f.store.MarkFileDirty()
	metrics.ScrappedTotal.Inc()
	return nil
}

func (f *SegmentFile) doSetError(segnum uint64, hb, eb *blockstore.Block) error {
	s, e, err := f.entryAt(eb, segnum)
	if err != nil {
		return err
	}
	if e.Error() {
		// Already quarantined.
		return nil
	}
	wasClean := e.Clean()
	e.SetError()
	format.PutEntry(s, e)
	eb.MarkDirty()
	if wasClean {
		f.modCounters(hb, -1, 0)
	}
	f.store.MarkFileDirty()
	metrics.ErrorsMarkedTotal.Inc()
	return nil
}

// MarkDirty sets the DIRTY flag on segnum's entry without touching the
// counters; the segment is expected to be one of the filesystem's live
// write targets and therefore already accounted as dirty. An errored entry
// here implies on-disk inconsistency and fails with ErrIO.
func (f *SegmentFile) MarkDirty(segnum uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if segnum >= f.nsegments {
		return fmt.Errorf("segment %d: %w", segnum, ErrInvalidArgument)
	}
	eb, err := f.entryBlock(segnum, false)
	if err != nil {
		if errors.Is(err, blockstore.ErrNotFound) {
			f.log.Error("segment usage is unreadable due to a hole block", "segnum", segnum)
			return fmt.Errorf("segment %d usage in hole block: %w", segnum, ErrIO)
		}
		return err
	}
	s, e, err := f.entryAt(eb, segnum)
	if err != nil {
		return err
	}
	if e.Error() {
		if f.isActive(segnum) {
			f.log.Error("active segment is erroneous", "segnum", segnum)
		} else {
			// Errored segments are never handed out by Allocate; only the
			// live write pointers can reach one here. Anything else is an
			// internal consistency bug, flagged but handled the same way.
			f.log.Error("errored segment is not an active write target; segment usage inconsistency",
				"segnum", segnum)
		}
		return fmt.Errorf("segment %d marked in error: %w", segnum, ErrIO)
	}
	e.SetDirty()
	format.PutEntry(s, e)
	eb.MarkDirty()
	f.store.MarkFileDirty()
	return nil
}

// SetUsage records the live block count of segnum and, when modtime is
// non-zero, its last-modified time. Cancellation paths pass modtime zero to
// leave the timestamp alone. Never changes the clean/dirty classification.
func (f *SegmentFile) SetUsage(segnum uint64, liveBlocks uint32, modtime uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if segnum >= f.nsegments {
		return fmt.Errorf("segment %d: %w", segnum, ErrInvalidArgument)
	}
	eb, err := f.entryBlock(segnum, false)
	if err != nil {
		return err
	}
	s, e, err := f.entryAt(eb, segnum)
	if err != nil {
		return err
	}
	if modtime != 0 {
		if e.Error() {
			// Usage updates with a real timestamp must never land on an
			// errored segment.
			f.log.Error("usage update on errored segment", "segnum", segnum)
		}
		e.LastModified = modtime
	}
	e.LiveBlocks = liveBlocks
	format.PutEntry(s, e)
	eb.MarkDirty()
	f.store.MarkFileDirty()
	return nil
}
