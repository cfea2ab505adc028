package segfile

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/loglayer/segkit/blockstore"
	"github.com/loglayer/segkit/device"
	"github.com/loglayer/segkit/internal/format"
)

// minReservedSegments is the floor applied to the reserved capacity derived
// from Config.ReservedPercent.
const minReservedSegments = 8

// Config fixes the geometry and limits of a segment usage file. NSegments
// and BlocksPerSegment belong to the superblock in the surrounding
// filesystem; they are captured here at open time and republished through
// Stat after a resize.
type Config struct {
	// NSegments is the total number of segments on the volume.
	NSegments uint64

	// BlocksPerSegment is the number of device blocks per segment. It
	// bounds the live-block counter of every entry.
	BlocksPerSegment uint64

	// EntrySize is the on-disk stride of one segment usage entry.
	// Defaults to format.MinEntrySize when zero.
	EntrySize int

	// ReservedPercent is the share of segments that must stay available;
	// it constrains shrinking. Subject to a fixed floor.
	ReservedPercent uint64
}

// SegmentGeometry maps segments onto device block extents. It is owned by
// the filesystem's disk layout, not by the usage file.
type SegmentGeometry interface {
	// SegmentBlockRange returns the first and last device block of segnum,
	// both inclusive.
	SegmentBlockRange(segnum uint64) (first, last uint64)

	// SegmentOfBlock returns the segment containing the device block.
	SegmentOfBlock(block uint64) uint64
}

// ActiveOracle reports whether a segment is currently one of the
// filesystem's live write targets. Active segments carry a virtual flag on
// read paths and are immune to truncation.
type ActiveOracle interface {
	IsActive(segnum uint64) bool
}

// LinearGeometry is the default SegmentGeometry: segment n occupies blocks
// [n*BlocksPerSegment, (n+1)*BlocksPerSegment-1].
type LinearGeometry struct {
	BlocksPerSegment uint64
}

// SegmentBlockRange implements SegmentGeometry.
func (g LinearGeometry) SegmentBlockRange(segnum uint64) (uint64, uint64) {
	first := segnum * g.BlocksPerSegment
	return first, first + g.BlocksPerSegment - 1
}

// SegmentOfBlock implements SegmentGeometry.
func (g LinearGeometry) SegmentOfBlock(block uint64) uint64 {
	return block / g.BlocksPerSegment
}

// SegmentFile tracks the usage state of every log segment on the volume and
// hands out clean segments to the writer. All public operations serialize on
// one reader/writer lock; mutations update the persisted header counters and
// the in-memory mirror in the same critical section.
type SegmentFile struct {
	store  blockstore.Store
	geo    format.Geometry
	devGeo SegmentGeometry
	active ActiveOracle
	disc   device.Discarder
	log    *slog.Logger

	blocksPerSegment uint64
	reservedPercent  uint64

	mu        sync.RWMutex
	nsegments uint64
	cleanSegs uint64 // mirror of the header's clean counter
	allocMin  uint64
	allocMax  uint64
}

// Option configures a SegmentFile at open time.
type Option func(*SegmentFile)

// WithLogger installs a logger for warnings and filesystem-level faults.
// The default discards all output.
func WithLogger(l *slog.Logger) Option {
	return func(f *SegmentFile) { f.log = l }
}

// WithActiveOracle installs the live-write-target oracle. Without one, no
// segment is ever considered active.
func WithActiveOracle(o ActiveOracle) Option {
	return func(f *SegmentFile) { f.active = o }
}

// WithSegmentGeometry overrides the default linear segment-to-block mapping.
func WithSegmentGeometry(g SegmentGeometry) Option {
	return func(f *SegmentFile) { f.devGeo = g }
}

// WithDiscarder installs the device discard implementation used by Trim.
func WithDiscarder(d device.Discarder) Option {
	return func(f *SegmentFile) { f.disc = d }
}

func (c Config) entrySize() int {
	if c.EntrySize == 0 {
		return format.MinEntrySize
	}
	return c.EntrySize
}

func (c Config) validate() error {
	if c.NSegments == 0 {
		return fmt.Errorf("%w: zero segments", ErrInvalidArgument)
	}
	if c.BlocksPerSegment == 0 {
		return fmt.Errorf("%w: zero blocks per segment", ErrInvalidArgument)
	}
	return nil
}

// Create initializes an empty segment usage file in store: a header counting
// every segment as clean and no entry blocks. Entries stay holes until first
// touched; an all-zero entry decodes as clean, so the file starts consistent.
func Create(store blockstore.Store, cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	if _, err := format.NewGeometry(store.BlockSize(), cfg.entrySize()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	hb, err := store.GetBlock(0, true)
	if err != nil {
		return err
	}
	format.PutHeader(hb.Data(), format.Header{CleanSegs: cfg.NSegments})
	hb.MarkDirty()
	store.MarkFileDirty()
	return nil
}

// Open attaches to an existing segment usage file. The allocatable range is
// reset to the full universe; the clean counter and allocation hint are read
// from the persisted header.
func Open(store blockstore.Store, cfg Config, opts ...Option) (*SegmentFile, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	geo, err := format.NewGeometry(store.BlockSize(), cfg.entrySize())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	f := &SegmentFile{
		store:            store,
		geo:              geo,
		disc:             device.NopDiscarder{},
		log:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		blocksPerSegment: cfg.BlocksPerSegment,
		reservedPercent:  cfg.ReservedPercent,
		nsegments:        cfg.NSegments,
		allocMin:         0,
		allocMax:         cfg.NSegments - 1,
	}
	f.devGeo = LinearGeometry{BlocksPerSegment: cfg.BlocksPerSegment}
	for _, opt := range opts {
		opt(f)
	}
	hb, err := f.headerBlock()
	if err != nil {
		return nil, err
	}
	hdr, err := format.ParseHeader(hb.Data())
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrIO)
	}
	f.cleanSegs = hdr.CleanSegs
	return f, nil
}

// NSegments returns the current size of the segment universe.
func (f *SegmentFile) NSegments() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.nsegments
}

// CleanSegments returns the cached clean segment count without touching the
// block store.
func (f *SegmentFile) CleanSegments() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cleanSegs
}

// AllocationRange returns the current allocatable segment bounds, inclusive.
func (f *SegmentFile) AllocationRange() (start, end uint64) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.allocMin, f.allocMax
}

// Stat reports segment usage statistics from the persisted header.
type Stat struct {
	NSegments uint64
	CleanSegs uint64
	DirtySegs uint64
}

// GetStat retrieves segment usage statistics.
func (f *SegmentFile) GetStat() (Stat, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	hb, err := f.headerBlock()
	if err != nil {
		return Stat{}, err
	}
	hdr, err := format.ParseHeader(hb.Data())
	if err != nil {
		return Stat{}, fmt.Errorf("%v: %w", err, ErrIO)
	}
	return Stat{
		NSegments: f.nsegments,
		CleanSegs: hdr.CleanSegs,
		DirtySegs: hdr.DirtySegs,
	}, nil
}

// headerBlock fetches the header block. A missing header is an on-disk
// inconsistency, logged as a filesystem fault and surfaced as ErrIO.
func (f *SegmentFile) headerBlock() (*blockstore.Block, error) {
	hb, err := f.store.GetBlock(0, false)
	if err != nil {
		if errors.Is(err, blockstore.ErrNotFound) {
			f.log.Error("missing header block in segment usage metadata")
			return nil, fmt.Errorf("missing header block: %w", ErrIO)
		}
		return nil, err
	}
	return hb, nil
}

// entryBlock fetches the block holding the entry for segnum.
func (f *SegmentFile) entryBlock(segnum uint64, create bool) (*blockstore.Block, error) {
	return f.store.GetBlock(f.geo.BlockOf(segnum), create)
}

// deleteEntryBlock punches the block holding the entry for segnum out of
// the metadata file.
func (f *SegmentFile) deleteEntryBlock(segnum uint64) error {
	return f.store.DeleteBlock(f.geo.BlockOf(segnum))
}

// modCounters is the single funnel for clean/dirty accounting: it adjusts
// the persisted header counters and the in-memory clean mirror together and
// marks the header block dirty. Entry blocks are always marked dirty before
// this is called, keeping write-back crash-consistent.
func (f *SegmentFile) modCounters(hb *blockstore.Block, cleanAdd, dirtyAdd int64) {
	format.AddHeaderCounters(hb.Data(), cleanAdd, dirtyAdd)
	f.cleanSegs += uint64(cleanAdd)
	hb.MarkDirty()
}

func (f *SegmentFile) isActive(segnum uint64) bool {
	return f.active != nil && f.active.IsActive(segnum)
}

// reservedSegments returns the reserved capacity for a universe of nsegs
// segments: ReservedPercent of the total, floored at minReservedSegments.
func (f *SegmentFile) reservedSegments(nsegs uint64) uint64 {
	n := nsegs * f.reservedPercent / 100
	if n < minReservedSegments {
		n = minReservedSegments
	}
	return n
}
