package format

import (
	"fmt"

	"github.com/loglayer/segkit/internal/buf"
)

// Entry is the decoded form of a single segment usage record.
//
//	Offset  Size  Description
//	------  ----  -----------------------------------------
//	 0x00    8    Last modified time (seconds since epoch)
//	 0x08    4    Number of live blocks in the segment
//	 0x0C    4    Flags (DIRTY, ERROR; ACTIVE never stored)
//
// An all-zero record is a clean segment, which is what makes never-written
// hole blocks read back as runs of clean entries.
type Entry struct {
	LastModified uint64
	LiveBlocks   uint32
	Flags        uint32
}

// ParseEntry decodes the entry at the start of b.
func ParseEntry(b []byte) (Entry, error) {
	if len(b) < MinEntrySize {
		return Entry{}, fmt.Errorf("entry: %w", ErrTruncated)
	}
	return Entry{
		LastModified: buf.ReadU64(b, EntryLastModOffset),
		LiveBlocks:   buf.ReadU32(b, EntryLiveBlocksOffset),
		Flags:        buf.ReadU32(b, EntryFlagsOffset),
	}, nil
}

// PutEntry encodes e at the start of b. The caller must supply a slice of at
// least MinEntrySize bytes; bounds are established by Geometry.EntrySlice.
func PutEntry(b []byte, e Entry) {
	buf.PutU64(b, EntryLastModOffset, e.LastModified)
	buf.PutU32(b, EntryLiveBlocksOffset, e.LiveBlocks)
	buf.PutU32(b, EntryFlagsOffset, e.Flags&PersistedFlagMask)
}

// Clean reports whether the segment holds no live data and no flags.
func (e Entry) Clean() bool { return e.Flags == 0 }

// Dirty reports whether the segment is in use or awaiting reclamation.
func (e Entry) Dirty() bool { return e.Flags&FlagDirty != 0 }

// Error reports whether the segment has been marked faulty.
func (e Entry) Error() bool { return e.Flags&FlagError != 0 }

// SetClean resets the record to the all-zero clean state.
func (e *Entry) SetClean() { *e = Entry{} }

// SetDirty marks the segment as in use.
func (e *Entry) SetDirty() { e.Flags |= FlagDirty }

// SetError marks the segment as faulty.
func (e *Entry) SetError() { e.Flags |= FlagError }
