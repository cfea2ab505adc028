// Package format houses the low-level layout of the segment usage metadata
// file. The goal is to keep the encoding focused, allocation-free where
// possible, and independent from the public API so higher-level packages can
// orchestrate the data in a more ergonomic form.
package format

const (
	// HeaderSize is the size of the persisted header record at file offset 0.
	//
	// Layout (little-endian):
	//
	//	Offset  Size  Description
	//	------  ----  -------------------------------
	//	 0x00    8    Number of clean segments
	//	 0x08    8    Number of dirty segments
	//	 0x10    8    Last allocated segment number
	HeaderSize = 24

	// HeaderCleanOffset is the offset of the clean segment counter.
	HeaderCleanOffset = 0x00

	// HeaderDirtyOffset is the offset of the dirty segment counter.
	HeaderDirtyOffset = 0x08

	// HeaderLastAllocOffset is the offset of the last-allocated hint.
	HeaderLastAllocOffset = 0x10

	// MinEntrySize is the smallest legal segment usage entry stride. The
	// packed fields occupy exactly this many bytes; larger strides leave
	// trailing padding for future extension.
	MinEntrySize = 16

	// EntryLastModOffset is the offset of the last-modified timestamp
	// within an entry.
	EntryLastModOffset = 0x00

	// EntryLiveBlocksOffset is the offset of the live block counter within
	// an entry.
	EntryLiveBlocksOffset = 0x08

	// EntryFlagsOffset is the offset of the flag word within an entry.
	EntryFlagsOffset = 0x0C
)

// Segment usage flag bits. ACTIVE is a virtual flag projected at read time
// from the filesystem's live write pointers; it is never written to disk.
const (
	FlagActive uint32 = 1 << 0
	FlagDirty  uint32 = 1 << 1
	FlagError  uint32 = 1 << 2

	// PersistedFlagMask covers the bits that may appear on disk.
	PersistedFlagMask = FlagDirty | FlagError

	// KnownFlagMask covers every bit a caller may legally supply.
	KnownFlagMask = FlagActive | FlagDirty | FlagError
)
