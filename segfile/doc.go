// Package segfile implements the segment usage file of a log-structured
// filesystem: the metadata array tracking, for every fixed-size log segment
// on the volume, whether it is free, in use, or faulty.
//
// # On-Disk Structure
//
// The file is an array of fixed-stride entries packed across metadata
// blocks, preceded by a small header holding the persisted clean/dirty
// counters and the allocation search hint:
//
//	[Header | Entry Entry ...] [Entry Entry ...] [hole] [Entry ...]
//
// Blocks that were never written are holes; a hole decodes as a run of
// all-zero entries, and an all-zero entry is a clean segment. Whole blocks
// turn back into holes when a truncation reclaims every entry they contain.
//
// # State Model
//
// An entry carries DIRTY and ERROR flags, a last-modified time, and a live
// block count. Clean (no flags) segments are allocatable; dirty segments are
// in use or awaiting garbage collection; errored segments are quarantined
// until a truncation reclaims them. ACTIVE is a virtual flag projected from
// the filesystem's live write pointers on read paths only.
//
// # Concurrency
//
// One reader/writer lock per open file serializes everything. Mutating
// operations hold the write lock across all of their block fetches; the
// persisted header counters and the in-memory clean-count mirror move
// together inside the same critical section, so two concurrent allocations
// can never claim the same segment. Trim scans under the read lock and
// issues discards without mutating metadata.
//
// # Write-Back
//
// The file never writes blocks itself. It marks mutated entry blocks dirty,
// then the header block, and leaves write-back to the owner of the
// blockstore; the ordering keeps an interrupted write-back crash-consistent.
package segfile
