package segfile

import "errors"

var (
	// ErrInvalidArgument indicates a bad segment number, range, flag set or
	// counter value. Rejected before any state change.
	ErrInvalidArgument = errors.New("segfile: invalid argument")

	// ErrInvalidLayout indicates an entry size outside the legal bounds for
	// the metadata file's block size.
	ErrInvalidLayout = errors.New("segfile: invalid entry layout")

	// ErrOutOfRange indicates an allocation range that does not fit the
	// segment universe.
	ErrOutOfRange = errors.New("segfile: segment range out of bounds")

	// ErrNoSpace indicates that no clean segment is left, or that a shrink
	// would leave less than the reserved capacity.
	ErrNoSpace = errors.New("segfile: no clean segment left")

	// ErrBusy indicates dirty or active segments inside a truncation range.
	// The caller may retry once garbage collection has cleared them.
	ErrBusy = errors.New("segfile: busy segments in range")

	// ErrIO indicates an I/O failure or detected on-disk inconsistency,
	// such as a missing header block. Never retried internally.
	ErrIO = errors.New("segfile: metadata I/O failure")
)
