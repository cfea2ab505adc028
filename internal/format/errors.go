package format

import "errors"

var (
	// ErrTruncated indicates a buffer too short for the record being decoded.
	ErrTruncated = errors.New("format: truncated record")

	// ErrInvalidLayout indicates an entry size outside the legal bounds for
	// the metadata file's block size.
	ErrInvalidLayout = errors.New("format: invalid entry layout")
)
