// NNUE common constants and errors.

package nnue

import "errors"

// Version of the evaluation file.
const Version uint32 = 0x7AF32F16

// maxDescriptionSize bounds the header description so a corrupt length
// field cannot trigger a huge allocation.
const maxDescriptionSize = 1 << 20

var (
	// ErrVersionMismatch is returned when a file's version is not Version.
	ErrVersionMismatch = errors.New("nnue: version mismatch")

	// ErrHashMismatch is returned when a file was written for a different
	// layer structure.
	ErrHashMismatch = errors.New("nnue: architecture hash mismatch")

	// ErrTrailingData is returned when bytes remain after the last layer.
	ErrTrailingData = errors.New("nnue: trailing data after parameters")

	// ErrDescriptionTooLong is returned for a header description larger
	// than the reader accepts.
	ErrDescriptionTooLong = errors.New("nnue: description too long")
)
