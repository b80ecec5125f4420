package npy

import "errors"

// Decode error taxonomy. Callers match with errors.Is; every failure from
// Decode wraps exactly one of these sentinels with positional context.
var (
	// ErrFormat covers structural problems: bad magic, unknown version,
	// malformed or incomplete header text.
	ErrFormat = errors.New("malformed npy data")

	// ErrUnsupportedDtype covers headers that parse but declare an element
	// type outside the supported set (<f4, <f8, <i4, |u1), including any
	// big-endian multi-byte dtype and Fortran-order arrays.
	ErrUnsupportedDtype = errors.New("unsupported npy dtype")

	// ErrTruncated means the declared shape needs more payload bytes than
	// the buffer holds.
	ErrTruncated = errors.New("truncated npy data")
)
