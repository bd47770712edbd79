package store

import (
	"errors"
	"fmt"
)

// DimensionError reports a vector whose length does not match the store.
// It is returned by Add and Search and signals a programming or
// configuration mistake (for example an index built with a different
// embedding model), never a recoverable per-file condition.
type DimensionError struct {
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

var (
	// ErrZeroVector is returned by Add for a vector with zero L2 norm,
	// which cannot be normalized and carries no direction to compare.
	ErrZeroVector = errors.New("store: cannot index zero vector")

	// ErrInvalidK is returned by Search when k < 1.
	ErrInvalidK = errors.New("store: k must be at least 1")

	// ErrChecksum is returned when a vector file's payload does not match
	// the checksum recorded in its header.
	ErrChecksum = errors.New("store: vector file checksum mismatch")

	// ErrBadMagic is returned when a file does not start with the vector
	// file magic number.
	ErrBadMagic = errors.New("store: not a vector file")

	// ErrBadVersion is returned for vector files written by an unknown
	// format version.
	ErrBadVersion = errors.New("store: unsupported vector file version")
)
