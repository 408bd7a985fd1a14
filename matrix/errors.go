// SPDX-License-Identifier: MIT
// Package matrix: sentinel error set.
// All functions return these sentinels (optionally wrapped with context);
// callers match them via errors.Is. No function panics on user input.

package matrix

import (
	"errors"
	"fmt"
)

var (
	// ErrBadShape is returned when a requested shape is negative or the
	// supplied backing slice does not match rows*cols.
	ErrBadShape = errors.New("matrix: invalid shape")

	// ErrOutOfRange indicates that a row or column index is outside valid bounds.
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrDimensionMismatch indicates incompatible dimensions between operands.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrNilMatrix indicates that a nil *Dense was used.
	ErrNilMatrix = errors.New("matrix: nil matrix")

	// ErrMalformedText indicates a token or row that cannot be parsed from a
	// whitespace text matrix or index list.
	ErrMalformedText = errors.New("matrix: malformed text")
)

// matrixErrorf attaches an operation tag to a sentinel error.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}
