package compiler

import (
	"errors"
	"fmt"
)

// Domain errors for compiler construction and coefficient addressing.
var (
	// ErrNegativeDimension indicates a negative parameter count or derivation order.
	ErrNegativeDimension = errors.New("compiler: parameters and order must be non-negative")

	// ErrDimensionMismatch indicates arrays or structures built for different
	// (parameters, order) pairs, or an orders slice of the wrong length.
	ErrDimensionMismatch = errors.New("compiler: dimension mismatch")

	// ErrOrderTooLarge indicates a derivative combination beyond the compiler order.
	ErrOrderTooLarge = errors.New("compiler: derivation order too large")

	// ErrIndexOutOfRange indicates a flat offset outside the coefficient array.
	ErrIndexOutOfRange = errors.New("compiler: index out of range")
)

// DimensionError wraps one of the sentinel errors with the offending sizes.
type DimensionError struct {
	What    string
	Got     int
	Want    int
	Wrapped error
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: %s: got %d, want %d", e.Wrapped, e.What, e.Got, e.Want)
}

func (e *DimensionError) Unwrap() error {
	return e.Wrapped
}

func mismatch(what string, got, want int) error {
	return &DimensionError{What: what, Got: got, Want: want, Wrapped: ErrDimensionMismatch}
}
