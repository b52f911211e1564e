package points

import "errors"

// Domain errors for the points package.
var (
	// ErrPointNotFound is returned when an address has no point.
	ErrPointNotFound = errors.New("points: not found")

	// ErrPointReadOnly is returned when a user write targets a point that
	// is not writable.
	ErrPointReadOnly = errors.New("points: read-only")

	// ErrInvalidAddress is returned when an address is empty or malformed.
	ErrInvalidAddress = errors.New("points: invalid address")

	// ErrInvalidValue is returned when a user write does not match the
	// point's type.
	ErrInvalidValue = errors.New("points: invalid value")
)
