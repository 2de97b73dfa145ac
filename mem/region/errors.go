package region

import "errors"

var (
	// ErrExhausted indicates the region has fewer free bytes than requested.
	ErrExhausted = errors.New("region: capacity exhausted")

	// ErrBadSize indicates a negative allocation or configuration size.
	ErrBadSize = errors.New("region: size must be >= 0")
)
