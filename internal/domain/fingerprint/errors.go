package fingerprint

import "errors"

// Sentinel kinds for fingerprint errors. Both map to the invalid-input
// class rejected before any model work is attempted.
var (
	ErrEmptyImage    = errors.New("empty image payload")
	ErrImageTooLarge = errors.New("image payload too large")
)
