package repository

import "errors"

// Sentinel kinds for prediction cache errors.
var (
	ErrClosed       = errors.New("prediction cache closed")
	ErrCorruptEntry = errors.New("corrupt cache entry")
)
