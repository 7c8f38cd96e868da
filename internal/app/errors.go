package service

import "errors"

// Sentinel kinds for pipeline errors.
var (
	ErrNotStarted       = errors.New("service not started")
	ErrPredictionFailed = errors.New("prediction failed after retries")
)
