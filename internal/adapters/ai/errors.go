package ai

import "errors"

// Sentinel kinds for predictor errors.
var (
	// ErrUnavailable marks transport failures, timeouts and upstream
	// server errors. Retryable.
	ErrUnavailable = errors.New("prediction service unavailable")

	// ErrParse marks responses the adapter could not turn into a valid
	// scent prediction.
	ErrParse = errors.New("prediction response malformed")
)
