package push

import "errors"

// Sentinel kinds for push channel errors.
var (
	ErrHubClosed = errors.New("push hub closed")
)
