package dispatch

import "errors"

// Sentinel kinds distinguishing "nothing to deliver to" from failures.
var (
	ErrNoSubscribers  = errors.New("no frontend subscribers connected")
	ErrDeviceDisabled = errors.New("no actuator configured")
)
