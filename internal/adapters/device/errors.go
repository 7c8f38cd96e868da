package device

import "errors"

// Sentinel kinds for actuator errors.
var (
	// ErrDelivery marks a failed actuator delivery. Logged, never
	// propagated to the inbound caller.
	ErrDelivery = errors.New("device delivery failed")
)
