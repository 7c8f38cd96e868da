package device

import "time"

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithTimeout bounds a single actuator call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithIntensity sets the PWM scale applied to the dominant proportion.
func WithIntensity(intensity int) Option {
	return func(c *Client) {
		if intensity > 0 && intensity <= 255 {
			c.intensity = intensity
		}
	}
}
