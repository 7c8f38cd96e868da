package ai

import (
	"time"

	"golang.org/x/sync/semaphore"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithTimeout bounds a single model round-trip.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMaxConcurrent bounds in-flight model calls across all requests.
func WithMaxConcurrent(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(int64(n))
		}
	}
}
