package push

import (
	"time"

	"github.com/smellovision/scentd/pkg/logger"
)

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithSendTimeout bounds a single write to one subscriber.
func WithSendTimeout(timeout time.Duration) Option {
	return func(h *Hub) {
		if timeout > 0 {
			h.sendTimeout = timeout
		}
	}
}

// WithBuffer sets the per-subscriber outbound queue length.
func WithBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.buffer = size
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
