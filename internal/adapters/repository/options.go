// Package repository defines the prediction cache interface and errors.
package repository

import "time"

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithTTL sets how long a completed entry stays fresh. Zero or negative
// disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *MemStore) {
		s.ttl = ttl
	}
}

// WithCapacity bounds the number of completed entries; least recently used
// entries are evicted beyond it. Zero or negative means unbounded.
func WithCapacity(capacity int) Option {
	return func(s *MemStore) {
		s.capacity = capacity
	}
}

// WithClock overrides the time source. Used by tests to control expiry.
func WithClock(clock func() time.Time) Option {
	return func(s *MemStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}
