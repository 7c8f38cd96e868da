// Package repository defines the prediction cache interface and errors.
package repository

import (
	"context"

	"github.com/smellovision/scentd/internal/domain/fingerprint"
	"github.com/smellovision/scentd/internal/domain/model"
)

// ComputeFunc produces a prediction for a fingerprint on a cache miss.
// The cache invokes it at most once per fingerprint at any moment.
type ComputeFunc func(ctx context.Context) (model.ScentPrediction, error)

// Store provides read/compute access to cached predictions.
type Store interface {
	// GetOrCompute returns the cached prediction for fp, or invokes compute
	// exactly once to produce it while concurrent callers for the same
	// fingerprint wait and share the outcome. The bool reports a cache hit.
	// A compute error is propagated to every waiter and nothing is stored.
	GetOrCompute(ctx context.Context, fp fingerprint.Fingerprint, compute ComputeFunc) (model.ScentPrediction, bool, error)

	// Get peeks at the cache without computing. Stale entries are not
	// returned.
	Get(ctx context.Context, fp fingerprint.Fingerprint) (model.ScentPrediction, bool)

	// Len returns the number of completed entries currently cached.
	Len(ctx context.Context) int

	// Close releases the store. Subsequent GetOrCompute calls fail with
	// ErrClosed.
	Close() error
}
