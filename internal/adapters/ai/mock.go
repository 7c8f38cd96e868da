package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/smellovision/scentd/internal/domain/fingerprint"
	"github.com/smellovision/scentd/internal/domain/model"
)

// Default mock configuration constants.
const (
	defaultMockMinLatency = 80 * time.Millisecond
	defaultMockMaxLatency = 150 * time.Millisecond
)

// mockScents is the rotation the mock draws from, deliberately excluding
// "none" so smoke runs always exercise the actuator path.
var mockScents = []string{
	model.ScentFragrant,
	model.ScentWoody,
	model.ScentFruity,
	model.ScentChemical,
	model.ScentMinty,
	model.ScentSweet,
	model.ScentPopcorn,
	model.ScentLemon,
	model.ScentPungent,
	model.ScentDecayed,
}

// MockOption applies a configuration option to the Mock predictor.
type MockOption func(*Mock)

// WithMockLatencyRange sets the simulated upstream latency range.
func WithMockLatencyRange(minLatency, maxLatency time.Duration) MockOption {
	return func(m *Mock) {
		if minLatency > 0 && maxLatency > minLatency {
			m.minLatency = minLatency
			m.maxLatency = maxLatency
		}
	}
}

// WithMockFailure makes every Predict call fail with err. Tests use this
// to drive the retry and failure-propagation paths.
func WithMockFailure(err error) MockOption {
	return func(m *Mock) {
		m.failWith = err
	}
}

// Mock implements Predictor without a network dependency. Output is a
// deterministic function of the fingerprint, so identical screenshots get
// identical predictions just like a real cache-friendly upstream. Latency
// is simulated to keep concurrency behavior honest in tests and smoke
// runs.
type Mock struct {
	minLatency time.Duration
	maxLatency time.Duration
	failWith   error
}

// NewMock creates a mock predictor with configuration options.
func NewMock(opts ...MockOption) *Mock {
	m := &Mock{
		minLatency: defaultMockMinLatency,
		maxLatency: defaultMockMaxLatency,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Predict implements Predictor.
func (m *Mock) Predict(ctx context.Context, fp fingerprint.Fingerprint, image []byte) (model.ScentPrediction, error) {
	latency := m.minLatency
	if span := m.maxLatency - m.minLatency; span > 0 && len(fp) > 0 {
		// Derive jitter from the fingerprint so repeated calls for the
		// same screenshot take comparable time.
		latency += time.Duration(int64(fp[0]) * int64(span) / 256)
	}
	select {
	case <-ctx.Done():
		return model.ScentPrediction{}, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	case <-time.After(latency):
	}

	if m.failWith != nil {
		return model.ScentPrediction{}, m.failWith
	}

	if len(fp) < 2 {
		return model.ScentPrediction{}, fmt.Errorf("%w: fingerprint too short", ErrParse)
	}

	// Two deterministic components derived from the fingerprint bytes.
	primary := mockScents[int(fp[0])%len(mockScents)]
	secondary := mockScents[int(fp[1])%len(mockScents)]
	if secondary == primary {
		return model.ScentPrediction{
			Fingerprint: fp.String(),
			Scents:      []model.ScentComponent{{Label: primary, Proportion: 1}},
			Confidence:  1,
			Model:       "mock",
			CreatedAt:   time.Now().UTC(),
		}, nil
	}
	return model.ScentPrediction{
		Fingerprint: fp.String(),
		Scents: []model.ScentComponent{
			{Label: primary, Proportion: 0.7},
			{Label: secondary, Proportion: 0.3},
		},
		Confidence: 0.7,
		Model:      "mock",
		CreatedAt:  time.Now().UTC(),
	}, nil
}
