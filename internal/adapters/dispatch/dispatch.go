// Package dispatch fans a computed prediction out to its consumers. Each
// consumer hides behind the Sink interface and fails independently: the
// frontend preview must never be held hostage by a flaky actuator, and
// vice versa.
package dispatch

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/smellovision/scentd/internal/adapters/device"
	"github.com/smellovision/scentd/internal/adapters/push"
	"github.com/smellovision/scentd/internal/domain/model"
	"github.com/smellovision/scentd/pkg/logger"
)

// Outcome classifies a per-sink delivery attempt.
type Outcome string

// Per-sink outcomes.
const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Sink receives predictions. Implementations own their timeouts.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, pred model.ScentPrediction) error
}

// ChannelResult is the outcome of one sink's delivery attempt.
type ChannelResult struct {
	Sink    string
	Outcome Outcome
	Err     error
}

// Result carries per-channel outcomes. It exists for logging and
// telemetry only; dispatch never fails the pipeline.
type Result struct {
	Channels []ChannelResult
}

// Dispatcher pushes predictions to all configured sinks concurrently.
type Dispatcher struct {
	sinks  []Sink
	logger logger.Logger
}

// NewDispatcher creates a dispatcher over the given sinks.
func NewDispatcher(log logger.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, logger: log}
}

// Dispatch delivers pred to every sink in parallel. A sink's failure or
// slowness never affects another sink; errors are logged and reported in
// the Result only.
func (d *Dispatcher) Dispatch(ctx context.Context, pred model.ScentPrediction) Result {
	results := make([]ChannelResult, len(d.sinks))

	var g errgroup.Group
	for i, sink := range d.sinks {
		g.Go(func() error {
			err := sink.Deliver(ctx, pred)
			switch {
			case err == nil:
				results[i] = ChannelResult{Sink: sink.Name(), Outcome: OutcomeDelivered}
			case errors.Is(err, ErrNoSubscribers) || errors.Is(err, ErrDeviceDisabled):
				results[i] = ChannelResult{Sink: sink.Name(), Outcome: OutcomeSkipped, Err: err}
			default:
				results[i] = ChannelResult{Sink: sink.Name(), Outcome: OutcomeFailed, Err: err}
				d.logger.Warn(ctx, "sink delivery failed",
					logger.String("sink", sink.Name()),
					logger.String("scent", pred.Primary()),
					logger.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	return Result{Channels: results}
}

// PushSink adapts the websocket hub to the Sink interface.
type PushSink struct {
	hub *push.Hub
}

// NewPushSink wraps the hub.
func NewPushSink(hub *push.Hub) *PushSink {
	return &PushSink{hub: hub}
}

// Name implements Sink.
func (s *PushSink) Name() string { return "frontend" }

// Deliver implements Sink. Broadcast is intrinsically best-effort; having
// no subscribers is a skip, not a failure.
func (s *PushSink) Deliver(ctx context.Context, pred model.ScentPrediction) error {
	if s.hub.Count() == 0 {
		return ErrNoSubscribers
	}
	s.hub.Broadcast(ctx, pred)
	return nil
}

// DeviceSink adapts the actuator client to the Sink interface.
type DeviceSink struct {
	client *device.Client
}

// NewDeviceSink wraps the actuator client.
func NewDeviceSink(client *device.Client) *DeviceSink {
	return &DeviceSink{client: client}
}

// Name implements Sink.
func (s *DeviceSink) Name() string { return "device" }

// Deliver implements Sink.
func (s *DeviceSink) Deliver(ctx context.Context, pred model.ScentPrediction) error {
	if !s.client.Enabled() {
		return ErrDeviceDisabled
	}
	return s.client.Actuate(ctx, pred)
}
