// Package device adapts the physical scent actuator (an ESP8266 on the
// local network) behind a best-effort delivery client. Failures here are
// reported for logging and telemetry but must never fail the pipeline
// request that produced the prediction.
package device

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/smellovision/scentd/internal/domain/model"
	"github.com/smellovision/scentd/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultTimeout   = 2 * time.Second
	defaultIntensity = 255 // full PWM scale on the actuator
)

// command is the wire shape the firmware accepts: one scent id and a
// 0-255 intensity. Mixed predictions are reduced to their dominant
// component; the hardware has a single emitter per scent cartridge.
type command struct {
	Scent     string `json:"scent"`
	Intensity int    `json:"intensity"`
}

// Client delivers scent commands to the actuator.
type Client struct {
	http      *resty.Client
	url       string
	timeout   time.Duration
	intensity int
}

// NewClient creates an actuator client with configuration options.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		http:      resty.New(),
		url:       url,
		timeout:   defaultTimeout,
		intensity: defaultIntensity,
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	c.http.SetTimeout(c.timeout)

	return c
}

// Enabled reports whether an actuator endpoint is configured.
func (c *Client) Enabled() bool {
	return c.url != ""
}

// Actuate implements the device channel: a single best-effort network
// call. Scentless predictions send intensity 0 so a previous scent stops
// instead of lingering.
func (c *Client) Actuate(ctx context.Context, pred model.ScentPrediction) error {
	if !c.Enabled() {
		return fmt.Errorf("%w: no actuator configured", ErrDelivery)
	}

	cmd := command{Scent: pred.Primary()}
	if !pred.IsNone() {
		cmd.Intensity = int(float64(c.intensity)*pred.Scents[0].Proportion + 0.5)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.http.R().
		SetContext(callCtx).
		SetBody(cmd).
		Post(c.url)
	metrics.RecordDeviceLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordDeviceDeliveryError()
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	if resp.IsError() {
		metrics.RecordDeviceDeliveryError()
		return fmt.Errorf("%w: actuator status %d", ErrDelivery, resp.StatusCode())
	}

	metrics.RecordDeviceDelivery()
	return nil
}
