// Package service provides the prediction pipeline service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/smellovision/scentd/internal/adapters/ai"
	"github.com/smellovision/scentd/internal/adapters/device"
	"github.com/smellovision/scentd/internal/adapters/dispatch"
	"github.com/smellovision/scentd/internal/adapters/push"
	repository "github.com/smellovision/scentd/internal/adapters/repository"
	"github.com/smellovision/scentd/internal/config"
	"github.com/smellovision/scentd/internal/domain/fingerprint"
	"github.com/smellovision/scentd/internal/domain/model"
	"github.com/smellovision/scentd/pkg/logger"
	"github.com/smellovision/scentd/pkg/metrics"
)

// Service orchestrates the screenshot-to-scent pipeline: fingerprint the
// image, consult the cache, call the vision model with bounded retries,
// then fan the prediction out to the frontend and the actuator.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	predictor  ai.Predictor
	hub        *push.Hub
	device     *device.Client
	dispatcher *dispatch.Dispatcher

	// Configuration
	cacheTTL      time.Duration
	cacheCapacity int
	maxImageBytes int
	aiCfg         config.AIConfig
	deviceCfg     config.DeviceConfig
	pushCfg       config.PushConfig

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCacheTTL sets how long a cached prediction stays fresh.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithCacheCapacity bounds the prediction cache.
func WithCacheCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.cacheCapacity = capacity
		}
	}
}

// WithMaxImageBytes bounds the accepted screenshot payload size.
func WithMaxImageBytes(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxImageBytes = n
		}
	}
}

// WithAIConfig sets the vision model configuration.
func WithAIConfig(cfg config.AIConfig) Option {
	return func(s *Service) {
		s.aiCfg = cfg
	}
}

// WithDeviceConfig sets the actuator configuration.
func WithDeviceConfig(cfg config.DeviceConfig) Option {
	return func(s *Service) {
		s.deviceCfg = cfg
	}
}

// WithPushConfig sets the frontend push channel configuration.
func WithPushConfig(cfg config.PushConfig) Option {
	return func(s *Service) {
		s.pushCfg = cfg
	}
}

// WithPredictor injects a predictor, overriding provider selection.
func WithPredictor(p ai.Predictor) Option {
	return func(s *Service) {
		if p != nil {
			s.predictor = p
		}
	}
}

// WithStore injects a prediction cache.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithHub injects a push hub.
func WithHub(h *push.Hub) Option {
	return func(s *Service) {
		if h != nil {
			s.hub = h
		}
	}
}

// WithDeviceClient injects an actuator client.
func WithDeviceClient(c *device.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.device = c
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	defaults := config.New()
	s := &Service{
		cacheTTL:      time.Duration(defaults.CacheTTLSeconds) * time.Second,
		cacheCapacity: defaults.CacheCapacity,
		maxImageBytes: defaults.MaxImageBytes,
		aiCfg:         defaults.AI,
		deviceCfg:     defaults.Device,
		pushCfg:       defaults.Push,
		logger:        nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting scent prediction service...")

	if s.store == nil {
		s.store = repository.NewMemStore(ctx,
			repository.WithTTL(s.cacheTTL),
			repository.WithCapacity(s.cacheCapacity),
		)
	}
	if s.predictor == nil {
		switch strings.ToLower(s.aiCfg.Provider) {
		case "mock":
			s.predictor = ai.NewMock()
			s.logger.Info(ctx, "using mock predictor")
		default:
			s.predictor = ai.NewClient(s.aiCfg.BaseURL, s.aiCfg.APIKey, s.aiCfg.Model,
				ai.WithTimeout(time.Duration(s.aiCfg.TimeoutMS)*time.Millisecond),
				ai.WithMaxConcurrent(s.aiCfg.MaxConcurrent),
			)
			s.logger.Info(ctx, "using vision model predictor",
				logger.String("model", s.aiCfg.Model),
			)
		}
	}
	if s.hub == nil {
		s.hub = push.NewHub(
			push.WithSendTimeout(time.Duration(s.pushCfg.SendTimeoutMS)*time.Millisecond),
			push.WithBuffer(s.pushCfg.Buffer),
			push.WithLogger(s.logger.Named("push")),
		)
	}
	if s.device == nil {
		s.device = device.NewClient(s.deviceCfg.URL,
			device.WithTimeout(time.Duration(s.deviceCfg.TimeoutMS)*time.Millisecond),
			device.WithIntensity(s.deviceCfg.Intensity),
		)
	}
	s.dispatcher = dispatch.NewDispatcher(s.logger.Named("dispatch"),
		dispatch.NewPushSink(s.hub),
		dispatch.NewDeviceSink(s.device),
	)

	s.started = true
	s.logger.Info(ctx, "scent prediction service started",
		logger.Duration("cacheTTL", s.cacheTTL),
		logger.Int("cacheCapacity", s.cacheCapacity),
		logger.String("provider", s.aiCfg.Provider),
		logger.Bool("deviceEnabled", s.device.Enabled()),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping scent prediction service...")

	if s.hub != nil {
		_ = s.hub.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "scent prediction service stopped")
}

// Hub exposes the push hub for websocket route registration.
func (s *Service) Hub() *push.Hub {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hub
}

// Handle runs the prediction pipeline for one screenshot. The returned
// bool reports whether the prediction was served from cache. Dispatch to
// the frontend and the actuator happens before returning; its failures
// are logged but never propagate.
func (s *Service) Handle(ctx context.Context, req model.ScreenshotRequest) (model.ScentPrediction, bool, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return model.ScentPrediction{}, false, ErrNotStarted
	}

	start := time.Now()

	fp, err := fingerprint.Digest(req.Image, s.maxImageBytes)
	if err != nil {
		return model.ScentPrediction{}, false, err
	}

	pred, cached, err := s.store.GetOrCompute(ctx, fp, func(computeCtx context.Context) (model.ScentPrediction, error) {
		return s.predictWithRetry(computeCtx, fp, req.Image)
	})
	if err != nil {
		metrics.RecordPredictionFailure()
		metrics.RecordErrorByComponent("pipeline", "prediction")
		s.logger.Warn(ctx, "prediction failed",
			logger.String("fingerprint", fp.Short()),
			logger.String("session", req.SessionID),
			logger.Error(err),
		)
		return model.ScentPrediction{}, false, err
	}

	metrics.RecordPredictionServed()
	metrics.RecordPipelineLatency(float64(time.Since(start).Milliseconds()))
	s.logger.Debug(ctx, "prediction ready",
		logger.String("fingerprint", fp.Short()),
		logger.String("scent", pred.Primary()),
		logger.Bool("cached", cached),
	)

	// The caller may have gone away while a shared computation finished;
	// the cache is warm either way, but there is nobody left to notify.
	if ctx.Err() != nil {
		return pred, cached, nil
	}

	result := s.dispatcher.Dispatch(ctx, pred)
	for _, ch := range result.Channels {
		s.logger.Debug(ctx, "dispatch outcome",
			logger.String("sink", ch.Sink),
			logger.String("outcome", string(ch.Outcome)),
		)
	}

	return pred, cached, nil
}

// predictWithRetry calls the predictor with exponential backoff between
// attempts. Context cancellation stops retrying immediately.
func (s *Service) predictWithRetry(ctx context.Context, fp fingerprint.Fingerprint, image []byte) (model.ScentPrediction, error) {
	bo := backoff.NewExponentialBackOff()
	if s.aiCfg.RetryBackoffMS > 0 {
		bo.InitialInterval = time.Duration(s.aiCfg.RetryBackoffMS) * time.Millisecond
	}

	attempt := 0
	operation := func() (model.ScentPrediction, error) {
		if attempt > 0 {
			metrics.RecordAIRetry()
		}
		attempt++

		pred, err := s.predictor.Predict(ctx, fp, image)
		if err != nil {
			if ctx.Err() != nil {
				return model.ScentPrediction{}, backoff.Permanent(err)
			}
			return model.ScentPrediction{}, err
		}
		return pred, nil
	}

	pred, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(s.aiCfg.MaxRetries+1)),
	)
	if err != nil {
		return model.ScentPrediction{}, fmt.Errorf("%w: %w", ErrPredictionFailed, err)
	}
	return pred, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":       s.started,
		"cacheTTL":      s.cacheTTL.String(),
		"cacheCapacity": s.cacheCapacity,
		"provider":      s.aiCfg.Provider,
		"model":         s.aiCfg.Model,
		"maxImageBytes": s.maxImageBytes,
		"deviceEnabled": false,
		"cacheEntries":  0,
		"subscribers":   0,
	}

	if s.started {
		stats["deviceEnabled"] = s.device.Enabled()
		stats["cacheEntries"] = s.store.Len(ctx)
		stats["subscribers"] = s.hub.Count()
	}

	return stats
}
