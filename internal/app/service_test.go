package service_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/smellovision/scentd/internal/adapters/ai"
	"github.com/smellovision/scentd/internal/adapters/device"
	"github.com/smellovision/scentd/internal/adapters/repository"
	service "github.com/smellovision/scentd/internal/app"
	"github.com/smellovision/scentd/internal/config"
	"github.com/smellovision/scentd/internal/domain/fingerprint"
	"github.com/smellovision/scentd/internal/domain/model"
	"github.com/smellovision/scentd/pkg/logger"
)

// scriptedPredictor fails a fixed number of times before succeeding.
type scriptedPredictor struct {
	mu       sync.Mutex
	failures int
	calls    int
	err      error
}

func (p *scriptedPredictor) Predict(ctx context.Context, fp fingerprint.Fingerprint, image []byte) (model.ScentPrediction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return model.ScentPrediction{}, p.err
	}
	return model.ScentPrediction{
		Fingerprint: fp.String(),
		Scents:      []model.ScentComponent{{Label: model.ScentPopcorn, Proportion: 1}},
		Confidence:  1,
		Model:       "scripted",
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (p *scriptedPredictor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func fastAIConfig() config.AIConfig {
	cfg := config.New().AI
	cfg.Provider = "mock"
	cfg.RetryBackoffMS = 1
	return cfg
}

func screenshot(payload string) model.ScreenshotRequest {
	return model.ScreenshotRequest{
		Image:      []byte(payload),
		SessionID:  "test-session",
		ReceivedAt: time.Now(),
	}
}

func TestServiceLifecycle(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a prediction service", t, func() {
		ctx := context.Background()

		convey.Convey("When handling before start", func() {
			svc := service.New(service.WithAIConfig(fastAIConfig()))
			_, _, err := svc.Handle(ctx, screenshot("early"))

			convey.Convey("Then it should refuse", func() {
				convey.So(err, convey.ShouldWrap, service.ErrNotStarted)
			})
		})

		convey.Convey("When starting and stopping", func() {
			svc := service.New(service.WithAIConfig(fastAIConfig()))

			convey.Convey("Then start should be idempotent", func() {
				convey.So(svc.Start(ctx), convey.ShouldBeNil)
				convey.So(svc.Start(ctx), convey.ShouldBeNil)
				svc.Stop()
				svc.Stop()
			})
		})
	})
}

func TestServicePipeline(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a started service with a mock predictor", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithAIConfig(fastAIConfig()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		convey.Convey("When the same screenshot is submitted twice", func() {
			first, cached1, err1 := svc.Handle(ctx, screenshot("same screenshot"))
			second, cached2, err2 := svc.Handle(ctx, screenshot("same screenshot"))

			convey.Convey("Then the second answer comes from cache", func() {
				convey.So(err1, convey.ShouldBeNil)
				convey.So(err2, convey.ShouldBeNil)
				convey.So(cached1, convey.ShouldBeFalse)
				convey.So(cached2, convey.ShouldBeTrue)
				convey.So(second.Fingerprint, convey.ShouldEqual, first.Fingerprint)
				convey.So(second.Scents, convey.ShouldResemble, first.Scents)
			})
		})

		convey.Convey("When different screenshots are submitted", func() {
			first, _, err1 := svc.Handle(ctx, screenshot("screenshot A"))
			second, _, err2 := svc.Handle(ctx, screenshot("screenshot B"))

			convey.Convey("Then they get independent predictions", func() {
				convey.So(err1, convey.ShouldBeNil)
				convey.So(err2, convey.ShouldBeNil)
				convey.So(first.Fingerprint, convey.ShouldNotEqual, second.Fingerprint)
			})
		})

		convey.Convey("When the screenshot is empty", func() {
			_, _, err := svc.Handle(ctx, model.ScreenshotRequest{})

			convey.Convey("Then it is rejected before any model work", func() {
				convey.So(err, convey.ShouldWrap, fingerprint.ErrEmptyImage)
			})
		})

		convey.Convey("When the screenshot exceeds the size budget", func() {
			small := service.New(
				service.WithAIConfig(fastAIConfig()),
				service.WithMaxImageBytes(4),
			)
			convey.So(small.Start(ctx), convey.ShouldBeNil)
			defer small.Stop()

			_, _, err := small.Handle(ctx, screenshot("way past four bytes"))

			convey.Convey("Then it is rejected", func() {
				convey.So(err, convey.ShouldWrap, fingerprint.ErrImageTooLarge)
			})
		})
	})
}

func TestServiceRetry(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a service whose predictor fails transiently", t, func() {
		ctx := context.Background()

		convey.Convey("When the model recovers within the retry budget", func() {
			predictor := &scriptedPredictor{failures: 2, err: ai.ErrUnavailable}
			svc := service.New(
				service.WithAIConfig(fastAIConfig()),
				service.WithPredictor(predictor),
			)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			pred, cached, err := svc.Handle(ctx, screenshot("flaky upstream"))

			convey.Convey("Then the prediction eventually succeeds", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cached, convey.ShouldBeFalse)
				convey.So(predictor.callCount(), convey.ShouldEqual, 3)
				convey.So(pred.Primary(), convey.ShouldEqual, model.ScentPopcorn)
			})

			convey.Convey("Then the recovered result is cached for the next call", func() {
				_, cached, err := svc.Handle(ctx, screenshot("flaky upstream"))
				convey.So(err, convey.ShouldBeNil)
				convey.So(cached, convey.ShouldBeTrue)
				convey.So(predictor.callCount(), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the model stays down past the retry budget", func() {
			predictor := &scriptedPredictor{failures: 100, err: ai.ErrUnavailable}
			svc := service.New(
				service.WithAIConfig(fastAIConfig()),
				service.WithPredictor(predictor),
			)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			_, _, err := svc.Handle(ctx, screenshot("dead upstream"))

			convey.Convey("Then the failure is reported after the configured attempts", func() {
				convey.So(err, convey.ShouldWrap, service.ErrPredictionFailed)
				convey.So(predictor.callCount(), convey.ShouldEqual, 3)
			})

			convey.Convey("Then the failure is not cached", func() {
				before := predictor.callCount()
				_, _, err := svc.Handle(ctx, screenshot("dead upstream"))
				convey.So(err, convey.ShouldWrap, service.ErrPredictionFailed)
				convey.So(predictor.callCount(), convey.ShouldBeGreaterThan, before)
			})
		})
	})
}

func TestServiceDispatchIsolation(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a service with a broken actuator", t, func() {
		ctx := context.Background()

		deviceSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer deviceSrv.Close()

		svc := service.New(
			service.WithAIConfig(fastAIConfig()),
			service.WithDeviceClient(device.NewClient(deviceSrv.URL)),
		)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		convey.Convey("When handling a screenshot", func() {
			pred, _, err := svc.Handle(ctx, screenshot("actuator down"))

			convey.Convey("Then the request still succeeds", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pred.Fingerprint, convey.ShouldNotBeEmpty)
			})
		})
	})
}

func TestServiceTTLRecompute(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a service over a cache with a controllable clock", t, func() {
		ctx := context.Background()

		var mu sync.Mutex
		now := time.Unix(1_700_000_000, 0)
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}

		store := repository.NewMemStore(ctx,
			repository.WithTTL(5*time.Minute),
			repository.WithClock(clock),
		)
		predictor := &scriptedPredictor{}
		svc := service.New(
			service.WithAIConfig(fastAIConfig()),
			service.WithPredictor(predictor),
			service.WithStore(store),
		)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		_, _, err := svc.Handle(ctx, screenshot("ages like milk"))
		convey.So(err, convey.ShouldBeNil)
		convey.So(predictor.callCount(), convey.ShouldEqual, 1)

		convey.Convey("When the entry outlives its TTL", func() {
			mu.Lock()
			now = now.Add(6 * time.Minute)
			mu.Unlock()

			_, cached, err := svc.Handle(ctx, screenshot("ages like milk"))

			convey.Convey("Then the prediction is recomputed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cached, convey.ShouldBeFalse)
				convey.So(predictor.callCount(), convey.ShouldEqual, 2)
			})
		})
	})
}

func TestServiceStats(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithAIConfig(fastAIConfig()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		_, _, err := svc.Handle(ctx, screenshot("for the stats"))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When reading stats", func() {
			stats := svc.GetStats()

			convey.Convey("Then they should reflect the live state", func() {
				convey.So(stats["started"], convey.ShouldEqual, true)
				convey.So(stats["provider"], convey.ShouldEqual, "mock")
				convey.So(stats["cacheEntries"], convey.ShouldEqual, 1)
				convey.So(stats["deviceEnabled"], convey.ShouldEqual, false)
			})
		})
	})
}

func TestServiceRetryErrors(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a predictor that fails with a terminal parse error", t, func() {
		ctx := context.Background()
		predictor := &scriptedPredictor{failures: 100, err: errors.Join(ai.ErrParse, errors.New("gibberish"))}
		svc := service.New(
			service.WithAIConfig(fastAIConfig()),
			service.WithPredictor(predictor),
		)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		convey.Convey("When handling a screenshot", func() {
			_, _, err := svc.Handle(ctx, screenshot("unparseable"))

			convey.Convey("Then the underlying kind stays visible through the wrap", func() {
				convey.So(err, convey.ShouldWrap, service.ErrPredictionFailed)
				convey.So(err, convey.ShouldWrap, ai.ErrParse)
			})
		})
	})
}
