package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			metricPrefixOpt := WithMetricPrefix("test-prefix")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			metricsEnabledOpt := WithMetricsEnabled(true)
			refreshIntervalOpt := WithRefreshInterval(5 * time.Second)
			customLabelsOpt := WithCustomLabels(map[string]string{"env": "test"})

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(metricPrefixOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(metricsEnabledOpt, ShouldNotBeNil)
				So(refreshIntervalOpt, ShouldNotBeNil)
				So(customLabelsOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithMetricPrefix("test-prefix"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithCustomLabels(map[string]string{"env": "test", "version": "1.0"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given metrics recording", t, func() {
		Convey("When recording pipeline metrics", func() {
			Convey("Then it should record served predictions", func() {
				So(func() {
					RecordPredictionServed()
					RecordPredictionFailure()
					RecordPipelineLatency(12.5)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording cache metrics", func() {
			Convey("Then it should record hits, misses, and evictions", func() {
				So(func() {
					RecordCacheHit()
					RecordCacheMiss()
					RecordCacheStale()
					RecordCacheEviction()
					RecordSingleflightShared()
					UpdateCacheEntries(42)
					UpdateCacheCapacity(100)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording model metrics", func() {
			Convey("Then it should record requests, errors, and retries", func() {
				So(func() {
					RecordAIRequest()
					RecordAILatency(250)
					RecordAIError("unavailable")
					RecordAIError("parse")
					RecordAIRetry()
					UpdateAIInFlight(2)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording delivery metrics", func() {
			Convey("Then it should record device and push outcomes", func() {
				So(func() {
					RecordDeviceDelivery()
					RecordDeviceDeliveryError()
					RecordDeviceLatency(80)
					UpdatePushSubscribers(3)
					RecordPushBroadcast()
					RecordPushDelivered()
					RecordPushDropped()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording HTTP metrics", func() {
			Convey("Then it should record requests and durations", func() {
				So(func() {
					RecordHTTPRequest("predict", "POST", "200")
					RecordHTTPRequestDuration("predict", "POST", "200", 35)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording error metrics", func() {
			Convey("Then it should record by component, type, and endpoint", func() {
				So(func() {
					RecordErrorByComponent("pipeline", "prediction")
					RecordErrorByType("server_error", "high")
					RecordErrorByEndpoint("predict", "POST", "server_error")
					RecordErrorLatency("http", "server_error", 12)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording system metrics", func() {
			Convey("Then it should record memory and goroutines", func() {
				So(func() {
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(25)
					RecordSystemGCPauseTime(1.5)
				}, ShouldNotPanic)
			})
		})
	})
}

func TestMetricsRegistry(t *testing.T) {
	Convey("Given the metrics registry", t, func() {
		Convey("When getting the registry", func() {
			registry := GetRegistry()

			Convey("Then it should not be nil", func() {
				So(registry, ShouldNotBeNil)
			})

			Convey("Then it should gather the registered metric families", func() {
				RecordPredictionServed()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
