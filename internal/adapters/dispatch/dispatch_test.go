package dispatch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/smartystreets/goconvey/convey"

	"github.com/smellovision/scentd/internal/adapters/device"
	"github.com/smellovision/scentd/internal/adapters/dispatch"
	"github.com/smellovision/scentd/internal/adapters/push"
	"github.com/smellovision/scentd/internal/domain/model"
	"github.com/smellovision/scentd/pkg/logger"
)

func testPrediction() model.ScentPrediction {
	return model.ScentPrediction{
		Fingerprint: "fp-dispatch",
		Scents:      []model.ScentComponent{{Label: model.ScentSweet, Proportion: 1}},
		Confidence:  1,
		Model:       "test",
		CreatedAt:   time.Now().UTC(),
	}
}

func outcomeOf(result dispatch.Result, sink string) dispatch.Outcome {
	for _, ch := range result.Channels {
		if ch.Sink == sink {
			return ch.Outcome
		}
	}
	return ""
}

func subscribe(t *testing.T, hub *push.Hub) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	wsURL := strings.Replace(srv.URL, "http", "ws", 1)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial failed: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	return conn, func() {
		_ = conn.Close()
		srv.Close()
	}
}

func TestDispatcher(t *testing.T) {
	_ = logger.Init()
	log := logger.Get()

	convey.Convey("Given a dispatcher over the push and device sinks", t, func() {
		ctx := context.Background()

		convey.Convey("When both channels are healthy", func() {
			hub := push.NewHub()
			defer func() { _ = hub.Close() }()
			conn, cleanup := subscribe(t, hub)
			defer cleanup()

			deviceSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer deviceSrv.Close()

			d := dispatch.NewDispatcher(log,
				dispatch.NewPushSink(hub),
				dispatch.NewDeviceSink(device.NewClient(deviceSrv.URL)),
			)
			result := d.Dispatch(ctx, testPrediction())

			convey.Convey("Then both deliveries should succeed", func() {
				convey.So(result.Channels, convey.ShouldHaveLength, 2)
				convey.So(outcomeOf(result, "frontend"), convey.ShouldEqual, dispatch.OutcomeDelivered)
				convey.So(outcomeOf(result, "device"), convey.ShouldEqual, dispatch.OutcomeDelivered)
			})

			convey.Convey("Then the subscriber should receive the prediction", func() {
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				var got model.ScentPrediction
				convey.So(conn.ReadJSON(&got), convey.ShouldBeNil)
				convey.So(got.Fingerprint, convey.ShouldEqual, "fp-dispatch")
			})
		})

		convey.Convey("When the device fails", func() {
			hub := push.NewHub()
			defer func() { _ = hub.Close() }()
			conn, cleanup := subscribe(t, hub)
			defer cleanup()

			deviceSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer deviceSrv.Close()

			d := dispatch.NewDispatcher(log,
				dispatch.NewPushSink(hub),
				dispatch.NewDeviceSink(device.NewClient(deviceSrv.URL)),
			)
			result := d.Dispatch(ctx, testPrediction())

			convey.Convey("Then the frontend delivery is unaffected", func() {
				convey.So(outcomeOf(result, "frontend"), convey.ShouldEqual, dispatch.OutcomeDelivered)
				convey.So(outcomeOf(result, "device"), convey.ShouldEqual, dispatch.OutcomeFailed)

				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				var got model.ScentPrediction
				convey.So(conn.ReadJSON(&got), convey.ShouldBeNil)
			})
		})

		convey.Convey("When nothing is listening on either channel", func() {
			hub := push.NewHub()
			defer func() { _ = hub.Close() }()

			d := dispatch.NewDispatcher(log,
				dispatch.NewPushSink(hub),
				dispatch.NewDeviceSink(device.NewClient("")),
			)
			result := d.Dispatch(ctx, testPrediction())

			convey.Convey("Then both channels are skipped, not failed", func() {
				convey.So(outcomeOf(result, "frontend"), convey.ShouldEqual, dispatch.OutcomeSkipped)
				convey.So(outcomeOf(result, "device"), convey.ShouldEqual, dispatch.OutcomeSkipped)
			})
		})
	})
}
