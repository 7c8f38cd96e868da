package push_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/smartystreets/goconvey/convey"

	"github.com/smellovision/scentd/internal/adapters/push"
	"github.com/smellovision/scentd/internal/domain/model"
	"github.com/smellovision/scentd/pkg/logger"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(srv.URL, "http", "ws", 1)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn
}

func waitForCount(hub *push.Hub, want int) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Count() == want {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return hub.Count() == want
}

func TestHubSubscribeAndBroadcast(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a hub with connected subscribers", t, func() {
		ctx := context.Background()
		hub := push.NewHub()
		defer func() { _ = hub.Close() }()

		srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
		defer srv.Close()

		first := dialHub(t, srv)
		defer func() { _ = first.Close() }()
		second := dialHub(t, srv)
		defer func() { _ = second.Close() }()

		convey.So(waitForCount(hub, 2), convey.ShouldBeTrue)

		convey.Convey("When broadcasting a prediction", func() {
			pred := model.ScentPrediction{
				Fingerprint: "fp-1",
				Scents:      []model.ScentComponent{{Label: model.ScentMinty, Proportion: 1}},
				Confidence:  1,
				Model:       "test",
				CreatedAt:   time.Now().UTC(),
			}
			queued := hub.Broadcast(ctx, pred)

			convey.Convey("Then it should be queued for every subscriber", func() {
				convey.So(queued, convey.ShouldEqual, 2)
			})

			convey.Convey("Then every subscriber should receive the payload", func() {
				for _, conn := range []*websocket.Conn{first, second} {
					_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
					var got model.ScentPrediction
					err := conn.ReadJSON(&got)
					convey.So(err, convey.ShouldBeNil)
					convey.So(got.Fingerprint, convey.ShouldEqual, "fp-1")
					convey.So(got.Scents, convey.ShouldResemble, pred.Scents)
				}
			})
		})

		convey.Convey("When a subscriber disconnects", func() {
			_ = first.Close()

			convey.Convey("Then the hub should notice and forget it", func() {
				convey.So(waitForCount(hub, 1), convey.ShouldBeTrue)
			})
		})
	})
}

func TestHubWithoutSubscribers(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a hub with no subscribers", t, func() {
		ctx := context.Background()
		hub := push.NewHub()
		defer func() { _ = hub.Close() }()

		convey.Convey("When broadcasting", func() {
			queued := hub.Broadcast(ctx, model.ScentPrediction{Fingerprint: "fp"})

			convey.Convey("Then nothing should be queued and nothing should block", func() {
				convey.So(queued, convey.ShouldEqual, 0)
				convey.So(hub.Count(), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestHubClose(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a hub that has been closed", t, func() {
		hub := push.NewHub()
		srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
		defer srv.Close()

		conn := dialHub(t, srv)
		defer func() { _ = conn.Close() }()
		convey.So(waitForCount(hub, 1), convey.ShouldBeTrue)

		convey.So(hub.Close(), convey.ShouldBeNil)

		convey.Convey("Then existing subscribers are disconnected", func() {
			convey.So(hub.Count(), convey.ShouldEqual, 0)

			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, _, err := conn.ReadMessage()
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("Then new subscriptions are rejected", func() {
			wsURL := strings.Replace(srv.URL, "http", "ws", 1)
			_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
			convey.So(err, convey.ShouldNotBeNil)
			if resp != nil {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusServiceUnavailable)
				_ = resp.Body.Close()
			}
		})

		convey.Convey("Then closing again is a no-op", func() {
			convey.So(hub.Close(), convey.ShouldBeNil)
		})
	})
}
