// Package push broadcasts predictions to live frontend subscribers over
// websockets. Delivery is best-effort per subscriber: a slow or broken
// connection is dropped without blocking the pipeline or its peers.
package push

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/smellovision/scentd/internal/domain/model"
	"github.com/smellovision/scentd/pkg/logger"
	"github.com/smellovision/scentd/pkg/metrics"
)

// Default hub configuration constants.
const (
	defaultSendTimeout = 1 * time.Second
	defaultBuffer      = 16
	pingInterval       = 30 * time.Second
	pongWait           = 60 * time.Second
	maxInboundBytes    = 512 // subscribers only listen; cap stray frames
)

// subscriber is one connected frontend.
type subscriber struct {
	id   string
	conn *websocket.Conn
	out  chan []byte
	done chan struct{}
	once sync.Once
}

// stop closes the subscriber exactly once.
func (s *subscriber) stop() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// Hub fans predictions out to all connected subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*subscriber

	upgrader    websocket.Upgrader
	sendTimeout time.Duration
	buffer      int
	closed      bool

	logger logger.Logger
}

// NewHub creates a hub with configuration options.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:        make(map[string]*subscriber),
		sendTimeout: defaultSendTimeout,
		buffer:      defaultBuffer,
		upgrader: websocket.Upgrader{
			// The frontend is served from a different origin in every
			// deployment we have; auth is handled upstream.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: nil, // resolved lazily so tests can construct hubs freely
	}

	// Apply all options
	for _, opt := range opts {
		opt(h)
	}

	return h
}

func (h *Hub) log() logger.Logger {
	if h.logger == nil {
		return logger.Get().Named("push")
	}
	return h.logger
}

// ServeWS upgrades an HTTP request into a subscription. It blocks until
// the subscriber disconnects or the hub closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, ErrHubClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client.
		h.log().Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	sub := &subscriber{
		id:   uuid.NewString(),
		conn: conn,
		out:  make(chan []byte, h.buffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[sub.id] = sub
	count := len(h.subs)
	h.mu.Unlock()
	metrics.UpdatePushSubscribers(count)
	h.log().Info(r.Context(), "subscriber connected",
		logger.String("subscriber", sub.id),
		logger.Int("total", count),
	)

	go h.writePump(sub)
	h.readPump(r.Context(), sub)
}

// writePump drains the subscriber's queue onto the wire with a bounded
// deadline per message.
func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sub.done:
			return
		case msg := <-sub.out:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(h.sendTimeout))
			if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.drop(sub, "write failed")
				return
			}
			metrics.RecordPushDelivered()
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(h.sendTimeout))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(sub, "ping failed")
				return
			}
		}
	}
}

// readPump discards inbound frames and detects disconnects.
func (h *Hub) readPump(ctx context.Context, sub *subscriber) {
	sub.conn.SetReadLimit(maxInboundBytes)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			h.drop(sub, "disconnected")
			return
		}
	}
}

// drop removes a subscriber and closes its connection.
func (h *Hub) drop(sub *subscriber, reason string) {
	h.mu.Lock()
	_, present := h.subs[sub.id]
	delete(h.subs, sub.id)
	count := len(h.subs)
	h.mu.Unlock()

	sub.stop()
	if present {
		metrics.UpdatePushSubscribers(count)
		h.log().Info(context.Background(), "subscriber removed",
			logger.String("subscriber", sub.id),
			logger.String("reason", reason),
			logger.Int("total", count),
		)
	}
}

// Broadcast queues pred for every connected subscriber. A subscriber
// whose queue is full is dropped rather than allowed to stall the
// pipeline. Returns the number of subscribers the message was queued for.
func (h *Hub) Broadcast(ctx context.Context, pred model.ScentPrediction) int {
	payload, err := json.Marshal(pred)
	if err != nil {
		h.log().Error(ctx, "marshal prediction failed", logger.Error(err))
		return 0
	}

	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	metrics.RecordPushBroadcast()

	queued := 0
	for _, sub := range targets {
		select {
		case sub.out <- payload:
			queued++
		default:
			metrics.RecordPushDropped()
			h.drop(sub, "send queue full")
		}
	}
	return queued
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = make(map[string]*subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	metrics.UpdatePushSubscribers(0)
	return nil
}
