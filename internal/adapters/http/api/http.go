// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/smellovision/scentd/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Handle runs the prediction pipeline for one screenshot. The bool
	// reports whether the result was served from cache.
	Handle(ctx context.Context, req ScreenshotRequest) (Prediction, bool, error)
}

// Prediction mirrors the pipeline output shape returned to clients.
type Prediction = model.ScentPrediction

// ScreenshotRequest mirrors the pipeline input shape.
type ScreenshotRequest = model.ScreenshotRequest

// Upgrader turns an HTTP request into a live prediction subscription.
type Upgrader interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	predictHandler *PredictHandler
	liveHandler    *LiveHandler
}

// NewServer creates a new API server with all handlers. maxImageBytes
// bounds the decoded screenshot size accepted on /predict.
func NewServer(deps Dependencies, statsProvider StatsProvider, hub Upgrader, maxImageBytes int64) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		predictHandler: NewPredictHandler(deps, maxImageBytes),
		liveHandler:    NewLiveHandler(hub),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	// The websocket upgrade manages its own lifecycle; wrapping it in the
	// metrics middleware would report every long-lived subscription as one
	// slow request.
	mux.HandleFunc("/live", s.liveHandler.HandleLive)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
