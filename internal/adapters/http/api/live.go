// Package api declares HTTP contracts and route registration helpers.
package api

import "net/http"

// LiveHandler upgrades GET /live requests into prediction subscriptions.
type LiveHandler struct {
	hub Upgrader
}

// NewLiveHandler creates a new live handler.
func NewLiveHandler(hub Upgrader) *LiveHandler {
	return &LiveHandler{hub: hub}
}

// HandleLive handles GET /live requests. The call blocks for the lifetime
// of the subscription.
func (h *LiveHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	h.hub.ServeWS(w, r)
}
