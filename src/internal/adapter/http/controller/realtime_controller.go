package controller

import (
	"net/http"
	"time"
)

type StreamServer interface {
	Serve(w http.ResponseWriter, r *http.Request, accountID string)
}

// RealtimeController upgrades authenticated requests to a websocket that
// receives quote broadcasts and the caller's own portfolio updates.
type RealtimeController struct {
	hub StreamServer
}

func NewRealtimeController(hub StreamServer) *RealtimeController {
	return &RealtimeController{hub: hub}
}

func (c *RealtimeController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("GET /ws", protect(c.stream, authMiddleware))
}

func (c *RealtimeController) stream(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	caller, ok := identity[struct{}](w, r, start)
	if !ok {
		return
	}
	c.hub.Serve(w, r, caller.AccountID)
}
