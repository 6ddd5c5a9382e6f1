package router

import (
	"net/http"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/middleware"
)

type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

// New mounts every registrar plus the API docs on one mux. authMiddleware
// guards the routes each registrar marks as session-only.
func New(authMiddleware func(http.Handler) http.Handler, registrars ...RouteRegistrar) http.Handler {
	mux := http.NewServeMux()
	registerSwaggerRoutes(mux)

	for _, registrar := range registrars {
		if registrar != nil {
			registrar.RegisterRoutes(mux, authMiddleware)
		}
	}

	return middleware.RequestID(mux)
}
