package controller

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/models"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/commons"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthController struct {
	db      Pinger
	timeout time.Duration
}

func NewHealthController(db Pinger) *HealthController {
	return &HealthController{db: db, timeout: 2 * time.Second}
}

func (c *HealthController) RegisterRoutes(mux *http.ServeMux, _ func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /healthz", c.health)
}

func (c *HealthController) health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	if c.db != nil {
		if err := c.db.PingContext(ctx); err != nil {
			err = fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
			response := commons.ErrorResponse[models.HealthResponse]("unhealthy", "storage unreachable").WithCode(domain.ErrorCode(err), true)
			respond(w, r, start, http.StatusOK, response, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, commons.SuccessResponse("healthy", models.HealthResponse{Status: "ok"}))
}
