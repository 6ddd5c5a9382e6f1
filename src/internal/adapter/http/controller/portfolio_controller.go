package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/models"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/commons"
)

type PortfolioService interface {
	GetPortfolio(ctx context.Context, accountID string) (commons.Response[models.PortfolioResponse], error)
	GetWealth(ctx context.Context, accountID string) (commons.Response[models.WealthResponse], error)
	GetReconciliation(ctx context.Context, accountID string) (commons.Response[models.ReconciliationResponse], error)
}

type PortfolioController struct {
	service PortfolioService
}

func NewPortfolioController(service PortfolioService) *PortfolioController {
	return &PortfolioController{service: service}
}

func (c *PortfolioController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("GET /api/portfolio", protect(c.portfolio, authMiddleware))
	mux.Handle("GET /api/portfolio/wealth", protect(c.wealth, authMiddleware))
	mux.Handle("GET /api/portfolio/reconciliation", protect(c.reconciliation, authMiddleware))
}

func (c *PortfolioController) portfolio(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	caller, ok := identity[models.PortfolioResponse](w, r, start)
	if !ok {
		return
	}

	response, err := c.service.GetPortfolio(r.Context(), caller.AccountID)
	respond(w, r, start, http.StatusOK, response, err)
}

func (c *PortfolioController) wealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	caller, ok := identity[models.WealthResponse](w, r, start)
	if !ok {
		return
	}

	response, err := c.service.GetWealth(r.Context(), caller.AccountID)
	respond(w, r, start, http.StatusOK, response, err)
}

func (c *PortfolioController) reconciliation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	caller, ok := identity[models.ReconciliationResponse](w, r, start)
	if !ok {
		return
	}

	response, err := c.service.GetReconciliation(r.Context(), caller.AccountID)
	respond(w, r, start, http.StatusOK, response, err)
}
