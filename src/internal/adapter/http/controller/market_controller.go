package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/middleware"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/models"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/commons"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

type MarketService interface {
	GetQuote(ctx context.Context, symbol string) (commons.Response[models.QuoteResponse], error)
	GetWatchlist(ctx context.Context) (commons.Response[models.QuoteListResponse], error)
	AdjustPrice(ctx context.Context, identity domain.Identity, symbol string, req models.AdjustPriceRequest) (commons.Response[models.QuoteResponse], error)
}

type MarketController struct {
	service MarketService
}

func NewMarketController(service MarketService) *MarketController {
	return &MarketController{service: service}
}

func (c *MarketController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /api/quotes", c.watchlist)
	mux.HandleFunc("GET /api/quotes/{symbol}", c.quote)
	mux.Handle("POST /api/admin/prices/{symbol}/adjust", protect(c.adjustPrice, authMiddleware, middleware.RequireRole(domain.RoleAdmin)))
}

func (c *MarketController) watchlist(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.service.GetWatchlist(r.Context())
	respond(w, r, start, http.StatusOK, response, err)
}

func (c *MarketController) quote(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.service.GetQuote(r.Context(), r.PathValue("symbol"))
	respond(w, r, start, http.StatusOK, response, err)
}

func (c *MarketController) adjustPrice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	caller, ok := identity[models.QuoteResponse](w, r, start)
	if !ok {
		return
	}

	var req models.AdjustPriceRequest
	if !decodeBody[models.QuoteResponse](w, r, start, &req) {
		return
	}

	response, err := c.service.AdjustPrice(r.Context(), caller, r.PathValue("symbol"), req)
	respond(w, r, start, http.StatusOK, response, err)
}
