package controller

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/models"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/commons"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

type TradeService interface {
	PlaceTrade(ctx context.Context, accountID string, side domain.Side, req models.TradeRequest) (commons.Response[models.TradeResponse], error)
}

type TransactionService interface {
	GetTransactions(ctx context.Context, accountID string, limit int) (commons.Response[models.TransactionListResponse], error)
}

type TradeController struct {
	trades       TradeService
	transactions TransactionService
}

func NewTradeController(trades TradeService, transactions TransactionService) *TradeController {
	return &TradeController{trades: trades, transactions: transactions}
}

func (c *TradeController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("POST /api/trades/buy", protect(c.buy, authMiddleware))
	mux.Handle("POST /api/trades/sell", protect(c.sell, authMiddleware))
	mux.Handle("GET /api/transactions", protect(c.listTransactions, authMiddleware))
}

func (c *TradeController) buy(w http.ResponseWriter, r *http.Request) {
	c.trade(w, r, domain.SideBuy)
}

func (c *TradeController) sell(w http.ResponseWriter, r *http.Request) {
	c.trade(w, r, domain.SideSell)
}

func (c *TradeController) trade(w http.ResponseWriter, r *http.Request, side domain.Side) {
	start := time.Now()

	caller, ok := identity[models.TradeResponse](w, r, start)
	if !ok {
		return
	}

	var req models.TradeRequest
	if !decodeBody[models.TradeResponse](w, r, start, &req) {
		return
	}

	response, err := c.trades.PlaceTrade(r.Context(), caller.AccountID, side, req)
	respond(w, r, start, http.StatusOK, response, err)
}

func (c *TradeController) listTransactions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	caller, ok := identity[models.TransactionListResponse](w, r, start)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			err := fmt.Errorf("%w: limit must be a positive integer", domain.ErrValidation)
			response := commons.ErrorResponse[models.TransactionListResponse]("validation failed", "limit must be a positive integer").WithCode(domain.ErrorCode(err), false)
			respond(w, r, start, http.StatusOK, response, err)
			return
		}
		limit = parsed
	}

	response, err := c.transactions.GetTransactions(r.Context(), caller.AccountID, limit)
	respond(w, r, start, http.StatusOK, response, err)
}
