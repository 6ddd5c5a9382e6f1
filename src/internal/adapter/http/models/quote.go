package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

var maxAdjustPercent = decimal.NewFromInt(100)

type QuoteResponse struct {
	Symbol        string `json:"symbol"`
	Name          string `json:"name,omitempty"`
	Price         Amount `json:"price"`
	Change        string `json:"change"`
	ChangePercent string `json:"changePercent"`
	FetchedAt     string `json:"fetchedAt"`
	Stale         bool   `json:"stale"`
}

func NewQuoteResponse(q domain.Quote, currency string) QuoteResponse {
	return QuoteResponse{
		Symbol:        q.Symbol,
		Name:          q.Name,
		Price:         NewAmount(q.Price, currency),
		Change:        q.Change.String(),
		ChangePercent: q.ChangePercent.String(),
		FetchedAt:     q.FetchedAt.UTC().Format(time.RFC3339),
		Stale:         q.Stale,
	}
}

type QuoteListResponse struct {
	Quotes  []QuoteResponse `json:"quotes"`
	Missing []string        `json:"missing,omitempty"`
}

// AdjustPriceRequest moves a symbol's price by Percent of its current value.
type AdjustPriceRequest struct {
	Percent decimal.Decimal `json:"percent"`
}

func (r AdjustPriceRequest) Validate() error {
	var errs []string

	if r.Percent.IsZero() {
		errs = append(errs, "percent must not be zero")
	}
	if r.Percent.LessThanOrEqual(maxAdjustPercent.Neg()) || r.Percent.GreaterThan(maxAdjustPercent) {
		errs = append(errs, "percent must be greater than -100 and at most 100")
	}

	return validationError(errs)
}
