package models

import (
	"time"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

// TradeRequest carries no price: trades execute at the server-side quote.
type TradeRequest struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
}

func (r TradeRequest) Validate() error {
	var errs []string

	if _, err := domain.NormalizeSymbol(r.Symbol); err != nil {
		errs = append(errs, "symbol is invalid")
	}
	if r.Quantity <= 0 {
		errs = append(errs, "quantity must be greater than zero")
	}

	return validationError(errs)
}

type TradeResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	CashBalance Amount              `json:"cashBalance"`
	Holding     *HoldingResponse    `json:"holding,omitempty"`
}

type TransactionResponse struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   Amount `json:"unitPrice"`
	TotalAmount Amount `json:"totalAmount"`
	CreatedAt   string `json:"createdAt"`
}

func NewTransactionResponse(txn domain.Transaction, currency string) TransactionResponse {
	return TransactionResponse{
		ID:          txn.ID,
		Symbol:      txn.Symbol,
		Side:        string(txn.Side),
		Quantity:    txn.Quantity,
		UnitPrice:   NewAmount(txn.UnitPrice, currency),
		TotalAmount: NewAmount(txn.TotalAmount, currency),
		CreatedAt:   txn.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}
