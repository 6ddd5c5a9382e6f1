package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Transaction is an immutable entry of the trade log. TotalAmount is fixed at
// settlement time and never recomputed.
type Transaction struct {
	ID          string
	AccountID   string
	Symbol      string
	Side        Side
	Quantity    int64
	UnitPrice   decimal.Decimal
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
}

type TransactionTotals struct {
	Buys      decimal.Decimal
	Sells     decimal.Decimal
	BuyCount  int
	SellCount int
}

// Settlement is the complete post-state of one trade. The store applies it
// as a single unit: the balance update is conditional on Account.Version,
// a Holding with zero quantity is deleted, and Transaction is appended.
type Settlement struct {
	Account     Account
	NewBalance  decimal.Decimal
	Holding     Holding
	Transaction Transaction
}

// LedgerSnapshot is an account, its holdings and its log totals read at one
// point in time.
type LedgerSnapshot struct {
	Account  Account
	Holdings []Holding
	Totals   TransactionTotals
}
