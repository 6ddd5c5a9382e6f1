package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is an externally sourced price. It is never ledger truth.
type Quote struct {
	Symbol        string
	Name          string
	Price         decimal.Decimal
	Change        decimal.Decimal
	ChangePercent decimal.Decimal
	FetchedAt     time.Time
	Stale         bool
}
