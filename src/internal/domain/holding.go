package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is one account's position in one symbol. A holding with zero
// quantity does not exist in the store.
type Holding struct {
	AccountID   string
	Symbol      string
	Quantity    int64
	AverageCost decimal.Decimal
	UpdatedAt   time.Time
}

// CostBasis is quantity times average cost.
func (h Holding) CostBasis() decimal.Decimal {
	return h.AverageCost.Mul(decimal.NewFromInt(h.Quantity))
}
