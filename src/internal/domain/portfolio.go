package domain

import "github.com/shopspring/decimal"

type PriceSource string

const (
	PriceSourceLive      PriceSource = "live"
	PriceSourceLastKnown PriceSource = "last_known"
	PriceSourceCostBasis PriceSource = "cost_basis"
)

type Portfolio struct {
	AccountID   string
	CashBalance decimal.Decimal
	Holdings    []Holding
}

type ValuedPosition struct {
	Holding     Holding
	Price       decimal.Decimal
	PriceSource PriceSource
	MarketValue decimal.Decimal
}

func (p ValuedPosition) UnrealizedPnL() decimal.Decimal {
	return p.MarketValue.Sub(p.Holding.CostBasis())
}

// Wealth is cash plus the mark-to-market value of every holding. Degraded is
// set when at least one position was valued without a live quote.
type Wealth struct {
	AccountID     string
	Cash          decimal.Decimal
	HoldingsValue decimal.Decimal
	Total         decimal.Decimal
	Positions     []ValuedPosition
	Degraded      bool
}

// Reconciliation compares the stored balance with the balance implied by
// the starting balance and the transaction log.
type Reconciliation struct {
	AccountID       string
	StartingBalance decimal.Decimal
	TotalBought     decimal.Decimal
	TotalSold       decimal.Decimal
	ExpectedBalance decimal.Decimal
	ActualBalance   decimal.Decimal
	Balanced        bool
}
