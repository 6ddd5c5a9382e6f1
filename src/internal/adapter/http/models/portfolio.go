package models

import (
	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

type HoldingResponse struct {
	Symbol       string `json:"symbol"`
	Quantity     int64  `json:"quantity"`
	AveragePrice Amount `json:"averagePrice"`
	CostBasis    Amount `json:"costBasis"`
}

func NewHoldingResponse(holding domain.Holding, currency string) HoldingResponse {
	return HoldingResponse{
		Symbol:       holding.Symbol,
		Quantity:     holding.Quantity,
		AveragePrice: NewAmount(holding.AverageCost, currency),
		CostBasis:    NewAmount(holding.CostBasis(), currency),
	}
}

type PortfolioResponse struct {
	AccountID   string            `json:"accountId"`
	Currency    string            `json:"currency"`
	CashBalance Amount            `json:"cashBalance"`
	Holdings    []HoldingResponse `json:"holdings"`
}

func NewPortfolioResponse(portfolio domain.Portfolio, currency string) PortfolioResponse {
	holdings := make([]HoldingResponse, 0, len(portfolio.Holdings))
	for _, h := range portfolio.Holdings {
		holdings = append(holdings, NewHoldingResponse(h, currency))
	}
	return PortfolioResponse{
		AccountID:   portfolio.AccountID,
		Currency:    currency,
		CashBalance: NewAmount(portfolio.CashBalance, currency),
		Holdings:    holdings,
	}
}

type PositionResponse struct {
	Symbol        string `json:"symbol"`
	Quantity      int64  `json:"quantity"`
	AverageCost   Amount `json:"averageCost"`
	Price         Amount `json:"price"`
	PriceSource   string `json:"priceSource"`
	MarketValue   Amount `json:"marketValue"`
	UnrealizedPnL Amount `json:"unrealizedPnl"`
}

type WealthResponse struct {
	AccountID     string             `json:"accountId"`
	Currency      string             `json:"currency"`
	Cash          Amount             `json:"cash"`
	HoldingsValue Amount             `json:"holdingsValue"`
	Total         Amount             `json:"total"`
	Degraded      bool               `json:"degraded"`
	Positions     []PositionResponse `json:"positions"`
}

func NewWealthResponse(wealth domain.Wealth, currency string) WealthResponse {
	positions := make([]PositionResponse, 0, len(wealth.Positions))
	for _, p := range wealth.Positions {
		positions = append(positions, PositionResponse{
			Symbol:        p.Holding.Symbol,
			Quantity:      p.Holding.Quantity,
			AverageCost:   NewAmount(p.Holding.AverageCost, currency),
			Price:         NewAmount(p.Price, currency),
			PriceSource:   string(p.PriceSource),
			MarketValue:   NewAmount(p.MarketValue, currency),
			UnrealizedPnL: NewAmount(p.UnrealizedPnL(), currency),
		})
	}
	return WealthResponse{
		AccountID:     wealth.AccountID,
		Currency:      currency,
		Cash:          NewAmount(wealth.Cash, currency),
		HoldingsValue: NewAmount(wealth.HoldingsValue, currency),
		Total:         NewAmount(wealth.Total, currency),
		Degraded:      wealth.Degraded,
		Positions:     positions,
	}
}

type ReconciliationResponse struct {
	AccountID       string `json:"accountId"`
	StartingBalance Amount `json:"startingBalance"`
	TotalBought     Amount `json:"totalBought"`
	TotalSold       Amount `json:"totalSold"`
	ExpectedBalance Amount `json:"expectedBalance"`
	ActualBalance   Amount `json:"actualBalance"`
	Balanced        bool   `json:"balanced"`
}

func NewReconciliationResponse(r domain.Reconciliation, currency string) ReconciliationResponse {
	return ReconciliationResponse{
		AccountID:       r.AccountID,
		StartingBalance: NewAmount(r.StartingBalance, currency),
		TotalBought:     NewAmount(r.TotalBought, currency),
		TotalSold:       NewAmount(r.TotalSold, currency),
		ExpectedBalance: NewAmount(r.ExpectedBalance, currency),
		ActualBalance:   NewAmount(r.ActualBalance, currency),
		Balanced:        r.Balanced,
	}
}
