package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/models"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/commons"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

const wealthQuoteConcurrency = 8

// PriceLookup resolves prices for the wealth projection.
type PriceLookup interface {
	Quote(ctx context.Context, symbol string) (domain.Quote, error)
	LastKnown(symbol string) (domain.Quote, bool)
}

// PortfolioService is the read side of the ledger. It never writes.
type PortfolioService struct {
	snapshotRepo    domain.SnapshotRepository
	transactionRepo domain.TransactionRepository
	prices          PriceLookup
	currency        string
}

func NewPortfolioService(
	snapshotRepo domain.SnapshotRepository,
	transactionRepo domain.TransactionRepository,
	prices PriceLookup,
	currency string,
) *PortfolioService {
	return &PortfolioService{
		snapshotRepo:    snapshotRepo,
		transactionRepo: transactionRepo,
		prices:          prices,
		currency:        currency,
	}
}

func (s *PortfolioService) Portfolio(ctx context.Context, accountID string) (domain.Portfolio, error) {
	snapshot, err := s.snapshotRepo.Snapshot(ctx, accountID)
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("load ledger snapshot: %w", err)
	}

	return domain.Portfolio{
		AccountID:   accountID,
		CashBalance: snapshot.Account.CashBalance,
		Holdings:    snapshot.Holdings,
	}, nil
}

// Wealth values every holding at the live quote, else the last known quote,
// else its average cost. Quote failures never fail the call; they mark the
// result degraded.
func (s *PortfolioService) Wealth(ctx context.Context, accountID string) (domain.Wealth, error) {
	portfolio, err := s.Portfolio(ctx, accountID)
	if err != nil {
		return domain.Wealth{}, err
	}

	wealth := domain.Wealth{
		AccountID:     accountID,
		Cash:          portfolio.CashBalance,
		HoldingsValue: decimal.Zero,
		Positions:     make([]domain.ValuedPosition, 0, len(portfolio.Holdings)),
	}

	type resolved struct {
		price  decimal.Decimal
		source domain.PriceSource
	}
	prices := make([]resolved, len(portfolio.Holdings))

	var g errgroup.Group
	g.SetLimit(wealthQuoteConcurrency)
	for i, holding := range portfolio.Holdings {
		g.Go(func() error {
			price, source := s.resolvePrice(ctx, holding)
			prices[i] = resolved{price: price, source: source}
			return nil
		})
	}
	_ = g.Wait()

	for i, holding := range portfolio.Holdings {
		price, source := prices[i].price, prices[i].source
		if source != domain.PriceSourceLive {
			wealth.Degraded = true
		}

		value := price.Mul(decimal.NewFromInt(holding.Quantity))
		wealth.HoldingsValue = wealth.HoldingsValue.Add(value)
		wealth.Positions = append(wealth.Positions, domain.ValuedPosition{
			Holding:     holding,
			Price:       price,
			PriceSource: source,
			MarketValue: value,
		})
	}

	wealth.Total = wealth.Cash.Add(wealth.HoldingsValue)
	return wealth, nil
}

func (s *PortfolioService) resolvePrice(ctx context.Context, holding domain.Holding) (decimal.Decimal, domain.PriceSource) {
	if s.prices != nil {
		q, err := s.prices.Quote(ctx, holding.Symbol)
		if err == nil {
			return q.Price, domain.PriceSourceLive
		}
		logger.Warn("portfolio service live quote unavailable", logger.Fields{
			"symbol": holding.Symbol,
			"error":  err.Error(),
		})
		if stale, ok := s.prices.LastKnown(holding.Symbol); ok {
			return stale.Price, domain.PriceSourceLastKnown
		}
	}
	return holding.AverageCost, domain.PriceSourceCostBasis
}

// Reconcile recomputes the balance implied by the transaction log. The
// balance and the log are read from the same snapshot.
func (s *PortfolioService) Reconcile(ctx context.Context, accountID string) (domain.Reconciliation, error) {
	snapshot, err := s.snapshotRepo.Snapshot(ctx, accountID)
	if err != nil {
		return domain.Reconciliation{}, fmt.Errorf("load ledger snapshot: %w", err)
	}
	account, totals := snapshot.Account, snapshot.Totals

	expected := account.StartingBalance.Sub(totals.Buys).Add(totals.Sells)
	result := domain.Reconciliation{
		AccountID:       accountID,
		StartingBalance: account.StartingBalance,
		TotalBought:     totals.Buys,
		TotalSold:       totals.Sells,
		ExpectedBalance: expected,
		ActualBalance:   account.CashBalance,
		Balanced:        expected.Equal(account.CashBalance),
	}

	if !result.Balanced {
		logger.Error("portfolio service reconciliation mismatch", nil, logger.Fields{
			"accountId": accountID,
			"expected":  expected,
			"actual":    account.CashBalance,
		})
	}
	return result, nil
}

func (s *PortfolioService) GetPortfolio(ctx context.Context, accountID string) (commons.Response[models.PortfolioResponse], error) {
	portfolio, err := s.Portfolio(ctx, accountID)
	if err != nil {
		logger.Error("portfolio service get portfolio failed", err, logger.Fields{"accountId": accountID})
		return failure[models.PortfolioResponse]("failed to load portfolio", err), err
	}
	return commons.SuccessResponse("portfolio retrieved", models.NewPortfolioResponse(portfolio, s.currency)), nil
}

func (s *PortfolioService) GetWealth(ctx context.Context, accountID string) (commons.Response[models.WealthResponse], error) {
	wealth, err := s.Wealth(ctx, accountID)
	if err != nil {
		logger.Error("portfolio service get wealth failed", err, logger.Fields{"accountId": accountID})
		return failure[models.WealthResponse]("failed to compute wealth", err), err
	}

	message := "wealth computed"
	if wealth.Degraded {
		message = "wealth computed with fallback prices"
	}
	return commons.SuccessResponse(message, models.NewWealthResponse(wealth, s.currency)), nil
}

func (s *PortfolioService) GetReconciliation(ctx context.Context, accountID string) (commons.Response[models.ReconciliationResponse], error) {
	result, err := s.Reconcile(ctx, accountID)
	if err != nil {
		logger.Error("portfolio service reconcile failed", err, logger.Fields{"accountId": accountID})
		return failure[models.ReconciliationResponse]("failed to reconcile account", err), err
	}
	return commons.SuccessResponse("reconciliation complete", models.NewReconciliationResponse(result, s.currency)), nil
}

func (s *PortfolioService) GetTransactions(ctx context.Context, accountID string, limit int) (commons.Response[models.TransactionListResponse], error) {
	transactions, err := s.transactionRepo.ListByAccount(ctx, accountID, limit)
	if err != nil {
		logger.Error("portfolio service list transactions failed", err, logger.Fields{"accountId": accountID})
		return failure[models.TransactionListResponse]("failed to list transactions", err), err
	}

	out := models.TransactionListResponse{Transactions: make([]models.TransactionResponse, 0, len(transactions))}
	for _, txn := range transactions {
		out.Transactions = append(out.Transactions, models.NewTransactionResponse(txn, s.currency))
	}
	return commons.SuccessResponse("transactions retrieved", out), nil
}
