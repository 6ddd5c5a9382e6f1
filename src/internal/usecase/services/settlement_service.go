package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/models"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/commons"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

// averageCostScale is the number of decimals kept for a holding's average
// cost.
const averageCostScale = 4

// TradeQuoter returns the live price a trade executes at.
type TradeQuoter interface {
	Quote(ctx context.Context, symbol string) (domain.Quote, error)
}

type SettlementService struct {
	accountRepo    domain.AccountRepository
	holdingRepo    domain.HoldingRepository
	settlementRepo domain.SettlementRepository
	locker         *AccountLocker
	quoter         TradeQuoter
	publisher      EventPublisher
	currency       string
}

func NewSettlementService(
	accountRepo domain.AccountRepository,
	holdingRepo domain.HoldingRepository,
	settlementRepo domain.SettlementRepository,
	locker *AccountLocker,
	quoter TradeQuoter,
	publisher EventPublisher,
	currency string,
) *SettlementService {
	return &SettlementService{
		accountRepo:    accountRepo,
		holdingRepo:    holdingRepo,
		settlementRepo: settlementRepo,
		locker:         locker,
		quoter:         quoter,
		publisher:      publisher,
		currency:       currency,
	}
}

// Buy debits quantity × unitPrice from the account and adds the shares to
// its holding.
func (s *SettlementService) Buy(ctx context.Context, accountID string, symbol string, quantity int64, unitPrice decimal.Decimal) (domain.Settlement, error) {
	return s.execute(ctx, domain.SideBuy, accountID, symbol, quantity, unitPrice)
}

// Sell credits quantity × unitPrice to the account and removes the shares
// from its holding. The average cost of the remaining shares is unchanged.
func (s *SettlementService) Sell(ctx context.Context, accountID string, symbol string, quantity int64, unitPrice decimal.Decimal) (domain.Settlement, error) {
	return s.execute(ctx, domain.SideSell, accountID, symbol, quantity, unitPrice)
}

// PlaceTrade prices the request at the current quote and settles it. The
// quote is fetched before the account is locked.
func (s *SettlementService) PlaceTrade(ctx context.Context, accountID string, side domain.Side, req models.TradeRequest) (commons.Response[models.TradeResponse], error) {
	logger.Info("settlement service place trade request", logger.Fields{
		"accountId": accountID,
		"side":      side,
		"payload":   logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("settlement service place trade validation failed", err, nil)
		return failure[models.TradeResponse]("validation failed", err), err
	}
	if !side.Valid() {
		err := fmt.Errorf("%w: side must be BUY or SELL", domain.ErrValidation)
		return failure[models.TradeResponse]("validation failed", err), err
	}

	q, err := s.quoter.Quote(ctx, req.Symbol)
	if err != nil {
		logger.Error("settlement service quote failed", err, logger.Fields{"symbol": req.Symbol})
		if !errors.Is(err, domain.ErrRecordNotFound) && !errors.Is(err, domain.ErrValidation) && !errors.Is(err, domain.ErrQuoteUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrQuoteUnavailable, err)
		}
		return failure[models.TradeResponse]("unable to price trade", err), err
	}

	settlement, err := s.execute(ctx, side, accountID, q.Symbol, req.Quantity, q.Price)
	if err != nil {
		return failure[models.TradeResponse](tradeFailureMessage(err), err), err
	}

	resp := models.TradeResponse{
		Transaction: models.NewTransactionResponse(settlement.Transaction, s.currency),
		CashBalance: models.NewAmount(settlement.NewBalance, s.currency),
	}
	if settlement.Holding.Quantity > 0 {
		holding := models.NewHoldingResponse(settlement.Holding, s.currency)
		resp.Holding = &holding
	}

	return commons.SuccessResponse("trade settled", resp), nil
}

func (s *SettlementService) execute(ctx context.Context, side domain.Side, accountID string, symbol string, quantity int64, unitPrice decimal.Decimal) (domain.Settlement, error) {
	symbol, err := validateTrade(accountID, symbol, quantity, unitPrice)
	if err != nil {
		return domain.Settlement{}, err
	}

	settlement, portfolio, err := s.settleLocked(ctx, side, accountID, symbol, quantity, unitPrice)
	if err != nil {
		return domain.Settlement{}, err
	}

	s.publishPortfolio(ctx, portfolio)
	return settlement, nil
}

// settleLocked holds the account lock from the read of the account until the
// settlement is committed and the post-trade portfolio is read. The lock is
// released before returning, so publishing never runs under it.
func (s *SettlementService) settleLocked(ctx context.Context, side domain.Side, accountID string, symbol string, quantity int64, unitPrice decimal.Decimal) (domain.Settlement, *domain.Portfolio, error) {
	unlock, err := s.locker.Lock(ctx, accountID)
	if err != nil {
		logger.Warn("settlement service account lock failed", logger.Fields{
			"accountId": accountID,
			"error":     err.Error(),
		})
		return domain.Settlement{}, nil, err
	}
	defer unlock()

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return domain.Settlement{}, nil, fmt.Errorf("load account: %w", err)
	}

	holding, err := s.holdingRepo.Get(ctx, accountID, symbol)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return domain.Settlement{}, nil, fmt.Errorf("load holding: %w", err)
		}
		holding = domain.Holding{AccountID: accountID, Symbol: symbol, AverageCost: decimal.Zero}
	}

	settlement, err := planSettlement(side, account, holding, quantity, unitPrice)
	if err != nil {
		logger.Info("settlement service trade rejected", logger.Fields{
			"accountId": accountID,
			"symbol":    symbol,
			"side":      side,
			"quantity":  quantity,
			"reason":    err.Error(),
		})
		return domain.Settlement{}, nil, err
	}

	txn, err := s.settlementRepo.Settle(ctx, settlement)
	if err != nil {
		logger.Error("settlement service settle failed", err, logger.Fields{
			"accountId": accountID,
			"symbol":    symbol,
		})
		return domain.Settlement{}, nil, err
	}
	settlement.Transaction = txn
	settlement.Account.CashBalance = settlement.NewBalance
	settlement.Account.Version++

	logger.Info("settlement service trade settled", logger.Fields{
		"accountId":     accountID,
		"transactionId": txn.ID,
		"symbol":        symbol,
		"side":          side,
		"quantity":      quantity,
		"unitPrice":     unitPrice,
		"newBalance":    settlement.NewBalance,
	})

	return settlement, s.portfolioAfter(ctx, settlement.Account), nil
}

func validateTrade(accountID string, symbol string, quantity int64, unitPrice decimal.Decimal) (string, error) {
	if accountID == "" {
		return "", fmt.Errorf("%w: account id is required", domain.ErrValidation)
	}
	if quantity <= 0 {
		return "", domain.ErrInvalidQuantity
	}
	if !unitPrice.IsPositive() {
		return "", domain.ErrInvalidPrice
	}
	return domain.NormalizeSymbol(symbol)
}

// planSettlement computes the post-trade state without touching the store.
func planSettlement(side domain.Side, account domain.Account, holding domain.Holding, quantity int64, unitPrice decimal.Decimal) (domain.Settlement, error) {
	qty := decimal.NewFromInt(quantity)
	total := unitPrice.Mul(qty)

	next := holding
	var balance decimal.Decimal

	switch side {
	case domain.SideBuy:
		if account.CashBalance.LessThan(total) {
			return domain.Settlement{}, domain.ErrInsufficientFunds
		}
		held := decimal.NewFromInt(holding.Quantity)
		next.Quantity = holding.Quantity + quantity
		next.AverageCost = holding.AverageCost.Mul(held).Add(total).
			Div(decimal.NewFromInt(next.Quantity)).
			Round(averageCostScale)
		balance = account.CashBalance.Sub(total)
	case domain.SideSell:
		if holding.Quantity <= 0 {
			return domain.Settlement{}, domain.ErrNoSuchHolding
		}
		if holding.Quantity < quantity {
			return domain.Settlement{}, domain.ErrInsufficientShares
		}
		next.Quantity = holding.Quantity - quantity
		balance = account.CashBalance.Add(total)
	default:
		return domain.Settlement{}, fmt.Errorf("%w: unknown side %q", domain.ErrValidation, side)
	}

	now := time.Now().UTC()
	next.UpdatedAt = now

	return domain.Settlement{
		Account:    account,
		NewBalance: balance,
		Holding:    next,
		Transaction: domain.Transaction{
			AccountID:   account.ID,
			Symbol:      holding.Symbol,
			Side:        side,
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			TotalAmount: total,
			CreatedAt:   now,
		},
	}, nil
}

// publishPortfolio hands a snapshot to the broadcaster. Failures are logged
// and never affect the settled trade.
// portfolioAfter reads the holdings written by the settlement. It returns nil
// when there is no publisher or the read fails.
func (s *SettlementService) portfolioAfter(ctx context.Context, account domain.Account) *domain.Portfolio {
	if s.publisher == nil {
		return nil
	}

	holdings, err := s.holdingRepo.ListByAccount(ctx, account.ID)
	if err != nil {
		logger.Warn("settlement service portfolio snapshot failed", logger.Fields{
			"accountId": account.ID,
			"error":     err.Error(),
		})
		return nil
	}

	return &domain.Portfolio{
		AccountID:   account.ID,
		CashBalance: account.CashBalance,
		Holdings:    holdings,
	}
}

func (s *SettlementService) publishPortfolio(ctx context.Context, portfolio *domain.Portfolio) {
	if s.publisher == nil || portfolio == nil {
		return
	}

	if err := s.publisher.Publish(ctx, domain.Event{
		Type:      domain.EventPortfolio,
		AccountID: portfolio.AccountID,
		Payload:   models.NewPortfolioResponse(*portfolio, s.currency),
		At:        time.Now().UTC(),
	}); err != nil {
		logger.Warn("settlement service publish portfolio failed", logger.Fields{
			"accountId": portfolio.AccountID,
			"error":     err.Error(),
		})
	}
}

func tradeFailureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "Insufficient funds"
	case errors.Is(err, domain.ErrInsufficientShares):
		return "Insufficient shares"
	case errors.Is(err, domain.ErrNoSuchHolding):
		return "No holding for symbol"
	case errors.Is(err, domain.ErrValidation):
		return "validation failed"
	case domain.IsRetryable(err):
		return "trade not settled, retry later"
	default:
		return "failed to settle trade"
	}
}
