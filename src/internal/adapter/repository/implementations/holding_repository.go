package implementations

import (
	"context"
	"fmt"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

type HoldingRepository struct {
	db *Database
}

func NewHoldingRepository(db *Database) *HoldingRepository {
	return &HoldingRepository{db: db}
}

func (r *HoldingRepository) Get(ctx context.Context, accountID string, symbol string) (domain.Holding, error) {
	const query = `
SELECT account_id, symbol, quantity, average_cost, updated_at
FROM holdings
WHERE account_id = ? AND symbol = ?`

	var holding domain.Holding
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(query), accountID, symbol).Scan(
		&holding.AccountID,
		&holding.Symbol,
		&holding.Quantity,
		&holding.AverageCost,
		&holding.UpdatedAt,
	); err != nil {
		mapped := mapError(err)
		if mapped == domain.ErrRecordNotFound {
			return domain.Holding{}, mapped
		}
		logger.Error("holding repository get failed", err, logger.Fields{
			"accountId": accountID,
			"symbol":    symbol,
		})
		return domain.Holding{}, fmt.Errorf("get holding: %w", mapped)
	}
	return holding, nil
}

func (r *HoldingRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.Holding, error) {
	return listHoldings(ctx, r.db, r.db.DB, accountID)
}

const listHoldingsQuery = `
SELECT account_id, symbol, quantity, average_cost, updated_at
FROM holdings
WHERE account_id = ?
ORDER BY symbol`

func listHoldings(ctx context.Context, db *Database, q queryer, accountID string) ([]domain.Holding, error) {
	rows, err := q.QueryContext(ctx, db.Rebind(listHoldingsQuery), accountID)
	if err != nil {
		logger.Error("holding repository list failed", err, logger.Fields{"accountId": accountID})
		return nil, fmt.Errorf("list holdings: %w", mapError(err))
	}
	defer rows.Close()

	holdings := make([]domain.Holding, 0)
	for rows.Next() {
		var holding domain.Holding
		if err := rows.Scan(
			&holding.AccountID,
			&holding.Symbol,
			&holding.Quantity,
			&holding.AverageCost,
			&holding.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan holding: %w", mapError(err))
		}
		holdings = append(holdings, holding)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holdings: %w", mapError(err))
	}

	return holdings, nil
}
