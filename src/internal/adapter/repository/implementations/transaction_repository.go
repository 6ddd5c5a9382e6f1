package implementations

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

const defaultTransactionLimit = 50
const maxTransactionLimit = 500

type TransactionRepository struct {
	db *Database
}

func NewTransactionRepository(db *Database) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ListByAccount returns the newest transactions first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}

	const query = `
SELECT id, account_id, symbol, side, quantity, unit_price, total_amount, created_at
FROM transactions
WHERE account_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), accountID, limit)
	if err != nil {
		logger.Error("transaction repository list failed", err, logger.Fields{"accountId": accountID})
		return nil, fmt.Errorf("list transactions: %w", mapError(err))
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0)
	for rows.Next() {
		var txn domain.Transaction
		var side string
		if err := rows.Scan(
			&txn.ID,
			&txn.AccountID,
			&txn.Symbol,
			&side,
			&txn.Quantity,
			&txn.UnitPrice,
			&txn.TotalAmount,
			&txn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", mapError(err))
		}
		txn.Side = domain.Side(side)
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", mapError(err))
	}

	return transactions, nil
}

// Totals sums the whole log for an account. Amounts are added in Go so the
// result is exact on both drivers.
func (r *TransactionRepository) Totals(ctx context.Context, accountID string) (domain.TransactionTotals, error) {
	return sumTransactions(ctx, r.db, r.db.DB, accountID)
}

const transactionTotalsQuery = `SELECT side, total_amount FROM transactions WHERE account_id = ?`

func sumTransactions(ctx context.Context, db *Database, q queryer, accountID string) (domain.TransactionTotals, error) {
	rows, err := q.QueryContext(ctx, db.Rebind(transactionTotalsQuery), accountID)
	if err != nil {
		logger.Error("transaction repository totals failed", err, logger.Fields{"accountId": accountID})
		return domain.TransactionTotals{}, fmt.Errorf("transaction totals: %w", mapError(err))
	}
	defer rows.Close()

	totals := domain.TransactionTotals{Buys: decimal.Zero, Sells: decimal.Zero}
	for rows.Next() {
		var side string
		var amount decimal.Decimal
		if err := rows.Scan(&side, &amount); err != nil {
			return domain.TransactionTotals{}, fmt.Errorf("scan transaction total: %w", mapError(err))
		}
		switch domain.Side(side) {
		case domain.SideBuy:
			totals.Buys = totals.Buys.Add(amount)
			totals.BuyCount++
		case domain.SideSell:
			totals.Sells = totals.Sells.Add(amount)
			totals.SellCount++
		}
	}
	if err := rows.Err(); err != nil {
		return domain.TransactionTotals{}, fmt.Errorf("iterate transaction totals: %w", mapError(err))
	}

	return totals, nil
}
