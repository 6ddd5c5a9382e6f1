package implementations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/id"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

var errNoRowsAffected = errors.New("no rows affected")

type SettlementRepository struct {
	db *Database
}

func NewSettlementRepository(db *Database) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// Settle writes the balance, the holding and the log entry of one trade in a
// single database transaction. The balance update only matches while the
// account still has the version the caller read; otherwise nothing is
// written and ErrConcurrentUpdate is returned.
func (r *SettlementRepository) Settle(ctx context.Context, settlement domain.Settlement) (txn domain.Transaction, err error) {
	txn = settlement.Transaction
	if txn.ID == "" {
		txn.ID = id.New()
	}
	now := time.Now().UTC()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}

	logger.Info("settlement repository settle", logger.Fields{
		"accountId":     settlement.Account.ID,
		"transactionId": txn.ID,
		"symbol":        txn.Symbol,
		"side":          txn.Side,
		"quantity":      txn.Quantity,
		"totalAmount":   txn.TotalAmount,
		"version":       settlement.Account.Version,
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("settlement repository begin tx failed", err, nil)
		return domain.Transaction{}, fmt.Errorf("begin settlement transaction: %w", mapError(err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	updateBalanceQuery := `
UPDATE accounts
SET cash_balance = ?,
    version = version + 1,
    updated_at = ?
WHERE id = ?
  AND version = ?`
	if _, err = r.execRequiredRows(ctx, tx, updateBalanceQuery,
		settlement.NewBalance, now, settlement.Account.ID, settlement.Account.Version,
	); err != nil {
		if errors.Is(err, errNoRowsAffected) {
			err = domain.ErrConcurrentUpdate
		}
		logger.Warn("settlement repository balance update rejected", logger.Fields{
			"accountId": settlement.Account.ID,
			"error":     err.Error(),
		})
		return domain.Transaction{}, err
	}

	holding := settlement.Holding
	if holding.Quantity > 0 {
		upsertHoldingQuery := `
INSERT INTO holdings (account_id, symbol, quantity, average_cost, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (account_id, symbol) DO UPDATE
SET quantity = excluded.quantity,
    average_cost = excluded.average_cost,
    updated_at = excluded.updated_at`
		if _, err = r.execRequiredRows(ctx, tx, upsertHoldingQuery,
			settlement.Account.ID, holding.Symbol, holding.Quantity, holding.AverageCost, now,
		); err != nil {
			return domain.Transaction{}, err
		}
	} else {
		deleteHoldingQuery := `DELETE FROM holdings WHERE account_id = ? AND symbol = ?`
		if _, err = r.execRequiredRows(ctx, tx, deleteHoldingQuery, settlement.Account.ID, holding.Symbol); err != nil {
			if errors.Is(err, errNoRowsAffected) {
				err = domain.ErrNoSuchHolding
			}
			return domain.Transaction{}, err
		}
	}

	insertTransactionQuery := `
INSERT INTO transactions (id, account_id, symbol, side, quantity, unit_price, total_amount, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err = r.execRequiredRows(ctx, tx, insertTransactionQuery,
		txn.ID, settlement.Account.ID, txn.Symbol, string(txn.Side), txn.Quantity, txn.UnitPrice, txn.TotalAmount, txn.CreatedAt,
	); err != nil {
		return domain.Transaction{}, err
	}

	if err = tx.Commit(); err != nil {
		logger.Error("settlement repository commit tx failed", err, nil)
		err = fmt.Errorf("commit settlement transaction: %w", mapError(err))
		return domain.Transaction{}, err
	}

	txn.AccountID = settlement.Account.ID
	logger.Info("settlement repository settle success", logger.Fields{
		"accountId":     settlement.Account.ID,
		"transactionId": txn.ID,
		"newBalance":    settlement.NewBalance,
	})
	return txn, nil
}

func (r *SettlementRepository) execRequiredRows(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	result, err := tx.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("execute settlement statement: %w", mapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read rows affected: %w", mapError(err))
	}
	if rows == 0 {
		return 0, errNoRowsAffected
	}
	return rows, nil
}
