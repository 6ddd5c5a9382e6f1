package implementations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SnapshotRepository struct {
	db *Database
}

func NewSnapshotRepository(db *Database) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Snapshot reads the account row, its holdings and its log totals inside one
// read transaction, so a settlement commits either entirely before or
// entirely after it.
func (r *SnapshotRepository) Snapshot(ctx context.Context, accountID string) (domain.LedgerSnapshot, error) {
	tx, err := r.db.BeginTx(ctx, r.txOptions())
	if err != nil {
		logger.Error("snapshot repository begin tx failed", err, logger.Fields{"accountId": accountID})
		return domain.LedgerSnapshot{}, fmt.Errorf("begin snapshot transaction: %w", mapError(err))
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`
	account, err := scanAccount(tx.QueryRowContext(ctx, r.db.Rebind(query), accountID))
	if err != nil {
		mapped := mapError(err)
		if mapped == domain.ErrRecordNotFound {
			return domain.LedgerSnapshot{}, mapped
		}
		logger.Error("snapshot repository account read failed", err, logger.Fields{"accountId": accountID})
		return domain.LedgerSnapshot{}, fmt.Errorf("snapshot account: %w", mapped)
	}

	holdings, err := listHoldings(ctx, r.db, tx, accountID)
	if err != nil {
		return domain.LedgerSnapshot{}, err
	}

	totals, err := sumTransactions(ctx, r.db, tx, accountID)
	if err != nil {
		return domain.LedgerSnapshot{}, err
	}

	return domain.LedgerSnapshot{
		Account:  account,
		Holdings: holdings,
		Totals:   totals,
	}, nil
}

// go-sqlite3 ignores isolation levels; its transactions already take the
// database lock (_txlock=immediate) on the single connection.
func (r *SnapshotRepository) txOptions() *sql.TxOptions {
	if r.db.driver != DriverPostgres {
		return nil
	}
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}
