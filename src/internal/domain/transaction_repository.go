package domain

import "context"

type TransactionRepository interface {
	ListByAccount(ctx context.Context, accountID string, limit int) ([]Transaction, error)
	Totals(ctx context.Context, accountID string) (TransactionTotals, error)
}

type SettlementRepository interface {
	Settle(ctx context.Context, settlement Settlement) (Transaction, error)
}

type SnapshotRepository interface {
	Snapshot(ctx context.Context, accountID string) (LedgerSnapshot, error)
}
