package domain

import "context"

type HoldingRepository interface {
	Get(ctx context.Context, accountID string, symbol string) (Holding, error)
	ListByAccount(ctx context.Context, accountID string) ([]Holding, error)
}
