package implementations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/id"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

type AccountRepository struct {
	db *Database
}

func NewAccountRepository(db *Database) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, username, email, password_hash, role, cash_balance, starting_balance, version, created_at, updated_at`

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	logger.Info("account repository create", logger.Fields{
		"username": account.Username,
		"role":     account.Role,
	})

	if account.ID == "" {
		account.ID = id.New()
	}
	if account.Role == "" {
		account.Role = domain.RoleTrader
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	account.Version = 0

	const query = `
INSERT INTO accounts (` + accountColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := r.db.ExecContext(
		ctx,
		r.db.Rebind(query),
		account.ID,
		account.Username,
		strings.ToLower(account.Email),
		account.PasswordHash,
		string(account.Role),
		account.CashBalance,
		account.StartingBalance,
		account.Version,
		account.CreatedAt,
		account.UpdatedAt,
	); err != nil {
		logger.Error("account repository create failed", err, logger.Fields{
			"username": account.Username,
		})
		return domain.Account{}, fmt.Errorf("create account: %w", mapError(err))
	}

	account.Email = strings.ToLower(account.Email)
	logger.Info("account repository create success", logger.Fields{
		"accountId": account.ID,
		"username":  account.Username,
	})
	return account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, accountID string) (domain.Account, error) {
	return r.getOne(ctx, "id", accountID)
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	return r.getOne(ctx, "username", username)
}

func (r *AccountRepository) getOne(ctx context.Context, column string, value string) (domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + column + ` = ?`

	account, err := scanAccount(r.db.QueryRowContext(ctx, r.db.Rebind(query), value))
	if err != nil {
		mapped := mapError(err)
		if mapped == domain.ErrRecordNotFound {
			logger.Info("account repository record not found", logger.Fields{column: value})
			return domain.Account{}, mapped
		}
		logger.Error("account repository get failed", err, logger.Fields{column: value})
		return domain.Account{}, fmt.Errorf("get account by %s: %w", column, mapped)
	}
	return account, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var account domain.Account
	var role string
	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&role,
		&account.CashBalance,
		&account.StartingBalance,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return domain.Account{}, err
	}
	account.Role = domain.Role(role)
	return account, nil
}
