package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleTrader Role = "trader"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleTrader || r == RoleAdmin
}

// Account is a trader's identity and cash position. CashBalance is only
// mutated through a Settlement; StartingBalance never changes after creation
// and anchors reconciliation against the transaction log.
type Account struct {
	ID              string
	Username        string
	Email           string
	PasswordHash    string
	Role            Role
	CashBalance     decimal.Decimal
	StartingBalance decimal.Decimal
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Identity is what the session layer vouches for on each request.
type Identity struct {
	AccountID string
	Username  string
	Role      Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
