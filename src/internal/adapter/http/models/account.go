package models

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

const minPasswordLength = 8

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	var errs []string

	username := strings.TrimSpace(r.Username)
	if username == "" {
		errs = append(errs, "username is required")
	} else if n := utf8.RuneCountInString(username); n < 3 || n > 32 {
		errs = append(errs, "username must be between 3 and 32 characters")
	} else if strings.ContainsAny(username, " \t\n") {
		errs = append(errs, "username must not contain spaces")
	}

	email := strings.TrimSpace(r.Email)
	if email == "" {
		errs = append(errs, "email is required")
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		errs = append(errs, "email is invalid")
	}

	if len(r.Password) < minPasswordLength {
		errs = append(errs, "password must be at least 8 characters")
	}
	if len(r.Password) > 72 {
		errs = append(errs, "password must be at most 72 bytes")
	}

	return validationError(errs)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.Username) == "" {
		errs = append(errs, "username is required")
	}
	if r.Password == "" {
		errs = append(errs, "password is required")
	}

	return validationError(errs)
}

type AccountResponse struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	Currency        string `json:"currency"`
	CashBalance     Amount `json:"cashBalance"`
	StartingBalance Amount `json:"startingBalance"`
	CreatedAt       string `json:"createdAt"`
}

func NewAccountResponse(account domain.Account, currency string) AccountResponse {
	return AccountResponse{
		ID:              account.ID,
		Username:        account.Username,
		Email:           account.Email,
		Role:            string(account.Role),
		Currency:        currency,
		CashBalance:     NewAmount(account.CashBalance, currency),
		StartingBalance: NewAmount(account.StartingBalance, currency),
		CreatedAt:       account.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt string          `json:"expiresAt"`
	Account   AccountResponse `json:"account"`
}

type LogoutResponse struct {
	LoggedOut bool `json:"loggedOut"`
}
