package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/models"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/commons"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

const sessionTokenBytes = 32

type AccountServiceConfig struct {
	Currency        string
	StartingBalance decimal.Decimal
	SessionTTL      time.Duration
	BcryptCost      int
}

// AccountService owns registration and sessions. Session tokens are opaque
// random strings; only their SHA-256 is stored.
type AccountService struct {
	accountRepo domain.AccountRepository
	sessionRepo domain.SessionRepository
	cfg         AccountServiceConfig
	now         func() time.Time
}

func NewAccountService(accountRepo domain.AccountRepository, sessionRepo domain.SessionRepository, cfg AccountServiceConfig) *AccountService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AccountService{
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		cfg:         cfg,
		now:         time.Now,
	}
}

func (s *AccountService) Register(ctx context.Context, req models.RegisterRequest) (commons.Response[models.AccountResponse], error) {
	logger.Info("account service register request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		logger.Error("account service register validation failed", err, nil)
		return failure[models.AccountResponse]("validation failed", err), err
	}

	account, err := s.CreateAccount(ctx, req.Username, req.Email, req.Password, domain.RoleTrader)
	if err != nil {
		if errors.Is(err, domain.ErrConstraintViolation) {
			return failure[models.AccountResponse]("username or email already registered", err), err
		}
		return failure[models.AccountResponse]("failed to register account", err), err
	}

	return commons.SuccessResponse("account registered", models.NewAccountResponse(account, s.cfg.Currency)), nil
}

// CreateAccount stores a new account funded with the starting balance.
func (s *AccountService) CreateAccount(ctx context.Context, username, email, password string, role domain.Role) (domain.Account, error) {
	if !role.Valid() {
		return domain.Account{}, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.accountRepo.Create(ctx, domain.Account{
		Username:        strings.TrimSpace(username),
		Email:           strings.ToLower(strings.TrimSpace(email)),
		PasswordHash:    string(hash),
		Role:            role,
		CashBalance:     s.cfg.StartingBalance,
		StartingBalance: s.cfg.StartingBalance,
	})
	if err != nil {
		logger.Error("account service create account failed", err, logger.Fields{"username": username})
		return domain.Account{}, err
	}

	logger.Info("account service account created", logger.Fields{
		"accountId": created.ID,
		"role":      created.Role,
	})
	return created, nil
}

func (s *AccountService) Login(ctx context.Context, req models.LoginRequest) (commons.Response[models.LoginResponse], error) {
	logger.Info("account service login request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return failure[models.LoginResponse]("validation failed", err), err
	}

	account, err := s.accountRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			// same answer as a wrong password
			err = domain.ErrNotAuthenticated
			return failure[models.LoginResponse]("invalid username or password", err), err
		}
		return failure[models.LoginResponse]("failed to log in", err), err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			logger.Info("account service login password mismatch", logger.Fields{"accountId": account.ID})
			err = domain.ErrNotAuthenticated
			return failure[models.LoginResponse]("invalid username or password", err), err
		}
		wrappedErr := fmt.Errorf("verify password: %w", err)
		logger.Error("account service login compare failed", wrappedErr, logger.Fields{"accountId": account.ID})
		return failure[models.LoginResponse]("failed to log in", wrappedErr), wrappedErr
	}

	token, err := newSessionToken()
	if err != nil {
		return failure[models.LoginResponse]("failed to log in", err), err
	}

	now := s.now().UTC()
	session := domain.Session{
		TokenHash: HashToken(token),
		AccountID: account.ID,
		Role:      account.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return failure[models.LoginResponse]("failed to log in", err), err
	}

	logger.Info("account service login success", logger.Fields{"accountId": account.ID})
	return commons.SuccessResponse("logged in", models.LoginResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
		Account:   models.NewAccountResponse(account, s.cfg.Currency),
	}), nil
}

func (s *AccountService) Logout(ctx context.Context, token string) (commons.Response[models.LogoutResponse], error) {
	if strings.TrimSpace(token) == "" {
		err := domain.ErrNotAuthenticated
		return failure[models.LogoutResponse]("not logged in", err), err
	}

	if err := s.sessionRepo.Delete(ctx, HashToken(token)); err != nil {
		return failure[models.LogoutResponse]("failed to log out", err), err
	}
	return commons.SuccessResponse("logged out", models.LogoutResponse{LoggedOut: true}), nil
}

func (s *AccountService) Me(ctx context.Context, identity domain.Identity) (commons.Response[models.AccountResponse], error) {
	account, err := s.accountRepo.GetByID(ctx, identity.AccountID)
	if err != nil {
		logger.Error("account service me failed", err, logger.Fields{"accountId": identity.AccountID})
		return failure[models.AccountResponse]("failed to load account", err), err
	}
	return commons.SuccessResponse("account retrieved", models.NewAccountResponse(account, s.cfg.Currency)), nil
}

// Authenticate resolves a bearer token to the identity it was issued for.
func (s *AccountService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, domain.ErrNotAuthenticated
	}

	session, err := s.sessionRepo.Get(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.Identity{}, domain.ErrNotAuthenticated
		}
		return domain.Identity{}, err
	}

	if session.Expired(s.now()) {
		_ = s.sessionRepo.Delete(ctx, session.TokenHash)
		return domain.Identity{}, domain.ErrNotAuthenticated
	}

	// the role is read from the account so a change applies to live sessions
	account, err := s.accountRepo.GetByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			_ = s.sessionRepo.Delete(ctx, session.TokenHash)
			return domain.Identity{}, domain.ErrNotAuthenticated
		}
		return domain.Identity{}, err
	}

	return domain.Identity{AccountID: account.ID, Username: account.Username, Role: account.Role}, nil
}

// PurgeExpiredSessions removes sessions past their expiry.
func (s *AccountService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx, s.now().UTC())
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
