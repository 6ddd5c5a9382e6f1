package implementations

import (
	"context"
	"fmt"
	"time"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

type SessionRepository struct {
	db *Database
}

func NewSessionRepository(db *Database) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	const query = `
INSERT INTO sessions (token_hash, account_id, role, created_at, expires_at)
VALUES (?, ?, ?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		session.TokenHash,
		session.AccountID,
		string(session.Role),
		session.CreatedAt.UTC(),
		session.ExpiresAt.UTC(),
	); err != nil {
		logger.Error("session repository create failed", err, logger.Fields{"accountId": session.AccountID})
		return fmt.Errorf("create session: %w", mapError(err))
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, tokenHash string) (domain.Session, error) {
	const query = `
SELECT token_hash, account_id, role, created_at, expires_at
FROM sessions
WHERE token_hash = ?`

	var session domain.Session
	var role string
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(query), tokenHash).Scan(
		&session.TokenHash,
		&session.AccountID,
		&role,
		&session.CreatedAt,
		&session.ExpiresAt,
	); err != nil {
		mapped := mapError(err)
		if mapped == domain.ErrRecordNotFound {
			return domain.Session{}, mapped
		}
		logger.Error("session repository get failed", err, nil)
		return domain.Session{}, fmt.Errorf("get session: %w", mapped)
	}
	session.Role = domain.Role(role)
	return session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, tokenHash string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE token_hash = ?`), tokenHash); err != nil {
		logger.Error("session repository delete failed", err, nil)
		return fmt.Errorf("delete session: %w", mapError(err))
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE expires_at <= ?`), now.UTC())
	if err != nil {
		logger.Error("session repository delete expired failed", err, nil)
		return 0, fmt.Errorf("delete expired sessions: %w", mapError(err))
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions rows affected: %w", mapError(err))
	}
	if removed > 0 {
		logger.Info("session repository expired sessions removed", logger.Fields{"count": removed})
	}
	return removed, nil
}
