package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

type accountLock struct {
	sem  *semaphore.Weighted
	refs int
}

// AccountLocker serialises work per account. Different accounts never wait
// on each other; idle entries are dropped.
type AccountLocker struct {
	mu      sync.Mutex
	locks   map[string]*accountLock
	timeout time.Duration
}

func NewAccountLocker(timeout time.Duration) *AccountLocker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AccountLocker{
		locks:   make(map[string]*accountLock),
		timeout: timeout,
	}
}

// Lock waits at most the configured timeout for the account. The returned
// func releases it; calls after the first do nothing.
func (l *AccountLocker) Lock(ctx context.Context, accountID string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[accountID]
	if !ok {
		lock = &accountLock{sem: semaphore.NewWeighted(1)}
		l.locks[accountID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := lock.sem.Acquire(waitCtx, 1); err != nil {
		l.release(accountID, lock, false)
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("wait for account lock: %w", ctxErr)
		}
		return nil, domain.ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(accountID, lock, true) })
	}, nil
}

func (l *AccountLocker) release(accountID string, lock *accountLock, held bool) {
	if held {
		lock.sem.Release(1)
	}

	l.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, accountID)
	}
	l.mu.Unlock()
}

func (l *AccountLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
