package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

func TestAccountLockerTimesOut(t *testing.T) {
	locker := NewAccountLocker(20 * time.Millisecond)

	unlock, err := locker.Lock(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if _, err := locker.Lock(context.Background(), "acc-1"); !errors.Is(err, domain.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	if !domain.IsRetryable(domain.ErrLockTimeout) {
		t.Fatal("lock timeout must be retryable")
	}

	other, err := locker.Lock(context.Background(), "acc-2")
	if err != nil {
		t.Fatalf("different account must not wait, got %v", err)
	}
	other()

	unlock()
	unlock()
	if n := locker.size(); n != 0 {
		t.Fatalf("expected idle locks to be dropped, have %d", n)
	}
}

func TestAccountLockerHonoursCancellation(t *testing.T) {
	locker := NewAccountLocker(time.Second)
	unlock, err := locker.Lock(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := locker.Lock(ctx, "acc-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAccountLockerHandsOver(t *testing.T) {
	locker := NewAccountLocker(time.Second)
	unlock, err := locker.Lock(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		next, err := locker.Lock(context.Background(), "acc-1")
		if err == nil {
			next()
		}
		close(acquired)
	}()

	time.Sleep(10 * time.Millisecond)
	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestPlanSettlementBuyAverage(t *testing.T) {
	account := domain.Account{ID: "a", CashBalance: decMust("10000")}
	holding := domain.Holding{AccountID: "a", Symbol: "SYM", Quantity: 10, AverageCost: decMust("100")}

	s, err := planSettlement(domain.SideBuy, account, holding, 10, decMust("200"))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !s.Holding.AverageCost.Equal(decMust("150")) || s.Holding.Quantity != 20 {
		t.Fatalf("unexpected holding %+v", s.Holding)
	}
	if !s.NewBalance.Equal(decMust("8000")) || !s.Transaction.TotalAmount.Equal(decMust("2000")) {
		t.Fatalf("unexpected settlement %+v", s)
	}
}

func decMust(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
