package quote

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

func newBook(t *testing.T) *StaticSource {
	t.Helper()
	src, err := NewStaticSource([]Seed{
		{Symbol: "tcs", Name: "Tata Consultancy Services", Price: decimal.RequireFromString("3520.00")},
		{Symbol: "ITC", Name: "ITC Limited", Price: decimal.RequireFromString("438.65"), ChangePercent: decimal.RequireFromString("0.35")},
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	return src
}

func TestStaticSourceGetQuote(t *testing.T) {
	src := newBook(t)

	q, err := src.GetQuote(context.Background(), "TCS")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !q.Price.Equal(decimal.RequireFromString("3520")) || q.FetchedAt.IsZero() {
		t.Fatalf("unexpected quote %+v", q)
	}

	if _, err := src.GetQuote(context.Background(), "NOPE"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestStaticSourceAdjust(t *testing.T) {
	src := newBook(t)

	q, err := src.Adjust(context.Background(), "TCS", decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !q.Price.Equal(decimal.RequireFromString("3872")) {
		t.Fatalf("expected 3872, got %s", q.Price)
	}
	if !q.ChangePercent.Equal(decimal.NewFromInt(10)) || !q.Change.Equal(decimal.RequireFromString("352")) {
		t.Fatalf("unexpected change %s / %s", q.Change, q.ChangePercent)
	}

	q, err = src.Adjust(context.Background(), "TCS", decimal.NewFromInt(-50))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !q.Price.Equal(decimal.RequireFromString("1936")) {
		t.Fatalf("expected 1936, got %s", q.Price)
	}

	if _, err := src.Adjust(context.Background(), "TCS", decimal.NewFromInt(-100)); !errors.Is(err, domain.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestStaticSourceRejectsBadSeeds(t *testing.T) {
	cases := [][]Seed{
		{{Symbol: "A B", Price: decimal.NewFromInt(1)}},
		{{Symbol: "TCS", Price: decimal.Zero}},
		{{Symbol: "TCS", Price: decimal.NewFromInt(1)}, {Symbol: "tcs", Price: decimal.NewFromInt(2)}},
	}
	for i, seeds := range cases {
		if _, err := NewStaticSource(seeds); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestStaticSourceSymbolsKeepSeedOrder(t *testing.T) {
	src := newBook(t)
	got := src.Symbols()
	if len(got) != 2 || got[0] != "TCS" || got[1] != "ITC" {
		t.Fatalf("unexpected symbols %v", got)
	}
	snap := src.Snapshot()
	if len(snap) != 2 || snap[0].Symbol != "ITC" {
		t.Fatalf("expected sorted snapshot, got %+v", snap)
	}
}
