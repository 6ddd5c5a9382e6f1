package id

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestNewIsSortableWithinSameMillisecond(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 15, 0, 0, time.UTC)

	prev := NewAt(at)
	for i := 0; i < 100; i++ {
		next := NewAt(at)
		if next <= prev {
			t.Fatalf("expected %s > %s", next, prev)
		}
		prev = next
	}
}

func TestNewParses(t *testing.T) {
	parsed, err := ulid.Parse(New())
	if err != nil {
		t.Fatalf("expected valid ulid, got %v", err)
	}
	if ulid.Time(parsed.Time()).IsZero() {
		t.Fatal("expected non-zero timestamp")
	}
}
