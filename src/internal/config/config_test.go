package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
	balance, err := cfg.StartingBalance()
	if err != nil || balance.String() != "10000" {
		t.Fatalf("expected starting balance 10000, got %v (%v)", balance, err)
	}
	if got := cfg.Watchlist(); len(got) != 5 || got[0] != "RELIANCE" {
		t.Fatalf("unexpected watchlist %v", got)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "server.yaml")

	cfg := Default()
	cfg.HTTP.Addr = ":9090"
	cfg.Ledger.LockTimeout = 750 * time.Millisecond
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.HTTP.Addr != ":9090" {
		t.Fatalf("expected addr :9090, got %s", loaded.HTTP.Addr)
	}
	if loaded.Ledger.LockTimeout != 750*time.Millisecond {
		t.Fatalf("expected lock timeout 750ms, got %s", loaded.Ledger.LockTimeout)
	}
	if len(loaded.Quotes.Symbols) != len(cfg.Quotes.Symbols) {
		t.Fatalf("expected %d symbols, got %d", len(cfg.Quotes.Symbols), len(loaded.Quotes.Symbols))
	}
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	cfg := Default()
	cfg.Ledger.StartingBalance = "500"
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	t.Setenv("STARTING_BALANCE", "2500.50")
	t.Setenv("LOCK_TIMEOUT", "2s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://desk.example.com")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Ledger.StartingBalance != "2500.50" {
		t.Fatalf("expected env starting balance, got %s", loaded.Ledger.StartingBalance)
	}
	if loaded.Ledger.LockTimeout != 2*time.Second {
		t.Fatalf("expected 2s lock timeout, got %s", loaded.Ledger.LockTimeout)
	}
	if len(loaded.Realtime.KafkaBrokers) != 2 || loaded.Realtime.KafkaBrokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", loaded.Realtime.KafkaBrokers)
	}
	if len(loaded.Realtime.AllowedOrigins) != 1 || loaded.Realtime.AllowedOrigins[0] != "https://desk.example.com" {
		t.Fatalf("unexpected allowed origins %v", loaded.Realtime.AllowedOrigins)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("QUOTE_TIMEOUT", "soon")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "QUOTE_TIMEOUT") {
		t.Fatalf("expected QUOTE_TIMEOUT error, got %v", err)
	}
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "mysql"
	cfg.Ledger.StartingBalance = "-1"
	cfg.Quotes.Provider = ProviderHTTP

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"database.driver", "starting_balance", "quotes.url"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestLoadNormalizesPostgresConnectionString(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", DriverPostgres)
	t.Setenv("DATABASE_DSN", "Host=db;Port=5432;Database=trading;Username=app;Password=pw")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := "host=db port=5432 dbname=trading user=app password=pw sslmode=disable"
	if cfg.Database.DSN != want {
		t.Fatalf("expected %q, got %q", want, cfg.Database.DSN)
	}
}

func TestNormalizeConnectionStringKeepsURL(t *testing.T) {
	raw := "postgres://app:pw@db:5432/trading?sslmode=require"
	if got := normalizeConnectionString(raw); got != raw {
		t.Fatalf("expected url unchanged, got %q", got)
	}
}
