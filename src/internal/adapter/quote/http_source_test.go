package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

func newTestHTTPSource(t *testing.T, handler http.HandlerFunc) *HTTPSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	src, err := NewHTTPSource(srv.Client(), HTTPSourceConfig{
		URLTemplate:  srv.URL + "/quote/{symbol}",
		APIKey:       "k-1",
		APIKeyHeader: "X-API-Key",
		Fields: Fields{
			Price:         "$.data.price",
			Name:          "$.data.name",
			ChangePercent: "$.data.pct",
		},
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	return src
}

func TestHTTPSourceReadsConfiguredFields(t *testing.T) {
	src := newTestHTTPSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote/INFY" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "k-1" {
			t.Errorf("expected api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"price":1475.25,"name":"Infosys","pct":"0.80"}}`))
	})

	q, err := src.GetQuote(context.Background(), "INFY")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !q.Price.Equal(decimal.RequireFromString("1475.25")) {
		t.Fatalf("expected 1475.25, got %s", q.Price)
	}
	if q.Name != "Infosys" || !q.ChangePercent.Equal(decimal.RequireFromString("0.8")) {
		t.Fatalf("unexpected quote %+v", q)
	}
}

func TestHTTPSourceFailuresAreUnavailable(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":`))
		},
		"missing price": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":{"name":"x"}}`))
		},
		"zero price": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":{"price":0}}`))
		},
	}
	for name, handler := range cases {
		src := newTestHTTPSource(t, handler)
		_, err := src.GetQuote(context.Background(), "INFY")
		if !errors.Is(err, domain.ErrQuoteUnavailable) {
			t.Fatalf("%s: expected ErrQuoteUnavailable, got %v", name, err)
		}
	}
}

func TestHTTPSourceNotFound(t *testing.T) {
	src := newTestHTTPSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	if _, err := src.GetQuote(context.Background(), "NOPE"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestHTTPSourceHonoursContextDeadline(t *testing.T) {
	release := make(chan struct{})
	src := newTestHTTPSource(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := src.GetQuote(ctx, "INFY"); !errors.Is(err, domain.ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
}

func TestNewHTTPSourceValidatesTemplate(t *testing.T) {
	if _, err := NewHTTPSource(nil, HTTPSourceConfig{URLTemplate: "http://x/quote", Fields: Fields{Price: "$.p"}}); err == nil {
		t.Fatal("expected error for template without {symbol}")
	}
}
