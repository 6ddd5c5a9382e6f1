package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

const maxResponseBytes = 1 << 20

// Fields holds the jsonpath expressions used to read a provider response.
// Only Price is required.
type Fields struct {
	Price         string
	Name          string
	Change        string
	ChangePercent string
}

type HTTPSourceConfig struct {
	// URLTemplate contains {symbol}, replaced with the escaped symbol.
	URLTemplate  string
	APIKey       string
	APIKeyHeader string
	Fields       Fields
	Timeout      time.Duration
}

// HTTPSource reads quotes from an external JSON API.
type HTTPSource struct {
	client *http.Client
	cfg    HTTPSourceConfig
}

func NewHTTPSource(client *http.Client, cfg HTTPSourceConfig) (*HTTPSource, error) {
	if !strings.Contains(cfg.URLTemplate, "{symbol}") {
		return nil, fmt.Errorf("quote url %q must contain {symbol}", cfg.URLTemplate)
	}
	if strings.TrimSpace(cfg.Fields.Price) == "" {
		return nil, fmt.Errorf("quote price field is required")
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPSource{client: client, cfg: cfg}, nil
}

func (s *HTTPSource) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	addr := strings.ReplaceAll(s.cfg.URLTemplate, "{symbol}", url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: build request: %w", domain.ErrQuoteUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.cfg.APIKey != "" && s.cfg.APIKeyHeader != "" {
		req.Header.Set(s.cfg.APIKeyHeader, s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Warn("quote provider request failed", logger.Fields{"symbol": symbol, "error": err.Error()})
		return domain.Quote{}, fmt.Errorf("%w: %s: %w", domain.ErrQuoteUnavailable, symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: read %s: %w", domain.ErrQuoteUnavailable, symbol, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.Quote{}, fmt.Errorf("%w: unknown symbol %s", domain.ErrRecordNotFound, symbol)
	case resp.StatusCode != http.StatusOK:
		logger.Warn("quote provider returned non-200", logger.Fields{"symbol": symbol, "status": resp.StatusCode})
		return domain.Quote{}, fmt.Errorf("%w: %s: status %d", domain.ErrQuoteUnavailable, symbol, resp.StatusCode)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return domain.Quote{}, fmt.Errorf("%w: decode %s: %w", domain.ErrQuoteUnavailable, symbol, err)
	}

	price, err := decimalAt(s.cfg.Fields.Price, doc)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: %s price: %w", domain.ErrQuoteUnavailable, symbol, err)
	}
	if !price.IsPositive() {
		return domain.Quote{}, fmt.Errorf("%w: %s price %s is not positive", domain.ErrQuoteUnavailable, symbol, price)
	}

	q := domain.Quote{
		Symbol:    symbol,
		Price:     price,
		FetchedAt: time.Now().UTC(),
	}
	if s.cfg.Fields.Name != "" {
		if v, err := valueAt(s.cfg.Fields.Name, doc); err == nil {
			if name, ok := v.(string); ok {
				q.Name = name
			}
		}
	}
	if s.cfg.Fields.Change != "" {
		if v, err := decimalAt(s.cfg.Fields.Change, doc); err == nil {
			q.Change = v
		}
	}
	if s.cfg.Fields.ChangePercent != "" {
		if v, err := decimalAt(s.cfg.Fields.ChangePercent, doc); err == nil {
			q.ChangePercent = v
		}
	}
	return q, nil
}

// valueAt evaluates path and unwraps single-element results, since jsonpath
// returns a list for filter and slice expressions.
func valueAt(path string, doc any) (any, error) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, err
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, fmt.Errorf("no value at %s", path)
		}
		v = list[0]
	}
	return v, nil
}

func decimalAt(path string, doc any) (decimal.Decimal, error) {
	v, err := valueAt(path, doc)
	if err != nil {
		return decimal.Zero, err
	}

	switch typed := v.(type) {
	case json.Number:
		return decimal.NewFromString(typed.String())
	case float64:
		return decimal.NewFromFloat(typed), nil
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(typed), ",", "")
		return decimal.NewFromString(cleaned)
	default:
		return decimal.Zero, fmt.Errorf("value at %s is %T, not a number", path, v)
	}
}
