package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	ProviderStatic = "static"
	ProviderHTTP   = "http"
)

const defaultSQLiteDSN = "file:trading.db"
const defaultStartingBalance = "10000"

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	HTTP     HTTPConfig     `yaml:"http"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Session  SessionConfig  `yaml:"session"`
	Quotes   QuotesConfig   `yaml:"quotes"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Log      logger.Config  `yaml:"log"`
}

type DatabaseConfig struct {
	Driver        string `yaml:"driver"`
	DSN           string `yaml:"dsn"`
	MigrationsDir string `yaml:"migrations_dir,omitempty"`
	MaxOpenConns  int    `yaml:"max_open_conns,omitempty"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LedgerConfig holds money settings. Amounts are strings so they round-trip
// through YAML without float rounding.
type LedgerConfig struct {
	Currency        string        `yaml:"currency"`
	StartingBalance string        `yaml:"starting_balance"`
	LockTimeout     time.Duration `yaml:"lock_timeout"`
}

type SessionConfig struct {
	CookieName   string        `yaml:"cookie_name"`
	TTL          time.Duration `yaml:"ttl"`
	SecureCookie bool          `yaml:"secure_cookie"`
	BcryptCost   int           `yaml:"bcrypt_cost,omitempty"`
}

type QuotesConfig struct {
	Provider    string        `yaml:"provider"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
	// URL may contain {symbol}, replaced per request.
	URL          string       `yaml:"url,omitempty"`
	APIKey       string       `yaml:"api_key,omitempty"`
	APIKeyHeader string       `yaml:"api_key_header,omitempty"`
	Fields       QuoteFields  `yaml:"fields,omitempty"`
	Symbols      []SymbolSeed `yaml:"symbols"`
}

// QuoteFields are jsonpath expressions evaluated against the provider response.
type QuoteFields struct {
	Price         string `yaml:"price"`
	Name          string `yaml:"name,omitempty"`
	Change        string `yaml:"change,omitempty"`
	ChangePercent string `yaml:"change_percent,omitempty"`
}

type SymbolSeed struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
	Price  string `yaml:"price"`
	Change string `yaml:"change,omitempty"`
}

type RealtimeConfig struct {
	TickInterval   time.Duration `yaml:"tick_interval"`
	QueueSize      int           `yaml:"queue_size"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
	KafkaBrokers   []string      `yaml:"kafka_brokers,omitempty"`
	KafkaTopic     string        `yaml:"kafka_topic,omitempty"`
	// AllowedOrigins lists the browser origins besides the serving host that
	// may open the websocket.
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// Default returns a configuration that runs against a local SQLite file with
// the built-in symbol book.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:       DriverSQLite,
			DSN:          defaultSQLiteDSN,
			MaxOpenConns: 1,
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Ledger: LedgerConfig{
			Currency:        "INR",
			StartingBalance: defaultStartingBalance,
			LockTimeout:     5 * time.Second,
		},
		Session: SessionConfig{
			CookieName: "sse_session",
			TTL:        24 * time.Hour,
		},
		Quotes: QuotesConfig{
			Provider:     ProviderStatic,
			Timeout:      3 * time.Second,
			Concurrency:  4,
			APIKeyHeader: "X-API-Key",
			Fields: QuoteFields{
				Price:         "$.price",
				Name:          "$.name",
				Change:        "$.change",
				ChangePercent: "$.changePercent",
			},
			Symbols: []SymbolSeed{
				{Symbol: "RELIANCE", Name: "Reliance Industries", Price: "2450.50", Change: "1.20"},
				{Symbol: "TCS", Name: "Tata Consultancy Services", Price: "3520.00", Change: "-0.45"},
				{Symbol: "INFY", Name: "Infosys", Price: "1475.25", Change: "0.80"},
				{Symbol: "HDFCBANK", Name: "HDFC Bank", Price: "1620.10", Change: "-1.10"},
				{Symbol: "ITC", Name: "ITC Limited", Price: "438.65", Change: "0.35"},
			},
		},
		Realtime: RealtimeConfig{
			TickInterval:   5 * time.Second,
			QueueSize:      256,
			PublishTimeout: 2 * time.Second,
			KafkaTopic:     "trading.events",
		},
		Log: logger.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence (environment wins).
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = fileCfg
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.Database.Driver == DriverPostgres {
		cfg.Database.DSN = normalizeConnectionString(cfg.Database.DSN)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile reads a YAML file on top of Default, so omitted keys keep
// their default values.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("database.driver must be %q or %q", DriverSQLite, DriverPostgres))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if strings.TrimSpace(c.Ledger.Currency) == "" {
		errs = append(errs, errors.New("ledger.currency is required"))
	}
	if balance, err := c.StartingBalance(); err != nil {
		errs = append(errs, err)
	} else if balance.IsNegative() {
		errs = append(errs, errors.New("ledger.starting_balance must not be negative"))
	}
	if c.Ledger.LockTimeout <= 0 {
		errs = append(errs, errors.New("ledger.lock_timeout must be positive"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if strings.TrimSpace(c.Session.CookieName) == "" {
		errs = append(errs, errors.New("session.cookie_name is required"))
	}
	if c.Quotes.Timeout <= 0 {
		errs = append(errs, errors.New("quotes.timeout must be positive"))
	}

	switch c.Quotes.Provider {
	case ProviderStatic:
		for _, seed := range c.Quotes.Symbols {
			price, err := decimal.NewFromString(seed.Price)
			if err != nil || !price.IsPositive() {
				errs = append(errs, fmt.Errorf("quotes.symbols[%s].price must be a positive decimal", seed.Symbol))
			}
		}
	case ProviderHTTP:
		if strings.TrimSpace(c.Quotes.URL) == "" {
			errs = append(errs, errors.New("quotes.url is required for the http provider"))
		}
		if strings.TrimSpace(c.Quotes.Fields.Price) == "" {
			errs = append(errs, errors.New("quotes.fields.price is required for the http provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("quotes.provider must be %q or %q", ProviderStatic, ProviderHTTP))
	}

	if c.Realtime.QueueSize <= 0 {
		errs = append(errs, errors.New("realtime.queue_size must be positive"))
	}
	if len(c.Realtime.KafkaBrokers) > 0 && strings.TrimSpace(c.Realtime.KafkaTopic) == "" {
		errs = append(errs, errors.New("realtime.kafka_topic is required when brokers are set"))
	}

	return errors.Join(errs...)
}

func (c Config) StartingBalance() (decimal.Decimal, error) {
	balance, err := decimal.NewFromString(strings.TrimSpace(c.Ledger.StartingBalance))
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger.starting_balance: %w", err)
	}
	return balance, nil
}

// Watchlist returns the configured symbols in order.
func (c Config) Watchlist() []string {
	out := make([]string, 0, len(c.Quotes.Symbols))
	for _, seed := range c.Quotes.Symbols {
		out = append(out, strings.ToUpper(strings.TrimSpace(seed.Symbol)))
	}
	return out
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Database.DSN, "DATABASE_DSN")
	setString(&cfg.Database.MigrationsDir, "MIGRATIONS_DIR")
	setString(&cfg.HTTP.Addr, "HTTP_ADDR")
	setString(&cfg.Ledger.Currency, "LEDGER_CURRENCY")
	setString(&cfg.Ledger.StartingBalance, "STARTING_BALANCE")
	setString(&cfg.Quotes.Provider, "QUOTE_PROVIDER")
	setString(&cfg.Quotes.URL, "QUOTE_URL")
	setString(&cfg.Quotes.APIKey, "QUOTE_API_KEY")
	setString(&cfg.Realtime.KafkaTopic, "KAFKA_TOPIC")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Log.File, "LOG_FILE")

	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		cfg.Realtime.KafkaBrokers = splitList(brokers)
	}
	if origins := strings.TrimSpace(os.Getenv("WS_ALLOWED_ORIGINS")); origins != "" {
		cfg.Realtime.AllowedOrigins = splitList(origins)
	}

	for env, target := range map[string]*time.Duration{
		"LOCK_TIMEOUT":  &cfg.Ledger.LockTimeout,
		"QUOTE_TIMEOUT": &cfg.Quotes.Timeout,
		"SESSION_TTL":   &cfg.Session.TTL,
		"TICK_INTERVAL": &cfg.Realtime.TickInterval,
	} {
		if err := setDuration(target, env); err != nil {
			return err
		}
	}

	if raw := strings.TrimSpace(os.Getenv("SESSION_SECURE_COOKIE")); raw != "" {
		secure, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("SESSION_SECURE_COOKIE: %w", err)
		}
		cfg.Session.SecureCookie = secure
	}
	return nil
}

func setString(target *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*target = v
	}
}

func setDuration(target *time.Duration, env string) error {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", env, err)
	}
	*target = d
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeConnectionString accepts the semicolon-separated ADO style
// (Host=...;Database=...) and rewrites it into a lib/pq keyword string.
// Anything without '=' pairs, such as a postgres:// URL, is returned as is.
func normalizeConnectionString(raw string) string {
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
