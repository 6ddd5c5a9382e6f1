package implementations

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/logger"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Database is a *sql.DB that remembers its driver so repositories can write
// queries with '?' placeholders and have them rebound for Postgres.
type Database struct {
	*sql.DB
	driver string
}

func Open(ctx context.Context, driver, dsn string, maxOpenConns int) (*Database, error) {
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// one writer; the busy timeout covers readers queued behind it
		db.SetMaxOpenConns(1)
	} else {
		if maxOpenConns <= 0 {
			maxOpenConns = 30
		}
		db.SetMaxIdleConns(maxOpenConns / 2)
		db.SetMaxOpenConns(maxOpenConns)
		db.SetConnMaxIdleTime(5 * time.Minute)
		db.SetConnMaxLifetime(15 * time.Minute)
	}

	logger.Info("database connection opened", logger.Fields{"driver": driver})
	return &Database{DB: db, driver: driver}, nil
}

func (d *Database) Driver() string {
	return d.driver
}

// Rebind rewrites '?' placeholders into $1..$n for Postgres.
func (d *Database) Rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sqliteDSN(dsn string) string {
	params := []string{"_txlock=immediate", "_busy_timeout=5000", "_foreign_keys=on"}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, p := range params {
		key := p[:strings.Index(p, "=")+1]
		if strings.Contains(dsn, key) {
			continue
		}
		dsn += sep + p
		sep = "&"
	}
	return dsn
}
