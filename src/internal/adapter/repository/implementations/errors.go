package implementations

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

// mapError translates driver errors into domain sentinels while keeping the
// original error in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrRecordNotFound
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch {
		case liteErr.Code == sqlite3.ErrConstraint:
			return fmt.Errorf("%w: %w", domain.ErrConstraintViolation, err)
		case liteErr.Code == sqlite3.ErrBusy, liteErr.Code == sqlite3.ErrLocked:
			return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "23":
			return fmt.Errorf("%w: %w", domain.ErrConstraintViolation, err)
		case pqErr.Code.Class() == "08", pqErr.Code.Class() == "40", pqErr.Code.Class() == "57":
			return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
		}
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}

	return err
}
