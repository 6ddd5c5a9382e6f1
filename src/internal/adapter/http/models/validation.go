package models

import (
	"fmt"
	"strings"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

func validationError(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(errs, "; "))
}
