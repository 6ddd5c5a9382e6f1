package models

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Amount is a decimal rendered both as a plain string for clients that
// compute with it and as a localized display string.
type Amount struct {
	Value   string `json:"value"`
	Display string `json:"display"`
}

func NewAmount(value decimal.Decimal, currency string) Amount {
	return Amount{
		Value:   value.String(),
		Display: FormatMoney(value, currency),
	}
}

// FormatMoney renders value in the currency's display format, rounding to the
// currency's minor unit. Unknown currency codes fall back to "<amount> <code>".
func FormatMoney(value decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return value.StringFixed(2) + " " + currency
	}

	minor := value.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}
