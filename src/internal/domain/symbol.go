package domain

import "strings"

const maxSymbolLength = 20

// NormalizeSymbol upper-cases and trims a ticker and checks its shape:
// letters, digits, '.', '-' and '_' only.
func NormalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" || len(symbol) > maxSymbolLength {
		return "", ErrInvalidSymbol
	}
	for _, ch := range symbol {
		switch {
		case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '.', ch == '-', ch == '_':
		default:
			return "", ErrInvalidSymbol
		}
	}
	return symbol, nil
}
