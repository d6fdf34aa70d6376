package util

import (
	"strconv"
	"strings"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}

// NormalizeSymbol trims and upper-cases a ticker and appends the exchange
// suffix when the symbol has none, so "tcs" with ".NS" becomes "TCS.NS" while
// "INFY.BO" stays as is. An empty input stays empty.
func NormalizeSymbol(symbol, suffix string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || suffix == "" || strings.Contains(s, ".") {
		return s
	}
	return s + strings.ToUpper(suffix)
}
