package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// StringInSlice reports whether s is one of list.
func StringInSlice(s string, list []string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// FormatMoney formats an amount with thousands separators, e.g. "IDR 1.250.000".
func FormatMoney(amount decimal.Decimal, currency string) string {
	neg := amount.IsNegative()
	s := amount.Abs().StringFixed(0)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if neg {
		out = "-" + out
	}
	if currency == "" {
		return out
	}
	return currency + " " + out
}
