// Package core provides the expense domain types and amount parsing.
package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a decimal string typed by a user into a float64.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and a
// leading minus sign. Thousands separators are not supported.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("1.2.3") -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatAmount renders an amount the way a float prints in shortest form:
// always with a fractional part in positional notation (800 -> "800.0",
// 42.5 -> "42.5"), switching to exponent notation when the decimal exponent
// is below -4 or at least 16 (1e16 -> "1e+16", 0.00001 -> "1e-05").
func FormatAmount(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err == nil && (exp < -4 || exp >= 16) {
		return sci
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
