package utils

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidKM = errors.New("km must be a positive number with at most one decimal")

// ParseKM parses a submitted km value. Valid values are positive decimals
// with at most one fractional digit ("42", "42.5"); anything else is rejected.
func ParseKM(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidKM
	}
	// accept a comma decimal separator from form input
	raw = strings.ReplaceAll(raw, ",", ".")
	if i := strings.Index(raw, "."); i != -1 && len(raw)-i-1 > 1 {
		return 0, ErrInvalidKM
	}
	km, err := strconv.ParseFloat(raw, 64)
	if err != nil || km <= 0 {
		return 0, ErrInvalidKM
	}
	return km, nil
}
