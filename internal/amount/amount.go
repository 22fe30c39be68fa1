// Package amount converts between decimal text and integer smallest-unit amounts.
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrInvalidAmount is returned for text that is not a non-negative decimal
// with at most the asset's number of fractional digits.
var ErrInvalidAmount = errors.New("invalid amount")

// Parse converts text like "1.25" into smallest units for an asset with the
// given decimals. Conversion is exact; no floating point is involved.
func Parse(text string, decimals uint8) (*big.Int, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if !digitsOnly(intPart) || !digitsOnly(fracPart) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	if intPart == "" && fracPart == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	if len(fracPart) > int(decimals) {
		return nil, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidAmount, text, decimals)
	}
	fracPart += strings.Repeat("0", int(decimals)-len(fracPart))
	clean := strings.TrimLeft(intPart+fracPart, "0")
	if clean == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(clean, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	return v, nil
}

// Format renders smallest units back as decimal text without trailing zeros.
func Format(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	neg := v.Sign() < 0
	s := new(big.Int).Abs(v).String()
	d := int(decimals)
	var out string
	switch {
	case d == 0:
		out = s
	case len(s) <= d:
		frac := strings.TrimRight(strings.Repeat("0", d-len(s))+s, "0")
		out = "0"
		if frac != "" {
			out = "0." + frac
		}
	default:
		out = s[:len(s)-d]
		if frac := strings.TrimRight(s[len(s)-d:], "0"); frac != "" {
			out += "." + frac
		}
	}
	if neg {
		return "-" + out
	}
	return out
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
