package dsl

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var ErrInvalidUnits = errors.New("invalid token amount")

// ParseUnits converts a decimal string such as "100" or "0.5" into base units of a token with the given decimals.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.ReplaceAll(strings.TrimSpace(amount), "_", "")
	whole, frac, _ := strings.Cut(amount, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUnits, amount)
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidUnits, amount, decimals)
	}
	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	if strings.ContainsAny(digits, "+-") {
		return nil, fmt.Errorf("%w: %q is signed", ErrInvalidUnits, amount)
	}
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUnits, amount)
	}
	return v, nil
}

// FormatUnits renders base units as a decimal string, trimming trailing zeros.
func FormatUnits(v *big.Int, decimals uint8) string {
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(v, unit, new(big.Int))
	if frac.Sign() == 0 {
		return whole.String()
	}
	fs := new(big.Int).Abs(frac).String()
	fs = strings.Repeat("0", int(decimals)-len(fs)) + fs
	return whole.String() + "." + strings.TrimRight(fs, "0")
}
