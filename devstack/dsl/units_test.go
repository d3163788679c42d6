package dsl

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	cases := []struct {
		in       string
		decimals uint8
		want     string
	}{
		{"100", 6, "100000000"},
		{"1000", 18, "1000000000000000000000"},
		{"0.5", 6, "500000"},
		{".25", 2, "25"},
		{"1_000_000", 0, "1000000"},
		{"3.", 3, "3000"},
	}
	for _, c := range cases {
		got, err := ParseUnits(c.in, c.decimals)
		require.NoError(t, err, c.in)
		require.Equal(t, c.want, got.String(), c.in)
	}

	for _, in := range []string{"", ".", "1.2345", "abc", "-1", "1.-2"} {
		_, err := ParseUnits(in, 3)
		require.ErrorIs(t, err, ErrInvalidUnits, in)
	}
}

func TestFormatUnits(t *testing.T) {
	require.Equal(t, "100", FormatUnits(big.NewInt(100_000_000), 6))
	require.Equal(t, "0.5", FormatUnits(big.NewInt(500_000), 6))
	require.Equal(t, "1.000001", FormatUnits(big.NewInt(1_000_001), 6))
}
