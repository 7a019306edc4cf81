package salary

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"50000", 50000},
		{"50,000", 50000},
		{"1,000,000", 1000000},
		{"50k", 50000},
		{"50K", 50000},
		{"150 000", 150000},
		{"150 000", 150000},
		{"150 000", 150000},
		{" 42 ", 42},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)), "got %s", got)
		})
	}
}

func TestParseAmountFractionalK(t *testing.T) {
	got, err := ParseAmount("1.5k")
	require.NoError(t, err)
	assert.Equal(t, "1500", got.String())

	got, err = ParseAmount("42.50")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("42.5")))
}

func TestParseAmountErrors(t *testing.T) {
	_, err := ParseAmount("")
	assert.ErrorIs(t, err, ErrEmptyAmount)

	_, err = ParseAmount(" , ")
	assert.ErrorIs(t, err, ErrEmptyAmount)

	for _, in := range []string{"abc", "k", "1.2.3", "12e3", "-5"} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}
