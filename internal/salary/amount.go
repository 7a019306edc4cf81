// Package salary finds salary figures in free-form job postings and
// normalises them for comparison.
package salary

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyAmount is returned for a token with no digits left after
	// separators are removed.
	ErrEmptyAmount = errors.New("empty amount")
	// ErrInvalidAmount is returned for a token that is not a number.
	ErrInvalidAmount = errors.New("invalid amount")
)

var thousand = decimal.NewFromInt(1000)

// Thousands separators seen in postings: comma, plain space, NBSP and the
// narrow NBSP used by Russian number formatting.
var separatorStripper = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "\u202f", "")

// ParseAmount converts a numeric literal such as "50,000", "50 000" or
// "1.5k" into an exact decimal. A trailing k or K multiplies by 1000.
func ParseAmount(token string) (decimal.Decimal, error) {
	s := separatorStripper.Replace(strings.TrimSpace(token))
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	multiplier := decimal.NewFromInt(1)
	if last := s[len(s)-1]; last == 'k' || last == 'K' {
		s = s[:len(s)-1]
		multiplier = thousand
		if s == "" {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, token)
		}
	}

	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, token)
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, token)
	}
	return d.Mul(multiplier), nil
}
