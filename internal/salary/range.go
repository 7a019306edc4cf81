package salary

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Range is one salary figure or range found in a posting.
type Range struct {
	Min      decimal.NullDecimal `json:"min_amount"`
	Max      decimal.NullDecimal `json:"max_amount"`
	Currency string              `json:"currency"`
	Period   Period              `json:"period"`
	IsRange  bool                `json:"is_range"`
	RawText  string              `json:"raw_text"`
}

// NewRange builds a Range, swapping reversed endpoints, uppercasing the
// currency and normalising the period token.
func NewRange(min, max decimal.NullDecimal, currency, period string, isRange bool, raw string) Range {
	if min.Valid && max.Valid && min.Decimal.GreaterThan(max.Decimal) {
		min, max = max, min
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	return Range{
		Min:      min,
		Max:      max,
		Currency: currency,
		Period:   ParsePeriod(period),
		IsRange:  isRange,
		RawText:  raw,
	}
}

// Amount wraps d as a present optional amount.
func Amount(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}

// Lower is the low end used for ordering and overlap checks; an absent
// minimum counts as zero.
func (r Range) Lower() decimal.Decimal {
	if r.Min.Valid {
		return r.Min.Decimal
	}
	return decimal.Zero
}

// Upper is the high end; single figures use their minimum.
func (r Range) Upper() decimal.Decimal {
	if r.Max.Valid {
		return r.Max.Decimal
	}
	return r.Lower()
}

func (r Range) String() string {
	if r.IsRange && r.Min.Valid && r.Max.Valid {
		return fmt.Sprintf("%s-%s %s (%s)", r.Min.Decimal.String(), r.Max.Decimal.String(), r.Currency, r.Period)
	}
	return fmt.Sprintf("%s %s (%s)", r.Lower().String(), r.Currency, r.Period)
}

// Human renders the range with digit grouping, e.g. "50,000-80,000 USD/yearly".
func (r Range) Human() string {
	if r.IsRange && r.Min.Valid && r.Max.Valid {
		return fmt.Sprintf("%s-%s %s/%s", humanAmount(r.Min.Decimal), humanAmount(r.Max.Decimal), r.Currency, r.Period)
	}
	return fmt.Sprintf("%s %s/%s", humanAmount(r.Lower()), r.Currency, r.Period)
}

func humanAmount(d decimal.Decimal) string {
	if d.IsInteger() {
		return humanize.Comma(d.IntPart())
	}
	f, _ := d.Float64()
	return humanize.CommafWithDigits(f, 2)
}

func (r Range) key() string {
	return strings.Join([]string{nullString(r.Min), nullString(r.Max), r.Currency, string(r.Period)}, "|")
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.String()
}

// NormalizeToYearly returns a copy of r with both amounts converted to a
// yearly figure. Yearly input is returned unchanged.
func NormalizeToYearly(r Range) Range {
	factor := r.Period.YearlyFactor()
	out := r
	if r.Min.Valid {
		out.Min = Amount(r.Min.Decimal.Mul(factor))
	}
	if r.Max.Valid {
		out.Max = Amount(r.Max.Decimal.Mul(factor))
	}
	out.Period = Yearly
	return out
}

// Bounds is a yearly salary window. Absent ends do not constrain.
type Bounds struct {
	Min      decimal.NullDecimal
	Max      decimal.NullDecimal
	Currency string
}

// IsZero reports whether b constrains nothing.
func (b Bounds) IsZero() bool {
	return !b.Min.Valid && !b.Max.Valid
}

// FilterByRange keeps the candidates whose yearly figure overlaps b. The
// returned values are the original, un-normalised candidates.
func FilterByRange(salaries []Range, b Bounds) []Range {
	var out []Range
	for _, s := range salaries {
		y := convertCurrency(NormalizeToYearly(s), b.Currency)
		if b.Min.Valid && y.Upper().LessThan(b.Min.Decimal) {
			continue
		}
		if b.Max.Valid && y.Lower().GreaterThan(b.Max.Decimal) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// convertCurrency is a no-op: amounts are compared as-is regardless of the
// bounds currency.
// TODO: plug in exchange rates once a rate source is configured in filter.salary.
func convertCurrency(r Range, target string) Range {
	_ = target
	return r
}
