package salary

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ParseFailure records a salary-shaped match whose amount could not be
// parsed.
type ParseFailure struct {
	Pattern string
	RawText string
	Err     error
}

// ScanResult is the full outcome of scanning a text.
type ScanResult struct {
	Salaries []Range
	Failures []ParseFailure
}

// Extractor finds salary candidates in text. It holds only compiled
// patterns and is safe for concurrent use.
type Extractor struct {
	patterns []pattern
}

// NewExtractor returns an Extractor with the built-in pattern set.
func NewExtractor() *Extractor {
	return &Extractor{patterns: defaultPatterns()}
}

// Extract returns the deduplicated salary candidates in text, ordered by
// minimum amount with ranges ahead of single figures on ties.
func (e *Extractor) Extract(text string) []Range {
	return e.Scan(text).Salaries
}

// Scan is Extract that also reports matches with malformed amounts.
func (e *Extractor) Scan(text string) ScanResult {
	var res ScanResult
	if text == "" {
		return res
	}

	seen := make(map[string]bool)
	for _, p := range e.patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			r, ok, failure := p.build(text, loc)
			if failure != nil {
				res.Failures = append(res.Failures, *failure)
				continue
			}
			if !ok {
				continue
			}
			k := r.key()
			if seen[k] {
				continue
			}
			seen[k] = true
			res.Salaries = append(res.Salaries, r)
		}
	}

	sort.SliceStable(res.Salaries, func(i, j int) bool {
		a, b := res.Salaries[i], res.Salaries[j]
		if !a.Lower().Equal(b.Lower()) {
			return a.Lower().LessThan(b.Lower())
		}
		return a.IsRange && !b.IsRange
	})
	return res
}

func group(text string, loc []int, n int) string {
	if n <= 0 || 2*n+1 >= len(loc) || loc[2*n] < 0 {
		return ""
	}
	return text[loc[2*n]:loc[2*n+1]]
}

func (p pattern) build(text string, loc []int) (Range, bool, *ParseFailure) {
	raw := text[loc[0]:loc[1]]

	var currency string
	for _, g := range p.currency {
		if c := group(text, loc, g); c != "" && !runsOn(text, loc[2*g+1]) {
			currency = c
			break
		}
	}
	if currency == "" && (p.requireCurrency || len(p.currency) == 1) {
		return Range{}, false, nil
	}

	amounts := make([]decimal.Decimal, 0, len(p.amounts))
	for _, g := range p.amounts {
		d, err := ParseAmount(group(text, loc, g))
		if err != nil {
			return Range{}, false, &ParseFailure{Pattern: p.name, RawText: raw, Err: err}
		}
		amounts = append(amounts, d)
	}

	period := string(DetectPeriod(text, loc[0]))
	if p.period > 0 {
		if explicit := group(text, loc, p.period); explicit != "" {
			period = explicit
		}
	}

	min := Amount(amounts[0])
	var max decimal.NullDecimal
	if p.shape == ranged {
		max = Amount(amounts[1])
	}
	return NewRange(min, max, resolveCurrency(currency), period, p.shape == ranged, raw), true, nil
}

// runsOn reports whether the match ending at end cuts a word short, as in
// "12 Europeans" or "2 usdc".
func runsOn(text string, end int) bool {
	if end <= 0 || end >= len(text) {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(text[:end])
	next, _ := utf8.DecodeRuneInString(text[end:])
	return unicode.IsLetter(last) && unicode.IsLetter(next)
}
