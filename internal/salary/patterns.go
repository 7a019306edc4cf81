package salary

import (
	"regexp"
	"strings"
)

const (
	symbolExpr = `[$€£¥₹₽₴₸₿]`
	// Grouped thousands (comma, space, NBSP, narrow NBSP) or a plain number;
	// either may carry a k suffix.
	amountExpr   = `\d{1,3}(?:[ \x{00A0}\x{202F}]\d{3})+(?:\.\d+)?[kK]?|\d(?:[\d,.]*\d)?[kK]?`
	currencyExpr = `usd|eur|gbp|jpy|inr|rubles?|rub|uah|kzt|btc|dollars?|euros?|pounds?|руб(?:лей|ля|ль)?|гривн[аыя]|гривен|грн|тенге`
	periodExpr   = `hour|hr|day|week|month|mo|year|yr|annum|annual|час|день|неделю|месяц|мес|год`
	dashExpr     = `\s*[-–—]\s*`
)

type shape int

const (
	single shape = iota
	ranged
)

// pattern is one salary shape. Group indexes refer to capture groups of re;
// currency lists candidate groups in order of preference.
type pattern struct {
	name            string
	re              *regexp.Regexp
	shape           shape
	amounts         []int
	currency        []int
	period          int
	requireCurrency bool
}

func expand(expr string) string {
	return strings.NewReplacer(
		"SYM", symbolExpr,
		"AMT", amountExpr,
		"CUR", currencyExpr,
		"PER", periodExpr,
		"DASH", dashExpr,
	).Replace(expr)
}

func compile(name, expr string, sh shape, amounts, currency []int, period int, requireCurrency bool) pattern {
	return pattern{
		name:            name,
		re:              regexp.MustCompile(`(?i)` + expand(expr)),
		shape:           sh,
		amounts:         amounts,
		currency:        currency,
		period:          period,
		requireCurrency: requireCurrency,
	}
}

func defaultPatterns() []pattern {
	return []pattern{
		compile("symbol-amount", `(SYM)\s*(AMT)`, single, []int{2}, []int{1}, 0, false),
		compile("amount-symbol", `(AMT)\s*(SYM)`, single, []int{1}, []int{2}, 0, false),
		compile("amount-word", `(AMT)\s*(CUR)`, single, []int{1}, []int{2}, 0, false),
		compile("symbol-range", `(SYM)\s*(AMT)DASH(?:SYM\s*)?(AMT)`, ranged, []int{2, 3}, []int{1}, 0, false),
		compile("range-symbol", `(AMT)DASH(AMT)\s*(SYM)`, ranged, []int{1, 2}, []int{3}, 0, false),
		compile("range-word", `(AMT)DASH(AMT)\s*(CUR)`, ranged, []int{1, 2}, []int{3}, 0, false),
		compile("symbol-period", `(SYM)\s*(AMT)\s*(?:/\s*|per\s+|an?\s+|в\s+)(PER)`, single, []int{2}, []int{1}, 3, false),
		compile("amount-symbol-period", `(AMT)\s*(SYM)\s*(?:/\s*|per\s+|an?\s+|в\s+)(PER)`, single, []int{1}, []int{2}, 3, false),
		compile("between", `(?:salary|pay|compensation|зарплата|зп)\s*:?\s+(?:between|from|range|от)\s+(SYM)\s*(AMT)\s*(?:and|to|до|-)\s*(SYM)?\s*(AMT)`, ranged, []int{2, 4}, []int{1, 3}, 0, false),
		compile("from-to", `(?:from|от)\s+(SYM)?\s*(AMT)\s+(?:to|до)\s+(SYM)?\s*(AMT)\s*(CUR)?`, ranged, []int{2, 4}, []int{1, 3, 5}, 0, true),
	}
}
