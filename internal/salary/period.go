package salary

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/jobpan/internal/textscan"
)

// Period is the pay interval a salary figure refers to.
type Period string

const (
	Hourly  Period = "hourly"
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

// periodWindow is how many characters around a match are searched for a
// period keyword when the pattern itself captured none.
const periodWindow = 100

var periodAliases = map[string]Period{
	"hour":     Hourly,
	"hourly":   Hourly,
	"hr":       Hourly,
	"час":      Hourly,
	"day":      Daily,
	"daily":    Daily,
	"день":     Daily,
	"week":     Weekly,
	"weekly":   Weekly,
	"неделя":   Weekly,
	"неделю":   Weekly,
	"month":    Monthly,
	"monthly":  Monthly,
	"mo":       Monthly,
	"месяц":    Monthly,
	"мес":      Monthly,
	"year":     Yearly,
	"yearly":   Yearly,
	"yr":       Yearly,
	"annum":    Yearly,
	"annual":   Yearly,
	"annually": Yearly,
	"год":      Yearly,
}

// ParsePeriod maps a period token to a Period. Unknown or empty tokens are
// treated as yearly.
func ParsePeriod(token string) Period {
	t := strings.ToLower(strings.TrimSpace(token))
	switch Period(t) {
	case Hourly, Daily, Weekly, Monthly, Yearly:
		return Period(t)
	}
	if p, ok := periodAliases[t]; ok {
		return p
	}
	return Yearly
}

var yearlyFactors = map[Period]int64{
	Hourly:  2080,
	Daily:   260,
	Weekly:  52,
	Monthly: 12,
	Yearly:  1,
}

// YearlyFactor is the multiplier that converts an amount for p into a
// yearly amount.
func (p Period) YearlyFactor() decimal.Decimal {
	if f, ok := yearlyFactors[p]; ok {
		return decimal.NewFromInt(f)
	}
	return decimal.NewFromInt(1)
}

// Checked in this order; the first period with a keyword in the window wins.
var periodKeywords = []struct {
	period Period
	words  []string
}{
	{Hourly, []string{"per hour", "an hour", "hourly", "/hour", "/hr", "hour", "hr", "hrs", "в час", "/час", "час", "почасовая", "почасовой", "почасово"}},
	{Daily, []string{"per day", "a day", "daily", "/day", "day", "в день", "/день", "день", "сутки", "посуточно"}},
	{Weekly, []string{"per week", "a week", "weekly", "/week", "week", "в неделю", "/неделю", "неделю"}},
	{Monthly, []string{"per month", "a month", "monthly", "/month", "/mo", "month", "mo", "mth", "в месяц", "/мес", "месяц", "мес", "ежемесячно"}},
	{Yearly, []string{"per annum", "per year", "a year", "annually", "annual", "yearly", "/year", "/yr", "annum", "year", "yr", "p.a.", "pa", "в год", "/год", "год", "годовых", "ежегодно"}},
}

// DetectPeriod looks for a period keyword within periodWindow characters of
// byte offset pos in text. Yearly is returned when nothing is found.
func DetectPeriod(text string, pos int) Period {
	window := textscan.Normalize(textscan.Window(text, pos, pos, periodWindow))
	for _, pk := range periodKeywords {
		for _, w := range pk.words {
			if textscan.ContainsWord(window, w) {
				return pk.period
			}
		}
	}
	return Yearly
}
