package salary

import "strings"

// DefaultCurrency is used when a currency token cannot be resolved.
const DefaultCurrency = "USD"

// Currencies lists every code the extractor can produce.
var Currencies = []string{"USD", "EUR", "GBP", "JPY", "INR", "RUB", "UAH", "KZT", "BTC"}

var symbolCurrencies = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
	"₹": "INR",
	"₽": "RUB",
	"₴": "UAH",
	"₸": "KZT",
	"₿": "BTC",
}

var wordCurrencies = map[string]string{
	"usd":     "USD",
	"dollar":  "USD",
	"dollars": "USD",
	"eur":     "EUR",
	"euro":    "EUR",
	"euros":   "EUR",
	"gbp":     "GBP",
	"pound":   "GBP",
	"pounds":  "GBP",
	"jpy":     "JPY",
	"yen":     "JPY",
	"inr":     "INR",
	"rupees":  "INR",
	"rub":     "RUB",
	"ruble":   "RUB",
	"rubles":  "RUB",
	"руб":     "RUB",
	"рубль":   "RUB",
	"рубля":   "RUB",
	"рублей":  "RUB",
	"uah":     "UAH",
	"грн":     "UAH",
	"гривна":  "UAH",
	"гривны":  "UAH",
	"гривня":  "UAH",
	"гривен":  "UAH",
	"kzt":     "KZT",
	"тенге":   "KZT",
	"btc":     "BTC",
}

// LookupCurrency resolves a currency symbol or word (any case) to its code.
func LookupCurrency(token string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	if code, ok := symbolCurrencies[t]; ok {
		return code, true
	}
	code, ok := wordCurrencies[t]
	return code, ok
}

func resolveCurrency(token string) string {
	if code, ok := LookupCurrency(token); ok {
		return code
	}
	if isKnownCode(strings.ToUpper(token)) {
		return strings.ToUpper(token)
	}
	return DefaultCurrency
}

func isKnownCode(code string) bool {
	for _, c := range Currencies {
		if c == code {
			return true
		}
	}
	return false
}
