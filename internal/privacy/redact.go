package privacy

import (
	"fmt"
	"regexp"
	"strings"
)

// Contact patterns found in job postings. Phone numbers must start with "+"
// so salary figures like "100 000 - 150 000" are left alone.
const (
	EmailPattern = `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`
	PhonePattern = `\+\d[\d \-()]{8,}\d`
)

const customPlaceholder = "[REDACTED]"

// builtin rules can be named in config instead of spelling out a regex.
var builtin = map[string]string{
	"email": EmailPattern,
	"phone": PhonePattern,
}

// DefaultPatterns are used when redaction is enabled without patterns.
var DefaultPatterns = []string{"email", "phone"}

// Rule is one compiled redaction pattern and the text that replaces it.
type Rule struct {
	Name        string
	Placeholder string
	re          *regexp.Regexp
}

// Compile turns config entries into rules. An entry is either a built-in
// rule name ("email", "phone") or a regular expression.
func Compile(patterns []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(patterns))
	for _, p := range patterns {
		if expr, ok := builtin[strings.ToLower(strings.TrimSpace(p))]; ok {
			name := strings.ToLower(strings.TrimSpace(p))
			rules = append(rules, Rule{
				Name:        name,
				Placeholder: "[" + name + "]",
				re:          regexp.MustCompile(expr),
			})
			continue
		}

		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile redact pattern %q: %w", p, err)
		}
		rules = append(rules, Rule{Name: p, Placeholder: customPlaceholder, re: re})
	}
	return rules, nil
}

// Redactor scrubs contact details from post text before it is stored.
type Redactor struct {
	rules []Rule
}

// NewRedactor compiles patterns, falling back to DefaultPatterns when none
// are given.
func NewRedactor(patterns []string) (*Redactor, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	rules, err := Compile(patterns)
	if err != nil {
		return nil, err
	}
	return &Redactor{rules: rules}, nil
}

// Redact applies the rules in order and returns the scrubbed text with the
// number of replaced matches. A nil Redactor returns text as is.
func (r *Redactor) Redact(text string) (string, int) {
	if r == nil {
		return text, 0
	}

	n := 0
	for _, rule := range r.rules {
		text = rule.re.ReplaceAllStringFunc(text, func(string) string {
			n++
			return rule.Placeholder
		})
	}
	return text, n
}
