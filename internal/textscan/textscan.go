// Package textscan holds the small text helpers shared by the salary
// extractor and the job filter: Unicode-aware lowercasing, bounded context
// windows and whole-word lookups.
package textscan

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var yoReplacer = strings.NewReplacer("ё", "е")

// Normalize returns text in NFC form, lowercased, with "ё" folded to "е" so
// that Russian spellings with and without the diaeresis compare equal.
func Normalize(text string) string {
	return yoReplacer.Replace(strings.ToLower(norm.NFC.String(text)))
}

// NormalizeAll applies Normalize to every term and drops empty ones.
func NormalizeAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(Normalize(t))
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Window returns the part of s that starts radius runes before byte offset
// start and ends radius runes after byte offset end.
func Window(s string, start, end, radius int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start > end {
		start = end
	}

	lo := start
	for i := 0; i < radius && lo > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(s[:lo])
		lo -= size
	}
	hi := end
	for i := 0; i < radius && hi < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[hi:])
		hi += size
	}
	return s[lo:hi]
}

// FirstContained returns the first term (in slice order) that occurs in
// text as a plain substring.
func FirstContained(text string, terms []string) (string, bool) {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return t, true
		}
	}
	return "", false
}

// AllContained returns every term that occurs in text, in slice order.
func AllContained(text string, terms []string) []string {
	var found []string
	for _, t := range terms {
		if strings.Contains(text, t) {
			found = append(found, t)
		}
	}
	return found
}

// ContainsWord reports whether word occurs in text without being glued to
// other letters. Edges of word that are not letters ("/hr", "p.a.") are not
// boundary-checked, digits next to a word are allowed ("40hr").
func ContainsWord(text, word string) bool {
	_, ok := IndexWord(text, word)
	return ok
}

// IndexWord is ContainsWord returning the byte offset of the first hit.
func IndexWord(text, word string) (int, bool) {
	return indexWordFrom(text, word, 0)
}

func indexWordFrom(text, word string, from int) (int, bool) {
	if word == "" {
		return 0, false
	}
	first, _ := utf8.DecodeRuneInString(word)
	last, _ := utf8.DecodeLastRuneInString(word)

	for off := from; off < len(text); {
		i := strings.Index(text[off:], word)
		if i < 0 {
			return 0, false
		}
		i += off
		j := i + len(word)

		okBefore := !unicode.IsLetter(first) || i == 0 || !letterBefore(text, i)
		okAfter := !unicode.IsLetter(last) || j == len(text) || !letterAt(text, j)
		if okBefore && okAfter {
			return i, true
		}

		_, size := utf8.DecodeRuneInString(text[i:])
		off = i + size
	}
	return 0, false
}

func letterBefore(s string, i int) bool {
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsLetter(r)
}

func letterAt(s string, i int) bool {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsLetter(r)
}

// IndexAllWord returns the byte offsets of every whole-word occurrence of
// word in text.
func IndexAllWord(text, word string) []int {
	var out []int
	for off := 0; off < len(text); {
		i, ok := indexWordFrom(text, word, off)
		if !ok {
			break
		}
		out = append(out, i)
		off = i + len(word)
	}
	return out
}

// MatchTerm reports whether term occurs in text as a whole word. A term
// ending in "*" is a stem and matches at the start of any word, so
// "крипто*" finds "криптовалюта" but not "скрипт".
func MatchTerm(text, term string) bool {
	if stem, ok := strings.CutSuffix(term, "*"); ok {
		return hasWordPrefix(text, stem)
	}
	return ContainsWord(text, term)
}

// FirstTerm returns the first term (in slice order) for which MatchTerm
// holds, with any stem marker removed.
func FirstTerm(text string, terms []string) (string, bool) {
	for _, t := range terms {
		if MatchTerm(text, t) {
			return strings.TrimSuffix(t, "*"), true
		}
	}
	return "", false
}

func hasWordPrefix(text, stem string) bool {
	if stem == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(stem)
	for off := 0; off < len(text); {
		i := strings.Index(text[off:], stem)
		if i < 0 {
			return false
		}
		i += off
		if !unicode.IsLetter(first) || i == 0 || !letterBefore(text, i) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		off = i + size
	}
	return false
}
