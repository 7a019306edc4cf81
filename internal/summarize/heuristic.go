package summarize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/jobpan/internal/privacy"
	"github.com/ppiankov/jobpan/internal/textscan"
)

var (
	urlRe      = regexp.MustCompile(`https?://\S+`)
	linkedInRe = regexp.MustCompile(`(?i)(?:https?://)?(?:[a-z]{2,3}\.)?linkedin\.com/in/[^\s/?#]+`)
	emailRe    = regexp.MustCompile(privacy.EmailPattern)
	phoneRe    = regexp.MustCompile(privacy.PhonePattern)
)

const maxTitle = 120

// stackTerms is the technology catalogue, matched as whole words.
var stackTerms = []string{
	"python", "javascript", "typescript", "java", "c#", "c++", "go", "golang", "rust", "php",
	"ruby", "swift", "kotlin", "scala", "elixir",
	"react", "vue", "angular", "node.js", "express", "django", "flask", "fastapi", "spring",
	"laravel", "rails",
	"mysql", "postgresql", "postgres", "mongodb", "redis", "elasticsearch", "sqlite", "oracle",
	"sql server", "clickhouse", "kafka", "rabbitmq",
	"aws", "azure", "gcp", "docker", "kubernetes", "jenkins", "gitlab", "github actions", "terraform",
	"html", "css", "sass", "bootstrap", "tailwind", "webpack", "vite", "next.js", "nuxt.js",
	"react native", "flutter", "ionic", "xamarin", "swiftui",
	"graphql", "rest api", "grpc", "microservices", "serverless",
	"machine learning", "blockchain",
}

// locationTerms are work-type hints first, then cities.
var locationTerms = []string{
	"remote", "work from home", "wfh", "hybrid", "flexible working",
	"удаленно", "удаленка", "удаленная", "гибрид",
	"london", "manchester", "birmingham", "leeds", "glasgow", "edinburgh", "bristol", "cambridge", "oxford",
	"berlin", "amsterdam", "warsaw", "lisbon", "dubai", "almaty", "tbilisi", "belgrade",
	"москва", "санкт-петербург", "алматы", "тбилиси", "белград",
}

// HeuristicSummarizer summarizes postings using rule-based extraction.
type HeuristicSummarizer struct{}

// Summarize extracts a title, tech stack, location hint, contacts and URLs.
func (h *HeuristicSummarizer) Summarize(text string) Summary {
	text = strings.TrimSpace(text)
	norm := textscan.Normalize(text)

	title := firstSentence(text, maxTitle)
	if title == "" {
		title = "(empty)"
	}

	var stack []string
	for _, term := range stackTerms {
		if textscan.ContainsWord(norm, term) {
			stack = append(stack, term)
		}
	}

	var location string
	for _, term := range locationTerms {
		if textscan.ContainsWord(norm, term) {
			location = term
			break
		}
	}

	links := trimAll(urlRe.FindAllString(text, -1))

	return Summary{
		Title:    title,
		Stack:    stack,
		Location: location,
		Contacts: Contacts{
			Emails:   dedup(emailRe.FindAllString(text, -1)),
			Phones:   dedup(phoneRe.FindAllString(text, -1)),
			LinkedIn: dedup(trimAll(linkedInRe.FindAllString(text, -1))),
		},
		Links: dedup(links),
	}
}

// firstSentence returns text up to the first sentence boundary, capped at maxLen runes.
func firstSentence(text string, maxLen int) string {
	if text == "" {
		return ""
	}

	// Find first newline
	end := len(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		end = idx
	}

	// Find first ". " (period followed by space)
	for i := 0; i < end-1; i++ {
		if (text[i] == '.' || text[i] == '!' || text[i] == '?') && text[i+1] == ' ' {
			end = i + 1
			break
		}
	}

	s := strings.TrimSpace(text[:end])
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}

	cut := []rune(s)[:maxLen]
	// Truncate at last space before maxLen to avoid cutting words
	if idx := strings.LastIndexByte(string(cut), ' '); idx > 0 {
		return string(cut)[:idx] + "..."
	}
	return string(cut) + "..."
}

func trimAll(links []string) []string {
	for i, l := range links {
		links[i] = strings.TrimRight(l, ".,;:!?)]\"'")
	}
	return links
}

func dedup(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
