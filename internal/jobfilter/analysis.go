package jobfilter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/jobpan/internal/salary"
	"github.com/ppiankov/jobpan/internal/textscan"
)

// ExperienceInfo summarises the experience and remote signals of a post.
type ExperienceInfo struct {
	IsJunior          bool `json:"is_junior"`
	Years             *int `json:"experience_years,omitempty"`
	IsRemote          bool `json:"is_remote"`
	MeetsRequirements bool `json:"meets_requirements"`
}

// SalaryInfo summarises the salary candidates of a post.
type SalaryInfo struct {
	Found    bool           `json:"found"`
	Salaries []salary.Range `json:"salaries,omitempty"`
	Primary  *salary.Range  `json:"primary,omitempty"`
}

// MatchedKeywords returns the include keywords present in text, in
// configured order.
func (f *Filter) MatchedKeywords(text string) []string {
	return textscan.AllContained(textscan.Normalize(text), f.criteria.keywords)
}

// ExperienceInfo reports junior/years/remote signals for text without
// running the gate chain.
func (f *Filter) ExperienceInfo(text string) ExperienceInfo {
	norm := textscan.Normalize(text)
	_, junior := f.criteria.juniorTerm(norm)
	years := f.criteria.experienceYears(norm)
	_, remote := textscan.FirstContained(norm, f.criteria.remoteIndicators)

	experienceOK := junior || years == nil || *years <= f.criteria.maxExperienceYears
	return ExperienceInfo{
		IsJunior:          junior,
		Years:             years,
		IsRemote:          remote,
		MeetsRequirements: experienceOK && remote,
	}
}

// SalaryInfo extracts salary candidates from text.
func (f *Filter) SalaryInfo(text string) SalaryInfo {
	salaries := f.extractor.Extract(text)
	info := SalaryInfo{Found: len(salaries) > 0, Salaries: salaries}
	if info.Found {
		primary := salaries[0]
		info.Primary = &primary
	}
	return info
}

// AnalyzeJob computes the full diagnostic bundle for text.
func (f *Filter) AnalyzeJob(text string) Analysis {
	return f.analyze(textscan.Normalize(text), text)
}

func (f *Filter) analyze(norm, raw string) Analysis {
	c := &f.criteria
	a := Analysis{
		MatchedKeywords: textscan.AllContained(norm, c.keywords),
		ExperienceYears: c.experienceYears(norm),
		Salaries:        f.extractor.Extract(raw),
	}
	_, a.IsJunior = c.juniorTerm(norm)
	_, a.IsRemote = textscan.FirstContained(norm, c.remoteIndicators)

	for _, t := range textscan.AllContained(norm, c.exclude) {
		a.Exclusions = append(a.Exclusions, Exclusion{Category: CategorySeniority, Term: t})
	}
	if rf := c.findResume(norm); rf.found {
		a.Exclusions = append(a.Exclusions, Exclusion{Category: CategoryResume, Term: rf.term})
	}
	for _, t := range textscan.AllContained(norm, c.nonDeveloperRoles) {
		a.Exclusions = append(a.Exclusions, Exclusion{Category: CategoryNonDeveloper, Term: t})
	}
	if t, ok := c.contextualTerm(norm); ok {
		a.Exclusions = append(a.Exclusions, Exclusion{Category: CategoryContextual, Term: t})
	}
	return a
}

// linkPattern matches URLs, handles and e-mail addresses. Their pieces
// ("t.me/...", "@me") are not words of the post.
var linkPattern = regexp.MustCompile(`\S*(?:://|@|\.\pL{2,}/)\S*`)

type resumeFinding struct {
	term  string
	found bool
	bare  []string // contextual terms seen without a first-person cue
}

func (c *compiledCriteria) findResume(text string) resumeFinding {
	if t, ok := textscan.FirstTerm(text, c.resumeIndicators); ok {
		return resumeFinding{term: t, found: true}
	}
	if m := firstRegexMatch(text, c.jobSeeking); m != "" {
		return resumeFinding{term: m, found: true}
	}

	var bare []string
	for _, term := range c.resumeContextual {
		positions := textscan.IndexAllWord(text, term)
		for _, pos := range positions {
			window := textscan.Window(text, pos, pos+len(term), contextWindow)
			if p, ok := c.firstPronoun(linkPattern.ReplaceAllString(window, " ")); ok {
				return resumeFinding{term: term + " near " + strconv.Quote(p), found: true}
			}
		}
		if len(positions) > 0 {
			bare = append(bare, term)
		}
	}
	return resumeFinding{bare: bare}
}

func (c *compiledCriteria) firstPronoun(window string) (string, bool) {
	for _, p := range c.pronouns {
		if textscan.ContainsWord(window, p) {
			return p, true
		}
	}
	return "", false
}

func (c *compiledCriteria) contextualTerm(text string) (string, bool) {
	term, ok := textscan.FirstTerm(text, c.contextualKeywords)
	if !ok {
		return "", false
	}
	if _, dev := textscan.FirstContained(text, c.developerTerms); dev {
		return "", false
	}
	return term, true
}

// juniorTerm returns the first junior indicator that is not, with the role
// guard on, next to a non-developer role.
func (c *compiledCriteria) juniorTerm(text string) (string, bool) {
	for _, term := range c.juniorIndicators {
		for _, pos := range textscan.IndexAllWord(text, term) {
			if c.roleGuard {
				window := textscan.Window(text, pos, pos+len(term), contextWindow)
				if _, ok := textscan.FirstContained(window, c.nonDeveloperRoles); ok {
					continue
				}
			}
			return term, true
		}
	}
	return "", false
}

// experienceYears returns the years figure of the first matching
// experience pattern.
func (c *compiledCriteria) experienceYears(text string) *int {
	for _, re := range c.experience {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(m[1])); err == nil {
			return &n
		}
	}
	return nil
}

func firstRegexMatch(text string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}
