package jobfilter

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/jobpan/internal/config"
	"github.com/ppiankov/jobpan/internal/salary"
	"github.com/ppiankov/jobpan/internal/textscan"
)

// DefaultMaxExperienceYears is the largest explicit years-of-experience
// requirement still considered entry level.
const DefaultMaxExperienceYears = 2

// contextWindow is the number of characters searched around a term for
// pronouns (resume check) or non-developer roles (junior check).
const contextWindow = 100

// Criteria configures the gate chain. Term lists are matched
// case-insensitively; pattern lists are regular expressions whose first
// capture group (for experience patterns) holds the number of years.
// Resume indicators and contextual keywords match whole words only; a
// trailing "*" makes the term a word stem ("крипто*").
type Criteria struct {
	Keywords           []string
	ExcludeKeywords    []string
	ResumeIndicators   []string
	ResumeContextual   []string
	Pronouns           []string
	JobSeekingPatterns []string
	NonDeveloperRoles  []string
	ContextualKeywords []string
	DeveloperTerms     []string
	JuniorIndicators   []string
	RemoteIndicators   []string
	ExperiencePatterns []string
	MaxExperienceYears int
	DateFilterHours    int
	Salary             salary.Bounds
	// RoleGuard ignores a junior phrase that sits next to a non-developer
	// role ("junior designer").
	RoleGuard bool
}

// DefaultCriteria returns the built-in English and Russian term lists with
// the given include keywords and recency window.
func DefaultCriteria(keywords []string, dateFilterHours int) Criteria {
	return Criteria{
		Keywords: slices.Clone(keywords),
		ExcludeKeywords: []string{
			"senior", "lead", "architect", "principal", "staff", "head of",
			"сеньор", "синьор", "старший", "ведущий", "тимлид", "техлид", "архитектор", "руководитель",
		},
		ResumeIndicators: []string{
			"#резюме", "#cv", "#resume", "#ищу_работу", "#ищуработу", "#opentowork",
			"моё резюме", "мое резюме", "my cv", "my resume",
			"cv", "resume", "резюме",
		},
		ResumeContextual: []string{"portfolio", "портфолио", "github"},
		Pronouns: []string{
			"i", "i'm", "i've", "my", "me",
			"я", "мой", "моё", "мое", "мои", "моя", "меня", "мне",
		},
		JobSeekingPatterns: []string{
			`looking for (?:a )?(?:job|work|position)`,
			`seeking (?:a )?(?:job|work|position)`,
			`open to (?:work|offers)`,
			`ищу (?:работу|вакансию|проект)`,
			`рассмотрю предложения`,
			`в поиске работы`,
		},
		NonDeveloperRoles: []string{
			"marketing", "маркетолог", "маркетинг",
			"sales", "продаж", "smm",
			"copywriter", "копирайтер",
			"designer", "дизайнер",
			"recruiter", "рекрутер", "hr manager", "hr-менеджер", "эйчар",
			"qa engineer", "qa-инженер", "manual qa", "тестировщик",
			"project manager", "product manager", "менеджер проекта",
			"account manager", "community manager", "moderator", "модератор",
		},
		ContextualKeywords: []string{"web3", "blockchain*", "crypto*", "nft", "defi", "блокчейн*", "крипто*"},
		DeveloperTerms: []string{
			"developer", "engineer", "programmer", "dev", "backend", "frontend", "fullstack", "full-stack",
			"разработчик", "программист", "инженер", "бэкенд", "фронтенд",
		},
		JuniorIndicators: []string{
			"junior", "entry level", "entry-level", "intern", "internship", "trainee", "graduate", "no experience",
			"без опыта", "джуниор", "джун", "джуна", "младший", "младшего",
			"стажер", "стажера", "стажировка", "стажировку", "начинающий", "начинающего",
		},
		RemoteIndicators: []string{
			"remote", "remotely", "work from home", "wfh", "hybrid", "anywhere",
			"удален", "гибрид", "из дома", "дистанц",
		},
		ExperiencePatterns: []string{
			`(\d+)\+?\s*(?:years?|yrs?)\s*(?:of\s+)?(?:experience|exp)`,
			`experience[:\s]+(?:of\s+)?(?:at\s+least\s+)?(\d+)\+?\s*(?:years?|yrs?)`,
			`(?:minimum|at\s+least)\s+(\d+)\+?\s*(?:years?|yrs?)`,
			`опыт(?:\s+работы)?\s*(?:от|до|не менее|более)?\s*(\d+)\+?\s*(?:лет|года?)`,
			`(\d+)\+?\s*(?:лет|года?)\s+опыта`,
		},
		MaxExperienceYears: DefaultMaxExperienceYears,
		DateFilterHours:    dateFilterHours,
		RoleGuard:          true,
	}
}

// compiledCriteria is the normalised, ready-to-match form of Criteria.
type compiledCriteria struct {
	keywords           []string
	exclude            []string
	resumeIndicators   []string
	resumeContextual   []string
	pronouns           []string
	jobSeeking         []*regexp.Regexp
	nonDeveloperRoles  []string
	contextualKeywords []string
	developerTerms     []string
	juniorIndicators   []string
	remoteIndicators   []string
	experience         []*regexp.Regexp
	maxExperienceYears int
	dateFilterHours    int
	salary             salary.Bounds
	roleGuard          bool
}

func compileCriteria(c Criteria) (compiledCriteria, error) {
	jobSeeking, err := compilePatterns(c.JobSeekingPatterns)
	if err != nil {
		return compiledCriteria{}, fmt.Errorf("job seeking patterns: %w", err)
	}
	experience, err := compilePatterns(c.ExperiencePatterns)
	if err != nil {
		return compiledCriteria{}, fmt.Errorf("experience patterns: %w", err)
	}
	for _, re := range experience {
		if re.NumSubexp() < 1 {
			return compiledCriteria{}, fmt.Errorf("experience pattern %q: needs a capture group for years", re.String())
		}
	}

	return compiledCriteria{
		keywords:           textscan.NormalizeAll(c.Keywords),
		exclude:            textscan.NormalizeAll(c.ExcludeKeywords),
		resumeIndicators:   textscan.NormalizeAll(c.ResumeIndicators),
		resumeContextual:   textscan.NormalizeAll(c.ResumeContextual),
		pronouns:           textscan.NormalizeAll(c.Pronouns),
		jobSeeking:         jobSeeking,
		nonDeveloperRoles:  textscan.NormalizeAll(c.NonDeveloperRoles),
		contextualKeywords: textscan.NormalizeAll(c.ContextualKeywords),
		developerTerms:     textscan.NormalizeAll(c.DeveloperTerms),
		juniorIndicators:   textscan.NormalizeAll(c.JuniorIndicators),
		remoteIndicators:   textscan.NormalizeAll(c.RemoteIndicators),
		experience:         experience,
		maxExperienceYears: c.MaxExperienceYears,
		dateFilterHours:    c.DateFilterHours,
		salary:             c.Salary,
		roleGuard:          c.RoleGuard,
	}, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// CriteriaFromConfig builds Criteria from the filter section of the config,
// applying overrides from a criteria file when cf is non-nil.
func CriteriaFromConfig(fc config.FilterConfig, cf *config.CriteriaFile) Criteria {
	c := DefaultCriteria(fc.Keywords, fc.Hours())
	if len(fc.ExcludeKeywords) > 0 {
		c.ExcludeKeywords = slices.Clone(fc.ExcludeKeywords)
	}
	c.Salary = salary.Bounds{
		Min:      optionalAmount(fc.Salary.Min),
		Max:      optionalAmount(fc.Salary.Max),
		Currency: fc.Salary.Currency,
	}

	if cf == nil {
		return c
	}
	override(&c.ExcludeKeywords, cf.Seniority)
	override(&c.ResumeIndicators, cf.ResumeIndicators)
	override(&c.ResumeContextual, cf.ResumeContextual)
	override(&c.Pronouns, cf.Pronouns)
	override(&c.JobSeekingPatterns, cf.JobSeekingPatterns)
	override(&c.NonDeveloperRoles, cf.NonDeveloperRoles)
	override(&c.ContextualKeywords, cf.ContextualKeywords)
	override(&c.DeveloperTerms, cf.DeveloperTerms)
	override(&c.JuniorIndicators, cf.JuniorIndicators)
	override(&c.RemoteIndicators, cf.RemoteIndicators)
	override(&c.ExperiencePatterns, cf.ExperiencePatterns)
	if cf.MaxExperienceYears != nil {
		c.MaxExperienceYears = *cf.MaxExperienceYears
	}
	if cf.RoleGuard != nil {
		c.RoleGuard = *cf.RoleGuard
	}
	return c
}

// override replaces dst when the file set the list, even to empty.
func override(dst *[]string, src []string) {
	if src != nil {
		*dst = slices.Clone(src)
	}
}

func optionalAmount(v *int64) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return salary.Amount(decimal.NewFromInt(*v))
}
