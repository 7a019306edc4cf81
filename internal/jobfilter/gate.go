package jobfilter

import (
	"strconv"
	"time"

	"github.com/ppiankov/jobpan/internal/salary"
	"github.com/ppiankov/jobpan/internal/source"
)

// Gate names, in the order the enhanced chain runs them.
const (
	GateText       = "text"
	GateKeyword    = "keyword"
	GateRecency    = "recency"
	GateSeniority  = "seniority"
	GateResume     = "resume"
	GateRole       = "role"
	GateExperience = "experience"
	GateRemote     = "remote"
	GateSalary     = "salary"

	// GateExclude is the seniority check under the name the advanced chain
	// uses for its exclude-keyword list.
	GateExclude = "exclude"
	// GateError marks a result produced by a recovered fault.
	GateError = "error"
)

// Exclusion categories.
const (
	CategorySeniority    = "seniority"
	CategoryResume       = "resume"
	CategoryNonDeveloper = "non_developer"
	CategoryContextual   = "contextual"
)

// Decision is a single gate's verdict.
type Decision struct {
	Pass   bool
	Reason string
}

func pass(reason string) Decision   { return Decision{Pass: true, Reason: reason} }
func reject(reason string) Decision { return Decision{Reason: reason} }

// Evaluation is the state shared by gates while one post moves through the
// chain. Gates record what they learn in Analysis.
type Evaluation struct {
	Post     source.Post
	Text     string // normalised post text
	Now      time.Time
	Analysis *Analysis
}

// Gate is one predicate in the classification chain.
type Gate interface {
	Name() string
	Evaluate(ev *Evaluation) Decision
}

type gateFunc struct {
	name string
	fn   func(ev *Evaluation) Decision
}

func (g gateFunc) Name() string                     { return g.name }
func (g gateFunc) Evaluate(ev *Evaluation) Decision { return g.fn(ev) }

// NewGate wraps fn as a named Gate.
func NewGate(name string, fn func(ev *Evaluation) Decision) Gate {
	return gateFunc{name: name, fn: fn}
}

// GateOutcome is one entry of a MatchResult trace.
type GateOutcome struct {
	Gate   string `json:"gate"`
	Pass   bool   `json:"pass"`
	Reason string `json:"reason"`
}

// Exclusion is an exclusion term found in a post.
type Exclusion struct {
	Category string `json:"category"`
	Term     string `json:"term"`
}

// Analysis is the diagnostic bundle attached to every MatchResult.
type Analysis struct {
	MatchedKeywords []string       `json:"matched_keywords,omitempty"`
	Exclusions      []Exclusion    `json:"exclusions,omitempty"`
	ExperienceYears *int           `json:"experience_years,omitempty"`
	IsJunior        bool           `json:"is_junior"`
	IsRemote        bool           `json:"is_remote"`
	Salaries        []salary.Range `json:"salaries,omitempty"`
}

// PrimarySalary returns the first salary candidate, if any.
func (a Analysis) PrimarySalary() *salary.Range {
	if len(a.Salaries) == 0 {
		return nil
	}
	r := a.Salaries[0]
	return &r
}

// Level is a short human label for the experience information.
func (a Analysis) Level() string {
	switch {
	case a.IsJunior:
		return "junior"
	case a.ExperienceYears != nil:
		if *a.ExperienceYears == 1 {
			return "1 year"
		}
		return strconv.Itoa(*a.ExperienceYears) + " years"
	default:
		return "not specified"
	}
}

// MatchResult is the outcome of classifying one post.
type MatchResult struct {
	Accepted bool          `json:"accepted"`
	Gate     string        `json:"gate,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Trace    []GateOutcome `json:"trace"`
	Analysis Analysis      `json:"analysis"`
}
