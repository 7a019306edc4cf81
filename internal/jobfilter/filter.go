// Package jobfilter decides whether a post is a job offer worth forwarding.
// A Filter runs an ordered chain of gates; the first gate that rejects ends
// the evaluation.
package jobfilter

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ppiankov/jobpan/internal/salary"
	"github.com/ppiankov/jobpan/internal/source"
	"github.com/ppiankov/jobpan/internal/textscan"
)

// Variant selects which gates a Filter runs.
type Variant string

const (
	VariantBasic    Variant = "basic"
	VariantAdvanced Variant = "advanced"
	VariantEnhanced Variant = "enhanced"
)

// ParseVariant validates a variant name.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case VariantBasic, VariantAdvanced, VariantEnhanced:
		return v, nil
	}
	return "", fmt.Errorf("unknown filter variant %q (want basic, advanced or enhanced)", s)
}

// SalaryExtractor finds salary candidates in text.
type SalaryExtractor interface {
	Extract(text string) []salary.Range
}

// Option customises a Filter.
type Option func(*Filter)

// WithLogger sets the logger used for debug output and recovered faults.
func WithLogger(l *slog.Logger) Option {
	return func(f *Filter) { f.logger = l }
}

// WithClock sets the time source for the recency gate.
func WithClock(now func() time.Time) Option {
	return func(f *Filter) { f.now = now }
}

// WithExtractor replaces the salary extractor.
func WithExtractor(e SalaryExtractor) Option {
	return func(f *Filter) { f.extractor = e }
}

// Filter classifies posts. It is immutable after construction and safe for
// concurrent use.
type Filter struct {
	criteria  compiledCriteria
	gates     []Gate
	extractor SalaryExtractor
	logger    *slog.Logger
	now       func() time.Time
}

// New builds a Filter running the gate chain of the given variant.
func New(c Criteria, v Variant, opts ...Option) (*Filter, error) {
	f, err := newFilter(c, opts)
	if err != nil {
		return nil, err
	}

	switch v {
	case VariantBasic:
		f.gates = []Gate{f.textGate(), f.keywordGate(), f.recencyGate(false)}
	case VariantAdvanced:
		f.gates = []Gate{
			f.textGate(),
			f.keywordGate(),
			f.recencyGate(false),
			f.seniorityGate(GateExclude),
			f.salaryGate(),
		}
	case VariantEnhanced:
		f.gates = []Gate{
			f.textGate(),
			f.keywordGate(),
			f.recencyGate(true),
			f.seniorityGate(GateSeniority),
			f.resumeGate(),
			f.roleGate(),
			f.experienceGate(),
			f.remoteGate(),
			f.salaryGate(),
		}
	default:
		_, err := ParseVariant(string(v))
		return nil, err
	}
	return f, nil
}

// NewWithGates builds a Filter running a custom gate chain.
func NewWithGates(c Criteria, gates []Gate, opts ...Option) (*Filter, error) {
	f, err := newFilter(c, opts)
	if err != nil {
		return nil, err
	}
	f.gates = append([]Gate(nil), gates...)
	return f, nil
}

func newFilter(c Criteria, opts []Option) (*Filter, error) {
	compiled, err := compileCriteria(c)
	if err != nil {
		return nil, fmt.Errorf("compile criteria: %w", err)
	}
	f := &Filter{
		criteria:  compiled,
		extractor: salary.NewExtractor(),
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// GateNames lists the gates in evaluation order.
func (f *Filter) GateNames() []string {
	names := make([]string, len(f.gates))
	for i, g := range f.gates {
		names[i] = g.Name()
	}
	return names
}

// Classify runs post through the gate chain. A fault inside a gate is
// logged and turned into a rejection.
func (f *Filter) Classify(post source.Post) (res MatchResult) {
	var trace []GateOutcome
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("classification failed",
				"source", post.Source, "channel", post.Channel, "id", post.ExternalID, "panic", r)
			reason := fmt.Sprintf("internal error: %v", r)
			res = MatchResult{
				Gate:   GateError,
				Reason: reason,
				Trace:  append(trace, GateOutcome{Gate: GateError, Reason: reason}),
			}
		}
	}()

	ev := &Evaluation{
		Post:     post,
		Text:     textscan.Normalize(post.Text),
		Now:      f.now(),
		Analysis: &Analysis{},
	}

	for _, g := range f.gates {
		d := g.Evaluate(ev)
		trace = append(trace, GateOutcome{Gate: g.Name(), Pass: d.Pass, Reason: d.Reason})
		if !d.Pass {
			f.logger.Debug("post rejected",
				"gate", g.Name(), "reason", d.Reason, "channel", post.Channel, "id", post.ExternalID)
			return MatchResult{Gate: g.Name(), Reason: d.Reason, Trace: trace, Analysis: *ev.Analysis}
		}
	}

	return MatchResult{
		Accepted: true,
		Trace:    trace,
		Analysis: f.analyze(ev.Text, post.Text),
	}
}

// ClassifyAll classifies posts on up to workers goroutines. Results are in
// input order.
func (f *Filter) ClassifyAll(posts []source.Post, workers int) []MatchResult {
	results := make([]MatchResult, len(posts))
	if len(posts) == 0 {
		return results
	}
	if workers < 1 {
		workers = 1
	}
	if len(posts) < workers {
		workers = len(posts)
	}

	jobs := make(chan int, len(posts))
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = f.Classify(posts[i])
			}
		}()
	}

	for i := range posts {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
