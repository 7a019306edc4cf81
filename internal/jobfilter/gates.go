package jobfilter

import (
	"fmt"
	"strings"

	"github.com/ppiankov/jobpan/internal/salary"
	"github.com/ppiankov/jobpan/internal/textscan"
)

func (f *Filter) textGate() Gate {
	return NewGate(GateText, func(ev *Evaluation) Decision {
		if strings.TrimSpace(ev.Text) == "" {
			return reject("empty text")
		}
		return pass("")
	})
}

func (f *Filter) keywordGate() Gate {
	return NewGate(GateKeyword, func(ev *Evaluation) Decision {
		if len(f.criteria.keywords) == 0 {
			return reject("no keywords configured")
		}
		matched := textscan.AllContained(ev.Text, f.criteria.keywords)
		ev.Analysis.MatchedKeywords = matched
		if len(matched) == 0 {
			return reject("no keyword matched")
		}
		return pass("matched: " + strings.Join(matched, ", "))
	})
}

// recencyGate rejects posts older than the configured window. A post
// without a timestamp is measured from now (and so passes); the enhanced
// chain skips the measurement altogether.
func (f *Filter) recencyGate(enhanced bool) Gate {
	return NewGate(GateRecency, func(ev *Evaluation) Decision {
		hours := f.criteria.dateFilterHours
		if hours <= 0 {
			return pass("window disabled")
		}
		posted := ev.Post.PostedAt
		if posted.IsZero() {
			if enhanced {
				return pass("no timestamp")
			}
			posted = ev.Now
		}
		age := ev.Now.Sub(posted)
		if age.Hours() > float64(hours) {
			return reject(fmt.Sprintf("posted %.0fh ago, window %dh", age.Hours(), hours))
		}
		return pass("")
	})
}

func (f *Filter) seniorityGate(name string) Gate {
	return NewGate(name, func(ev *Evaluation) Decision {
		term, ok := textscan.FirstContained(ev.Text, f.criteria.exclude)
		if !ok {
			return pass("")
		}
		ev.Analysis.Exclusions = append(ev.Analysis.Exclusions, Exclusion{Category: CategorySeniority, Term: term})
		return reject("excluded term: " + term)
	})
}

func (f *Filter) resumeGate() Gate {
	return NewGate(GateResume, func(ev *Evaluation) Decision {
		rf := f.criteria.findResume(ev.Text)
		if rf.found {
			ev.Analysis.Exclusions = append(ev.Analysis.Exclusions, Exclusion{Category: CategoryResume, Term: rf.term})
			return reject("resume indicator: " + rf.term)
		}
		if len(rf.bare) > 0 {
			f.logger.Debug("resume term without first-person context",
				"terms", rf.bare, "channel", ev.Post.Channel, "id", ev.Post.ExternalID)
		}
		return pass("")
	})
}

func (f *Filter) roleGate() Gate {
	return NewGate(GateRole, func(ev *Evaluation) Decision {
		if term, ok := textscan.FirstContained(ev.Text, f.criteria.nonDeveloperRoles); ok {
			ev.Analysis.Exclusions = append(ev.Analysis.Exclusions, Exclusion{Category: CategoryNonDeveloper, Term: term})
			return reject("non-developer role: " + term)
		}
		if term, ok := f.criteria.contextualTerm(ev.Text); ok {
			ev.Analysis.Exclusions = append(ev.Analysis.Exclusions, Exclusion{Category: CategoryContextual, Term: term})
			return reject("contextual keyword without developer term: " + term)
		}
		return pass("")
	})
}

func (f *Filter) experienceGate() Gate {
	return NewGate(GateExperience, func(ev *Evaluation) Decision {
		if term, ok := f.criteria.juniorTerm(ev.Text); ok {
			ev.Analysis.IsJunior = true
			return pass("junior indicator: " + term)
		}
		years := f.criteria.experienceYears(ev.Text)
		ev.Analysis.ExperienceYears = years
		if years == nil {
			return pass("no experience requirement")
		}
		if *years > f.criteria.maxExperienceYears {
			return reject(fmt.Sprintf("requires %d years, max %d", *years, f.criteria.maxExperienceYears))
		}
		return pass(fmt.Sprintf("requires %d years", *years))
	})
}

func (f *Filter) remoteGate() Gate {
	return NewGate(GateRemote, func(ev *Evaluation) Decision {
		term, ok := textscan.FirstContained(ev.Text, f.criteria.remoteIndicators)
		ev.Analysis.IsRemote = ok
		if !ok {
			return reject("no remote indicator")
		}
		return pass("remote indicator: " + term)
	})
}

func (f *Filter) salaryGate() Gate {
	return NewGate(GateSalary, func(ev *Evaluation) Decision {
		bounds := f.criteria.salary
		if bounds.IsZero() {
			return pass("no salary bounds")
		}
		candidates := f.extractor.Extract(ev.Post.Text)
		ev.Analysis.Salaries = candidates
		if len(candidates) == 0 {
			return reject("no salary found")
		}
		within := salary.FilterByRange(candidates, bounds)
		if len(within) == 0 {
			return reject("salary outside range: " + candidates[0].String())
		}
		return pass("salary: " + within[0].String())
	})
}
