package digest

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/ppiankov/jobpan/internal/jobfilter"
	"github.com/ppiankov/jobpan/internal/source"
	"github.com/ppiankov/jobpan/internal/summarize"
)

// DigestItem pairs a classified post with its summary.
type DigestItem struct {
	Post    source.Post
	Result  jobfilter.MatchResult
	Summary summarize.Summary
	AlsoIn  []string // other channels carrying the same text
}

// DigestInput is the full input for a digest formatter.
type DigestInput struct {
	Items       []DigestItem
	Channels    int           // number of channels fetched
	TotalPosts  int           // total posts before filtering
	Since       time.Duration // time window
	TopN        int           // max accepted postings shown, 0 for all
	Trending    []jobfilter.Trend
	TrendingMin int // channel threshold used for Trending
}

// Formatter writes a formatted digest to w.
type Formatter interface {
	Format(w io.Writer, input DigestInput) error
}

// GateCount is the number of posts one gate rejected.
type GateCount struct {
	Gate  string `json:"gate"`
	Count int    `json:"count"`
}

// splitResults separates accepted postings (capped at topN) from rejections,
// which are counted per gate, most frequent first.
func splitResults(items []DigestItem, topN int) (accepted []DigestItem, hidden int, rejected []GateCount) {
	counts := make(map[string]int)
	for _, item := range items {
		if item.Result.Accepted {
			accepted = append(accepted, item)
			continue
		}
		counts[item.Result.Gate]++
	}

	if topN > 0 && len(accepted) > topN {
		hidden = len(accepted) - topN
		accepted = accepted[:topN]
	}

	for gate, n := range counts {
		rejected = append(rejected, GateCount{Gate: gate, Count: n})
	}
	sort.Slice(rejected, func(i, j int) bool {
		if rejected[i].Count != rejected[j].Count {
			return rejected[i].Count > rejected[j].Count
		}
		return rejected[i].Gate < rejected[j].Gate
	})
	return accepted, hidden, rejected
}

func totalRejected(counts []GateCount) int {
	n := 0
	for _, c := range counts {
		n += c.Count
	}
	return n
}

// tags are the short facts shown next to a posting: level, remote flag and
// primary salary.
func tags(item DigestItem) []string {
	a := item.Result.Analysis
	out := []string{a.Level()}
	if a.IsRemote {
		out = append(out, "remote")
	} else if item.Summary.Location != "" {
		out = append(out, item.Summary.Location)
	}
	if s := a.PrimarySalary(); s != nil {
		out = append(out, s.Human())
	}
	return out
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	if hours >= 24 && hours%24 == 0 {
		return fmt.Sprintf("%dd", hours/24)
	}
	return fmt.Sprintf("%dh", hours)
}
