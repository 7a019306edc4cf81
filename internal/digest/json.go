package digest

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ppiankov/jobpan/internal/salary"
)

type jsonDigest struct {
	Meta     jsonMeta      `json:"meta"`
	Trending []jsonTrend   `json:"trending,omitempty"`
	Accepted []jsonItem    `json:"accepted"`
	Hidden   int           `json:"hidden,omitempty"`
	Rejected jsonRejection `json:"rejected"`
}

type jsonMeta struct {
	Channels   int    `json:"channels"`
	TotalPosts int    `json:"total_posts"`
	Since      string `json:"since"`
}

type jsonTrend struct {
	Keyword  string   `json:"keyword"`
	Channels []string `json:"channels"`
}

type jsonRejection struct {
	Total  int         `json:"total"`
	ByGate []GateCount `json:"by_gate,omitempty"`
}

type jsonItem struct {
	Source   string        `json:"source"`
	Channel  string        `json:"channel"`
	Title    string        `json:"channel_title,omitempty"`
	Link     string        `json:"link,omitempty"`
	PostedAt string        `json:"posted_at,omitempty"`
	Headline string        `json:"headline"`
	Level    string        `json:"level"`
	Remote   bool          `json:"remote"`
	Location string        `json:"location,omitempty"`
	Salary   *salary.Range `json:"salary,omitempty"`
	Keywords []string      `json:"keywords,omitempty"`
	Stack    []string      `json:"stack,omitempty"`
	AlsoIn   []string      `json:"also_in,omitempty"`
}

// JSONFormatter formats a digest as JSON.
type JSONFormatter struct{}

// NewJSON creates a JSON formatter.
func NewJSON() *JSONFormatter {
	return &JSONFormatter{}
}

// Format writes the digest as JSON to w.
func (f *JSONFormatter) Format(w io.Writer, input DigestInput) error {
	accepted, hidden, rejected := splitResults(input.Items, input.TopN)

	out := jsonDigest{
		Meta: jsonMeta{
			Channels:   input.Channels,
			TotalPosts: input.TotalPosts,
			Since:      formatDuration(input.Since),
		},
		Accepted: toJSONItems(accepted),
		Hidden:   hidden,
		Rejected: jsonRejection{Total: totalRejected(rejected), ByGate: rejected},
	}
	for _, tr := range input.Trending {
		out.Trending = append(out.Trending, jsonTrend{Keyword: tr.Keyword, Channels: tr.Channels})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func toJSONItems(items []DigestItem) []jsonItem {
	result := make([]jsonItem, 0, len(items))
	for _, item := range items {
		a := item.Result.Analysis
		ji := jsonItem{
			Source:   item.Post.Source,
			Channel:  item.Post.Channel,
			Title:    item.Post.ChannelTitle,
			Link:     item.Post.Link(),
			Headline: item.Summary.Title,
			Level:    a.Level(),
			Remote:   a.IsRemote,
			Location: item.Summary.Location,
			Salary:   a.PrimarySalary(),
			Keywords: a.MatchedKeywords,
			Stack:    item.Summary.Stack,
			AlsoIn:   item.AlsoIn,
		}
		if !item.Post.PostedAt.IsZero() {
			ji.PostedAt = item.Post.PostedAt.UTC().Format(time.RFC3339)
		}
		result = append(result, ji)
	}
	return result
}
