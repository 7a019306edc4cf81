package digest

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/jobpan/internal/jobfilter"
)

func TestFormat_FullDigest(t *testing.T) {
	f := NewTerminal(false)
	var buf bytes.Buffer

	item := acceptedItem("@golang_jobs", "Junior Go Developer at Acme.")
	item.AlsoIn = []string{"telegram/@remote_it"}
	input := DigestInput{
		Items: []DigestItem{
			item,
			rejectedItem(jobfilter.GateSeniority),
			rejectedItem(jobfilter.GateSeniority),
			rejectedItem(jobfilter.GateRemote),
		},
		Channels:    3,
		TotalPosts:  50,
		Since:       24 * time.Hour,
		Trending:    []jobfilter.Trend{{Keyword: "go", Channels: []string{"@a", "@b"}}},
		TrendingMin: 2,
	}

	if err := f.Format(&buf, input); err != nil {
		t.Fatalf("format: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"jobpan — 3 channels, 50 posts, since 1d",
		"Trending (in 2+ channels)",
		`"go" — in 2 channels`,
		"Accepted (1)",
		"[1 year · remote · 50,000-80,000 USD/yearly] @golang_jobs — Junior Go Developer at Acme.",
		"stack: go, postgresql",
		"keywords: go",
		"https://t.me/golang_jobs/42",
		"also in: telegram/@remote_it",
		"Rejected: 3 posts (seniority 2, remote 1)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestFormat_TopN(t *testing.T) {
	f := NewTerminal(false)
	var buf bytes.Buffer

	input := DigestInput{
		Items: []DigestItem{
			acceptedItem("@a", "first"),
			acceptedItem("@b", "second"),
			acceptedItem("@c", "third"),
		},
		Since: 24 * time.Hour,
		TopN:  2,
	}
	if err := f.Format(&buf, input); err != nil {
		t.Fatalf("format: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Accepted (3)") {
		t.Error("header should count all accepted postings")
	}
	if strings.Contains(out, "third") {
		t.Error("third posting should be cut by top_n")
	}
	if !strings.Contains(out, "... and 1 more") {
		t.Error("missing hidden count")
	}
	if strings.Contains(out, "Rejected:") {
		t.Error("no rejections expected")
	}
}

func TestFormat_NothingAccepted(t *testing.T) {
	f := NewTerminal(false)
	var buf bytes.Buffer

	input := DigestInput{
		Items: []DigestItem{rejectedItem(jobfilter.GateKeyword)},
		Since: 24 * time.Hour,
	}
	if err := f.Format(&buf, input); err != nil {
		t.Fatalf("format: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "No postings matched.") {
		t.Error("missing empty accepted message")
	}
	if !strings.Contains(out, "Rejected: 1 posts (keyword 1)") {
		t.Errorf("missing rejection footer:\n%s", out)
	}
}

func TestFormat_EmptyInput(t *testing.T) {
	f := NewTerminal(false)
	var buf bytes.Buffer

	if err := f.Format(&buf, DigestInput{Since: 24 * time.Hour}); err != nil {
		t.Fatalf("format: %v", err)
	}
	if !strings.Contains(buf.String(), "No posts found.") {
		t.Error("missing empty message")
	}
}

func TestFormat_NoANSIWithoutColor(t *testing.T) {
	f := NewTerminal(false)
	var buf bytes.Buffer

	input := DigestInput{
		Items: []DigestItem{acceptedItem("@a", "x"), rejectedItem(jobfilter.GateText)},
		Since: 24 * time.Hour,
	}
	if err := f.Format(&buf, input); err != nil {
		t.Fatalf("format: %v", err)
	}
	if strings.Contains(buf.String(), "\033[") {
		t.Error("found ANSI escape codes with color=false")
	}
}

func TestFormat_ANSIWithColor(t *testing.T) {
	f := NewTerminal(true)
	var buf bytes.Buffer

	input := DigestInput{
		Items: []DigestItem{acceptedItem("@a", "x")},
		Since: 24 * time.Hour,
	}
	if err := f.Format(&buf, input); err != nil {
		t.Fatalf("format: %v", err)
	}
	if !strings.Contains(buf.String(), "\033[1m") {
		t.Error("expected bold escape with color=true")
	}
}
