package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

// stubSleep records pauses instead of sleeping.
func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()

	var (
		mu     sync.Mutex
		sleeps []time.Duration
	)
	old := rssSleepFunc
	rssSleepFunc = func(d time.Duration) {
		mu.Lock()
		sleeps = append(sleeps, d)
		mu.Unlock()
	}
	t.Cleanup(func() { rssSleepFunc = old })
	return &sleeps
}

func jobFeedXML(title string, n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>` + title + `</title>`)
	for i := range n {
		fmt.Fprintf(&b, `<item><guid>%s-%d</guid><title>Junior Go developer %d</title>`+
			`<description>&lt;p&gt;Remote&lt;/p&gt;</description><category>remote</category>`+
			`<pubDate>%s</pubDate></item>`,
			title, i, i, time.Now().Add(-time.Hour).Format(time.RFC1123Z))
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func TestNewRSS(t *testing.T) {
	tests := []struct {
		name  string
		feeds []string
		want  int
		err   bool
	}{
		{"nil", nil, 0, true},
		{"only blanks", []string{"", "  "}, 0, true},
		{"bad scheme", []string{"ftp://example.com/feed"}, 0, true},
		{"no host", []string{"https:///feed"}, 0, true},
		{"blanks skipped", []string{" https://example.com/jobs.rss ", ""}, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := NewRSS(tt.feeds)
			if tt.err {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(rs.feeds) != tt.want {
				t.Errorf("feeds = %v, want %d", rs.feeds, tt.want)
			}
			if rs.feeds[0] != "https://example.com/jobs.rss" {
				t.Errorf("feed not trimmed: %q", rs.feeds[0])
			}
			if rs.Name() != "rss" {
				t.Errorf("name = %q, want rss", rs.Name())
			}
		})
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"tags", "<div><p>Go developer</p></div>", "Go developer"},
		{"entities", "Salary &amp; bonus &gt; $50k", "Salary & bonus > $50k"},
		{"script dropped", "<script>alert(1)</script><p>Go developer</p>", "Go developer"},
		{"paragraph breaks", "<p>Remote</p>\n\n\n<p>Junior</p>", "Remote\n\nJunior"},
		{"line break", "line<br/>break", "line break"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripHTML(tt.input); got != tt.want {
				t.Errorf("stripHTML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestItemText(t *testing.T) {
	tests := []struct {
		name string
		item *gofeed.Item
		want string
	}{
		{
			"title, content and categories",
			&gofeed.Item{Title: "Junior Go Developer", Content: "<p>Berlin or remote</p>", Categories: []string{"remote", "golang"}},
			"Junior Go Developer\n\nBerlin or remote\n\nTags: remote, golang",
		},
		{
			"description fallback",
			&gofeed.Item{Title: "Go Developer", Description: "Fully remote"},
			"Go Developer\n\nFully remote",
		},
		{
			"title already in body",
			&gofeed.Item{Title: "Go Developer", Content: "Go Developer at Acme"},
			"Go Developer at Acme",
		},
		{
			"escaped title",
			&gofeed.Item{Title: "Go &amp; Python"},
			"Go & Python",
		},
		{"empty", &gofeed.Item{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := itemText(tt.item); got != tt.want {
				t.Errorf("itemText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestItemHelpers(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	if got := itemPublishedTime(&gofeed.Item{PublishedParsed: &now, UpdatedParsed: &earlier}); !got.Equal(now) {
		t.Errorf("published time = %v, want published date", got)
	}
	if got := itemPublishedTime(&gofeed.Item{UpdatedParsed: &earlier}); !got.Equal(earlier) {
		t.Errorf("published time = %v, want updated fallback", got)
	}
	if got := itemPublishedTime(&gofeed.Item{}); !got.IsZero() {
		t.Errorf("published time = %v, want zero", got)
	}

	if got := itemID(&gofeed.Item{GUID: "abc", Link: "https://example.com/1"}); got != "abc" {
		t.Errorf("itemID = %q, want guid", got)
	}
	if got := itemID(&gofeed.Item{Link: "https://example.com/1"}); got != "https://example.com/1" {
		t.Errorf("itemID = %q, want link", got)
	}

	if got := feedLabel(&gofeed.Feed{Title: " Remote Go Jobs "}, "https://example.com/feed"); got != "Remote Go Jobs" {
		t.Errorf("feedLabel = %q", got)
	}
	if got := feedLabel(&gofeed.Feed{}, "https://example.com/feed"); got != "https://example.com/feed" {
		t.Errorf("feedLabel = %q, want URL", got)
	}
}

func TestPostsFromFeed(t *testing.T) {
	now := time.Now()
	recent := now.Add(-1 * time.Hour)
	old := now.Add(-48 * time.Hour)
	since := now.Add(-24 * time.Hour)

	feed := &gofeed.Feed{
		Title: "Remote Go Jobs",
		Items: []*gofeed.Item{
			{
				GUID:            "1",
				Title:           "Junior Go Developer",
				Description:     "<p>Remote, $50k-$80k</p>",
				Link:            "https://example.com/1",
				Author:          &gofeed.Person{Name: "Acme"},
				PublishedParsed: &recent,
			},
			{GUID: "2", Title: "Old Posting", Description: "Old", PublishedParsed: &old},
			{GUID: "3", Title: "No Date", Description: "Undated posting"},
			{GUID: "4"},
			{Title: "No identifier", Description: "dropped"},
		},
	}

	posts := postsFromFeed(feed, "https://example.com/feed.xml", since)
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2 (recent and undated)", len(posts))
	}

	p := posts[0]
	if p.Source != "rss" || p.Channel != "https://example.com/feed.xml" || p.ChannelTitle != "Remote Go Jobs" {
		t.Errorf("unexpected channel fields: %+v", p)
	}
	if p.ExternalID != "1" || p.SenderID != "Acme" || p.URL != "https://example.com/1" {
		t.Errorf("unexpected item fields: %+v", p)
	}
	if p.Text != "Junior Go Developer\n\nRemote, $50k-$80k" {
		t.Errorf("text = %q", p.Text)
	}

	if posts[1].ExternalID != "3" || !posts[1].PostedAt.IsZero() {
		t.Errorf("undated post = %+v, want id 3 with zero PostedAt", posts[1])
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", gofeed.HTTPError{StatusCode: 503, Status: "503 Service Unavailable"}, true},
		{"wrapped server error", fmt.Errorf("fetch x: %w", gofeed.HTTPError{StatusCode: 502}), true},
		{"rate limited", gofeed.HTTPError{StatusCode: 429}, true},
		{"not found", gofeed.HTTPError{StatusCode: 404}, false},
		{"forbidden", gofeed.HTTPError{StatusCode: 403}, false},
		{"deadline", fmt.Errorf("fetch x: %w", context.DeadlineExceeded), true},
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, true},
		{"dns", &net.DNSError{Err: "no such host", Name: "jobs.invalid", IsNotFound: true}, true},
		{"parse error", errors.New("failed to detect feed type"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestGroupByHost(t *testing.T) {
	feeds := []string{
		"https://a.example/jobs.rss",
		"https://b.example/jobs.rss",
		"https://A.example/remote.rss",
		"not a url",
	}

	got := groupByHost(feeds)
	want := [][]int{{0, 2}, {1}, {3}}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("groupByHost = %v, want %v", got, want)
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	sleeps := stubSleep(t)

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != rssUserAgent {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, jobFeedXML("flaky", 2))
	}))
	defer ts.Close()

	rs, err := NewRSS([]string{ts.URL + "/jobs.rss"})
	if err != nil {
		t.Fatal(err)
	}
	posts, err := rs.Fetch(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("posts = %d, want 2", len(posts))
	}
	if !strings.Contains(posts[0].Text, "Tags: remote") {
		t.Errorf("categories missing from text: %q", posts[0].Text)
	}
	if calls.Load() != 3 {
		t.Errorf("attempts = %d, want 3", calls.Load())
	}
	if fmt.Sprint(*sleeps) != fmt.Sprint([]time.Duration{time.Second, 2 * time.Second}) {
		t.Errorf("backoff = %v, want [1s 2s]", *sleeps)
	}
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	stubSleep(t)

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	rs, _ := NewRSS([]string{ts.URL + "/gone.rss"})
	_, err := rs.Fetch(time.Time{})
	if err == nil || !strings.Contains(err.Error(), "all 1 feeds failed") {
		t.Fatalf("expected all-feeds-failed error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("attempts = %d, want 1", calls.Load())
	}
}

func TestFetch_GivesUpAfterMaxAttempts(t *testing.T) {
	stubSleep(t)

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	rs, _ := NewRSS([]string{ts.URL + "/down.rss"})
	if _, err := rs.Fetch(time.Time{}); err == nil || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("expected retry exhaustion, got %v", err)
	}
	if calls.Load() != rssMaxAttempts {
		t.Errorf("attempts = %d, want %d", calls.Load(), rssMaxAttempts)
	}
}

func TestFetch_PartialFailureKeepsGoodFeeds(t *testing.T) {
	stubSleep(t)

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, jobFeedXML("good", 1))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer bad.Close()

	rs, _ := NewRSS([]string{bad.URL + "/jobs.rss", good.URL + "/jobs.rss"})
	posts, err := rs.Fetch(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(posts) != 1 || posts[0].ChannelTitle != "good" {
		t.Fatalf("posts = %+v, want the good feed only", posts)
	}
}

func TestFetch_SameHostSerialized(t *testing.T) {
	sleeps := stubSleep(t)

	var active, peak atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		_, _ = fmt.Fprint(w, jobFeedXML(strings.TrimPrefix(r.URL.Path, "/"), 1))
	}))
	defer ts.Close()

	rs, _ := NewRSS([]string{ts.URL + "/a", ts.URL + "/b", ts.URL + "/c"})
	posts, err := rs.Fetch(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("posts = %d, want 3", len(posts))
	}
	if posts[0].ChannelTitle != "a" || posts[2].ChannelTitle != "c" {
		t.Errorf("results out of feed order: %q, %q", posts[0].ChannelTitle, posts[2].ChannelTitle)
	}
	if peak.Load() != 1 {
		t.Errorf("peak concurrent requests = %d, want 1", peak.Load())
	}

	delays := 0
	for _, d := range *sleeps {
		if d == rssHostDelay {
			delays++
		}
	}
	if delays != 2 {
		t.Errorf("host delays = %d, want 2", delays)
	}
}
