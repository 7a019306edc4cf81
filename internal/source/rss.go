package source

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

const (
	rssSourceName   = "rss"
	rssFetchTimeout = 30 * time.Second
	rssUserAgent    = "Mozilla/5.0 (compatible; jobpan/1.0; +https://github.com/ppiankov/jobpan)"
	rssMaxWorkers   = 10
	rssMaxAttempts  = 3
	rssHostDelay    = 3 * time.Second
)

var (
	htmlPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)
	spaceRunRe = regexp.MustCompile(`[ \t]{2,}`)
	blankRunRe = regexp.MustCompile(`\s*\n\s*\n\s*`)
)

// rssSleepFunc pauses between attempts and between feeds on one host.
// Tests replace it.
var rssSleepFunc = time.Sleep

// RSSSource fetches postings from RSS/Atom job feeds. Feeds on the same host
// are fetched one after another with a pause in between; hosts are fetched
// in parallel.
type RSSSource struct {
	feeds  []string
	client *http.Client
}

// NewRSS creates an RSS/Atom source. Blank entries are ignored; at least one
// http(s) feed URL is required.
func NewRSS(feeds []string) (*RSSSource, error) {
	var clean []string
	for _, f := range feeds {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		u, err := url.Parse(f)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("rss: invalid feed URL %q", f)
		}
		clean = append(clean, f)
	}
	if len(clean) == 0 {
		return nil, errors.New("rss: at least one feed URL is required")
	}

	return &RSSSource{
		feeds: clean,
		client: &http.Client{
			Timeout:   rssFetchTimeout,
			Transport: &rssTransport{base: http.DefaultTransport},
		},
	}, nil
}

func (rs *RSSSource) Name() string {
	return rssSourceName
}

// Fetch returns postings from every feed. A failing feed is logged and
// skipped; Fetch fails only when no feed could be read.
func (rs *RSSSource) Fetch(since time.Time) ([]Post, error) {
	results := rs.fetchAll(since)

	var (
		posts  []Post
		failed []error
	)
	for _, r := range results {
		if r.err != nil {
			slog.Warn("rss feed failed", "feed", r.feed, "error", r.err)
			failed = append(failed, r.err)
			continue
		}
		posts = append(posts, r.posts...)
	}

	if len(failed) == len(results) {
		return nil, fmt.Errorf("all %d feeds failed: %w", len(failed), errors.Join(failed...))
	}
	return posts, nil
}

type feedResult struct {
	feed  string
	posts []Post
	err   error
}

// fetchAll runs one worker per host group. Results keep the configured feed
// order.
func (rs *RSSSource) fetchAll(since time.Time) []feedResult {
	groups := groupByHost(rs.feeds)
	results := make([]feedResult, len(rs.feeds))
	jobs := make(chan []int)

	var wg sync.WaitGroup
	for range min(rssMaxWorkers, len(groups)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for group := range jobs {
				for n, i := range group {
					if n > 0 {
						rssSleepFunc(rssHostDelay)
					}
					posts, err := rs.fetchWithRetry(rs.feeds[i], since)
					results[i] = feedResult{feed: rs.feeds[i], posts: posts, err: err}
				}
			}
		}()
	}

	for _, g := range groups {
		jobs <- g
	}
	close(jobs)
	wg.Wait()

	return results
}

// groupByHost returns feed indexes grouped by URL host, in order of first
// appearance.
func groupByHost(feeds []string) [][]int {
	index := make(map[string]int)
	var groups [][]int
	for i, f := range feeds {
		host := f
		if u, err := url.Parse(f); err == nil && u.Host != "" {
			host = strings.ToLower(u.Host)
		}
		g, ok := index[host]
		if !ok {
			g = len(groups)
			index[host] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

// rssTransport injects a User-Agent header into every request.
type rssTransport struct {
	base http.RoundTripper
}

func (t *rssTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", rssUserAgent)
	return t.base.RoundTrip(req)
}

func (rs *RSSSource) fetchWithRetry(feedURL string, since time.Time) ([]Post, error) {
	var err error
	for attempt := range rssMaxAttempts {
		if attempt > 0 {
			rssSleepFunc(time.Second << (attempt - 1)) // 1s, 2s
		}

		var posts []Post
		posts, err = rs.fetchFeed(feedURL, since)
		if err == nil {
			return posts, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", rssMaxAttempts, err)
}

// isRetryable reports whether a fetch error is worth another attempt:
// server errors, rate limiting, timeouts and connection or DNS failures.
func isRetryable(err error) bool {
	var httpErr gofeed.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func (rs *RSSSource) fetchFeed(feedURL string, since time.Time) ([]Post, error) {
	ctx, cancel := context.WithTimeout(context.Background(), rssFetchTimeout)
	defer cancel()

	fp := gofeed.NewParser()
	fp.Client = rs.client
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feedURL, err)
	}

	return postsFromFeed(feed, feedURL, since), nil
}

// postsFromFeed converts feed items to posts. Items without a date are kept
// with a zero PostedAt; the recency gate decides what to do with them.
// Items without any identifier or text are dropped.
func postsFromFeed(feed *gofeed.Feed, feedURL string, since time.Time) []Post {
	label := feedLabel(feed, feedURL)

	var posts []Post
	for _, item := range feed.Items {
		postedAt := itemPublishedTime(item)
		if !postedAt.IsZero() && postedAt.Before(since) {
			continue
		}

		id := itemID(item)
		text := itemText(item)
		if id == "" || text == "" {
			continue
		}

		posts = append(posts, Post{
			Source:       rssSourceName,
			Channel:      feedURL,
			ChannelTitle: label,
			ExternalID:   id,
			SenderID:     itemAuthor(item),
			Text:         text,
			URL:          item.Link,
			PostedAt:     postedAt,
		})
	}
	return posts
}

func itemPublishedTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

func feedLabel(feed *gofeed.Feed, feedURL string) string {
	if t := strings.TrimSpace(feed.Title); t != "" {
		return t
	}
	return feedURL
}

func itemID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil {
		return item.Author.Name
	}
	return ""
}

// itemText joins the title, the plain-text body and the item categories.
// Job boards often put "remote" or the level only in categories.
func itemText(item *gofeed.Item) string {
	raw := item.Content
	if raw == "" {
		raw = item.Description
	}
	body := stripHTML(raw)
	title := strings.TrimSpace(html.UnescapeString(item.Title))

	var parts []string
	if title != "" && !strings.Contains(body, title) {
		parts = append(parts, title)
	}
	if body != "" {
		parts = append(parts, body)
	}
	if len(item.Categories) > 0 {
		parts = append(parts, "Tags: "+strings.Join(item.Categories, ", "))
	}
	return strings.Join(parts, "\n\n")
}

// stripHTML reduces feed markup to plain text. Tags become spaces and the
// contents of script and style elements are dropped.
func stripHTML(s string) string {
	s = html.UnescapeString(htmlPolicy.Sanitize(s))
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
