package source

import (
	"strings"
	"time"
)

// Post is a single message fetched from a channel or feed. Classification
// only reads it.
type Post struct {
	Source       string    // source identifier: "telegram", "rss"
	Channel      string    // channel username or feed URL
	ChannelTitle string    // human-readable channel/feed title
	ExternalID   string    // source-specific unique ID
	SenderID     string    // author id when the source exposes one
	Text         string    // full message text, may be empty
	URL          string    // link to the original item
	Views        int       // view counter (telegram)
	Forwards     int       // forward counter (telegram)
	PostedAt     time.Time // publication timestamp; zero when unknown
}

// Title returns the channel title, falling back to the channel name.
func (p Post) Title() string {
	if p.ChannelTitle != "" {
		return p.ChannelTitle
	}
	return p.Channel
}

// Link returns a URL pointing at the original message. Telegram posts
// without a URL get a t.me link built from the channel and message id;
// private channel ids lose their "-100" prefix.
func (p Post) Link() string {
	if p.URL != "" {
		return p.URL
	}
	if p.Source != sourceName || p.Channel == "" || p.ExternalID == "" {
		return ""
	}
	ch := strings.TrimPrefix(p.Channel, "@")
	if id, ok := strings.CutPrefix(ch, "-100"); ok {
		return "https://t.me/c/" + id + "/" + p.ExternalID
	}
	return "https://t.me/" + ch + "/" + p.ExternalID
}

// Source fetches posts from a stream of job postings.
type Source interface {
	// Name returns the source identifier (e.g. "telegram").
	Name() string

	// Fetch returns posts published after the given time.
	Fetch(since time.Time) ([]Post, error)
}
