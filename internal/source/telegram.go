package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	sourceName       = "telegram"
	collectorTimeout = 2 * time.Minute
	maxRecordSize    = 1 << 20
	defaultPython    = "python3"
	defaultLimit     = 100
)

// TelegramOptions configures the collector invocation.
type TelegramOptions struct {
	Script     string // path to the Telethon collector script
	Python     string // interpreter, python3 when empty
	APIID      string
	APIHash    string
	SessionDir string
	Channels   []string // @usernames, t.me links or numeric ids
	Limit      int      // newest messages per channel, 100 when zero
}

// TelegramSource reads channel history through an external collector. The
// collector prints one JSON record per message, or a record with an "error"
// field when a single channel could not be read.
type TelegramSource struct {
	opts TelegramOptions
}

func NewTelegram(opts TelegramOptions) (*TelegramSource, error) {
	if strings.TrimSpace(opts.Script) == "" {
		return nil, errors.New("telegram: script path is required")
	}

	seen := make(map[string]bool)
	var channels []string
	for _, c := range opts.Channels {
		name := NormalizeChannel(c)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		channels = append(channels, name)
	}
	if len(channels) == 0 {
		return nil, errors.New("telegram: at least one channel is required")
	}
	opts.Channels = channels

	if strings.TrimSpace(opts.Python) == "" {
		opts.Python = defaultPython
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}

	return &TelegramSource{opts: opts}, nil
}

func (ts *TelegramSource) Name() string {
	return sourceName
}

// Channels returns the normalized, deduplicated channel list.
func (ts *TelegramSource) Channels() []string {
	return ts.opts.Channels
}

// NormalizeChannel turns "name", "@name" and t.me links into "@name".
// Numeric chat ids are returned unchanged.
func NormalizeChannel(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"https://", "http://"} {
		s = strings.TrimPrefix(s, prefix)
	}
	for _, host := range []string{"t.me/s/", "t.me/", "telegram.me/"} {
		if rest, ok := strings.CutPrefix(s, host); ok {
			s, _, _ = strings.Cut(rest, "/")
			break
		}
	}
	s = strings.TrimPrefix(s, "@")
	if s == "" {
		return ""
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return s
	}
	return "@" + s
}

func (ts *TelegramSource) args(since time.Time) []string {
	return []string{
		ts.opts.Script,
		"--api-id", ts.opts.APIID,
		"--api-hash", ts.opts.APIHash,
		"--session-dir", ts.opts.SessionDir,
		"--channels", strings.Join(ts.opts.Channels, ","),
		"--since", since.UTC().Format(time.RFC3339),
		"--limit", strconv.Itoa(ts.opts.Limit),
	}
}

// Fetch runs the collector and returns the messages it printed. Channels the
// collector reported as failed are logged and skipped.
func (ts *TelegramSource) Fetch(since time.Time) ([]Post, error) {
	ctx, cancel := context.WithTimeout(context.Background(), collectorTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, ts.opts.Python, ts.args(since)...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("telegram: stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("telegram: %s not found: install Python 3 and Telethon to use the telegram source", ts.opts.Python)
		}
		return nil, fmt.Errorf("telegram: start collector: %w", err)
	}

	batch, readErr := readCollector(out)
	// drain so the collector never blocks on a full pipe
	_, _ = io.Copy(io.Discard, out)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("telegram: collector timed out after %s", collectorTimeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("telegram: collector failed: %s", msg)
		}
		return nil, fmt.Errorf("telegram: collector failed: %w", err)
	}
	if readErr != nil {
		return nil, fmt.Errorf("telegram: parse output: %w", readErr)
	}

	for _, f := range batch.failed {
		slog.Warn("telegram channel failed", "channel", f.channel, "error", f.reason)
	}
	if batch.skipped > 0 {
		slog.Debug("telegram messages without text skipped", "count", batch.skipped)
	}
	if len(batch.posts) == 0 && len(batch.failed) >= len(ts.opts.Channels) {
		return nil, fmt.Errorf("telegram: all %d channels failed", len(batch.failed))
	}

	return batch.posts, nil
}

// collectorRecord is one line of collector output.
type collectorRecord struct {
	Channel      string      `json:"channel"`
	ChannelTitle string      `json:"channel_title,omitempty"`
	MsgID        json.Number `json:"msg_id"`
	Date         string      `json:"date"`
	Text         string      `json:"text"`
	URL          string      `json:"url,omitempty"`
	SenderID     json.Number `json:"sender_id,omitempty"`
	Views        int         `json:"views,omitempty"`
	Forwards     int         `json:"forwards,omitempty"`
	Error        string      `json:"error,omitempty"`
}

type channelFailure struct {
	channel string
	reason  string
}

type collectorBatch struct {
	posts   []Post
	failed  []channelFailure
	skipped int // media-only or service messages
}

// readCollector decodes collector records. An empty date leaves PostedAt
// zero.
func readCollector(r io.Reader) (collectorBatch, error) {
	var batch collectorBatch

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	for n := 1; sc.Scan(); n++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec collectorRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return batch, fmt.Errorf("line %d: invalid json: %w", n, err)
		}
		if rec.Error != "" {
			batch.failed = append(batch.failed, channelFailure{channel: rec.Channel, reason: rec.Error})
			continue
		}
		if strings.TrimSpace(rec.Text) == "" {
			batch.skipped++
			continue
		}
		if rec.MsgID == "" {
			return batch, fmt.Errorf("line %d: missing msg_id", n)
		}

		post, err := rec.post()
		if err != nil {
			return batch, fmt.Errorf("line %d: %w", n, err)
		}
		batch.posts = append(batch.posts, post)
	}
	if err := sc.Err(); err != nil {
		return batch, fmt.Errorf("read collector output: %w", err)
	}
	return batch, nil
}

func (rec collectorRecord) post() (Post, error) {
	var postedAt time.Time
	if rec.Date != "" {
		t, err := time.Parse(time.RFC3339, rec.Date)
		if err != nil {
			return Post{}, fmt.Errorf("invalid date %q: %w", rec.Date, err)
		}
		postedAt = t
	}

	return Post{
		Source:       sourceName,
		Channel:      NormalizeChannel(rec.Channel),
		ChannelTitle: rec.ChannelTitle,
		ExternalID:   rec.MsgID.String(),
		SenderID:     rec.SenderID.String(),
		Text:         rec.Text,
		URL:          rec.URL,
		Views:        rec.Views,
		Forwards:     rec.Forwards,
		PostedAt:     postedAt,
	}, nil
}
