package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/jobpan/internal/salary"
)

// FileSink appends one JSON object per job to a file.
type FileSink struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

type fileRecord struct {
	Source       string         `json:"source"`
	Channel      string         `json:"channel"`
	ChannelTitle string         `json:"channel_title,omitempty"`
	ExternalID   string         `json:"external_id"`
	Link         string         `json:"link,omitempty"`
	PostedAt     string         `json:"posted_at,omitempty"`
	Text         string         `json:"text"`
	Level        string         `json:"level"`
	Remote       bool           `json:"remote"`
	Keywords     []string       `json:"keywords,omitempty"`
	Salaries     []salary.Range `json:"salaries,omitempty"`
	Views        int            `json:"views,omitempty"`
	DeliveredAt  string         `json:"delivered_at"`
}

// NewFile opens path for appending, creating parent directories.
func NewFile(path string) (*FileSink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("file output: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	return &FileSink{f: f, enc: json.NewEncoder(f)}, nil
}

// Send appends the job as a single JSON line.
func (s *FileSink) Send(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a := job.Result.Analysis
	rec := fileRecord{
		Source:       job.Post.Source,
		Channel:      job.Post.Channel,
		ChannelTitle: job.Post.ChannelTitle,
		ExternalID:   job.Post.ExternalID,
		Link:         job.Post.Link(),
		Text:         job.Post.Text,
		Level:        a.Level(),
		Remote:       a.IsRemote,
		Keywords:     a.MatchedKeywords,
		Salaries:     a.Salaries,
		Views:        job.Post.Views,
		DeliveredAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if !job.Post.PostedAt.IsZero() {
		rec.PostedAt = job.Post.PostedAt.UTC().Format(time.RFC3339)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(rec); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
