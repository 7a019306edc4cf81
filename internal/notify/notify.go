// Package notify delivers accepted job postings to a destination: a
// Telegram chat or a JSONL file.
package notify

import (
	"context"
	"fmt"

	"github.com/ppiankov/jobpan/internal/config"
	"github.com/ppiankov/jobpan/internal/jobfilter"
	"github.com/ppiankov/jobpan/internal/source"
)

// Job is an accepted posting ready for delivery.
type Job struct {
	Post   source.Post
	Result jobfilter.MatchResult
}

// Sink delivers jobs one at a time.
type Sink interface {
	Send(ctx context.Context, job Job) error
	Close() error
}

// New builds the sink selected by the output config. Method "none" returns
// a nil sink and no error.
func New(cfg config.OutputConfig) (Sink, error) {
	switch cfg.Method {
	case config.OutputTelegram:
		s, err := NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Delay.Duration)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.OutputFile:
		s, err := NewFile(cfg.File.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.OutputNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown output method %q", cfg.Method)
	}
}
