package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/jobpan/internal/config"
	"github.com/ppiankov/jobpan/internal/privacy"
	"github.com/ppiankov/jobpan/internal/source"
	"github.com/ppiankov/jobpan/internal/store"
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fetch posts from all configured sources",
	RunE:  pullAction,
}

func pullAction(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	since := time.Now().Add(-cfg.Digest.Since.Duration)
	ctx := cmd.Context()

	sources, err := buildSources(cfg)
	if err != nil {
		return err
	}

	var redactor *privacy.Redactor
	if cfg.Privacy.Redact.Enabled {
		redactor, err = privacy.NewRedactor(cfg.Privacy.Redact.Patterns)
		if err != nil {
			return fmt.Errorf("compile redact patterns: %w", err)
		}
	}

	totalInserted, redacted := 0, 0
	channels := make(map[string]bool)

	for _, src := range sources {
		posts, err := src.Fetch(since)
		if err != nil {
			fmt.Printf("warning: %s: %v\n", src.Name(), err)
			continue
		}
		slog.Debug("fetched posts", "source", src.Name(), "count", len(posts))

		now := time.Now()
		for _, p := range posts {
			channels[p.Channel] = true

			// Redact before the snippet is cut so nothing leaks into it.
			text, n := redactor.Redact(p.Text)
			redacted += n

			snippet := ""
			storeText := text
			if !cfg.Privacy.StoreFullText {
				snippet = firstNRunes(text, 200)
				storeText = ""
			}

			_, err := db.InsertPost(ctx, store.PostInput{
				Source:       p.Source,
				Channel:      p.Channel,
				ChannelTitle: p.ChannelTitle,
				ExternalID:   p.ExternalID,
				SenderID:     p.SenderID,
				Text:         storeText,
				Snippet:      snippet,
				URL:          p.URL,
				Views:        p.Views,
				Forwards:     p.Forwards,
				PostedAt:     p.PostedAt,
				FetchedAt:    now,
			})
			if err != nil {
				return fmt.Errorf("insert post: %w", err)
			}
			totalInserted++
		}
	}

	dupes, err := db.Deduplicate(ctx)
	if err != nil {
		return fmt.Errorf("deduplicate: %w", err)
	}

	pruned, err := db.PruneOld(ctx, cfg.Storage.RetainDays)
	if err != nil {
		return fmt.Errorf("prune old: %w", err)
	}

	fmt.Printf("Pulled %d posts from %d channels", totalInserted, len(channels))
	if dupes > 0 {
		fmt.Printf(" (%d duplicates removed)", dupes)
	}
	if pruned > 0 {
		fmt.Printf(" (%d old posts pruned)", pruned)
	}
	if redacted > 0 {
		fmt.Printf(" (%d contact details redacted)", redacted)
	}
	fmt.Println()

	return nil
}

func buildSources(cfg *config.Config) ([]source.Source, error) {
	var sources []source.Source

	if len(cfg.Sources.Telegram.Channels) > 0 {
		scriptPath := cfg.Sources.Telegram.Script
		if scriptPath == "" {
			scriptPath = filepath.Join(configDir, "..", "scripts", "collector_telegram.py")
		}
		tc := cfg.Sources.Telegram
		tg, err := source.NewTelegram(source.TelegramOptions{
			Script:     scriptPath,
			Python:     tc.PythonPath,
			APIID:      tc.APIID,
			APIHash:    tc.APIHash,
			SessionDir: tc.SessionDir,
			Channels:   tc.Channels,
			Limit:      tc.Limit,
		})
		if err != nil {
			return nil, fmt.Errorf("create telegram source: %w", err)
		}
		sources = append(sources, tg)
	}

	if len(cfg.Sources.RSS.Feeds) > 0 {
		rs, err := source.NewRSS(cfg.Sources.RSS.Feeds)
		if err != nil {
			return nil, fmt.Errorf("create rss source: %w", err)
		}
		sources = append(sources, rs)
	}

	return sources, nil
}

func firstNRunes(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
