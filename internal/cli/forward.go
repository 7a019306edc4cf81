package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/jobpan/internal/config"
	"github.com/ppiankov/jobpan/internal/notify"
	"github.com/ppiankov/jobpan/internal/seen"
	"github.com/ppiankov/jobpan/internal/store"
)

var forwardDryRun bool

var forwardCmd = &cobra.Command{
	Use:   "forward",
	Short: "Deliver accepted postings that were not forwarded yet",
	RunE:  forwardAction,
}

func init() {
	forwardCmd.Flags().BoolVar(&forwardDryRun, "dry-run", false, "print messages instead of sending them")
}

func forwardAction(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var sink notify.Sink
	if !forwardDryRun {
		sink, err = notify.New(cfg.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		if sink == nil {
			fmt.Println("Output method is none; nothing to forward.")
			return nil
		}
		defer func() { _ = sink.Close() }()
	}

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx := cmd.Context()

	tracker, err := openTracker(ctx, cfg.Dedup.Redis)
	if err != nil {
		fmt.Printf("warning: dedup disabled: %v\n", err)
	}
	defer func() { _ = tracker.Close() }()

	loc, err := time.LoadLocation(cfg.Digest.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	pending, err := db.GetUndelivered(ctx)
	if err != nil {
		return fmt.Errorf("get undelivered: %w", err)
	}

	sent, skipped, failed := 0, 0, 0
	for _, pwm := range pending {
		post := storePostToSourcePost(pwm.Post)
		if !post.PostedAt.IsZero() {
			post.PostedAt = post.PostedAt.In(loc)
		}
		job := notify.Job{Post: post, Result: decodeResult(pwm.Match)}

		if forwardDryRun {
			fmt.Fprintln(os.Stdout, notify.FormatMessage(job))
			fmt.Fprintln(os.Stdout)
			sent++
			continue
		}

		dup, err := tracker.IsSeen(ctx, post.Text)
		if err != nil {
			slog.Warn("dedup check failed", "post_id", pwm.Post.ID, "error", err)
		}
		if dup {
			skipped++
		} else {
			if err := sink.Send(ctx, job); err != nil {
				fmt.Printf("warning: post %d: %v\n", pwm.Post.ID, err)
				failed++
				if ctx.Err() != nil {
					break
				}
				continue
			}
			if err := tracker.MarkSeen(ctx, post.Text); err != nil {
				slog.Warn("dedup mark failed", "post_id", pwm.Post.ID, "error", err)
			}
			sent++
		}

		if err := db.MarkDelivered(ctx, pwm.Post.ID, time.Now()); err != nil {
			return fmt.Errorf("mark delivered: %w", err)
		}
	}

	if forwardDryRun {
		fmt.Printf("Would forward %d postings\n", sent)
		return nil
	}

	fmt.Printf("Forwarded %d postings", sent)
	if skipped > 0 {
		fmt.Printf(" (%d already seen)", skipped)
	}
	if failed > 0 {
		fmt.Printf(" (%d failed)", failed)
	}
	fmt.Println()
	return nil
}

// openTracker connects to Redis when dedup is configured. It returns a nil
// tracker, which sees nothing, when dedup is off or unreachable.
func openTracker(ctx context.Context, rc config.RedisConfig) (*seen.Tracker, error) {
	if rc.Addr == "" {
		return nil, nil
	}
	return seen.Open(ctx, seen.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
		Prefix:   rc.Prefix,
		TTL:      rc.TTL.Duration,
	})
}
