package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/jobpan/internal/store"
)

var (
	reclassifySince   string
	reclassifyVariant string
	reclassifyReset   bool
)

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify",
	Short: "Classify stored posts again with current criteria",
	Long: "reclassify recomputes the classification of every post in the window. Delivery history is kept, " +
		"so postings already forwarded are not sent again. --reset drops all stored classifications first, " +
		"delivery history included.",
	RunE: reclassifyAction,
}

func init() {
	reclassifyCmd.Flags().StringVar(&reclassifySince, "since", "", "time window (e.g. 7d, 48h)")
	reclassifyCmd.Flags().StringVar(&reclassifyVariant, "variant", "", "filter variant (overrides filter.variant)")
	reclassifyCmd.Flags().BoolVar(&reclassifyReset, "reset", false, "delete every stored classification first")
	rootCmd.AddCommand(reclassifyCmd)
}

func reclassifyAction(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Build the filter first so a bad criteria file leaves stored results alone.
	f, err := buildFilter(cfg, reclassifyVariant)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx := cmd.Context()

	if reclassifyReset {
		deleted, err := db.DeleteAllMatches(ctx)
		if err != nil {
			return fmt.Errorf("delete matches: %w", err)
		}
		fmt.Printf("Deleted %d existing classifications\n", deleted)
	}

	sinceDur := cfg.Digest.Since.Duration
	if reclassifySince != "" {
		sinceDur, err = parseDuration(reclassifySince)
		if err != nil {
			return fmt.Errorf("parse --since: %w", err)
		}
	}
	sinceTime := time.Now().Add(-sinceDur)

	pending, err := db.GetMatches(ctx, sinceTime, store.StatusAny)
	if err != nil {
		return fmt.Errorf("get posts: %w", err)
	}
	posts := make([]store.Post, len(pending))
	for i, pwm := range pending {
		posts[i] = pwm.Post
	}

	accepted, err := classifyStored(ctx, db, f, posts, cfg.Filter.Workers)
	if err != nil {
		return err
	}

	fmt.Printf("Reclassified %d posts: %d accepted, %d rejected\n",
		len(posts), accepted, len(posts)-accepted)
	return nil
}
