package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/jobpan/internal/digest"
	"github.com/ppiankov/jobpan/internal/jobfilter"
	"github.com/ppiankov/jobpan/internal/store"
	"github.com/ppiankov/jobpan/internal/summarize"
)

var (
	digestSince    string
	digestFormat   string
	digestSource   string
	digestChannel  string
	digestAccepted bool
	noColor        bool
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Classify, summarize, and display posts",
	RunE:  digestAction,
}

func init() {
	digestCmd.Flags().StringVar(&digestSince, "since", "", "time window (e.g. 48h, 7d)")
	digestCmd.Flags().StringVar(&digestFormat, "format", "", "output format: terminal, json, markdown (overrides digest.format)")
	digestCmd.Flags().StringVar(&digestSource, "source", "", "only posts from this source (telegram, rss)")
	digestCmd.Flags().StringVar(&digestChannel, "channel", "", "only posts from this channel")
	digestCmd.Flags().BoolVar(&digestAccepted, "accepted", false, "leave rejected posts out of the report")
	digestCmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI colors")
}

func digestAction(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	sinceDur := cfg.Digest.Since.Duration
	if digestSince != "" {
		sinceDur, err = parseDuration(digestSince)
		if err != nil {
			return fmt.Errorf("parse --since: %w", err)
		}
	}
	sinceTime := time.Now().Add(-sinceDur)

	ctx := cmd.Context()
	filter := store.PostFilter{Source: digestSource, Channel: digestChannel}

	// Classify anything pulled since the last classify run first.
	unclassified, err := db.GetMatches(ctx, sinceTime, store.StatusUnclassified, filter)
	if err != nil {
		return fmt.Errorf("get unclassified: %w", err)
	}
	if len(unclassified) > 0 {
		f, err := buildFilter(cfg, "")
		if err != nil {
			return err
		}
		posts := make([]store.Post, len(unclassified))
		for i, pwm := range unclassified {
			posts[i] = pwm.Post
		}
		if _, err := classifyStored(ctx, db, f, posts, cfg.Filter.Workers); err != nil {
			return err
		}
	}

	status := store.StatusAny
	if digestAccepted {
		status = store.StatusAccepted
	}
	posts, err := db.GetMatches(ctx, sinceTime, status, filter)
	if err != nil {
		return fmt.Errorf("get matches: %w", err)
	}

	summarizer := &summarize.HeuristicSummarizer{}
	channels := make(map[string]bool)
	items := make([]digest.DigestItem, 0, len(posts))
	classified := make([]jobfilter.Classified, 0, len(posts))
	postIDs := make([]int64, 0, len(posts))

	for _, pwm := range posts {
		if pwm.Match == nil {
			continue
		}
		channels[pwm.Post.Channel] = true

		post := storePostToSourcePost(pwm.Post)
		res := decodeResult(pwm.Match)

		items = append(items, digest.DigestItem{
			Post:    post,
			Result:  res,
			Summary: summarizer.Summarize(post.Text),
		})
		classified = append(classified, jobfilter.Classified{Post: post, Result: res})
		postIDs = append(postIDs, pwm.Post.ID)
	}

	alsoInMap, err := db.GetAlsoIn(ctx, postIDs)
	if err != nil {
		return fmt.Errorf("get also_in: %w", err)
	}
	for i, id := range postIDs {
		if chans, ok := alsoInMap[id]; ok {
			items[i].AlsoIn = chans
		}
	}

	input := digest.DigestInput{
		Items:       items,
		Channels:    len(channels),
		TotalPosts:  len(items),
		Since:       sinceDur,
		TopN:        cfg.Digest.TopN,
		Trending:    jobfilter.FindTrending(classified, cfg.Digest.TrendingMin),
		TrendingMin: cfg.Digest.TrendingMin,
	}

	format := cfg.Digest.Format
	if digestFormat != "" {
		format = digestFormat
	}

	var formatter digest.Formatter
	switch format {
	case "json":
		formatter = digest.NewJSON()
	case "markdown", "md":
		formatter = digest.NewMarkdown()
	case "terminal", "":
		formatter = digest.NewTerminal(!noColor)
	default:
		return fmt.Errorf("unknown format %q (want terminal, json, or markdown)", format)
	}
	return formatter.Format(os.Stdout, input)
}
