package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/jobpan/internal/config"
	"github.com/ppiankov/jobpan/internal/jobfilter"
	"github.com/ppiankov/jobpan/internal/source"
	"github.com/ppiankov/jobpan/internal/store"
)

var (
	classifyText    string
	classifyVariant string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Run stored unclassified posts through the filter",
	Long: "classify runs every stored post without a classification through the configured gate chain " +
		"and saves the result. With --text it classifies the given text instead and saves nothing.",
	RunE: classifyAction,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyText, "text", "", "classify this text instead of stored posts")
	classifyCmd.Flags().StringVar(&classifyVariant, "variant", "", "filter variant: basic, advanced, enhanced (overrides filter.variant)")
}

func classifyAction(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	f, err := buildFilter(cfg, classifyVariant)
	if err != nil {
		return err
	}

	if classifyText != "" {
		res := f.Classify(source.Post{Source: "text", Channel: "stdin", Text: classifyText})
		printResult(os.Stdout, res)
		return nil
	}

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx := cmd.Context()
	posts, err := db.GetUnclassified(ctx)
	if err != nil {
		return fmt.Errorf("get unclassified: %w", err)
	}

	accepted, err := classifyStored(ctx, db, f, posts, cfg.Filter.Workers)
	if err != nil {
		return err
	}

	fmt.Printf("Classified %d posts: %d accepted, %d rejected\n", len(posts), accepted, len(posts)-accepted)
	return nil
}

// buildFilter assembles the gate chain from the filter section and the
// optional criteria file. A non-empty variant overrides the config.
func buildFilter(cfg *config.Config, variant string) (*jobfilter.Filter, error) {
	var cf *config.CriteriaFile
	if cfg.Filter.Criteria != "" {
		var err error
		cf, err = config.LoadCriteria(cfg.Filter.Criteria)
		if err != nil {
			return nil, fmt.Errorf("load criteria: %w", err)
		}
	}

	if variant == "" {
		variant = cfg.Filter.Variant
	}
	v, err := jobfilter.ParseVariant(variant)
	if err != nil {
		return nil, err
	}

	f, err := jobfilter.New(jobfilter.CriteriaFromConfig(cfg.Filter, cf), v,
		jobfilter.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("build filter: %w", err)
	}
	return f, nil
}

// classifyStored classifies posts concurrently and saves every result.
// Returns the number of accepted posts.
func classifyStored(ctx context.Context, db *store.Store, f *jobfilter.Filter, posts []store.Post, workers int) (int, error) {
	srcPosts := make([]source.Post, len(posts))
	for i, p := range posts {
		srcPosts[i] = storePostToSourcePost(p)
	}

	results := f.ClassifyAll(srcPosts, workers)

	now := time.Now()
	accepted := 0
	for i, res := range results {
		if err := saveResult(ctx, db, posts[i].ID, res, now); err != nil {
			return accepted, err
		}
		if res.Accepted {
			accepted++
		}
	}
	return accepted, nil
}

func saveResult(ctx context.Context, db *store.Store, postID int64, res jobfilter.MatchResult, at time.Time) error {
	encoded, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result for post %d: %w", postID, err)
	}
	err = db.SaveMatch(ctx, store.Match{
		PostID:       postID,
		Accepted:     res.Accepted,
		Gate:         res.Gate,
		Reason:       res.Reason,
		Keywords:     res.Analysis.MatchedKeywords,
		Analysis:     encoded,
		ClassifiedAt: at,
	})
	if err != nil {
		return fmt.Errorf("save match for post %d: %w", postID, err)
	}
	return nil
}

// decodeResult rebuilds a MatchResult from a stored match. Matches saved
// without a result document keep only the decision.
func decodeResult(m *store.Match) jobfilter.MatchResult {
	res := jobfilter.MatchResult{
		Accepted: m.Accepted,
		Gate:     m.Gate,
		Reason:   m.Reason,
		Analysis: jobfilter.Analysis{MatchedKeywords: m.Keywords},
	}
	if len(m.Analysis) == 0 {
		return res
	}
	var stored jobfilter.MatchResult
	if err := json.Unmarshal(m.Analysis, &stored); err != nil {
		slog.Warn("stored result unreadable", "post_id", m.PostID, "error", err)
		return res
	}
	return stored
}

func storePostToSourcePost(p store.Post) source.Post {
	text := p.Text
	if text == "" {
		text = p.Snippet
	}
	return source.Post{
		Source:       p.Source,
		Channel:      p.Channel,
		ChannelTitle: p.ChannelTitle,
		ExternalID:   p.ExternalID,
		SenderID:     p.SenderID,
		Text:         text,
		URL:          p.URL,
		Views:        p.Views,
		Forwards:     p.Forwards,
		PostedAt:     p.PostedAt,
	}
}

// printResult writes the decision, the gate trace and the analysis.
func printResult(w io.Writer, res jobfilter.MatchResult) {
	if res.Accepted {
		fmt.Fprintln(w, "Decision: ACCEPTED")
	} else {
		fmt.Fprintf(w, "Decision: REJECTED by %s (%s)\n", res.Gate, res.Reason)
	}

	if len(res.Trace) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Gates:")
		for _, o := range res.Trace {
			mark := "FAIL"
			if o.Pass {
				mark = "PASS"
			}
			line := fmt.Sprintf("  [%s] %s", mark, o.Gate)
			if o.Reason != "" {
				line += ": " + o.Reason
			}
			fmt.Fprintln(w, line)
		}
	}

	a := res.Analysis
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Level:    %s\n", a.Level())
	fmt.Fprintf(w, "Remote:   %v\n", a.IsRemote)
	if len(a.MatchedKeywords) > 0 {
		fmt.Fprintf(w, "Keywords: %s\n", strings.Join(a.MatchedKeywords, ", "))
	}
	for _, s := range a.Salaries {
		fmt.Fprintf(w, "Salary:   %s  %q\n", s.Human(), s.RawText)
	}
	for _, e := range a.Exclusions {
		fmt.Fprintf(w, "Excluded: %s (%s)\n", e.Term, e.Category)
	}
}
