package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/jobpan/internal/jobfilter"
	"github.com/ppiankov/jobpan/internal/store"
)

var explainCmd = &cobra.Command{
	Use:   "explain <post-id>",
	Short: "Show the gate trace for a post",
	Args:  cobra.ExactArgs(1),
	RunE:  explainAction,
}

func explainAction(cmd *cobra.Command, args []string) error {
	postID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid post ID: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	found, err := db.GetPost(cmd.Context(), postID)
	if err != nil {
		return err
	}

	p := found.Post
	post := storePostToSourcePost(p)
	fmt.Printf("Post #%d\n", p.ID)
	fmt.Printf("  Source:  %s/%s\n", p.Source, p.Channel)
	if p.ChannelTitle != "" {
		fmt.Printf("  Title:   %s\n", p.ChannelTitle)
	}
	fmt.Printf("  Snippet: %s\n", p.Snippet)
	if link := post.Link(); link != "" {
		fmt.Printf("  Link:    %s\n", link)
	}
	fmt.Println()

	// Use the stored result if available, otherwise classify live.
	var res jobfilter.MatchResult
	if found.Match != nil {
		fmt.Printf("Classified at %s\n", found.Match.ClassifiedAt.Format("2006-01-02 15:04"))
		if !found.Match.DeliveredAt.IsZero() {
			fmt.Printf("Delivered at %s\n", found.Match.DeliveredAt.Format("2006-01-02 15:04"))
		}
		res = decodeResult(found.Match)
		printResult(os.Stdout, res)
		if res.Accepted {
			return nil
		}
	}

	f, err := buildFilter(cfg, "")
	if err != nil {
		return err
	}
	if found.Match == nil {
		fmt.Println("Not classified yet (result not saved)")
		res = f.Classify(post)
		printResult(os.Stdout, res)
	}
	if !res.Accepted {
		printFullAnalysis(os.Stdout, f, post.Text)
	}
	return nil
}

// printFullAnalysis runs every check on text, including those behind the
// gate that rejected it.
func printFullAnalysis(w io.Writer, f *jobfilter.Filter, text string) {
	a := f.AnalyzeJob(text)
	exp := f.ExperienceInfo(text)
	pay := f.SalaryInfo(text)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Full analysis:")
	if kw := f.MatchedKeywords(text); len(kw) > 0 {
		fmt.Fprintf(w, "  keywords:   %s\n", strings.Join(kw, ", "))
	} else {
		fmt.Fprintln(w, "  keywords:   none matched")
	}
	fmt.Fprintf(w, "  level:      %s\n", a.Level())
	fmt.Fprintf(w, "  remote:     %v\n", exp.IsRemote)
	fmt.Fprintf(w, "  entry level and remote: %v\n", exp.MeetsRequirements)
	if pay.Primary != nil {
		fmt.Fprintf(w, "  salary:     %s (%d found)\n", pay.Primary.Human(), len(pay.Salaries))
	} else {
		fmt.Fprintln(w, "  salary:     none found")
	}
	if len(a.Exclusions) == 0 {
		fmt.Fprintln(w, "  exclusions: none")
		return
	}
	fmt.Fprintln(w, "  exclusions:")
	for _, e := range a.Exclusions {
		fmt.Fprintf(w, "    - %s: %s\n", e.Category, e.Term)
	}
}
