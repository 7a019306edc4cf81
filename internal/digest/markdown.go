package digest

import (
	"fmt"
	"io"
	"strings"
)

// MarkdownFormatter formats a digest as Markdown.
type MarkdownFormatter struct{}

// NewMarkdown creates a Markdown formatter.
func NewMarkdown() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format writes the digest as Markdown to w.
func (f *MarkdownFormatter) Format(w io.Writer, input DigestInput) error {
	accepted, hidden, rejected := splitResults(input.Items, input.TopN)

	fmt.Fprintf(w, "# jobpan digest\n\n")
	fmt.Fprintf(w, "%d channels, %d posts, since %s\n\n", input.Channels, input.TotalPosts, formatDuration(input.Since))

	if len(input.Items) == 0 {
		fmt.Fprintln(w, "No posts found.")
		return nil
	}

	if len(input.Trending) > 0 {
		fmt.Fprintf(w, "## Trending (in %d+ channels)\n\n", input.TrendingMin)
		for _, tr := range input.Trending {
			fmt.Fprintf(w, "- **%q** — in %d channels: %s\n",
				tr.Keyword, len(tr.Channels), strings.Join(tr.Channels, ", "))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "## Accepted (%d)\n\n", len(accepted)+hidden)
	for _, item := range accepted {
		f.writeItem(w, item)
	}
	if hidden > 0 {
		fmt.Fprintf(w, "_... and %d more_\n\n", hidden)
	}

	if len(rejected) > 0 {
		fmt.Fprintf(w, "## Rejected (%d)\n\n", totalRejected(rejected))
		fmt.Fprintln(w, "| Gate | Posts |")
		fmt.Fprintln(w, "|---|---|")
		for _, gc := range rejected {
			fmt.Fprintf(w, "| %s | %d |\n", gc.Gate, gc.Count)
		}
		fmt.Fprintln(w)
	}

	return nil
}

func (f *MarkdownFormatter) writeItem(w io.Writer, item DigestItem) {
	fmt.Fprintf(w, "### %s — %s\n\n", item.Post.Title(), item.Summary.Title)

	parts := make([]string, 0, 3)
	for _, t := range tags(item) {
		parts = append(parts, "`"+t+"`")
	}
	fmt.Fprintf(w, "%s\n\n", strings.Join(parts, " "))

	if len(item.Summary.Stack) > 0 {
		fmt.Fprintf(w, "- Stack: %s\n", strings.Join(item.Summary.Stack, ", "))
	}
	if kw := item.Result.Analysis.MatchedKeywords; len(kw) > 0 {
		fmt.Fprintf(w, "- Keywords: %s\n", strings.Join(kw, ", "))
	}
	if len(item.AlsoIn) > 0 {
		fmt.Fprintf(w, "- Also in: %s\n", strings.Join(item.AlsoIn, ", "))
	}
	if len(item.Summary.Stack) > 0 || len(item.Result.Analysis.MatchedKeywords) > 0 || len(item.AlsoIn) > 0 {
		fmt.Fprintln(w)
	}

	if link := item.Post.Link(); link != "" {
		fmt.Fprintf(w, "[Link](%s)\n\n", link)
	}
}
