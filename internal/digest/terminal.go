package digest

import (
	"fmt"
	"io"
	"strings"
)

// TerminalFormatter formats a digest for terminal output.
type TerminalFormatter struct {
	color bool
}

// NewTerminal creates a terminal formatter. Set color=true for ANSI colors.
func NewTerminal(color bool) *TerminalFormatter {
	return &TerminalFormatter{color: color}
}

// Format writes accepted postings followed by a per-gate rejection summary.
func (f *TerminalFormatter) Format(w io.Writer, input DigestInput) error {
	accepted, hidden, rejected := splitResults(input.Items, input.TopN)

	// Header
	header := fmt.Sprintf("jobpan — %d channels, %d posts, since %s",
		input.Channels, input.TotalPosts, formatDuration(input.Since))
	fmt.Fprintln(w, f.bold(header))
	fmt.Fprintln(w)

	if len(input.Items) == 0 {
		fmt.Fprintln(w, "No posts found.")
		return nil
	}

	if len(input.Trending) > 0 {
		fmt.Fprintln(w, f.bold(fmt.Sprintf("--- Trending (in %d+ channels) ---", input.TrendingMin)))
		fmt.Fprintln(w)
		for _, tr := range input.Trending {
			fmt.Fprintf(w, "  %s — in %d channels\n",
				f.bold(fmt.Sprintf("%q", tr.Keyword)), len(tr.Channels))
			fmt.Fprintf(w, "    %s\n", f.dim(strings.Join(tr.Channels, ", ")))
		}
		fmt.Fprintln(w)
	}

	if len(accepted) > 0 {
		fmt.Fprintln(w, f.green(f.bold(fmt.Sprintf("--- Accepted (%d) ---", len(accepted)+hidden))))
		fmt.Fprintln(w)
		for _, item := range accepted {
			f.writeItem(w, item)
		}
		if hidden > 0 {
			fmt.Fprintln(w, f.dim(fmt.Sprintf("  ... and %d more", hidden)))
			fmt.Fprintln(w)
		}
	} else {
		fmt.Fprintln(w, "No postings matched.")
		fmt.Fprintln(w)
	}

	// Footer
	if len(rejected) > 0 {
		parts := make([]string, len(rejected))
		for i, gc := range rejected {
			parts[i] = fmt.Sprintf("%s %d", gc.Gate, gc.Count)
		}
		fmt.Fprintln(w, f.dim(fmt.Sprintf("Rejected: %d posts (%s)", totalRejected(rejected), strings.Join(parts, ", "))))
	}

	return nil
}

func (f *TerminalFormatter) writeItem(w io.Writer, item DigestItem) {
	fmt.Fprintf(w, "  %s %s — %s\n",
		f.yellow("["+strings.Join(tags(item), " · ")+"]"),
		item.Post.Title(),
		item.Summary.Title,
	)

	if len(item.Summary.Stack) > 0 {
		fmt.Fprintf(w, "      %s\n", f.dim("stack: "+strings.Join(item.Summary.Stack, ", ")))
	}
	if kw := item.Result.Analysis.MatchedKeywords; len(kw) > 0 {
		fmt.Fprintf(w, "      %s\n", f.dim("keywords: "+strings.Join(kw, ", ")))
	}
	if link := item.Post.Link(); link != "" {
		fmt.Fprintf(w, "      %s\n", f.dim(link))
	}
	if len(item.AlsoIn) > 0 {
		fmt.Fprintf(w, "      %s\n", f.dim("also in: "+strings.Join(item.AlsoIn, ", ")))
	}
	fmt.Fprintln(w)
}

// ANSI helpers — no-op when color=false.

func (f *TerminalFormatter) bold(s string) string {
	if !f.color {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

func (f *TerminalFormatter) green(s string) string {
	if !f.color {
		return s
	}
	return "\033[32m" + s + "\033[0m"
}

func (f *TerminalFormatter) yellow(s string) string {
	if !f.color {
		return s
	}
	return "\033[33m" + s + "\033[0m"
}

func (f *TerminalFormatter) dim(s string) string {
	if !f.color {
		return s
	}
	return "\033[2m" + s + "\033[0m"
}
