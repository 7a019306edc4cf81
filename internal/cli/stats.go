package cli

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ppiankov/jobpan/internal/store"
)

var (
	statsSince  string
	statsFormat string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-channel acceptance and the gates that reject postings",
	RunE:  statsAction,
}

func init() {
	statsCmd.Flags().StringVar(&statsSince, "since", "30d", "time window (e.g. 2w, 7d, 48h)")
	statsCmd.Flags().StringVar(&statsFormat, "format", "terminal", "output format: terminal, json")
	rootCmd.AddCommand(statsCmd)
}

const (
	quietDays   = 7
	matureDays  = 30 // acceptance rates from younger channels are marked
	maxNameCols = 40
)

func statsAction(cmd *cobra.Command, _ []string) error {
	if statsFormat != "terminal" && statsFormat != "json" {
		return fmt.Errorf("unknown format %q (want terminal or json)", statsFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	window, err := parseDuration(statsSince)
	if err != nil {
		return fmt.Errorf("parse --since: %w", err)
	}

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx := cmd.Context()
	since := time.Now().Add(-window)
	channels, err := db.GetChannelStats(ctx, since)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}
	rejections, err := db.GetRejectionsByGate(ctx, since)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	report := buildStatsReport(channels, rejections, window, time.Now())
	if statsFormat == "json" {
		return report.writeJSON(os.Stdout)
	}
	if len(report.Channels) == 0 {
		fmt.Println("No posts found. Run 'jobpan pull' first.")
		return nil
	}
	report.writeTerminal(os.Stdout)
	return nil
}

type statsReport struct {
	Since    string          `json:"since"`
	Channels []channelReport `json:"channels"`
	Totals   statsTotals     `json:"totals"`
	Gates    []gateCount     `json:"rejections_by_gate"`
}

type channelReport struct {
	Source     string    `json:"source"`
	Channel    string    `json:"channel"`
	Title      string    `json:"title,omitempty"`
	Posts      int       `json:"posts"`
	Accepted   int       `json:"accepted"`
	Rejected   int       `json:"rejected"`
	Pending    int       `json:"pending"`
	AcceptPct  float64   `json:"accept_pct"`
	TopGate    string    `json:"top_reject_gate,omitempty"`
	TopGateHit int       `json:"top_reject_count,omitempty"`
	DataDays   int       `json:"data_days"`
	LastSeen   time.Time `json:"last_seen"`
}

type statsTotals struct {
	Posts    int `json:"posts"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
}

type gateCount struct {
	Gate  string `json:"gate"`
	Count int    `json:"count"`
}

// buildStatsReport merges channel aggregates with per-gate rejections.
// Channels are ordered by acceptance rate, then by accepted count.
func buildStatsReport(stats []store.ChannelStats, rejections []store.GateRejections, window time.Duration, now time.Time) statsReport {
	report := statsReport{
		Since:    formatStatsDuration(window),
		Channels: make([]channelReport, 0, len(stats)),
		Gates:    []gateCount{},
	}

	// rejections arrive largest first per channel
	top := make(map[string]store.GateRejections)
	byGate := make(map[string]int)
	for _, g := range rejections {
		key := g.Source + "\x00" + g.Channel
		if _, ok := top[key]; !ok {
			top[key] = g
		}
		byGate[g.Gate] += g.Count
	}

	for _, cs := range stats {
		cr := channelReport{
			Source:    cs.Source,
			Channel:   cs.Channel,
			Title:     cs.Title,
			Posts:     cs.Total,
			Accepted:  cs.Accepted,
			Rejected:  cs.Rejected,
			Pending:   cs.Unclassified,
			AcceptPct: acceptPct(cs),
			DataDays:  max(1, int(now.Sub(cs.FirstSeen).Hours()/24)),
			LastSeen:  cs.LastSeen,
		}
		if g, ok := top[cs.Source+"\x00"+cs.Channel]; ok {
			cr.TopGate, cr.TopGateHit = g.Gate, g.Count
		}
		report.Channels = append(report.Channels, cr)

		report.Totals.Posts += cs.Total
		report.Totals.Accepted += cs.Accepted
		report.Totals.Rejected += cs.Rejected
		report.Totals.Pending += cs.Unclassified
	}

	slices.SortStableFunc(report.Channels, func(a, b channelReport) int {
		if c := cmp.Compare(b.AcceptPct, a.AcceptPct); c != 0 {
			return c
		}
		return cmp.Compare(b.Accepted, a.Accepted)
	})

	for gate, n := range byGate {
		report.Gates = append(report.Gates, gateCount{Gate: gate, Count: n})
	}
	slices.SortFunc(report.Gates, func(a, b gateCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Gate, b.Gate)
	})

	return report
}

func (r statsReport) writeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (r statsReport) writeTerminal(w io.Writer) {
	fmt.Fprintf(w, "jobpan stats — %s, %d posts from %d channels\n\n", r.Since, r.Totals.Posts, len(r.Channels))

	width := len("Channel")
	for _, c := range r.Channels {
		width = max(width, min(maxNameCols, len([]rune(c.name()))))
	}

	fmt.Fprintf(w, "  %-*s  %5s  %8s  %8s  %7s  %-14s  %s\n",
		width, "Channel", "Posts", "Accepted", "Rejected", "Pending", "Accept", "Main rejection")
	for _, c := range r.Channels {
		rate := fmt.Sprintf("%.0f%%", c.AcceptPct)
		if c.DataDays < matureDays {
			rate += fmt.Sprintf(" (%dd data)", c.DataDays)
		}
		reason := "-"
		if c.TopGate != "" {
			reason = fmt.Sprintf("%s (%d)", c.TopGate, c.TopGateHit)
		}
		fmt.Fprintf(w, "  %-*s  %5d  %8d  %8d  %7d  %-14s  %s\n",
			width, truncateRunes(c.name(), width), c.Posts, c.Accepted, c.Rejected, c.Pending, rate, reason)
	}
	fmt.Fprintln(w)

	t := r.Totals
	fmt.Fprintf(w, "Accepted %d (%.1f%%), rejected %d (%.1f%%), pending %d (%.1f%%)\n\n",
		t.Accepted, pct(t.Accepted, t.Posts), t.Rejected, pct(t.Rejected, t.Posts), t.Pending, pct(t.Pending, t.Posts))

	if len(r.Gates) > 0 {
		fmt.Fprintln(w, "Rejections by gate:")
		for _, g := range r.Gates {
			fmt.Fprintf(w, "  %-12s %5d  %5.1f%%\n", g.Gate, g.Count, pct(g.Count, t.Rejected))
		}
		fmt.Fprintln(w)
	}

	var quiet []channelReport
	for _, c := range r.Channels {
		if time.Since(c.LastSeen) > quietDays*24*time.Hour {
			quiet = append(quiet, c)
		}
	}
	if len(quiet) > 0 {
		fmt.Fprintf(w, "Quiet channels (nothing new in %d+ days):\n", quietDays)
		for _, c := range quiet {
			fmt.Fprintf(w, "  %s, last post %s\n", c.name(), humanize.Time(c.LastSeen))
		}
		fmt.Fprintln(w)
	}
}

func (c channelReport) name() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Channel
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// acceptPct is the share of classified posts that were accepted.
func acceptPct(cs store.ChannelStats) float64 {
	return pct(cs.Accepted, cs.Accepted+cs.Rejected)
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// parseDuration accepts Go durations plus whole days ("7d") and weeks ("2w").
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n := len(s); n > 1 && (s[n-1] == 'd' || s[n-1] == 'w') {
		if v, err := strconv.Atoi(s[:n-1]); err == nil && v > 0 {
			day := 24 * time.Hour
			if s[n-1] == 'w' {
				day *= 7
			}
			return time.Duration(v) * day, nil
		}
	}
	return time.ParseDuration(s)
}

func formatStatsDuration(d time.Duration) string {
	hours := int(d.Hours())
	if hours >= 24 && hours%24 == 0 {
		return fmt.Sprintf("%d days", hours/24)
	}
	return fmt.Sprintf("%dh", hours)
}
