package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ppiankov/jobpan/internal/config"
	"github.com/ppiankov/jobpan/internal/source"
	"github.com/ppiankov/jobpan/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, collector, storage and delivery",
	RunE:  doctorAction,
}

const (
	healthWindow      = 30 * 24 * time.Hour
	deadChannelPosts  = 20 // rejected posts before a channel with no accepts is flagged
	dominantGateShare = 0.9
)

// checker prints check results and remembers whether any failed.
type checker struct {
	failed int
}

func (c *checker) check(pass bool, format string, args ...any) bool {
	if !pass {
		c.failed++
	}
	printCheck(pass, format, args...)
	return pass
}

func doctorAction(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var c checker

	info, err := os.Stat(configDir)
	c.check(err == nil && info.IsDir(), "config directory %s", configDir)

	cfg, err := config.Load(configDir)
	if err != nil {
		c.check(false, "config.yaml: %v", err)
		return doctorResult(c)
	}
	c.check(true, "config.yaml (%d telegram channels, %d rss feeds, variant %s)",
		len(cfg.Sources.Telegram.Channels), len(cfg.Sources.RSS.Feeds), cfg.Filter.Variant)

	if _, err := buildFilter(cfg, ""); err != nil {
		c.check(false, "filter: %v", err)
	} else if cfg.Filter.Criteria != "" {
		c.check(true, "criteria %s", cfg.Filter.Criteria)
	} else {
		c.check(true, "criteria (built-in)")
	}
	if len(cfg.Filter.Keywords) == 0 {
		printInfo("filter.keywords is empty: every post will be rejected by the keyword gate")
	}

	if len(cfg.Sources.Telegram.Channels) > 0 {
		checkTelegram(&c, cfg.Sources.Telegram)
	}
	checkOutput(&c, cfg)

	if cfg.Dedup.Redis.Addr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		tracker, err := openTracker(pingCtx, cfg.Dedup.Redis)
		cancel()
		if c.check(err == nil, "redis %s%s", cfg.Dedup.Redis.Addr, errSuffix(err)) {
			_ = tracker.Close()
		}
	}

	db, err := store.Open(cfg.Storage.Path)
	if !c.check(err == nil, "database %s%s", cfg.Storage.Path, errSuffix(err)) {
		return doctorResult(c)
	}
	defer func() { _ = db.Close() }()

	checkChannelHealth(ctx, db)
	return doctorResult(c)
}

func doctorResult(c checker) error {
	if c.failed > 0 {
		return fmt.Errorf("%d checks failed", c.failed)
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

func errSuffix(err error) string {
	if err == nil {
		return ""
	}
	return ": " + err.Error()
}

func checkTelegram(c *checker, tc config.TelegramConfig) {
	for _, ch := range tc.Channels {
		if source.NormalizeChannel(ch) == "" {
			c.check(false, "telegram channel %q is empty or malformed", ch)
		}
	}

	python := tc.PythonPath
	if python == "" {
		python = "python3"
	}
	if _, err := exec.LookPath(python); err != nil {
		c.check(false, "%s not found", python)
		return
	}
	c.check(true, "%s", python)

	if err := exec.Command(python, "-c", "import telethon").Run(); err != nil {
		c.check(false, "telethon not installed (pip install telethon)")
	} else {
		c.check(true, "telethon")
	}

	c.check(tc.APIID != "" && tc.APIHash != "", "telegram credentials (%s, %s)", tc.APIIDEnv, tc.APIHashEnv)

	if tc.SessionDir != "" {
		_, err := os.Stat(filepath.Join(tc.SessionDir, "jobpan.session"))
		if !c.check(err == nil, "telegram session in %s", tc.SessionDir) {
			printInfo("run the collector once interactively to create the session")
		}
	}
}

func checkOutput(c *checker, cfg *config.Config) {
	switch cfg.Output.Method {
	case config.OutputTelegram:
		if cfg.Output.Telegram.BotToken == "" {
			c.check(false, "output: %s is not set", cfg.Output.Telegram.BotTokenEnv)
			return
		}
		c.check(true, "output: telegram chat %d, %s between messages", cfg.Output.Telegram.ChatID, cfg.Output.Delay.Duration)
	case config.OutputFile:
		dir := filepath.Dir(cfg.Output.File.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			c.check(false, "output: file %s: %v", cfg.Output.File.Path, err)
			return
		}
		c.check(true, "output: file %s", cfg.Output.File.Path)
	default:
		printInfo("output: none (postings are only shown in the digest)")
	}
}

// checkChannelHealth prints hints about channels that stopped posting or
// never yield an accepted posting. It never fails the run.
func checkChannelHealth(ctx context.Context, db *store.Store) {
	since := time.Now().Add(-healthWindow)
	stats, err := db.GetChannelStats(ctx, since)
	if err != nil || len(stats) == 0 {
		return
	}
	rejections, err := db.GetRejectionsByGate(ctx, since)
	if err != nil {
		return
	}
	report := buildStatsReport(stats, rejections, healthWindow, time.Now())

	fmt.Println()
	for _, ch := range report.Channels {
		if time.Since(ch.LastSeen) > quietDays*24*time.Hour {
			printInfo("quiet: %s, last post %s", ch.name(), humanize.Time(ch.LastSeen))
		}
		if ch.Accepted == 0 && ch.Rejected >= deadChannelPosts {
			printInfo("no postings: %s, %d posts and none accepted (consider dropping the channel)", ch.name(), ch.Rejected)
		}
		if ch.Rejected > 0 && float64(ch.TopGateHit) >= dominantGateShare*float64(ch.Rejected) {
			printInfo("%s: %d of %d rejections come from the %s gate", ch.name(), ch.TopGateHit, ch.Rejected, ch.TopGate)
		}
	}

	classified := report.Totals.Accepted + report.Totals.Rejected
	if classified >= 50 && report.Totals.Accepted == 0 {
		printInfo("nothing accepted in %d classified posts; keywords or salary bounds may be too narrow", classified)
	}
}

func printCheck(pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Printf("[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("[INFO] %s\n", fmt.Sprintf(format, args...))
}
