package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTestYAML(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test yaml: %v", err)
	}
	return path
}

// --- Load tests ---

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_TG_ID", "12345")
	t.Setenv("TEST_TG_HASH", "abcdef")
	t.Setenv("TEST_BOT_TOKEN", "123:bot")
	t.Setenv("TEST_REDIS_PASS", "hunter2")

	writeTestYAML(t, dir, DefaultConfigFile, `
sources:
  telegram:
    api_id_env: TEST_TG_ID
    api_hash_env: TEST_TG_HASH
    session_dir: .jobpan/session
    limit: 250
    channels:
      - "@remote_go_jobs"
storage:
  path: custom.db
  retain_days: 60
filter:
  variant: advanced
  keywords: [golang, python]
  exclude_keywords: [senior, lead]
  date_filter_hours: 48
  salary:
    min: 40000
    max: 90000
    currency: eur
  criteria: criteria.yaml
  workers: 8
digest:
  timezone: "Europe/Berlin"
  top_n: 10
  since: 48h
  format: markdown
  trending_min_channels: 3
output:
  method: telegram
  telegram:
    chat_id: -1001234567890
    bot_token_env: TEST_BOT_TOKEN
  delay: 2s
dedup:
  redis:
    addr: localhost:6379
    password_env: TEST_REDIS_PASS
    db: 2
    prefix: "jp:"
    ttl: 72h
privacy:
  store_full_text: true
  redact:
    enabled: true
    patterns:
      - "(?i)token"
log:
  level: debug
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Sources
	if cfg.Sources.Telegram.APIID != "12345" {
		t.Errorf("telegram api_id = %q, want 12345", cfg.Sources.Telegram.APIID)
	}
	if cfg.Sources.Telegram.APIHash != "abcdef" {
		t.Errorf("telegram api_hash = %q, want abcdef", cfg.Sources.Telegram.APIHash)
	}
	if len(cfg.Sources.Telegram.Channels) != 1 || cfg.Sources.Telegram.Channels[0] != "@remote_go_jobs" {
		t.Errorf("channels = %v", cfg.Sources.Telegram.Channels)
	}
	if cfg.Sources.Telegram.Limit != 250 {
		t.Errorf("telegram limit = %d, want 250", cfg.Sources.Telegram.Limit)
	}

	// Storage
	if cfg.Storage.Path != "custom.db" {
		t.Errorf("storage path = %q, want custom.db", cfg.Storage.Path)
	}
	if cfg.Storage.RetainDays != 60 {
		t.Errorf("retain_days = %d, want 60", cfg.Storage.RetainDays)
	}

	// Filter
	f := cfg.Filter
	if f.Variant != "advanced" {
		t.Errorf("variant = %q, want advanced", f.Variant)
	}
	if len(f.Keywords) != 2 || f.Keywords[0] != "golang" {
		t.Errorf("keywords = %v", f.Keywords)
	}
	if len(f.ExcludeKeywords) != 2 {
		t.Errorf("exclude_keywords = %v", f.ExcludeKeywords)
	}
	if f.Hours() != 48 {
		t.Errorf("hours = %d, want 48", f.Hours())
	}
	if f.Salary.Min == nil || *f.Salary.Min != 40000 {
		t.Errorf("salary.min = %v, want 40000", f.Salary.Min)
	}
	if f.Salary.Max == nil || *f.Salary.Max != 90000 {
		t.Errorf("salary.max = %v, want 90000", f.Salary.Max)
	}
	if f.Salary.Currency != "EUR" {
		t.Errorf("salary.currency = %q, want EUR", f.Salary.Currency)
	}
	if f.Criteria != filepath.Join(dir, "criteria.yaml") {
		t.Errorf("criteria = %q, want resolved against config dir", f.Criteria)
	}
	if f.Workers != 8 {
		t.Errorf("workers = %d, want 8", f.Workers)
	}

	// Digest
	if cfg.Digest.Timezone != "Europe/Berlin" {
		t.Errorf("timezone = %q", cfg.Digest.Timezone)
	}
	if cfg.Digest.TopN != 10 {
		t.Errorf("top_n = %d, want 10", cfg.Digest.TopN)
	}
	if cfg.Digest.Since.Duration != 48*time.Hour {
		t.Errorf("since = %v, want 48h", cfg.Digest.Since.Duration)
	}
	if cfg.Digest.Format != "markdown" {
		t.Errorf("format = %q, want markdown", cfg.Digest.Format)
	}
	if cfg.Digest.TrendingMin != 3 {
		t.Errorf("trending_min_channels = %d, want 3", cfg.Digest.TrendingMin)
	}

	// Output
	if cfg.Output.Method != OutputTelegram {
		t.Errorf("method = %q, want telegram", cfg.Output.Method)
	}
	if cfg.Output.Telegram.ChatID != -1001234567890 {
		t.Errorf("chat_id = %d", cfg.Output.Telegram.ChatID)
	}
	if cfg.Output.Telegram.BotToken != "123:bot" {
		t.Errorf("bot token = %q, want 123:bot", cfg.Output.Telegram.BotToken)
	}
	if cfg.Output.Delay.Duration != 2*time.Second {
		t.Errorf("delay = %v, want 2s", cfg.Output.Delay.Duration)
	}

	// Dedup
	r := cfg.Dedup.Redis
	if r.Addr != "localhost:6379" || r.DB != 2 || r.Prefix != "jp:" {
		t.Errorf("redis = %+v", r)
	}
	if r.Password != "hunter2" {
		t.Errorf("redis password = %q, want hunter2", r.Password)
	}
	if r.TTL.Duration != 72*time.Hour {
		t.Errorf("redis ttl = %v, want 72h", r.TTL.Duration)
	}

	// Privacy
	if !cfg.Privacy.StoreFullText {
		t.Error("store_full_text = false, want true")
	}
	if !cfg.Privacy.Redact.Enabled {
		t.Error("redact.enabled = false, want true")
	}
	if len(cfg.Privacy.Redact.Patterns) != 1 {
		t.Errorf("redact patterns = %v", cfg.Privacy.Redact.Patterns)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, `
sources:
  telegram:
    channels:
      - "@ch"
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Storage.Path != DefaultStoragePath {
		t.Errorf("storage.path = %q, want %q", cfg.Storage.Path, DefaultStoragePath)
	}
	if cfg.Storage.RetainDays != DefaultRetainDays {
		t.Errorf("retain_days = %d, want %d", cfg.Storage.RetainDays, DefaultRetainDays)
	}
	if cfg.Filter.Variant != DefaultVariant {
		t.Errorf("variant = %q, want %q", cfg.Filter.Variant, DefaultVariant)
	}
	if cfg.Filter.Hours() != DefaultDateFilterHours {
		t.Errorf("hours = %d, want %d", cfg.Filter.Hours(), DefaultDateFilterHours)
	}
	if cfg.Filter.Workers != DefaultWorkers {
		t.Errorf("workers = %d, want %d", cfg.Filter.Workers, DefaultWorkers)
	}
	if cfg.Sources.Telegram.Limit != DefaultTelegramLimit {
		t.Errorf("telegram limit = %d, want %d", cfg.Sources.Telegram.Limit, DefaultTelegramLimit)
	}
	if cfg.Filter.Salary.Min != nil || cfg.Filter.Salary.Max != nil {
		t.Errorf("salary bounds = %v/%v, want none", cfg.Filter.Salary.Min, cfg.Filter.Salary.Max)
	}
	if cfg.Filter.Salary.Currency != "USD" {
		t.Errorf("salary currency = %q, want USD", cfg.Filter.Salary.Currency)
	}
	if cfg.Filter.Criteria != "" {
		t.Errorf("criteria = %q, want empty", cfg.Filter.Criteria)
	}
	if cfg.Digest.TopN != DefaultTopN {
		t.Errorf("top_n = %d, want %d", cfg.Digest.TopN, DefaultTopN)
	}
	if cfg.Digest.Since.Duration != DefaultSince {
		t.Errorf("since = %v, want %v", cfg.Digest.Since.Duration, DefaultSince)
	}
	if cfg.Digest.Timezone != DefaultTimezone {
		t.Errorf("timezone = %q, want %q", cfg.Digest.Timezone, DefaultTimezone)
	}
	if cfg.Digest.Format != DefaultDigestFormat {
		t.Errorf("format = %q, want %q", cfg.Digest.Format, DefaultDigestFormat)
	}
	if cfg.Output.Method != OutputNone {
		t.Errorf("output method = %q, want none", cfg.Output.Method)
	}
	if cfg.Output.File.Path != DefaultOutputFile {
		t.Errorf("output file = %q, want %q", cfg.Output.File.Path, DefaultOutputFile)
	}
	if cfg.Output.Delay.Duration != DefaultSendDelay {
		t.Errorf("delay = %v, want %v", cfg.Output.Delay.Duration, DefaultSendDelay)
	}
	if cfg.Dedup.Redis.Addr != "" {
		t.Errorf("redis addr = %q, want empty", cfg.Dedup.Redis.Addr)
	}
	if cfg.Dedup.Redis.TTL.Duration != DefaultRedisTTL {
		t.Errorf("redis ttl = %v, want %v", cfg.Dedup.Redis.TTL.Duration, DefaultRedisTTL)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("log level = %q, want %q", cfg.Log.Level, DefaultLogLevel)
	}
}

func TestLoad_RecencyDisabled(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, `
sources:
  telegram:
    channels: ["@ch"]
filter:
  date_filter_hours: 0
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Filter.Hours() != 0 {
		t.Errorf("hours = %d, want 0 (disabled)", cfg.Filter.Hours())
	}
}

func TestLoad_NoSources(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, `
sources:
  telegram:
    channels: []
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for no sources")
	}
	if want := "at least one source must be configured"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_RSSOnly(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, `
sources:
  rss:
    feeds:
      - "https://example.com/feed.xml"
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Sources.RSS.Feeds) != 1 {
		t.Errorf("rss feeds = %v, want 1 feed", cfg.Sources.RSS.Feeds)
	}
	if len(cfg.Sources.Telegram.Channels) != 0 {
		t.Errorf("telegram channels = %v, want empty", cfg.Sources.Telegram.Channels)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"timezone", "digest:\n  timezone: \"Not/AZone\"\n", "digest.timezone"},
		{"digest format", "digest:\n  format: pdf\n", "digest.format"},
		{"variant", "filter:\n  variant: russian\n", "filter.variant"},
		{"negative workers", "filter:\n  workers: -1\n", "filter.workers"},
		{"salary inverted", "filter:\n  salary:\n    min: 90000\n    max: 40000\n", "must not exceed max"},
		{"salary negative", "filter:\n  salary:\n    min: -1\n", "min must not be negative"},
		{"salary currency", "filter:\n  salary:\n    currency: xyz\n", "unknown currency"},
		{"output method", "output:\n  method: email\n", "output.method"},
		{"telegram without chat", "output:\n  method: telegram\n  telegram:\n    bot_token_env: X\n", "chat_id"},
		{"telegram without token", "output:\n  method: telegram\n  telegram:\n    chat_id: 42\n", "bot_token_env"},
		{"redact pattern", "privacy:\n  redact:\n    patterns: [\"(\"]\n", "privacy.redact.patterns"},
		{"log level", "log:\n  level: verbose\n", "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeTestYAML(t, dir, DefaultConfigFile, "sources:\n  telegram:\n    channels: [\"@ch\"]\n"+tt.body)

			_, err := Load(dir)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, `
sources:
  telegram:
    channels: ["@ch"]
output:
  delay: soon
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for bad duration")
	}
	if want := "parse duration"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if want := "read config"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, `{{{invalid`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for malformed yaml")
	}
	if want := "parse config"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_EmptyDir(t *testing.T) {
	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for empty dir")
	}
	if want := "config dir is required"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_EnvVarMissing(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, `
sources:
  telegram:
    api_id_env: NONEXISTENT_VAR_12345
    channels: ["@ch"]
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sources.Telegram.APIID != "" {
		t.Errorf("api_id = %q, want empty", cfg.Sources.Telegram.APIID)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() {
		os.Unsetenv("JP_DOTENV_TOKEN")
		os.Unsetenv("JP_DOTENV_HASH")
	})
	t.Setenv("JP_DOTENV_HASH", "from-environment")
	writeTestYAML(t, dir, DefaultEnvFile, "JP_DOTENV_TOKEN=from-dotenv\nJP_DOTENV_HASH=from-dotenv\n")
	writeTestYAML(t, dir, DefaultConfigFile, `
sources:
  telegram:
    api_hash_env: JP_DOTENV_HASH
    channels: ["@ch"]
output:
  telegram:
    bot_token_env: JP_DOTENV_TOKEN
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Output.Telegram.BotToken != "from-dotenv" {
		t.Errorf("bot token = %q, want from-dotenv", cfg.Output.Telegram.BotToken)
	}
	if cfg.Sources.Telegram.APIHash != "from-environment" {
		t.Errorf("api hash = %q, environment must win over .env", cfg.Sources.Telegram.APIHash)
	}
}

func TestLoad_BadDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultEnvFile, "BAD-KEY=1\n")
	writeTestYAML(t, dir, DefaultConfigFile, "sources:\n  telegram:\n    channels: [\"@ch\"]\n")

	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error for malformed .env")
	}
}

// --- LoadCriteria tests ---

func TestLoadCriteria_Full(t *testing.T) {
	dir := t.TempDir()
	path := writeTestYAML(t, dir, DefaultCriteriaFile, `
seniority: [senior, lead, "head of"]
resume_indicators: ["#cv"]
job_seeking_patterns: ["looking for (a )?job"]
non_developer_roles: [designer]
junior_indicators: [junior, trainee]
remote_indicators: [remote]
experience_patterns: ['(\d+)\+? years']
max_experience_years: 3
role_guard: false
`)

	cf, err := LoadCriteria(path)
	if err != nil {
		t.Fatalf("load criteria: %v", err)
	}

	if len(cf.Seniority) != 3 || cf.Seniority[2] != "head of" {
		t.Errorf("seniority = %v", cf.Seniority)
	}
	if len(cf.JuniorIndicators) != 2 {
		t.Errorf("junior = %v", cf.JuniorIndicators)
	}
	if cf.MaxExperienceYears == nil || *cf.MaxExperienceYears != 3 {
		t.Errorf("max years = %v, want 3", cf.MaxExperienceYears)
	}
	if cf.RoleGuard == nil || *cf.RoleGuard {
		t.Errorf("role_guard = %v, want false", cf.RoleGuard)
	}
	if cf.Pronouns != nil {
		t.Errorf("pronouns = %v, want nil (not set)", cf.Pronouns)
	}
}

func TestLoadCriteria_EmptyListClears(t *testing.T) {
	dir := t.TempDir()
	path := writeTestYAML(t, dir, DefaultCriteriaFile, "remote_indicators: []\n")

	cf, err := LoadCriteria(path)
	if err != nil {
		t.Fatalf("load criteria: %v", err)
	}
	if cf.RemoteIndicators == nil || len(cf.RemoteIndicators) != 0 {
		t.Errorf("remote = %#v, want empty non-nil", cf.RemoteIndicators)
	}
}

func TestLoadCriteria_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"negative years", "max_experience_years: -1\n", "max_experience_years"},
		{"bad job seeking regex", "job_seeking_patterns: [\"ищу (\"]\n", "job_seeking_patterns"},
		{"no capture group", "experience_patterns: ['\\d+ years']\n", "capture group"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestYAML(t, t.TempDir(), DefaultCriteriaFile, tt.body)
			_, err := LoadCriteria(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadCriteria_EmptyPath(t *testing.T) {
	_, err := LoadCriteria("")
	if err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestLoadCriteria_FileNotFound(t *testing.T) {
	_, err := LoadCriteria(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if want := "read criteria"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}
