package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/jobpan/internal/privacy"
	"github.com/ppiankov/jobpan/internal/salary"
)

const (
	DefaultConfigFile      = "config.yaml"
	DefaultEnvFile         = ".env"
	DefaultCriteriaFile    = "criteria.yaml"
	DefaultStoragePath     = ".jobpan/jobpan.db"
	DefaultRetainDays      = 30
	DefaultVariant         = "enhanced"
	DefaultDateFilterHours = 24
	DefaultWorkers         = 4
	DefaultTelegramLimit   = 100
	DefaultTopN            = 20
	DefaultTrendingMin     = 2
	DefaultSince           = 24 * time.Hour
	DefaultTimezone        = "UTC"
	DefaultDigestFormat    = "terminal"
	DefaultOutputMethod    = OutputNone
	DefaultOutputFile      = ".jobpan/jobs.jsonl"
	DefaultSendDelay       = time.Second
	DefaultRedisPrefix     = "jobpan:seen:"
	DefaultRedisTTL        = 7 * 24 * time.Hour
	DefaultLogLevel        = "info"
)

// Output methods.
const (
	OutputTelegram = "telegram"
	OutputFile     = "file"
	OutputNone     = "none"
)

// Duration wraps time.Duration for YAML unmarshaling from strings like "24h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Sources SourcesConfig `yaml:"sources"`
	Storage StorageConfig `yaml:"storage"`
	Filter  FilterConfig  `yaml:"filter"`
	Digest  DigestConfig  `yaml:"digest"`
	Output  OutputConfig  `yaml:"output"`
	Dedup   DedupConfig   `yaml:"dedup"`
	Privacy PrivacyConfig `yaml:"privacy"`
	Log     LogConfig     `yaml:"log"`
}

type SourcesConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	RSS      RSSConfig      `yaml:"rss"`
}

type RSSConfig struct {
	Feeds []string `yaml:"feeds"`
}

type TelegramConfig struct {
	APIIDEnv   string   `yaml:"api_id_env"`
	APIHashEnv string   `yaml:"api_hash_env"`
	SessionDir string   `yaml:"session_dir"`
	Channels   []string `yaml:"channels"`
	Script     string   `yaml:"script"`
	PythonPath string   `yaml:"python_path"`
	Limit      int      `yaml:"limit"` // messages per channel and pull

	// Resolved from env vars at load time.
	APIID   string `yaml:"-"`
	APIHash string `yaml:"-"`
}

type StorageConfig struct {
	Path       string `yaml:"path"`
	RetainDays int    `yaml:"retain_days"`
}

// FilterConfig selects the gate chain and its criteria.
type FilterConfig struct {
	Variant         string       `yaml:"variant"`
	Keywords        []string     `yaml:"keywords"`
	ExcludeKeywords []string     `yaml:"exclude_keywords"`
	DateFilterHours *int         `yaml:"date_filter_hours"`
	Salary          SalaryConfig `yaml:"salary"`
	Criteria        string       `yaml:"criteria"`
	Workers         int          `yaml:"workers"`
}

// SalaryConfig holds optional yearly salary bounds.
type SalaryConfig struct {
	Min      *int64 `yaml:"min"`
	Max      *int64 `yaml:"max"`
	Currency string `yaml:"currency"`
}

// Hours returns the recency window; zero or less disables it.
func (f FilterConfig) Hours() int {
	if f.DateFilterHours == nil {
		return DefaultDateFilterHours
	}
	return *f.DateFilterHours
}

type DigestConfig struct {
	Timezone    string   `yaml:"timezone"`
	TopN        int      `yaml:"top_n"`
	Since       Duration `yaml:"since"`
	Format      string   `yaml:"format"`
	TrendingMin int      `yaml:"trending_min_channels"`
}

// OutputConfig decides where accepted postings are forwarded.
type OutputConfig struct {
	Method   string               `yaml:"method"`
	Telegram TelegramOutputConfig `yaml:"telegram"`
	File     FileOutputConfig     `yaml:"file"`
	Delay    Duration             `yaml:"delay"`
}

type TelegramOutputConfig struct {
	ChatID      int64  `yaml:"chat_id"`
	BotTokenEnv string `yaml:"bot_token_env"`

	// Resolved from env var at load time.
	BotToken string `yaml:"-"`
}

type FileOutputConfig struct {
	Path string `yaml:"path"`
}

// DedupConfig enables cross-run delivery deduplication in Redis. An empty
// address disables it.
type DedupConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr        string   `yaml:"addr"`
	PasswordEnv string   `yaml:"password_env"`
	DB          int      `yaml:"db"`
	Prefix      string   `yaml:"prefix"`
	TTL         Duration `yaml:"ttl"`

	// Resolved from env var at load time.
	Password string `yaml:"-"`
}

type PrivacyConfig struct {
	StoreFullText bool         `yaml:"store_full_text"`
	Redact        RedactConfig `yaml:"redact"`
}

type RedactConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Patterns []string `yaml:"patterns"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads config.yaml from dir, applies defaults, resolves env vars, and validates.
// A .env file next to config.yaml is loaded first; variables already set in
// the environment win.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	if err := loadEnvFile(filepath.Join(dir, DefaultEnvFile)); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	resolveEnv(&cfg)
	resolvePaths(&cfg, dir)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Storage.RetainDays == 0 {
		cfg.Storage.RetainDays = DefaultRetainDays
	}
	if cfg.Sources.Telegram.Limit == 0 {
		cfg.Sources.Telegram.Limit = DefaultTelegramLimit
	}
	if cfg.Filter.Variant == "" {
		cfg.Filter.Variant = DefaultVariant
	}
	if cfg.Filter.Workers == 0 {
		cfg.Filter.Workers = DefaultWorkers
	}
	if cfg.Filter.Salary.Currency == "" {
		cfg.Filter.Salary.Currency = salary.DefaultCurrency
	}
	cfg.Filter.Salary.Currency = strings.ToUpper(cfg.Filter.Salary.Currency)
	if cfg.Digest.TopN == 0 {
		cfg.Digest.TopN = DefaultTopN
	}
	if cfg.Digest.Since.Duration == 0 {
		cfg.Digest.Since.Duration = DefaultSince
	}
	if cfg.Digest.Timezone == "" {
		cfg.Digest.Timezone = DefaultTimezone
	}
	if cfg.Digest.Format == "" {
		cfg.Digest.Format = DefaultDigestFormat
	}
	if cfg.Digest.TrendingMin == 0 {
		cfg.Digest.TrendingMin = DefaultTrendingMin
	}
	if cfg.Output.Method == "" {
		cfg.Output.Method = DefaultOutputMethod
	}
	if cfg.Output.File.Path == "" {
		cfg.Output.File.Path = DefaultOutputFile
	}
	if cfg.Output.Delay.Duration == 0 {
		cfg.Output.Delay.Duration = DefaultSendDelay
	}
	if cfg.Dedup.Redis.Prefix == "" {
		cfg.Dedup.Redis.Prefix = DefaultRedisPrefix
	}
	if cfg.Dedup.Redis.TTL.Duration == 0 {
		cfg.Dedup.Redis.TTL.Duration = DefaultRedisTTL
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}

func resolveEnv(cfg *Config) {
	if cfg.Sources.Telegram.APIIDEnv != "" {
		cfg.Sources.Telegram.APIID = os.Getenv(cfg.Sources.Telegram.APIIDEnv)
	}
	if cfg.Sources.Telegram.APIHashEnv != "" {
		cfg.Sources.Telegram.APIHash = os.Getenv(cfg.Sources.Telegram.APIHashEnv)
	}
	if cfg.Output.Telegram.BotTokenEnv != "" {
		cfg.Output.Telegram.BotToken = os.Getenv(cfg.Output.Telegram.BotTokenEnv)
	}
	if cfg.Dedup.Redis.PasswordEnv != "" {
		cfg.Dedup.Redis.Password = os.Getenv(cfg.Dedup.Redis.PasswordEnv)
	}
}

// resolvePaths makes the criteria file path relative to the config dir.
func resolvePaths(cfg *Config, dir string) {
	if cfg.Filter.Criteria != "" && !filepath.IsAbs(cfg.Filter.Criteria) {
		cfg.Filter.Criteria = filepath.Join(dir, cfg.Filter.Criteria)
	}
}

func validate(cfg *Config) error {
	hasTelegram := len(cfg.Sources.Telegram.Channels) > 0
	hasRSS := len(cfg.Sources.RSS.Feeds) > 0
	if !hasTelegram && !hasRSS {
		return errors.New("sources: at least one source must be configured")
	}

	switch cfg.Filter.Variant {
	case "basic", "advanced", "enhanced":
		// valid
	default:
		return fmt.Errorf("filter.variant: unknown variant %q (want basic, advanced or enhanced)", cfg.Filter.Variant)
	}
	if cfg.Sources.Telegram.Limit < 0 {
		return fmt.Errorf("sources.telegram.limit: must not be negative, got %d", cfg.Sources.Telegram.Limit)
	}
	if cfg.Filter.Workers < 0 {
		return fmt.Errorf("filter.workers: must not be negative, got %d", cfg.Filter.Workers)
	}
	if err := validateSalary(cfg.Filter.Salary); err != nil {
		return fmt.Errorf("filter.salary: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Digest.Timezone); err != nil {
		return fmt.Errorf("digest.timezone: %w", err)
	}
	switch cfg.Digest.Format {
	case "terminal", "json", "markdown":
		// valid
	default:
		return fmt.Errorf("digest.format: unknown format %q (want terminal, json or markdown)", cfg.Digest.Format)
	}

	switch cfg.Output.Method {
	case OutputTelegram:
		if cfg.Output.Telegram.ChatID == 0 {
			return errors.New("output.telegram.chat_id: required for telegram output")
		}
		if cfg.Output.Telegram.BotTokenEnv == "" {
			return errors.New("output.telegram.bot_token_env: required for telegram output")
		}
	case OutputFile, OutputNone:
		// valid
	default:
		return fmt.Errorf("output.method: unknown method %q (want telegram, file or none)", cfg.Output.Method)
	}
	if cfg.Output.Delay.Duration < 0 {
		return fmt.Errorf("output.delay: must not be negative, got %s", cfg.Output.Delay.Duration)
	}

	if _, err := privacy.Compile(cfg.Privacy.Redact.Patterns); err != nil {
		return fmt.Errorf("privacy.redact.patterns: %w", err)
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("log.level: unknown level %q (want debug, info, warn or error)", cfg.Log.Level)
	}

	return nil
}

func validateSalary(s SalaryConfig) error {
	if s.Min != nil && *s.Min < 0 {
		return fmt.Errorf("min must not be negative, got %d", *s.Min)
	}
	if s.Max != nil && *s.Max < 0 {
		return fmt.Errorf("max must not be negative, got %d", *s.Max)
	}
	if s.Min != nil && s.Max != nil && *s.Min > *s.Max {
		return fmt.Errorf("min (%d) must not exceed max (%d)", *s.Min, *s.Max)
	}
	if !slices.Contains(salary.Currencies, s.Currency) {
		return fmt.Errorf("unknown currency %q", s.Currency)
	}
	return nil
}
