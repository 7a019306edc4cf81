package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/jobpan/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config directory with example files",
	RunE:  initAction,
}

func initAction(_ *cobra.Command, _ []string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	files := []struct {
		name string
		data string
		perm os.FileMode
	}{
		{config.DefaultConfigFile, exampleConfig, 0o644},
		{config.DefaultCriteriaFile, exampleCriteria, 0o644},
		{config.DefaultEnvFile, exampleEnv, 0o600},
	}

	created := 0
	for _, f := range files {
		wrote, err := writeIfNotExists(filepath.Join(configDir, f.name), []byte(f.data), f.perm)
		if err != nil {
			return err
		}
		if wrote {
			created++
		}
	}

	if created == 0 {
		fmt.Printf("Config directory %s already initialized.\n", configDir)
	} else {
		fmt.Printf("Initialized %s with %d config files.\n", configDir, created)
	}
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(path string, data []byte, perm os.FileMode) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("  created: %s\n", path)
	return true, nil
}

const exampleConfig = `# jobpan configuration

sources:
  telegram:
    api_id_env: TELEGRAM_API_ID
    api_hash_env: TELEGRAM_API_HASH
    session_dir: .jobpan/session
    limit: 100               # newest messages per channel and pull
    channels:
      - "@your_job_channel"
  rss:
    feeds: []
    # - "https://weworkremotely.com/categories/remote-programming-jobs.rss"

storage:
  path: .jobpan/jobpan.db
  retain_days: 30

filter:
  variant: enhanced        # basic, advanced or enhanced
  keywords:
    - go
    - golang
    - python
  exclude_keywords: []     # empty keeps the built-in seniority list
  date_filter_hours: 24    # 0 disables the recency gate
  salary:
    # yearly bounds; leave unset for no constraint
    # min: 30000
    # max: 90000
    currency: USD
  criteria: criteria.yaml
  workers: 4

digest:
  timezone: "UTC"
  top_n: 20
  since: 24h
  format: terminal
  trending_min_channels: 2

output:
  method: none             # telegram, file or none
  telegram:
    chat_id: 0
    bot_token_env: TELEGRAM_BOT_TOKEN
  file:
    path: .jobpan/jobs.jsonl
  delay: 1s

dedup:
  redis:
    addr: ""               # e.g. localhost:6379; empty disables
    password_env: REDIS_PASSWORD
    prefix: "jobpan:seen:"
    ttl: 168h

privacy:
  store_full_text: true
  redact:
    enabled: false
    patterns: []           # "email", "phone" or regexes; empty means email and phone

log:
  level: info
`

const exampleCriteria = `# jobpan classification criteria
# Every list is optional. A list that is present replaces the built-in one;
# an empty list disables it.

# seniority: ["senior", "lead", "architect"]
# non_developer_roles: ["designer", "recruiter"]
# contextual_keywords: ["crypto*", "casino"]   # whole words; "*" marks a stem
# remote_indicators: ["remote", "удаленно"]
# junior_indicators: ["junior", "intern", "джун"]

max_experience_years: 2
role_guard: true
`

const exampleEnv = `# Secrets for jobpan. Variables already set in the environment win.
TELEGRAM_API_ID=
TELEGRAM_API_HASH=
TELEGRAM_BOT_TOKEN=
REDIS_PASSWORD=
`
