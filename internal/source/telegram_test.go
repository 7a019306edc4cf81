package source

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNormalizeChannel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"golang_jobs", "@golang_jobs"},
		{"@golang_jobs", "@golang_jobs"},
		{" https://t.me/golang_jobs ", "@golang_jobs"},
		{"https://t.me/s/golang_jobs", "@golang_jobs"},
		{"t.me/golang_jobs/123", "@golang_jobs"},
		{"http://telegram.me/remote_it", "@remote_it"},
		{"-1001234567890", "-1001234567890"},
		{"@", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeChannel(tt.in); got != tt.want {
			t.Errorf("NormalizeChannel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewTelegram(t *testing.T) {
	if _, err := NewTelegram(TelegramOptions{Channels: []string{"@golang_jobs"}}); err == nil ||
		!strings.Contains(err.Error(), "script path is required") {
		t.Errorf("missing script: err = %v", err)
	}
	if _, err := NewTelegram(TelegramOptions{Script: "collector.py", Channels: []string{"", "@"}}); err == nil ||
		!strings.Contains(err.Error(), "at least one channel") {
		t.Errorf("no channels: err = %v", err)
	}

	ts, err := NewTelegram(TelegramOptions{
		Script:   "collector.py",
		Channels: []string{"golang_jobs", "@Golang_Jobs", "https://t.me/remote_it"},
	})
	if err != nil {
		t.Fatalf("NewTelegram: %v", err)
	}
	if got := strings.Join(ts.Channels(), ","); got != "@golang_jobs,@remote_it" {
		t.Errorf("channels = %q", got)
	}
	if ts.opts.Python != "python3" || ts.opts.Limit != 100 {
		t.Errorf("defaults: python %q, limit %d", ts.opts.Python, ts.opts.Limit)
	}
	if ts.Name() != "telegram" {
		t.Errorf("name = %q", ts.Name())
	}
}

func TestReadCollector_Messages(t *testing.T) {
	input := `{"channel":"golang_jobs","channel_title":"Go Jobs","msg_id":100,"date":"2026-02-16T10:00:00Z","text":"Junior Go developer, remote","sender_id":777,"views":1500,"forwards":12}
{"channel":"@remote_it","msg_id":"200","date":"","text":"Ищем стажёра Go, удалённо","url":"https://t.me/remote_it/200"}
`
	batch, err := readCollector(strings.NewReader(input))
	if err != nil {
		t.Fatalf("readCollector: %v", err)
	}
	if len(batch.posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(batch.posts))
	}

	p := batch.posts[0]
	if p.Source != "telegram" || p.Channel != "@golang_jobs" || p.Title() != "Go Jobs" {
		t.Errorf("channel fields: %+v", p)
	}
	if p.ExternalID != "100" || p.SenderID != "777" {
		t.Errorf("ids: external %q, sender %q", p.ExternalID, p.SenderID)
	}
	if p.Views != 1500 || p.Forwards != 12 {
		t.Errorf("views/forwards = %d/%d", p.Views, p.Forwards)
	}
	if want := time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC); !p.PostedAt.Equal(want) {
		t.Errorf("posted_at = %v, want %v", p.PostedAt, want)
	}
	if p.Link() != "https://t.me/golang_jobs/100" {
		t.Errorf("link = %q", p.Link())
	}

	q := batch.posts[1]
	if !q.PostedAt.IsZero() {
		t.Errorf("empty date should leave PostedAt zero, got %v", q.PostedAt)
	}
	if q.Title() != "@remote_it" || q.SenderID != "" {
		t.Errorf("fallbacks: title %q, sender %q", q.Title(), q.SenderID)
	}
}

func TestReadCollector_FailuresAndMediaOnly(t *testing.T) {
	input := `{"channel":"@closed_jobs","error":"CHANNEL_PRIVATE"}

{"channel":"@golang_jobs","msg_id":"5","date":"2026-02-16T10:00:00Z","text":"   "}
{"channel":"@golang_jobs","msg_id":"6","date":"2026-02-16T10:05:00Z","text":"Go intern wanted"}
`
	batch, err := readCollector(strings.NewReader(input))
	if err != nil {
		t.Fatalf("readCollector: %v", err)
	}
	if len(batch.posts) != 1 || batch.posts[0].ExternalID != "6" {
		t.Errorf("posts = %+v", batch.posts)
	}
	if batch.skipped != 1 {
		t.Errorf("skipped = %d, want 1", batch.skipped)
	}
	if len(batch.failed) != 1 || batch.failed[0].channel != "@closed_jobs" || batch.failed[0].reason != "CHANNEL_PRIVATE" {
		t.Errorf("failed = %+v", batch.failed)
	}
}

func TestReadCollector_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			"invalid json",
			`{"channel":"ch","msg_id":"1","date":"","text":"ok"}` + "\n{not json}\n",
			[]string{"line 2", "invalid json"},
		},
		{
			"invalid date",
			`{"channel":"ch","msg_id":"1","date":"yesterday","text":"ok"}`,
			[]string{"line 1", "invalid date"},
		},
		{
			"missing id",
			`{"channel":"ch","date":"","text":"ok"}`,
			[]string{"line 1", "missing msg_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readCollector(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			for _, w := range tt.want {
				if !strings.Contains(err.Error(), w) {
					t.Errorf("error = %q, want containing %q", err, w)
				}
			}
		})
	}
}

func TestReadCollector_LongMessage(t *testing.T) {
	// longer than bufio's default 64 KiB token limit
	text := strings.Repeat("Go ", 40_000)
	input := `{"channel":"ch","msg_id":"1","date":"","text":"` + text + `"}`

	batch, err := readCollector(strings.NewReader(input))
	if err != nil {
		t.Fatalf("readCollector: %v", err)
	}
	if len(batch.posts) != 1 || len(batch.posts[0].Text) != len(text) {
		t.Fatalf("long message not read intact")
	}
}

// fakeCollector writes a shell script standing in for the Telethon collector.
func fakeCollector(t *testing.T, body string) TelegramOptions {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "collector.sh")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return TelegramOptions{
		Script:     path,
		Python:     "sh",
		APIID:      "12345",
		APIHash:    "hash",
		SessionDir: "sessions",
		Channels:   []string{"@golang_jobs", "@remote_it"},
		Limit:      50,
	}
}

func TestTelegramFetch_PassesArguments(t *testing.T) {
	opts := fakeCollector(t, `printf '{"channel":"golang_jobs","msg_id":"1","date":"","text":"%s"}\n' "$*"`+"\n")
	ts, err := NewTelegram(opts)
	if err != nil {
		t.Fatal(err)
	}

	since := time.Date(2026, 2, 16, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	posts, err := ts.Fetch(since)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(posts))
	}

	want := "--api-id 12345 --api-hash hash --session-dir sessions " +
		"--channels @golang_jobs,@remote_it --since 2026-02-16T08:00:00Z --limit 50"
	if posts[0].Text != want {
		t.Errorf("collector args = %q\nwant %q", posts[0].Text, want)
	}
}

func TestTelegramFetch_CollectorFailure(t *testing.T) {
	opts := fakeCollector(t, "echo 'session file is missing, run the collector once interactively' >&2\nexit 3\n")
	ts, err := NewTelegram(opts)
	if err != nil {
		t.Fatal(err)
	}

	_, err = ts.Fetch(time.Now().Add(-time.Hour))
	if err == nil || !strings.Contains(err.Error(), "collector failed: session file is missing") {
		t.Fatalf("err = %v, want stderr in collector failure", err)
	}
}

func TestTelegramFetch_AllChannelsFailed(t *testing.T) {
	opts := fakeCollector(t, `echo '{"channel":"@golang_jobs","error":"FLOOD_WAIT"}'
echo '{"channel":"@remote_it","error":"USERNAME_NOT_OCCUPIED"}'
`)
	ts, err := NewTelegram(opts)
	if err != nil {
		t.Fatal(err)
	}

	_, err = ts.Fetch(time.Now().Add(-time.Hour))
	if err == nil || !strings.Contains(err.Error(), "all 2 channels failed") {
		t.Fatalf("err = %v", err)
	}
}

func TestTelegramFetch_OneChannelFailed(t *testing.T) {
	opts := fakeCollector(t, `echo '{"channel":"@remote_it","error":"FLOOD_WAIT"}'
echo '{"channel":"@golang_jobs","msg_id":"7","date":"","text":"Go trainee"}'
`)
	ts, err := NewTelegram(opts)
	if err != nil {
		t.Fatal(err)
	}

	posts, err := ts.Fetch(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(posts) != 1 || posts[0].Channel != "@golang_jobs" {
		t.Errorf("posts = %+v", posts)
	}
}

func TestTelegramFetch_MissingInterpreter(t *testing.T) {
	ts, err := NewTelegram(TelegramOptions{
		Script:   "collector.py",
		Python:   "jobpan-no-such-python",
		Channels: []string{"@golang_jobs"},
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = ts.Fetch(time.Now())
	if err == nil || !strings.Contains(err.Error(), "jobpan-no-such-python not found") {
		t.Fatalf("err = %v", err)
	}
}
