package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const previewRunes = 300

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink posts a formatted summary of each job to a chat through the
// Bot API, waiting at least delay between consecutive messages.
type TelegramSink struct {
	bot    sender
	chatID int64
	delay  time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewTelegram connects to the Bot API with the given token.
func NewTelegram(token string, chatID int64, delay time.Duration) (*TelegramSink, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram output: bot token is required")
	}
	if chatID == 0 {
		return nil, errors.New("telegram output: chat_id is required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return newTelegramSink(bot, chatID, delay), nil
}

func newTelegramSink(bot sender, chatID int64, delay time.Duration) *TelegramSink {
	return &TelegramSink{bot: bot, chatID: chatID, delay: delay}
}

// Send formats the job and posts it, honouring the send delay.
func (s *TelegramSink) Send(ctx context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.last.IsZero() && s.delay > 0 {
		wait := s.delay - time.Since(s.last)
		if wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}

	msg := tgbotapi.NewMessage(s.chatID, FormatMessage(job))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	_, err := s.bot.Send(msg)
	s.last = time.Now()
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// Close is a no-op; the Bot API client holds no connection.
func (s *TelegramSink) Close() error { return nil }

// FormatMessage renders the HTML job summary sent to Telegram.
func FormatMessage(job Job) string {
	a := job.Result.Analysis
	var b strings.Builder

	b.WriteString("🔍 <b>Job Posting Found!</b>\n\n")

	switch {
	case a.IsJunior:
		b.WriteString("👶 <b>Level:</b> Junior/Entry Level\n")
	case a.ExperienceYears != nil:
		fmt.Fprintf(&b, "⏰ <b>Experience:</b> %s\n", a.Level())
	default:
		b.WriteString("⏰ <b>Experience:</b> Not specified\n")
	}
	if a.IsRemote {
		b.WriteString("🏠 <b>Work Type:</b> Remote\n")
	}
	if s := a.PrimarySalary(); s != nil {
		fmt.Fprintf(&b, "💰 <b>Salary:</b> %s\n", html.EscapeString(s.Human()))
	}

	fmt.Fprintf(&b, "📝 <b>Preview:</b>\n%s\n", html.EscapeString(preview(job.Post.Text)))

	if !job.Post.PostedAt.IsZero() {
		fmt.Fprintf(&b, "\n📅 <b>Date:</b> %s", job.Post.PostedAt.Format("2006-01-02 15:04 MST"))
	}
	fmt.Fprintf(&b, "\n📢 <b>Channel:</b> %s", html.EscapeString(job.Post.Title()))
	if len(a.MatchedKeywords) > 0 {
		fmt.Fprintf(&b, "\n🏷️ <b>Matched Keywords:</b> %s", html.EscapeString(strings.Join(a.MatchedKeywords, ", ")))
	}
	if link := job.Post.Link(); link != "" {
		fmt.Fprintf(&b, "\n🔗 <a href=\"%s\">Original Post</a>", html.EscapeString(link))
	}
	if job.Post.Views > 0 {
		fmt.Fprintf(&b, "\n👁️ <b>Views:</b> %s", humanize.Comma(int64(job.Post.Views)))
	}

	return b.String()
}

func preview(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= previewRunes {
		return string(runes)
	}
	return string(runes[:previewRunes]) + "..."
}
