// Package seen remembers which job postings were already delivered, across
// runs and across channels, using Redis keys with a TTL.
package seen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ppiankov/jobpan/internal/textscan"
)

const (
	defaultPrefix = "jobpan:seen:"
	defaultTTL    = 7 * 24 * time.Hour
)

// Client is the subset of the Redis API the tracker uses.
type Client interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Tracker checks and records delivered postings by content hash. A nil
// Tracker reports nothing as seen and records nothing.
type Tracker struct {
	client Client
	prefix string
	ttl    time.Duration
	closer func() error
}

// Options configures a Redis-backed tracker.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// New creates a tracker on top of an existing client.
func New(client Client, prefix string, ttl time.Duration) *Tracker {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Tracker{client: client, prefix: prefix, ttl: ttl}
}

// Open connects to Redis and verifies the connection with PING.
func Open(ctx context.Context, opts Options) (*Tracker, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, errors.New("redis address is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	t := New(rdb, opts.Prefix, opts.TTL)
	t.closer = rdb.Close
	return t, nil
}

// Close releases the Redis connection when the tracker owns it.
func (t *Tracker) Close() error {
	if t == nil || t.closer == nil {
		return nil
	}
	return t.closer()
}

// IsSeen reports whether a posting with the same text was already recorded.
func (t *Tracker) IsSeen(ctx context.Context, text string) (bool, error) {
	if t == nil {
		return false, nil
	}
	n, err := t.client.Exists(ctx, t.Key(text)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// MarkSeen records a posting text for the tracker's TTL.
func (t *Tracker) MarkSeen(ctx context.Context, text string) error {
	if t == nil {
		return nil
	}
	if err := t.client.Set(ctx, t.Key(text), time.Now().Unix(), t.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Key returns the Redis key for a posting text. Letter case and whitespace
// layout do not change the key.
func (t *Tracker) Key(text string) string {
	return t.prefix + hashContent(text)
}

func hashContent(text string) string {
	canonical := strings.Join(strings.Fields(textscan.Normalize(text)), " ")
	h := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(h[:16])
}
