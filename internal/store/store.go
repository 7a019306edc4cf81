package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Match statuses accepted by GetMatches.
const (
	StatusAny          = ""
	StatusAccepted     = "accepted"
	StatusRejected     = "rejected"
	StatusUnclassified = "unclassified"
)

type Store struct {
	db *sql.DB
}

type Post struct {
	ID           int64
	Source       string
	Channel      string
	ChannelTitle string
	ExternalID   string
	SenderID     string
	Text         string
	Snippet      string
	TextHash     string
	URL          string
	Views        int
	Forwards     int
	PostedAt     time.Time // zero when the source gave no timestamp
	FetchedAt    time.Time
}

type PostInput struct {
	Source       string
	Channel      string
	ChannelTitle string
	ExternalID   string
	SenderID     string
	Text         string
	Snippet      string
	URL          string
	Views        int
	Forwards     int
	PostedAt     time.Time
	FetchedAt    time.Time
}

// Match is the stored classification of one post.
type Match struct {
	PostID       int64
	Accepted     bool
	Gate         string
	Reason       string
	Keywords     []string
	Analysis     json.RawMessage
	ClassifiedAt time.Time
	DeliveredAt  time.Time
}

type PostWithMatch struct {
	Post  Post
	Match *Match
}

// PostFilter holds optional filters for GetMatches.
type PostFilter struct {
	Source  string // filter by source (e.g. "rss", "telegram")
	Channel string // filter by channel name
}

const postColumns = `p.id, p.source, p.channel, p.channel_title, p.external_id, p.sender_id, p.text, p.snippet,
	p.text_hash, p.url, p.views, p.forwards, p.posted_at, p.fetched_at`

const matchColumns = `m.post_id, m.accepted, m.gate, m.reason, m.keywords, m.analysis, m.classified_at, m.delivered_at`

// effectiveTime orders and windows posts without a timestamp by fetch time.
const effectiveTime = "COALESCE(p.posted_at, p.fetched_at)"

func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("path is required")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Pragmas in the DSN apply to every pooled connection.
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	ctx := context.Background()
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ready(ctx context.Context) (context.Context, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, nil
}

func (s *Store) InsertPost(ctx context.Context, in PostInput) (Post, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return Post{}, err
	}

	if strings.TrimSpace(in.Source) == "" {
		return Post{}, errors.New("source is required")
	}
	if strings.TrimSpace(in.Channel) == "" {
		return Post{}, errors.New("channel is required")
	}
	if strings.TrimSpace(in.ExternalID) == "" {
		return Post{}, errors.New("external_id is required")
	}
	if in.FetchedAt.IsZero() {
		return Post{}, errors.New("fetched_at is required")
	}

	snippet := strings.TrimSpace(in.Snippet)
	if snippet == "" {
		snippet = firstNRunes(in.Text, 200)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO posts (
			source, channel, channel_title, external_id, sender_id, text, snippet, text_hash,
			url, views, forwards, posted_at, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, channel, external_id) DO UPDATE SET
			channel_title = excluded.channel_title,
			sender_id = excluded.sender_id,
			text = excluded.text,
			snippet = excluded.snippet,
			text_hash = excluded.text_hash,
			url = excluded.url,
			views = excluded.views,
			forwards = excluded.forwards,
			posted_at = excluded.posted_at,
			fetched_at = excluded.fetched_at
	`,
		in.Source,
		in.Channel,
		nullString(in.ChannelTitle),
		in.ExternalID,
		nullString(in.SenderID),
		nullString(in.Text),
		snippet,
		textHash(in.Text, snippet),
		nullString(in.URL),
		in.Views,
		in.Forwards,
		nullTime(in.PostedAt),
		formatTime(in.FetchedAt),
	)
	if err != nil {
		return Post{}, fmt.Errorf("insert post: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		WHERE p.source = ? AND p.channel = ? AND p.external_id = ?
	`, in.Source, in.Channel, in.ExternalID)

	return scanPost(row)
}

// GetPost returns one post with its classification, if any.
func (s *Store) GetPost(ctx context.Context, id int64) (PostWithMatch, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return PostWithMatch{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+postColumns+`, `+matchColumns+`
		FROM posts p
		LEFT JOIN matches m ON m.post_id = p.id
		WHERE p.id = ?
	`, id)
	pwm, err := scanPostWithMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PostWithMatch{}, fmt.Errorf("post %d not found", id)
	}
	return pwm, err
}

func (s *Store) GetUnclassified(ctx context.Context) ([]Post, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		LEFT JOIN matches m ON m.post_id = p.id
		WHERE m.post_id IS NULL
		ORDER BY `+effectiveTime+` ASC, p.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("get unclassified: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var posts []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unclassified: %w", err)
	}

	return posts, nil
}

// SaveMatch stores a classification. A re-classification keeps the
// delivery time of an earlier accepted match.
func (s *Store) SaveMatch(ctx context.Context, in Match) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}
	if in.PostID == 0 {
		return errors.New("post_id is required")
	}
	if !in.Accepted && in.Gate == "" {
		return errors.New("gate is required for a rejected match")
	}
	if in.ClassifiedAt.IsZero() {
		return errors.New("classified_at is required")
	}

	keywords := in.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}

	var analysisVal sql.NullString
	if len(in.Analysis) > 0 {
		analysisVal = sql.NullString{String: string(in.Analysis), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO matches (post_id, accepted, gate, reason, keywords, analysis, classified_at, delivered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(post_id) DO UPDATE SET
			accepted = excluded.accepted,
			gate = excluded.gate,
			reason = excluded.reason,
			keywords = excluded.keywords,
			analysis = excluded.analysis,
			classified_at = excluded.classified_at,
			delivered_at = COALESCE(excluded.delivered_at, matches.delivered_at)
	`,
		in.PostID,
		in.Accepted,
		nullString(in.Gate),
		nullString(in.Reason),
		string(keywordsJSON),
		analysisVal,
		formatTime(in.ClassifiedAt),
		nullTime(in.DeliveredAt),
	)
	if err != nil {
		return fmt.Errorf("save match: %w", err)
	}

	return nil
}

// GetMatches returns posts in the window since, newest first, joined with
// their classification. status is one of the Status constants.
func (s *Store) GetMatches(ctx context.Context, since time.Time, status string, filters ...PostFilter) ([]PostWithMatch, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + postColumns + `, ` + matchColumns + `
		FROM posts p
		LEFT JOIN matches m ON m.post_id = p.id
		WHERE ` + effectiveTime + ` >= ?`
	args := []any{formatTime(since)}

	switch status {
	case StatusAny:
	case StatusAccepted:
		query += " AND m.accepted = 1"
	case StatusRejected:
		query += " AND m.accepted = 0"
	case StatusUnclassified:
		query += " AND m.post_id IS NULL"
	default:
		return nil, fmt.Errorf("unknown match status %q", status)
	}

	var filter PostFilter
	if len(filters) > 0 {
		filter = filters[0]
	}
	if filter.Source != "" {
		query += " AND p.source = ?"
		args = append(args, filter.Source)
	}
	if filter.Channel != "" {
		query += " AND p.channel = ?"
		args = append(args, filter.Channel)
	}

	query += " ORDER BY " + effectiveTime + " DESC, p.id DESC"

	return s.queryPostsWithMatch(ctx, "get matches", query, args...)
}

// GetUndelivered returns accepted matches not yet forwarded, oldest first.
func (s *Store) GetUndelivered(ctx context.Context) ([]PostWithMatch, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	return s.queryPostsWithMatch(ctx, "get undelivered", `
		SELECT `+postColumns+`, `+matchColumns+`
		FROM posts p
		JOIN matches m ON m.post_id = p.id
		WHERE m.accepted = 1 AND m.delivered_at IS NULL
		ORDER BY `+effectiveTime+` ASC, p.id ASC
	`)
}

func (s *Store) MarkDelivered(ctx context.Context, postID int64, at time.Time) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}
	if at.IsZero() {
		return errors.New("delivered_at is required")
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE matches SET delivered_at = ? WHERE post_id = ? AND accepted = 1",
		formatTime(at), postID,
	)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark delivered: no accepted match for post %d", postID)
	}
	return nil
}

// DeleteAllMatches removes every stored classification so posts can be
// classified again. Returns the number of rows removed.
func (s *Store) DeleteAllMatches(ctx context.Context) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM matches")
	if err != nil {
		return 0, fmt.Errorf("delete matches: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) queryPostsWithMatch(ctx context.Context, op, query string, args ...any) ([]PostWithMatch, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var posts []PostWithMatch
	for rows.Next() {
		pwm, err := scanPostWithMatch(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, pwm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}

	return posts, nil
}

// Deduplicate keeps the earliest post of every group sharing a text hash,
// records the other channels in post_also_in and deletes the rest.
func (s *Store) Deduplicate(ctx context.Context) (int, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		dups, err := findDuplicates(ctx, tx)
		if err != nil {
			return err
		}

		for _, dup := range dups {
			_, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO post_also_in(post_id, source, channel) VALUES(?, ?, ?)",
				dup.keeperID, dup.source, dup.channel,
			)
			if err != nil {
				return fmt.Errorf("insert also_in: %w", err)
			}
			// channels the duplicate already absorbed move to the keeper
			_, err = tx.ExecContext(ctx,
				"UPDATE OR IGNORE post_also_in SET post_id = ? WHERE post_id = ?",
				dup.keeperID, dup.id,
			)
			if err != nil {
				return fmt.Errorf("move also_in: %w", err)
			}

			// its match and leftover also_in rows cascade
			if _, err := tx.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", dup.id); err != nil {
				return fmt.Errorf("delete duplicate post: %w", err)
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return deleted, nil
}

type duplicate struct {
	id       int64
	keeperID int64
	source   string
	channel  string
}

// findDuplicates lists every post whose text hash was already seen on an
// earlier post. Rows are fully read before the caller starts deleting.
func findDuplicates(ctx context.Context, tx *sql.Tx) ([]duplicate, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT p.id, p.source, p.channel, p.text_hash
		FROM posts p
		WHERE p.snippet != ''
		ORDER BY p.text_hash, `+effectiveTime+`, p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query duplicates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		dups     []duplicate
		lastHash string
		keeperID int64
	)
	for rows.Next() {
		var d duplicate
		var hash string
		if err := rows.Scan(&d.id, &d.source, &d.channel, &hash); err != nil {
			return nil, fmt.Errorf("scan duplicate: %w", err)
		}
		if hash == lastHash {
			d.keeperID = keeperID
			dups = append(dups, d)
			continue
		}
		lastHash, keeperID = hash, d.id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duplicates: %w", err)
	}
	return dups, nil
}

// PruneOld deletes posts older than retainDays together with their matches.
// Returns the number of posts removed.
func (s *Store) PruneOld(ctx context.Context, retainDays int) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}
	if retainDays <= 0 {
		return 0, nil
	}

	cutoff := formatTime(time.Now().AddDate(0, 0, -retainDays))

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM posts WHERE id IN (SELECT p.id FROM posts p WHERE "+effectiveTime+" < ?)", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune old posts: %w", err)
	}

	n, _ := res.RowsAffected()
	return n, nil
}

// GetAlsoIn returns "also seen in" channels for the given post IDs.
// Returns a map of postID to ["source/channel", ...].
func (s *Store) GetAlsoIn(ctx context.Context, postIDs []int64) (map[int64][]string, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	placeholders := make([]string, len(postIDs))
	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(
		"SELECT post_id, source, channel FROM post_also_in WHERE post_id IN (%s) ORDER BY source, channel",
		strings.Join(placeholders, ","),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query also_in: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[int64][]string)
	for rows.Next() {
		var postID int64
		var src, ch string
		if err := rows.Scan(&postID, &src, &ch); err != nil {
			return nil, fmt.Errorf("scan also_in: %w", err)
		}
		result[postID] = append(result[postID], src+"/"+ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate also_in: %w", err)
	}

	return result, nil
}

// ChannelStats holds aggregated classification stats for one channel.
type ChannelStats struct {
	Source       string
	Channel      string
	Title        string
	Total        int
	Accepted     int
	Rejected     int
	Unclassified int
	FirstSeen    time.Time
	LastSeen     time.Time
}

// GetChannelStats returns per-channel classification aggregates for posts
// since the given time.
func (s *Store) GetChannelStats(ctx context.Context, since time.Time) ([]ChannelStats, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.source, p.channel, COALESCE(MAX(p.channel_title), ''),
			COUNT(*) AS total,
			SUM(CASE WHEN m.accepted = 1 THEN 1 ELSE 0 END) AS accepted,
			SUM(CASE WHEN m.accepted = 0 THEN 1 ELSE 0 END) AS rejected,
			SUM(CASE WHEN m.post_id IS NULL THEN 1 ELSE 0 END) AS unclassified,
			MIN(`+effectiveTime+`) AS first_seen,
			MAX(`+effectiveTime+`) AS last_seen
		FROM posts p
		LEFT JOIN matches m ON m.post_id = p.id
		WHERE `+effectiveTime+` >= ?
		GROUP BY p.source, p.channel
		ORDER BY p.source, p.channel
	`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("get channel stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []ChannelStats
	for rows.Next() {
		var cs ChannelStats
		var firstSeen, lastSeen string
		if err := rows.Scan(&cs.Source, &cs.Channel, &cs.Title, &cs.Total, &cs.Accepted, &cs.Rejected,
			&cs.Unclassified, &firstSeen, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan channel stats: %w", err)
		}
		if cs.FirstSeen, err = parseTime(firstSeen); err != nil {
			return nil, fmt.Errorf("parse first_seen: %w", err)
		}
		if cs.LastSeen, err = parseTime(lastSeen); err != nil {
			return nil, fmt.Errorf("parse last_seen: %w", err)
		}
		stats = append(stats, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel stats: %w", err)
	}

	return stats, nil
}

// GateRejections counts rejected posts of one channel by the gate that
// rejected them.
type GateRejections struct {
	Source  string
	Channel string
	Gate    string
	Count   int
}

// GetRejectionsByGate returns rejection counts per channel and gate for
// posts since the given time, largest first within each channel.
func (s *Store) GetRejectionsByGate(ctx context.Context, since time.Time) ([]GateRejections, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.source, p.channel, m.gate, COUNT(*)
		FROM matches m
		JOIN posts p ON p.id = m.post_id
		WHERE m.accepted = 0 AND `+effectiveTime+` >= ?
		GROUP BY p.source, p.channel, m.gate
		ORDER BY p.source, p.channel, COUNT(*) DESC, m.gate
	`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("get rejections by gate: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []GateRejections
	for rows.Next() {
		var g GateRejections
		var gate sql.NullString
		if err := rows.Scan(&g.Source, &g.Channel, &gate, &g.Count); err != nil {
			return nil, fmt.Errorf("scan gate rejections: %w", err)
		}
		g.Gate = gate.String
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gate rejections: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type postRow struct {
	post                               Post
	title, sender, text, url, postedAt sql.NullString
	fetchedAt                          string
}

func (r *postRow) dest() []any {
	return []any{
		&r.post.ID,
		&r.post.Source,
		&r.post.Channel,
		&r.title,
		&r.post.ExternalID,
		&r.sender,
		&r.text,
		&r.post.Snippet,
		&r.post.TextHash,
		&r.url,
		&r.post.Views,
		&r.post.Forwards,
		&r.postedAt,
		&r.fetchedAt,
	}
}

func (r *postRow) finish() (Post, error) {
	p := r.post
	p.ChannelTitle = r.title.String
	p.SenderID = r.sender.String
	p.Text = r.text.String
	p.URL = r.url.String

	var err error
	if p.PostedAt, err = parseTime(r.postedAt.String); err != nil {
		return Post{}, fmt.Errorf("parse posted_at: %w", err)
	}
	if p.FetchedAt, err = parseTime(r.fetchedAt); err != nil {
		return Post{}, fmt.Errorf("parse fetched_at: %w", err)
	}
	return p, nil
}

func scanPost(scanner rowScanner) (Post, error) {
	var r postRow
	if err := scanner.Scan(r.dest()...); err != nil {
		return Post{}, fmt.Errorf("scan post: %w", err)
	}
	return r.finish()
}

func scanPostWithMatch(scanner rowScanner) (PostWithMatch, error) {
	var (
		r                                postRow
		matchID                          sql.NullInt64
		accepted                         sql.NullBool
		gate, reason, keywords, analysis sql.NullString
		classifiedAt, deliveredAt        sql.NullString
	)

	dest := append(r.dest(), &matchID, &accepted, &gate, &reason, &keywords, &analysis, &classifiedAt, &deliveredAt)
	if err := scanner.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PostWithMatch{}, err
		}
		return PostWithMatch{}, fmt.Errorf("scan post with match: %w", err)
	}

	post, err := r.finish()
	if err != nil {
		return PostWithMatch{}, err
	}
	if !matchID.Valid {
		return PostWithMatch{Post: post}, nil
	}

	m := &Match{
		PostID:   post.ID,
		Accepted: accepted.Bool,
		Gate:     gate.String,
		Reason:   reason.String,
		Keywords: []string{},
	}
	if keywords.Valid && keywords.String != "" {
		if err := json.Unmarshal([]byte(keywords.String), &m.Keywords); err != nil {
			return PostWithMatch{}, fmt.Errorf("decode keywords: %w", err)
		}
	}
	if analysis.Valid {
		m.Analysis = json.RawMessage(analysis.String)
	}
	if m.ClassifiedAt, err = parseTime(classifiedAt.String); err != nil {
		return PostWithMatch{}, fmt.Errorf("parse classified_at: %w", err)
	}
	if m.DeliveredAt, err = parseTime(deliveredAt.String); err != nil {
		return PostWithMatch{}, fmt.Errorf("parse delivered_at: %w", err)
	}

	return PostWithMatch{Post: post, Match: m}, nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return time.Time{}.UTC().Format(time.RFC3339Nano)
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}

// textHash hashes the whitespace-collapsed, lowercased text so reposts
// with different spacing still collapse into one post.
func textHash(text, snippet string) string {
	if text == "" {
		text = snippet
	}
	norm := strings.ToLower(strings.Join(strings.Fields(text), " "))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

func firstNRunes(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
