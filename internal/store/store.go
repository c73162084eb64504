package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mtholden/attend/internal/logging"
)

// Classification buckets for a domain's time.
type Classification string

const (
	ClassProductive   Classification = "productive"
	ClassDistraction  Classification = "distraction"
	ClassNeutral      Classification = "neutral"
	ClassUnclassified Classification = "unclassified"
)

// Where a classification came from.
const (
	SourceStatic   = "static"
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// Session is one contiguous span of attention on a single domain. Once
// persisted it is an immutable fact; heartbeat flushes write partial
// sessions that the aggregator merges by duration summation.
type Session struct {
	ID             int64
	Domain         string
	Title          string
	Start          time.Time
	End            time.Time
	Duration       time.Duration
	Day            string // calendar date key, local time
	Classification Classification
}

// DomainClassification is the cached verdict for a domain.
type DomainClassification struct {
	Domain         string
	Classification Classification
	Confidence     float64
	Source         string
	UpdatedAt      time.Time
}

// DomainTime is one entry of a snapshot's top-domain list.
type DomainTime struct {
	Domain   string        `json:"domain"`
	Duration time.Duration `json:"duration"`
}

// DailySnapshot is the fully recomputed aggregate for one calendar day.
type DailySnapshot struct {
	Day             string
	Total           time.Duration
	Productive      time.Duration
	Distraction     time.Duration
	Neutral         time.Duration
	TopDomains      []DomainTime
	GoalProgressPct int
	SessionCount    int
	UpdatedAt       time.Time
}

// ClipboardEvent is a copy event from the event source. Write-only here;
// kept for the retention window.
type ClipboardEvent struct {
	ID        int64
	Domain    string
	URL       string
	Text      string
	CreatedAt time.Time
}

// DayKey formats a time as the calendar date key used across all stores.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Store wraps the SQLite database holding all persisted facts.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database and runs migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	migrations := []string{
		// v1: core tables
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			domain TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			start_time INTEGER NOT NULL,
			end_time INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			day TEXT NOT NULL,
			classification TEXT NOT NULL DEFAULT 'unclassified'
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_day ON sessions(day);
		CREATE TABLE IF NOT EXISTS domain_classifications (
			domain TEXT PRIMARY KEY,
			classification TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 0,
			source TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS daily_snapshots (
			day TEXT PRIMARY KEY,
			total_ms INTEGER NOT NULL,
			productive_ms INTEGER NOT NULL,
			distraction_ms INTEGER NOT NULL,
			neutral_ms INTEGER NOT NULL,
			top_domains TEXT NOT NULL DEFAULT '[]',
			goal_progress INTEGER NOT NULL,
			session_count INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		// v2: durable per-day notification markers
		`CREATE TABLE IF NOT EXISTS sent_markers (
			rule TEXT NOT NULL,
			day TEXT NOT NULL,
			sent_at INTEGER NOT NULL,
			PRIMARY KEY (rule, day)
		);`,
		// v3: clipboard events
		`CREATE TABLE IF NOT EXISTS clipboard_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			domain TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_clipboard_created ON clipboard_events(created_at);`,
	}

	for i := version; i < len(migrations); i++ {
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration v%d: %w", i+1, err)
		}
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
		logging.Debug("store", "applied migration v%d", i+1)
	}

	return nil
}

// SaveSession persists a completed (or partial) session.
func (s *Store) SaveSession(ctx context.Context, sess Session) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (domain, title, start_time, end_time, duration_ms, day, classification)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.Domain, sess.Title, sess.Start.UnixMilli(), sess.End.UnixMilli(),
		sess.Duration.Milliseconds(), sess.Day, string(sess.Classification))
	if err != nil {
		return 0, fmt.Errorf("save session: %w", err)
	}
	return res.LastInsertId()
}

// SessionsForDay returns all sessions recorded for a calendar day, in
// insertion order.
func (s *Store) SessionsForDay(ctx context.Context, day string) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, domain, title, start_time, end_time, duration_ms, day, classification
		 FROM sessions WHERE day = ? ORDER BY id`, day)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var result []Session
	for rows.Next() {
		var sess Session
		var start, end, dur int64
		var class string
		if err := rows.Scan(&sess.ID, &sess.Domain, &sess.Title, &start, &end, &dur, &sess.Day, &class); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.Start = time.UnixMilli(start)
		sess.End = time.UnixMilli(end)
		sess.Duration = time.Duration(dur) * time.Millisecond
		sess.Classification = Classification(class)
		result = append(result, sess)
	}
	return result, rows.Err()
}

// UpsertClassification writes a domain classification, last-write-wins.
func (s *Store) UpsertClassification(ctx context.Context, dc DomainClassification) error {
	if dc.UpdatedAt.IsZero() {
		dc.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO domain_classifications (domain, classification, confidence, source, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(domain) DO UPDATE SET
			classification = excluded.classification,
			confidence = excluded.confidence,
			source = excluded.source,
			updated_at = excluded.updated_at`,
		dc.Domain, string(dc.Classification), dc.Confidence, dc.Source, dc.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert classification: %w", err)
	}
	return nil
}

// Classification returns the cached classification for a domain, or nil
// if the domain has never been classified.
func (s *Store) Classification(ctx context.Context, domain string) (*DomainClassification, error) {
	var dc DomainClassification
	var class string
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT domain, classification, confidence, source, updated_at
		 FROM domain_classifications WHERE domain = ?`, domain).
		Scan(&dc.Domain, &class, &dc.Confidence, &dc.Source, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get classification: %w", err)
	}
	dc.Classification = Classification(class)
	dc.UpdatedAt = time.UnixMilli(updated)
	return &dc, nil
}

// SaveSnapshot overwrites the snapshot for its day.
func (s *Store) SaveSnapshot(ctx context.Context, snap DailySnapshot) error {
	top, err := json.Marshal(snap.TopDomains)
	if err != nil {
		return fmt.Errorf("marshal top domains: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO daily_snapshots (day, total_ms, productive_ms, distraction_ms, neutral_ms,
			top_domains, goal_progress, session_count, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(day) DO UPDATE SET
			total_ms = excluded.total_ms,
			productive_ms = excluded.productive_ms,
			distraction_ms = excluded.distraction_ms,
			neutral_ms = excluded.neutral_ms,
			top_domains = excluded.top_domains,
			goal_progress = excluded.goal_progress,
			session_count = excluded.session_count,
			updated_at = excluded.updated_at`,
		snap.Day, snap.Total.Milliseconds(), snap.Productive.Milliseconds(),
		snap.Distraction.Milliseconds(), snap.Neutral.Milliseconds(),
		string(top), snap.GoalProgressPct, snap.SessionCount, snap.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Snapshot returns the snapshot for a day. An absent day yields a zero
// snapshot with the day filled in, not an error: empty days are normal.
func (s *Store) Snapshot(ctx context.Context, day string) (DailySnapshot, error) {
	snap := DailySnapshot{Day: day, TopDomains: []DomainTime{}}
	var total, productive, distraction, neutral, updated int64
	var top string
	err := s.db.QueryRowContext(ctx,
		`SELECT total_ms, productive_ms, distraction_ms, neutral_ms, top_domains,
			goal_progress, session_count, updated_at
		 FROM daily_snapshots WHERE day = ?`, day).
		Scan(&total, &productive, &distraction, &neutral, &top,
			&snap.GoalProgressPct, &snap.SessionCount, &updated)
	if err == sql.ErrNoRows {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("get snapshot: %w", err)
	}
	snap.Total = time.Duration(total) * time.Millisecond
	snap.Productive = time.Duration(productive) * time.Millisecond
	snap.Distraction = time.Duration(distraction) * time.Millisecond
	snap.Neutral = time.Duration(neutral) * time.Millisecond
	snap.UpdatedAt = time.UnixMilli(updated)
	if err := json.Unmarshal([]byte(top), &snap.TopDomains); err != nil {
		return snap, fmt.Errorf("parse top domains: %w", err)
	}
	return snap, nil
}

// MarkSent records that a durably deduped rule fired for a day.
func (s *Store) MarkSent(ctx context.Context, rule, day string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sent_markers (rule, day, sent_at) VALUES (?, ?, ?)`,
		rule, day, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// WasSent reports whether a durably deduped rule already fired for a day.
func (s *Store) WasSent(ctx context.Context, rule, day string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sent_markers WHERE rule = ? AND day = ?`, rule, day).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check sent: %w", err)
	}
	return n > 0, nil
}

// SaveClipboardEvent persists a copy event.
func (s *Store) SaveClipboardEvent(ctx context.Context, ev ClipboardEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clipboard_events (domain, url, text, created_at) VALUES (?, ?, ?, ?)`,
		ev.Domain, ev.URL, ev.Text, ev.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save clipboard event: %w", err)
	}
	return nil
}

// Sweep deletes rows past the retention horizon. Each table is swept
// independently; a failure in one does not abort the others. Returns the
// number of rows deleted and the number of sweeps that failed.
func (s *Store) Sweep(ctx context.Context, now time.Time, retention time.Duration) (int64, int) {
	cutoff := now.Add(-retention).UnixMilli()
	var deleted int64
	var failures int

	sweeps := []struct {
		name  string
		query string
	}{
		{"sessions", "DELETE FROM sessions WHERE end_time < ?"},
		{"clipboard_events", "DELETE FROM clipboard_events WHERE created_at < ?"},
		{"sent_markers", "DELETE FROM sent_markers WHERE sent_at < ?"},
	}

	for _, sw := range sweeps {
		res, err := s.db.ExecContext(ctx, sw.query, cutoff)
		if err != nil {
			logging.Warn("store", "sweep %s failed: %v", sw.name, err)
			failures++
			continue
		}
		if n, err := res.RowsAffected(); err == nil {
			deleted += n
		}
	}

	return deleted, failures
}
