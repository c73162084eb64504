package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndQuerySessions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	sess := Session{
		Domain:         "github.com",
		Title:          "Pull Requests",
		Start:          start,
		End:            start.Add(25 * time.Minute),
		Duration:       25 * time.Minute,
		Day:            "2026-03-10",
		Classification: ClassProductive,
	}

	id, err := s.SaveSession(ctx, sess)
	if err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if id == 0 {
		t.Error("Expected non-zero session id")
	}

	// Second session same day, different domain
	sess.Domain = "news.ycombinator.com"
	sess.Classification = ClassUnclassified
	if _, err := s.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := s.SessionsForDay(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("SessionsForDay failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(got))
	}
	if got[0].Domain != "github.com" {
		t.Errorf("Expected insertion order, got first domain %q", got[0].Domain)
	}
	if got[0].Duration != 25*time.Minute {
		t.Errorf("Expected 25m duration, got %v", got[0].Duration)
	}
	if got[1].Classification != ClassUnclassified {
		t.Errorf("Expected unclassified, got %q", got[1].Classification)
	}

	// Other days are empty
	other, err := s.SessionsForDay(ctx, "2026-03-11")
	if err != nil {
		t.Fatalf("SessionsForDay failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected no sessions for other day, got %d", len(other))
	}
}

func TestClassificationUpsert(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// Unknown domain yields nil, not an error
	dc, err := s.Classification(ctx, "unknown.example")
	if err != nil {
		t.Fatalf("Classification failed: %v", err)
	}
	if dc != nil {
		t.Errorf("Expected nil for unknown domain, got %+v", dc)
	}

	first := DomainClassification{
		Domain:         "reddit.com",
		Classification: ClassNeutral,
		Confidence:     0.5,
		Source:         SourceFallback,
	}
	if err := s.UpsertClassification(ctx, first); err != nil {
		t.Fatalf("UpsertClassification failed: %v", err)
	}

	// Later write wins
	second := DomainClassification{
		Domain:         "reddit.com",
		Classification: ClassDistraction,
		Confidence:     0.9,
		Source:         SourceAI,
	}
	if err := s.UpsertClassification(ctx, second); err != nil {
		t.Fatalf("UpsertClassification failed: %v", err)
	}

	dc, err = s.Classification(ctx, "reddit.com")
	if err != nil {
		t.Fatalf("Classification failed: %v", err)
	}
	if dc == nil {
		t.Fatal("Expected classification, got nil")
	}
	if dc.Classification != ClassDistraction {
		t.Errorf("Expected distraction, got %q", dc.Classification)
	}
	if dc.Source != SourceAI {
		t.Errorf("Expected source ai, got %q", dc.Source)
	}
	if dc.Confidence != 0.9 {
		t.Errorf("Expected confidence 0.9, got %v", dc.Confidence)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// Absent day is a zero snapshot, not an error
	empty, err := s.Snapshot(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if empty.Day != "2026-03-10" || empty.Total != 0 || empty.SessionCount != 0 {
		t.Errorf("Expected zero snapshot, got %+v", empty)
	}

	snap := DailySnapshot{
		Day:         "2026-03-10",
		Total:       2 * time.Hour,
		Productive:  90 * time.Minute,
		Distraction: 20 * time.Minute,
		Neutral:     10 * time.Minute,
		TopDomains: []DomainTime{
			{Domain: "github.com", Duration: 90 * time.Minute},
			{Domain: "youtube.com", Duration: 20 * time.Minute},
		},
		GoalProgressPct: 38,
		SessionCount:    12,
		UpdatedAt:       time.Now(),
	}
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	// Overwrite with updated totals
	snap.Total = 3 * time.Hour
	snap.GoalProgressPct = 50
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot overwrite failed: %v", err)
	}

	got, err := s.Snapshot(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if got.Total != 3*time.Hour {
		t.Errorf("Expected 3h total, got %v", got.Total)
	}
	if got.GoalProgressPct != 50 {
		t.Errorf("Expected 50%% progress, got %d", got.GoalProgressPct)
	}
	if len(got.TopDomains) != 2 || got.TopDomains[0].Domain != "github.com" {
		t.Errorf("Top domains did not round-trip: %+v", got.TopDomains)
	}
}

func TestSentMarkers(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	sent, err := s.WasSent(ctx, "end_of_day", "2026-03-10")
	if err != nil {
		t.Fatalf("WasSent failed: %v", err)
	}
	if sent {
		t.Error("Expected not sent before marking")
	}

	if err := s.MarkSent(ctx, "end_of_day", "2026-03-10"); err != nil {
		t.Fatalf("MarkSent failed: %v", err)
	}
	// Marking twice is fine
	if err := s.MarkSent(ctx, "end_of_day", "2026-03-10"); err != nil {
		t.Fatalf("Second MarkSent failed: %v", err)
	}

	sent, err = s.WasSent(ctx, "end_of_day", "2026-03-10")
	if err != nil {
		t.Fatalf("WasSent failed: %v", err)
	}
	if !sent {
		t.Error("Expected sent after marking")
	}

	// Different day is independent
	sent, err = s.WasSent(ctx, "end_of_day", "2026-03-11")
	if err != nil {
		t.Fatalf("WasSent failed: %v", err)
	}
	if sent {
		t.Error("Expected other day unmarked")
	}
}

func TestSweep(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.Local)

	old := Session{
		Domain:   "old.example",
		Start:    now.Add(-100 * 24 * time.Hour),
		End:      now.Add(-100 * 24 * time.Hour).Add(time.Minute),
		Duration: time.Minute,
		Day:      DayKey(now.Add(-100 * 24 * time.Hour)),
	}
	recent := old
	recent.Domain = "recent.example"
	recent.Start = now.Add(-time.Hour)
	recent.End = now.Add(-time.Hour).Add(time.Minute)
	recent.Day = DayKey(recent.Start)

	if _, err := s.SaveSession(ctx, old); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if _, err := s.SaveSession(ctx, recent); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if err := s.SaveClipboardEvent(ctx, ClipboardEvent{
		Domain:    "old.example",
		Text:      "stale snippet",
		CreatedAt: now.Add(-100 * 24 * time.Hour),
	}); err != nil {
		t.Fatalf("SaveClipboardEvent failed: %v", err)
	}

	deleted, failures := s.Sweep(ctx, now, 90*24*time.Hour)
	if failures != 0 {
		t.Errorf("Expected no sweep failures, got %d", failures)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 rows deleted, got %d", deleted)
	}

	remaining, err := s.SessionsForDay(ctx, recent.Day)
	if err != nil {
		t.Fatalf("SessionsForDay failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Domain != "recent.example" {
		t.Errorf("Expected recent session to survive sweep, got %+v", remaining)
	}
}

func TestDayKey(t *testing.T) {
	ts := time.Date(2026, 1, 5, 23, 59, 0, 0, time.Local)
	if got := DayKey(ts); got != "2026-01-05" {
		t.Errorf("Expected 2026-01-05, got %q", got)
	}
}
