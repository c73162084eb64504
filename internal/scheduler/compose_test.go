package scheduler

import (
	"strings"
	"testing"
	"time"

	"github.com/mtholden/attend/internal/integrations/calendar"
	"github.com/mtholden/attend/internal/store"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{45 * time.Second, "45s"},
		{time.Minute, "1m"},
		{25 * time.Minute, "25m"},
		{time.Hour, "1h"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.expected {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.expected)
		}
	}
}

func TestFormatAgenda(t *testing.T) {
	if got := formatAgenda(nil); got != "No meetings today.\n" {
		t.Errorf("Expected empty-day line, got %q", got)
	}

	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.Local)
	events := []calendar.Event{
		{Summary: "Design review", Start: start},
		{Summary: "Cancelled sync", Start: start, Status: "cancelled"},
		{Summary: "Conference", Start: start, AllDay: true},
	}

	got := formatAgenda(events)
	if !strings.HasPrefix(got, "2 meetings today:") {
		t.Errorf("Expected cancelled meeting excluded from count, got %q", got)
	}
	if !strings.Contains(got, "14:00 Design review") {
		t.Errorf("Expected timed entry, got %q", got)
	}
	if !strings.Contains(got, "Conference (all day)") {
		t.Errorf("Expected all-day entry, got %q", got)
	}
}

func TestComposeEndOfDay(t *testing.T) {
	snap := store.DailySnapshot{
		Day:         "2026-03-10",
		Total:       3 * time.Hour,
		Productive:  2 * time.Hour,
		Distraction: 30 * time.Minute,
		Neutral:     30 * time.Minute,
		TopDomains: []store.DomainTime{
			{Domain: "github.com", Duration: 90 * time.Minute},
			{Domain: "docs.google.com", Duration: 30 * time.Minute},
		},
		GoalProgressPct: 50,
		SessionCount:    14,
	}

	got := composeEndOfDay(snap)
	if !strings.Contains(got, "3h across 14 sessions") {
		t.Errorf("Missing totals: %q", got)
	}
	if !strings.Contains(got, "Goal progress 50%") {
		t.Errorf("Missing goal progress: %q", got)
	}
	if !strings.Contains(got, "github.com (1h 30m)") {
		t.Errorf("Missing top site: %q", got)
	}
}

func TestComposeMeeting(t *testing.T) {
	ev := calendar.Event{
		Summary:  "Standup",
		Location: "Room 4",
		MeetLink: "https://meet.google.com/abc-defg-hij",
	}
	got := composeMeeting(ev, 10*time.Minute)
	if !strings.Contains(got, "Standup starts in 10m.") {
		t.Errorf("Missing headline: %q", got)
	}
	if !strings.Contains(got, "Room 4") || !strings.Contains(got, "meet.google.com") {
		t.Errorf("Missing location or link: %q", got)
	}

	// Sparse events stay terse
	bare := composeMeeting(calendar.Event{Summary: "Chat"}, 9*time.Minute)
	if strings.Contains(bare, "Location") || strings.Contains(bare, "Video call") {
		t.Errorf("Expected no empty sections: %q", bare)
	}
}
