package notify

import (
	"strings"
	"testing"
)

func TestNewIDUniqueAndReadable(t *testing.T) {
	a := NewID("end_of_day", "2026-03-10")
	b := NewID("end_of_day", "2026-03-10")

	if !strings.HasPrefix(a, "end_of_day-2026-03-10-") {
		t.Errorf("Expected readable prefix, got %q", a)
	}
	if a == b {
		t.Errorf("Expected unique IDs for repeated rule firings, got %q twice", a)
	}
}

func TestPriorityString(t *testing.T) {
	tests := []struct {
		p        Priority
		expected string
	}{
		{PriorityLow, "low"},
		{PriorityNormal, "normal"},
		{PriorityHigh, "high"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.expected {
			t.Errorf("Priority(%d).String() = %q, want %q", tt.p, got, tt.expected)
		}
	}
}
