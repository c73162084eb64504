package weather

import "testing"

func TestDescribeCode(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{0, "clear"},
		{2, "partly cloudy"},
		{45, "foggy"},
		{51, "drizzle"},
		{63, "rain"},
		{73, "snow"},
		{80, "rain showers"},
		{95, "thunderstorms"},
	}
	for _, tt := range tests {
		if got := describeCode(tt.code); got != tt.expected {
			t.Errorf("describeCode(%d) = %q, want %q", tt.code, got, tt.expected)
		}
	}
}
