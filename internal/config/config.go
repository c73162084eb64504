package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mtholden/attend/internal/logging"
)

// Config holds all daemon settings. Values come from the environment
// (main loads .env via godotenv first); the tracking policy lives in a
// separate YAML file, see policy.go.
type Config struct {
	StatePath    string
	DatabasePath string
	SocketPath   string
	PolicyPath   string

	// Notification schedule (local hours)
	MorningHour  int
	ReadyHour    int
	EndOfDayHour int

	DailyGoal            time.Duration // productive time target per day
	DistractionThreshold time.Duration // distraction alert trigger
	DistractionCooldown  time.Duration
	MeetingLead          time.Duration // warn this far before meeting start

	HeartbeatInterval   time.Duration
	RuleTickInterval    time.Duration
	FetchTimeout        time.Duration
	MinSession          time.Duration // shorter sessions are discarded
	HeartbeatFlushAfter time.Duration // open this long before partial flush
	RetentionDays       int

	// Weather location
	Latitude  float64
	Longitude float64
}

// FromEnv builds a Config from environment variables with defaults.
func FromEnv() *Config {
	statePath := os.Getenv("STATE_PATH")
	if statePath == "" {
		statePath = "state"
	}

	cfg := &Config{
		StatePath:    statePath,
		DatabasePath: envStr("ATTEND_DB", filepath.Join(statePath, "attend.db")),
		SocketPath:   envStr("ATTEND_SOCKET", filepath.Join(statePath, "attend.sock")),
		PolicyPath:   envStr("ATTEND_POLICY", filepath.Join(statePath, "policy.yaml")),

		MorningHour:  envInt("MORNING_HOUR", 8),
		ReadyHour:    envInt("READY_HOUR", 10),
		EndOfDayHour: envInt("END_OF_DAY_HOUR", 21),

		DailyGoal:            envMinutes("DAILY_GOAL_MINUTES", 240),
		DistractionThreshold: envMinutes("DISTRACTION_ALERT_MINUTES", 30),
		DistractionCooldown:  30 * time.Minute,
		MeetingLead:          envMinutes("MEETING_LEAD_MINUTES", 10),

		HeartbeatInterval:   30 * time.Second,
		RuleTickInterval:    time.Minute,
		FetchTimeout:        10 * time.Second,
		MinSession:          time.Second,
		HeartbeatFlushAfter: 30 * time.Second,
		RetentionDays:       envInt("RETENTION_DAYS", 90),

		Latitude:  envFloat("WEATHER_LAT", 0),
		Longitude: envFloat("WEATHER_LON", 0),
	}

	return cfg
}

// HasLocation reports whether a weather location is configured.
func (c *Config) HasLocation() bool {
	return c.Latitude != 0 || c.Longitude != 0
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logging.Warn("config", "invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logging.Warn("config", "invalid %s=%q, using %v", key, v, def)
		return def
	}
	return f
}

func envMinutes(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * time.Minute
}
