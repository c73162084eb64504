// Package calendar is a read-only Google Calendar client authenticated
// with a user OAuth bearer token. A 401/403 surfaces as
// remote.ErrUnauthenticated so callers render a sign-in prompt instead of
// falling back to stale cache.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/mtholden/attend/internal/remote"
)

const baseURL = "https://www.googleapis.com/calendar/v3"

// Client is a Google Calendar API client.
type Client struct {
	httpClient *http.Client
	calendarID string
	token      string
}

// Config holds calendar client configuration.
type Config struct {
	Token      string // OAuth access token with calendar.readonly scope
	CalendarID string // usually "primary" or an email address
}

// NewClient creates a client from environment variables.
func NewClient() (*Client, error) {
	token := os.Getenv("GOOGLE_CALENDAR_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GOOGLE_CALENDAR_TOKEN not set")
	}
	calendarID := os.Getenv("GOOGLE_CALENDAR_ID")
	if calendarID == "" {
		calendarID = "primary"
	}
	return NewClientWithConfig(Config{Token: token, CalendarID: calendarID})
}

// NewClientWithConfig creates a client with explicit configuration.
func NewClientWithConfig(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("token is required")
	}
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		calendarID: cfg.CalendarID,
		token:      cfg.Token,
	}, nil
}

// Event represents a calendar event.
type Event struct {
	ID       string    `json:"id"`
	Summary  string    `json:"summary"`
	Location string    `json:"location,omitempty"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	AllDay   bool      `json:"all_day"`
	Status   string    `json:"status"` // confirmed, tentative, cancelled
	MeetLink string    `json:"meet_link,omitempty"`
}

type googleEvent struct {
	ID             string          `json:"id"`
	Summary        string          `json:"summary"`
	Location       string          `json:"location,omitempty"`
	Status         string          `json:"status"`
	Start          *googleDateTime `json:"start,omitempty"`
	End            *googleDateTime `json:"end,omitempty"`
	ConferenceData *struct {
		EntryPoints []struct {
			EntryPointType string `json:"entryPointType"`
			URI            string `json:"uri"`
		} `json:"entryPoints,omitempty"`
	} `json:"conferenceData,omitempty"`
}

type googleDateTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

func (c *Client) request(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("calendar: %w", remote.ErrUnauthenticated)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("calendar API error (%d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// ListEvents retrieves events in [timeMin, timeMax), recurring events
// expanded, ordered by start time.
func (c *Client) ListEvents(ctx context.Context, timeMin, timeMax time.Time, maxResults int) ([]Event, error) {
	if maxResults == 0 {
		maxResults = 50
	}
	q := url.Values{}
	q.Set("timeMin", timeMin.Format(time.RFC3339))
	q.Set("timeMax", timeMax.Format(time.RFC3339))
	q.Set("maxResults", fmt.Sprintf("%d", maxResults))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")

	path := fmt.Sprintf("/calendars/%s/events?%s", url.PathEscape(c.calendarID), q.Encode())
	data, err := c.request(ctx, path)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Items []googleEvent `json:"items"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse events response: %w", err)
	}

	events := make([]Event, 0, len(resp.Items))
	for i := range resp.Items {
		event, err := convertEvent(&resp.Items[i])
		if err != nil {
			continue // skip malformed events
		}
		events = append(events, event)
	}
	return events, nil
}

// GetUpcomingEvents retrieves events starting in the next duration.
func (c *Client) GetUpcomingEvents(ctx context.Context, duration time.Duration, maxResults int) ([]Event, error) {
	now := time.Now()
	return c.ListEvents(ctx, now, now.Add(duration), maxResults)
}

// GetTodayEvents retrieves all of today's events in local time.
func (c *Client) GetTodayEvents(ctx context.Context) ([]Event, error) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return c.ListEvents(ctx, startOfDay, startOfDay.Add(24*time.Hour), 0)
}

func convertEvent(g *googleEvent) (Event, error) {
	ev := Event{
		ID:       g.ID,
		Summary:  g.Summary,
		Location: g.Location,
		Status:   g.Status,
	}

	start, allDay, err := parseDateTime(g.Start)
	if err != nil {
		return ev, err
	}
	end, _, err := parseDateTime(g.End)
	if err != nil {
		return ev, err
	}
	ev.Start = start
	ev.End = end
	ev.AllDay = allDay

	if g.ConferenceData != nil {
		for _, ep := range g.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				ev.MeetLink = ep.URI
				break
			}
		}
	}
	return ev, nil
}

func parseDateTime(dt *googleDateTime) (time.Time, bool, error) {
	if dt == nil {
		return time.Time{}, false, fmt.Errorf("missing date")
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		return t, false, err
	}
	t, err := time.ParseInLocation("2006-01-02", dt.Date, time.Local)
	return t, true, err
}
