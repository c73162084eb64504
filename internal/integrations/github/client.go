// Package github fetches the dashboard counts (review requests, assigned
// issues, unread notifications) shown in the morning briefing.
package github

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

const baseURL = "https://api.github.com"

// Client is a GitHub REST API client.
type Client struct {
	httpClient *http.Client
	token      string
	user       string
}

// NewClient creates a client from GITHUB_TOKEN and GITHUB_USER.
func NewClient() (*Client, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN not set")
	}
	user := os.Getenv("GITHUB_USER")
	if user == "" {
		return nil, fmt.Errorf("GITHUB_USER not set")
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		token: token,
		user:  user,
	}, nil
}

// Dashboard holds the counts surfaced in briefings.
type Dashboard struct {
	ReviewRequests      int `json:"review_requests"`
	AssignedIssues      int `json:"assigned_issues"`
	UnreadNotifications int `json:"unread_notifications"`
}

func (c *Client) request(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("github: %w", remote.ErrUnauthenticated)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("github API error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// FetchDashboard retrieves the dashboard counts. Each count is fetched
// independently; the first error aborts since partial dashboards read as
// misleading zeros.
func (c *Client) FetchDashboard(ctx context.Context) (Dashboard, error) {
	var dash Dashboard

	reviews, err := c.searchCount(ctx, fmt.Sprintf("is:pr is:open review-requested:%s", c.user))
	if err != nil {
		return dash, err
	}
	dash.ReviewRequests = reviews

	issues, err := c.searchCount(ctx, fmt.Sprintf("is:issue is:open assignee:%s", c.user))
	if err != nil {
		return dash, err
	}
	dash.AssignedIssues = issues

	notifications, err := c.notificationCount(ctx)
	if err != nil {
		return dash, err
	}
	dash.UnreadNotifications = notifications

	return dash, nil
}

func (c *Client) searchCount(ctx context.Context, query string) (int, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("per_page", "1")

	data, err := c.request(ctx, "/search/issues?"+q.Encode())
	if err != nil {
		return 0, err
	}

	var resp struct {
		TotalCount int `json:"total_count"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("parse search response: %w", err)
	}
	return resp.TotalCount, nil
}

func (c *Client) notificationCount(ctx context.Context) (int, error) {
	data, err := c.request(ctx, "/notifications?per_page=50")
	if err != nil {
		return 0, err
	}

	var notifications []json.RawMessage
	if err := json.Unmarshal(data, &notifications); err != nil {
		return 0, fmt.Errorf("parse notifications: %w", err)
	}
	return len(notifications), nil
}
