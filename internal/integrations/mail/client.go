// Package mail summarizes the Gmail inbox (unread count plus a few
// recent senders/subjects) for notification bodies.
package mail

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

const baseURL = "https://gmail.googleapis.com/gmail/v1/users/me"

// Client is a read-only Gmail client using a user OAuth bearer token.
type Client struct {
	httpClient *http.Client
	token      string
}

// NewClient creates a client from GOOGLE_MAIL_TOKEN.
func NewClient() (*Client, error) {
	token := os.Getenv("GOOGLE_MAIL_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GOOGLE_MAIL_TOKEN not set")
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		token: token,
	}, nil
}

// Message is one unread email header.
type Message struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
}

// Summary holds the inbox state used in briefings.
type Summary struct {
	TotalUnread int       `json:"total_unread"`
	Recent      []Message `json:"recent"`
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
		return nil, fmt.Errorf("mail: %w", remote.ErrUnauthenticated)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("gmail API error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// FetchSummary retrieves the unread count and up to five recent unread
// message headers.
func (c *Client) FetchSummary(ctx context.Context) (Summary, error) {
	q := url.Values{}
	q.Set("q", "is:unread in:inbox")
	q.Set("maxResults", "5")

	data, err := c.request(ctx, "/messages?"+q.Encode())
	if err != nil {
		return Summary{}, err
	}

	var listResp struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
		ResultSizeEstimate int `json:"resultSizeEstimate"`
	}
	if err := json.Unmarshal(data, &listResp); err != nil {
		return Summary{}, fmt.Errorf("parse message list: %w", err)
	}

	summary := Summary{TotalUnread: listResp.ResultSizeEstimate}
	for _, m := range listResp.Messages {
		msg, err := c.fetchHeaders(ctx, m.ID)
		if err != nil {
			// Partial header fetch failure degrades to count-only.
			continue
		}
		summary.Recent = append(summary.Recent, msg)
	}
	return summary, nil
}

func (c *Client) fetchHeaders(ctx context.Context, id string) (Message, error) {
	data, err := c.request(ctx, fmt.Sprintf("/messages/%s?format=metadata&metadataHeaders=From&metadataHeaders=Subject", url.PathEscape(id)))
	if err != nil {
		return Message{}, err
	}

	var resp struct {
		Payload struct {
			Headers []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"headers"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return Message{}, fmt.Errorf("parse message: %w", err)
	}

	var msg Message
	for _, h := range resp.Payload.Headers {
		switch h.Name {
		case "From":
			msg.From = h.Value
		case "Subject":
			msg.Subject = h.Value
		}
	}
	return msg, nil
}
