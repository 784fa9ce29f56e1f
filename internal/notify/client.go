package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client submits push notifications to the managed delivery service. One
// call covers the whole recipient list; delivery is fire-and-forget, there
// is no retry loop here (a retry could reorder with the dedup mark upstream
// and break idempotence).
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  strings.TrimSpace(apiKey),
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("notify http %d", e.StatusCode)
	}
	return fmt.Sprintf("notify http %d: %s", e.StatusCode, b)
}

type publishRequest struct {
	TargetIDs    []int64      `json:"target_ids"`
	Notification notification `json:"notification"`
}

type notification struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	TargetURL string `json:"target_url"`
}

// Publish sends one notification to every recipient in ids.
func (c *Client) Publish(ctx context.Context, ids []int64, title, body, targetURL string) error {
	if len(ids) == 0 {
		return nil
	}

	payload, err := json.Marshal(publishRequest{
		TargetIDs: ids,
		Notification: notification{
			Title:     title,
			Body:      body,
			TargetURL: targetURL,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/notifications", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return &HTTPError{StatusCode: resp.StatusCode, Body: respBody}
	}
	return nil
}

// PublishWelcome greets a single user after they enable the app. Same sink,
// no deep link payload beyond the app root.
func (c *Client) PublishWelcome(ctx context.Context, id int64, appURL string) error {
	return c.Publish(ctx, []int64{id},
		"Welcome to Mon Signal",
		"You'll now receive trading signals from your network",
		appURL)
}
