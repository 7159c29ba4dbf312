package hostclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dgallion1/folio/internal/bridge"
)

// Client posts report batches to the host's webhook.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewClient(url, apiKey string) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Delivery is the webhook body: the reports one session produced while
// handling one request, in order.
type Delivery struct {
	SessionID string          `json:"session_id"`
	Seq       uint64          `json:"seq"`
	Reports   []bridge.Report `json:"reports"`
	SentAt    time.Time       `json:"sent_at"`
}

// Deliver posts d to the webhook. Rate limiting, server errors and
// transport failures come back as *RetryableError.
func (c *Client) Deliver(ctx context.Context, d Delivery) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("deliver: %w", ctx.Err())
		}
		return &RetryableError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("deliver %s#%d: status %d: %s", d.SessionID, d.Seq, resp.StatusCode, string(respBody))
	}
	return nil
}

// RetryableError indicates a transient failure that can be retried.
// StatusCode is zero when the request never got a response.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
