// Package remotesync mirrors the local book to a remote cartera server and back.
// Every record upserts by id, so pushes and pulls may be repeated or interleaved safely.
package remotesync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mtlprog/cartera/internal/store"
)

const (
	pushPath = "/api/v1/sync/push"
	pullPath = "/api/v1/sync/pull"
)

// Client talks to the sync endpoints of a remote server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a sync client. The token is sent as a bearer token when set.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Push uploads a bundle and returns what the remote imported.
func (c *Client) Push(ctx context.Context, b store.Bundle) (store.ImportStats, error) {
	body, err := json.Marshal(b)
	if err != nil {
		return store.ImportStats{}, fmt.Errorf("encoding bundle: %w", err)
	}

	var stats store.ImportStats
	if err := c.do(ctx, http.MethodPost, pushPath, bytes.NewReader(body), &stats); err != nil {
		return store.ImportStats{}, fmt.Errorf("pushing bundle: %w", err)
	}
	return stats, nil
}

// Pull downloads the remote bundle.
func (c *Client) Pull(ctx context.Context) (store.Bundle, error) {
	var b store.Bundle
	if err := c.do(ctx, http.MethodGet, pullPath, nil, &b); err != nil {
		return store.Bundle{}, fmt.Errorf("pulling bundle: %w", err)
	}
	return b, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, dest any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
