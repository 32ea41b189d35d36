// Package client talks to a tinyslice server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nicktill/tinyslice/pkg/httpx"
	"github.com/nicktill/tinyslice/pkg/storage"
)

// Client sends points to and reads slices from a server
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client for a server such as http://localhost:8080
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Ingest posts points to /v1/ingest and returns the number accepted
func (c *Client) Ingest(ctx context.Context, points []storage.Point) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	body, err := json.Marshal(map[string]interface{}{"points": points})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal points: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/ingest", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, responseError(resp)
	}

	var out struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Count, nil
}

// Data runs a data query and copies the response body to w as it arrives
func (c *Client) Data(ctx context.Context, q url.Values, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/data?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	return nil
}

// StatusError is a non-2xx reply from the server
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}

func responseError(resp *http.Response) error {
	se := &StatusError{Status: resp.StatusCode}
	var body httpx.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		se.Message = body.Message
	}
	return se
}
