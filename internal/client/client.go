// Package client reads bunker snapshots from a running server, either as
// JSON or from its Atom feed.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raffaelramalhorosa/bunker-status/internal/models"
)

// ErrMalformed is returned when a 2xx body has no bunker list.
var ErrMalformed = errors.New("invalid response format: missing bunker list")

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned HTTP %d", e.StatusCode)
	}
	return e.Message
}

// Client fetches /api/bunkers.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// FetchStatus returns the server's current snapshot.
func (c *Client) FetchStatus(ctx context.Context) (models.BunkerStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/bunkers", nil)
	if err != nil {
		return models.BunkerStatus{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.BunkerStatus{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.BunkerStatus{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e models.ErrorResponse
		_ = json.Unmarshal(body, &e)
		return models.BunkerStatus{}, &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	var status models.BunkerStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return models.BunkerStatus{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if status.Bunkers == nil {
		return models.BunkerStatus{}, ErrMalformed
	}
	return status, nil
}
