// Package discord reads channel history from the Discord REST API.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/raffaelramalhorosa/bunker-status/internal/models"
)

// DefaultBaseURL is the versioned Discord REST endpoint.
const DefaultBaseURL = "https://discord.com/api/v10"

const userAgent = "bunker-status (https://github.com/raffaelramalhorosa/bunker-status, 1.0)"

// Scheme renders a token into an Authorization header value.
type Scheme struct {
	Name   string
	Header func(token string) string
}

// DefaultSchemes are tried in order until one is accepted.
var DefaultSchemes = []Scheme{
	{Name: "Bot", Header: func(t string) string { return "Bot " + t }},
	{Name: "Bearer", Header: func(t string) string { return "Bearer " + t }},
	{Name: "Raw", Header: func(t string) string { return t }},
}

// APIError is a non-2xx response from Discord.
type APIError struct {
	StatusCode int
	Status     string // status text without the code, e.g. "Unauthorized"
	Body       string // first 512 bytes
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord: HTTP %d %s", e.StatusCode, e.Status)
}

// Unauthorized reports whether Discord rejected the credentials.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Attempt records one failed credential scheme.
type Attempt struct {
	Scheme string
	Err    error
}

// FetchError is returned when every scheme failed. Last is the most recent
// HTTP response obtained, or nil when none of the attempts got one.
type FetchError struct {
	Attempts []Attempt
	Last     *APIError
}

func (e *FetchError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Scheme + ": " + a.Err.Error()
	}
	return "discord: all auth schemes failed (" + strings.Join(parts, "; ") + ")"
}

func (e *FetchError) Unwrap() error {
	if e.Last == nil {
		return nil
	}
	return e.Last
}

// Client fetches channel messages with a single token.
type Client struct {
	baseURL    string
	token      string
	schemes    []Scheme
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithSchemes replaces the credential schemes.
func WithSchemes(s []Scheme) Option {
	return func(c *Client) {
		c.schemes = s
	}
}

// New creates a Client for baseURL authenticating with token.
func New(baseURL, token string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   strings.TrimSpace(token),
		schemes: DefaultSchemes,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChannelMessages returns the latest limit messages of channelID. Each
// scheme is tried in order and the first 2xx response wins. When all fail
// the error is a *FetchError.
func (c *Client) ChannelMessages(ctx context.Context, channelID string, limit int) ([]models.Message, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	fullURL := c.baseURL + "/channels/" + url.PathEscape(channelID) + "/messages?" + q.Encode()

	fe := &FetchError{}
	for _, s := range c.schemes {
		body, err := c.get(ctx, fullURL, s.Header(c.token))
		if err == nil {
			c.logger.Debug("discord auth accepted", "scheme", s.Name)
			var msgs []models.Message
			if err := json.Unmarshal(body, &msgs); err != nil {
				return nil, fmt.Errorf("decode messages: %w", err)
			}
			return msgs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var be *bodyError
		if errors.As(err, &be) {
			return nil, be
		}

		c.logger.Warn("discord auth scheme failed", "scheme", s.Name, "error", err)
		fe.Attempts = append(fe.Attempts, Attempt{Scheme: s.Name, Err: err})

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			fe.Last = apiErr
		}
	}
	return nil, fe
}

func (c *Client) get(ctx context.Context, fullURL, auth string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// the status is what matters; a short or broken body is still kept
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
			Body:       string(body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &bodyError{err: err}
	}
	return body, nil
}

// bodyError is a failed read of an accepted response. The credentials
// worked, so no further scheme is tried.
type bodyError struct {
	err error
}

func (e *bodyError) Error() string { return "read messages: " + e.err.Error() }

func (e *bodyError) Unwrap() error { return e.err }

func statusText(resp *http.Response) string {
	if text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); text != "" && text != resp.Status {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
