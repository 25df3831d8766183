package api_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/raffaelramalhorosa/bunker-status/internal/api"
	"github.com/raffaelramalhorosa/bunker-status/internal/discord"
	"github.com/raffaelramalhorosa/bunker-status/internal/fetcher"
	"github.com/raffaelramalhorosa/bunker-status/internal/models"
	"github.com/raffaelramalhorosa/bunker-status/internal/ratelimit"
	"github.com/raffaelramalhorosa/bunker-status/internal/store"
)

type stubSource struct {
	msgs []models.Message
	err  error
}

func (s stubSource) ChannelMessages(context.Context, string, int) ([]models.Message, error) {
	return s.msgs, s.err
}

var statusMessages = []models.Message{{
	ID: "1",
	Embeds: []models.Embed{{
		Title: "BUNKER STATUS",
		Fields: []models.Field{
			{Value: "B2 Bunker"}, {Value: "Inactive"}, {Value: "Next Activation: <t:4102444800:R>"},
			{Value: "A1 Bunker"}, {Value: "Active"}, {Value: "<t:4102444000:R>"},
		},
	}},
}}

func setup(cfg fetcher.Config, src fetcher.MessageSource) *api.Server {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	st := store.New()
	f := fetcher.New(cfg, src, ratelimit.NewGate(5*time.Second), st, logger)
	return api.New(f, st, logger)
}

func get(srv http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv := setup(fetcher.Config{}, stubSource{})

	rec := get(srv, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestBunkersEndpoint(t *testing.T) {
	srv := setup(fetcher.Config{Token: "t", ChannelID: "c"}, stubSource{msgs: statusMessages})

	rec := get(srv, "/api/bunkers")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var status models.BunkerStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(status.Bunkers) != 2 || status.Source != fetcher.SourceDiscord || status.MessageCount != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.Bunkers[0].Name != "B2 Bunker" {
		t.Fatalf("expected encounter order, got %+v", status.Bunkers)
	}
}

func TestBunkersEndpointWireShape(t *testing.T) {
	srv := setup(fetcher.Config{Token: "t", ChannelID: "c"}, stubSource{msgs: statusMessages})

	var body map[string]any
	json.NewDecoder(get(srv, "/api/bunkers").Body).Decode(&body)

	for _, key := range []string{"bunkers", "lastUpdate", "source", "messageCount"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("missing key %q in %v", key, body)
		}
	}
	first := body["bunkers"].([]any)[0].(map[string]any)
	for _, key := range []string{"name", "isActive", "timestamp"} {
		if _, ok := first[key]; !ok {
			t.Fatalf("missing bunker key %q in %v", key, first)
		}
	}
}

func TestBunkersEndpointRateLimited(t *testing.T) {
	srv := setup(fetcher.Config{Token: "t", ChannelID: "c"}, stubSource{msgs: statusMessages})

	get(srv, "/api/bunkers")
	rec := get(srv, "/api/bunkers")

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	var body models.ErrorResponse
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Error == "" {
		t.Fatal("expected error message")
	}
}

func TestBunkersEndpointMissingConfig(t *testing.T) {
	srv := setup(fetcher.Config{}, stubSource{})

	rec := get(srv, "/api/bunkers")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	var body models.ErrorResponse
	json.NewDecoder(rec.Body).Decode(&body)
	if !strings.Contains(body.Error, "configuration") {
		t.Fatalf("unexpected error message %q", body.Error)
	}
}

func TestBunkersEndpointUpstreamError(t *testing.T) {
	src := stubSource{err: &discord.FetchError{Last: &discord.APIError{StatusCode: http.StatusBadGateway, Status: "Bad Gateway"}}}
	srv := setup(fetcher.Config{Token: "t", ChannelID: "c"}, src)

	rec := get(srv, "/api/bunkers")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

type countingSource struct {
	calls int
	msgs  []models.Message
}

func (c *countingSource) ChannelMessages(context.Context, string, int) ([]models.Message, error) {
	c.calls++
	return c.msgs, nil
}

func TestFeedBeforeFirstFetch(t *testing.T) {
	src := &countingSource{msgs: statusMessages}
	srv := setup(fetcher.Config{Token: "t", ChannelID: "c"}, src)

	rec := get(srv, "/api/bunkers/feed.atom")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	parsed, err := gofeed.NewParser().Parse(rec.Body)
	if err != nil {
		t.Fatalf("parse feed: %v", err)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(parsed.Items))
	}

	// the stored snapshot is served without another upstream call
	if rec := get(srv, "/api/bunkers/feed.atom"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if src.calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", src.calls)
	}
}

func TestFeedBeforeFirstFetchMissingConfig(t *testing.T) {
	srv := setup(fetcher.Config{}, stubSource{})

	rec := get(srv, "/api/bunkers/feed.atom")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestFeedBeforeFirstFetchRateLimited(t *testing.T) {
	src := &countingSource{}
	srv := setup(fetcher.Config{}, src)

	// a rejected config still consumes the gate window
	get(srv, "/api/bunkers")
	rec := get(srv, "/api/bunkers/feed.atom")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestFeedEndpoint(t *testing.T) {
	srv := setup(fetcher.Config{Token: "t", ChannelID: "c"}, stubSource{msgs: statusMessages})
	get(srv, "/api/bunkers")

	rec := get(srv, "/api/bunkers/feed.atom")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	parsed, err := gofeed.NewParser().Parse(rec.Body)
	if err != nil {
		t.Fatalf("parse feed: %v", err)
	}
	if parsed.FeedType != "atom" {
		t.Fatalf("expected atom feed, got %s", parsed.FeedType)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(parsed.Items))
	}
	// display order: active first
	if parsed.Items[0].Title != "A1 Bunker" {
		t.Fatalf("expected active bunker first, got %q", parsed.Items[0].Title)
	}
	ts := parsed.Items[0].Extensions["bunker"]["timestamp"]
	if len(ts) != 1 || ts[0].Value != "4102444000000" {
		t.Fatalf("unexpected timestamp extension: %+v", ts)
	}
}
