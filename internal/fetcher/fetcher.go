package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raffaelramalhorosa/bunker-status/internal/discord"
	"github.com/raffaelramalhorosa/bunker-status/internal/fallback"
	"github.com/raffaelramalhorosa/bunker-status/internal/models"
	"github.com/raffaelramalhorosa/bunker-status/internal/parser"
	"github.com/raffaelramalhorosa/bunker-status/internal/ratelimit"
	"github.com/raffaelramalhorosa/bunker-status/internal/store"
)

// SourceDiscord labels snapshots parsed from real channel history.
const SourceDiscord = "Discord API"

// ErrMissingConfig is returned when the token or channel id is not set.
var ErrMissingConfig = errors.New("discord token or channel id not configured")

// MessageSource lists recent channel messages.
type MessageSource interface {
	ChannelMessages(ctx context.Context, channelID string, limit int) ([]models.Message, error)
}

// Config is what the fetcher needs to reach the channel.
type Config struct {
	Token     string
	ChannelID string
	Limit     int
	// UseMock serves canned data without calling Discord.
	UseMock bool
}

// Result is the outcome of a Fetch that did not fail.
type Result struct {
	Status      models.BunkerStatus
	RateLimited bool
	// RetryAfter is set when RateLimited, in whole seconds.
	RetryAfter int
}

// Fetcher pulls the channel history through the gate, parses it and
// records the latest snapshot in the store.
type Fetcher struct {
	cfg    Config
	source MessageSource
	gate   *ratelimit.Gate
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Fetcher. The gate is shared by every caller of Fetch.
func New(cfg Config, src MessageSource, gate *ratelimit.Gate, s *store.Store, logger *slog.Logger) *Fetcher {
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	return &Fetcher{
		cfg:    cfg,
		source: src,
		gate:   gate,
		store:  s,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (f *Fetcher) SetClock(now func() time.Time) {
	f.now = now
}

// Fetch runs one gated fetch+parse cycle.
//
// Authorization failures and unreachable upstreams are not errors: the
// result carries fallback data whose source explains why. Other upstream
// statuses are returned as *discord.APIError.
func (f *Fetcher) Fetch(ctx context.Context) (Result, error) {
	if d := f.gate.Allow(f.now()); !d.Allowed {
		f.logger.Info("fetch rate limited", "retry_after", d.RetryAfter)
		return Result{RateLimited: true, RetryAfter: d.RetryAfter}, nil
	}

	if f.cfg.UseMock {
		return f.keep(fallback.Snapshot(f.now(), "Simulated")), nil
	}

	if f.cfg.Token == "" || f.cfg.ChannelID == "" {
		f.logger.Error("fetch aborted", "error", ErrMissingConfig,
			"token_set", f.cfg.Token != "", "channel_set", f.cfg.ChannelID != "")
		return Result{}, ErrMissingConfig
	}

	f.logger.Info("fetching channel messages", "channel_id", f.cfg.ChannelID, "limit", f.cfg.Limit)

	msgs, err := f.source.ChannelMessages(ctx, f.cfg.ChannelID, f.cfg.Limit)
	if err != nil {
		var fe *discord.FetchError
		if !errors.As(err, &fe) {
			return Result{}, fmt.Errorf("fetch messages: %w", err)
		}
		switch {
		case fe.Last == nil:
			f.logger.Warn("serving fallback data", "reason", "no response")
			return f.keep(fallback.Snapshot(f.now(), "Authorization error: connection failed")), nil
		case fe.Last.Unauthorized():
			f.logger.Warn("serving fallback data", "reason", "unauthorized", "status", fe.Last.StatusCode)
			reason := fmt.Sprintf("Authorization error: %d %s", fe.Last.StatusCode, fe.Last.Status)
			return f.keep(fallback.Snapshot(f.now(), reason)), nil
		default:
			return Result{}, fe.Last
		}
	}

	parsed := parser.ParseMessages(msgs)
	f.logger.Info("messages parsed",
		"messages", len(msgs),
		"status_messages", parsed.MatchedMessages,
		"bunkers", len(parsed.Bunkers),
	)

	return f.keep(models.BunkerStatus{
		Bunkers:      parsed.Bunkers,
		LastUpdate:   f.now().UnixMilli(),
		Source:       SourceDiscord,
		MessageCount: parsed.MatchedMessages,
	}), nil
}

func (f *Fetcher) keep(status models.BunkerStatus) Result {
	f.store.Save(status)
	return Result{Status: status}
}
