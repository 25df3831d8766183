package client

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/raffaelramalhorosa/bunker-status/internal/feed"
	"github.com/raffaelramalhorosa/bunker-status/internal/models"
)

// FeedSource reads snapshots from /api/bunkers/feed.atom. Unlike the JSON
// endpoint it never triggers an upstream fetch on the server.
type FeedSource struct {
	url    string
	parser *gofeed.Parser
}

// NewFeedSource returns a FeedSource reading the Atom feed of the server at baseURL.
func NewFeedSource(baseURL string) *FeedSource {
	p := gofeed.NewParser()
	p.UserAgent = "bunkerwatch"
	return &FeedSource{
		url:    strings.TrimSuffix(baseURL, "/") + "/api/bunkers/feed.atom",
		parser: p,
	}
}

// FetchStatus parses the feed back into a snapshot. Entries arrive in
// display order.
func (s *FeedSource) FetchStatus(ctx context.Context) (models.BunkerStatus, error) {
	f, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return models.BunkerStatus{}, &APIError{StatusCode: httpErr.StatusCode, Message: httpErr.Status}
		}
		return models.BunkerStatus{}, err
	}

	status := models.BunkerStatus{
		Bunkers:      make([]models.Bunker, 0, len(f.Items)),
		Source:       f.Description,
		MessageCount: int(extInt(f.Extensions, "messageCount")),
	}
	if f.UpdatedParsed != nil {
		status.LastUpdate = f.UpdatedParsed.UnixMilli()
	}

	for _, item := range f.Items {
		b := models.Bunker{
			Name:      strings.TrimSpace(item.Title),
			Timestamp: extInt(item.Extensions, "timestamp"),
		}
		if v := extValue(item.Extensions, "active"); v != "" {
			b.IsActive = v == "true"
		} else {
			for _, c := range item.Categories {
				if c == feed.TermActive {
					b.IsActive = true
				}
			}
		}
		status.Bunkers = append(status.Bunkers, b)
	}
	return status, nil
}

func extValue(e ext.Extensions, name string) string {
	vals := e[feed.Prefix][name]
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0].Value)
}

func extInt(e ext.Extensions, name string) int64 {
	n, err := strconv.ParseInt(extValue(e, name), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
