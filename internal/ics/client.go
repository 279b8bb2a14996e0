package ics

import (
	"context"
	"time"

	appLog "picalendar/internal/log"
	"picalendar/internal/model"
)

// Client aggregates one or more ICS feeds into a single event source.
type Client struct {
	feeds    []Feed
	location *time.Location
	fetcher  *fetcher
}

// NewClient builds an ICS client. cacheDir backs the per-feed HTTP cache;
// loc is the display timezone.
func NewClient(feeds []Feed, cacheDir string, loc *time.Location) *Client {
	return &Client{
		feeds:    feeds,
		location: loc,
		fetcher:  newFetcher(cacheDir),
	}
}

// Name identifies the source in logs and merge diagnostics.
func (c *Client) Name() string { return "ics" }

// FetchEvents fetches, parses and expands every configured feed. A feed
// that fails to fetch or parse is logged and skipped; the remaining feeds
// still contribute.
func (c *Client) FetchEvents(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	loc := c.location
	if loc == nil {
		loc = time.Local
	}

	parsed := make([]parsedEvent, 0)
	for _, feed := range c.feeds {
		body, err := c.fetcher.fetch(ctx, feed)
		if err != nil {
			appLog.Warn("ics: feed fetch failed, skipping", err, "id", feed.ID, "url", redactURL(feed.URL))
			continue
		}
		events, err := parseFeed(feed, body)
		if err != nil {
			appLog.Warn("ics: feed parse failed, skipping", err, "id", feed.ID)
			continue
		}
		parsed = append(parsed, events...)
	}

	return expand(parsed, start, end, loc), nil
}
