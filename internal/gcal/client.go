package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	appLog "picalendar/internal/log"
	"picalendar/internal/model"
)

const defaultAPIBase = "https://www.googleapis.com/calendar/v3"

// Client lists events across every calendar visible to the authorized
// account. Auth, pagination and calendar merging all live here; the
// renderer only sees the flat event list.
type Client struct {
	// CredentialsDir holds oauth_config.json and token.json.
	CredentialsDir string

	// Location is the display timezone events are converted into.
	Location *time.Location

	HTTPClient *http.Client

	// BaseURL / TokenURL override the Google endpoints, for tests.
	BaseURL  string
	TokenURL string
}

// NewClient builds a calendar client with the default 20 s timeout.
func NewClient(credentialsDir string, loc *time.Location) *Client {
	return &Client{
		CredentialsDir: credentialsDir,
		Location:       loc,
		HTTPClient:     &http.Client{Timeout: 20 * time.Second},
	}
}

// Name identifies the source in logs and merge diagnostics.
func (c *Client) Name() string { return "google-calendar" }

type calendarListResponse struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

type eventsResponse struct {
	Items []struct {
		Summary string `json:"summary"`
		Start   struct {
			DateTime string `json:"dateTime"`
			Date     string `json:"date"`
		} `json:"start"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// FetchEvents returns all events with a start in [start, end) across all
// calendars, in the display timezone. Individual malformed items are
// skipped and logged; a failing calendar fails the whole fetch so the
// caller can decide to render without events.
func (c *Client) FetchEvents(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	tok, err := LoadToken(c.CredentialsDir)
	if err != nil {
		return nil, err
	}
	if err := tok.refresh(ctx, c.HTTPClient, c.TokenURL); err != nil {
		return nil, err
	}

	calendars, err := c.listCalendars(ctx, tok)
	if err != nil {
		return nil, err
	}

	timeMin := start.UTC().Format(time.RFC3339)
	timeMax := end.UTC().Format(time.RFC3339)

	loc := c.Location
	if loc == nil {
		loc = time.Local
	}

	events := make([]model.Event, 0)
	for _, calID := range calendars {
		items, err := c.listEvents(ctx, tok, calID, timeMin, timeMax)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			ev, ok := c.toEvent(item, loc)
			if !ok {
				continue
			}
			events = append(events, ev)
		}
	}

	appLog.Info("gcal: events fetched",
		"calendars", len(calendars), "events", len(events),
		"time_min", timeMin, "time_max", timeMax)
	return events, nil
}

func (c *Client) apiBase() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultAPIBase
}

func (c *Client) getJSON(ctx context.Context, tok *Token, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("gcal: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gcal: API returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) listCalendars(ctx context.Context, tok *Token) ([]string, error) {
	ids := make([]string, 0)
	pageToken := ""
	for {
		u := c.apiBase() + "/users/me/calendarList"
		if pageToken != "" {
			u += "?pageToken=" + url.QueryEscape(pageToken)
		}
		var page calendarListResponse
		if err := c.getJSON(ctx, tok, u, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if item.ID != "" {
				ids = append(ids, item.ID)
			}
		}
		if page.NextPageToken == "" {
			return ids, nil
		}
		pageToken = page.NextPageToken
	}
}

type eventItem struct {
	Summary  string
	DateTime string
	Date     string
}

func (c *Client) listEvents(ctx context.Context, tok *Token, calID, timeMin, timeMax string) ([]eventItem, error) {
	items := make([]eventItem, 0)
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("timeMin", timeMin)
		q.Set("timeMax", timeMax)
		q.Set("singleEvents", "true")
		q.Set("orderBy", "startTime")
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		u := c.apiBase() + "/calendars/" + url.PathEscape(calID) + "/events?" + q.Encode()

		var page eventsResponse
		if err := c.getJSON(ctx, tok, u, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			items = append(items, eventItem{
				Summary:  item.Summary,
				DateTime: item.Start.DateTime,
				Date:     item.Start.Date,
			})
		}
		if page.NextPageToken == "" {
			return items, nil
		}
		pageToken = page.NextPageToken
	}
}

// toEvent converts one API item into a model.Event. dateTime marks a timed
// event, date an all-day one; items with neither, or with an unparseable
// timestamp, are dropped.
func (c *Client) toEvent(item eventItem, loc *time.Location) (model.Event, bool) {
	title := strings.TrimSpace(item.Summary)
	if title == "" {
		title = "No Title"
	}

	switch {
	case item.DateTime != "":
		t, err := time.Parse(time.RFC3339, item.DateTime)
		if err != nil {
			appLog.Warn("gcal: skipping event with bad dateTime", err, "value", item.DateTime)
			return model.Event{}, false
		}
		return model.Event{Start: t.In(loc), Title: title, Source: c.Name()}, true

	case item.Date != "":
		t, err := time.ParseInLocation("2006-01-02", item.Date, loc)
		if err != nil {
			appLog.Warn("gcal: skipping event with bad date", err, "value", item.Date)
			return model.Event{}, false
		}
		return model.Event{Start: t, AllDay: true, Title: title, Source: c.Name()}, true

	default:
		appLog.Warn("gcal: skipping event without start", nil, "title", title)
		return model.Event{}, false
	}
}
