package ics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:single-1
SUMMARY:Dentist
DTSTART:20260910T143000Z
DTEND:20260910T153000Z
END:VEVENT
BEGIN:VEVENT
UID:allday-1
SUMMARY:Holiday
DTSTART;VALUE=DATE:20260911
DTEND;VALUE=DATE:20260912
END:VEVENT
BEGIN:VEVENT
SUMMARY:No UID, skipped
DTSTART:20260912T090000Z
END:VEVENT
END:VCALENDAR
`

const recurringFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:weekly-1
SUMMARY:Standup
DTSTART:20260901T090000Z
DTEND:20260901T091500Z
RRULE:FREQ=WEEKLY;BYDAY=TU
EXDATE:20260915T090000Z
END:VEVENT
BEGIN:VEVENT
UID:weekly-1
SUMMARY:Standup (moved)
DTSTART:20260922T110000Z
RECURRENCE-ID:20260922T090000Z
END:VEVENT
END:VCALENDAR
`

var testFeed = Feed{ID: "test", URL: "https://example.com/cal.ics"}

func TestParseFeed(t *testing.T) {
	events, err := parseFeed(testFeed, []byte(sampleFeed))
	require.NoError(t, err)
	// The VEVENT without a UID is skipped, not fatal.
	require.Len(t, events, 2)

	assert.Equal(t, "Dentist", events[0].title)
	assert.False(t, events[0].allDay)
	assert.Equal(t, "single-1", events[0].uid)

	assert.Equal(t, "Holiday", events[1].title)
	assert.True(t, events[1].allDay)
}

func TestParseFeedRejectsGarbage(t *testing.T) {
	_, err := parseFeed(testFeed, nil)
	assert.Error(t, err)

	_, err = parseFeed(testFeed, []byte("not an ics file"))
	assert.Error(t, err)
}

func TestExpandPlainEventsWindow(t *testing.T) {
	events, err := parseFeed(testFeed, []byte(sampleFeed))
	require.NoError(t, err)

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	got := expand(events, start, start.AddDate(0, 0, 14), time.UTC)
	require.Len(t, got, 2)

	sort.Slice(got, func(i, j int) bool { return got[i].Start.Before(got[j].Start) })
	assert.Equal(t, "Dentist", got[0].Title)
	assert.Equal(t, "ics:test", got[0].Source)
	assert.Equal(t, "Holiday", got[1].Title)
	assert.True(t, got[1].AllDay)
	assert.Equal(t, 0, got[1].Start.Hour())

	// A window that ends before the events excludes both.
	none := expand(events, start, start.AddDate(0, 0, 2), time.UTC)
	assert.Empty(t, none)
}

func TestExpandRecurrence(t *testing.T) {
	events, err := parseFeed(testFeed, []byte(recurringFeed))
	require.NoError(t, err)

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	got := expand(events, start, start.AddDate(0, 1, 0), time.UTC)

	sort.Slice(got, func(i, j int) bool { return got[i].Start.Before(got[j].Start) })

	// Tuesdays in September 2026: 1, 8, 15, 22, 29. The 15th is EXDATEd
	// and the 22nd is overridden to 11:00.
	require.Len(t, got, 4)
	assert.Equal(t, 1, got[0].Start.Day())
	assert.Equal(t, 8, got[1].Start.Day())
	assert.Equal(t, 22, got[2].Start.Day())
	assert.Equal(t, 11, got[2].Start.Hour())
	assert.Equal(t, "Standup (moved)", got[2].Title)
	assert.Equal(t, 29, got[3].Start.Day())
}

func TestParseICSTime(t *testing.T) {
	utc, err := parseICSTime("20260901T090000Z")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, utc.Location())

	dateOnly, err := parseICSTime("20260901")
	require.NoError(t, err)
	assert.Equal(t, 0, dateOnly.Hour())

	_, err = parseICSTime("")
	assert.Error(t, err)
}

func TestFetcherCachesAndRevalidates(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		fmt.Fprint(w, sampleFeed)
	}))
	defer srv.Close()

	f := newFetcher(t.TempDir())
	feed := Feed{ID: "test", URL: srv.URL + "/cal.ics"}

	first, err := f.fetch(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, sampleFeed, string(first))

	// The second fetch revalidates and serves the cached body on 304.
	second, err := f.fetch(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, hits)
}

func TestFetcherFallsBackToCacheOnServerError(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, sampleFeed)
	}))
	defer srv.Close()

	f := newFetcher(t.TempDir())
	feed := Feed{ID: "test", URL: srv.URL + "/cal.ics"}

	_, err := f.fetch(context.Background(), feed)
	require.NoError(t, err)

	healthy = false
	body, err := f.fetch(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, sampleFeed, string(body))
}

func TestFetcherErrorsWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	f := newFetcher(t.TempDir())
	_, err := f.fetch(context.Background(), Feed{ID: "test", URL: srv.URL})
	assert.Error(t, err)
}

func TestClientSkipsBrokenFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/good.ics" {
			fmt.Fprint(w, sampleFeed)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient([]Feed{
		{ID: "good", URL: srv.URL + "/good.ics"},
		{ID: "bad", URL: srv.URL + "/missing.ics"},
	}, t.TempDir(), time.UTC)

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	events, err := c.FetchEvents(context.Background(), start, start.AddDate(0, 0, 14))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)",
		redactURL("https://example.com/private/abc123/basic.ics"))
	assert.NotContains(t, redactURL("https://example.com/secret-token.ics"), "secret-token")
}
