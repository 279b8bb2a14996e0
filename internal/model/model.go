package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Placeholder markers that may appear inside display labels. They are part
// of the label vocabulary (not of event titles), so cleaning removes them
// regardless of the active language.
var labelMarkers = []string{
	"(종일)", "(all-day)",
	"(일정 없음)", "(no events)",
	"(예보 없음)", "(no forecast)",
}

var timePrefixRe = regexp.MustCompile(`^\d{1,2}:\d{2}\s*`)

// Event is a single calendar occurrence in the display timezone, already
// flattened by its source (recurrence expansion, calendar merging and auth
// are the source's responsibility).
type Event struct {
	// Start is the local start instant. All-day events carry local midnight.
	Start time.Time

	// AllDay marks date-only events.
	AllDay bool

	Title string

	// Source identifies the collaborator that produced the event, for logging.
	Source string
}

// Label renders the display label: "HH:MM <title>" for timed events,
// "<marker> <title>" for all-day events.
func (e Event) Label(allDayMarker string) string {
	if e.AllDay {
		return allDayMarker + " " + e.Title
	}
	return fmt.Sprintf("%02d:%02d %s", e.Start.Hour(), e.Start.Minute(), e.Title)
}

// CleanLabel strips placeholder markers and a leading HH:MM time prefix
// from a label and trims whitespace. An empty result means the label
// carried no displayable content.
func CleanLabel(s string) string {
	for _, m := range labelMarkers {
		s = strings.ReplaceAll(s, m, "")
	}
	s = strings.TrimSpace(s)
	s = timePrefixRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// WeatherSample is one forecast point in the display timezone. A missing
// temperature stays nil; it is never folded into zero degrees.
type WeatherSample struct {
	At          time.Time
	TempC       *float64
	Description string
}

// DaySummary is the per-date reduction handed to the compositor.
// Events holds capped, ordered labels; the weather fields are absent
// (nil pointers / empty string) for dates without forecast data.
type DaySummary struct {
	Events      []string
	MinC        *float64
	MaxC        *float64
	Description string
}

// HasWeather reports whether the summary carries any forecast content.
func (d DaySummary) HasWeather() bool {
	return d.MinC != nil || d.MaxC != nil || d.Description != ""
}
