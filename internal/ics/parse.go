package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "picalendar/internal/log"
)

// parsedEvent is one VEVENT before recurrence expansion.
type parsedEvent struct {
	feed Feed

	uid   string
	title string

	start  time.Time
	end    time.Time
	allDay bool

	rawRRule   string
	exDates    []time.Time
	recurrence *time.Time // RECURRENCE-ID, when this VEVENT overrides an instance
}

// parseFeed parses one ICS payload. A VEVENT that cannot be parsed is
// logged and skipped; the rest of the feed still counts.
func parseFeed(feed Feed, body []byte) ([]parsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty feed body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]parsedEvent, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(feed, ve)
		if err != nil {
			appLog.Warn("ics: skipping unparseable VEVENT", err, "id", feed.ID)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics: feed parsed", "id", feed.ID, "events", len(events))
	return events, nil
}

func parseVEvent(feed Feed, ve *ical.VEvent) (parsedEvent, error) {
	out := parsedEvent{feed: feed}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.uid = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.title = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, errors.New("missing or bad DTSTART")
	}
	end, _ := ve.GetEndAt()
	out.start = start
	out.end = end

	// All-day when DTSTART carries VALUE=DATE or a date-only value.
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if params := p.ICalParameters; params != nil {
			if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
				out.allDay = true
			}
		}
		if !strings.Contains(p.Value, "T") {
			out.allDay = true
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.rawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out.exDates = append(out.exDates, t)
			}
		}
	}

	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		if t, err := parseICSTime(p.Value); err == nil {
			out.recurrence = &t
		}
	}

	return out, nil
}

// parseICSTime parses the basic ICS DATE / DATE-TIME / UTC forms used by
// EXDATE and RECURRENCE-ID values.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, time.Local)
	default:
		return time.ParseInLocation("20060102", v, time.Local)
	}
}
