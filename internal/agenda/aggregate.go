// Package agenda normalizes raw calendar events into the per-date buckets
// the view templates draw from.
package agenda

import (
	"context"
	"sort"
	"time"

	appLog "picalendar/internal/log"
	"picalendar/internal/model"
)

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Date is a civil calendar date in the display timezone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf extracts the civil date of t in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Less orders dates chronologically.
func (d Date) Less(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// Options controls label handling per view.
type Options struct {
	// AllDayMarker is prepended to all-day labels, e.g. "(종일)".
	AllDayMarker string

	// Clean strips markers and the leading HH:MM prefix from labels.
	// The month and week+weather views clean; the week agenda shows raw
	// labels because the time prefix is the display there.
	Clean bool

	// MaxPerDay caps each bucket (3 for month, 4 for week agenda).
	// Zero means no cap.
	MaxPerDay int

	// MaxRunes caps label length in runes before dedup (18 for the month
	// view). Zero means no cap. Pixel-level fitting still happens at draw
	// time; this only bounds what enters the bucket.
	MaxRunes int
}

// Aggregate filters events to the window, derives labels, dedupes within
// each date bucket by exact label (first-seen order) and caps bucket size.
// Sort order is deterministic: date ascending, all-day before timed,
// start ascending, input order for ties.
func Aggregate(events []model.Event, w Window, opts Options) map[Date][]string {
	filtered := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if w.Contains(ev.Start) {
			filtered = append(filtered, ev)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		da, db := DateOf(a.Start), DateOf(b.Start)
		if da != db {
			return da.Less(db)
		}
		if a.AllDay != b.AllDay {
			return a.AllDay
		}
		return a.Start.Before(b.Start)
	})

	out := make(map[Date][]string)
	seen := make(map[Date]map[string]bool)

	for _, ev := range filtered {
		label := ev.Label(opts.AllDayMarker)
		if opts.Clean {
			label = model.CleanLabel(label)
		}
		if opts.MaxRunes > 0 {
			label = truncateRunes(label, opts.MaxRunes)
		}
		if label == "" {
			continue
		}

		d := DateOf(ev.Start)
		if opts.MaxPerDay > 0 && len(out[d]) >= opts.MaxPerDay {
			continue
		}
		if seen[d] == nil {
			seen[d] = make(map[string]bool)
		}
		if seen[d][label] {
			continue
		}
		seen[d][label] = true
		out[d] = append(out[d], label)
	}

	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Source is a single upstream calendar collaborator.
type Source interface {
	Name() string
	FetchEvents(ctx context.Context, start, end time.Time) ([]model.Event, error)
}

// MultiSource merges several calendar collaborators into one event stream.
// A failing source is logged and skipped so one unreachable calendar never
// blanks the whole render; duplicates across sources collapse on the
// (instant, all-day, title) identity.
type MultiSource struct {
	Sources []Source
}

// Name implements the event source contract.
func (m *MultiSource) Name() string { return "calendars" }

type eventKey struct {
	unix   int64
	allDay bool
	title  string
}

// FetchEvents implements the event source contract used by the renderer.
func (m *MultiSource) FetchEvents(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	merged := make([]model.Event, 0)
	seen := make(map[eventKey]bool)

	for _, src := range m.Sources {
		events, err := src.FetchEvents(ctx, start, end)
		if err != nil {
			appLog.Warn("event source failed, skipping", err, "source", src.Name())
			continue
		}
		for _, ev := range events {
			k := eventKey{unix: ev.Start.Unix(), allDay: ev.AllDay, title: ev.Title}
			if seen[k] {
				continue
			}
			seen[k] = true
			merged = append(merged, ev)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Start.Before(merged[j].Start)
	})
	return merged, nil
}
