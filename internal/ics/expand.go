package ics

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "picalendar/internal/log"
	"picalendar/internal/model"
)

// maxOccurrencesPerEvent bounds pathological RRULEs so one feed cannot
// explode a render.
const maxOccurrencesPerEvent = 1000

// expand turns parsed VEVENTs into flat model.Events with starts inside
// [start, end), converted into loc. It handles plain events, RRULE
// recurrence with EXDATE removal, and RECURRENCE-ID overrides.
func expand(events []parsedEvent, start, end time.Time, loc *time.Location) []model.Event {
	baseByUID := make(map[string][]parsedEvent)
	overridesByUID := make(map[string][]parsedEvent)
	for _, ev := range events {
		if ev.recurrence != nil {
			overridesByUID[ev.uid] = append(overridesByUID[ev.uid], ev)
		} else {
			baseByUID[ev.uid] = append(baseByUID[ev.uid], ev)
		}
	}

	out := make([]model.Event, 0)
	for uid, bases := range baseByUID {
		for _, base := range bases {
			out = append(out, expandOne(base, overridesByUID[uid], start, end, loc)...)
		}
	}
	return out
}

func expandOne(base parsedEvent, overrides []parsedEvent, start, end time.Time, loc *time.Location) []model.Event {
	if base.rawRRule == "" {
		// Templates bucket by start date, so an event only counts when it
		// begins inside the window.
		if base.start.Before(start) || !base.start.Before(end) {
			return nil
		}
		return []model.Event{toEvent(applyOverride(base, overrides, base.start), loc)}
	}

	r, err := rrule.StrToRRule(base.rawRRule)
	if err != nil {
		appLog.Warn("ics: skipping event with bad RRULE", err, "uid", base.uid, "rrule", base.rawRRule)
		return nil
	}
	r.DTStart(base.start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range base.exDates {
		set.ExDate(ex.In(base.start.Location()))
	}

	// Between is inclusive on both ends; drop the end instant afterwards
	// to keep the window half-open.
	times := set.Between(start.In(base.start.Location()), end.In(base.start.Location()), true)
	if len(times) > maxOccurrencesPerEvent {
		appLog.Warn("ics: recurrence capped", nil, "uid", base.uid, "cap", maxOccurrencesPerEvent)
		times = times[:maxOccurrencesPerEvent]
	}

	out := make([]model.Event, 0, len(times))
	for _, occStart := range times {
		if !occStart.Before(end) {
			continue
		}
		if base.allDay {
			occStart = time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
		}
		out = append(out, toEvent(applyOverride(base, overrides, occStart), loc))
	}
	return out
}

// applyOverride replaces an occurrence with its RECURRENCE-ID override when
// one matches the occurrence start exactly.
func applyOverride(base parsedEvent, overrides []parsedEvent, occStart time.Time) parsedEvent {
	for _, ov := range overrides {
		if ov.recurrence == nil {
			continue
		}
		if ov.recurrence.In(occStart.Location()).Equal(occStart) {
			return ov
		}
	}
	occ := base
	occ.start = occStart
	return occ
}

func toEvent(ev parsedEvent, loc *time.Location) model.Event {
	start := ev.start.In(loc)
	if ev.allDay {
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	}
	return model.Event{
		Start:  start,
		AllDay: ev.allDay,
		Title:  ev.title,
		Source: "ics:" + ev.feed.ID,
	}
}
