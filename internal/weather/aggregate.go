package weather

import (
	"picalendar/internal/agenda"
	"picalendar/internal/model"
)

// Summarize buckets forecast samples by local calendar date and reduces
// each bucket to (min temp, max temp, dominant description).
//
// Dates with no samples are simply absent from the result; callers treat a
// missing date as "no forecast". A bucket with no numeric temperatures
// yields nil min/max, never zero. The dominant description is the most
// frequent non-empty one, ties broken by first occurrence.
func Summarize(samples []model.WeatherSample, w agenda.Window) map[agenda.Date]model.DaySummary {
	type bucket struct {
		temps []float64
		descs []string
	}

	buckets := make(map[agenda.Date]*bucket)
	order := make([]agenda.Date, 0)

	for _, s := range samples {
		if !w.Contains(s.At) {
			continue
		}
		d := agenda.DateOf(s.At)
		b := buckets[d]
		if b == nil {
			b = &bucket{}
			buckets[d] = b
			order = append(order, d)
		}
		if s.TempC != nil {
			b.temps = append(b.temps, *s.TempC)
		}
		if s.Description != "" {
			b.descs = append(b.descs, s.Description)
		}
	}

	out := make(map[agenda.Date]model.DaySummary, len(order))
	for _, d := range order {
		b := buckets[d]
		var sum model.DaySummary
		if len(b.temps) > 0 {
			lo, hi := b.temps[0], b.temps[0]
			for _, t := range b.temps[1:] {
				if t < lo {
					lo = t
				}
				if t > hi {
					hi = t
				}
			}
			sum.MinC = &lo
			sum.MaxC = &hi
		}
		sum.Description = dominant(b.descs)
		out[d] = sum
	}
	return out
}

// dominant returns the most frequent string; first-seen wins ties.
func dominant(descs []string) string {
	counts := make(map[string]int, len(descs))
	best := ""
	bestN := 0
	for _, d := range descs {
		counts[d]++
		if counts[d] > bestN {
			best = d
			bestN = counts[d]
		}
	}
	return best
}
