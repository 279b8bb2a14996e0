package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventLabel(t *testing.T) {
	timed := Event{Start: time.Date(2026, 9, 10, 14, 30, 0, 0, time.UTC), Title: "Team Sync"}
	assert.Equal(t, "14:30 Team Sync", timed.Label("(종일)"))

	early := Event{Start: time.Date(2026, 9, 10, 9, 5, 0, 0, time.UTC), Title: "Standup"}
	assert.Equal(t, "09:05 Standup", early.Label("(종일)"))

	allDay := Event{Start: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC), AllDay: true, Title: "Holiday"}
	assert.Equal(t, "(종일) Holiday", allDay.Label("(종일)"))
	assert.Equal(t, "(all-day) Holiday", allDay.Label("(all-day)"))
}

func TestCleanLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"14:30 Team Sync", "Team Sync"},
		{"9:05 Standup", "Standup"},
		{"(종일) Holiday", "Holiday"},
		{"(all-day) Holiday", "Holiday"},
		{"(일정 없음)", ""},
		{"Lunch at 12:30", "Lunch at 12:30"}, // only a leading time prefix is stripped
		{"  padded  ", "padded"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanLabel(tt.in), "input %q", tt.in)
	}
}

func TestDaySummaryHasWeather(t *testing.T) {
	v := 12.5
	assert.False(t, DaySummary{}.HasWeather())
	assert.True(t, DaySummary{MinC: &v}.HasWeather())
	assert.True(t, DaySummary{Description: "rain"}.HasWeather())
	assert.False(t, DaySummary{Events: []string{"x"}}.HasWeather())
}
