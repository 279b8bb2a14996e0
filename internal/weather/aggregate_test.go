package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picalendar/internal/agenda"
	"picalendar/internal/model"
)

func temp(v float64) *float64 { return &v }

func at(day, hour int) time.Time {
	return time.Date(2026, 9, day, hour, 0, 0, 0, time.UTC)
}

func testWindow() agenda.Window {
	return agenda.Window{Start: at(1, 0), End: at(8, 0)}
}

func TestSummarizeMinMax(t *testing.T) {
	samples := []model.WeatherSample{
		{At: at(2, 6), TempC: temp(10), Description: "rain"},
		{At: at(2, 12), TempC: temp(15), Description: "rain"},
		{At: at(2, 18), TempC: temp(12), Description: "clouds"},
	}

	got := Summarize(samples, testWindow())
	s, ok := got[agenda.Date{Year: 2026, Month: time.September, Day: 2}]
	require.True(t, ok)
	require.NotNil(t, s.MinC)
	require.NotNil(t, s.MaxC)
	assert.Equal(t, 10.0, *s.MinC)
	assert.Equal(t, 15.0, *s.MaxC)
	assert.Equal(t, "rain", s.Description)
}

func TestSummarizeSkipsSamplesOutsideWindow(t *testing.T) {
	samples := []model.WeatherSample{
		{At: at(1, 0).Add(-time.Hour), TempC: temp(5)},
		{At: at(8, 0), TempC: temp(6)}, // end is exclusive
		{At: at(3, 9), TempC: temp(7)},
	}

	got := Summarize(samples, testWindow())
	assert.Len(t, got, 1)
}

func TestSummarizeMissingTemperaturesStayNil(t *testing.T) {
	samples := []model.WeatherSample{
		{At: at(4, 9), Description: "fog"},
		{At: at(4, 12), Description: "fog"},
	}

	got := Summarize(samples, testWindow())
	s := got[agenda.Date{Year: 2026, Month: time.September, Day: 4}]
	assert.Nil(t, s.MinC)
	assert.Nil(t, s.MaxC)
	assert.Equal(t, "fog", s.Description)
	assert.True(t, s.HasWeather())
}

func TestSummarizeEmptyInput(t *testing.T) {
	got := Summarize(nil, testWindow())
	assert.Empty(t, got)
}

func TestDominantDescription(t *testing.T) {
	tests := []struct {
		name  string
		descs []string
		want  string
	}{
		{"majority wins", []string{"rain", "rain", "clouds"}, "rain"},
		{"first seen breaks ties", []string{"rain", "clouds"}, "rain"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dominant(tt.descs))
		})
	}
}
