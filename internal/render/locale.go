package render

import (
	"fmt"
	"time"
)

// Locale carries the display strings for one language. Label markers
// ("(종일)" etc.) belong to the label vocabulary in internal/model; this
// table covers weekday names and view titles.
type Locale struct {
	// Weekdays is indexed by time.Weekday (Sunday = 0).
	Weekdays [7]string

	AllDayMarker string
	NoEvents     string
	NoForecast   string

	WeekThis        string
	WeekNext        string
	WeekWeatherThis string
	WeekWeatherNext string
	ScheduleColumn  string
	WeatherColumn   string
	ForecastWeek    string
	HourlyToday     string
	HourlyTomorrow  string
}

var localeKo = Locale{
	Weekdays:        [7]string{"일", "월", "화", "수", "목", "금", "토"},
	AllDayMarker:    "(종일)",
	NoEvents:        "(일정 없음)",
	NoForecast:      "(예보 없음)",
	WeekThis:        "이번주 일정",
	WeekNext:        "다음주 일정",
	WeekWeatherThis: "7일 일정 + 날씨",
	WeekWeatherNext: "다음 7일 일정 + 날씨",
	ScheduleColumn:  "세부일정",
	WeatherColumn:   "날씨",
	ForecastWeek:    "5일 예보",
	HourlyToday:     "오늘 시간별(3시간)",
	HourlyTomorrow:  "내일 시간별(3시간)",
}

var localeEn = Locale{
	Weekdays:        [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	AllDayMarker:    "(all-day)",
	NoEvents:        "(no events)",
	NoForecast:      "(no forecast)",
	WeekThis:        "This Week",
	WeekNext:        "Next Week",
	WeekWeatherThis: "7 Days + Weather",
	WeekWeatherNext: "Next 7 Days + Weather",
	ScheduleColumn:  "Schedule",
	WeatherColumn:   "Weather",
	ForecastWeek:    "5-Day Forecast",
	HourlyToday:     "Today by Hour (3h)",
	HourlyTomorrow:  "Tomorrow by Hour (3h)",
}

// LocaleByName resolves a config language code; unknown codes fall back
// to Korean.
func LocaleByName(lang string) Locale {
	if lang == "en" {
		return localeEn
	}
	return localeKo
}

// DateShort renders "MM/DD(W)" with the locale weekday name.
func (l Locale) DateShort(t time.Time) string {
	return fmt.Sprintf("%02d/%02d(%s)", int(t.Month()), t.Day(), l.Weekdays[t.Weekday()])
}
