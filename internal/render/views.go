package render

import (
	"context"
	"fmt"
	"image"
	"sort"
	"time"

	"picalendar/internal/agenda"
	"picalendar/internal/log"
	"picalendar/internal/model"
)

// Display is the panel the renderer commits to. The SPI driver and the
// PNG preview writer both satisfy it.
type Display interface {
	Width() int
	Height() int
	Commit(black, red *image.Gray) error
	Sleep() error
}

// EventSource supplies calendar events for a half-open time window.
type EventSource interface {
	Name() string
	FetchEvents(ctx context.Context, start, end time.Time) ([]model.Event, error)
}

// ForecastSource supplies the rolling 3-hour forecast.
type ForecastSource interface {
	FetchForecast(ctx context.Context) ([]model.WeatherSample, error)
}

// summarizer matches weather.Summarize.
type summarizer func([]model.WeatherSample, agenda.Window) map[agenda.Date]model.DaySummary

// Renderer composes the calendar and weather views and pushes them to the
// display. Now is injectable so view windows are testable.
type Renderer struct {
	Display   Display
	Fonts     *FontSet
	Locale    Locale
	Location  *time.Location
	WeekStart WeekStart
	Now       func() time.Time
	Events    EventSource
	Weather   ForecastSource
	Fit       Fitter

	Summarize summarizer
}

func (r *Renderer) now() time.Time {
	if r.Now != nil {
		return r.Now().In(r.Location)
	}
	return time.Now().In(r.Location)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// fetchEvents degrades to an empty list when the source fails: a stale
// panel without events still beats no refresh at all.
func (r *Renderer) fetchEvents(ctx context.Context, w agenda.Window) []model.Event {
	if r.Events == nil {
		return nil
	}
	events, err := r.Events.FetchEvents(ctx, w.Start, w.End)
	if err != nil {
		log.Warn("event fetch failed, rendering without events", err, "source", r.Events.Name())
		return nil
	}
	return events
}

func (r *Renderer) fetchSummaries(ctx context.Context, w agenda.Window) map[agenda.Date]model.DaySummary {
	if r.Weather == nil || r.Summarize == nil {
		return nil
	}
	samples, err := r.Weather.FetchForecast(ctx)
	if err != nil {
		log.Warn("forecast fetch failed, rendering without weather", err)
		return nil
	}
	return r.Summarize(samples, w)
}

func (r *Renderer) commit(c *Canvas) error {
	if err := r.Display.Commit(c.Black, c.Red); err != nil {
		return fmt.Errorf("display commit: %w", err)
	}
	if err := r.Display.Sleep(); err != nil {
		log.Warn("display sleep failed", err)
	}
	return nil
}

func weekendInk(wd time.Weekday) Ink {
	if wd == time.Sunday || wd == time.Saturday {
		return InkRed
	}
	return InkBlack
}

// RenderMonth draws the month grid. Zero year or month means the current
// month in the display timezone.
func (r *Renderer) RenderMonth(ctx context.Context, year int, month time.Month) error {
	now := r.now()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = now.Month()
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, r.Location)
	win := agenda.Window{Start: first, End: first.AddDate(0, 1, 0)}
	byDay := agenda.Aggregate(r.fetchEvents(ctx, win), win, agenda.Options{
		AllDayMarker: r.Locale.AllDayMarker,
		Clean:        true,
		MaxPerDay:    3,
		MaxRunes:     18,
	})

	grid := BuildMonthGrid(year, month, r.WeekStart)
	if err := validateGrid(grid); err != nil {
		return err
	}
	w, h := r.Display.Width(), r.Display.Height()
	g, err := newMonthGeometry(w, h, len(grid))
	if err != nil {
		return err
	}

	canvas := NewCanvas(w, h)

	// Weekday header, weekends routed to the red layer.
	for c := 0; c < 7; c++ {
		wd := time.Weekday((int(r.WeekStart.first()) + c) % 7)
		canvas.Text(weekendInk(wd), g.colX(c)+5, g.headerY, r.Fonts.Medium, r.Locale.Weekdays[wd])
	}
	canvas.HLine(InkBlack, g.marginX, g.right, g.lineY, 2)

	gridBottom := g.gridTop + len(grid)*g.cellH
	for row := 1; row <= len(grid); row++ {
		canvas.HLine(InkBlack, g.marginX, g.right, g.gridTop+row*g.cellH, 1)
	}
	for c := 0; c <= 6; c++ {
		canvas.VLine(InkBlack, g.colX(c), g.gridTop, gridBottom, 1)
	}
	canvas.VLine(InkBlack, g.right, g.gridTop, gridBottom, 1)

	for rowIdx, row := range grid {
		for c, day := range row {
			if day == 0 {
				continue
			}
			x := g.colX(c)
			y := g.gridTop + rowIdx*g.cellH
			wd := time.Weekday((int(r.WeekStart.first()) + c) % 7)
			canvas.Text(weekendInk(wd), x+5, y+4, r.Fonts.Day, fmt.Sprintf("%d", day))

			date := agenda.Date{Year: year, Month: month, Day: day}
			for i, line := range byDay[date] {
				fitted := r.Fit.Fit(line, r.Fonts.Small, g.colWidth(c)-8)
				canvas.Text(InkBlack, x+3, y+26+i*14, r.Fonts.Small, fitted)
			}
		}
	}

	return r.commit(canvas)
}

// weekMonday returns the Monday 00:00 opening the week containing t. The
// agenda views always run Monday to Sunday regardless of the grid setting.
func weekMonday(t time.Time) time.Time {
	return midnight(t).AddDate(0, 0, -((int(t.Weekday()) + 6) % 7))
}

// RenderWeek draws the Monday-anchored agenda for this week, or the next
// one when next is set. Event labels keep their time prefixes here.
func (r *Renderer) RenderWeek(ctx context.Context, next bool) error {
	now := r.now()
	start := weekMonday(now)
	title := r.Locale.WeekThis
	if next {
		start = start.AddDate(0, 0, 7)
		title = r.Locale.WeekNext
	}
	win := agenda.Window{Start: start, End: start.AddDate(0, 0, 7)}

	byDay := agenda.Aggregate(r.fetchEvents(ctx, win), win, agenda.Options{
		AllDayMarker: r.Locale.AllDayMarker,
		MaxPerDay:    4,
	})

	w, h := r.Display.Width(), r.Display.Height()
	canvas := NewCanvas(w, h)

	last := start.AddDate(0, 0, 6)
	canvas.Text(InkBlack, 20, 8, r.Fonts.Title,
		fmt.Sprintf("%s (%02d/%02d~%02d/%02d)", title, int(start.Month()), start.Day(), int(last.Month()), last.Day()))

	y := 54
	for i := 0; i < 7; i++ {
		d := start.AddDate(0, 0, i)
		ink := InkBlack
		if sameDate(d, now) {
			ink = InkRed
		}
		canvas.Text(ink, 20, y, r.Fonts.Day, r.Locale.DateShort(d))
		y += 26

		lines := byDay[agenda.DateOf(d)]
		if len(lines) == 0 {
			lines = []string{r.Locale.NoEvents}
		}
		for _, line := range lines {
			canvas.Text(ink, 40, y, r.Fonts.Line, r.Fit.Fit(line, r.Fonts.Line, w-60))
			y += 20
		}
		y += 6
		if y > h-24 {
			break
		}
	}

	return r.commit(canvas)
}

// RenderWeekWithWeather draws the combined schedule and forecast table.
// The window rolls from today rather than snapping to a week boundary.
func (r *Renderer) RenderWeekWithWeather(ctx context.Context, next bool) error {
	now := r.now()
	start := midnight(now)
	title := r.Locale.WeekWeatherThis
	if next {
		start = start.AddDate(0, 0, 7)
		title = r.Locale.WeekWeatherNext
	}
	win := agenda.Window{Start: start, End: start.AddDate(0, 0, 7)}

	byDay := agenda.Aggregate(r.fetchEvents(ctx, win), win, agenda.Options{
		AllDayMarker: r.Locale.AllDayMarker,
		Clean:        true,
		MaxPerDay:    1,
	})
	summaries := r.fetchSummaries(ctx, win)

	w, h := r.Display.Width(), r.Display.Height()
	canvas := NewCanvas(w, h)

	const margin = 10
	splitX := w * 72 / 100

	canvas.Rect(InkBlack, margin, margin, w-margin, h-margin, 2)

	last := start.AddDate(0, 0, 6)
	canvas.Text(InkRed, margin+10, margin+8, r.Fonts.Wide,
		fmt.Sprintf("%s (%02d/%02d~%02d/%02d)", title, int(start.Month()), start.Day(), int(last.Month()), last.Day()))

	contentTop := margin + 52
	canvas.HLine(InkBlack, margin, w-margin, contentTop, 2)
	canvas.VLine(InkBlack, splitX, contentTop, h-margin, 2)

	canvas.Text(InkBlack, margin+10, contentTop+8, r.Fonts.Body, r.Locale.ScheduleColumn)
	canvas.Text(InkBlack, splitX+10, contentTop+8, r.Fonts.Body, r.Locale.WeatherColumn)
	rowTop := contentTop + 44
	canvas.HLine(InkBlack, margin, w-margin, rowTop, 1)

	rowH := (h - margin - rowTop) / 7
	eventX := margin + 135
	for i := 0; i < 7; i++ {
		y := rowTop + i*rowH
		if i < 6 {
			canvas.HLine(InkBlack, margin, w-margin, y+rowH, 1)
		}

		d := start.AddDate(0, 0, i)
		ink := InkBlack
		if sameDate(d, now) {
			ink = InkRed
		}
		date := agenda.DateOf(d)

		canvas.Text(ink, margin+10, y+6, r.Fonts.Body, r.Locale.DateShort(d))

		line := r.Locale.NoEvents
		if lines := byDay[date]; len(lines) > 0 {
			line = lines[0]
		}
		canvas.Text(ink, eventX, y+6, r.Fonts.Body,
			r.Fit.Fit(line, r.Fonts.Body, splitX-eventX-10))

		wx := r.Locale.NoForecast
		if s, ok := summaries[date]; ok && s.HasWeather() {
			if s.MinC != nil && s.MaxC != nil {
				wx = fmt.Sprintf("%.0f~%.0f°C %s", *s.MinC, *s.MaxC, s.Description)
			} else {
				wx = s.Description
			}
		}
		canvas.Text(ink, splitX+10, y+6, r.Fonts.Body,
			r.Fit.Fit(wx, r.Fonts.Body, w-margin-(splitX+10)-6))
	}

	return r.commit(canvas)
}

// RenderWeatherWeek draws the five day forecast list.
func (r *Renderer) RenderWeatherWeek(ctx context.Context) error {
	now := r.now()
	win := agenda.Window{Start: midnight(now), End: midnight(now).AddDate(0, 0, 6)}
	summaries := r.fetchSummaries(ctx, win)

	dates := make([]agenda.Date, 0, len(summaries))
	for d := range summaries {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Less(dates[j]) })
	if len(dates) > 5 {
		dates = dates[:5]
	}

	w, h := r.Display.Width(), r.Display.Height()
	canvas := NewCanvas(w, h)
	canvas.Text(InkBlack, 20, 10, r.Fonts.Title, r.Locale.ForecastWeek)

	y := 58
	if len(dates) == 0 {
		canvas.Text(InkBlack, 20, y, r.Fonts.Medium, r.Locale.NoForecast)
	}
	for _, date := range dates {
		s := summaries[date]
		d := time.Date(date.Year, date.Month, date.Day, 0, 0, 0, 0, r.Location)
		line := r.Locale.DateShort(d)
		if s.MinC != nil && s.MaxC != nil {
			line = fmt.Sprintf("%s %.0f~%.0f°C %s", line, *s.MinC, *s.MaxC, s.Description)
		} else if s.Description != "" {
			line = line + " " + s.Description
		}
		canvas.Text(InkBlack, 20, y, r.Fonts.Medium, r.Fit.Fit(line, r.Fonts.Medium, w-40))
		y += 30
		if y > h-30 {
			break
		}
	}

	return r.commit(canvas)
}

// RenderWeatherHourly draws up to eight 3-hour forecast steps. "Today"
// means the next 24 hours from the current hour, crossing midnight if
// needed; the forecast API only returns future points, so a calendar-day
// window would go empty in the evening. "Tomorrow" is midnight-anchored.
func (r *Renderer) RenderWeatherHourly(ctx context.Context, tomorrow bool) error {
	now := r.now()
	base := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	title := r.Locale.HourlyToday
	if tomorrow {
		base = midnight(now).AddDate(0, 0, 1)
		title = r.Locale.HourlyTomorrow
	}
	end := base.Add(24 * time.Hour)

	var samples []model.WeatherSample
	if r.Weather != nil {
		all, err := r.Weather.FetchForecast(ctx)
		if err != nil {
			log.Warn("forecast fetch failed, rendering without weather", err)
		}
		for _, s := range all {
			if s.TempC == nil {
				continue
			}
			at := s.At.In(r.Location)
			if !at.Before(base) && at.Before(end) {
				samples = append(samples, s)
			}
		}
	}
	if len(samples) > 8 {
		samples = samples[:8]
	}

	w, h := r.Display.Width(), r.Display.Height()
	canvas := NewCanvas(w, h)
	canvas.Text(InkBlack, 20, 10, r.Fonts.Title,
		fmt.Sprintf("%s %s", title, r.Locale.DateShort(base)))

	y := 58
	if len(samples) == 0 {
		canvas.Text(InkBlack, 20, y, r.Fonts.Medium, r.Locale.NoForecast)
	}
	for _, s := range samples {
		at := s.At.In(r.Location)
		line := fmt.Sprintf("%s  %.0f°C", at.Format("15:04"), *s.TempC)
		if s.Description != "" {
			line += "  " + s.Description
		}
		canvas.Text(InkBlack, 20, y, r.Fonts.Medium, r.Fit.Fit(line, r.Fonts.Medium, w-40))
		y += 30
		if y > h-30 {
			break
		}
	}

	return r.commit(canvas)
}
