// Command picalendar renders calendar and weather views to a 7.5" black/red
// e-paper panel, either once from the command line or continuously as a
// small HTTP service with a cron refresher.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"picalendar/internal/agenda"
	"picalendar/internal/battery"
	"picalendar/internal/config"
	"picalendar/internal/epd"
	"picalendar/internal/gcal"
	"picalendar/internal/ics"
	"picalendar/internal/log"
	"picalendar/internal/render"
	"picalendar/internal/weather"
	"picalendar/internal/web"
)

const usage = `usage: picalendar [flags] <command>

commands:
  auth                  run the Google Calendar device authorization flow
  month                 render the month grid (-year, -month to override)
  week                  render this week's agenda
  week-next             render next week's agenda
  week-weather          render 7 days of schedule + weather from today
  week-next-weather     render the following 7 days of schedule + weather
  weather-week          render the 5-day forecast
  weather-hourly        render 3-hourly forecast (-day today|tomorrow)
  serve                 run the HTTP render API with the cron refresher

flags:
  -config path          config file (default config.yaml)
  -listen addr          override the listen address in serve mode
  -render-only          write a PNG preview instead of driving the panel
`

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	listen := flag.String("listen", "", "listen address override for serve mode")
	renderOnly := flag.Bool("render-only", false, "write a PNG preview instead of driving the panel")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if err := run(*configPath, *listen, *renderOnly, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "picalendar:", err)
		os.Exit(1)
	}
}

func run(configPath, listen string, renderOnly bool, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if listen != "" {
		cfg.Listen = listen
	}

	command := "serve"
	if len(args) > 0 {
		command = args[0]
	}

	if command == "auth" {
		return gcal.Authorize(ctx, cfg.CredentialsDir)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}

	renderer, closeDisplay := buildRenderer(cfg, loc, renderOnly)
	defer closeDisplay()

	switch command {
	case "month":
		fs := flag.NewFlagSet("month", flag.ExitOnError)
		year := fs.Int("year", 0, "year to render (default: current)")
		month := fs.Int("month", 0, "month to render, 1-12 (default: current)")
		fs.Parse(args[1:])
		if *month < 0 || *month > 12 {
			return fmt.Errorf("month must be 1-12, got %d", *month)
		}
		return renderer.RenderMonth(ctx, *year, time.Month(*month))
	case "week":
		return renderer.RenderWeek(ctx, false)
	case "week-next":
		return renderer.RenderWeek(ctx, true)
	case "week-weather":
		return renderer.RenderWeekWithWeather(ctx, false)
	case "week-next-weather":
		return renderer.RenderWeekWithWeather(ctx, true)
	case "weather-week":
		return renderer.RenderWeatherWeek(ctx)
	case "weather-hourly":
		fs := flag.NewFlagSet("weather-hourly", flag.ExitOnError)
		day := fs.String("day", "today", "today or tomorrow")
		fs.Parse(args[1:])
		switch *day {
		case "today":
			return renderer.RenderWeatherHourly(ctx, false)
		case "tomorrow":
			return renderer.RenderWeatherHourly(ctx, true)
		default:
			return fmt.Errorf("day must be today or tomorrow, got %q", *day)
		}
	case "serve":
		return serve(ctx, cfg, renderer)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// buildRenderer wires the display, fonts, locale and data sources. When the
// panel hardware is absent or -render-only is set, a PNG preview display
// stands in so every view still works on a development host.
func buildRenderer(cfg *config.Config, loc *time.Location, renderOnly bool) (*render.Renderer, func()) {
	var display render.Display
	closeDisplay := func() {}
	if renderOnly {
		display = epd.NewFileDisplay(cfg.PreviewPath)
	} else {
		panel, err := epd.Open()
		if err != nil {
			log.Warn("panel unavailable, writing preview instead", err, "path", cfg.PreviewPath)
			display = epd.NewFileDisplay(cfg.PreviewPath)
		} else {
			display = panel
			closeDisplay = func() { panel.Close() }
		}
	}

	sources := []agenda.Source{gcal.NewClient(cfg.CredentialsDir, loc)}
	if len(cfg.ICS) > 0 {
		feeds := make([]ics.Feed, 0, len(cfg.ICS))
		for _, f := range cfg.ICS {
			feeds = append(feeds, ics.Feed{ID: f.ID, URL: f.URL})
		}
		sources = append(sources, ics.NewClient(feeds, cfg.CacheDir, loc))
	}

	return &render.Renderer{
		Display:   display,
		Fonts:     render.LoadFonts(cfg.FontPath),
		Locale:    render.LocaleByName(cfg.Lang),
		Location:  loc,
		WeekStart: render.ParseWeekStart(cfg.WeekStart),
		Events:    &agenda.MultiSource{Sources: sources},
		Weather:   weather.NewClient(cfg.APIKey(), cfg.Latitude, cfg.Longitude, weatherLang(cfg.Lang), loc),
		Summarize: weather.Summarize,
	}, closeDisplay
}

// weatherLang maps the UI language to OpenWeather's description codes.
func weatherLang(lang string) string {
	if lang == "ko" {
		return "kr"
	}
	return lang
}

func serve(ctx context.Context, cfg *config.Config, renderer *render.Renderer) error {
	gate := web.NewGate()
	server := web.NewServer(renderer, gate, battery.NewPiSugar(), cfg)

	var scheduler *cron.Cron
	if cfg.RefreshCron != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.RefreshCron, func() {
			refresh(ctx, cfg.RefreshView, renderer, gate)
		})
		if err != nil {
			return fmt.Errorf("refresh schedule %q: %w", cfg.RefreshCron, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		log.Info("refresher scheduled", "cron", cfg.RefreshCron, "view", cfg.RefreshView)
	}

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: server.Handler(),
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.Listen)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// refresh is the cron body. A tick that collides with a manual render is
// skipped; the next tick catches up.
func refresh(ctx context.Context, view string, renderer *render.Renderer, gate *web.Gate) {
	if !gate.TryAcquire() {
		log.Info("refresh tick skipped, render in progress", "view", view)
		return
	}
	defer gate.Release()

	var err error
	switch view {
	case "week":
		err = renderer.RenderWeek(ctx, false)
	case "week-weather":
		err = renderer.RenderWeekWithWeather(ctx, false)
	default:
		err = renderer.RenderMonth(ctx, 0, 0)
	}
	if err != nil {
		log.Error("scheduled refresh failed", err, "view", view)
		return
	}
	log.Info("scheduled refresh done", "view", view)
}
