// Package web exposes the render triggers and health probe over HTTP.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"picalendar/internal/battery"
	"picalendar/internal/config"
	"picalendar/internal/log"
)

// RenderService is what the HTTP layer needs from the renderer.
type RenderService interface {
	RenderMonth(ctx context.Context, year int, month time.Month) error
	RenderWeek(ctx context.Context, next bool) error
	RenderWeekWithWeather(ctx context.Context, next bool) error
	RenderWeatherWeek(ctx context.Context) error
	RenderWeatherHourly(ctx context.Context, tomorrow bool) error
}

// Gate serializes panel access. E-paper refreshes take seconds, so a
// second trigger while one runs is rejected rather than queued.
type Gate struct {
	mu sync.Mutex
}

func NewGate() *Gate { return &Gate{} }

// TryAcquire reports whether the caller now holds the panel.
func (g *Gate) TryAcquire() bool { return g.mu.TryLock() }

func (g *Gate) Release() { g.mu.Unlock() }

// Server routes render triggers to the service behind the gate.
type Server struct {
	svc         RenderService
	gate        *Gate
	battery     battery.Reader
	auth        *config.BasicAuthConfig
	previewPath string
}

func NewServer(svc RenderService, gate *Gate, batt battery.Reader, cfg *config.Config) *Server {
	if batt == nil {
		batt = battery.None{}
	}
	return &Server{
		svc:         svc,
		gate:        gate,
		battery:     batt,
		auth:        cfg.BasicAuth,
		previewPath: cfg.PreviewPath,
	}
}

// Handler builds the router. /health stays open; everything else sits
// behind basic auth when credentials are configured.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/preview", s.handlePreview).Methods(http.MethodGet)
	r.HandleFunc("/render/month", s.handleMonth).Methods(http.MethodPost)
	r.HandleFunc("/render/week", s.handleWeek).Methods(http.MethodPost)
	r.HandleFunc("/render/week-weather", s.handleWeekWeather).Methods(http.MethodPost)
	r.HandleFunc("/render/weather/week", s.handleWeatherWeek).Methods(http.MethodPost)
	r.HandleFunc("/render/weather/hourly", s.handleWeatherHourly).Methods(http.MethodPost)
	r.Use(s.basicAuthMiddleware)
	return r
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(s.auth.Username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(s.auth.Password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="picalendar"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	bat, err := s.battery.Read()
	if err != nil {
		log.Debug("battery read failed", "error", err.Error())
		bat = battery.Status{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"time":    time.Now().Format(time.RFC3339),
		"battery": bat,
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.previewPath == "" {
		writeError(w, http.StatusNotFound, "no preview configured")
		return
	}
	http.ServeFile(w, r, s.previewPath)
}

// render runs fn behind the gate and maps the outcome to a status code.
func (s *Server) render(w http.ResponseWriter, view string, fn func() error) {
	if !s.gate.TryAcquire() {
		writeError(w, http.StatusConflict, "render already in progress")
		return
	}
	defer s.gate.Release()

	log.Info("render requested", "view", view)
	if err := fn(); err != nil {
		log.Error("render failed", err, "view", view)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rendered", "view": view})
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	year, month := 0, 0
	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1970 || n > 9999 {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = n
	}
	if v := r.URL.Query().Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			writeError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = n
	}
	ctx := r.Context()
	s.render(w, "month", func() error {
		return s.svc.RenderMonth(ctx, year, time.Month(month))
	})
}

// parseWhich maps the which query param to the next-period flag.
func parseWhich(r *http.Request) (bool, bool) {
	switch r.URL.Query().Get("which") {
	case "", "this":
		return false, true
	case "next":
		return true, true
	}
	return false, false
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	next, ok := parseWhich(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "which must be this or next")
		return
	}
	ctx := r.Context()
	s.render(w, "week", func() error { return s.svc.RenderWeek(ctx, next) })
}

func (s *Server) handleWeekWeather(w http.ResponseWriter, r *http.Request) {
	next, ok := parseWhich(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "which must be this or next")
		return
	}
	ctx := r.Context()
	s.render(w, "week-weather", func() error { return s.svc.RenderWeekWithWeather(ctx, next) })
}

func (s *Server) handleWeatherWeek(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.render(w, "weather-week", func() error { return s.svc.RenderWeatherWeek(ctx) })
}

func (s *Server) handleWeatherHourly(w http.ResponseWriter, r *http.Request) {
	tomorrow := false
	switch r.URL.Query().Get("day") {
	case "", "today":
	case "tomorrow":
		tomorrow = true
	default:
		writeError(w, http.StatusBadRequest, "day must be today or tomorrow")
		return
	}
	ctx := r.Context()
	s.render(w, "weather-hourly", func() error { return s.svc.RenderWeatherHourly(ctx, tomorrow) })
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("response encode failed", "error", err.Error())
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
