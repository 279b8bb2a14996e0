package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picalendar/internal/config"
)

type stubService struct {
	calls []string
	err   error
}

func (s *stubService) RenderMonth(_ context.Context, year int, month time.Month) error {
	s.calls = append(s.calls, "month")
	return s.err
}

func (s *stubService) RenderWeek(_ context.Context, next bool) error {
	if next {
		s.calls = append(s.calls, "week-next")
	} else {
		s.calls = append(s.calls, "week")
	}
	return s.err
}

func (s *stubService) RenderWeekWithWeather(_ context.Context, next bool) error {
	s.calls = append(s.calls, "week-weather")
	return s.err
}

func (s *stubService) RenderWeatherWeek(context.Context) error {
	s.calls = append(s.calls, "weather-week")
	return s.err
}

func (s *stubService) RenderWeatherHourly(_ context.Context, tomorrow bool) error {
	s.calls = append(s.calls, "weather-hourly")
	return s.err
}

func newTestServer(svc *stubService, cfg *config.Config) (*Server, *Gate) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	gate := NewGate()
	return NewServer(svc, gate, nil, cfg), gate
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(&stubService{}, nil)
	rec := do(t, s, http.MethodGet, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"battery"`)
}

func TestRenderRoutes(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"/render/month", "month"},
		{"/render/month?year=2026&month=9", "month"},
		{"/render/week", "week"},
		{"/render/week?which=next", "week-next"},
		{"/render/week-weather?which=this", "week-weather"},
		{"/render/weather/week", "weather-week"},
		{"/render/weather/hourly?day=tomorrow", "weather-hourly"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			svc := &stubService{}
			s, _ := newTestServer(svc, nil)
			rec := do(t, s, http.MethodPost, tt.target)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			require.Len(t, svc.calls, 1)
			assert.Equal(t, tt.want, svc.calls[0])
		})
	}
}

func TestRenderRejectsBadParams(t *testing.T) {
	targets := []string{
		"/render/month?year=abc",
		"/render/month?month=13",
		"/render/month?month=0",
		"/render/week?which=someday",
		"/render/week-weather?which=later",
		"/render/weather/hourly?day=yesterday",
	}
	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			svc := &stubService{}
			s, _ := newTestServer(svc, nil)
			rec := do(t, s, http.MethodPost, target)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, svc.calls)
		})
	}
}

func TestRenderRequiresPost(t *testing.T) {
	s, _ := newTestServer(&stubService{}, nil)
	rec := do(t, s, http.MethodGet, "/render/month")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRenderBusyReturnsConflict(t *testing.T) {
	svc := &stubService{}
	s, gate := newTestServer(svc, nil)

	require.True(t, gate.TryAcquire())
	defer gate.Release()

	rec := do(t, s, http.MethodPost, "/render/month")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, svc.calls)
}

func TestRenderErrorReturns500(t *testing.T) {
	svc := &stubService{err: errors.New("panel detached")}
	s, gate := newTestServer(svc, nil)

	rec := do(t, s, http.MethodPost, "/render/week")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "panel detached")

	// The gate must be released after a failed render.
	assert.True(t, gate.TryAcquire())
	gate.Release()
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	svc := &stubService{}
	s, _ := newTestServer(svc, cfg)

	// Health stays open.
	rec := do(t, s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Render without credentials is rejected.
	rec = do(t, s, http.MethodPost, "/render/month")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, svc.calls)

	// Wrong password is rejected.
	req := httptest.NewRequest(http.MethodPost, "/render/month", nil)
	req.SetBasicAuth("admin", "nope")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Correct credentials pass.
	req = httptest.NewRequest(http.MethodPost, "/render/month", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"month"}, svc.calls)
}
