// Package weather fetches the OpenWeather 5-day/3-hour forecast and
// reduces it into per-date summaries.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	appLog "picalendar/internal/log"
	"picalendar/internal/model"
)

const forecastURL = "https://api.openweathermap.org/data/2.5/forecast"

// Client talks to the OpenWeather free forecast API (5 days, 3-hour steps).
type Client struct {
	APIKey   string
	Lat, Lon float64
	// Lang is the OpenWeather description language code ("kr", "en").
	Lang string
	// Location is the display timezone samples are converted into.
	Location *time.Location

	HTTPClient *http.Client
	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

// NewClient builds a forecast client with the default 15 s timeout.
func NewClient(apiKey string, lat, lon float64, lang string, loc *time.Location) *Client {
	return &Client{
		APIKey:     apiKey,
		Lat:        lat,
		Lon:        lon,
		Lang:       lang,
		Location:   loc,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// forecastResponse mirrors the subset of the OpenWeather payload we read.
type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp *float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"list"`
}

// FetchForecast returns forecast samples in the display timezone.
// A row without a timestamp is skipped; a row without a temperature is
// kept with TempC nil so the aggregation can still count its description.
func (c *Client) FetchForecast(ctx context.Context) ([]model.WeatherSample, error) {
	if c.APIKey == "" {
		return nil, errors.New("weather: missing OpenWeather API key")
	}

	base := c.BaseURL
	if base == "" {
		base = forecastURL
	}
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.4f", c.Lat))
	q.Set("lon", fmt.Sprintf("%.4f", c.Lon))
	q.Set("appid", c.APIKey)
	q.Set("units", "metric")
	if c.Lang != "" {
		q.Set("lang", c.Lang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather: forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather: unexpected status %s", resp.Status)
	}

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("weather: decode failed: %w", err)
	}

	loc := c.Location
	if loc == nil {
		loc = time.Local
	}

	samples := make([]model.WeatherSample, 0, len(payload.List))
	for _, row := range payload.List {
		if row.Dt == 0 {
			appLog.Warn("weather: skipping sample without timestamp", nil)
			continue
		}
		s := model.WeatherSample{
			At:    time.Unix(row.Dt, 0).In(loc),
			TempC: row.Main.Temp,
		}
		if len(row.Weather) > 0 {
			s.Description = row.Weather[0].Description
		}
		samples = append(samples, s)
	}

	appLog.Info("weather: forecast fetched", "samples", len(samples))
	return samples, nil
}
