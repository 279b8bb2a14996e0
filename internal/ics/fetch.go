// Package ics is the ICS-subscription calendar collaborator: it fetches
// feeds with an HTTP disk cache, parses VEVENTs and expands recurrences
// into flat events for the renderer.
package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "picalendar/internal/log"
)

// Feed is a single ICS subscription.
type Feed struct {
	ID  string
	URL string
}

// cacheMeta holds HTTP cache metadata for one feed URL.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// fetcher downloads feed bodies honoring ETag / Last-Modified, with a
// disk-backed cache keyed by a hash of the URL. On network errors or non-OK
// statuses it falls back to the cached body when one exists, so a flaky
// feed degrades to stale data instead of an empty calendar.
type fetcher struct {
	client   *http.Client
	cacheDir string
}

func newFetcher(cacheDir string) *fetcher {
	if cacheDir == "" {
		cacheDir = "./cache/ics"
	}
	return &fetcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
	}
}

func (f *fetcher) fetch(ctx context.Context, feed Feed) ([]byte, error) {
	if feed.URL == "" {
		return nil, errors.New("ics: feed URL is empty")
	}

	dir := f.cacheDirFor(feed.URL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	meta := f.loadMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body.ics"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			appLog.Warn("ics: network error, using cached body", err, "id", feed.ID, "url", redactURL(feed.URL))
			return cached, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		f.saveCache(dir, cacheMeta{
			URL:          feed.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}, body, feed)
		appLog.Info("ics: feed fetched", "id", feed.ID, "url", redactURL(feed.URL), "bytes", len(body))
		return body, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return nil, errors.New("ics: got 304 but no cached body")
		}
		appLog.Debug("ics: feed not modified, using cache", "id", feed.ID)
		return cached, nil

	default:
		if len(cached) > 0 {
			appLog.Warn("ics: non-OK status, using cached body",
				errors.New(resp.Status), "id", feed.ID, "url", redactURL(feed.URL))
			return cached, nil
		}
		return nil, errors.New("ics: fetch failed: " + resp.Status)
	}
}

func (f *fetcher) cacheDirFor(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *fetcher) loadMeta(dir string) cacheMeta {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta
	}
	_ = json.Unmarshal(data, &meta)
	return meta
}

func (f *fetcher) saveCache(dir string, meta cacheMeta, body []byte, feed Feed) {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		appLog.Warn("ics: cache body write failed", err, "id", feed.ID)
		return
	}
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600); err != nil {
		appLog.Warn("ics: cache meta write failed", err, "id", feed.ID)
	}
}

// redactURL hides path and query of a feed URL for logging; private ICS
// URLs routinely carry access tokens.
func redactURL(u string) string {
	i := strings.Index(u, "://")
	if i < 0 {
		return "ics://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		return u[:i+3+j] + "/...(redacted)"
	}
	return u + "/...(redacted)"
}
