// Package gcal is the Google Calendar collaborator: headless OAuth via the
// device authorization grant, token persistence under the credentials
// directory, and read-only event listing across all calendars.
package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "picalendar/internal/log"
)

const (
	scopeCalendarReadonly = "https://www.googleapis.com/auth/calendar.readonly"

	defaultDeviceCodeURL = "https://oauth2.googleapis.com/device/code"
	defaultTokenURL      = "https://oauth2.googleapis.com/token"
)

// oauthConfig is the app registration read from oauth_config.json.
type oauthConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Token is the persisted token.json shape. No expiry is stored; callers
// refresh the access token before use.
type Token struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	TokenURI     string   `json:"token_uri"`
	Scopes       []string `json:"scopes"`
	AccessToken  string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
}

func configPath(dir string) string { return filepath.Join(dir, "oauth_config.json") }
func tokenPath(dir string) string  { return filepath.Join(dir, "token.json") }

func loadOAuthConfig(dir string) (oauthConfig, error) {
	var cfg oauthConfig
	data, err := os.ReadFile(configPath(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf(
				"gcal: missing %s; create it as {\"client_id\": \"...\", \"client_secret\": \"...\"}",
				configPath(dir))
		}
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("gcal: bad oauth_config.json: %w", err)
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return cfg, errors.New("gcal: oauth_config.json must contain client_id and client_secret")
	}
	return cfg, nil
}

// LoadToken reads token.json from the credentials directory.
func LoadToken(dir string) (*Token, error) {
	data, err := os.ReadFile(tokenPath(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.New("gcal: credentials missing; run 'picalendar auth' once to authorize")
		}
		return nil, err
	}
	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("gcal: bad token.json: %w", err)
	}
	return &tok, nil
}

func saveToken(dir string, tok *Token) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(tokenPath(dir), data, 0o600)
}

// deviceCodeResponse is Google's device authorization response.
type deviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURL string `json:"verification_url"`
	VerificationURI string `json:"verification_uri"`
	Interval        int    `json:"interval"`
	ExpiresIn       int    `json:"expires_in"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Error        string `json:"error"`
}

// Authorize runs the OAuth device flow: it prints a verification URL and a
// user code, then polls the token endpoint until the user approves or the
// code expires. On success token.json is written under dir.
//
// The device grant avoids redirect-URI and local-browser issues on a
// headless Raspberry Pi.
func Authorize(ctx context.Context, dir string) error {
	return authorizeWith(ctx, dir, defaultDeviceCodeURL, defaultTokenURL, os.Stdout)
}

func authorizeWith(ctx context.Context, dir, deviceCodeURL, tokenURL string, out *os.File) error {
	cfg, err := loadOAuthConfig(dir)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 20 * time.Second}

	resp, err := client.PostForm(deviceCodeURL, url.Values{
		"client_id": {cfg.ClientID},
		"scope":     {scopeCalendarReadonly},
	})
	if err != nil {
		return fmt.Errorf("gcal: device code request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gcal: device code request returned %s", resp.Status)
	}

	var dc deviceCodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&dc); err != nil {
		return fmt.Errorf("gcal: device code decode failed: %w", err)
	}

	verification := dc.VerificationURL
	if verification == "" {
		verification = dc.VerificationURI
	}
	interval := dc.Interval
	if interval <= 0 {
		interval = 5
	}
	expiresIn := dc.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 1800
	}

	fmt.Fprintln(out, "\n[Google OAuth - Device Flow]")
	fmt.Fprintln(out, "Open this URL on your phone/PC:")
	fmt.Fprintln(out, verification)
	fmt.Fprintln(out, "Enter this code:")
	fmt.Fprintln(out, dc.UserCode)
	fmt.Fprintln(out, "\nWaiting for authorization...")

	deadline := time.Now().Add(time.Duration(expiresIn) * time.Second)
	var lastErr string

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(interval) * time.Second):
		}

		tr, err := client.PostForm(tokenURL, url.Values{
			"client_id":     {cfg.ClientID},
			"client_secret": {cfg.ClientSecret},
			"device_code":   {dc.DeviceCode},
			"grant_type":    {"urn:ietf:params:oauth:grant-type:device_code"},
		})
		if err != nil {
			return fmt.Errorf("gcal: token poll failed: %w", err)
		}

		var tok tokenResponse
		decodeErr := json.NewDecoder(tr.Body).Decode(&tok)
		tr.Body.Close()

		if tr.StatusCode == http.StatusOK && decodeErr == nil && tok.AccessToken != "" {
			saved := &Token{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				TokenURI:     tokenURL,
				Scopes:       []string{scopeCalendarReadonly},
				AccessToken:  tok.AccessToken,
				RefreshToken: tok.RefreshToken,
			}
			if err := saveToken(dir, saved); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nAuth OK. Wrote: %s\n", tokenPath(dir))
			return nil
		}

		lastErr = tok.Error
		switch tok.Error {
		case "authorization_pending":
			continue
		case "slow_down":
			interval += 2
			continue
		default:
			return fmt.Errorf("gcal: oauth failed: %s", tok.Error)
		}
	}

	return fmt.Errorf("gcal: oauth timed out, last error: %s", lastErr)
}

// refresh exchanges the refresh token for a fresh access token. token.json
// stores no expiry, so the client refreshes at the start of each fetch.
func (t *Token) refresh(ctx context.Context, client *http.Client, tokenURL string) error {
	if t.RefreshToken == "" {
		return errors.New("gcal: token has no refresh_token; run 'picalendar auth' again")
	}
	if tokenURL == "" {
		tokenURL = t.TokenURI
	}
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}

	form := url.Values{
		"client_id":     {t.ClientID},
		"client_secret": {t.ClientSecret},
		"refresh_token": {t.RefreshToken},
		"grant_type":    {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("gcal: token refresh failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gcal: token refresh returned %s", resp.Status)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("gcal: token refresh decode failed: %w", err)
	}
	if tok.AccessToken == "" {
		return errors.New("gcal: token refresh returned no access token")
	}

	t.AccessToken = tok.AccessToken
	appLog.Debug("gcal: access token refreshed")
	return nil
}
