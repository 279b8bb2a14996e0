package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the render API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the render API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as canonical display zone (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday occupies column 0 of the month grid.
	// Supported values: "sunday" (default), "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// Lang selects label language: "ko" (default) or "en".
	Lang string `yaml:"lang" json:"lang"`

	// RefreshCron is a cron-style schedule string (e.g. "*/30 * * * *") used
	// for periodic refresh in serve mode. Empty disables the refresher.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// RefreshView is the view rendered by the periodic refresher:
	// "month", "week" or "week-weather".
	RefreshView string `yaml:"refresh_view" json:"refresh_view"`

	// FontPath points at a TTF/TTC font file. When missing or unreadable the
	// renderer falls back to a built-in bitmap face.
	FontPath string `yaml:"font_path" json:"font_path"`

	// CredentialsDir holds oauth_config.json and token.json for the Google
	// Calendar source.
	CredentialsDir string `yaml:"credentials_dir" json:"credentials_dir"`

	// CacheDir is the base directory for the ICS disk cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// PreviewPath is where the development display writes its PNG.
	PreviewPath string `yaml:"preview_path" json:"preview_path"`

	// Latitude / Longitude select the forecast location.
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`

	// OpenWeatherAPIKey authenticates against OpenWeather. The
	// OPENWEATHER_API_KEY environment variable takes precedence.
	OpenWeatherAPIKey string `yaml:"openweather_api_key" json:"openweather_api_key"`

	// ICS is the list of subscribed ICS sources, merged with Google Calendar.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration. The location
// defaults to Seoul.
func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:8088",
		Timezone:       "Asia/Seoul",
		WeekStart:      "sunday",
		Lang:           "ko",
		RefreshCron:    "",
		RefreshView:    "month",
		FontPath:       "./pic/Font.ttc",
		CredentialsDir: "./credentials",
		CacheDir:       "./cache",
		PreviewPath:    "./cache/preview.png",
		Latitude:       37.5665,
		Longitude:      126.9780,
		ICS:            []ICSConfig{},
		BasicAuth:      nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8088"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Seoul"
	}
	switch c.WeekStart {
	case "sunday", "monday":
	default:
		c.WeekStart = "sunday"
	}
	switch c.Lang {
	case "ko", "en":
	default:
		c.Lang = "ko"
	}
	switch c.RefreshView {
	case "month", "week", "week-weather":
	default:
		c.RefreshView = "month"
	}
	if c.FontPath == "" {
		c.FontPath = "./pic/Font.ttc"
	}
	if c.CredentialsDir == "" {
		c.CredentialsDir = "./credentials"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./cache"
	}
	if c.PreviewPath == "" {
		c.PreviewPath = "./cache/preview.png"
	}
	if c.Latitude == 0 && c.Longitude == 0 {
		c.Latitude = 37.5665
		c.Longitude = 126.9780
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// APIKey resolves the OpenWeather API key, preferring the environment.
func (c *Config) APIKey() string {
	if k := os.Getenv("OPENWEATHER_API_KEY"); k != "" {
		return k
	}
	return c.OpenWeatherAPIKey
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, write a default config with 0600 perms
//     (creating the parent directory) and return the defaults.
//   - If the file exists, read YAML, unmarshal and normalize.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".picalendar-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
