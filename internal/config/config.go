// Package config loads agentpark settings.
//
// Values are layered: built-in defaults, then an optional TOML file, then
// environment variables. Command-line flags are applied on top by the cmd
// package.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/teemow/agentpark/internal/expand"
	"github.com/teemow/agentpark/internal/logging"
	"github.com/teemow/agentpark/internal/weather"
)

// Config holds all agentpark settings.
type Config struct {
	// NYTAPIKey enables the news section.
	NYTAPIKey string `toml:"nyt_api_key" env:"NYT_API_KEY"`

	// WeatherAPIKey enables the weather section (OpenWeatherMap).
	WeatherAPIKey string `toml:"weather_api_key" env:"WEATHER_API_KEY"`

	// HomeLat and HomeLon locate the weather report.
	HomeLat float64 `toml:"home_lat" env:"HOME_LAT"`
	HomeLon float64 `toml:"home_lon" env:"HOME_LON"`

	// TimeZone is an IANA zone name for the briefing date and event times.
	// Empty means the system zone.
	TimeZone string `toml:"timezone" env:"AGENTPARK_TIMEZONE"`

	// CredentialsFile is the Google OAuth client secrets file.
	CredentialsFile string `toml:"google_credentials_file" env:"GOOGLE_CREDENTIALS_FILE"`

	// TokenDir holds the cached per-account tokens.
	TokenDir string `toml:"token_dir" env:"AGENTPARK_TOKEN_DIR"`

	// OAuthCallbackPort is the loopback port for the consent flow; 0 picks
	// a free port.
	OAuthCallbackPort int `toml:"oauth_callback_port" env:"AGENTPARK_OAUTH_CALLBACK_PORT"`

	// GeminiAPIKey enables summary expansion.
	GeminiAPIKey string `toml:"gemini_api_key" env:"GEMINI_API_KEY"`

	// ExpandModel is the Gemini model used for expansion.
	ExpandModel string `toml:"expand_model" env:"AGENTPARK_EXPAND_MODEL"`

	// Addr is the HTTP listen address of `serve`.
	Addr string `toml:"addr" env:"AGENTPARK_ADDR"`

	LogLevel  string `toml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `toml:"log_format" env:"LOG_FORMAT"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		HomeLat:         weather.DefaultLat,
		HomeLon:         weather.DefaultLon,
		CredentialsFile: "credentials.json",
		ExpandModel:     expand.DefaultModel,
		Addr:            ":8000",
		LogLevel:        "info",
		LogFormat:       logging.FormatText,
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/agentpark/config.toml (or the
// platform equivalent).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "agentpark", "config.toml")
}

// Load builds the configuration from defaults, the TOML file at path and the
// environment. An empty path reads DefaultPath if it exists; an explicit path
// must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

// mergeFile overlays the values present in a TOML file.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() {
	c.NYTAPIKey = strings.TrimSpace(c.NYTAPIKey)
	c.WeatherAPIKey = strings.TrimSpace(c.WeatherAPIKey)
	c.GeminiAPIKey = strings.TrimSpace(c.GeminiAPIKey)
	c.TimeZone = strings.TrimSpace(c.TimeZone)
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

// Validate checks value ranges and names.
func (c Config) Validate() error {
	var errs []error

	if c.HomeLat < -90 || c.HomeLat > 90 {
		errs = append(errs, fmt.Errorf("home_lat %v out of range [-90, 90]", c.HomeLat))
	}
	if c.HomeLon < -180 || c.HomeLon > 180 {
		errs = append(errs, fmt.Errorf("home_lon %v out of range [-180, 180]", c.HomeLon))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.OAuthCallbackPort < 0 || c.OAuthCallbackPort > 65535 {
		errs = append(errs, fmt.Errorf("oauth_callback_port %d out of range", c.OAuthCallbackPort))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != logging.FormatText && c.LogFormat != logging.FormatJSON {
		errs = append(errs, fmt.Errorf("log_format must be %q or %q, got %q", logging.FormatText, logging.FormatJSON, c.LogFormat))
	}

	return errors.Join(errs...)
}

// Location resolves TimeZone; empty means time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// ExpansionEnabled reports whether summaries should be expanded.
func (c Config) ExpansionEnabled() bool {
	return c.GeminiAPIKey != ""
}
