package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

// envPrefix is the prefix for environment overrides. A double underscore
// separates nesting levels: FOCUSTIME_GOOGLE__CLIENT_ID -> google.client_id.
const envPrefix = "FOCUSTIME_"

// Config holds the full engine configuration. Everything the core
// components need is passed down from here at construction time; nothing
// below cmd/ reads the process environment on its own.
type Config struct {
	App      AppConfig      `koanf:"app"`
	Database DatabaseConfig `koanf:"database"`
	Google   GoogleConfig   `koanf:"google"`
	Suggest  SuggestConfig  `koanf:"suggest"`
	Token    TokenConfig    `koanf:"token"`
}

// AppConfig holds the HTTP service settings
type AppConfig struct {
	Port     int    `koanf:"port"`
	Env      string `koanf:"env"`
	LogLevel string `koanf:"log_level"`
}

// DatabaseConfig holds the SQLite state file location
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// GoogleConfig holds the OAuth client registration. AuthURL, TokenURL and
// CalendarEndpoint are normally empty and default to Google's endpoints;
// tests point them at local servers.
type GoogleConfig struct {
	ClientID         string `koanf:"client_id"`
	ClientSecret     string `koanf:"client_secret"`
	RedirectURL      string `koanf:"redirect_url"`
	AuthURL          string `koanf:"auth_url"`
	TokenURL         string `koanf:"token_url"`
	CalendarEndpoint string `koanf:"calendar_endpoint"`
}

// SuggestConfig holds the work-block suggestion defaults
type SuggestConfig struct {
	MinBlock       time.Duration `koanf:"min_block"`
	MaxSuggestions int           `koanf:"max_suggestions"`
	DayStart       string        `koanf:"day_start"`
	DayEnd         string        `koanf:"day_end"`
	Timezone       string        `koanf:"timezone"`
}

// TokenConfig holds token freshness tuning
type TokenConfig struct {
	// RefreshSkew is how long before expiry a token is already treated
	// as expiring and refreshed ahead of use.
	RefreshSkew time.Duration `koanf:"refresh_skew"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"app.port":                8080,
		"app.env":                 "development",
		"app.log_level":           "info",
		"database.path":           "data/focustime.db",
		"suggest.min_block":       "60m",
		"suggest.max_suggestions": 5,
		"suggest.day_start":       "08:00",
		"suggest.day_end":         "20:00",
		"suggest.timezone":        "Local",
		"token.refresh_skew":      "5m",
	}
}

// Load reads the configuration: defaults, then the TOML file at path (if
// non-empty), then FOCUSTIME_* environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	var cfg Config
	err = k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks the parts of the configuration the engine cannot run without
func validate(cfg *Config) error {
	if cfg.App.Port < 1 || cfg.App.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.App.Port)
	}

	if cfg.Google.ClientID == "" {
		return fmt.Errorf("google.client_id is required (FOCUSTIME_GOOGLE__CLIENT_ID)")
	}
	if cfg.Google.ClientSecret == "" {
		return fmt.Errorf("google.client_secret is required (FOCUSTIME_GOOGLE__CLIENT_SECRET)")
	}
	if cfg.Google.RedirectURL == "" {
		return fmt.Errorf("google.redirect_url is required (FOCUSTIME_GOOGLE__REDIRECT_URL)")
	}

	if cfg.Suggest.MinBlock <= 0 {
		return fmt.Errorf("suggest.min_block must be positive")
	}
	if _, err := ParseClock(cfg.Suggest.DayStart); err != nil {
		return fmt.Errorf("invalid suggest.day_start: %w", err)
	}
	if _, err := ParseClock(cfg.Suggest.DayEnd); err != nil {
		return fmt.Errorf("invalid suggest.day_end: %w", err)
	}

	if cfg.Token.RefreshSkew <= 0 {
		return fmt.Errorf("token.refresh_skew must be positive")
	}

	return nil
}

// OAuthConfig builds the oauth2 client configuration for the Google
// calendar scopes. Custom endpoints from the config override Google's.
func (c *Config) OAuthConfig() *oauth2.Config {
	endpoint := google.Endpoint
	if c.Google.AuthURL != "" {
		endpoint.AuthURL = c.Google.AuthURL
	}
	if c.Google.TokenURL != "" {
		endpoint.TokenURL = c.Google.TokenURL
	}

	return &oauth2.Config{
		ClientID:     c.Google.ClientID,
		ClientSecret: c.Google.ClientSecret,
		RedirectURL:  c.Google.RedirectURL,
		Scopes: []string{
			gcal.CalendarScope,
		},
		Endpoint: endpoint,
	}
}

// Location resolves the configured suggestion timezone
func (c *Config) Location() (*time.Location, error) {
	if c.Suggest.Timezone == "" || c.Suggest.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Suggest.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid suggest.timezone %q: %w", c.Suggest.Timezone, err)
	}
	return loc, nil
}

// ParseClock parses an "HH:MM" string into an offset from midnight
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
