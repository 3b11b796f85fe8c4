// Package config resolves rankbadge settings.
//
// Precedence, lowest first: built-in defaults, rankbadge.json5, its
// rankbadge.local.json5 override, environment variables (optionally seeded
// from a .env file), then command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "rankbadge.json5"

// Config is the resolved process configuration.
type Config struct {
	LogLevel  string
	LogPretty bool

	// DataBaseURL resolves relative ranking sources.
	DataBaseURL string
	// RegistryPath is an optional json5 category table; empty means built-in.
	RegistryPath string

	UserAgent    string
	FetchTimeout time.Duration
	// MountTimeout bounds each deferred mount. 0 waits until the page closes.
	MountTimeout time.Duration

	FilmIDSelector string
	FilmIDAttr     string
	CastSelector   string

	MetricsBackend string
	MetricsTags    string

	ServerAddr      string
	UpstreamBaseURL string

	ProgressInterval time.Duration
}

// fileConfig is the json5 shape. Durations are Go duration strings.
type fileConfig struct {
	LogLevel         string `json:"log_level"`
	LogPretty        bool   `json:"log_pretty"`
	DataBaseURL      string `json:"data_base_url"`
	RegistryPath     string `json:"registry"`
	UserAgent        string `json:"user_agent"`
	FetchTimeout     string `json:"fetch_timeout"`
	MountTimeout     string `json:"mount_timeout"`
	FilmIDSelector   string `json:"film_id_selector"`
	FilmIDAttr       string `json:"film_id_attr"`
	CastSelector     string `json:"cast_selector"`
	MetricsBackend   string `json:"metrics_backend"`
	MetricsTags      string `json:"metrics_tags"`
	ServerAddr       string `json:"server_addr"`
	UpstreamBaseURL  string `json:"upstream_base_url"`
	ProgressInterval string `json:"progress_interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:         "info",
		DataBaseURL:      "https://raw.githubusercontent.com/afchatfield/lb-list-to-json/main/data/",
		FetchTimeout:     20 * time.Second,
		MountTimeout:     10 * time.Second,
		FilmIDSelector:   "[data-film-id]",
		FilmIDAttr:       "data-film-id",
		CastSelector:     ".cast-list a",
		MetricsBackend:   "none",
		ServerAddr:       ":8080",
		UpstreamBaseURL:  "https://letterboxd.com",
		ProgressInterval: 2 * time.Second,
	}
}

// Load resolves configuration from path and the environment. A missing file
// is only an error when path was given explicitly.
func Load(path string, logger zerolog.Logger) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	fc, err := ReadLayered[fileConfig](path)
	switch {
	case err == nil:
		if err := cfg.applyFile(fc); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
		logger.Debug().Str("path", path).Msg("config file loaded")
	case errors.Is(err, os.ErrNotExist) && !explicit:
		logger.Debug().Str("path", path).Msg("no config file, using defaults")
	default:
		return cfg, err
	}

	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyFile(fc fileConfig) error {
	setString(&c.LogLevel, fc.LogLevel)
	c.LogPretty = c.LogPretty || fc.LogPretty
	setString(&c.DataBaseURL, fc.DataBaseURL)
	setString(&c.RegistryPath, fc.RegistryPath)
	setString(&c.UserAgent, fc.UserAgent)
	setString(&c.FilmIDSelector, fc.FilmIDSelector)
	setString(&c.FilmIDAttr, fc.FilmIDAttr)
	setString(&c.CastSelector, fc.CastSelector)
	setString(&c.MetricsBackend, fc.MetricsBackend)
	setString(&c.MetricsTags, fc.MetricsTags)
	setString(&c.ServerAddr, fc.ServerAddr)
	setString(&c.UpstreamBaseURL, fc.UpstreamBaseURL)

	for _, d := range []struct {
		dst  *time.Duration
		raw  string
		name string
	}{
		{&c.FetchTimeout, fc.FetchTimeout, "fetch_timeout"},
		{&c.MountTimeout, fc.MountTimeout, "mount_timeout"},
		{&c.ProgressInterval, fc.ProgressInterval, "progress_interval"},
	} {
		if err := setDuration(d.dst, d.raw); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return nil
}

// Environment variable names.
const (
	EnvLogLevel       = "LOG_LEVEL"
	EnvDataBaseURL    = "RANKBADGE_DATA_BASE_URL"
	EnvRegistry       = "RANKBADGE_REGISTRY"
	EnvUserAgent      = "RANKBADGE_USER_AGENT"
	EnvFetchTimeout   = "RANKBADGE_FETCH_TIMEOUT"
	EnvMountTimeout   = "RANKBADGE_MOUNT_TIMEOUT"
	EnvMetricsBackend = "RANKBADGE_METRICS_BACKEND"
	EnvMetricsTags    = "RANKBADGE_METRICS_TAGS"
	EnvServerAddr     = "RANKBADGE_ADDR"
	EnvUpstream       = "RANKBADGE_UPSTREAM"
)

func (c *Config) applyEnv(getenv func(string) string) error {
	get := func(k string) string { return strings.TrimSpace(getenv(k)) }

	setString(&c.LogLevel, get(EnvLogLevel))
	setString(&c.DataBaseURL, get(EnvDataBaseURL))
	setString(&c.RegistryPath, get(EnvRegistry))
	setString(&c.UserAgent, get(EnvUserAgent))
	setString(&c.MetricsBackend, get(EnvMetricsBackend))
	setString(&c.MetricsTags, get(EnvMetricsTags))
	setString(&c.ServerAddr, get(EnvServerAddr))
	setString(&c.UpstreamBaseURL, get(EnvUpstream))

	if err := setDuration(&c.FetchTimeout, get(EnvFetchTimeout)); err != nil {
		return fmt.Errorf("%s: %w", EnvFetchTimeout, err)
	}
	if err := setDuration(&c.MountTimeout, get(EnvMountTimeout)); err != nil {
		return fmt.Errorf("%s: %w", EnvMountTimeout, err)
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
