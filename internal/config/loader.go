// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a loader; an empty configPath means ENV-only.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Path returns the config file path, if any.
func (l *Loader) Path() string { return l.configPath }

// Load parses the file strictly, applies ENV overrides and validates.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath) // #nosec G304 -- operator supplied path
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := decodeStrict(data, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file %s: %w", l.configPath, err)
		}
	}

	applyEnv(&cfg)
	cfg.Server.normalize()

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// decodeStrict decodes YAML over cfg, rejecting unknown keys and
// multi-document files.
func decodeStrict(data []byte, cfg *AppConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func applyEnv(cfg *AppConfig) {
	p := EnvPrefix
	cfg.Server.ListenAddr = ParseString(p+"LISTEN", cfg.Server.ListenAddr)
	cfg.Server.MetricsAddr = ParseString(p+"METRICS_LISTEN", cfg.Server.MetricsAddr)
	cfg.Server.ShutdownTimeout = ParseDuration(p+"SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.AllowedOrigins = ParseList(p+"ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.LogLevel = ParseString(p+"LOG_LEVEL", cfg.LogLevel)
	cfg.DataDir = ParseString(p+"DATA_DIR", cfg.DataDir)
	cfg.Store.Backend = ParseString(p+"STORE_BACKEND", cfg.Store.Backend)

	cfg.Cache.Backend = ParseString(p+"CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.Addr = ParseString(p+"REDIS_ADDR", cfg.Cache.Addr)
	cfg.Cache.Password = ParseString(p+"REDIS_PASSWORD", cfg.Cache.Password)
	cfg.Cache.DB = ParseInt(p+"REDIS_DB", cfg.Cache.DB)
	cfg.Cache.TTL = ParseDuration(p+"CACHE_TTL", cfg.Cache.TTL)

	cfg.Weather.Provider = ParseString(p+"WEATHER_PROVIDER", cfg.Weather.Provider)
	cfg.Weather.BaseURL = ParseString(p+"WEATHER_URL", cfg.Weather.BaseURL)
	cfg.Weather.APIKey = ParseString(p+"WEATHER_API_KEY", cfg.Weather.APIKey)
	cfg.Weather.Timeout = ParseDuration(p+"WEATHER_TIMEOUT", cfg.Weather.Timeout)
	cfg.Weather.RPS = ParseFloat(p+"WEATHER_RPS", cfg.Weather.RPS)

	cfg.Counties.Default = ParseString(p+"DEFAULT_COUNTY", cfg.Counties.Default)
	cfg.Counties.Watch = ParseList(p+"WATCH_COUNTIES", cfg.Counties.Watch)

	cfg.Refresh.Interval = ParseDuration(p+"REFRESH_INTERVAL", cfg.Refresh.Interval)
	cfg.Refresh.Parallelism = ParseInt(p+"REFRESH_PARALLELISM", cfg.Refresh.Parallelism)

	cfg.Monetization.Disclosure = ParseString(p+"DISCLOSURE", cfg.Monetization.Disclosure)
	cfg.Monetization.CatalogPath = ParseString(p+"CATALOG", cfg.Monetization.CatalogPath)

	cfg.Auth.Secret = ParseString(p+"AUTH_SECRET", cfg.Auth.Secret)
	cfg.Auth.Issuer = ParseString(p+"AUTH_ISSUER", cfg.Auth.Issuer)

	cfg.Telemetry.Enabled = ParseBool(p+"TRACING_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(p+"TRACING_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(p+"TRACING_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(p+"TRACING_SAMPLE_RATE", cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = ParseString(p+"ENV", cfg.Telemetry.Environment)

	cfg.RateLimit.Enabled = ParseBool(p+"RATELIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.RPM = ParseInt(p+"RATELIMIT_RPM", cfg.RateLimit.RPM)
}
