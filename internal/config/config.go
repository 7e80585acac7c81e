// SPDX-License-Identifier: MIT

// Package config loads Daymark configuration with precedence
// ENV > file > defaults and supports hot reload.
package config

import (
	"time"
)

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	Server       ServerConfig       `yaml:"server"`
	LogLevel     string             `yaml:"logLevel"`
	DataDir      string             `yaml:"dataDir"`
	Store        StoreConfig        `yaml:"store"`
	Cache        CacheConfig        `yaml:"cache"`
	Weather      WeatherConfig      `yaml:"weather"`
	Counties     CountiesConfig     `yaml:"counties"`
	Refresh      RefreshConfig      `yaml:"refresh"`
	Monetization MonetizationConfig `yaml:"monetization"`
	Auth         AuthConfig         `yaml:"auth"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	RateLimit    RateLimitConfig    `yaml:"rateLimit"`
}

// StoreConfig selects the history backend: memory, sqlite or badger.
type StoreConfig struct {
	Backend string `yaml:"backend"`
}

// CacheConfig selects the signal card cache.
type CacheConfig struct {
	Backend  string        `yaml:"backend"` // memory, redis or none
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// WeatherConfig selects the observation source.
type WeatherConfig struct {
	Provider string        `yaml:"provider"` // static or http
	BaseURL  string        `yaml:"baseURL"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout"`
	RPS      float64       `yaml:"rps"`
}

// CountiesConfig names the home county and the refresh watch list.
type CountiesConfig struct {
	Default string   `yaml:"default"`
	Watch   []string `yaml:"watch"`
}

// RefreshConfig controls the periodic refresh job.
type RefreshConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Parallelism int           `yaml:"parallelism"`
}

// MonetizationConfig controls recommendations.
type MonetizationConfig struct {
	Disclosure  string `yaml:"disclosure"`
	CatalogPath string `yaml:"catalogPath"`
}

// AuthConfig secures the ingest API. An empty secret disables ingest.
type AuthConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}

// RateLimitConfig controls per-IP request limits on the API.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`
	RPM     int  `yaml:"rpm"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		Server:   DefaultServerConfig(),
		LogLevel: "info",
		DataDir:  "./data",
		Store:    StoreConfig{Backend: "sqlite"},
		Cache:    CacheConfig{Backend: "memory", TTL: 10 * time.Minute},
		Weather: WeatherConfig{
			Provider: "static",
			Timeout:  10 * time.Second,
			RPS:      2,
		},
		Counties: CountiesConfig{
			Default: "Duval",
			Watch:   []string{"Duval", "Miami-Dade", "Hillsborough", "Orange", "Leon"},
		},
		Refresh: RefreshConfig{Interval: time.Hour, Parallelism: 4},
		Auth:    AuthConfig{Issuer: "daymark"},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 0.1,
			Environment:  "production",
		},
		RateLimit: RateLimitConfig{Enabled: true, RPM: 120},
	}
}
