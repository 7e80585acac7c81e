// SPDX-License-Identifier: MIT

package config

import (
	"time"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// ListenAddr is the API address (e.g. ":8080").
	ListenAddr string `yaml:"listen"`
	// MetricsAddr serves /metrics on a separate listener; empty disables it.
	MetricsAddr string `yaml:"metricsListen"`

	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
	// MaxHeaderBytes caps request header size.
	MaxHeaderBytes int `yaml:"maxHeaderBytes"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// AllowedOrigins enables CORS on /api for these origins; "*" allows any.
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

const (
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultMaxHeaderBytes  = 1 << 20 // 1 MB
	defaultShutdownTimeout = 15 * time.Second
	minShutdownTimeout     = 3 * time.Second
)

// DefaultServerConfig returns the server defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:      ":8080",
		MetricsAddr:     ":9090",
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		IdleTimeout:     defaultIdleTimeout,
		MaxHeaderBytes:  defaultMaxHeaderBytes,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// normalize fills zero values with defaults and enforces a minimum
// shutdown window.
func (s *ServerConfig) normalize() {
	d := DefaultServerConfig()
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = d.ReadTimeout
	}
	if s.WriteTimeout < 0 {
		s.WriteTimeout = d.WriteTimeout
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = d.IdleTimeout
	}
	if s.MaxHeaderBytes <= 0 {
		s.MaxHeaderBytes = d.MaxHeaderBytes
	}
	if s.ShutdownTimeout < minShutdownTimeout {
		s.ShutdownTimeout = minShutdownTimeout
	}
}
