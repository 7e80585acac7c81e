// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"net"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/rs/zerolog"
)

func oneOf(values ...string) validation.Rule {
	in := make([]any, len(values))
	for i, v := range values {
		in[i] = v
	}
	return validation.In(in...).Error("must be one of " + strings.Join(values, ", "))
}

// listenAddr accepts host:port and :port; empty is left to Required.
func listenAddr(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, port, err := net.SplitHostPort(s); err != nil || port == "" {
		return fmt.Errorf("must be host:port or :port")
	}
	return nil
}

func validLogLevel(v any) error {
	s, _ := v.(string)
	if _, err := zerolog.ParseLevel(s); err != nil {
		return fmt.Errorf("unknown log level %q", s)
	}
	return nil
}

// Validate checks cross-field constraints. Errors wrap ErrInvalidConfig.
func Validate(cfg AppConfig) error {
	err := validation.Errors{
		"server": validation.ValidateStruct(&cfg.Server,
			validation.Field(&cfg.Server.ListenAddr, validation.Required, validation.By(listenAddr)),
			validation.Field(&cfg.Server.MetricsAddr, validation.By(listenAddr)),
		),
		"logLevel": validation.Validate(cfg.LogLevel, validation.By(validLogLevel)),
		"dataDir":  validation.Validate(cfg.DataDir, validation.Required),
		"store": validation.ValidateStruct(&cfg.Store,
			validation.Field(&cfg.Store.Backend, validation.Required, oneOf("memory", "sqlite", "badger")),
		),
		"cache": validation.ValidateStruct(&cfg.Cache,
			validation.Field(&cfg.Cache.Backend, validation.Required, oneOf("memory", "redis", "none")),
			validation.Field(&cfg.Cache.Addr,
				validation.When(cfg.Cache.Backend == "redis", validation.Required, validation.By(listenAddr))),
			validation.Field(&cfg.Cache.TTL, validation.Min(0)),
		),
		"weather": validation.ValidateStruct(&cfg.Weather,
			validation.Field(&cfg.Weather.Provider, validation.Required, oneOf("static", "http")),
			validation.Field(&cfg.Weather.BaseURL,
				validation.When(cfg.Weather.Provider == "http", validation.Required, is.URL)),
			validation.Field(&cfg.Weather.RPS, validation.Min(0.0)),
		),
		"counties": validation.ValidateStruct(&cfg.Counties,
			validation.Field(&cfg.Counties.Default, validation.Required),
		),
		"refresh": validation.ValidateStruct(&cfg.Refresh,
			validation.Field(&cfg.Refresh.Interval, validation.Min(0)),
			validation.Field(&cfg.Refresh.Parallelism, validation.Min(0), validation.Max(64)),
		),
		"auth": validation.ValidateStruct(&cfg.Auth,
			validation.Field(&cfg.Auth.Secret, validation.When(cfg.Auth.Secret != "", validation.Length(32, 0))),
		),
		"telemetry": validation.ValidateStruct(&cfg.Telemetry,
			validation.Field(&cfg.Telemetry.Exporter, validation.When(cfg.Telemetry.Enabled, validation.Required, oneOf("grpc", "http"))),
			validation.Field(&cfg.Telemetry.Endpoint, validation.When(cfg.Telemetry.Enabled, validation.Required)),
			validation.Field(&cfg.Telemetry.SamplingRate, validation.Min(0.0), validation.Max(1.0)),
		),
		"rateLimit": validation.ValidateStruct(&cfg.RateLimit,
			validation.Field(&cfg.RateLimit.RPM, validation.When(cfg.RateLimit.Enabled, validation.Required, validation.Min(1))),
		),
	}.Filter()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
