// SPDX-License-Identifier: MIT

// Package weather supplies daily observations and forecasts per county.
package weather

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the feed has no data for a county.
	ErrNotFound = errors.New("weather: no data for county")
	// ErrUnavailable wraps transport and upstream failures.
	ErrUnavailable = errors.New("weather: feed unavailable")
)

// Observation is one county-day of weather.
type Observation struct {
	County      string    `json:"county"`
	Date        time.Time `json:"date"`
	HeatIndexF  float64   `json:"heat_index_f"`
	Rain24hIn   float64   `json:"rain_24h_in"`
	WindSustMPH float64   `json:"wind_sust_mph"`
	Tropical    bool      `json:"tropical"`
}

// Provider fetches observations. Implementations must be safe for concurrent use.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	Current(ctx context.Context, county string) (Observation, error)
	Forecast(ctx context.Context, county string, days int) ([]Observation, error)
}
