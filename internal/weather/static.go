// SPDX-License-Identifier: MIT

package weather

import (
	"context"
	"time"
)

// StaticProvider returns the same observation for every county. It backs
// offline runs and tests.
type StaticProvider struct {
	Base  Observation
	clock func() time.Time
}

// DefaultObservation is a calm Florida winter day.
func DefaultObservation() Observation {
	return Observation{
		HeatIndexF:  92,
		Rain24hIn:   0.2,
		WindSustMPH: 18,
	}
}

// NewStaticProvider creates a provider that always reports base.
func NewStaticProvider(base Observation) *StaticProvider {
	return &StaticProvider{Base: base, clock: time.Now}
}

func (p *StaticProvider) Name() string { return "static" }

func (p *StaticProvider) Current(_ context.Context, county string) (Observation, error) {
	o := p.Base
	o.County = county
	o.Date = truncateDay(p.clock())
	return o, nil
}

// Forecast repeats the base observation; a static world has no trend.
func (p *StaticProvider) Forecast(_ context.Context, county string, days int) ([]Observation, error) {
	out := make([]Observation, 0, days)
	today := truncateDay(p.clock())
	for i := 1; i <= days; i++ {
		o := p.Base
		o.County = county
		o.Date = today.AddDate(0, 0, i)
		out = append(out, o)
	}
	return out, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
