// SPDX-License-Identifier: MIT

// Package store persists daily assessment history per county.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daymark-app/daymark/internal/scoring"
	"github.com/daymark-app/daymark/internal/signal"
)

var (
	// ErrInvalidRecord is returned for records missing county or date.
	ErrInvalidRecord = errors.New("store: invalid record")
	// ErrUnknownBackend is returned by Open for unsupported backends.
	ErrUnknownBackend = errors.New("store: unknown backend")
	// ErrNotFound is returned by Get when no record exists for a county-day.
	ErrNotFound = errors.New("store: record not found")
)

// Record sources.
const (
	SourceFeed   = "feed"
	SourceIngest = "ingest"
)

// DailyRecord is one county-day of scores. Date uses signal.DateLayout.
type DailyRecord struct {
	County string  `json:"county"`
	Date   string  `json:"date"`
	Heat   float64 `json:"heat"`
	Rain   float64 `json:"rain"`
	Wind   float64 `json:"wind"`
	WPS    float64 `json:"wps"`
	ISS    float64 `json:"iss"`
	DAS    float64 `json:"das"`
	CAI    float64 `json:"cai"`
	STS    float64 `json:"sts"`
	VEX    float64 `json:"vex"`
	FPC    float64 `json:"fpc"`
	AV     float64 `json:"av"`
	State  string  `json:"state"`
	// Source is SourceFeed or SourceIngest.
	Source string `json:"source,omitempty"`
}

// RecordOf flattens an assessment into the record for county on day.
func RecordOf(county, day, source string, a scoring.Assessment) DailyRecord {
	return DailyRecord{
		County: county,
		Date:   day,
		Heat:   a.Heat,
		Rain:   a.Rain,
		Wind:   a.Wind,
		WPS:    a.WPS,
		ISS:    a.ISS,
		DAS:    a.DAS,
		CAI:    a.CAI,
		STS:    a.STS,
		VEX:    a.VEX,
		FPC:    a.FPC,
		AV:     a.AV,
		State:  a.State,
		Source: source,
	}
}

// Assessment restores the model output the record was written from.
func (r DailyRecord) Assessment() scoring.Assessment {
	return scoring.Assessment{
		Heat:  r.Heat,
		Rain:  r.Rain,
		Wind:  r.Wind,
		WPS:   r.WPS,
		ISS:   r.ISS,
		DAS:   r.DAS,
		CAI:   r.CAI,
		STS:   r.STS,
		VEX:   r.VEX,
		FPC:   r.FPC,
		AV:    r.AV,
		State: r.State,
	}
}

// Validate checks the record key.
func (r DailyRecord) Validate() error {
	if strings.TrimSpace(r.County) == "" {
		return fmt.Errorf("%w: county is required", ErrInvalidRecord)
	}
	if _, err := time.Parse(signal.DateLayout, r.Date); err != nil {
		return fmt.Errorf("%w: date %q: %v", ErrInvalidRecord, r.Date, err)
	}
	return nil
}

// Store keeps daily records keyed by (county, date).
type Store interface {
	// PutDaily inserts or replaces the record for its (county, date).
	PutDaily(ctx context.Context, rec DailyRecord) error
	// PutDailyIfAbsent inserts rec unless a record for its (county, date)
	// exists, and returns whichever record is stored afterwards.
	PutDailyIfAbsent(ctx context.Context, rec DailyRecord) (DailyRecord, error)
	// Get returns the record for county on day (signal.DateLayout), or
	// ErrNotFound.
	Get(ctx context.Context, county, day string) (DailyRecord, error)
	// History returns up to n records for county dated strictly before
	// before, oldest first.
	History(ctx context.Context, county string, before time.Time, n int) ([]DailyRecord, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Open builds the configured backend under dataDir.
func Open(backend, dataDir string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return OpenSQLiteStore(SQLitePath(dataDir))
	case BackendBadger:
		return OpenBadgerStore(badgerPath(dataDir))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func countyKey(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

func dayString(t time.Time) string {
	return t.UTC().Format(signal.DateLayout)
}
