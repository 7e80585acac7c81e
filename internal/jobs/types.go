// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"time"

	"github.com/daymark-app/daymark/internal/service"
)

// Assessor computes a signal card for a county-day.
type Assessor interface {
	Assess(ctx context.Context, county string, date time.Time) (service.SignalCard, error)
	Today() time.Time
}

// Config controls the refresh job.
type Config struct {
	Counties    []string
	Interval    time.Duration
	Parallelism int // Max concurrent assessments (0 = 4)
	DataDir     string
}

// CountyStatus is one county's result in a refresh run.
type CountyStatus struct {
	County  string  `json:"county"`
	Level   string  `json:"level,omitempty"`
	State   string  `json:"state,omitempty"`
	CAI     float64 `json:"cai,omitempty"`
	AV      float64 `json:"av,omitempty"`
	Product string  `json:"product,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Status is the snapshot written to status.json after each run.
type Status struct {
	JobID    string         `json:"job_id"`
	Date     string         `json:"date"`
	LastRun  time.Time      `json:"last_run"`
	Duration string         `json:"duration"`
	Counties []CountyStatus `json:"counties"`
	Failed   int            `json:"failed"`
}
