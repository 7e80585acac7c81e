// SPDX-License-Identifier: MIT

// Package jobs runs the periodic signal refresh over the watch counties.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	dmlog "github.com/daymark-app/daymark/internal/log"
	"github.com/daymark-app/daymark/internal/metrics"
	"github.com/daymark-app/daymark/internal/signal"
	"github.com/daymark-app/daymark/internal/telemetry"
)

const defaultParallelism = 4

var tracer = telemetry.Tracer("github.com/daymark-app/daymark/internal/jobs")

// Refresher assesses every watch county on an interval.
type Refresher struct {
	assessor Assessor

	mu      sync.RWMutex
	cfg     Config
	lastOK  time.Time
	lastErr string
	last    *Status
}

// NewRefresher validates cfg.
func NewRefresher(cfg Config, a Assessor) (*Refresher, error) {
	if a == nil {
		return nil, errors.New("jobs: assessor is required")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &Refresher{assessor: a, cfg: cfg}, nil
}

func validateConfig(cfg Config) error {
	if cfg.Interval < 0 {
		return fmt.Errorf("jobs: interval must not be negative, got %s", cfg.Interval)
	}
	if cfg.Parallelism < 0 {
		return fmt.Errorf("jobs: parallelism must not be negative, got %d", cfg.Parallelism)
	}
	return nil
}

// SetCounties swaps the watch list, e.g. after a config reload.
func (r *Refresher) SetCounties(counties []string) {
	r.mu.Lock()
	r.cfg.Counties = append([]string(nil), counties...)
	r.mu.Unlock()
}

// LastRun reports the time of the last completed run and its error text.
// It feeds health.LastRunChecker.
func (r *Refresher) LastRun() (time.Time, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastOK, r.lastErr
}

// Last returns the most recent snapshot, or nil before the first run.
func (r *Refresher) Last() *Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Run refreshes immediately and then every interval until ctx ends. A zero
// interval runs once.
func (r *Refresher) Run(ctx context.Context) error {
	if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
		logger := dmlog.WithComponentFromContext(ctx, "jobs")
		logger.Warn().Err(err).
			Str(dmlog.FieldEvent, "refresh.failed").Msg("refresh run failed")
	}

	r.mu.RLock()
	interval := r.cfg.Interval
	r.mu.RUnlock()
	if interval == 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				logger := dmlog.WithComponentFromContext(ctx, "jobs")
				logger.Warn().Err(err).
					Str(dmlog.FieldEvent, "refresh.failed").Msg("refresh run failed")
			}
		}
	}
}

// RunOnce assesses every watch county with bounded concurrency and writes
// the status snapshot. One county failing does not stop the others; the
// returned error summarises failures.
func (r *Refresher) RunOnce(ctx context.Context) (*Status, error) {
	r.mu.RLock()
	cfg := r.cfg
	cfg.Counties = append([]string(nil), r.cfg.Counties...)
	r.mu.RUnlock()

	jobID := uuid.NewString()
	ctx = dmlog.ContextWithJobID(ctx, jobID)
	ctx, span := tracer.Start(ctx, "jobs.Refresh")
	span.SetAttributes(telemetry.JobAttributes(jobID, len(cfg.Counties))...)
	defer span.End()
	logger := dmlog.WithComponentFromContext(ctx, "jobs")
	logger.Info().Str(dmlog.FieldEvent, "refresh.start").Int("counties", len(cfg.Counties)).Msg("starting refresh")

	start := time.Now()
	today := r.assessor.Today()
	results := make([]CountyStatus, len(cfg.Counties))

	limit := cfg.Parallelism
	if limit == 0 {
		limit = defaultParallelism
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, name := range cfg.Counties {
		i, name := i, name
		g.Go(func() error {
			results[i] = r.assessOne(gctx, name, today)
			// Per-county failures are recorded, not propagated.
			return gctx.Err()
		})
	}
	waitErr := g.Wait()

	st := &Status{
		JobID:    jobID,
		Date:     today.Format(signal.DateLayout),
		LastRun:  time.Now().UTC(),
		Duration: time.Since(start).Round(time.Millisecond).String(),
		Counties: results,
	}
	for _, c := range results {
		if c.Error != "" {
			st.Failed++
		}
	}

	var runErr error
	switch {
	case waitErr != nil:
		runErr = waitErr
	case st.Failed > 0:
		runErr = fmt.Errorf("jobs: %d of %d counties failed", st.Failed, len(results))
	}

	if cfg.DataDir != "" && waitErr == nil {
		if err := writeStatus(ctx, cfg.DataDir, st); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}

	r.mu.Lock()
	r.last = st
	if waitErr == nil {
		r.lastOK = st.LastRun
		r.lastErr = ""
		if runErr != nil {
			r.lastErr = runErr.Error()
		}
	}
	r.mu.Unlock()

	if runErr != nil {
		span.RecordError(runErr)
	}
	metrics.RecordRefresh(runErr, time.Since(start), st.LastRun)
	logger.Info().
		Str(dmlog.FieldEvent, "refresh.done").
		Int("counties", len(results)).
		Int("failed", st.Failed).
		Dur(dmlog.FieldDuration, time.Since(start)).
		Msg("refresh completed")
	return st, runErr
}

func (r *Refresher) assessOne(ctx context.Context, name string, day time.Time) CountyStatus {
	card, err := r.assessor.Assess(ctx, name, day)
	if err != nil {
		logger := dmlog.WithComponentFromContext(ctx, "jobs")
		logger.Warn().Err(err).
			Str(dmlog.FieldEvent, "refresh.county_failed").
			Str(dmlog.FieldCounty, name).
			Msg("county assessment failed")
		return CountyStatus{County: name, Error: err.Error()}
	}
	cs := CountyStatus{
		County: card.Signal.County,
		Level:  string(card.Signal.Level),
		State:  card.Signal.Assessment.State,
		CAI:    card.Signal.Assessment.CAI,
		AV:     card.Signal.Assessment.AV,
	}
	if card.Recommendation != nil {
		cs.Product = card.Recommendation.Product.ID
	}
	return cs
}
