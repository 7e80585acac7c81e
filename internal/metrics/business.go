// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors for daymark.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signalsAssessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daymark_signals_assessed_total",
		Help: "Signals assessed by level and state",
	}, []string{"level", "state"})

	signalCAI = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "daymark_signal_cai",
		Help: "Most recent CAI per county",
	}, []string{"county"})

	recommendations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daymark_recommendations_total",
		Help: "Recommendation decisions by outcome",
	}, []string{"outcome"}) // outcome=shown|normal|no_match|error

	lintViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daymark_policy_violations_total",
		Help: "Guardrail violations reported by the policy linter",
	}, []string{"rule"})

	weatherFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "daymark_weather_fetch_duration_seconds",
		Help:    "Latency of weather provider calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "op", "outcome"})

	storeOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daymark_store_operations_total",
		Help: "History store operations by backend, op and outcome",
	}, []string{"backend", "op", "outcome"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daymark_cache_lookups_total",
		Help: "Signal cache lookups by result",
	}, []string{"result"}) // result=hit|miss

	jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daymark_refresh_runs_total",
		Help: "Refresh job runs by outcome",
	}, []string{"outcome"})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "daymark_refresh_duration_seconds",
		Help:    "Duration of refresh job runs",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	lastRefresh = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "daymark_refresh_last_success_timestamp_seconds",
		Help: "Unix time of the last successful refresh",
	})

	configReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daymark_config_reloads_total",
		Help: "Config reload attempts by outcome",
	}, []string{"outcome"})
)

// RecordSignal records one assessed signal.
func RecordSignal(county, level, state string, cai float64) {
	signalsAssessed.WithLabelValues(level, state).Inc()
	signalCAI.WithLabelValues(county).Set(cai)
}

// RecordRecommendation records a recommendation decision.
func RecordRecommendation(outcome string) {
	recommendations.WithLabelValues(outcome).Inc()
}

// RecordLintViolation records a guardrail violation.
func RecordLintViolation(rule string) {
	lintViolations.WithLabelValues(rule).Inc()
}

// ObserveWeatherFetch records a provider call.
func ObserveWeatherFetch(provider, op string, err error, d time.Duration) {
	weatherFetchDuration.WithLabelValues(provider, op, outcome(err)).Observe(d.Seconds())
}

// RecordStoreOp records a history store operation.
func RecordStoreOp(backend, op string, err error) {
	storeOps.WithLabelValues(backend, op, outcome(err)).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

// RecordRefresh records a refresh job run.
func RecordRefresh(err error, d time.Duration, finished time.Time) {
	jobRuns.WithLabelValues(outcome(err)).Inc()
	jobDuration.Observe(d.Seconds())
	if err == nil {
		lastRefresh.Set(float64(finished.Unix()))
	}
}

// RecordConfigReload records a configuration reload attempt.
func RecordConfigReload(err error) {
	configReloads.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
