// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Span attribute keys used across Daymark.
const (
	CountyKey   = "daymark.county"
	DateKey     = "daymark.date"
	LevelKey    = "daymark.level"
	StateKey    = "daymark.state"
	CacheHitKey = "daymark.cache_hit"
	SourceKey   = "daymark.record_source"
	ProductKey  = "daymark.product"

	JobIDKey     = "job.id"
	JobCountyKey = "job.counties"
)

// SignalAttributes describes an assessed signal.
func SignalAttributes(county, date, level, state string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(CountyKey, county),
		attribute.String(DateKey, date),
	}
	if level != "" {
		attrs = append(attrs, attribute.String(LevelKey, level))
	}
	if state != "" {
		attrs = append(attrs, attribute.String(StateKey, state))
	}
	return attrs
}

// JobAttributes describes a refresh run.
func JobAttributes(jobID string, counties int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobIDKey, jobID),
		attribute.Int(JobCountyKey, counties),
	}
}
