// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldSignalID  = "signal_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Domain fields
	FieldCounty  = "county"
	FieldDate    = "date"
	FieldState   = "state"
	FieldLevel   = "level"
	FieldProduct = "product_id"
	FieldRule    = "rule"

	// HTTP fields
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldDuration = "duration"
)
