// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/daymark-app/daymark/internal/api/problem"
	"github.com/daymark-app/daymark/internal/county"
	"github.com/daymark-app/daymark/internal/log"
	"github.com/daymark-app/daymark/internal/resilience"
	"github.com/daymark-app/daymark/internal/store"
	"github.com/daymark-app/daymark/internal/weather"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps domain errors onto problem responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, county.ErrUnknownCounty):
		problem.NotFound(w, r, "UNKNOWN_COUNTY", "county is not a Florida county")
	case errors.Is(err, weather.ErrNotFound):
		problem.NotFound(w, r, "NO_OBSERVATION", "no weather observation for county")
	case errors.Is(err, store.ErrNotFound):
		problem.NotFound(w, r, "NO_RECORD", "no stored signal for that day")
	case errors.Is(err, weather.ErrUnavailable), errors.Is(err, resilience.ErrCircuitOpen):
		w.Header().Set("Retry-After", "60")
		problem.Write(w, r, http.StatusServiceUnavailable, problem.TypeUnavailable, "Service Unavailable",
			"WEATHER_UNAVAILABLE", "weather feed is unavailable", nil)
	case errors.Is(err, store.ErrInvalidRecord):
		problem.Write(w, r, http.StatusUnprocessableEntity, problem.TypeUnprocessable, "Unprocessable Entity",
			"INVALID_RECORD", err.Error(), nil)
	default:
		log.FromContext(r.Context()).Error().Err(err).Str(log.FieldEvent, "request.failed").Msg("request failed")
		problem.Internal(w, r)
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	problem.NotFound(w, r, "NOT_FOUND", "no such route")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem.Write(w, r, http.StatusMethodNotAllowed, problem.TypeBadRequest, "Method Not Allowed",
		"METHOD_NOT_ALLOWED", r.Method+" is not supported here", nil)
}
