// SPDX-License-Identifier: MIT

// Package problem writes RFC 7807 problem details responses.
package problem

import (
	"encoding/json"
	"net/http"

	"github.com/daymark-app/daymark/internal/log"
)

const (
	// HeaderRequestID carries the request correlation id in both directions.
	HeaderRequestID = "X-Request-ID"
	// JSONKeyRequestID is the problem body field holding the request id.
	JSONKeyRequestID = "requestId"

	// ContentType is the media type of every problem response.
	ContentType = "application/problem+json"
)

// Canonical problem types.
const (
	TypeBadRequest    = "request/invalid"
	TypeUnauthorized  = "auth/unauthorized"
	TypeForbidden     = "auth/forbidden"
	TypeNotFound      = "resource/not_found"
	TypeUnprocessable = "request/unprocessable"
	TypeRateLimited   = "request/rate_limited"
	TypeUnavailable   = "upstream/unavailable"
	TypeInternal      = "system/internal"
)

// Write writes an RFC 7807 problem details response.
//
// Semantics:
//   - type: canonical machine identifier (e.g. "resource/not_found").
//   - title: human-readable short label (e.g. "Not Found").
//   - code: stable machine-readable short code (e.g. "UNKNOWN_COUNTY").
//   - detail: explanation of this specific occurrence.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, code, detail string, extra map[string]any) {
	instance := ""
	reqID := ""
	if r != nil {
		instance = r.URL.EscapedPath()
		reqID = log.RequestIDFromContext(r.Context())
	} else {
		log.L().Error().Str("type", problemType).Int("status", status).Msg("problem.Write called with nil request")
	}
	if reqID == "" {
		reqID = w.Header().Get(HeaderRequestID)
	}

	res := map[string]any{
		"type":   problemType,
		"title":  title,
		"status": status,
		"code":   code,
	}
	if reqID != "" {
		res[JSONKeyRequestID] = reqID
		w.Header().Set(HeaderRequestID, reqID)
	}
	if detail != "" {
		res["detail"] = detail
	}
	if instance != "" {
		res["instance"] = instance
	}

	for k, v := range extra {
		switch k {
		case "type", "title", "status", "detail", "instance", "code", JSONKeyRequestID:
			log.L().Warn().Str("key", k).Str("problem_type", problemType).Msg("ignoring reserved key in problem extras")
			continue
		}
		res[k] = v
	}

	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.L().Error().
			Err(err).
			Str("type", problemType).
			Int("status", status).
			Msg("failed to encode problem response")
	}
}

// NotFound is a shorthand for a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, code, detail string) {
	Write(w, r, http.StatusNotFound, TypeNotFound, "Not Found", code, detail, nil)
}

// BadRequest is a shorthand for a 400 problem.
func BadRequest(w http.ResponseWriter, r *http.Request, code, detail string) {
	Write(w, r, http.StatusBadRequest, TypeBadRequest, "Bad Request", code, detail, nil)
}

// Internal is a shorthand for a 500 problem. The detail never leaks the cause.
func Internal(w http.ResponseWriter, r *http.Request) {
	Write(w, r, http.StatusInternalServerError, TypeInternal, "Internal Server Error", "INTERNAL",
		"An unexpected error occurred.", nil)
}
