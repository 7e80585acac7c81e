// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/daymark-app/daymark/internal/api/problem"
	"github.com/daymark-app/daymark/internal/auth"
	"github.com/daymark-app/daymark/internal/log"
	"github.com/daymark-app/daymark/internal/metrics"
	"github.com/daymark-app/daymark/internal/policy"
	"github.com/daymark-app/daymark/internal/scoring"
	"github.com/daymark-app/daymark/internal/signal"
	"github.com/daymark-app/daymark/internal/store"
	"github.com/daymark-app/daymark/internal/weather"
)

// handleHealth keeps the plain liveness contract: {"status":"ok"}.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openAPISpec)
}

// InsurerScores is the flat model output served to insurer dashboards.
type InsurerScores struct {
	County string  `json:"county"`
	WPS    float64 `json:"WPS"`
	ISS    float64 `json:"ISS"`
	DAS    float64 `json:"DAS"`
	CAI    float64 `json:"CAI"`
	STS    float64 `json:"STS"`
	VEX    float64 `json:"VEX"`
	FPC    float64 `json:"FPC"`
	AV     float64 `json:"AV"`
	State  string  `json:"state"`
}

func (s *Server) handleInsurerFlorida(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("county")
	if name == "" {
		name = s.DefaultCounty()
	}
	card, err := s.svc.Assess(r.Context(), name, s.svc.Today())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	a := card.Signal.Assessment
	writeJSON(w, http.StatusOK, InsurerScores{
		County: card.Signal.County,
		WPS:    a.WPS,
		ISS:    a.ISS,
		DAS:    a.DAS,
		CAI:    a.CAI,
		STS:    a.STS,
		VEX:    a.VEX,
		FPC:    a.FPC,
		AV:     a.AV,
		State:  a.State,
	})
}

func (s *Server) handleCounties(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"counties": s.svc.Counties().Names()})
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	date := s.svc.Today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := time.Parse(signal.DateLayout, raw)
		if err != nil {
			problem.BadRequest(w, r, "INVALID_DATE", "date must be YYYY-MM-DD")
			return
		}
		date = d
	}

	card, err := s.svc.Assess(r.Context(), chi.URLParam(r, "county"), date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// LintReport is the response of the guardrail linter.
type LintReport struct {
	OK         bool               `json:"ok"`
	Violations []policy.Violation `json:"violations"`
}

func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		problem.BadRequest(w, r, "BODY_UNREADABLE", "request body could not be read")
		return
	}
	root, err := policy.ParseTree(body)
	if err != nil {
		problem.Write(w, r, http.StatusUnprocessableEntity, problem.TypeUnprocessable, "Unprocessable Entity",
			"INVALID_TREE", err.Error(), nil)
		return
	}

	vs := policy.Lint(root)
	for _, v := range vs {
		metrics.RecordLintViolation(v.Rule)
	}
	if vs == nil {
		vs = []policy.Violation{}
	}
	writeJSON(w, http.StatusOK, LintReport{OK: len(vs) == 0, Violations: vs})
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.ExecuteTemplate(w, "policy.html", s.policyDoc); err != nil {
		log.FromContext(r.Context()).Error().Err(err).Msg("render policy page")
	}
}

type dayObservation struct {
	Date        string  `json:"date,omitempty"`
	HeatIndexF  float64 `json:"heatIndexF"`
	Rain24hIn   float64 `json:"rain24hIn"`
	WindSustMPH float64 `json:"windSustMph"`
	Tropical    bool    `json:"tropical,omitempty"`
}

type ingestRequest struct {
	County string `json:"county"`
	dayObservation
	Forecast []dayObservation `json:"forecast,omitempty"`
}

func (o dayObservation) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Date, validation.Date(signal.DateLayout)),
		validation.Field(&o.HeatIndexF, validation.Min(-40.0), validation.Max(160.0)),
		validation.Field(&o.Rain24hIn, validation.Min(0.0), validation.Max(60.0)),
		validation.Field(&o.WindSustMPH, validation.Min(0.0), validation.Max(250.0)),
	)
}

func (q ingestRequest) Validate() error {
	if err := q.dayObservation.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&q,
		validation.Field(&q.County, validation.Required, validation.Length(1, 64)),
		validation.Field(&q.Forecast, validation.Length(0, 7)),
	)
}

func (o dayObservation) toObservation(county string) weather.Observation {
	obs := weather.Observation{
		County:      county,
		HeatIndexF:  o.HeatIndexF,
		Rain24hIn:   o.Rain24hIn,
		WindSustMPH: o.WindSustMPH,
		Tropical:    o.Tropical,
	}
	if d, err := time.Parse(signal.DateLayout, o.Date); err == nil {
		obs.Date = d
	}
	return obs
}

// IngestResponse echoes the stored record and the full assessment.
type IngestResponse struct {
	Record     store.DailyRecord  `json:"record"`
	Assessment scoring.Assessment `json:"assessment"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		problem.BadRequest(w, r, "INVALID_JSON", "request body is not a valid observation")
		return
	}
	if err := req.Validate(); err != nil {
		var verrs validation.Errors
		extra := map[string]any{}
		if errors.As(err, &verrs) {
			extra["fields"] = verrs
		}
		problem.Write(w, r, http.StatusUnprocessableEntity, problem.TypeUnprocessable, "Unprocessable Entity",
			"INVALID_OBSERVATION", err.Error(), extra)
		return
	}

	fc := make([]weather.Observation, 0, len(req.Forecast))
	for _, f := range req.Forecast {
		fc = append(fc, f.toObservation(req.County))
	}
	rec, a, err := s.svc.Ingest(r.Context(), req.toObservation(req.County), fc)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	p := auth.PrincipalFromContext(r.Context())
	evt := log.FromContext(r.Context()).Info().
		Str(log.FieldEvent, "observation.ingested").
		Str(log.FieldCounty, rec.County).
		Str(log.FieldDate, rec.Date).
		Str(log.FieldState, rec.State)
	if p != nil {
		evt = evt.Str("subject", p.Subject)
	}
	evt.Msg("observation ingested")

	writeJSON(w, http.StatusCreated, IngestResponse{Record: rec, Assessment: a})
}
