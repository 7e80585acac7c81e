// SPDX-License-Identifier: MIT

// Package service assembles a county-day signal card from weather, history,
// the risk model and the recommendation guardrails.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/daymark-app/daymark/internal/cache"
	"github.com/daymark-app/daymark/internal/county"
	dmlog "github.com/daymark-app/daymark/internal/log"
	"github.com/daymark-app/daymark/internal/metrics"
	"github.com/daymark-app/daymark/internal/monetization"
	"github.com/daymark-app/daymark/internal/scoring"
	"github.com/daymark-app/daymark/internal/signal"
	"github.com/daymark-app/daymark/internal/store"
	"github.com/daymark-app/daymark/internal/telemetry"
	"github.com/daymark-app/daymark/internal/weather"
)

const (
	historyDays  = 10
	forecastDays = 3
)

var tracer = telemetry.Tracer("github.com/daymark-app/daymark/internal/service")

// SignalCard is what a reader sees for one county-day: the signal and at
// most one recommendation.
type SignalCard struct {
	Signal         signal.Signal                `json:"signal"`
	Recommendation *monetization.Recommendation `json:"recommendation,omitempty"`
}

// Deps are the collaborators of a Service.
type Deps struct {
	Counties    *county.Registry
	Weather     weather.Provider
	Store       store.Store
	Cache       cache.Cache
	Recommender *monetization.Recommender
	CacheTTL    time.Duration
	// DAS overrides scoring.DefaultDAS when set.
	DAS         *float64
	Now         func() time.Time
}

// Service computes and serves signal cards.
type Service struct {
	deps Deps
}

// New validates deps and fills defaults.
func New(d Deps) (*Service, error) {
	switch {
	case d.Counties == nil:
		return nil, errors.New("service: county registry is required")
	case d.Weather == nil:
		return nil, errors.New("service: weather provider is required")
	case d.Store == nil:
		return nil, errors.New("service: store is required")
	case d.Recommender == nil:
		return nil, errors.New("service: recommender is required")
	}
	if d.Cache == nil {
		d.Cache = cache.NewNoOpCache()
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = 10 * time.Minute
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{deps: d}, nil
}

// Today returns the current UTC day.
func (s *Service) Today() time.Time {
	y, m, d := s.deps.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Counties exposes the registry.
func (s *Service) Counties() *county.Registry { return s.deps.Counties }

// Recommender exposes the recommender for reconfiguration.
func (s *Service) Recommender() *monetization.Recommender { return s.deps.Recommender }

func cacheKey(countyName, day string) string {
	return "card:" + strings.ToLower(countyName) + ":" + day
}

// Assess returns the signal card of countyName on date. Results are cached
// per county-day. A stored record for the day always wins: the weather feed
// is only consulted for today when nothing is stored yet, and other days
// without a record yield store.ErrNotFound.
func (s *Service) Assess(ctx context.Context, countyName string, date time.Time) (SignalCard, error) {
	ctx, span := tracer.Start(ctx, "service.Assess")
	defer span.End()

	c, err := s.deps.Counties.Lookup(countyName)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return SignalCard{}, err
	}
	day := date.UTC().Format(signal.DateLayout)
	span.SetAttributes(telemetry.SignalAttributes(c.Name, day, "", "")...)

	var card SignalCard
	if cache.GetJSON(s.deps.Cache, cacheKey(c.Name, day), &card) {
		span.SetAttributes(attribute.Bool(telemetry.CacheHitKey, true))
		return card, nil
	}

	rec, err := s.deps.Store.Get(ctx, c.Name, day)
	metrics.RecordStoreOp(storeName(s.deps.Store), "get", ignoreNotFound(err))
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		if day != s.Today().Format(signal.DateLayout) {
			span.SetStatus(codes.Error, "no record")
			return SignalCard{}, fmt.Errorf("service: %s on %s: %w", c.Name, day, store.ErrNotFound)
		}
		if rec, err = s.scoreFromFeed(ctx, c, date); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return SignalCard{}, err
		}
	default:
		span.SetStatus(codes.Error, err.Error())
		return SignalCard{}, fmt.Errorf("service: record %s %s: %w", c.Name, day, err)
	}
	span.SetAttributes(attribute.String(telemetry.SourceKey, rec.Source))

	card, err = s.card(ctx, c.Name, date, rec.Assessment())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return SignalCard{}, err
	}
	span.SetAttributes(
		attribute.String(telemetry.LevelKey, string(card.Signal.Level)),
		attribute.String(telemetry.StateKey, card.Signal.Assessment.State),
	)

	if err := cache.SetJSON(s.deps.Cache, cacheKey(c.Name, day), card, s.deps.CacheTTL); err != nil {
		dmlog.FromContext(ctx).Warn().Err(err).Msg("signal card not cached")
	}
	return card, nil
}

// scoreFromFeed scores today from the weather feed and stores the result
// unless a record appeared meanwhile, in which case that record is returned.
func (s *Service) scoreFromFeed(ctx context.Context, c county.County, date time.Time) (store.DailyRecord, error) {
	obs, err := s.deps.Weather.Current(ctx, c.Name)
	if err != nil {
		return store.DailyRecord{}, fmt.Errorf("service: current weather for %s: %w", c.Name, err)
	}
	fc, err := s.deps.Weather.Forecast(ctx, c.Name, forecastDays)
	if err != nil {
		// A missing forecast only removes forecast pressure.
		dmlog.FromContext(ctx).Warn().Err(err).
			Str(dmlog.FieldCounty, c.Name).
			Str(dmlog.FieldEvent, "weather.forecast_failed").
			Msg("forecast unavailable, scoring without it")
		fc = nil
	}

	a, err := s.evaluate(ctx, c, date, obs, fc)
	if err != nil {
		return store.DailyRecord{}, err
	}
	day := date.UTC().Format(signal.DateLayout)
	rec, err := s.deps.Store.PutDailyIfAbsent(ctx, store.RecordOf(c.Name, day, store.SourceFeed, a))
	metrics.RecordStoreOp(storeName(s.deps.Store), "put", err)
	if err != nil {
		return store.DailyRecord{}, fmt.Errorf("service: record %s %s: %w", c.Name, day, err)
	}
	return rec, nil
}

// Ingest scores an operator-supplied observation, stores the daily record
// (replacing any feed-derived one) and drops any cached card for that
// county-day.
func (s *Service) Ingest(ctx context.Context, obs weather.Observation, fc []weather.Observation) (store.DailyRecord, scoring.Assessment, error) {
	ctx, span := tracer.Start(ctx, "service.Ingest")
	defer span.End()

	c, err := s.deps.Counties.Lookup(obs.County)
	if err != nil {
		return store.DailyRecord{}, scoring.Assessment{}, err
	}
	if obs.Date.IsZero() {
		obs.Date = s.Today()
	}
	a, err := s.evaluate(ctx, c, obs.Date, obs, fc)
	if err != nil {
		return store.DailyRecord{}, scoring.Assessment{}, err
	}

	day := obs.Date.UTC().Format(signal.DateLayout)
	rec := store.RecordOf(c.Name, day, store.SourceIngest, a)
	err = s.deps.Store.PutDaily(ctx, rec)
	metrics.RecordStoreOp(storeName(s.deps.Store), "put", err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return store.DailyRecord{}, scoring.Assessment{}, fmt.Errorf("service: record %s %s: %w", c.Name, day, err)
	}
	s.deps.Cache.Delete(cacheKey(c.Name, day))
	return rec, a, nil
}

// evaluate loads history and runs the model. It does not persist.
func (s *Service) evaluate(ctx context.Context, c county.County, date time.Time, obs weather.Observation, fc []weather.Observation) (scoring.Assessment, error) {
	hist, err := s.deps.Store.History(ctx, c.Name, date, historyDays)
	metrics.RecordStoreOp(storeName(s.deps.Store), "history", err)
	if err != nil {
		return scoring.Assessment{}, fmt.Errorf("service: history for %s: %w", c.Name, err)
	}

	sc := BuildContext(c, date, obs, fc, hist)
	sc.DAS = s.deps.DAS
	return scoring.Evaluate(sc), nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) card(ctx context.Context, countyName string, date time.Time, a scoring.Assessment) (SignalCard, error) {
	sig := signal.New(countyName, date, a, s.deps.Now())
	metrics.RecordSignal(sig.County, string(sig.Level), a.State, a.CAI)

	rec, err := s.deps.Recommender.Recommend(ctx, sig)
	if err != nil {
		metrics.RecordRecommendation("error")
		return SignalCard{}, fmt.Errorf("service: recommend: %w", err)
	}
	switch {
	case rec != nil:
		metrics.RecordRecommendation("shown")
	case sig.Elevated():
		metrics.RecordRecommendation("none_eligible")
	default:
		metrics.RecordRecommendation("suppressed_normal")
	}

	logger := dmlog.FromContext(ctx).Info().
		Str(dmlog.FieldEvent, "signal.assessed").
		Str(dmlog.FieldSignalID, sig.ID).
		Str(dmlog.FieldCounty, sig.County).
		Str(dmlog.FieldDate, sig.Date).
		Str(dmlog.FieldLevel, string(sig.Level)).
		Str(dmlog.FieldState, a.State).
		Float64("cai", a.CAI).
		Float64("av", a.AV)
	if rec != nil {
		logger = logger.Str(dmlog.FieldProduct, rec.Product.ID)
	}
	logger.Msg("signal assessed")

	return SignalCard{Signal: sig, Recommendation: rec}, nil
}

// BuildContext assembles model input from an observation, its forecast and
// prior daily records (oldest first).
func BuildContext(c county.County, date time.Time, obs weather.Observation, fc []weather.Observation, hist []store.DailyRecord) scoring.Context {
	sc := scoring.Context{
		Today: scoring.Inputs{
			Month:       int(date.Month()),
			HeatIndexF:  obs.HeatIndexF,
			Rain24hIn:   obs.Rain24hIn,
			WindSustMPH: obs.WindSustMPH,
			Tropical:    obs.Tropical,
			PopDensity:  c.Density,
		},
	}

	twoDaysAgo := date.UTC().AddDate(0, 0, -2).Format(signal.DateLayout)
	for _, r := range hist {
		sc.CAIHistory = append(sc.CAIHistory, r.CAI)
		sc.HeatHistory = append(sc.HeatHistory, r.Heat)
		if r.Date == twoDaysAgo {
			w := r.Wind
			sc.Wind48hAgo = &w
		}
	}
	for _, f := range fc {
		sc.Forecast = append(sc.Forecast, scoring.ForecastDay{
			HeatIndexF:  f.HeatIndexF,
			Rain24hIn:   f.Rain24hIn,
			WindSustMPH: f.WindSustMPH,
			Tropical:    f.Tropical,
			Month:       int(f.Date.Month()),
		})
	}
	return sc
}

func storeName(s store.Store) string {
	switch s.(type) {
	case *store.SQLiteStore:
		return store.BackendSQLite
	case *store.BadgerStore:
		return store.BackendBadger
	default:
		return store.BackendMemory
	}
}
