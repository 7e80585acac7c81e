// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/daymark-app/daymark/internal/api"
	"github.com/daymark-app/daymark/internal/auth"
	"github.com/daymark-app/daymark/internal/cache"
	"github.com/daymark-app/daymark/internal/config"
	"github.com/daymark-app/daymark/internal/county"
	"github.com/daymark-app/daymark/internal/health"
	"github.com/daymark-app/daymark/internal/jobs"
	"github.com/daymark-app/daymark/internal/log"
	"github.com/daymark-app/daymark/internal/monetization"
	"github.com/daymark-app/daymark/internal/service"
	"github.com/daymark-app/daymark/internal/store"
	"github.com/daymark-app/daymark/internal/telemetry"
	"github.com/daymark-app/daymark/internal/weather"
)

const (
	serviceName   = "daymark"
	janitorPeriod = time.Minute
	// ledgerTTL outlives any county-day a reader can still see.
	ledgerTTL = 72 * time.Hour
)

// Runtime is the wired object graph for one configuration.
type Runtime struct {
	Service     *service.Service
	API         *api.Server
	Health      *health.Manager
	Refresher   *jobs.Refresher
	Recommender *monetization.Recommender

	logger  zerolog.Logger
	closers []namedHook
}

func (rt *Runtime) onClose(name string, fn ShutdownHook) {
	rt.closers = append(rt.closers, namedHook{name: name, hook: fn})
}

// Build wires every component from cfg. On error, whatever was already
// opened is closed again.
func Build(ctx context.Context, cfg config.AppConfig) (rt *Runtime, err error) {
	rt = &Runtime{
		logger: log.WithComponent("daemon"),
	}
	defer func() {
		if err != nil {
			_ = rt.Close(context.WithoutCancel(ctx))
			rt = nil
		}
	}()

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	rt.onClose("telemetry", tp.Shutdown)

	counties, err := county.Default()
	if err != nil {
		return nil, err
	}

	rt.Health = health.NewManager(cfg.Version)

	if cfg.Store.Backend != store.BackendMemory {
		if err := health.CheckDataDir(cfg.DataDir); err != nil {
			return nil, err
		}
	}
	st, err := store.Open(cfg.Store.Backend, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	rt.onClose("store", func(context.Context) error { return st.Close() })
	rt.Health.RegisterChecker(health.NewFuncChecker("store", func(ctx context.Context) error {
		_, err := st.History(ctx, cfg.Counties.Default, time.Now(), 1)
		return err
	}))

	c, ledger, err := rt.buildCache(cfg)
	if err != nil {
		return nil, err
	}

	wp, err := buildWeather(cfg.Weather)
	if err != nil {
		return nil, err
	}

	catalog, err := monetization.LoadCatalog(cfg.Monetization.CatalogPath)
	if err != nil {
		return nil, err
	}
	rt.Recommender = monetization.NewRecommender(catalog, cfg.Monetization.Disclosure, ledger)

	rt.Service, err = service.New(service.Deps{
		Counties:    counties,
		Weather:     wp,
		Store:       st,
		Cache:       c,
		Recommender: rt.Recommender,
		CacheTTL:    cfg.Cache.TTL,
	})
	if err != nil {
		return nil, err
	}

	rt.Refresher, err = jobs.NewRefresher(jobs.Config{
		Counties:    cfg.Counties.Watch,
		Interval:    cfg.Refresh.Interval,
		Parallelism: cfg.Refresh.Parallelism,
		DataDir:     cfg.DataDir,
	}, rt.Service)
	if err != nil {
		return nil, err
	}
	if cfg.Refresh.Interval > 0 {
		rt.Health.RegisterChecker(health.NewLastRunChecker(rt.Refresher.LastRun, 2*cfg.Refresh.Interval))
	}

	var am *auth.Manager
	if cfg.Auth.Secret != "" {
		if am, err = auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer); err != nil {
			return nil, err
		}
	}

	rpm := 0
	if cfg.RateLimit.Enabled {
		rpm = cfg.RateLimit.RPM
	}
	tracing := ""
	if cfg.Telemetry.Enabled {
		tracing = serviceName
	}
	rt.API, err = api.New(ctx, api.Config{
		Version:        cfg.Version,
		DefaultCounty:  cfg.Counties.Default,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimitRPM:   rpm,
		TracingService: tracing,
	}, api.Deps{Service: rt.Service, Health: rt.Health, Auth: am})
	if err != nil {
		return nil, err
	}

	rt.logger.Info().
		Str(log.FieldEvent, "daemon.wired").
		Str("store", cfg.Store.Backend).
		Str("cache", cfg.Cache.Backend).
		Str("weather", wp.Name()).
		Int("products", len(catalog.Products)).
		Bool("ingest", am != nil).
		Msg("components wired")
	return rt, nil
}

func (rt *Runtime) buildCache(cfg config.AppConfig) (cache.Cache, monetization.Ledger, error) {
	switch cfg.Cache.Backend {
	case "redis":
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		}, log.WithComponent("cache"))
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		rt.onClose("redis", func(context.Context) error { return rc.Close() })
		checker := health.NewFuncChecker("redis", rc.HealthCheck)
		checker.Degrade = true
		rt.Health.RegisterChecker(checker)
		// Replicas sharing redis also share the one-suggestion ledger.
		return rc, monetization.NewRedisLedger(rc.Client(), ledgerTTL), nil
	case "none":
		return cache.NewNoOpCache(), nil, nil
	default:
		mc := cache.NewMemoryCache(janitorPeriod)
		rt.onClose("cache", func(context.Context) error { mc.Stop(); return nil })
		return mc, nil, nil
	}
}

func buildWeather(cfg config.WeatherConfig) (weather.Provider, error) {
	if cfg.Provider != "http" {
		return weather.NewStaticProvider(weather.DefaultObservation()), nil
	}
	p, err := weather.NewHTTPProvider(weather.HTTPConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
		RPS:     cfg.RPS,
	})
	if err != nil {
		return nil, fmt.Errorf("weather: %w", err)
	}
	return p, nil
}

// Apply pushes the reloadable parts of cfg into the running components.
func (rt *Runtime) Apply(cfg config.AppConfig) {
	rt.Recommender.SetDisclosure(cfg.Monetization.Disclosure)
	// The catalog file may change without its path changing, so every
	// reload re-reads it.
	if catalog, err := monetization.LoadCatalog(cfg.Monetization.CatalogPath); err != nil {
		rt.logger.Warn().Err(err).Str(log.FieldEvent, "catalog.reload_failed").
			Msg("keeping previous affiliate catalog")
	} else {
		rt.Recommender.SetCatalog(catalog)
	}
	rt.Refresher.SetCounties(cfg.Counties.Watch)
	rt.API.SetDefaultCounty(cfg.Counties.Default)
	rt.logger.Info().Str(log.FieldEvent, "config.applied").Msg("configuration applied")
}

// RegisterHooks hands resource cleanup to the manager.
func (rt *Runtime) RegisterHooks(m Manager) {
	for _, c := range rt.closers {
		m.RegisterShutdownHook(c.name, c.hook)
	}
	rt.closers = nil
}

// Close releases resources in reverse order. Used when no manager took
// ownership of them.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].hook(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rt.closers[i].name, err))
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
