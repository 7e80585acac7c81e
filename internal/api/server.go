// SPDX-License-Identifier: MIT

// Package api provides the HTTP surface of daymark.
package api

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/daymark-app/daymark/internal/api/middleware"
	"github.com/daymark-app/daymark/internal/auth"
	"github.com/daymark-app/daymark/internal/health"
	"github.com/daymark-app/daymark/internal/policy"
	"github.com/daymark-app/daymark/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// Config holds the HTTP-facing settings.
type Config struct {
	Version        string
	DefaultCounty  string
	AllowedOrigins []string
	// RateLimitRPM is the per-IP budget per minute; 0 disables limiting.
	RateLimitRPM int
	// TracingService names spans; empty disables HTTP tracing.
	TracingService string
}

// Deps are the collaborators of a Server.
type Deps struct {
	Service *service.Service
	Health  *health.Manager
	// Auth verifies ingest tokens; nil disables the admin routes.
	Auth *auth.Manager
}

// Server represents the HTTP API server.
type Server struct {
	cfg    Config
	svc    *service.Service
	health *health.Manager
	auth   *auth.Manager

	mu            sync.RWMutex
	defaultCounty string

	policyDoc policy.Document
	pages     *template.Template
	validator *openAPIValidator
	handler   http.Handler
}

// New creates the server and builds its route table.
func New(ctx context.Context, cfg Config, d Deps) (*Server, error) {
	if d.Service == nil {
		return nil, errors.New("api: service is required")
	}
	if d.Health == nil {
		d.Health = health.NewManager(cfg.Version)
	}

	doc, err := policy.MonetizationPolicy()
	if err != nil {
		return nil, fmt.Errorf("api: policy document: %w", err)
	}
	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("api: templates: %w", err)
	}
	validator, err := newOpenAPIValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}

	s := &Server{
		cfg:           cfg,
		svc:           d.Service,
		health:        d.Health,
		auth:          d.Auth,
		defaultCounty: cfg.DefaultCounty,
		policyDoc:     doc,
		pages:         pages,
		validator:     validator,
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// SetDefaultCounty changes the county shown on the status page.
func (s *Server) SetDefaultCounty(name string) {
	s.mu.Lock()
	s.defaultCounty = name
	s.mu.Unlock()
}

// DefaultCounty returns the county shown on the status page.
func (s *Server) DefaultCounty() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultCounty
}

func (s *Server) routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		AllowedOrigins:        s.cfg.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
		RateLimitRPM:          s.cfg.RateLimitRPM,
	})
	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	r.Get("/health", s.handleHealth)
	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Get("/", s.handleHome)
	r.Get("/policy", s.handlePolicy)

	r.Route("/api", func(r chi.Router) {
		r.Get("/openapi.yaml", s.handleOpenAPI)

		r.Group(func(r chi.Router) {
			r.Use(s.validator.Middleware)
			r.Get("/insurer/florida", s.handleInsurerFlorida)
			r.Get("/counties", s.handleCounties)
			r.Get("/signals/{county}", s.handleSignal)
			r.Post("/policy/lint", s.handleLint)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.auth, auth.ScopeIngest))
			r.Use(s.validator.Middleware)
			r.Post("/admin/observations", s.handleIngest)
		})
	})
	return r
}
