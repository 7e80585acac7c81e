// SPDX-License-Identifier: MIT

package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/daymark-app/daymark/internal/metrics"
	"github.com/daymark-app/daymark/internal/resilience"
)

const maxBodyBytes = 1 << 20

// HTTPConfig configures the JSON feed client.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RPS caps outbound requests per second; 0 disables the limiter.
	RPS   float64
	Burst int
	// BreakerThreshold consecutive failures open the circuit for BreakerReset.
	BreakerThreshold int
	BreakerReset     time.Duration
	HTTPClient       *http.Client
}

// HTTPProvider reads observations from a JSON weather feed:
//
//	GET {base}/v1/observations/{county}
//	GET {base}/v1/forecast/{county}?days=N
type HTTPProvider struct {
	base    string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
}

// NewHTTPProvider validates cfg and builds a provider.
func NewHTTPProvider(cfg HTTPConfig) (*HTTPProvider, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("weather: invalid base url %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &HTTPProvider{
		base:    strings.TrimRight(u.String(), "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		client:  client,
		limiter: limiter,
		breaker: resilience.NewCircuitBreaker("weather", cfg.BreakerThreshold, cfg.BreakerReset),
	}, nil
}

func (p *HTTPProvider) Name() string { return "http" }

type observationDTO struct {
	County      string  `json:"county"`
	Date        string  `json:"date"`
	HeatIndexF  float64 `json:"heat_index_f"`
	Rain24hIn   float64 `json:"rain_24h_in"`
	WindSustMPH float64 `json:"wind_sust_mph"`
	Tropical    bool    `json:"tropical"`
}

func (d observationDTO) toObservation(county string) (Observation, error) {
	day, err := time.Parse("2006-01-02", d.Date)
	if err != nil {
		return Observation{}, fmt.Errorf("%w: bad date %q", ErrUnavailable, d.Date)
	}
	if d.County == "" {
		d.County = county
	}
	return Observation{
		County:      d.County,
		Date:        day,
		HeatIndexF:  d.HeatIndexF,
		Rain24hIn:   d.Rain24hIn,
		WindSustMPH: d.WindSustMPH,
		Tropical:    d.Tropical,
	}, nil
}

// Current returns today's observation. Concurrent calls for the same county
// share one upstream request.
func (p *HTTPProvider) Current(ctx context.Context, county string) (Observation, error) {
	start := time.Now()
	v, err := p.shared(ctx, "current:"+strings.ToLower(county), func(ctx context.Context) (any, error) {
		var dto observationDTO
		if err := p.get(ctx, "/v1/observations/"+url.PathEscape(county), nil, &dto); err != nil {
			return Observation{}, err
		}
		return dto.toObservation(county)
	})
	metrics.ObserveWeatherFetch(p.Name(), "current", err, time.Since(start))
	if err != nil {
		return Observation{}, err
	}
	return v.(Observation), nil
}

// Forecast returns up to days future observations.
func (p *HTTPProvider) Forecast(ctx context.Context, county string, days int) ([]Observation, error) {
	start := time.Now()
	key := "forecast:" + strings.ToLower(county) + ":" + strconv.Itoa(days)
	v, err := p.shared(ctx, key, func(ctx context.Context) (any, error) {
		var body struct {
			Days []observationDTO `json:"days"`
		}
		q := url.Values{"days": []string{strconv.Itoa(days)}}
		if err := p.get(ctx, "/v1/forecast/"+url.PathEscape(county), q, &body); err != nil {
			return nil, err
		}
		out := make([]Observation, 0, len(body.Days))
		for _, d := range body.Days {
			o, err := d.toObservation(county)
			if err != nil {
				return nil, err
			}
			out = append(out, o)
		}
		return out, nil
	})
	metrics.ObserveWeatherFetch(p.Name(), "forecast", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return v.([]Observation), nil
}

// shared runs fn once per key for all concurrent callers. The upstream call
// is detached from the caller that started it and bounded by the client
// timeout, so one caller giving up does not fail the others.
func (p *HTTPProvider) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := p.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		return fn(fetchCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	}
}

func (p *HTTPProvider) get(ctx context.Context, path string, q url.Values, out any) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}

	err := p.breaker.Execute(func() error {
		u := p.base + path
		if len(q) > 0 {
			u += "?" + q.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if p.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.apiKey)
		}

		res, err := p.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		defer res.Body.Close()

		switch {
		case res.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case res.StatusCode != http.StatusOK:
			_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxBodyBytes))
			return fmt.Errorf("%w: status %d", ErrUnavailable, res.StatusCode)
		}

		if err := json.NewDecoder(io.LimitReader(res.Body, maxBodyBytes)).Decode(out); err != nil {
			return fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
		}
		return nil
	}, func(err error) bool {
		return errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
	})

	if errors.Is(err, resilience.ErrCircuitOpen) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
