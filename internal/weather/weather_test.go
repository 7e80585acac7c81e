// SPDX-License-Identifier: MIT

package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider(DefaultObservation())
	p.clock = func() time.Time { return time.Date(2026, 1, 15, 18, 30, 0, 0, time.UTC) }

	o, err := p.Current(context.Background(), "Duval")
	require.NoError(t, err)
	assert.Equal(t, "Duval", o.County)
	assert.Equal(t, 92.0, o.HeatIndexF)
	assert.Equal(t, 0.2, o.Rain24hIn)
	assert.Equal(t, 18.0, o.WindSustMPH)
	assert.False(t, o.Tropical)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), o.Date)

	fc, err := p.Forecast(context.Background(), "Duval", 3)
	require.NoError(t, err)
	require.Len(t, fc, 3)
	assert.Equal(t, time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC), fc[2].Date)
}

func TestNewHTTPProvider_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPProvider(HTTPConfig{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestHTTPProvider_Current(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/observations/Miami-Dade", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"date":"2026-08-30","heat_index_f":108,"rain_24h_in":3.1,"wind_sust_mph":40,"tropical":true}`))
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	o, err := p.Current(context.Background(), "Miami-Dade")
	require.NoError(t, err)
	assert.Equal(t, "Miami-Dade", o.County)
	assert.Equal(t, 108.0, o.HeatIndexF)
	assert.True(t, o.Tropical)
	assert.Equal(t, 30, o.Date.Day())
}

func TestHTTPProvider_Forecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast/Duval", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("days"))
		_, _ = w.Write([]byte(`{"days":[{"date":"2026-08-31","heat_index_f":101},{"date":"2026-09-01","wind_sust_mph":60}]}`))
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	fc, err := p.Forecast(context.Background(), "Duval", 2)
	require.NoError(t, err)
	require.Len(t, fc, 2)
	assert.Equal(t, 60.0, fc[1].WindSustMPH)
}

func TestHTTPProvider_NotFoundDoesNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.NotFound(w, nil)
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL, BreakerThreshold: 1, BreakerReset: time.Minute})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = p.Current(context.Background(), "Nowhere")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPProvider_BreakerOpensOnUpstreamErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL, BreakerThreshold: 2, BreakerReset: time.Minute})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err = p.Current(context.Background(), "Duval")
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, int32(2), calls.Load(), "open breaker must short-circuit")
}

func TestHTTPProvider_CollapsesConcurrentRequests(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"date":"2026-08-30","heat_index_f":95}`))
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := p.Current(context.Background(), "Duval")
			assert.NoError(t, err)
			assert.Equal(t, 95.0, o.HeatIndexF)
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPProvider_CallerCancelDoesNotAbortSharedFetch(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var upstreamErr atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		started <- struct{}{}
		<-release
		if err := r.Context().Err(); err != nil {
			upstreamErr.Store(err)
		}
		_, _ = w.Write([]byte(`{"date":"2026-08-30","heat_index_f":97}`))
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL, BreakerThreshold: 1, BreakerReset: time.Minute})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := p.Current(ctx, "Duval")
		firstErr <- err
	}()
	<-started

	second := make(chan Observation, 1)
	go func() {
		o, err := p.Current(context.Background(), "Duval")
		assert.NoError(t, err)
		second <- o
	}()

	cancel()
	err = <-firstErr
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrUnavailable)

	close(release)
	o := <-second
	assert.Equal(t, 97.0, o.HeatIndexF)
	assert.Nil(t, upstreamErr.Load(), "the upstream request outlives the first caller")

	o, err = p.Current(context.Background(), "Duval")
	require.NoError(t, err, "breaker stays closed")
	assert.Equal(t, 97.0, o.HeatIndexF)
	assert.LessOrEqual(t, calls.Load(), int32(3))
}
