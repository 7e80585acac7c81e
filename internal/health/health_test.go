// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	name   string
	result CheckResult
}

func (m *mockChecker) Name() string                      { return m.name }
func (m *mockChecker) Check(context.Context) CheckResult { return m.result }

func TestManager_Health_NoCheckers(t *testing.T) {
	m := NewManager("v1.0.0")
	resp := m.Health(context.Background(), true)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.Empty(t, resp.Checks)
}

func TestManager_Health_VerboseAggregates(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(&mockChecker{name: "a", result: CheckResult{Status: StatusHealthy}})
	m.RegisterChecker(&mockChecker{name: "b", result: CheckResult{Status: StatusDegraded}})

	assert.Equal(t, StatusHealthy, m.Health(context.Background(), false).Status)
	resp := m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestManager_Ready(t *testing.T) {
	tests := []struct {
		name      string
		results   []Status
		wantReady bool
		want      Status
	}{
		{"none", nil, true, StatusHealthy},
		{"healthy", []Status{StatusHealthy}, true, StatusHealthy},
		{"degraded", []Status{StatusHealthy, StatusDegraded}, true, StatusDegraded},
		{"unhealthy wins", []Status{StatusUnhealthy, StatusDegraded}, false, StatusUnhealthy},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("v1")
			for i, s := range tt.results {
				m.RegisterChecker(&mockChecker{name: string(rune('a' + i)), result: CheckResult{Status: s}})
			}
			resp := m.Ready(context.Background())
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}

func TestManager_ServeReady_StatusCodes(t *testing.T) {
	m := NewManager("v1")
	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	m.RegisterChecker(&mockChecker{name: "store", result: CheckResult{Status: StatusUnhealthy}})
	rec = httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Ready)
	assert.Contains(t, body.Checks, "store")
}

func TestManager_ServeHealth_AlwaysOK(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(&mockChecker{name: "store", result: CheckResult{Status: StatusUnhealthy}})

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestFuncChecker(t *testing.T) {
	ok := NewFuncChecker("redis", func(context.Context) error { return nil })
	assert.Equal(t, "redis", ok.Name())
	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)

	bad := NewFuncChecker("redis", func(context.Context) error { return errors.New("refused") })
	r := bad.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.Equal(t, "refused", r.Error)

	bad.Degrade = true
	assert.Equal(t, StatusDegraded, bad.Check(context.Background()).Status)
}

func TestLastRunChecker(t *testing.T) {
	now := time.Date(2026, 8, 14, 12, 0, 0, 0, time.UTC)
	var last time.Time
	var lastErr string
	c := NewLastRunChecker(func() (time.Time, string) { return last, lastErr }, time.Hour)
	c.now = func() time.Time { return now }

	assert.Equal(t, "last_refresh", c.Name())
	assert.Equal(t, StatusUnhealthy, c.Check(context.Background()).Status)

	last = now.Add(-10 * time.Minute)
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	lastErr = "weather: feed unavailable"
	assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)

	lastErr = ""
	last = now.Add(-2 * time.Hour)
	assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)
}

func TestCheckDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	require.NoError(t, CheckDataDir(dir))

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	assert.Error(t, CheckDataDir(file))
}
