// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daymark-app/daymark/internal/api/problem"
	"github.com/daymark-app/daymark/internal/auth"
	"github.com/daymark-app/daymark/internal/county"
	"github.com/daymark-app/daymark/internal/monetization"
	"github.com/daymark-app/daymark/internal/policy"
	"github.com/daymark-app/daymark/internal/service"
	"github.com/daymark-app/daymark/internal/signal"
	"github.com/daymark-app/daymark/internal/store"
	"github.com/daymark-app/daymark/internal/weather"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var today = time.Date(2026, 8, 14, 12, 0, 0, 0, time.UTC)

func elevated() weather.Observation {
	return weather.Observation{HeatIndexF: 121, Rain24hIn: 5, WindSustMPH: 60, Tropical: true}
}

type fixture struct {
	srv   *Server
	store store.Store
	auth  *auth.Manager
}

func newFixture(t *testing.T, obs weather.Observation) fixture {
	t.Helper()
	reg, err := county.Default()
	require.NoError(t, err)
	cat, err := monetization.DefaultCatalog()
	require.NoError(t, err)
	st := store.NewMemoryStore()

	svc, err := service.New(service.Deps{
		Counties:    reg,
		Weather:     weather.NewStaticProvider(obs),
		Store:       st,
		Recommender: monetization.NewRecommender(cat, "", nil),
		Now:         func() time.Time { return today },
	})
	require.NoError(t, err)

	am, err := auth.NewManager(testSecret, "daymark")
	require.NoError(t, err)

	srv, err := New(context.Background(), Config{Version: "test", DefaultCounty: "Duval"},
		Deps{Service: svc, Auth: am})
	require.NoError(t, err)
	return fixture{srv: srv, store: st, auth: am}
}

func (f fixture) do(t *testing.T, method, target string, body []byte, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func TestHealth_PlainContract(t *testing.T) {
	f := newFixture(t, weather.DefaultObservation())
	rec := f.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", nil, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/readyz", nil, nil).Code)
}

func TestHome_NormalShowsGreenAndNoProduct(t *testing.T) {
	f := newFixture(t, weather.DefaultObservation())
	rec := f.do(t, http.MethodGet, "/", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Daymark</h1>")
	assert.Contains(t, body, "A calm reference point for today.")
	assert.Contains(t, body, "<b>Status:</b> GREEN")
	assert.NotContains(t, body, `class="recommendation"`)
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestHome_ElevatedShowsOneDisclosedProduct(t *testing.T) {
	f := newFixture(t, elevated())
	rec := f.do(t, http.MethodGet, "/", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<b>Status:</b> AMBER")
	assert.Equal(t, 1, strings.Count(body, `class="recommendation"`))
	assert.Contains(t, body, `class="disclosure muted small"`)
	assert.Contains(t, body, monetization.DefaultDisclosure)
	assert.Contains(t, body, `rel="sponsored noopener"`)
}

func TestHome_UnknownDefaultCounty(t *testing.T) {
	f := newFixture(t, weather.DefaultObservation())
	f.srv.SetDefaultCounty("Atlantis")
	rec := f.do(t, http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNKNOWN")
}

func TestCardTree_PassesGuardrails(t *testing.T) {
	f := newFixture(t, elevated())
	card, err := f.srv.svc.Assess(context.Background(), "Duval", today)
	require.NoError(t, err)
	require.NotNil(t, card.Recommendation)
	assert.Empty(t, policy.Lint(cardTree(card)))

	card.Recommendation.Disclosure.Style = "bold"
	assert.NotEmpty(t, policy.Lint(cardTree(card)))
}

func TestInsurerFlorida(t *testing.T) {
	f := newFixture(t, weather.DefaultObservation())

	rec := f.do(t, http.MethodGet, "/api/insurer/florida?county=duval", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var raw map[string]any
	decode(t, rec, &raw)
	for _, k := range []string{"county", "WPS", "ISS", "DAS", "CAI", "STS", "VEX", "FPC", "AV", "state"} {
		assert.Contains(t, raw, k)
	}
	assert.Equal(t, "Duval", raw["county"])
	assert.Equal(t, "Stable", raw["state"])
	assert.EqualValues(t, 10, raw["DAS"])

	rec = f.do(t, http.MethodGet, "/api/insurer/florida", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, "defaults to the configured county")

	rec = f.do(t, http.MethodGet, "/api/insurer/florida?county=Atlantis", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, problem.ContentType, rec.Header().Get("Content-Type"))
}

func TestSignal(t *testing.T) {
	f := newFixture(t, elevated())

	rec := f.do(t, http.MethodGet, "/api/signals/miami-dade", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var card service.SignalCard
	decode(t, rec, &card)
	assert.Equal(t, "Miami-Dade", card.Signal.County)
	assert.Equal(t, signal.LevelAmber, card.Signal.Level)
	require.NotNil(t, card.Recommendation)
	assert.Equal(t, card.Signal.ID, card.Recommendation.SignalID)

	rec = f.do(t, http.MethodGet, "/api/signals/duval?date=2026-08-01", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code, "other days are served from stored records only")
	assert.Equal(t, problem.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "NO_RECORD")
	_, err := f.store.Get(context.Background(), "Duval", "2026-08-01")
	assert.ErrorIs(t, err, store.ErrNotFound, "a miss must not persist anything")

	rec = f.do(t, http.MethodGet, "/api/signals/duval?date=tomorrow", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/signals/atlantis", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCounties(t *testing.T) {
	f := newFixture(t, weather.DefaultObservation())
	rec := f.do(t, http.MethodGet, "/api/counties", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Counties []string `json:"counties"`
	}
	decode(t, rec, &out)
	assert.Contains(t, out.Counties, "Duval")
}

func TestLint(t *testing.T) {
	f := newFixture(t, weather.DefaultObservation())

	bad := `{"kind":"page","children":[
		{"kind":"banner"},
		{"kind":"signal_card","level":"GREEN","children":[
			{"kind":"recommendation","children":[{"kind":"disclosure","text":"x","style":"muted","size":"small"}]}
		]}
	]}`
	rec := f.do(t, http.MethodPost, "/api/policy/lint", []byte(bad), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report LintReport
	decode(t, rec, &report)
	assert.False(t, report.OK)
	var rules []string
	for _, v := range report.Violations {
		rules = append(rules, v.Rule)
	}
	assert.Contains(t, rules, policy.RuleNoBannerAds)
	assert.Contains(t, rules, policy.RuleNoProductWhenNormal)

	rec = f.do(t, http.MethodPost, "/api/policy/lint", []byte(`{"kind":"page"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"violations":[]}`, rec.Body.String())

	for _, body := range []string{`{"kind":"popup"}`, `[]`, `"x"`, `42`} {
		rec = f.do(t, http.MethodPost, "/api/policy/lint", []byte(body), nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, body)
		assert.Contains(t, rec.Body.String(), "INVALID_TREE", body)
	}
}

func TestPolicyPage(t *testing.T) {
	f := newFixture(t, weather.DefaultObservation())
	rec := f.do(t, http.MethodGet, "/policy", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<article>")
}

func TestOpenAPI_DocumentServedAndValid(t *testing.T) {
	_, err := loadOpenAPI(context.Background())
	require.NoError(t, err)

	f := newFixture(t, weather.DefaultObservation())
	rec := f.do(t, http.MethodGet, "/api/openapi.yaml", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "openapi: 3.0.3")
}

func TestIngest(t *testing.T) {
	f := newFixture(t, weather.DefaultObservation())
	body := []byte(`{"county":"duval","date":"2026-08-13","heatIndexF":118,"rain24hIn":0.5,"windSustMph":12,
		"forecast":[{"heatIndexF":110,"rain24hIn":0,"windSustMph":10}]}`)

	rec := f.do(t, http.MethodPost, "/api/admin/observations", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	readOnly, err := f.auth.Issue("viewer", []string{"read"}, time.Minute)
	require.NoError(t, err)
	rec = f.do(t, http.MethodPost, "/api/admin/observations", body, map[string]string{"Authorization": "Bearer " + readOnly})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	tok, err := f.auth.Issue("ops", []string{auth.ScopeIngest}, time.Minute)
	require.NoError(t, err)
	bearer := map[string]string{"Authorization": "Bearer " + tok}

	rec = f.do(t, http.MethodPost, "/api/admin/observations", body, bearer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out IngestResponse
	decode(t, rec, &out)
	assert.Equal(t, "Duval", out.Record.County)
	assert.Equal(t, "2026-08-13", out.Record.Date)
	assert.Equal(t, out.Assessment.CAI, out.Record.CAI)

	hist, err := f.store.History(context.Background(), "Duval", today, 5)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "2026-08-13", hist[0].Date)

	rec = f.do(t, http.MethodGet, "/api/signals/duval?date=2026-08-13", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var card service.SignalCard
	decode(t, rec, &card)
	assert.Equal(t, "2026-08-13", card.Signal.Date)
	assert.Equal(t, out.Assessment.CAI, card.Signal.Assessment.CAI)

	stored, err := f.store.Get(context.Background(), "Duval", "2026-08-13")
	require.NoError(t, err)
	assert.Equal(t, out.Record, stored, "reading an ingested day leaves it untouched")

	rec = f.do(t, http.MethodPost, "/api/admin/observations",
		[]byte(`{"county":"duval","heatIndexF":90,"rain24hIn":-1,"windSustMph":5}`), bearer)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "negative rain fails the contract")

	rec = f.do(t, http.MethodPost, "/api/admin/observations",
		[]byte(`{"county":"duval","heatIndexF":400,"rain24hIn":1,"windSustMph":5}`), bearer)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "implausible heat index")

	rec = f.do(t, http.MethodPost, "/api/admin/observations",
		[]byte(`{"county":"atlantis","heatIndexF":90,"rain24hIn":1,"windSustMph":5}`), bearer)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownRouteIsProblem(t *testing.T) {
	f := newFixture(t, weather.DefaultObservation())
	rec := f.do(t, http.MethodGet, "/api/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, problem.ContentType, rec.Header().Get("Content-Type"))
}
