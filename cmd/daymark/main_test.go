// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daymark-app/daymark/internal/config"
	"github.com/daymark-app/daymark/internal/signal"
	"github.com/daymark-app/daymark/internal/store"
	"github.com/daymark-app/daymark/internal/version"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if err != nil {
		return 1
	}
	return 0
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, version.Version)
}

func TestScore_DefaultsAreStable(t *testing.T) {
	out, err := execute(t, "", "score", "--county", "duval", "--month", "8")
	require.NoError(t, err)

	var got scoreOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Duval", got.County)
	assert.Equal(t, "Stable", got.State)
	assert.Equal(t, signal.LevelGreen, got.Level)
	assert.Equal(t, signal.HazardHeat, got.Driver)
	assert.InDelta(t, 9.0, got.WPS, 1e-9)
}

func TestScore_TropicalSurge(t *testing.T) {
	out, err := execute(t, "", "score",
		"--month", "9", "--heat", "121", "--rain", "7", "--wind", "80", "--tropical",
		"--density", "1500", "--history", "20,30,40")
	require.NoError(t, err)

	var got scoreOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotEqual(t, signal.LevelGreen, got.Level)
	assert.Equal(t, float64(95), got.FPC)
}

func TestScore_Errors(t *testing.T) {
	_, err := execute(t, "", "score", "--county", "Atlantis")
	assert.Error(t, err)

	_, err = execute(t, "", "score", "--month", "13")
	assert.Error(t, err)
}

func writeTree(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLint(t *testing.T) {
	tests := []struct {
		name     string
		tree     string
		wantCode int
		wantOut  string
	}{
		{
			name:     "clean",
			tree:     `{"kind":"page","children":[{"kind":"signal_card","level":"GREEN"}]}`,
			wantCode: 0,
			wantOut:  "ok",
		},
		{
			name:     "banner",
			tree:     `{"kind":"page","children":[{"kind":"banner","text":"SALE"}]}`,
			wantCode: 1,
			wantOut:  "no-banner-ads",
		},
		{
			name: "product when normal",
			tree: `{"kind":"signal_card","level":"GREEN","children":[
				{"kind":"recommendation","children":[{"kind":"disclosure","style":"muted","size":"small","text":"We may earn a commission."}]}]}`,
			wantCode: 1,
			wantOut:  "no-product-when-normal",
		},
		{
			name:     "schema failure",
			tree:     `{"kind":"popup"}`,
			wantCode: 2,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", "lint", writeTree(t, tt.tree))
			assert.Equal(t, tt.wantCode, exitCode(err), out)
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestLint_Stdin(t *testing.T) {
	out, err := execute(t, `{"kind":"ad"}`, "lint", "-")
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, out, "no-banner-ads")
}

func TestHealthcheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/readyz" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	out, err := execute(t, "", "healthcheck", "--addr", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "successful")

	_, err = execute(t, "", "healthcheck", "--addr", srv.URL, "--mode", "ready")
	assert.ErrorContains(t, err, "503")
}

func TestStorageVerify(t *testing.T) {
	dir := t.TempDir()
	st, err := store.OpenSQLiteStore(store.SQLitePath(dir))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	t.Run("configured data dir", func(t *testing.T) {
		t.Setenv(config.EnvPrefix+"DATA_DIR", dir)
		out, err := execute(t, "", "storage", "verify")
		require.NoError(t, err, out)
		assert.Contains(t, out, "integrity ok")
	})

	t.Run("full mode", func(t *testing.T) {
		out, err := execute(t, "", "storage", "verify", "--path", store.SQLitePath(dir), "--mode", "full")
		require.NoError(t, err, out)
		assert.Contains(t, out, "mode: full")
	})

	t.Run("corrupt file", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.sqlite")
		require.NoError(t, os.WriteFile(bad, bytes.Repeat([]byte("not a database "), 512), 0o600))
		_, err := execute(t, "", "storage", "verify", "--path", bad)
		assert.Equal(t, 1, exitCode(err))
	})

	t.Run("bad input", func(t *testing.T) {
		_, err := execute(t, "", "storage", "verify", "--path", store.SQLitePath(dir), "--mode", "deep")
		assert.Equal(t, 2, exitCode(err))

		_, err = execute(t, "", "storage", "verify", "--path", filepath.Join(dir, "missing.sqlite"))
		assert.Equal(t, 2, exitCode(err))
	})
}
