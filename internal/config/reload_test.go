// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestConfigHolder_ReloadKeepsOldOnError(t *testing.T) {
	path := writeConfig(t, "counties:\n  default: Leon\n")
	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewConfigHolder(initial, loader)
	ch := make(chan AppConfig, 1)
	h.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: nope\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, "Leon", h.Get().Counties.Default)
	assert.Empty(t, ch)

	require.NoError(t, os.WriteFile(path, []byte("counties:\n  default: Bay\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))
	assert.Equal(t, "Bay", h.Get().Counties.Default)
	got := <-ch
	assert.Equal(t, "Bay", got.Counties.Default)
}

func TestConfigHolder_WatcherReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeConfig(t, "counties:\n  default: Leon\n")
	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewConfigHolder(initial, loader)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.StartWatcher(ctx))

	require.NoError(t, os.WriteFile(path, []byte("counties:\n  default: Nassau\n"), 0o600))
	require.Eventually(t, func() bool {
		return h.Get().Counties.Default == "Nassau"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	h.Stop()
}

func TestConfigHolder_NoFileNoWatcher(t *testing.T) {
	h := NewConfigHolder(Defaults(), NewLoader("", "test"))
	require.NoError(t, h.StartWatcher(context.Background()))
	h.Stop()
}
