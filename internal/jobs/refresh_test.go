// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/daymark-app/daymark/internal/monetization"
	"github.com/daymark-app/daymark/internal/scoring"
	"github.com/daymark-app/daymark/internal/service"
	"github.com/daymark-app/daymark/internal/signal"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var today = time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC)

type fakeAssessor struct {
	mu       sync.Mutex
	calls    map[string]int
	inFlight atomic.Int32
	peak     atomic.Int32
	fail     map[string]error
	delay    time.Duration
}

func (f *fakeAssessor) Today() time.Time { return today }

func (f *fakeAssessor) Assess(ctx context.Context, county string, date time.Time) (service.SignalCard, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[county]++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return service.SignalCard{}, ctx.Err()
		}
	}
	if err := f.fail[county]; err != nil {
		return service.SignalCard{}, err
	}

	a := scoring.Assessment{CAI: 60, AV: 40, State: scoring.StateBuilding}
	card := service.SignalCard{Signal: signal.New(county, date, a, date)}
	card.Recommendation = &monetization.Recommendation{SignalID: card.Signal.ID, Product: monetization.Product{ID: "poncho-compact"}}
	return card, nil
}

func TestRunOnce_WritesStatusSnapshot(t *testing.T) {
	dir := t.TempDir()
	fa := &fakeAssessor{}
	r, err := NewRefresher(Config{Counties: []string{"Duval", "Leon"}, DataDir: dir}, fa)
	require.NoError(t, err)

	st, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-08-14", st.Date)
	require.Len(t, st.Counties, 2)
	assert.Equal(t, "Duval", st.Counties[0].County)
	assert.Equal(t, "AMBER", st.Counties[0].Level)
	assert.Equal(t, "poncho-compact", st.Counties[0].Product)
	assert.NotEmpty(t, st.JobID)

	onDisk, err := ReadStatus(dir)
	require.NoError(t, err)
	assert.Equal(t, st.JobID, onDisk.JobID)
	assert.Equal(t, st.Counties, onDisk.Counties)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, StatusFile, entries[0].Name())

	last, msg := r.LastRun()
	assert.False(t, last.IsZero())
	assert.Empty(t, msg)
}

func TestRunOnce_CountyFailureIsIsolated(t *testing.T) {
	fa := &fakeAssessor{fail: map[string]error{"Atlantis": errors.New("unknown county")}}
	r, err := NewRefresher(Config{Counties: []string{"Duval", "Atlantis", "Leon"}, DataDir: t.TempDir()}, fa)
	require.NoError(t, err)

	st, err := r.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, st.Failed)
	assert.Equal(t, "unknown county", st.Counties[1].Error)
	assert.Equal(t, "AMBER", st.Counties[2].Level)

	last, msg := r.LastRun()
	assert.False(t, last.IsZero())
	assert.Contains(t, msg, "1 of 3 counties failed")
}

func TestRunOnce_BoundedParallelism(t *testing.T) {
	fa := &fakeAssessor{delay: 20 * time.Millisecond}
	counties := []string{"Alachua", "Bay", "Broward", "Collier", "Duval", "Escambia", "Hillsborough", "Lee"}
	r, err := NewRefresher(Config{Counties: counties, Parallelism: 2}, fa)
	require.NoError(t, err)

	_, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, fa.peak.Load(), int32(2))
	assert.Len(t, fa.calls, len(counties))
}

func TestRun_StopsOnCancel(t *testing.T) {
	fa := &fakeAssessor{}
	r, err := NewRefresher(Config{Counties: []string{"Duval"}, Interval: 10 * time.Millisecond}, fa)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		fa.mu.Lock()
		defer fa.mu.Unlock()
		return fa.calls["Duval"] >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.NotNil(t, r.Last())
}

func TestNewRefresher_Validation(t *testing.T) {
	_, err := NewRefresher(Config{}, nil)
	assert.Error(t, err)
	_, err = NewRefresher(Config{Interval: -time.Second}, &fakeAssessor{})
	assert.Error(t, err)
}

func TestWriteStatus_ReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, StatusFile), []byte("stale"), 0o600))

	require.NoError(t, writeStatus(context.Background(), dir, &Status{JobID: "j1"}))
	st, err := ReadStatus(dir)
	require.NoError(t, err)
	assert.Equal(t, "j1", st.JobID)
}
