// SPDX-License-Identifier: MIT

package monetization

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daymark-app/daymark/internal/signal"
)

func testCatalog(t *testing.T) Catalog {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	return c
}

func sig(id string, level signal.Level, driver signal.Hazard) signal.Signal {
	return signal.Signal{ID: id, County: "Duval", Level: level, Driver: driver}
}

func TestRecommend_NormalConditionsShowNothing(t *testing.T) {
	r := NewRecommender(testCatalog(t), "", nil)

	for _, h := range []signal.Hazard{signal.HazardHeat, signal.HazardRain, signal.HazardWind} {
		rec, err := r.Recommend(context.Background(), sig("s-"+string(h), signal.LevelGreen, h))
		require.NoError(t, err)
		assert.Nil(t, rec, "no product may appear for a GREEN %s signal", h)
	}
}

func TestRecommend_FirstEligibleProduct(t *testing.T) {
	r := NewRecommender(testCatalog(t), "", nil)
	ctx := context.Background()

	rec, err := r.Recommend(ctx, sig("amber-heat", signal.LevelAmber, signal.HazardHeat))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "cooling-towel-2pk", rec.Product.ID)

	rec, err = r.Recommend(ctx, sig("red-wind", signal.LevelRed, signal.HazardWind))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "lantern-usb", rec.Product.ID)
}

func TestRecommend_DisclosureAlwaysAttached(t *testing.T) {
	r := NewRecommender(testCatalog(t), "", nil)

	rec, err := r.Recommend(context.Background(), sig("s1", signal.LevelRed, signal.HazardRain))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, DefaultDisclosure, rec.Disclosure.Text)
	assert.Equal(t, DisclosureStyleMuted, rec.Disclosure.Style)
	assert.Equal(t, DisclosureSizeSmall, rec.Disclosure.Size)
	assert.Equal(t, "s1", rec.SignalID)
}

func TestRecommend_OneSuggestionPerSignal(t *testing.T) {
	c := testCatalog(t)
	ledger := NewMemoryLedger()
	r := NewRecommender(c, "custom disclosure", ledger)
	ctx := context.Background()
	s := sig("sticky", signal.LevelAmber, signal.HazardHeat)

	first, err := r.Recommend(ctx, s)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "custom disclosure", first.Disclosure.Text)

	// Reordering the catalog must not hand the same signal a different product.
	reordered := Catalog{Products: []Product{c.Products[2], c.Products[0]}}
	reordered.Products[0].Hazards = []signal.Hazard{signal.HazardHeat}
	r.SetCatalog(reordered)

	second, err := r.Recommend(ctx, s)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.Product.ID, second.Product.ID)
	assert.Equal(t, 1, ledger.Len())
}

func TestRecommend_RemovedProductYieldsNothing(t *testing.T) {
	r := NewRecommender(testCatalog(t), "", nil)
	ctx := context.Background()
	s := sig("gone", signal.LevelAmber, signal.HazardRain)

	first, err := r.Recommend(ctx, s)
	require.NoError(t, err)
	require.NotNil(t, first)

	r.SetCatalog(Catalog{Products: []Product{{
		ID: "other", Name: "Other", URL: "https://x.example.com", Hazards: []signal.Hazard{signal.HazardRain},
		MinLevel: signal.LevelAmber, Active: true,
	}}})

	again, err := r.Recommend(ctx, s)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestRecommend_RespectsMinLevelAndActive(t *testing.T) {
	c := Catalog{Products: []Product{
		{ID: "red-only", Name: "Red", URL: "https://a.example.com", Hazards: []signal.Hazard{signal.HazardHeat}, MinLevel: signal.LevelRed, Active: true},
		{ID: "inactive", Name: "Off", URL: "https://b.example.com", Hazards: []signal.Hazard{signal.HazardHeat}, MinLevel: signal.LevelAmber, Active: false},
	}}
	r := NewRecommender(c, "", nil)

	rec, err := r.Recommend(context.Background(), sig("a", signal.LevelAmber, signal.HazardHeat))
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = r.Recommend(context.Background(), sig("b", signal.LevelRed, signal.HazardHeat))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "red-only", rec.Product.ID)
}

func TestRecommend_RequiresSignalID(t *testing.T) {
	r := NewRecommender(testCatalog(t), "", nil)
	_, err := r.Recommend(context.Background(), sig("", signal.LevelRed, signal.HazardHeat))
	assert.ErrorIs(t, err, ErrNoSignalID)
}

func TestRecommend_ConcurrentCallsAgree(t *testing.T) {
	r := NewRecommender(testCatalog(t), "", nil)
	s := sig("busy", signal.LevelRed, signal.HazardHeat)

	var wg sync.WaitGroup
	ids := make([]string, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := r.Recommend(context.Background(), s)
			if err == nil && rec != nil {
				ids[i] = rec.Product.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, "cooling-towel-2pk", id)
	}
}

// lateLedger misses on Get, as if another replica wins between Get and Put.
type lateLedger struct{ *MemoryLedger }

func (lateLedger) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func TestRecommend_ReturnsLedgerWinner(t *testing.T) {
	ctx := context.Background()
	ledger := lateLedger{NewMemoryLedger()}
	_, err := ledger.Put(ctx, "raced", "lantern-usb")
	require.NoError(t, err)

	r := NewRecommender(testCatalog(t), "", ledger)
	rec, err := r.Recommend(ctx, sig("raced", signal.LevelRed, signal.HazardHeat))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "lantern-usb", rec.Product.ID, "the stored winner is served, not the local pick")
	assert.Equal(t, 1, ledger.Len())
}
