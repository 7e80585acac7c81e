// SPDX-License-Identifier: MIT

package monetization

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daymark-app/daymark/internal/signal"
)

func TestRedisLedger_FirstWriteWins(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLedger(client, time.Hour)
	ctx := context.Background()

	_, ok, err := l.Get(ctx, "sig-1")
	require.NoError(t, err)
	assert.False(t, ok)

	winner, err := l.Put(ctx, "sig-1", "first")
	require.NoError(t, err)
	assert.Equal(t, "first", winner)
	winner, err = l.Put(ctx, "sig-1", "second")
	require.NoError(t, err)
	assert.Equal(t, "first", winner, "the stored product is returned")

	id, ok, err := l.Get(ctx, "sig-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "first", id)

	mr.FastForward(2 * time.Hour)
	_, ok, err = l.Get(ctx, "sig-1")
	require.NoError(t, err)
	assert.False(t, ok, "entries expire with the ttl")
}

func TestRecommender_WithRedisLedger(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c, err := DefaultCatalog()
	require.NoError(t, err)
	r := NewRecommender(c, "", NewRedisLedger(client, 0))

	rec, err := r.Recommend(context.Background(), signal.Signal{ID: "x", Level: signal.LevelRed, Driver: signal.HazardRain})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "poncho-compact", rec.Product.ID)

	stored, err := mr.Get(ledgerKeyPrefix + "x")
	require.NoError(t, err)
	assert.Equal(t, "poncho-compact", stored)
}
