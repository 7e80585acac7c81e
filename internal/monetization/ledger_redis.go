// SPDX-License-Identifier: MIT

package monetization

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const ledgerKeyPrefix = "daymark:ledger:"

// RedisLedger shares the signal-to-product ledger between replicas.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLedger wraps client. Entries expire after ttl (0 keeps them forever).
func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{client: client, ttl: ttl}
}

func (l *RedisLedger) Get(ctx context.Context, signalID string) (string, bool, error) {
	v, err := l.client.Get(ctx, ledgerKeyPrefix+signalID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ledger get: %w", err)
	}
	return v, true, nil
}

// Put uses SETNX so concurrent replicas agree on the first product, then
// reads back the winner.
func (l *RedisLedger) Put(ctx context.Context, signalID, productID string) (string, error) {
	key := ledgerKeyPrefix + signalID
	set, err := l.client.SetNX(ctx, key, productID, l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("ledger put: %w", err)
	}
	if set {
		return productID, nil
	}
	v, err := l.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// The winner expired between the two calls.
		return l.Put(ctx, signalID, productID)
	}
	if err != nil {
		return "", fmt.Errorf("ledger put: %w", err)
	}
	return v, nil
}
