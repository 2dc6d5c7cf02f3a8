package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tixora/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledRedemptionLimiterAllows(t *testing.T) {
	limiter := NewRedemptionLimiter(nil, config.Config{})
	assert.False(t, limiter.Enabled())

	res, err := limiter.AllowRedeem(context.Background(), "u-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNilActivationLockRunsDirectly(t *testing.T) {
	lock := NewActivationLock(nil)
	called := false
	err := lock.WithTicketType(context.Background(), 42, func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	boom := errors.New("boom")
	assert.ErrorIs(t, lock.WithTicketType(context.Background(), 42, func(context.Context) error { return boom }), boom)
}

func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestActivationLockReportsUnreachableStore(t *testing.T) {
	lock := NewActivationLock(unreachableClient(t))
	called := false
	err := lock.WithTicketType(context.Background(), 42, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockUnavailable)
	assert.NotErrorIs(t, err, ErrLockNotAcquired)
	assert.False(t, called)
}

func TestUnconfiguredPrimitivesReject(t *testing.T) {
	var bucket *TokenBucket
	res, err := bucket.Take(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrLimiterNotConfigured)
	assert.False(t, res.Allowed)

	var locker *Locker
	_, ok, err := locker.TryLock(context.Background(), "k", time.Second)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, locker.Release(context.Background(), "k", "t"))
}

func TestTokenBucketRejectsBadArguments(t *testing.T) {
	bucket := NewTokenBucket(unreachableClient(t))
	for _, tc := range []struct {
		key   string
		rate  float64
		burst int
	}{
		{"", 1, 1},
		{"k", 0, 1},
		{"k", 1, 0},
	} {
		res, err := bucket.Take(context.Background(), tc.key, tc.rate, tc.burst)
		assert.Error(t, err)
		assert.False(t, res.Allowed)
	}
}

func TestRedemptionLimiterSurfacesStoreErrors(t *testing.T) {
	limiter := NewRedemptionLimiter(unreachableClient(t), config.Config{
		RateLimit: config.RateLimitConfig{RedeemRate: 0.2, RedeemBurst: 5},
	})
	require.True(t, limiter.Enabled())

	res, err := limiter.AllowRedeem(context.Background(), "u-1")
	assert.Error(t, err)
	assert.False(t, res.Allowed)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 50*time.Second, bucketTTL(0.2, 5))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 0))
}
