package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// takeScript refills the bucket at ARGV[1] tokens/s up to ARGV[2] and takes one
// token. Token counts are stored in thousandths so every reply is an integer.
// Reply: {allowed, whole tokens left, ms until the next token}.
const takeScript = `
local rate, burst, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]) * 1000, tonumber(ARGV[3])
local clock = redis.call("TIME")
local now = clock[1] * 1000 + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "milli", "at")
local milli, at = tonumber(state[1]), tonumber(state[2])
if milli == nil then
  milli, at = burst, now
end
milli = math.min(burst, milli + math.max(0, now - at) * rate)

local allowed, wait = 0, 0
if milli >= 1000 then
  allowed, milli = 1, milli - 1000
else
  wait = math.ceil((1000 - milli) / rate)
end

redis.call("HSET", KEYS[1], "milli", math.floor(milli), "at", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {allowed, math.floor(milli / 1000), wait}
`

var ErrLimiterNotConfigured = errors.New("rate_limiter_not_configured")

// Decision is the outcome of one take from a bucket.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// TokenBucket keeps one Redis hash per key, shared by every API replica.
type TokenBucket struct {
	client *redis.Client
	script *redis.Script
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{client: client, script: redis.NewScript(takeScript)}
}

// Take consumes one token from key's bucket refilled at rate tokens per second
// and holding at most burst.
func (t *TokenBucket) Take(ctx context.Context, key string, rate float64, burst int) (Decision, error) {
	if t == nil || t.client == nil {
		return Decision{}, ErrLimiterNotConfigured
	}
	if key == "" || rate <= 0 || burst <= 0 {
		return Decision{}, errors.New("rate limiter needs a key, a positive rate and a positive burst")
	}

	reply, err := t.script.Run(ctx, t.client, []string{key},
		rate, burst, bucketTTL(rate, burst).Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(reply) != 3 {
		return Decision{}, errors.New("unexpected rate limit script reply")
	}
	return Decision{
		Allowed:    reply[0] == 1,
		Remaining:  int(reply[1]),
		RetryAfter: time.Duration(reply[2]) * time.Millisecond,
	}, nil
}

// bucketTTL keeps an idle bucket around for twice the time it takes to refill,
// after which a fresh full bucket is equivalent.
func bucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	return time.Duration(math.Max(1, math.Ceil(2*float64(burst)/rate))) * time.Second
}
