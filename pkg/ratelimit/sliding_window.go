// Package ratelimit provides the request guards used by mutating endpoints:
// a redis-backed sliding window shared by all instances and an in-process
// token bucket for cheap burst protection.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims the window, checks the count and records the hit
// in one step so concurrent callers cannot overshoot the limit.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local retry = window
  if oldest[2] then retry = tonumber(oldest[2]) + window - now end
  return {0, count, retry}
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, count + 1, 0}
`)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Count      int
	Limit      int
	RetryAfter time.Duration
}

// Remaining returns how many more hits fit into the current window.
func (d Decision) Remaining() int {
	if r := d.Limit - d.Count; r > 0 {
		return r
	}
	return 0
}

// SlidingWindow counts hits per key over a rolling window stored in a redis sorted set.
type SlidingWindow struct {
	client redis.Scripter
	prefix string
	now    func() time.Time
}

func NewSlidingWindow(client redis.Scripter, prefix string) *SlidingWindow {
	return &SlidingWindow{client: client, prefix: prefix, now: time.Now}
}

// WithClock overrides the time source, used by tests.
func (s *SlidingWindow) WithClock(now func() time.Time) *SlidingWindow {
	s.now = now
	return s
}

// Allow records one hit for key unless limit hits already happened within window.
// A rejected hit is not recorded.
func (s *SlidingWindow) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 || window <= 0 {
		return Decision{Allowed: true, Limit: limit}, nil
	}
	now := s.now().UnixMilli()
	res, err := slidingWindowScript.Run(ctx, s.client,
		[]string{s.prefix + key},
		now, window.Milliseconds(), limit, fmt.Sprintf("%d-%s", now, uuid.NewString()),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("sliding window %s: %w", key, err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("sliding window %s: unexpected reply %v", key, res)
	}
	return Decision{
		Allowed:    res[0] == 1,
		Count:      int(res[1]),
		Limit:      limit,
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}
