// Package ratelimit throttles the Fleet Controller's worker-group resize
// calls to the orchestrator: at most one resize per group every 5 minutes
//.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrRedisUnavailable = errors.New("redis unavailable")

type Scope string

const ScopeFleetResize Scope = "fleet_resize"

type Decision struct {
	Scope      Scope
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter int
	Allowed    bool
}

type LimitConfig struct {
	Rate   int
	Window time.Duration
}

// ResizeWindow throttles the Fleet Controller to at most one orchestrator
// resize per group every 5 minutes.
var ResizeWindow = LimitConfig{Rate: 1, Window: 5 * time.Minute}

type Limiter struct {
	client *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// CheckRateLimit uses a fixed window rooted at the first request in that
// window: INCR the counter, set its expiry only on the first increment of
// the window, and deny once the count exceeds config.Rate.
func (l *Limiter) CheckRateLimit(ctx context.Context, key string, config LimitConfig) (*Decision, error) {
	script := redis.NewScript(`
		local current = redis.call("INCR", KEYS[1])
		if tonumber(current) == 1 then
			redis.call("PEXPIRE", KEYS[1], ARGV[1])
		end
		return current
	`)

	count, err := script.Run(ctx, l.client, []string{key}, config.Window.Milliseconds()).Int()
	if err != nil {
		return nil, ErrRedisUnavailable
	}

	remaining := config.Rate - count
	if remaining < 0 {
		remaining = 0
	}

	return &Decision{
		Limit:      config.Rate,
		Remaining:  remaining,
		Reset:      time.Now().Add(config.Window),
		RetryAfter: int(config.Window.Seconds()),
		Allowed:    count <= config.Rate,
	}, nil
}
