package ratelimit_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/open-climate-tech/firecam/internal/ratelimit"
)

func newTestLimiter(t *testing.T) *ratelimit.Limiter {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return ratelimit.NewLimiter(client)
}

func TestCheckRateLimitAllowsFirstResize(t *testing.T) {
	l := newTestLimiter(t)
	decision, err := l.CheckRateLimit(context.Background(), "fleet:norcal", ratelimit.ResizeWindow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Allowed {
		t.Error("expected first resize in window to be allowed")
	}
}

func TestCheckRateLimitDeniesSecondResizeInWindow(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()

	first, err := l.CheckRateLimit(ctx, "fleet:norcal", ratelimit.ResizeWindow)
	if err != nil || !first.Allowed {
		t.Fatalf("expected first call to be allowed, got %+v, err=%v", first, err)
	}

	second, err := l.CheckRateLimit(ctx, "fleet:norcal", ratelimit.ResizeWindow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Allowed {
		t.Error("expected second resize within the 5-minute window to be denied")
	}
}
