package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/open-climate-tech/firecam/internal/metrics"
	"github.com/open-climate-tech/firecam/internal/orchestrator"
	"github.com/open-climate-tech/firecam/internal/ratelimit"
)

type fakeOrchestrator struct {
	group       orchestrator.Group
	resizeCalls []int
	resizeErr   error
	getGroupErr error
}

func (f *fakeOrchestrator) GetGroup(ctx context.Context, group string) (orchestrator.Group, error) {
	return f.group, f.getGroupErr
}

func (f *fakeOrchestrator) Resize(ctx context.Context, group string, size int) error {
	if f.resizeErr != nil {
		return f.resizeErr
	}
	f.resizeCalls = append(f.resizeCalls, size)
	f.group.CurrentSize = size
	return nil
}

type fakeLimiter struct {
	allowed bool
}

func (f *fakeLimiter) CheckRateLimit(ctx context.Context, key string, config ratelimit.LimitConfig) (*ratelimit.Decision, error) {
	return &ratelimit.Decision{Allowed: f.allowed, RetryAfter: 300}, nil
}

func TestControllerResizesWhenTargetDiffers(t *testing.T) {
	orch := &fakeOrchestrator{group: orchestrator.Group{Name: "g", CurrentSize: 0}}
	c := NewController(orch, &fakeLimiter{allowed: true}, nil, metrics.New())

	w := Window{Name: "g", DetectStart: clock(7, 0), DetectEnd: clock(19, 0), DetectTarget: 5}
	if err := c.Tick(context.Background(), w, clock(12, 0)); err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if len(orch.resizeCalls) != 1 || orch.resizeCalls[0] != 5 {
		t.Fatalf("resizeCalls = %v; want [5]", orch.resizeCalls)
	}
}

func TestControllerIsIdempotentWhenSizeMatches(t *testing.T) {
	orch := &fakeOrchestrator{group: orchestrator.Group{Name: "g", CurrentSize: 5}}
	c := NewController(orch, &fakeLimiter{allowed: true}, nil, nil)

	w := Window{Name: "g", DetectStart: clock(7, 0), DetectEnd: clock(19, 0), DetectTarget: 5}
	if err := c.Tick(context.Background(), w, clock(12, 0)); err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if len(orch.resizeCalls) != 0 {
		t.Fatalf("resizeCalls = %v; want none (already at target)", orch.resizeCalls)
	}
}

func TestControllerSkipsResizeWhenThrottled(t *testing.T) {
	orch := &fakeOrchestrator{group: orchestrator.Group{Name: "g", CurrentSize: 0}}
	c := NewController(orch, &fakeLimiter{allowed: false}, nil, nil)

	w := Window{Name: "g", DetectStart: clock(7, 0), DetectEnd: clock(19, 0), DetectTarget: 5}
	if err := c.Tick(context.Background(), w, clock(12, 0)); err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if len(orch.resizeCalls) != 0 {
		t.Fatalf("resizeCalls = %v; want none (throttled)", orch.resizeCalls)
	}
}

func TestControllerRunsPostWorkOnceWhenInactiveAndDue(t *testing.T) {
	orch := &fakeOrchestrator{group: orchestrator.Group{Name: "g", CurrentSize: 0}}
	var postWorkCalls int
	postWork := func(ctx context.Context, group string) error {
		postWorkCalls++
		return nil
	}
	c := NewController(orch, &fakeLimiter{allowed: true}, postWork, nil)

	w := Window{Name: "g", DetectStart: clock(7, 0), DetectEnd: clock(19, 0)}
	dueTime := clock(19, 0).Add(postWorkGrace + time.Minute)

	if err := c.Tick(context.Background(), w, dueTime); err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if err := c.Tick(context.Background(), w, dueTime.Add(time.Hour)); err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if postWorkCalls != 1 {
		t.Fatalf("postWorkCalls = %d; want 1 (runs once per day)", postWorkCalls)
	}
}
