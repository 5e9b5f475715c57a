package fleet

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/open-climate-tech/firecam/internal/metrics"
	"github.com/open-climate-tech/firecam/internal/orchestrator"
	"github.com/open-climate-tech/firecam/internal/ratelimit"
)

// Orchestrator is the subset of orchestrator.Client the controller needs.
type Orchestrator interface {
	GetGroup(ctx context.Context, group string) (orchestrator.Group, error)
	Resize(ctx context.Context, group string, size int) error
}

// Limiter is the subset of ratelimit.Limiter the controller needs.
type Limiter interface {
	CheckRateLimit(ctx context.Context, key string, config ratelimit.LimitConfig) (*ratelimit.Decision, error)
}

// PostWork runs the once-daily stats/pruning sweep for a group. Implemented
// by the Scheduler's owner, since stats aggregation touches Store tables
// the Scheduler already writes to.
type PostWork func(ctx context.Context, group string) error

// Controller evaluates one fleet group's mode on a tick and resizes its
// orchestrator worker group to match, throttled to at most one resize per
// 5-minute window per group.
type Controller struct {
	orch     Orchestrator
	limiter  Limiter
	postWork PostWork
	metrics  *metrics.Metrics

	lastPostWorkDate string
}

func NewController(orch Orchestrator, limiter Limiter, postWork PostWork, m *metrics.Metrics) *Controller {
	return &Controller{orch: orch, limiter: limiter, postWork: postWork, metrics: m}
}

// Tick evaluates window's mode at now and, if the target size differs
// from the orchestrator's current size and the resize throttle allows it,
// requests a resize. It also triggers the daily post-work sweep exactly
// once per day, postWorkGrace after detectEnd.
func (c *Controller) Tick(ctx context.Context, w Window, now time.Time) error {
	mode := ModeAt(w, now)
	target := TargetSize(w, mode)

	group, err := c.orch.GetGroup(ctx, w.Name)
	if err != nil {
		return fmt.Errorf("fleet: get group %s: %w", w.Name, err)
	}

	if group.CurrentSize != target {
		decision, err := c.limiter.CheckRateLimit(ctx, "fleet:resize:"+w.Name, ratelimit.ResizeWindow)
		if err != nil {
			return fmt.Errorf("fleet: rate limit check: %w", err)
		}
		if !decision.Allowed {
			log.Printf("fleet: resize for %s throttled, retry after %ds", w.Name, decision.RetryAfter)
		} else if err := c.orch.Resize(ctx, w.Name, target); err != nil {
			return fmt.Errorf("fleet: resize %s to %d: %w", w.Name, target, err)
		} else if c.metrics != nil {
			c.metrics.SetFleetGroupSize(w.Name, target)
		}
	}

	if mode == ModeInactive && PostWorkDue(w, now) {
		today := now.Format("2006-01-02")
		if c.lastPostWorkDate != today {
			if err := c.postWork(ctx, w.Name); err != nil {
				return fmt.Errorf("fleet: post-work %s: %w", w.Name, err)
			}
			c.lastPostWorkDate = today
		}
	}

	return nil
}
