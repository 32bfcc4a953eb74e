package arena

import (
	"context"
	"sync"
	"time"

	"wager-arena/internal/clock"

	"github.com/rs/zerolog/log"
)

const defaultReaperInterval = 10 * time.Minute

// StartJanitor sweeps stale sessions every interval until ctx ends. The
// sweep backs up the per-session timers and runs on the coordinator's
// clock, re-arming itself after each pass.
func (c *Coordinator) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultReaperInterval
	}
	j := &janitor{}
	var tick func()
	tick = func() {
		if ctx.Err() != nil {
			return
		}
		c.Sweep()
		j.arm(c.clock.AfterFunc(interval, tick))
	}
	j.arm(c.clock.AfterFunc(interval, tick))
	context.AfterFunc(ctx, j.stop)
}

type janitor struct {
	mu      sync.Mutex
	timer   clock.Timer
	stopped bool
}

func (j *janitor) arm(t clock.Timer) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopped {
		t.Stop()
		return
	}
	j.timer = t
}

func (j *janitor) stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stopped = true
	if j.timer != nil {
		j.timer.Stop()
	}
}

// Sweep removes waiting sessions past the waiting TTL and finished
// sessions past the finished TTL. It returns how many were removed.
// Sessions busy with the ledger are left for the next pass.
func (c *Coordinator) Sweep() int {
	now := c.clock.Now()
	removed := 0
	for _, s := range c.reg.all() {
		if !s.mu.TryLock() {
			continue
		}
		if !s.removed && c.dueLocked(s, now) {
			if err := c.removeLocked(s, EvExpired); err == nil {
				removed++
				metricSessionsExpired.Add(1)
			}
		}
		s.mu.Unlock()
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("stale sessions cleaned up")
	}
	return removed
}
