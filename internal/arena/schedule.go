package arena

import (
	"sync"
	"time"

	"wager-arena/internal/clock"
)

// schedule holds at most one pending expiry timer per session id.
type schedule struct {
	clock  clock.Clock
	mu     sync.Mutex
	timers map[string]clock.Timer
}

func newSchedule(clk clock.Clock) *schedule {
	return &schedule{clock: clk, timers: map[string]clock.Timer{}}
}

// arm replaces any timer already pending for id.
func (s *schedule) arm(id string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.timers[id]; ok {
		prev.Stop()
	}
	var t clock.Timer
	t = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		if s.timers[id] == t {
			delete(s.timers, id)
		}
		s.mu.Unlock()
		fn()
	})
	s.timers[id] = t
}

func (s *schedule) cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *schedule) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
