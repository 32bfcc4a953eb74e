package clock

import (
	"sort"
	"sync"
	"time"
)

// Mock is a manually advanced Clock. Timers fire synchronously inside
// Advance or Set, in deadline order, on the calling goroutine.
type Mock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*mockTimer
}

var _ Clock = (*Mock)(nil)

func NewMock(t time.Time) *Mock {
	return &Mock{now: t}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Mock) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &mockTimer{owner: m, at: m.now.Add(d), fn: f}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward and fires every timer that came due.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	m.Set(target)
}

// Set moves the clock to t and fires every timer that came due.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	var due, rest []*mockTimer
	for _, tm := range m.timers {
		if !tm.at.After(t) {
			due = append(due, tm)
		} else {
			rest = append(rest, tm)
		}
	}
	m.timers = rest
	m.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, tm := range due {
		tm.fn()
	}
}

// Pending reports how many timers are still armed.
func (m *Mock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

type mockTimer struct {
	owner *Mock
	at    time.Time
	fn    func()
}

func (t *mockTimer) Stop() bool {
	m := t.owner
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, tm := range m.timers {
		if tm == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}
