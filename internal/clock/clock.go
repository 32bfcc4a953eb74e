// Package clock abstracts wall time and timers so session expiry can be
// driven deterministically in tests.
package clock

import "time"

// Clock provides the time operations the arena depends on.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the part of *time.Timer the arena uses.
type Timer interface {
	Stop() bool
}

// Real implements Clock on the system clock.
type Real struct{}

func New() Real { return Real{} }

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
