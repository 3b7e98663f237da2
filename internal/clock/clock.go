// Package clock abstracts the timers used by the order status poller so
// tests can drive them deterministically.
//
// Production code injects Real(); tests inject Fake() and call Advance.
package clock

import (
	"sync"
	"time"
)

// Clock is the subset of the time package the storefront needs.
type Clock interface {
	Now() time.Time

	// AfterFunc calls f once d has elapsed. The returned Timer cancels
	// the pending call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call. Returns false if it already fired or was
	// stopped.
	Stop() bool
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Interval calls a function repeatedly until stopped, like setInterval.
type Interval struct {
	mu      sync.Mutex
	timer   Timer
	stopped bool
}

// Every starts calling f every d on c. The first call happens after d.
func Every(c Clock, d time.Duration, f func()) *Interval {
	iv := &Interval{}
	var schedule func()
	schedule = func() {
		iv.mu.Lock()
		defer iv.mu.Unlock()
		if iv.stopped {
			return
		}
		iv.timer = c.AfterFunc(d, func() {
			iv.mu.Lock()
			stopped := iv.stopped
			iv.mu.Unlock()
			if stopped {
				return
			}
			schedule()
			f()
		})
	}
	schedule()
	return iv
}

// Stop cancels the interval. Safe to call more than once and on nil.
func (iv *Interval) Stop() {
	if iv == nil {
		return
	}
	iv.mu.Lock()
	defer iv.mu.Unlock()
	iv.stopped = true
	if iv.timer != nil {
		iv.timer.Stop()
	}
}
