// Package clock schedules delayed callbacks for the simulator.
//
// Two implementations are provided: Real, backed by the wall clock, and Sim, a
// discrete-event clock whose time only moves when Advance is called.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock schedules callbacks after a delay
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a handle to a scheduled callback.
//
// Stop can be called any number of times. It returns true only for the call
// that prevented the callback from running.
type Timer interface {
	Stop() bool
	Stopped() bool
}

type realClock struct{}

// Real returns a Clock backed by time.AfterFunc
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &realTimer{}
	t.timer = time.AfterFunc(d, func() {
		if t.stopped.Load() {
			return
		}
		f()
	})
	return t
}

type realTimer struct {
	timer   *time.Timer
	stopped atomic.Bool
}

func (t *realTimer) Stop() bool {
	if t.stopped.Swap(true) {
		return false
	}
	return t.timer.Stop()
}

func (t *realTimer) Stopped() bool {
	return t.stopped.Load()
}
