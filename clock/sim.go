package clock

import (
	"container/heap"
	"sync"
	"time"
)

// epoch is the start time of every simulated clock so runs are reproducible.
var epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Sim is a discrete-event clock. Scheduled callbacks run on the goroutine
// that calls Advance, ordered by due time and then by scheduling order.
type Sim struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending timerQueue
}

// NewSim creates a simulated clock at a fixed epoch
func NewSim() *Sim {
	return &Sim{now: epoch}
}

func (s *Sim) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Elapsed returns how much simulated time has passed since creation.
func (s *Sim) Elapsed() time.Duration {
	return s.Now().Sub(epoch)
}

func (s *Sim) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &simTimer{
		clock: s,
		at:    s.now.Add(d),
		seq:   s.seq,
		fn:    f,
	}
	heap.Push(&s.pending, t)

	return t
}

// Pending returns the number of callbacks that are scheduled and not stopped.
func (s *Sim) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, running every callback that falls due.
// Callbacks scheduled while advancing run too if they are due before the end.
func (s *Sim) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for s.fireNext(target) {
	}

	s.mu.Lock()
	if target.After(s.now) {
		s.now = target
	}
	s.mu.Unlock()
}

// AdvanceUntil advances in steps of step until cond returns true or limit of
// simulated time has passed. It reports whether cond was satisfied.
func (s *Sim) AdvanceUntil(cond func() bool, step, limit time.Duration) bool {
	for waited := time.Duration(0); waited <= limit; waited += step {
		if cond() {
			return true
		}
		s.Advance(step)
	}
	return cond()
}

// fireNext runs the earliest live callback due at or before target.
func (s *Sim) fireNext(target time.Time) bool {
	s.mu.Lock()

	for len(s.pending) > 0 {
		next := s.pending[0]
		if next.at.After(target) {
			break
		}

		heap.Pop(&s.pending)
		if next.stopped {
			continue
		}

		next.fired = true
		s.now = next.at
		s.mu.Unlock()

		next.fn()
		return true
	}

	s.mu.Unlock()
	return false
}

type simTimer struct {
	clock   *Sim
	at      time.Time
	seq     uint64
	fn      func()
	stopped bool
	fired   bool
	index   int
}

func (t *simTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped {
		return false
	}
	t.stopped = true
	return !t.fired
}

func (t *simTimer) Stopped() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.stopped
}

type timerQueue []*simTimer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x interface{}) {
	t := x.(*simTimer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
