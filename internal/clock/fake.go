package clock

import (
	"sync"
	"time"
)

// Fake is a manually advanced Clock. Advance moves time forward and fires
// due callbacks synchronously in schedule order, so tests observe the exact
// sequence a live clock would produce without waiting for it.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

// NewFake returns a Fake positioned at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake's current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc registers fn to run when the fake reaches now+d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t := &fakeTimer{
		clock: f,
		when:  f.now.Add(d),
		seq:   f.seq,
		fn:    fn,
	}
	f.timers = append(f.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every callback that comes due
// along the way. Callbacks run without the clock lock held, so they may
// schedule further callbacks; those also fire if they fall within d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	for {
		t := f.popDue(target)
		if t == nil {
			break
		}
		if t.when.After(f.now) {
			f.now = t.when
		}
		f.mu.Unlock()
		t.fn()
		f.mu.Lock()
	}
	f.now = target
	f.mu.Unlock()
}

// Jump moves the clock forward without firing anything, modeling a process
// that was suspended: callbacks that came due during the jump fire late, on
// the next Advance, and observe the post-jump time.
func (f *Fake) Jump(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// popDue removes and returns the earliest timer at or before target,
// breaking ties by schedule order. Returns nil when nothing is due.
func (f *Fake) popDue(target time.Time) *fakeTimer {
	best := -1
	for i, t := range f.timers {
		if t.when.After(target) {
			continue
		}
		if best == -1 || t.when.Before(f.timers[best].when) ||
			(t.when.Equal(f.timers[best].when) && t.seq < f.timers[best].seq) {
			best = i
		}
	}
	if best == -1 {
		return nil
	}
	t := f.timers[best]
	f.timers = append(f.timers[:best], f.timers[best+1:]...)
	return t
}

func (f *Fake) remove(t *fakeTimer) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, cur := range f.timers {
		if cur == t {
			f.timers = append(f.timers[:i], f.timers[i+1:]...)
			return true
		}
	}
	return false
}

type fakeTimer struct {
	clock *Fake
	when  time.Time
	seq   int
	fn    func()
}

func (t *fakeTimer) Stop() bool { return t.clock.remove(t) }
