// Package timer implements the two timers behind the logging workflow: the
// rest countdown between sets and the set timer (pre-set countdown plus
// elapsed-set stopwatch). Both derive their displayed values from wall-clock
// arithmetic on every tick, never from decremented counters, so a suspended
// process wakes up showing the right numbers.
package timer

import (
	"sync"
	"time"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/clock"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/event"
)

// RestState identifies the rest timer's lifecycle phase.
type RestState string

const (
	RestIdle      RestState = "idle"
	RestRunning   RestState = "running"
	RestExpired   RestState = "expired"
	RestCancelled RestState = "cancelled"
)

// RestPeriod is the record that outlives the ticking timer. It stays
// available after cancel or expiry so the next logged set can be annotated
// with the rest that preceded it, and is removed only by ClearPeriodData.
type RestPeriod struct {
	StartTime      time.Time `json:"startTime"`
	ExerciseIndex  int       `json:"exerciseIndex"`
	PlannedSeconds int       `json:"plannedSeconds"`
	ExtraSeconds   int       `json:"extraSeconds"`
}

// RestSnapshot is the timer's externally visible state.
type RestSnapshot struct {
	State          RestState `json:"state"`
	ExerciseIndex  int       `json:"exerciseIndex"`
	Remaining      int       `json:"remaining"`
	PlannedSeconds int       `json:"plannedSeconds"`
	ExtraSeconds   int       `json:"extraSeconds"`
}

// RestTimer counts down rest between sets at 1 Hz.
type RestTimer struct {
	mu  sync.Mutex
	clk clock.Clock
	bus *event.Bus

	state         RestState
	startTime     time.Time
	planned       int
	extra         int
	exerciseIndex int
	period        *RestPeriod

	gen  uint64
	tick clock.Timer
}

// NewRestTimer creates an idle rest timer publishing on bus.
func NewRestTimer(clk clock.Clock, bus *event.Bus) *RestTimer {
	return &RestTimer{clk: clk, bus: bus, state: RestIdle}
}

// Start begins a rest period. It always resets: a second Start while running
// replaces the first entirely, and accumulated extra time drops to zero.
func (t *RestTimer) Start(durationSeconds, exerciseIndex int) {
	t.mu.Lock()
	t.stopTickLocked()
	now := t.clk.Now()
	t.state = RestRunning
	t.startTime = now
	t.planned = durationSeconds
	t.extra = 0
	t.exerciseIndex = exerciseIndex
	t.period = &RestPeriod{
		StartTime:      now,
		ExerciseIndex:  exerciseIndex,
		PlannedSeconds: durationSeconds,
	}
	t.armLocked()
	t.mu.Unlock()
}

// AddTime extends a running rest period. Extra seconds accumulate across
// calls and count toward both the remaining time and the rest attribution on
// the next logged set. No effect unless the timer is running.
func (t *RestTimer) AddTime(seconds int) {
	t.mu.Lock()
	if t.state != RestRunning {
		t.mu.Unlock()
		return
	}
	t.extra += seconds
	if t.period != nil {
		t.period.ExtraSeconds = t.extra
	}
	ev := event.NewRestExtendedEvent(t.clk.Now(), t.exerciseIndex, t.extra, t.remainingLocked())
	t.mu.Unlock()

	t.bus.Publish(ev)
}

// Cancel stops a running timer. The period data survives for attribution;
// only ClearPeriodData removes it.
func (t *RestTimer) Cancel() {
	t.mu.Lock()
	if t.state != RestRunning {
		t.mu.Unlock()
		return
	}
	t.stopTickLocked()
	remaining := t.remainingLocked()
	t.state = RestCancelled
	ev := event.NewRestCancelledEvent(t.clk.Now(), t.exerciseIndex, remaining)
	t.mu.Unlock()

	t.bus.Publish(ev)
}

// Remaining returns the seconds left while running, zero otherwise. It is
// computed from the clock on every call, so it is accurate between ticks.
func (t *RestTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != RestRunning {
		return 0
	}
	return t.remainingLocked()
}

// State returns the current lifecycle phase.
func (t *RestTimer) State() RestState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Snapshot returns the externally visible state.
func (t *RestTimer) Snapshot() RestSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := RestSnapshot{
		State:          t.state,
		ExerciseIndex:  t.exerciseIndex,
		PlannedSeconds: t.planned,
		ExtraSeconds:   t.extra,
	}
	if t.state == RestRunning {
		snap.Remaining = t.remainingLocked()
	}
	return snap
}

// PeriodData returns a copy of the pending rest period, or nil when none is
// pending.
func (t *RestTimer) PeriodData() *RestPeriod {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.period == nil {
		return nil
	}
	p := *t.period
	return &p
}

// ClearPeriodData drops the pending rest period.
func (t *RestTimer) ClearPeriodData() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.period = nil
}

// remainingLocked derives the remaining seconds from the clock. Elapsed time
// is floored to whole seconds; the result never goes below zero.
func (t *RestTimer) remainingLocked() int {
	elapsed := int(t.clk.Now().Sub(t.startTime) / time.Second)
	remaining := t.planned + t.extra - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (t *RestTimer) armLocked() {
	gen := t.gen
	t.tick = t.clk.AfterFunc(time.Second, func() { t.onTick(gen) })
}

// stopTickLocked invalidates any outstanding tick callback. Bumping the
// generation makes a callback that already fired but has not yet run
// return without acting.
func (t *RestTimer) stopTickLocked() {
	if t.tick != nil {
		t.tick.Stop()
		t.tick = nil
	}
	t.gen++
}

func (t *RestTimer) onTick(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.state != RestRunning {
		t.mu.Unlock()
		return
	}
	now := t.clk.Now()
	remaining := t.remainingLocked()

	events := []event.Event{event.NewRestTickEvent(now, t.exerciseIndex, remaining)}
	if remaining <= 0 {
		t.stopTickLocked()
		t.state = RestExpired
		events = append(events, event.NewRestCompletedEvent(now, t.exerciseIndex))
	} else {
		t.armLocked()
	}
	t.mu.Unlock()

	for _, ev := range events {
		t.bus.Publish(ev)
	}
}
