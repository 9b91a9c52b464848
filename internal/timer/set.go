package timer

import (
	"sync"
	"time"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/clock"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/event"
)

// SetSnapshot is the set timer's externally visible state.
type SetSnapshot struct {
	StopwatchRunning   bool      `json:"stopwatchRunning"`
	ExerciseIndex      int       `json:"exerciseIndex"`
	StartTime          time.Time `json:"startTime"`
	Seconds            int       `json:"seconds"`
	CountdownActive    bool      `json:"countdownActive"`
	CountdownRemaining int       `json:"countdownRemaining"`
}

// SetTimer tracks how long the current set takes. It has two phases that
// never overlap: an optional pre-set countdown (get into position) and the
// elapsed-set stopwatch. The countdown hands off to the stopwatch when it
// reaches zero.
type SetTimer struct {
	mu  sync.Mutex
	clk clock.Clock
	bus *event.Bus

	running       bool
	startTime     time.Time
	exerciseIndex int

	countdownOn       bool
	countdownStart    time.Time
	countdownSeconds  int
	countdownExercise int

	gen  uint64
	tick clock.Timer
}

// NewSetTimer creates an idle set timer publishing on bus.
func NewSetTimer(clk clock.Clock, bus *event.Bus) *SetTimer {
	return &SetTimer{clk: clk, bus: bus}
}

// MarkStart begins timing a set now. Any active countdown is dropped.
func (t *SetTimer) MarkStart(exerciseIndex int) {
	t.mu.Lock()
	ev := t.markStartLocked(exerciseIndex)
	t.mu.Unlock()

	t.bus.Publish(ev)
}

func (t *SetTimer) markStartLocked(exerciseIndex int) event.Event {
	t.stopTickLocked()
	t.countdownOn = false
	now := t.clk.Now()
	t.running = true
	t.startTime = now
	t.exerciseIndex = exerciseIndex
	t.armStopwatchLocked()
	return event.NewSetStartedEvent(now, exerciseIndex)
}

// StartWithCountdown runs a countdown of the given seconds and starts the
// stopwatch when it completes. It always resets: a running stopwatch is
// cleared immediately, not when the countdown finishes.
func (t *SetTimer) StartWithCountdown(exerciseIndex, seconds int) {
	t.mu.Lock()
	t.stopTickLocked()
	t.running = false
	t.countdownOn = true
	t.countdownStart = t.clk.Now()
	t.countdownSeconds = seconds
	t.countdownExercise = exerciseIndex
	t.armCountdownLocked()
	t.mu.Unlock()
}

// CancelCountdown stops an active countdown without starting the stopwatch.
func (t *SetTimer) CancelCountdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.countdownOn {
		return
	}
	t.stopTickLocked()
	t.countdownOn = false
}

// Clear stops the stopwatch. An active countdown is unaffected.
func (t *SetTimer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.stopTickLocked()
	t.running = false
}

// Duration returns whole seconds since the stopwatch started. The second
// return is false when no stopwatch is running.
func (t *SetTimer) Duration() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return 0, false
	}
	return t.elapsedLocked(), true
}

// CountdownActive reports whether a pre-set countdown is running.
func (t *SetTimer) CountdownActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.countdownOn
}

// Snapshot returns the externally visible state.
func (t *SetTimer) Snapshot() SetSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := SetSnapshot{
		StopwatchRunning: t.running,
		CountdownActive:  t.countdownOn,
	}
	if t.running {
		snap.ExerciseIndex = t.exerciseIndex
		snap.StartTime = t.startTime
		snap.Seconds = t.elapsedLocked()
	}
	if t.countdownOn {
		snap.ExerciseIndex = t.countdownExercise
		snap.CountdownRemaining = t.countdownRemainingLocked()
	}
	return snap
}

func (t *SetTimer) elapsedLocked() int {
	return int(t.clk.Now().Sub(t.startTime) / time.Second)
}

func (t *SetTimer) countdownRemainingLocked() int {
	elapsed := int(t.clk.Now().Sub(t.countdownStart) / time.Second)
	remaining := t.countdownSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (t *SetTimer) armCountdownLocked() {
	gen := t.gen
	t.tick = t.clk.AfterFunc(time.Second, func() { t.onCountdownTick(gen) })
}

func (t *SetTimer) armStopwatchLocked() {
	gen := t.gen
	t.tick = t.clk.AfterFunc(time.Second, func() { t.onStopwatchTick(gen) })
}

// stopTickLocked invalidates any outstanding tick callback, covering both
// phases: the countdown and the stopwatch never run at the same time, so a
// single handle and generation serve both.
func (t *SetTimer) stopTickLocked() {
	if t.tick != nil {
		t.tick.Stop()
		t.tick = nil
	}
	t.gen++
}

func (t *SetTimer) onCountdownTick(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.countdownOn {
		t.mu.Unlock()
		return
	}
	now := t.clk.Now()
	remaining := t.countdownRemainingLocked()

	var events []event.Event
	if remaining > 0 {
		events = append(events, event.NewCountdownTickEvent(now, t.countdownExercise, remaining))
		t.armCountdownLocked()
	} else {
		events = append(events,
			event.NewCountdownTickEvent(now, t.countdownExercise, 0),
			event.NewCountdownCompleteEvent(now, t.countdownExercise),
		)
		events = append(events, t.markStartLocked(t.countdownExercise))
	}
	t.mu.Unlock()

	for _, ev := range events {
		t.bus.Publish(ev)
	}
}

func (t *SetTimer) onStopwatchTick(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.running {
		t.mu.Unlock()
		return
	}
	ev := event.NewDurationTickEvent(t.clk.Now(), t.exerciseIndex, t.elapsedLocked())
	t.armStopwatchLocked()
	t.mu.Unlock()

	t.bus.Publish(ev)
}
