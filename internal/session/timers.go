package session

import (
	"fmt"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/timer"
)

// StartRestTimer starts (or restarts) the rest countdown for an exercise.
// Seconds at or below zero means use the exercise's prescription, falling
// back to the default. Starting rest ends any set timer activity; at most
// one of the three timers runs at a time.
func (m *Manager) StartRestTimer(exerciseIndex, seconds int) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return errInvalidState("startRestTimer", "no active session")
	}
	if exerciseIndex < 0 || exerciseIndex >= len(m.session.Exercises) {
		m.mu.Unlock()
		return errValidation("exerciseIndex", fmt.Sprintf("exercise index %d out of range", exerciseIndex))
	}
	if seconds <= 0 {
		seconds = m.restSecondsLocked(exerciseIndex)
	}
	m.set.CancelCountdown()
	m.set.Clear()
	m.rest.Start(seconds, exerciseIndex)
	m.mu.Unlock()
	return nil
}

// ExtendRestTimer adds seconds to the running rest countdown.
func (m *Manager) ExtendRestTimer(seconds int) error {
	if seconds <= 0 {
		return errValidation("seconds", "extension must be greater than zero")
	}
	if m.rest.State() != timer.RestRunning {
		return errInvalidState("extendRestTimer", "rest timer is not running")
	}
	m.rest.AddTime(seconds)
	return nil
}

// CancelRestTimer stops the rest countdown. The rest period data survives
// for attribution to the next logged set.
func (m *Manager) CancelRestTimer() {
	m.rest.Cancel()
}

// RestPeriodData returns the pending rest period, or nil.
func (m *Manager) RestPeriodData() *timer.RestPeriod {
	return m.rest.PeriodData()
}

// ClearRestPeriodData drops the pending rest period without logging a set.
func (m *Manager) ClearRestPeriodData() {
	m.rest.ClearPeriodData()
}

// StartSetCountdown begins a pre-set countdown; the set stopwatch starts
// automatically when it reaches zero. Seconds at or below zero means use
// the configured countdown length. A running rest timer is cancelled: the
// rest is over once the lifter sets up for the next set.
func (m *Manager) StartSetCountdown(exerciseIndex, seconds int) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return errInvalidState("startSetCountdown", "no active session")
	}
	if exerciseIndex < 0 || exerciseIndex >= len(m.session.Exercises) {
		m.mu.Unlock()
		return errValidation("exerciseIndex", fmt.Sprintf("exercise index %d out of range", exerciseIndex))
	}
	if seconds <= 0 {
		seconds = m.settings.CountdownSeconds
	}
	m.mu.Unlock()

	m.rest.Cancel()
	m.set.StartWithCountdown(exerciseIndex, seconds)
	return nil
}

// MarkSetStart starts the set stopwatch immediately, without a countdown.
func (m *Manager) MarkSetStart(exerciseIndex int) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return errInvalidState("markSetStart", "no active session")
	}
	if exerciseIndex < 0 || exerciseIndex >= len(m.session.Exercises) {
		m.mu.Unlock()
		return errValidation("exerciseIndex", fmt.Sprintf("exercise index %d out of range", exerciseIndex))
	}
	m.mu.Unlock()

	m.rest.Cancel()
	m.set.MarkStart(exerciseIndex)
	return nil
}

// CancelSetCountdown stops the pre-set countdown without starting the
// stopwatch.
func (m *Manager) CancelSetCountdown() {
	m.set.CancelCountdown()
}

// ClearSetTimer stops the set stopwatch without logging anything.
func (m *Manager) ClearSetTimer() {
	m.set.Clear()
}

// SetDuration returns whole seconds since the set stopwatch started; false
// when it is not running.
func (m *Manager) SetDuration() (int, bool) {
	return m.set.Duration()
}

// RestTimerSnapshot returns the rest timer's externally visible state.
func (m *Manager) RestTimerSnapshot() timer.RestSnapshot {
	return m.rest.Snapshot()
}

// SetTimerSnapshot returns the set timer's externally visible state.
func (m *Manager) SetTimerSnapshot() timer.SetSnapshot {
	return m.set.Snapshot()
}
