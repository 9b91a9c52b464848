package session

import (
	"fmt"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/event"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
)

// LogSet appends a completed set to the given exercise. The set is stamped
// with the engine clock and annotated from the timers: a pending rest period
// becomes actualRestSeconds (planned plus extra) and is consumed, and a
// running set stopwatch becomes avgRepDuration and is cleared. With
// AutoStartRestTimer enabled, the exercise's rest timer starts immediately.
func (m *Manager) LogSet(exerciseIndex int, weight float64, reps int, rpe *float64) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return errInvalidState("logSet", "no active session")
	}
	if exerciseIndex < 0 || exerciseIndex >= len(m.session.Exercises) {
		m.mu.Unlock()
		return errValidation("exerciseIndex", fmt.Sprintf("exercise index %d out of range", exerciseIndex))
	}
	if err := validateSetInput(weight, reps); err != nil {
		m.mu.Unlock()
		return err
	}

	now := m.clk.Now()
	set := models.LoggedSet{
		Weight:    weight,
		Reps:      reps,
		Completed: true,
		Timestamp: now,
	}
	if rpe != nil {
		v := *rpe
		set.RPE = &v
	}

	if rp := m.rest.PeriodData(); rp != nil {
		actual := rp.PlannedSeconds + rp.ExtraSeconds
		set.ActualRestSeconds = &actual
		if rp.ExtraSeconds > 0 {
			extra := rp.ExtraSeconds
			set.ExtraRestSeconds = &extra
		}
		m.rest.ClearPeriodData()
	}

	if elapsed, ok := m.set.Duration(); ok {
		avg := float64(elapsed) / float64(reps)
		set.AvgRepDuration = &avg
	}
	m.set.CancelCountdown()
	m.set.Clear()

	ex := &m.session.Exercises[exerciseIndex]
	ex.Sets = append(ex.Sets, set)
	setIndex := len(ex.Sets) - 1
	m.markDirtyLocked()

	if m.settings.AutoStartRestTimer {
		m.rest.Start(m.restSecondsLocked(exerciseIndex), exerciseIndex)
	}

	events := []event.Event{
		event.NewSetLoggedEvent(now, exerciseIndex, setIndex, weight, reps),
		m.changeEventLocked(),
	}
	m.mu.Unlock()

	for _, ev := range events {
		m.bus.Publish(ev)
	}
	return nil
}

// EditSet replaces a logged set's weight, reps, and, when given, RPE. A nil
// rpe leaves the existing value in place. Timestamps and rest annotations
// are unchanged; they describe the set as it happened.
func (m *Manager) EditSet(exerciseIndex, setIndex int, weight float64, reps int, rpe *float64) error {
	m.mu.Lock()
	ex, err := m.setTargetLocked("editSet", exerciseIndex, setIndex)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if err := validateSetInput(weight, reps); err != nil {
		m.mu.Unlock()
		return err
	}

	set := &ex.Sets[setIndex]
	set.Weight = weight
	set.Reps = reps
	if rpe != nil {
		v := *rpe
		set.RPE = &v
	}
	m.markDirtyLocked()
	ev := m.changeEventLocked()
	m.mu.Unlock()

	m.bus.Publish(ev)
	return nil
}

// DeleteSet removes a logged set.
func (m *Manager) DeleteSet(exerciseIndex, setIndex int) error {
	m.mu.Lock()
	ex, err := m.setTargetLocked("deleteSet", exerciseIndex, setIndex)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	ex.Sets = append(ex.Sets[:setIndex], ex.Sets[setIndex+1:]...)
	m.markDirtyLocked()
	ev := m.changeEventLocked()
	m.mu.Unlock()

	m.bus.Publish(ev)
	return nil
}

// setTargetLocked resolves an exercise/set index pair, bounds-checked.
func (m *Manager) setTargetLocked(op string, exerciseIndex, setIndex int) (*models.SessionExercise, error) {
	if m.session == nil {
		return nil, errInvalidState(op, "no active session")
	}
	if exerciseIndex < 0 || exerciseIndex >= len(m.session.Exercises) {
		return nil, errValidation("exerciseIndex", fmt.Sprintf("exercise index %d out of range", exerciseIndex))
	}
	ex := &m.session.Exercises[exerciseIndex]
	if setIndex < 0 || setIndex >= len(ex.Sets) {
		return nil, errValidation("setIndex", fmt.Sprintf("set index %d out of range", setIndex))
	}
	return ex, nil
}

// validateSetInput enforces the logging rules: weight and reps must both be
// positive. Bodyweight work is logged with the load it adds, not zero.
func validateSetInput(weight float64, reps int) error {
	if weight <= 0 {
		return errValidation("weight", "weight must be greater than zero")
	}
	if reps <= 0 {
		return errValidation("reps", "reps must be greater than zero")
	}
	return nil
}

// restSecondsLocked picks the rest duration for an exercise: its own
// prescription when set, the default otherwise.
func (m *Manager) restSecondsLocked(exerciseIndex int) int {
	if exerciseIndex >= 0 && exerciseIndex < len(m.session.Exercises) {
		if rs := m.session.Exercises[exerciseIndex].RestSeconds; rs > 0 {
			return rs
		}
	}
	return m.settings.DefaultRestSeconds
}
