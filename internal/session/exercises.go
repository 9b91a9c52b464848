package session

import (
	"fmt"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
)

// AddExercise appends an exercise slot to the active session. A non-positive
// rest prescription falls back to the default rest seconds.
func (m *Manager) AddExercise(name string, target models.ExerciseTarget) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return errInvalidState("addExercise", "no active session")
	}
	if name == "" {
		m.mu.Unlock()
		return errValidation("exerciseName", "exercise name is required")
	}
	if target.Sets < 0 || target.RepsMin < 0 || target.RepsMax < 0 {
		m.mu.Unlock()
		return errValidation("target", "set and rep targets must not be negative")
	}

	rest := target.RestSeconds
	if rest <= 0 {
		rest = m.settings.DefaultRestSeconds
	}
	m.session.Exercises = append(m.session.Exercises, models.SessionExercise{
		ExerciseName:  name,
		TargetSets:    target.Sets,
		TargetRepsMin: target.RepsMin,
		TargetRepsMax: target.RepsMax,
		RestSeconds:   rest,
		Sets:          []models.LoggedSet{},
	})
	m.markDirtyLocked()
	ev := m.changeEventLocked()
	m.mu.Unlock()

	m.bus.Publish(ev)
	return nil
}

// RemoveExercise deletes an exercise slot along with its logged sets.
func (m *Manager) RemoveExercise(exerciseIndex int) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return errInvalidState("removeExercise", "no active session")
	}
	if exerciseIndex < 0 || exerciseIndex >= len(m.session.Exercises) {
		m.mu.Unlock()
		return errValidation("exerciseIndex", fmt.Sprintf("exercise index %d out of range", exerciseIndex))
	}

	m.session.Exercises = append(
		m.session.Exercises[:exerciseIndex],
		m.session.Exercises[exerciseIndex+1:]...)
	m.markDirtyLocked()
	ev := m.changeEventLocked()
	m.mu.Unlock()

	m.bus.Publish(ev)
	return nil
}

// ReorderExercises moves the exercise at from to position to. Logged sets
// travel with their exercise. The target position is interpreted after the
// removal, so moving forward lands exactly on to.
func (m *Manager) ReorderExercises(from, to int) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return errInvalidState("reorderExercises", "no active session")
	}
	n := len(m.session.Exercises)
	if from < 0 || from >= n {
		m.mu.Unlock()
		return errValidation("fromIndex", fmt.Sprintf("exercise index %d out of range", from))
	}
	if to < 0 || to >= n {
		m.mu.Unlock()
		return errValidation("toIndex", fmt.Sprintf("exercise index %d out of range", to))
	}
	if from == to {
		m.mu.Unlock()
		return nil
	}

	exs := m.session.Exercises
	moved := exs[from]
	exs = append(exs[:from], exs[from+1:]...)
	exs = append(exs[:to], append([]models.SessionExercise{moved}, exs[to:]...)...)
	m.session.Exercises = exs
	m.markDirtyLocked()
	ev := m.changeEventLocked()
	m.mu.Unlock()

	m.bus.Publish(ev)
	return nil
}

// UpdateExercises replaces the session's exercise list with a new
// prescription, typically after the underlying template changed. Target
// metadata comes from the new list; logged sets and per-exercise RPE are
// preserved by exercise name, first unconsumed occurrence wins. Sets whose
// exercise is gone from the new list are dropped with it.
func (m *Manager) UpdateExercises(list []models.TemplateExercise) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return errInvalidState("updateExercises", "no active session")
	}

	old := m.session.Exercises
	consumed := make([]bool, len(old))
	next := make([]models.SessionExercise, 0, len(list))
	for _, tpl := range list {
		ex := tpl.SessionExercise()
		for i := range old {
			if consumed[i] || old[i].ExerciseName != tpl.ExerciseName {
				continue
			}
			ex.Sets = old[i].Sets
			ex.RPE = old[i].RPE
			consumed[i] = true
			break
		}
		next = append(next, ex)
	}

	m.session.Exercises = next
	m.markDirtyLocked()
	ev := m.changeEventLocked()
	m.mu.Unlock()

	m.bus.Publish(ev)
	return nil
}
