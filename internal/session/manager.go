// Package session owns the live workout session: its state machine, its
// persistence, and the coordination of the rest and set timers around it.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/autosave"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/clock"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/event"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/timer"
)

// Store is the persistence collaborator. The active-session record is the
// crash-recovery copy of the running workout; the archive is the permanent
// home of finished ones. LoadActiveSession returns (nil, nil) when no record
// exists.
type Store interface {
	LoadActiveSession(ctx context.Context) (*models.Session, error)
	SaveActiveSession(ctx context.Context, s *models.Session) error
	DeleteActiveSession(ctx context.Context) error
	ArchiveSession(ctx context.Context, s *models.Session) error
}

// Manager is the session engine. All commands and queries serialize on one
// mutex, giving the same observable orderings as a single event loop.
//
// Locking discipline: timer methods that publish events (Cancel, AddTime,
// MarkStart) are never called with mu held; publishing happens only after
// the mutex is released so subscribers always observe post-mutation state.
// Non-publishing timer methods and queries are safe under mu because the
// timers never call back into the Manager.
type Manager struct {
	mu    sync.Mutex
	clk   clock.Clock
	bus   *event.Bus
	store Store
	log   *slog.Logger

	saver *autosave.Scheduler
	rest  *timer.RestTimer
	set   *timer.SetTimer

	settings models.Settings
	session  *models.Session
	dirty    bool
	dirtyGen uint64
}

// NewManager creates an engine with no active session.
func NewManager(clk clock.Clock, store Store, settings models.Settings, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "session")
	settings = settings.Normalize()
	bus := event.NewBus(log)
	return &Manager{
		clk:      clk,
		bus:      bus,
		store:    store,
		log:      log,
		saver:    autosave.NewScheduler(clk, time.Duration(settings.AutosaveDebounceMillis)*time.Millisecond, log),
		rest:     timer.NewRestTimer(clk, bus),
		set:      timer.NewSetTimer(clk, bus),
		settings: settings,
	}
}

// Restore loads a persisted active session, if any, into the engine. Called
// once at startup so a crash or restart does not lose the running workout.
// A leftover record in a terminal state is deleted rather than restored.
func (m *Manager) Restore(ctx context.Context) error {
	loaded, err := m.store.LoadActiveSession(ctx)
	if err != nil {
		return &PersistenceError{Op: "restore session", Err: err}
	}
	if loaded == nil {
		return nil
	}
	if loaded.Status != models.StatusActive {
		m.log.Warn("removing stale persisted session", "id", loaded.ID, "status", loaded.Status)
		if err := m.store.DeleteActiveSession(ctx); err != nil {
			return &PersistenceError{Op: "remove stale session", Err: err}
		}
		return nil
	}

	m.mu.Lock()
	m.session = loaded
	ev := m.changeEventLocked()
	m.mu.Unlock()

	m.log.Info("restored active session", "id", loaded.ID, "exercises", len(loaded.Exercises))
	m.bus.Publish(ev)
	return nil
}

// StartWorkout begins a session from a template. Fails when a session is
// already active; there is never more than one.
func (m *Manager) StartWorkout(tpl models.WorkoutTemplate) (*models.Session, error) {
	return m.start(tpl.Name, tpl.SessionExercises())
}

// StartEmptyWorkout begins an ad hoc session with no exercises; they are
// added as the workout unfolds.
func (m *Manager) StartEmptyWorkout() (*models.Session, error) {
	return m.start("", []models.SessionExercise{})
}

func (m *Manager) start(workoutRef string, exercises []models.SessionExercise) (*models.Session, error) {
	m.mu.Lock()
	if m.session != nil {
		m.mu.Unlock()
		return nil, errInvalidState("startWorkout", "a session is already active")
	}
	now := m.clk.Now()
	m.session = &models.Session{
		ID:         uuid.NewString(),
		Date:       now.Format("2006-01-02"),
		StartTime:  now,
		WorkoutRef: workoutRef,
		Status:     models.StatusActive,
		Exercises:  exercises,
	}
	m.markDirtyLocked()
	snap := m.session.Clone()
	ev := m.changeEventLocked()
	m.mu.Unlock()

	m.log.Info("session started", "id", snap.ID, "workout", workoutRef, "exercises", len(exercises))
	m.bus.Publish(ev)
	return snap, nil
}

// FinishSession completes the active session: end time set, timers stopped,
// the session archived and its recovery record removed in one awaited flush.
// The finished session is returned to the caller. Finishing with zero
// completed sets is rejected; discard is the operation for abandoning an
// empty session.
func (m *Manager) FinishSession(ctx context.Context) (*models.Session, error) {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return nil, errInvalidState("finishSession", "no active session")
	}
	if m.session.CountCompletedSets() == 0 {
		m.mu.Unlock()
		return nil, errInvalidState("finishSession", "session has no completed sets")
	}

	now := m.clk.Now()
	m.session.Status = models.StatusCompleted
	m.session.EndTime = &now
	snap := m.session.Clone()

	err := m.saver.Flush(ctx, func(ctx context.Context) error {
		if err := m.store.ArchiveSession(ctx, snap); err != nil {
			return &PersistenceError{Op: "archive session", Err: err}
		}
		if err := m.store.DeleteActiveSession(ctx); err != nil {
			return &PersistenceError{Op: "delete active session", Err: err}
		}
		return nil
	})
	if err != nil {
		// Leave the session usable: the caller can retry or discard.
		m.session.Status = models.StatusActive
		m.session.EndTime = nil
		m.mu.Unlock()
		return nil, err
	}

	m.session = nil
	m.dirty = false
	m.dirtyGen++
	m.set.CancelCountdown()
	m.set.Clear()
	m.rest.ClearPeriodData()
	m.mu.Unlock()

	m.rest.Cancel()
	m.log.Info("session finished", "id", snap.ID, "sets", snap.CountCompletedSets())
	m.bus.Publish(event.NewSessionChangedEvent(now, nil))
	return snap, nil
}

// DiscardSession abandons the active session: timers stopped, dirty state
// dropped, the persisted record deleted, nothing archived. Idempotent; a
// second discard is a no-op.
func (m *Manager) DiscardSession(ctx context.Context) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return nil
	}
	id := m.session.ID
	m.session = nil
	m.dirty = false
	m.dirtyGen++
	m.saver.Cancel()
	m.set.CancelCountdown()
	m.set.Clear()
	m.rest.ClearPeriodData()

	err := m.store.DeleteActiveSession(ctx)
	now := m.clk.Now()
	m.mu.Unlock()

	m.rest.Cancel()
	m.log.Info("session discarded", "id", id)
	m.bus.Publish(event.NewSessionChangedEvent(now, nil))
	if err != nil {
		return &PersistenceError{Op: "delete active session", Err: err}
	}
	return nil
}

// Close shuts the engine down: timers cancelled and, when unsaved changes
// exist, one awaited flush of the active session. Safe to call with no
// session active.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.set.CancelCountdown()
	m.set.Clear()
	var snap *models.Session
	if m.dirty && m.session != nil {
		snap = m.session.Clone()
		m.dirty = false
		m.dirtyGen++
	}
	m.mu.Unlock()

	m.rest.Cancel()
	if snap == nil {
		m.saver.Cancel()
		return nil
	}
	err := m.saver.Flush(ctx, func(ctx context.Context) error {
		return m.store.SaveActiveSession(ctx, snap)
	})
	if err != nil {
		return &PersistenceError{Op: "flush session", Err: err}
	}
	return nil
}

// UpdateSettings replaces the engine's settings snapshot.
func (m *Manager) UpdateSettings(s models.Settings) {
	m.mu.Lock()
	m.settings = s.Normalize()
	m.saver.SetDelay(time.Duration(m.settings.AutosaveDebounceMillis) * time.Millisecond)
	m.mu.Unlock()
}

// Settings returns the engine's current settings snapshot.
func (m *Manager) Settings() models.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// Now returns the engine clock's current time.
func (m *Manager) Now() time.Time {
	return m.clk.Now()
}

// ActiveSession returns a deep copy of the active session, or nil.
func (m *Manager) ActiveSession() *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Clone()
}

// HasActiveSession reports whether a session is active.
func (m *Manager) HasActiveSession() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// IsInProgress reports whether the active session has any completed set.
func (m *Manager) IsInProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.IsInProgress()
}

// CountTotalCompletedSets returns the number of completed sets in the active
// session, zero when none is active.
func (m *Manager) CountTotalCompletedSets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.CountCompletedSets()
}

// ExerciseCompletion reports one exercise's progress against its target.
func (m *Manager) ExerciseCompletion(exerciseIndex int) (models.CompletionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return models.CompletionStatus{}, errInvalidState("exerciseCompletion", "no active session")
	}
	if exerciseIndex < 0 || exerciseIndex >= len(m.session.Exercises) {
		return models.CompletionStatus{}, errValidation("exerciseIndex",
			fmt.Sprintf("exercise index %d out of range", exerciseIndex))
	}
	return m.session.Exercises[exerciseIndex].Completion(), nil
}

// Subscribe registers a coarse listener: it is invoked once synchronously
// with the current session snapshot, then again after every state change.
// The returned function removes the subscription.
func (m *Manager) Subscribe(listener func(*models.Session)) func() {
	id := m.bus.Subscribe(event.TypeSessionChanged, func(e event.Event) {
		if ce, ok := e.(event.SessionChangedEvent); ok {
			listener(ce.Session)
		}
	})
	listener(m.ActiveSession())
	return func() { m.bus.Unsubscribe(id) }
}

// On registers a handler for one event type from the closed set this engine
// publishes. The returned function removes the subscription.
func (m *Manager) On(eventType string, handler event.Handler) func() {
	id := m.bus.Subscribe(eventType, handler)
	return func() { m.bus.Unsubscribe(id) }
}

// OnAny registers a handler for every event the engine publishes.
func (m *Manager) OnAny(handler event.Handler) func() {
	id := m.bus.SubscribeAll(handler)
	return func() { m.bus.Unsubscribe(id) }
}

// markDirtyLocked flags unsaved changes and arms the autosave. The armed
// save snapshots the session when it fires, so it always writes the latest
// state; the generation check keeps a stale save from clearing the dirty
// flag after newer mutations.
func (m *Manager) markDirtyLocked() {
	m.dirty = true
	m.dirtyGen++
	gen := m.dirtyGen
	m.saver.Schedule(func(ctx context.Context) error {
		return m.backgroundSave(ctx, gen)
	})
}

func (m *Manager) backgroundSave(ctx context.Context, gen uint64) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return nil
	}
	snap := m.session.Clone()
	m.mu.Unlock()

	if err := m.store.SaveActiveSession(ctx, snap); err != nil {
		return fmt.Errorf("autosave session %s: %w", snap.ID, err)
	}

	m.mu.Lock()
	if m.dirtyGen == gen {
		m.dirty = false
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) changeEventLocked() event.Event {
	return event.NewSessionChangedEvent(m.clk.Now(), m.session.Clone())
}
