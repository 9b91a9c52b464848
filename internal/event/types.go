package event

import (
	"time"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
)

// Event type identifiers. Frontends match on these strings, so they are part
// of the published contract and never change, dash and all.
const (
	TypeRestTick          = "timer.tick"
	TypeRestExtended      = "timer.extended"
	TypeRestCancelled     = "timer.cancelled"
	TypeRestCompleted     = "timer.completed"
	TypeCountdownTick     = "countdown.tick"
	TypeCountdownComplete = "countdown.complete"
	TypeSetStarted        = "set.started"
	TypeSetLogged         = "set-logged"
	TypeDurationTick      = "duration.tick"
	TypeSessionChanged    = "session.changed"
)

// Event is implemented by every notification on the bus. Timestamps come
// from the engine's clock, not the wall clock, so replayed and test-driven
// sequences carry consistent times.
type Event interface {
	EventType() string
	Timestamp() time.Time
}

// baseEvent provides the common fields. Embed it in concrete event types.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string, at time.Time) baseEvent {
	return baseEvent{eventType: eventType, timestamp: at}
}

// RestTickEvent fires once per second while the rest timer runs.
type RestTickEvent struct {
	baseEvent
	ExerciseIndex int `json:"exerciseIndex"`
	Remaining     int `json:"remaining"`
}

// NewRestTickEvent creates a RestTickEvent.
func NewRestTickEvent(at time.Time, exerciseIndex, remaining int) RestTickEvent {
	return RestTickEvent{
		baseEvent:     newBaseEvent(TypeRestTick, at),
		ExerciseIndex: exerciseIndex,
		Remaining:     remaining,
	}
}

// RestExtendedEvent fires when extra time is added to a running rest timer.
type RestExtendedEvent struct {
	baseEvent
	ExerciseIndex int `json:"exerciseIndex"`
	ExtraSeconds  int `json:"extraSeconds"`
	Remaining     int `json:"remaining"`
}

// NewRestExtendedEvent creates a RestExtendedEvent.
func NewRestExtendedEvent(at time.Time, exerciseIndex, extraSeconds, remaining int) RestExtendedEvent {
	return RestExtendedEvent{
		baseEvent:     newBaseEvent(TypeRestExtended, at),
		ExerciseIndex: exerciseIndex,
		ExtraSeconds:  extraSeconds,
		Remaining:     remaining,
	}
}

// RestCancelledEvent fires when a running rest timer is cancelled before expiry.
type RestCancelledEvent struct {
	baseEvent
	ExerciseIndex int `json:"exerciseIndex"`
	Remaining     int `json:"remaining"`
}

// NewRestCancelledEvent creates a RestCancelledEvent.
func NewRestCancelledEvent(at time.Time, exerciseIndex, remaining int) RestCancelledEvent {
	return RestCancelledEvent{
		baseEvent:     newBaseEvent(TypeRestCancelled, at),
		ExerciseIndex: exerciseIndex,
		Remaining:     remaining,
	}
}

// RestCompletedEvent fires exactly once when the rest timer reaches zero.
type RestCompletedEvent struct {
	baseEvent
	ExerciseIndex int `json:"exerciseIndex"`
}

// NewRestCompletedEvent creates a RestCompletedEvent.
func NewRestCompletedEvent(at time.Time, exerciseIndex int) RestCompletedEvent {
	return RestCompletedEvent{
		baseEvent:     newBaseEvent(TypeRestCompleted, at),
		ExerciseIndex: exerciseIndex,
	}
}

// CountdownTickEvent fires once per second while a pre-set countdown runs.
type CountdownTickEvent struct {
	baseEvent
	ExerciseIndex int `json:"exerciseIndex"`
	Remaining     int `json:"remaining"`
}

// NewCountdownTickEvent creates a CountdownTickEvent.
func NewCountdownTickEvent(at time.Time, exerciseIndex, remaining int) CountdownTickEvent {
	return CountdownTickEvent{
		baseEvent:     newBaseEvent(TypeCountdownTick, at),
		ExerciseIndex: exerciseIndex,
		Remaining:     remaining,
	}
}

// CountdownCompleteEvent fires when the countdown reaches zero, immediately
// before the set stopwatch starts.
type CountdownCompleteEvent struct {
	baseEvent
	ExerciseIndex int `json:"exerciseIndex"`
}

// NewCountdownCompleteEvent creates a CountdownCompleteEvent.
func NewCountdownCompleteEvent(at time.Time, exerciseIndex int) CountdownCompleteEvent {
	return CountdownCompleteEvent{
		baseEvent:     newBaseEvent(TypeCountdownComplete, at),
		ExerciseIndex: exerciseIndex,
	}
}

// SetStartedEvent fires when the set stopwatch starts.
type SetStartedEvent struct {
	baseEvent
	ExerciseIndex int `json:"exerciseIndex"`
}

// NewSetStartedEvent creates a SetStartedEvent.
func NewSetStartedEvent(at time.Time, exerciseIndex int) SetStartedEvent {
	return SetStartedEvent{
		baseEvent:     newBaseEvent(TypeSetStarted, at),
		ExerciseIndex: exerciseIndex,
	}
}

// DurationTickEvent fires once per second while the set stopwatch runs.
type DurationTickEvent struct {
	baseEvent
	ExerciseIndex int `json:"exerciseIndex"`
	Seconds       int `json:"seconds"`
}

// NewDurationTickEvent creates a DurationTickEvent.
func NewDurationTickEvent(at time.Time, exerciseIndex, seconds int) DurationTickEvent {
	return DurationTickEvent{
		baseEvent:     newBaseEvent(TypeDurationTick, at),
		ExerciseIndex: exerciseIndex,
		Seconds:       seconds,
	}
}

// SetLoggedEvent fires after a set is appended to the session.
type SetLoggedEvent struct {
	baseEvent
	ExerciseIndex int     `json:"exerciseIndex"`
	SetIndex      int     `json:"setIndex"`
	Weight        float64 `json:"weight"`
	Reps          int     `json:"reps"`
}

// NewSetLoggedEvent creates a SetLoggedEvent.
func NewSetLoggedEvent(at time.Time, exerciseIndex, setIndex int, weight float64, reps int) SetLoggedEvent {
	return SetLoggedEvent{
		baseEvent:     newBaseEvent(TypeSetLogged, at),
		ExerciseIndex: exerciseIndex,
		SetIndex:      setIndex,
		Weight:        weight,
		Reps:          reps,
	}
}

// SessionChangedEvent is the coarse signal: any mutation of session state
// publishes one. Session is a deep copy, safe to retain; nil means no
// session is active anymore.
type SessionChangedEvent struct {
	baseEvent
	Session *models.Session `json:"session"`
}

// NewSessionChangedEvent creates a SessionChangedEvent carrying a snapshot.
func NewSessionChangedEvent(at time.Time, snapshot *models.Session) SessionChangedEvent {
	return SessionChangedEvent{
		baseEvent: newBaseEvent(TypeSessionChanged, at),
		Session:   snapshot,
	}
}
