package models

import "time"

// SessionStatus tracks where a workout session is in its lifecycle.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusDiscarded SessionStatus = "discarded"
)

// Session is a single workout from start until it is finished or discarded.
type Session struct {
	ID         string            `json:"id"`
	Date       string            `json:"date"` // calendar date, YYYY-MM-DD
	StartTime  time.Time         `json:"startTime"`
	EndTime    *time.Time        `json:"endTime,omitempty"`
	WorkoutRef string            `json:"workoutRef,omitempty"` // template name, empty for ad hoc sessions
	Status     SessionStatus     `json:"status"`
	Exercises  []SessionExercise `json:"exercises"`
	Notes      string            `json:"notes,omitempty"`
}

// SessionExercise is one exercise slot in a session: target prescription
// plus the sets logged against it so far.
type SessionExercise struct {
	ExerciseName     string             `json:"exerciseName"`
	TargetSets       int                `json:"targetSets"`
	TargetRepsMin    int                `json:"targetRepsMin"`
	TargetRepsMax    int                `json:"targetRepsMax"`
	RestSeconds      int                `json:"restSeconds"`
	Sets             []LoggedSet        `json:"sets"`
	RPE              *float64           `json:"rpe,omitempty"`
	MuscleEngagement map[string]float64 `json:"muscleEngagement,omitempty"`
}

// LoggedSet is one completed set. Rest and pacing fields are attached by the
// engine when the corresponding timers were used; they are absent otherwise.
type LoggedSet struct {
	Weight            float64   `json:"weight"`
	Reps              int       `json:"reps"`
	Completed         bool      `json:"completed"`
	Timestamp         time.Time `json:"timestamp"`
	RPE               *float64  `json:"rpe,omitempty"`
	ActualRestSeconds *int      `json:"actualRestSeconds,omitempty"`
	ExtraRestSeconds  *int      `json:"extraRestSeconds,omitempty"`
	AvgRepDuration    *float64  `json:"avgRepDuration,omitempty"`
}

// CompletionStatus reports one exercise's progress against its target.
type CompletionStatus struct {
	CompletedSets int  `json:"completedSets"`
	TargetSets    int  `json:"targetSets"`
	IsComplete    bool `json:"isComplete"`
}

// IsInProgress reports whether at least one completed set has been logged.
// A session with exercises but no completed sets is active yet not in
// progress and may still be replaced wholesale by a template update.
func (s *Session) IsInProgress() bool {
	if s == nil {
		return false
	}
	for i := range s.Exercises {
		for j := range s.Exercises[i].Sets {
			if s.Exercises[i].Sets[j].Completed {
				return true
			}
		}
	}
	return false
}

// CountCompletedSets returns the number of completed sets across all exercises.
func (s *Session) CountCompletedSets() int {
	if s == nil {
		return 0
	}
	n := 0
	for i := range s.Exercises {
		n += s.Exercises[i].CompletedSets()
	}
	return n
}

// CompletedSets returns the number of completed sets for this exercise.
func (e *SessionExercise) CompletedSets() int {
	n := 0
	for i := range e.Sets {
		if e.Sets[i].Completed {
			n++
		}
	}
	return n
}

// Completion summarizes this exercise's progress against its target set count.
func (e *SessionExercise) Completion() CompletionStatus {
	done := e.CompletedSets()
	return CompletionStatus{
		CompletedSets: done,
		TargetSets:    e.TargetSets,
		IsComplete:    e.TargetSets > 0 && done >= e.TargetSets,
	}
}

// Clone returns a deep copy. The engine hands clones across its API boundary
// so callers can never mutate the session it owns.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.EndTime != nil {
		t := *s.EndTime
		out.EndTime = &t
	}
	out.Exercises = make([]SessionExercise, len(s.Exercises))
	for i := range s.Exercises {
		out.Exercises[i] = s.Exercises[i].clone()
	}
	return &out
}

func (e SessionExercise) clone() SessionExercise {
	out := e
	out.RPE = cloneFloatPtr(e.RPE)
	if e.MuscleEngagement != nil {
		out.MuscleEngagement = make(map[string]float64, len(e.MuscleEngagement))
		for k, v := range e.MuscleEngagement {
			out.MuscleEngagement[k] = v
		}
	}
	out.Sets = make([]LoggedSet, len(e.Sets))
	for i := range e.Sets {
		out.Sets[i] = e.Sets[i].clone()
	}
	return out
}

func (ls LoggedSet) clone() LoggedSet {
	out := ls
	out.RPE = cloneFloatPtr(ls.RPE)
	out.ActualRestSeconds = cloneIntPtr(ls.ActualRestSeconds)
	out.ExtraRestSeconds = cloneIntPtr(ls.ExtraRestSeconds)
	out.AvgRepDuration = cloneFloatPtr(ls.AvgRepDuration)
	return out
}

func cloneFloatPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
