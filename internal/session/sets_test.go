package session

import (
	"strings"
	"testing"
	"time"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/event"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/timer"
)

func fptr(v float64) *float64 { return &v }

// TestLogSetAppendsCompletedSets verifies every accepted LogSet adds exactly
// one completed set and the totals track.
func TestLogSetAppendsCompletedSets(t *testing.T) {
	m, _, _ := newTestManager(t, models.Settings{})
	mustStartEmpty(t, m)
	mustAddExercise(t, m, "Squat", squatTarget)

	for i := 1; i <= 4; i++ {
		if err := m.LogSet(0, 100, 5, nil); err != nil {
			t.Fatalf("LogSet %d: %v", i, err)
		}
		if got := m.CountTotalCompletedSets(); got != i {
			t.Fatalf("CountTotalCompletedSets() = %d after %d logs", got, i)
		}
	}

	s := m.ActiveSession()
	set := s.Exercises[0].Sets[0]
	if !set.Completed {
		t.Error("logged set not marked completed")
	}
	if set.Weight != 100 || set.Reps != 5 {
		t.Errorf("set = %+v, want weight 100 reps 5", set)
	}
	if !set.Timestamp.Equal(t0) {
		t.Errorf("Timestamp = %v, want clock time %v", set.Timestamp, t0)
	}
	if !m.IsInProgress() {
		t.Error("IsInProgress() = false with a completed set")
	}
}

// TestLogSetEmitsEvent verifies the fine-grained set-logged payload.
func TestLogSetEmitsEvent(t *testing.T) {
	m, _, _ := newTestManager(t, models.Settings{})
	mustStartEmpty(t, m)
	mustAddExercise(t, m, "Squat", squatTarget)
	mustAddExercise(t, m, "Deadlift", models.ExerciseTarget{Sets: 1, RepsMin: 5, RepsMax: 5})

	var got []event.SetLoggedEvent
	m.On(event.TypeSetLogged, func(e event.Event) {
		got = append(got, e.(event.SetLoggedEvent))
	})

	if err := m.LogSet(1, 140, 3, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("received %d set-logged events, want 1", len(got))
	}
	ev := got[0]
	if ev.ExerciseIndex != 1 || ev.SetIndex != 0 || ev.Weight != 140 || ev.Reps != 3 {
		t.Errorf("event = %+v, want exercise 1 set 0 weight 140 reps 3", ev)
	}
}

// TestLogSetValidation verifies rejected input names the offending field and
// leaves the session untouched.
func TestLogSetValidation(t *testing.T) {
	m, _, _ := newTestManager(t, models.Settings{})
	mustStartEmpty(t, m)
	mustAddExercise(t, m, "Squat", squatTarget)

	changes := 0
	m.On(event.TypeSessionChanged, func(event.Event) { changes++ })

	tests := []struct {
		name   string
		weight float64
		reps   int
		field  string
	}{
		{"zero weight", 0, 5, "weight"},
		{"negative weight", -20, 5, "weight"},
		{"zero reps", 100, 0, "reps"},
		{"negative reps", 100, -1, "reps"},
	}
	for _, tt := range tests {
		err := m.LogSet(0, tt.weight, tt.reps, nil)
		if !IsValidation(err) {
			t.Errorf("%s: error = %v, want ValidationError", tt.name, err)
			continue
		}
		if !strings.Contains(err.Error(), tt.field) {
			t.Errorf("%s: error %q does not mention %q", tt.name, err, tt.field)
		}
	}

	if got := m.CountTotalCompletedSets(); got != 0 {
		t.Errorf("CountTotalCompletedSets() = %d after rejected logs, want 0", got)
	}
	if changes != 0 {
		t.Errorf("%d change events after rejected logs, want 0", changes)
	}

	if err := m.LogSet(5, 100, 5, nil); !IsValidation(err) {
		t.Errorf("out-of-range index error = %v, want ValidationError", err)
	}
	if err := m.LogSet(-1, 100, 5, nil); !IsValidation(err) {
		t.Errorf("negative index error = %v, want ValidationError", err)
	}
}

func TestLogSetWithoutSession(t *testing.T) {
	m, _, _ := newTestManager(t, models.Settings{})
	if err := m.LogSet(0, 100, 5, nil); !IsInvalidState(err) {
		t.Errorf("error = %v, want InvalidStateError", err)
	}
}

// TestLogSetRestAttribution verifies a rest period, including extensions,
// is attributed to the next logged set and then consumed.
func TestLogSetRestAttribution(t *testing.T) {
	m, clk, _ := newTestManager(t, models.Settings{})
	mustStartEmpty(t, m)
	mustAddExercise(t, m, "Squat", squatTarget)

	if err := m.StartRestTimer(0, 120); err != nil {
		t.Fatalf("StartRestTimer: %v", err)
	}
	clk.Advance(30 * time.Second)
	if err := m.ExtendRestTimer(30); err != nil {
		t.Fatalf("ExtendRestTimer: %v", err)
	}
	if err := m.ExtendRestTimer(30); err != nil {
		t.Fatalf("ExtendRestTimer: %v", err)
	}
	if got := m.RestTimerSnapshot().Remaining; got != 150 {
		t.Errorf("Remaining = %d after 30s of a twice-extended 120s rest, want 150", got)
	}

	if err := m.LogSet(0, 100, 5, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}
	set := m.ActiveSession().Exercises[0].Sets[0]
	if set.ActualRestSeconds == nil || *set.ActualRestSeconds != 180 {
		t.Errorf("ActualRestSeconds = %v, want 180", set.ActualRestSeconds)
	}
	if set.ExtraRestSeconds == nil || *set.ExtraRestSeconds != 60 {
		t.Errorf("ExtraRestSeconds = %v, want 60", set.ExtraRestSeconds)
	}
	if m.RestPeriodData() != nil {
		t.Error("rest period data survived attribution")
	}

	// The consumed period must not leak into the next set.
	if err := m.LogSet(0, 100, 5, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}
	next := m.ActiveSession().Exercises[0].Sets[1]
	if next.ActualRestSeconds != nil || next.ExtraRestSeconds != nil {
		t.Errorf("second set carries rest annotations %v/%v, want none",
			next.ActualRestSeconds, next.ExtraRestSeconds)
	}
}

// TestLogSetRestAttributionAfterCancel verifies an early-cancelled rest is
// still attributed at its planned length.
func TestLogSetRestAttributionAfterCancel(t *testing.T) {
	m, clk, _ := newTestManager(t, models.Settings{})
	mustStartEmpty(t, m)
	mustAddExercise(t, m, "Squat", squatTarget)

	if err := m.StartRestTimer(0, 120); err != nil {
		t.Fatalf("StartRestTimer: %v", err)
	}
	clk.Advance(10 * time.Second)
	m.CancelRestTimer()

	rp := m.RestPeriodData()
	if rp == nil {
		t.Fatal("rest period data lost on cancel")
	}
	if rp.PlannedSeconds != 120 || rp.ExtraSeconds != 0 {
		t.Errorf("period = %+v, want planned 120 extra 0", rp)
	}

	if err := m.LogSet(0, 100, 5, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}
	set := m.ActiveSession().Exercises[0].Sets[0]
	if set.ActualRestSeconds == nil || *set.ActualRestSeconds != 120 {
		t.Errorf("ActualRestSeconds = %v, want 120", set.ActualRestSeconds)
	}
	if set.ExtraRestSeconds != nil {
		t.Errorf("ExtraRestSeconds = %v, want nil with no extension", set.ExtraRestSeconds)
	}
}

// TestLogSetAvgRepDuration verifies the stopwatch-derived pace annotation
// and that logging consumes the stopwatch.
func TestLogSetAvgRepDuration(t *testing.T) {
	m, clk, _ := newTestManager(t, models.Settings{})
	mustStartEmpty(t, m)
	mustAddExercise(t, m, "Squat", squatTarget)

	if err := m.MarkSetStart(0); err != nil {
		t.Fatalf("MarkSetStart: %v", err)
	}
	clk.Advance(15 * time.Second)
	if err := m.LogSet(0, 100, 5, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}

	set := m.ActiveSession().Exercises[0].Sets[0]
	if set.AvgRepDuration == nil || *set.AvgRepDuration != 3.0 {
		t.Errorf("AvgRepDuration = %v, want 3.0", set.AvgRepDuration)
	}
	if _, running := m.SetDuration(); running {
		t.Error("set stopwatch still running after LogSet")
	}

	// No stopwatch, no annotation.
	if err := m.LogSet(0, 100, 5, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}
	if got := m.ActiveSession().Exercises[0].Sets[1].AvgRepDuration; got != nil {
		t.Errorf("AvgRepDuration = %v without a stopwatch, want nil", got)
	}
}

// TestLogSetAutoStartRest verifies the auto-start setting launches the
// exercise's rest timer as soon as a set is logged.
func TestLogSetAutoStartRest(t *testing.T) {
	m, _, _ := newTestManager(t, models.Settings{AutoStartRestTimer: true, DefaultRestSeconds: 90})
	mustStartEmpty(t, m)
	mustAddExercise(t, m, "Squat", squatTarget)
	mustAddExercise(t, m, "Curl", models.ExerciseTarget{Sets: 3, RepsMin: 10, RepsMax: 12})

	if err := m.LogSet(0, 100, 5, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}
	snap := m.RestTimerSnapshot()
	if snap.State != timer.RestRunning {
		t.Fatalf("rest state = %q after auto-start, want running", snap.State)
	}
	if snap.PlannedSeconds != 180 || snap.ExerciseIndex != 0 {
		t.Errorf("rest snapshot = %+v, want 180s for exercise 0", snap)
	}

	// AddExercise already applied the default to Curl's prescription.
	if err := m.LogSet(1, 20, 10, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}
	snap = m.RestTimerSnapshot()
	if snap.PlannedSeconds != 90 || snap.ExerciseIndex != 1 {
		t.Errorf("rest snapshot = %+v, want default 90s for exercise 1", snap)
	}
}

// TestLogSetStopsCountdown verifies logging mid-countdown leaves no timer
// running.
func TestLogSetStopsCountdown(t *testing.T) {
	m, _, _ := newTestManager(t, models.Settings{})
	mustStartEmpty(t, m)
	mustAddExercise(t, m, "Squat", squatTarget)

	if err := m.StartSetCountdown(0, 10); err != nil {
		t.Fatalf("StartSetCountdown: %v", err)
	}
	if err := m.LogSet(0, 100, 5, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}
	snap := m.SetTimerSnapshot()
	if snap.CountdownActive {
		t.Error("countdown still active after LogSet")
	}
	if snap.StopwatchRunning {
		t.Error("stopwatch running after LogSet")
	}
}

// TestEditSet verifies in-place correction semantics: load and reps change,
// a nil RPE keeps the old value, annotations survive untouched.
func TestEditSet(t *testing.T) {
	m, clk, _ := newTestManager(t, models.Settings{})
	mustStartEmpty(t, m)
	mustAddExercise(t, m, "Squat", squatTarget)

	if err := m.StartRestTimer(0, 120); err != nil {
		t.Fatalf("StartRestTimer: %v", err)
	}
	clk.Advance(5 * time.Second)
	if err := m.LogSet(0, 100, 5, fptr(8)); err != nil {
		t.Fatalf("LogSet: %v", err)
	}

	if err := m.EditSet(0, 0, 102.5, 4, nil); err != nil {
		t.Fatalf("EditSet: %v", err)
	}
	set := m.ActiveSession().Exercises[0].Sets[0]
	if set.Weight != 102.5 || set.Reps != 4 {
		t.Errorf("set = %+v, want weight 102.5 reps 4", set)
	}
	if set.RPE == nil || *set.RPE != 8 {
		t.Errorf("RPE = %v after nil edit, want 8 kept", set.RPE)
	}
	if set.ActualRestSeconds == nil || *set.ActualRestSeconds != 120 {
		t.Errorf("ActualRestSeconds = %v after edit, want 120 kept", set.ActualRestSeconds)
	}
	if !set.Timestamp.Equal(t0.Add(5 * time.Second)) {
		t.Errorf("Timestamp = %v changed by edit", set.Timestamp)
	}

	if err := m.EditSet(0, 0, 102.5, 4, fptr(9.5)); err != nil {
		t.Fatalf("EditSet: %v", err)
	}
	if got := m.ActiveSession().Exercises[0].Sets[0].RPE; got == nil || *got != 9.5 {
		t.Errorf("RPE = %v, want 9.5", got)
	}

	if err := m.EditSet(0, 0, 0, 4, nil); !IsValidation(err) {
		t.Errorf("zero-weight edit error = %v, want ValidationError", err)
	}
	if err := m.EditSet(0, 3, 100, 5, nil); !IsValidation(err) {
		t.Errorf("out-of-range set edit error = %v, want ValidationError", err)
	}
}

// TestDeleteSet verifies removal keeps the remaining sets in order.
func TestDeleteSet(t *testing.T) {
	m, _, _ := newTestManager(t, models.Settings{})
	mustStartEmpty(t, m)
	mustAddExercise(t, m, "Squat", squatTarget)

	for _, w := range []float64{100, 105, 110} {
		if err := m.LogSet(0, w, 5, nil); err != nil {
			t.Fatalf("LogSet(%v): %v", w, err)
		}
	}
	if err := m.DeleteSet(0, 1); err != nil {
		t.Fatalf("DeleteSet: %v", err)
	}

	sets := m.ActiveSession().Exercises[0].Sets
	if len(sets) != 2 {
		t.Fatalf("len(sets) = %d, want 2", len(sets))
	}
	if sets[0].Weight != 100 || sets[1].Weight != 110 {
		t.Errorf("remaining weights = %v/%v, want 100/110", sets[0].Weight, sets[1].Weight)
	}

	if err := m.DeleteSet(0, 2); !IsValidation(err) {
		t.Errorf("out-of-range delete error = %v, want ValidationError", err)
	}
	if err := m.DeleteSet(1, 0); !IsValidation(err) {
		t.Errorf("bad exercise delete error = %v, want ValidationError", err)
	}
}
