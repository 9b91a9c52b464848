package session

import (
	"testing"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
)

// TestAddExerciseAndCompletion walks the ad hoc flow: empty session, one
// exercise added mid-workout, progress tracked against its target.
func TestAddExerciseAndCompletion(t *testing.T) {
	m, _, _ := newTestManager(t, models.Settings{})
	mustStartEmpty(t, m)
	mustAddExercise(t, m, "Squat", models.ExerciseTarget{Sets: 3, RepsMin: 5, RepsMax: 5, RestSeconds: 180})

	if err := m.LogSet(0, 100, 5, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}
	got, err := m.ExerciseCompletion(0)
	if err != nil {
		t.Fatalf("ExerciseCompletion: %v", err)
	}
	want := models.CompletionStatus{CompletedSets: 1, TargetSets: 3, IsComplete: false}
	if got != want {
		t.Errorf("ExerciseCompletion(0) = %+v, want %+v", got, want)
	}

	for i := 0; i < 2; i++ {
		if err := m.LogSet(0, 100, 5, nil); err != nil {
			t.Fatalf("LogSet: %v", err)
		}
	}
	got, err = m.ExerciseCompletion(0)
	if err != nil {
		t.Fatalf("ExerciseCompletion: %v", err)
	}
	if !got.IsComplete || got.CompletedSets != 3 {
		t.Errorf("ExerciseCompletion(0) = %+v, want 3/3 complete", got)
	}

	if _, err := m.ExerciseCompletion(1); !IsValidation(err) {
		t.Errorf("out-of-range completion error = %v, want ValidationError", err)
	}
}

func TestAddExerciseValidation(t *testing.T) {
	m, _, _ := newTestManager(t, models.Settings{})

	if err := m.AddExercise("Squat", squatTarget); !IsInvalidState(err) {
		t.Errorf("no-session error = %v, want InvalidStateError", err)
	}

	mustStartEmpty(t, m)
	if err := m.AddExercise("", squatTarget); !IsValidation(err) {
		t.Errorf("empty-name error = %v, want ValidationError", err)
	}
	if err := m.AddExercise("Squat", models.ExerciseTarget{Sets: -1}); !IsValidation(err) {
		t.Errorf("negative-target error = %v, want ValidationError", err)
	}
	if got := len(m.ActiveSession().Exercises); got != 0 {
		t.Errorf("%d exercises after rejected adds, want 0", got)
	}
}

// TestAddExerciseDefaultRest verifies a missing rest prescription takes the
// configured default at add time.
func TestAddExerciseDefaultRest(t *testing.T) {
	m, _, _ := newTestManager(t, models.Settings{DefaultRestSeconds: 150})
	mustStartEmpty(t, m)
	mustAddExercise(t, m, "Curl", models.ExerciseTarget{Sets: 3, RepsMin: 10, RepsMax: 12})

	if got := m.ActiveSession().Exercises[0].RestSeconds; got != 150 {
		t.Errorf("RestSeconds = %d, want default 150", got)
	}
}

func TestRemoveExercise(t *testing.T) {
	m, _, _ := newTestManager(t, models.Settings{})
	mustStartEmpty(t, m)
	mustAddExercise(t, m, "Squat", squatTarget)
	mustAddExercise(t, m, "Bench Press", squatTarget)
	if err := m.LogSet(0, 100, 5, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}

	if err := m.RemoveExercise(0); err != nil {
		t.Fatalf("RemoveExercise: %v", err)
	}
	s := m.ActiveSession()
	if len(s.Exercises) != 1 || s.Exercises[0].ExerciseName != "Bench Press" {
		t.Errorf("Exercises = %+v, want only Bench Press", s.Exercises)
	}
	if got := m.CountTotalCompletedSets(); got != 0 {
		t.Errorf("CountTotalCompletedSets() = %d, removed sets still counted", got)
	}

	if err := m.RemoveExercise(1); !IsValidation(err) {
		t.Errorf("out-of-range remove error = %v, want ValidationError", err)
	}
}

// TestReorderExercises verifies logged sets travel with their exercise and
// the target index means the final position.
func TestReorderExercises(t *testing.T) {
	m, _, _ := newTestManager(t, models.Settings{})
	mustStartEmpty(t, m)
	for _, name := range []string{"Squat", "Bench Press", "Row"} {
		mustAddExercise(t, m, name, squatTarget)
	}
	if err := m.LogSet(0, 100, 5, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}

	if err := m.ReorderExercises(0, 2); err != nil {
		t.Fatalf("ReorderExercises: %v", err)
	}
	s := m.ActiveSession()
	order := []string{s.Exercises[0].ExerciseName, s.Exercises[1].ExerciseName, s.Exercises[2].ExerciseName}
	if order[0] != "Bench Press" || order[1] != "Row" || order[2] != "Squat" {
		t.Errorf("order = %v, want [Bench Press Row Squat]", order)
	}
	if len(s.Exercises[2].Sets) != 1 {
		t.Errorf("Squat has %d sets after move, want 1", len(s.Exercises[2].Sets))
	}

	if err := m.ReorderExercises(1, 1); err != nil {
		t.Errorf("same-index reorder: %v", err)
	}
	if err := m.ReorderExercises(3, 0); !IsValidation(err) {
		t.Errorf("bad from error = %v, want ValidationError", err)
	}
	if err := m.ReorderExercises(0, -1); !IsValidation(err) {
		t.Errorf("bad to error = %v, want ValidationError", err)
	}
}

// TestUpdateExercisesPreservesSets verifies a template refresh keeps logged
// work by exercise name while taking the new prescription.
func TestUpdateExercisesPreservesSets(t *testing.T) {
	m, _, _ := newTestManager(t, models.Settings{})
	tpl := models.WorkoutTemplate{
		Name: "Legs",
		Exercises: []models.TemplateExercise{
			{ExerciseName: "Squat", TargetSets: 3, TargetRepsMin: 5, TargetRepsMax: 5, RestSeconds: 180},
			{ExerciseName: "Leg Press", TargetSets: 3, TargetRepsMin: 10, TargetRepsMax: 12, RestSeconds: 120},
		},
	}
	if _, err := m.StartWorkout(tpl); err != nil {
		t.Fatalf("StartWorkout: %v", err)
	}
	if err := m.LogSet(0, 100, 5, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}
	if err := m.LogSet(1, 200, 10, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}

	// The edited template drops Leg Press, retunes Squat, adds a new lift.
	if err := m.UpdateExercises([]models.TemplateExercise{
		{ExerciseName: "Romanian Deadlift", TargetSets: 3, TargetRepsMin: 8, TargetRepsMax: 10, RestSeconds: 150},
		{ExerciseName: "Squat", TargetSets: 5, TargetRepsMin: 3, TargetRepsMax: 3, RestSeconds: 240},
	}); err != nil {
		t.Fatalf("UpdateExercises: %v", err)
	}

	s := m.ActiveSession()
	if len(s.Exercises) != 2 {
		t.Fatalf("len(Exercises) = %d, want 2", len(s.Exercises))
	}
	rdl, squat := s.Exercises[0], s.Exercises[1]
	if rdl.ExerciseName != "Romanian Deadlift" || len(rdl.Sets) != 0 {
		t.Errorf("first exercise = %s with %d sets, want fresh Romanian Deadlift", rdl.ExerciseName, len(rdl.Sets))
	}
	if squat.TargetSets != 5 || squat.RestSeconds != 240 {
		t.Errorf("squat prescription = %d sets rest %d, want retuned 5/240", squat.TargetSets, squat.RestSeconds)
	}
	if len(squat.Sets) != 1 || squat.Sets[0].Weight != 100 {
		t.Errorf("squat sets = %+v, want the logged 100x5 preserved", squat.Sets)
	}
	if got := m.CountTotalCompletedSets(); got != 1 {
		t.Errorf("CountTotalCompletedSets() = %d, want 1 after Leg Press dropped", got)
	}
}

// TestUpdateExercisesDuplicateNames verifies each prior slot is consumed at
// most once when a name appears twice.
func TestUpdateExercisesDuplicateNames(t *testing.T) {
	m, _, _ := newTestManager(t, models.Settings{})
	mustStartEmpty(t, m)
	mustAddExercise(t, m, "Squat", squatTarget)
	if err := m.LogSet(0, 100, 5, nil); err != nil {
		t.Fatalf("LogSet: %v", err)
	}

	if err := m.UpdateExercises([]models.TemplateExercise{
		{ExerciseName: "Squat", TargetSets: 3, TargetRepsMin: 5, TargetRepsMax: 5},
		{ExerciseName: "Squat", TargetSets: 2, TargetRepsMin: 8, TargetRepsMax: 8},
	}); err != nil {
		t.Fatalf("UpdateExercises: %v", err)
	}

	s := m.ActiveSession()
	if len(s.Exercises[0].Sets) != 1 {
		t.Errorf("first Squat has %d sets, want 1", len(s.Exercises[0].Sets))
	}
	if len(s.Exercises[1].Sets) != 0 {
		t.Errorf("second Squat has %d sets, want 0", len(s.Exercises[1].Sets))
	}
}
