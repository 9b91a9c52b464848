package storage

import (
	"testing"
	"time"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
)

func TestFlattenSetsNumberingAndFilter(t *testing.T) {
	s := &models.Session{
		ID:   "a",
		Date: "2026-01-05",
		Exercises: []models.SessionExercise{
			{ExerciseName: "Squat", Sets: []models.LoggedSet{
				{Weight: 100, Reps: 5, Completed: true, Timestamp: time.Now()},
				{Weight: 105, Reps: 5, Completed: false},
			}},
			{ExerciseName: "Bench Press", Sets: []models.LoggedSet{
				{Weight: 80, Reps: 8, Completed: true, Timestamp: time.Now()},
			}},
		},
	}

	rows := flattenSets(s)
	if len(rows) != 2 {
		t.Fatalf("flattenSets returned %d rows, want 2 completed", len(rows))
	}
	if rows[0].ExerciseNumber != 1 || rows[0].SetNumber != 1 {
		t.Errorf("first row numbered %d/%d, want 1/1", rows[0].ExerciseNumber, rows[0].SetNumber)
	}
	if rows[1].ExerciseNumber != 2 || rows[1].ExerciseName != "Bench Press" {
		t.Errorf("second row = %+v, want Bench Press as exercise 2", rows[1])
	}
}

func TestEpley1RM(t *testing.T) {
	tests := []struct {
		weight float64
		reps   int
		want   float64
	}{
		{100, 1, 100},
		{100, 5, 100 * (1 + 5.0/30)},
		{60, 10, 60 * (1 + 10.0/30)},
		{100, 0, 100},
	}
	for _, tt := range tests {
		if got := epley1RM(tt.weight, tt.reps); got != tt.want {
			t.Errorf("epley1RM(%v, %d) = %v, want %v", tt.weight, tt.reps, got, tt.want)
		}
	}
}
