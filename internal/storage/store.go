// Package storage persists workout sessions. The active session is kept as
// a single recovery record; finished sessions land in an archive that is
// additionally exploded into per-set rows for querying. Two backends exist:
// SQLite for the single-user default and PostgreSQL for a shared archive.
package storage

import (
	"context"
	"time"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/session"
)

// Store is the full persistence surface a deployment wires in: the engine's
// recovery and archive writes plus the query API.
type Store interface {
	session.Store
	Archive
	Close() error
}

// Archive is the query side over finished sessions.
type Archive interface {
	// QuerySessions lists finished sessions in a date range, newest first.
	QuerySessions(ctx context.Context, start, end time.Time, limit int) ([]SessionSummary, error)
	// ExerciseHistory lists an exercise's logged sets, newest first.
	ExerciseHistory(ctx context.Context, exercise string, limit int) ([]SetRow, error)
	// PersonalRecords returns the best weight per rep count for an exercise.
	PersonalRecords(ctx context.Context, exercise string) ([]PersonalRecord, error)
	// VolumeSummary aggregates training volume into week or month buckets.
	VolumeSummary(ctx context.Context, start, end time.Time, bucket VolumeBucket) ([]VolumePeriod, error)
}

// SessionSummary is one archived session with its aggregate numbers.
type SessionSummary struct {
	ID            string     `json:"id"`
	Date          string     `json:"date"`
	WorkoutRef    string     `json:"workout_ref,omitempty"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	ExerciseCount int        `json:"exercise_count"`
	SetCount      int        `json:"set_count"`
	TotalVolume   float64    `json:"total_volume"`
}

// SetRow is one logged set flattened out of its session document.
type SetRow struct {
	SessionID         string    `json:"session_id"`
	SessionDate       string    `json:"session_date"`
	ExerciseNumber    int       `json:"exercise_number"`
	ExerciseName      string    `json:"exercise_name"`
	SetNumber         int       `json:"set_number"`
	Weight            float64   `json:"weight"`
	Reps              int       `json:"reps"`
	RPE               *float64  `json:"rpe,omitempty"`
	ActualRestSeconds *int      `json:"actual_rest_seconds,omitempty"`
	AvgRepDuration    *float64  `json:"avg_rep_duration,omitempty"`
	CompletedAt       time.Time `json:"completed_at"`
}

// PersonalRecord is the heaviest set at a given rep count, with the
// Epley-estimated one-rep max it implies.
type PersonalRecord struct {
	ExerciseName string  `json:"exercise_name"`
	Reps         int     `json:"reps"`
	Weight       float64 `json:"weight"`
	Estimated1RM float64 `json:"estimated_1rm"`
	Date         string  `json:"date"`
}

// VolumePeriod is one week or month of aggregated training volume.
type VolumePeriod struct {
	Period      string  `json:"period"`
	Sessions    int     `json:"sessions"`
	Sets        int     `json:"sets"`
	TotalVolume float64 `json:"total_volume"`
}

// VolumeBucket selects the aggregation granularity for VolumeSummary.
type VolumeBucket string

const (
	BucketWeek  VolumeBucket = "week"
	BucketMonth VolumeBucket = "month"
)

const defaultQueryLimit = 100

// epley1RM estimates a one-rep max from a submaximal set.
func epley1RM(weight float64, reps int) float64 {
	if reps <= 1 {
		return weight
	}
	return weight * (1 + float64(reps)/30)
}

// flattenSets explodes a session document into archive set rows. Exercise
// and set numbers are 1-based.
func flattenSets(s *models.Session) []SetRow {
	var rows []SetRow
	for ei := range s.Exercises {
		ex := &s.Exercises[ei]
		for si := range ex.Sets {
			set := &ex.Sets[si]
			if !set.Completed {
				continue
			}
			rows = append(rows, SetRow{
				SessionID:         s.ID,
				SessionDate:       s.Date,
				ExerciseNumber:    ei + 1,
				ExerciseName:      ex.ExerciseName,
				SetNumber:         si + 1,
				Weight:            set.Weight,
				Reps:              set.Reps,
				RPE:               set.RPE,
				ActualRestSeconds: set.ActualRestSeconds,
				AvgRepDuration:    set.AvgRepDuration,
				CompletedAt:       set.Timestamp,
			})
		}
	}
	return rows
}
