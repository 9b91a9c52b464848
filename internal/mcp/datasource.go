package mcp

import (
	"context"
	"time"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/storage"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/timer"
)

// SessionState is the full engine snapshot exposed to MCP clients. It
// matches the daemon's GET /api/v1/session response so the local and
// remote data sources return identical shapes.
type SessionState struct {
	Session    *models.Session    `json:"session"`
	InProgress bool               `json:"inProgress"`
	Rest       timer.RestSnapshot `json:"rest"`
	SetTimer   timer.SetSnapshot  `json:"setTimer"`
	RestPeriod *timer.RestPeriod  `json:"restPeriod,omitempty"`
}

// DataSource abstracts the query side for MCP tools. Both Local (in-process
// engine and archive) and HTTPClient (remote via REST API) satisfy this
// interface.
type DataSource interface {
	ActiveSession(ctx context.Context) (*SessionState, error)
	ListTemplates(ctx context.Context) ([]models.WorkoutTemplate, error)
	ExerciseHistory(ctx context.Context, exercise string, limit int) ([]storage.SetRow, error)
	PersonalRecords(ctx context.Context, exercise string) ([]storage.PersonalRecord, error)
	VolumeSummary(ctx context.Context, start, end time.Time, bucket storage.VolumeBucket) ([]storage.VolumePeriod, error)
}

// Commander abstracts the session command side: starting and ending
// workouts, logging sets, driving the rest timer.
type Commander interface {
	StartWorkout(ctx context.Context, template string) (*models.Session, error)
	LogSet(ctx context.Context, exerciseIndex int, weight float64, reps int, rpe *float64) (*models.Session, error)
	FinishWorkout(ctx context.Context) (*models.Session, error)
	DiscardWorkout(ctx context.Context) error
	StartRestTimer(ctx context.Context, exerciseIndex, seconds int) (timer.RestSnapshot, error)
	ExtendRestTimer(ctx context.Context, seconds int) (timer.RestSnapshot, error)
}
