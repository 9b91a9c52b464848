package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/library"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/session"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/storage"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/timer"
)

// Local serves MCP tools from an in-process engine, archive, and template
// library. Used when the MCP binary owns the store directly instead of
// talking to a running daemon.
type Local struct {
	engine  *session.Manager
	archive storage.Archive
	library *library.Library
}

// Compile-time checks: Local satisfies both interfaces.
var (
	_ DataSource = (*Local)(nil)
	_ Commander  = (*Local)(nil)
)

// NewLocal wires the engine, archive, and template library into the MCP
// data source and commander.
func NewLocal(engine *session.Manager, archive storage.Archive, lib *library.Library) *Local {
	return &Local{engine: engine, archive: archive, library: lib}
}

func (l *Local) ActiveSession(context.Context) (*SessionState, error) {
	return &SessionState{
		Session:    l.engine.ActiveSession(),
		InProgress: l.engine.IsInProgress(),
		Rest:       l.engine.RestTimerSnapshot(),
		SetTimer:   l.engine.SetTimerSnapshot(),
		RestPeriod: l.engine.RestPeriodData(),
	}, nil
}

func (l *Local) ListTemplates(context.Context) ([]models.WorkoutTemplate, error) {
	return l.library.List(), nil
}

func (l *Local) ExerciseHistory(ctx context.Context, exercise string, limit int) ([]storage.SetRow, error) {
	return l.archive.ExerciseHistory(ctx, exercise, limit)
}

func (l *Local) PersonalRecords(ctx context.Context, exercise string) ([]storage.PersonalRecord, error) {
	return l.archive.PersonalRecords(ctx, exercise)
}

func (l *Local) VolumeSummary(ctx context.Context, start, end time.Time, bucket storage.VolumeBucket) ([]storage.VolumePeriod, error) {
	return l.archive.VolumeSummary(ctx, start, end, bucket)
}

func (l *Local) StartWorkout(_ context.Context, template string) (*models.Session, error) {
	if template == "" {
		return l.engine.StartEmptyWorkout()
	}
	tpl, ok := l.library.Get(template)
	if !ok {
		return nil, fmt.Errorf("template %q not found", template)
	}
	return l.engine.StartWorkout(tpl)
}

func (l *Local) LogSet(_ context.Context, exerciseIndex int, weight float64, reps int, rpe *float64) (*models.Session, error) {
	if err := l.engine.LogSet(exerciseIndex, weight, reps, rpe); err != nil {
		return nil, err
	}
	return l.engine.ActiveSession(), nil
}

func (l *Local) FinishWorkout(ctx context.Context) (*models.Session, error) {
	return l.engine.FinishSession(ctx)
}

func (l *Local) DiscardWorkout(ctx context.Context) error {
	return l.engine.DiscardSession(ctx)
}

func (l *Local) StartRestTimer(_ context.Context, exerciseIndex, seconds int) (timer.RestSnapshot, error) {
	if err := l.engine.StartRestTimer(exerciseIndex, seconds); err != nil {
		return timer.RestSnapshot{}, err
	}
	return l.engine.RestTimerSnapshot(), nil
}

func (l *Local) ExtendRestTimer(_ context.Context, seconds int) (timer.RestSnapshot, error) {
	if err := l.engine.ExtendRestTimer(seconds); err != nil {
		return timer.RestSnapshot{}, err
	}
	return l.engine.RestTimerSnapshot(), nil
}
