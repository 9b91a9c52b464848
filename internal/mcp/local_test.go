package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/clock"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/library"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/session"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/storage"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/timer"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// memStore keeps the active session record in memory.
type memStore struct {
	mu       sync.Mutex
	active   *models.Session
	archived []*models.Session
}

func (s *memStore) LoadActiveSession(context.Context) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, nil
}

func (s *memStore) SaveActiveSession(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = sess.Clone()
	return nil
}

func (s *memStore) DeleteActiveSession(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
	return nil
}

func (s *memStore) ArchiveSession(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archived = append(s.archived, sess.Clone())
	return nil
}

// fakeArchive returns canned query results.
type fakeArchive struct {
	sets    []storage.SetRow
	records []storage.PersonalRecord
	periods []storage.VolumePeriod
}

func (a *fakeArchive) QuerySessions(context.Context, time.Time, time.Time, int) ([]storage.SessionSummary, error) {
	return nil, nil
}

func (a *fakeArchive) ExerciseHistory(context.Context, string, int) ([]storage.SetRow, error) {
	return a.sets, nil
}

func (a *fakeArchive) PersonalRecords(context.Context, string) ([]storage.PersonalRecord, error) {
	return a.records, nil
}

func (a *fakeArchive) VolumeSummary(context.Context, time.Time, time.Time, storage.VolumeBucket) ([]storage.VolumePeriod, error) {
	return a.periods, nil
}

const legDayYAML = `name: Leg Day
exercises:
  - exercise: Squat
    sets: 3
    reps_min: 5
    reps_max: 8
    rest_seconds: 180
`

// newTestLocal builds a Local over a real engine, an in-memory store, and a
// one-template library.
func newTestLocal(t *testing.T) *Local {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "leg-day.yaml"), []byte(legDayYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	lib, err := library.Open(dir, log)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { lib.Close() })

	engine := session.NewManager(clock.NewFake(t0), &memStore{}, models.Settings{}, log)
	return NewLocal(engine, &fakeArchive{}, lib)
}

// TestLocalStartWorkout verifies template resolution and the empty variant.
func TestLocalStartWorkout(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	sess, err := l.StartWorkout(ctx, "Leg Day")
	if err != nil {
		t.Fatal(err)
	}
	if sess.WorkoutRef != "Leg Day" {
		t.Errorf("workoutRef = %q, want Leg Day", sess.WorkoutRef)
	}
	if len(sess.Exercises) != 1 || sess.Exercises[0].ExerciseName != "Squat" {
		t.Fatalf("exercises = %+v, want one Squat slot", sess.Exercises)
	}

	if err := l.DiscardWorkout(ctx); err != nil {
		t.Fatal(err)
	}

	sess, err = l.StartWorkout(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if sess.WorkoutRef != "" || len(sess.Exercises) != 0 {
		t.Errorf("empty start = %+v, want no ref and no exercises", sess)
	}
}

// TestLocalStartWorkoutUnknownTemplate verifies the not-found error.
func TestLocalStartWorkoutUnknownTemplate(t *testing.T) {
	l := newTestLocal(t)

	_, err := l.StartWorkout(context.Background(), "Arm Day")
	if err == nil {
		t.Fatal("expected error for unknown template")
	}
	if got, want := err.Error(), `template "Arm Day" not found`; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
}

// TestLocalLogSetAndFinish verifies the command flow end to end: log a set,
// finish, and observe the terminal state.
func TestLocalLogSetAndFinish(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	if _, err := l.StartWorkout(ctx, "Leg Day"); err != nil {
		t.Fatal(err)
	}

	sess, err := l.LogSet(ctx, 0, 100, 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.Exercises[0].Sets) != 1 {
		t.Fatalf("got %d sets, want 1", len(sess.Exercises[0].Sets))
	}
	if sess.Exercises[0].Sets[0].Weight != 100 {
		t.Errorf("weight = %v, want 100", sess.Exercises[0].Sets[0].Weight)
	}

	finished, err := l.FinishWorkout(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if finished.Status != models.StatusCompleted {
		t.Errorf("status = %q, want completed", finished.Status)
	}

	state, err := l.ActiveSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if state.Session != nil {
		t.Errorf("session after finish = %+v, want nil", state.Session)
	}
}

// TestLocalFinishWithoutSets verifies the guard against archiving an empty
// session.
func TestLocalFinishWithoutSets(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	if _, err := l.StartWorkout(ctx, "Leg Day"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.FinishWorkout(ctx); !session.IsInvalidState(err) {
		t.Errorf("err = %v, want invalid state", err)
	}
}

// TestLocalRestTimer verifies start and extend snapshots.
func TestLocalRestTimer(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	if _, err := l.StartWorkout(ctx, "Leg Day"); err != nil {
		t.Fatal(err)
	}

	snap, err := l.StartRestTimer(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if snap.State != timer.RestRunning {
		t.Fatalf("state = %q, want running", snap.State)
	}
	// No explicit duration: the template's 180s prescription applies.
	if snap.PlannedSeconds != 180 {
		t.Errorf("plannedSeconds = %d, want 180", snap.PlannedSeconds)
	}

	snap, err = l.ExtendRestTimer(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}
	if snap.ExtraSeconds != 30 {
		t.Errorf("extraSeconds = %d, want 30", snap.ExtraSeconds)
	}
	if snap.Remaining != 210 {
		t.Errorf("remaining = %d, want 210", snap.Remaining)
	}
}

// TestLocalListTemplates verifies the library passthrough.
func TestLocalListTemplates(t *testing.T) {
	l := newTestLocal(t)

	templates, err := l.ListTemplates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(templates) != 1 || templates[0].Name != "Leg Day" {
		t.Errorf("templates = %+v, want [Leg Day]", templates)
	}
}

// callTool invokes a tool handler the way the MCP server would and returns
// the text of the first content item.
func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", result.Content[0])
	}
	return tc.Text, result.IsError
}

// TestLogSetToolHandler drives the log_set tool through argument parsing,
// the command, and JSON serialization.
func TestLogSetToolHandler(t *testing.T) {
	l := newTestLocal(t)
	h := &handlers{ds: l, cmd: l, log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	if _, err := l.StartWorkout(context.Background(), "Leg Day"); err != nil {
		t.Fatal(err)
	}

	text, isError := callTool(t, h.logSet, map[string]any{
		"exercise_index": 0,
		"weight":         100.0,
		"reps":           5,
		"rpe":            8.0,
	})
	if isError {
		t.Fatalf("tool error: %s", text)
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(text), &sess); err != nil {
		t.Fatal(err)
	}
	set := sess.Exercises[0].Sets[0]
	if set.Weight != 100 || set.Reps != 5 {
		t.Errorf("set = %v x %d, want 100 x 5", set.Weight, set.Reps)
	}
	if set.RPE == nil || *set.RPE != 8 {
		t.Errorf("rpe = %v, want 8", set.RPE)
	}
}

// TestLogSetToolMissingArgument verifies required-parameter handling.
func TestLogSetToolMissingArgument(t *testing.T) {
	l := newTestLocal(t)
	h := &handlers{ds: l, cmd: l, log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	text, isError := callTool(t, h.logSet, map[string]any{"weight": 100.0, "reps": 5})
	if !isError {
		t.Fatal("expected tool error")
	}
	if text != "exercise_index parameter is required" {
		t.Errorf("error text = %q", text)
	}
}

// TestLogSetToolValidation verifies engine validation errors surface as tool
// errors rather than protocol errors.
func TestLogSetToolValidation(t *testing.T) {
	l := newTestLocal(t)
	h := &handlers{ds: l, cmd: l, log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	if _, err := l.StartWorkout(context.Background(), "Leg Day"); err != nil {
		t.Fatal(err)
	}

	text, isError := callTool(t, h.logSet, map[string]any{
		"exercise_index": 0,
		"weight":         0.0,
		"reps":           5,
	})
	if !isError {
		t.Fatal("expected tool error for zero weight")
	}
	if text != "weight must be greater than zero" {
		t.Errorf("error text = %q", text)
	}
}

// TestActiveSessionResource verifies the resource handler emits the state
// snapshot as JSON.
func TestActiveSessionResource(t *testing.T) {
	l := newTestLocal(t)
	h := &handlers{ds: l, cmd: l, log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "fitness://session/active"

	contents, err := h.activeSession(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents type = %T, want TextResourceContents", contents[0])
	}
	if tc.URI != "fitness://session/active" {
		t.Errorf("uri = %q", tc.URI)
	}

	var state SessionState
	if err := json.Unmarshal([]byte(tc.Text), &state); err != nil {
		t.Fatal(err)
	}
	if state.Session != nil || state.InProgress {
		t.Errorf("state = %+v, want idle", state)
	}
}
