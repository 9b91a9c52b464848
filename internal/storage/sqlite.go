package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
)

var _ Store = (*SQLite)(nil)

// SQLite is the single-file default store.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS active_session (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	date        TEXT NOT NULL,
	workout_ref TEXT NOT NULL DEFAULT '',
	start_time  TIMESTAMP NOT NULL,
	end_time    TIMESTAMP,
	notes       TEXT NOT NULL DEFAULT '',
	payload     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS session_sets (
	session_id          TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	session_date        TEXT NOT NULL,
	exercise_num        INTEGER NOT NULL,
	exercise_name       TEXT NOT NULL,
	set_number          INTEGER NOT NULL,
	weight              REAL NOT NULL,
	reps                INTEGER NOT NULL,
	rpe                 REAL,
	actual_rest_seconds INTEGER,
	avg_rep_duration    REAL,
	completed_at        TIMESTAMP NOT NULL,
	PRIMARY KEY (session_id, exercise_num, set_number)
);
CREATE INDEX IF NOT EXISTS idx_session_sets_exercise ON session_sets (exercise_name, session_date);
CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions (date);
`

// OpenSQLite opens (or creates) the store at the given path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// LoadActiveSession returns the persisted active session, or (nil, nil)
// when no record exists.
func (s *SQLite) LoadActiveSession(ctx context.Context) (*models.Session, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM active_session WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading active session: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("decoding active session: %w", err)
	}
	return &sess, nil
}

// SaveActiveSession writes the recovery record, replacing any previous one.
func (s *SQLite) SaveActiveSession(ctx context.Context, sess *models.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding active session: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO active_session (id, payload, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)`,
		payload)
	if err != nil {
		return fmt.Errorf("saving active session: %w", err)
	}
	return nil
}

// DeleteActiveSession removes the recovery record. Deleting when none
// exists is not an error.
func (s *SQLite) DeleteActiveSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM active_session`); err != nil {
		return fmt.Errorf("deleting active session: %w", err)
	}
	return nil
}

// ArchiveSession stores a finished session: the full document plus one row
// per logged set. Archiving the same session again replaces it.
func (s *SQLite) ArchiveSession(ctx context.Context, sess *models.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning archive tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, date, workout_ref, start_time, end_time, notes, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Date, sess.WorkoutRef, sess.StartTime, sess.EndTime, sess.Notes, payload)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM session_sets WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clearing session sets: %w", err)
	}
	for _, r := range flattenSets(sess) {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO session_sets (session_id, session_date, exercise_num, exercise_name,
			 set_number, weight, reps, rpe, actual_rest_seconds, avg_rep_duration, completed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.SessionID, r.SessionDate, r.ExerciseNumber, r.ExerciseName,
			r.SetNumber, r.Weight, r.Reps, r.RPE, r.ActualRestSeconds, r.AvgRepDuration, r.CompletedAt)
		if err != nil {
			return fmt.Errorf("inserting session set: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing archive tx: %w", err)
	}
	return nil
}

// QuerySessions lists archived sessions in a date range, newest first.
func (s *SQLite) QuerySessions(ctx context.Context, start, end time.Time, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.date, s.workout_ref, s.start_time, s.end_time,
		 (SELECT COUNT(DISTINCT exercise_num) FROM session_sets WHERE session_id = s.id),
		 (SELECT COUNT(*) FROM session_sets WHERE session_id = s.id),
		 (SELECT COALESCE(SUM(weight * reps), 0) FROM session_sets WHERE session_id = s.id)
		 FROM sessions s
		 WHERE s.date >= ? AND s.date <= ?
		 ORDER BY s.date DESC, s.start_time DESC
		 LIMIT ?`,
		start.Format("2006-01-02"), end.Format("2006-01-02"), limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []SessionSummary
	for rows.Next() {
		var r SessionSummary
		if err := rows.Scan(&r.ID, &r.Date, &r.WorkoutRef, &r.StartTime, &r.EndTime,
			&r.ExerciseCount, &r.SetCount, &r.TotalVolume); err != nil {
			return nil, fmt.Errorf("scanning session summary: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ExerciseHistory lists an exercise's archived sets, newest first.
func (s *SQLite) ExerciseHistory(ctx context.Context, exercise string, limit int) ([]SetRow, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, session_date, exercise_num, exercise_name, set_number,
		 weight, reps, rpe, actual_rest_seconds, avg_rep_duration, completed_at
		 FROM session_sets
		 WHERE exercise_name = ?
		 ORDER BY completed_at DESC, exercise_num ASC, set_number ASC
		 LIMIT ?`,
		exercise, limit)
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}
	defer rows.Close()

	var result []SetRow
	for rows.Next() {
		var r SetRow
		if err := rows.Scan(&r.SessionID, &r.SessionDate, &r.ExerciseNumber, &r.ExerciseName,
			&r.SetNumber, &r.Weight, &r.Reps, &r.RPE, &r.ActualRestSeconds,
			&r.AvgRepDuration, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning set row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// PersonalRecords returns the heaviest set per rep count for an exercise,
// dated by its first achievement.
func (s *SQLite) PersonalRecords(ctx context.Context, exercise string) ([]PersonalRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ss.reps, ss.weight, MIN(ss.session_date)
		 FROM session_sets ss
		 WHERE ss.exercise_name = ?
		   AND ss.weight = (SELECT MAX(weight) FROM session_sets
		                    WHERE exercise_name = ss.exercise_name AND reps = ss.reps)
		 GROUP BY ss.reps, ss.weight
		 ORDER BY ss.reps`,
		exercise)
	if err != nil {
		return nil, fmt.Errorf("querying personal records: %w", err)
	}
	defer rows.Close()

	var result []PersonalRecord
	for rows.Next() {
		r := PersonalRecord{ExerciseName: exercise}
		if err := rows.Scan(&r.Reps, &r.Weight, &r.Date); err != nil {
			return nil, fmt.Errorf("scanning personal record: %w", err)
		}
		r.Estimated1RM = epley1RM(r.Weight, r.Reps)
		result = append(result, r)
	}
	return result, rows.Err()
}

// VolumeSummary aggregates archived volume into week or month buckets.
func (s *SQLite) VolumeSummary(ctx context.Context, start, end time.Time, bucket VolumeBucket) ([]VolumePeriod, error) {
	var expr string
	switch bucket {
	case BucketWeek:
		expr = `strftime('%Y-W%W', session_date)`
	case BucketMonth:
		expr = `strftime('%Y-%m', session_date)`
	default:
		return nil, fmt.Errorf("unknown volume bucket %q", bucket)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+expr+` AS period, COUNT(DISTINCT session_id), COUNT(*), COALESCE(SUM(weight * reps), 0)
		 FROM session_sets
		 WHERE session_date >= ? AND session_date <= ?
		 GROUP BY period
		 ORDER BY period`,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("querying volume summary: %w", err)
	}
	defer rows.Close()

	var result []VolumePeriod
	for rows.Next() {
		var r VolumePeriod
		if err := rows.Scan(&r.Period, &r.Sessions, &r.Sets, &r.TotalVolume); err != nil {
			return nil, fmt.Errorf("scanning volume period: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
