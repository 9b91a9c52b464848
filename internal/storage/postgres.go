package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
)

var _ Store = (*DB)(nil)

// LoadActiveSession returns the persisted active session, or (nil, nil)
// when no record exists.
func (db *DB) LoadActiveSession(ctx context.Context) (*models.Session, error) {
	var payload []byte
	err := db.Pool.QueryRow(ctx,
		`SELECT payload FROM active_session WHERE id = 1`).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
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
func (db *DB) SaveActiveSession(ctx context.Context, sess *models.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding active session: %w", err)
	}
	_, err = db.Pool.Exec(ctx,
		`INSERT INTO active_session (id, payload, updated_at) VALUES (1, $1, now())
		 ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		payload)
	if err != nil {
		return fmt.Errorf("saving active session: %w", err)
	}
	return nil
}

// DeleteActiveSession removes the recovery record. Deleting when none
// exists is not an error.
func (db *DB) DeleteActiveSession(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM active_session`); err != nil {
		return fmt.Errorf("deleting active session: %w", err)
	}
	return nil
}

// ArchiveSession stores a finished session: the full document plus one row
// per logged set. Archiving the same session again replaces it.
func (db *DB) ArchiveSession(ctx context.Context, sess *models.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning archive tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO sessions (id, date, workout_ref, start_time, end_time, notes, payload)
		 VALUES ($1, to_date($2, 'YYYY-MM-DD'), $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   date = EXCLUDED.date, workout_ref = EXCLUDED.workout_ref,
		   start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time,
		   notes = EXCLUDED.notes, payload = EXCLUDED.payload`,
		sess.ID, sess.Date, sess.WorkoutRef, sess.StartTime, sess.EndTime, sess.Notes, payload)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM session_sets WHERE session_id = $1`, sess.ID); err != nil {
		return fmt.Errorf("clearing session sets: %w", err)
	}
	if err := insertSetRows(ctx, tx, flattenSets(sess)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing archive tx: %w", err)
	}
	return nil
}

// insertSetRows batch-inserts archive set rows.
func insertSetRows(ctx context.Context, tx pgx.Tx, rows []SetRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO session_sets (session_id, session_date, exercise_num, exercise_name,
		set_number, weight, reps, rpe, actual_rest_seconds, avg_rep_duration, completed_at) VALUES `
	args := make([]any, 0, len(rows)*11)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * 11
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,to_date($%d,'YYYY-MM-DD'),$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
			base+7, base+8, base+9, base+10, base+11,
		))
		args = append(args, r.SessionID, r.SessionDate, r.ExerciseNumber, r.ExerciseName,
			r.SetNumber, r.Weight, r.Reps, r.RPE, r.ActualRestSeconds, r.AvgRepDuration, r.CompletedAt)
	}

	query += strings.Join(valueStrings, ",")
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting session sets: %w", err)
	}
	return nil
}

// QuerySessions lists archived sessions in a date range, newest first.
func (db *DB) QuerySessions(ctx context.Context, start, end time.Time, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT s.id::text, s.date::text, s.workout_ref, s.start_time, s.end_time,
		 (SELECT COUNT(DISTINCT exercise_num) FROM session_sets WHERE session_id = s.id),
		 (SELECT COUNT(*) FROM session_sets WHERE session_id = s.id),
		 COALESCE((SELECT SUM(weight * reps) FROM session_sets WHERE session_id = s.id), 0)
		 FROM sessions s
		 WHERE s.date >= $1 AND s.date <= $2
		 ORDER BY s.date DESC, s.start_time DESC
		 LIMIT $3`,
		start, end, limit)
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
func (db *DB) ExerciseHistory(ctx context.Context, exercise string, limit int) ([]SetRow, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT session_id::text, session_date::text, exercise_num, exercise_name, set_number,
		 weight, reps, rpe, actual_rest_seconds, avg_rep_duration, completed_at
		 FROM session_sets
		 WHERE exercise_name = $1
		 ORDER BY completed_at DESC, exercise_num ASC, set_number ASC
		 LIMIT $2`,
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
func (db *DB) PersonalRecords(ctx context.Context, exercise string) ([]PersonalRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT ss.reps, ss.weight, MIN(ss.session_date)::text
		 FROM session_sets ss
		 WHERE ss.exercise_name = $1
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
func (db *DB) VolumeSummary(ctx context.Context, start, end time.Time, bucket VolumeBucket) ([]VolumePeriod, error) {
	var expr string
	switch bucket {
	case BucketWeek:
		expr = `to_char(date_trunc('week', session_date), 'IYYY-"W"IW')`
	case BucketMonth:
		expr = `to_char(date_trunc('month', session_date), 'YYYY-MM')`
	default:
		return nil, fmt.Errorf("unknown volume bucket %q", bucket)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT `+expr+` AS period, COUNT(DISTINCT session_id), COUNT(*), COALESCE(SUM(weight * reps), 0)
		 FROM session_sets
		 WHERE session_date >= $1 AND session_date <= $2
		 GROUP BY 1
		 ORDER BY 1`,
		start, end)
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
