// Package strengthlog parses StrengthLog workout exports so past training
// can be brought into the archive.
package strengthlog

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
)

var (
	// workoutHeaderRe matches: "Leg Day","2026-02-19 17:12"
	workoutHeaderRe = regexp.MustCompile(`^"(.+)","(\d{4}-\d{2}-\d{2}[ T]\d{1,2}:\d{2})"$`)

	// setLineRe matches: "Squat",1,100,5,8. Weight and RPE accept European
	// decimals, quoted or not: "Squat",2,"102,5",5,"8,5"
	setLineRe = regexp.MustCompile(`^"(.+)",(\d+),"?([^,"]*(?:,\d+)?)"?,(\d+),"?([^,"]*(?:,\d+)?)"?$`)

	// columnHeaderRe matches the column row repeated in each block.
	columnHeaderRe = regexp.MustCompile(`^Exercise,Set,Weight,Reps,RPE$`)
)

// Parse reads a StrengthLog export and returns one completed session per
// workout block. Blocks are separated by blank lines; sets keep their
// on-paper order, with consecutive lines of the same exercise forming one
// exercise slot.
func Parse(r io.Reader) ([]*models.Session, error) {
	scanner := bufio.NewScanner(r)
	var sessions []*models.Session
	var current *models.Session

	flush := func() {
		if current != nil {
			sessions = append(sessions, current)
			current = nil
		}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Blank line = workout boundary
		if line == "" {
			flush()
			continue
		}
		if columnHeaderRe.MatchString(line) {
			continue
		}

		if m := workoutHeaderRe.FindStringSubmatch(line); m != nil {
			flush()
			start, err := parseWorkoutDate(m[2])
			if err != nil {
				return nil, fmt.Errorf("parsing workout date %q: %w", m[2], err)
			}
			current = &models.Session{
				ID:         uuid.NewString(),
				Date:       start.Format("2006-01-02"),
				StartTime:  start,
				WorkoutRef: m[1],
				Status:     models.StatusCompleted,
			}
			continue
		}

		if m := setLineRe.FindStringSubmatch(line); m != nil {
			if current == nil {
				return nil, fmt.Errorf("set line without workout: %q", line)
			}
			name := strings.TrimSpace(m[1])
			reps, _ := strconv.Atoi(m[4])
			set := models.LoggedSet{
				Weight:    parseDecimal(m[3]),
				Reps:      reps,
				Completed: true,
				Timestamp: current.StartTime,
			}
			if rpe := parseOptionalDecimal(m[5]); rpe != nil {
				set.RPE = rpe
			}
			appendSet(current, name, set)
			continue
		}

		// Unknown line — skip silently (export footers, comments)
	}
	flush()

	return sessions, scanner.Err()
}

// appendSet adds a set to the session's last exercise when the name matches,
// otherwise opens a new exercise slot. Supersets thus stay interleaved the
// way they were performed.
func appendSet(s *models.Session, exercise string, set models.LoggedSet) {
	n := len(s.Exercises)
	if n == 0 || s.Exercises[n-1].ExerciseName != exercise {
		s.Exercises = append(s.Exercises, models.SessionExercise{
			ExerciseName: exercise,
			Sets:         []models.LoggedSet{},
		})
		n++
	}
	ex := &s.Exercises[n-1]
	ex.Sets = append(ex.Sets, set)
	ex.TargetSets = len(ex.Sets)
}

// parseWorkoutDate parses "2026-02-19 17:12", tolerating a T separator and
// single-digit hours.
func parseWorkoutDate(s string) (time.Time, error) {
	s = strings.Replace(s, "T", " ", 1)
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}

// parseDecimal converts a decimal string to float64, accepting both comma
// and dot separators. "102,5" -> 102.5, "+20" (bodyweight plus) -> 20.
func parseDecimal(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	s = strings.ReplaceAll(s, ",", ".")
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// parseOptionalDecimal returns nil for an empty field.
func parseOptionalDecimal(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f := parseDecimal(s)
	return &f
}
