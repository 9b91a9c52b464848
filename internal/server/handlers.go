package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/session"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/timer"
)

// sessionStateResponse is the full engine snapshot: the session document
// plus both timer states and any rest period awaiting attribution.
type sessionStateResponse struct {
	Session    *models.Session    `json:"session"`
	InProgress bool               `json:"inProgress"`
	Rest       timer.RestSnapshot `json:"rest"`
	SetTimer   timer.SetSnapshot  `json:"setTimer"`
	RestPeriod *timer.RestPeriod  `json:"restPeriod,omitempty"`
}

type startSessionRequest struct {
	Template string `json:"template"`
}

type addExerciseRequest struct {
	Name        string `json:"name"`
	Sets        int    `json:"sets"`
	RepsMin     int    `json:"repsMin"`
	RepsMax     int    `json:"repsMax"`
	RestSeconds int    `json:"restSeconds"`
}

type updateExercisesRequest struct {
	Template  string                    `json:"template"`
	Exercises []models.TemplateExercise `json:"exercises"`
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type setRequest struct {
	Weight float64  `json:"weight"`
	Reps   int      `json:"reps"`
	RPE    *float64 `json:"rpe,omitempty"`
}

type timerRequest struct {
	ExerciseIndex int `json:"exerciseIndex"`
	Seconds       int `json:"seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionStateResponse{
		Session:    s.engine.ActiveSession(),
		InProgress: s.engine.IsInProgress(),
		Rest:       s.engine.RestTimerSnapshot(),
		SetTimer:   s.engine.SetTimerSnapshot(),
		RestPeriod: s.engine.RestPeriodData(),
	})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		sess *models.Session
		err  error
	)
	if req.Template == "" {
		sess, err = s.engine.StartEmptyWorkout()
	} else {
		tpl, ok := s.library.Get(req.Template)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("template %q not found", req.Template)})
			return
		}
		sess, err = s.engine.StartWorkout(tpl)
	}
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.FinishSession(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DiscardSession(r.Context()); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	var req addExerciseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	target := models.ExerciseTarget{
		Sets:        req.Sets,
		RepsMin:     req.RepsMin,
		RepsMax:     req.RepsMax,
		RestSeconds: req.RestSeconds,
	}
	if err := s.engine.AddExercise(req.Name, target); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.ActiveSession())
}

func (s *Server) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	index, ok := urlIndex(w, r, "index")
	if !ok {
		return
	}
	if err := s.engine.RemoveExercise(index); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.ActiveSession())
}

func (s *Server) handleReorderExercises(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.ReorderExercises(req.From, req.To); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.ActiveSession())
}

// handleUpdateExercises replaces the session's exercise list, preserving
// logged sets by exercise name. The list comes from a named template or
// inline from the request body.
func (s *Server) handleUpdateExercises(w http.ResponseWriter, r *http.Request) {
	var req updateExercisesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	list := req.Exercises
	if req.Template != "" {
		tpl, ok := s.library.Get(req.Template)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("template %q not found", req.Template)})
			return
		}
		list = tpl.Exercises
	}
	if err := s.engine.UpdateExercises(list); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.ActiveSession())
}

func (s *Server) handleLogSet(w http.ResponseWriter, r *http.Request) {
	index, ok := urlIndex(w, r, "index")
	if !ok {
		return
	}
	var req setRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.LogSet(index, req.Weight, req.Reps, req.RPE); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.ActiveSession())
}

func (s *Server) handleEditSet(w http.ResponseWriter, r *http.Request) {
	index, ok := urlIndex(w, r, "index")
	if !ok {
		return
	}
	setIndex, ok := urlIndex(w, r, "set")
	if !ok {
		return
	}
	var req setRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.EditSet(index, setIndex, req.Weight, req.Reps, req.RPE); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.ActiveSession())
}

func (s *Server) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	index, ok := urlIndex(w, r, "index")
	if !ok {
		return
	}
	setIndex, ok := urlIndex(w, r, "set")
	if !ok {
		return
	}
	if err := s.engine.DeleteSet(index, setIndex); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.ActiveSession())
}

func (s *Server) handleRestStart(w http.ResponseWriter, r *http.Request) {
	var req timerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.StartRestTimer(req.ExerciseIndex, req.Seconds); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.RestTimerSnapshot())
}

func (s *Server) handleRestAdd(w http.ResponseWriter, r *http.Request) {
	var req timerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.ExtendRestTimer(req.Seconds); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.RestTimerSnapshot())
}

func (s *Server) handleRestCancel(w http.ResponseWriter, r *http.Request) {
	s.engine.CancelRestTimer()
	writeJSON(w, http.StatusOK, s.engine.RestTimerSnapshot())
}

func (s *Server) handleSetCountdown(w http.ResponseWriter, r *http.Request) {
	var req timerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.StartSetCountdown(req.ExerciseIndex, req.Seconds); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.SetTimerSnapshot())
}

func (s *Server) handleSetTimerStart(w http.ResponseWriter, r *http.Request) {
	var req timerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.MarkSetStart(req.ExerciseIndex); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.SetTimerSnapshot())
}

func (s *Server) handleSetTimerCancel(w http.ResponseWriter, r *http.Request) {
	s.engine.CancelSetCountdown()
	s.engine.ClearSetTimer()
	writeJSON(w, http.StatusOK, s.engine.SetTimerSnapshot())
}

// writeEngineError maps engine error kinds onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case session.IsValidation(err):
		status = http.StatusBadRequest
	case session.IsInvalidState(err):
		status = http.StatusConflict
	case session.IsPersistence(err):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("command failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeBody decodes a JSON request body into v. An empty body is allowed
// and leaves v at its zero value. Returns false after writing an error
// response.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
	return false
}

// urlIndex parses a numeric URL parameter. Returns false after writing an
// error response.
func urlIndex(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, key))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + key + " parameter"})
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
