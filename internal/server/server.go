// Package server exposes the session engine and the archive over HTTP:
// a JSON command-and-query API plus a WebSocket event stream.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/library"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/session"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/storage"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	engine  *session.Manager
	archive storage.Archive
	library *library.Library
	log     *slog.Logger
	router  chi.Router
}

// New creates a new Server with all routes configured.
func New(engine *session.Manager, archive storage.Archive, lib *library.Library, log *slog.Logger) *Server {
	s := &Server{
		engine:  engine,
		archive: archive,
		library: lib,
		log:     log,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/api/v1/health", s.handleHealth)

	// Session commands (no auth — tsnet handles access)
	s.router.Route("/api/v1/session", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Post("/start", s.handleStartSession)
		r.Post("/finish", s.handleFinishSession)
		r.Post("/discard", s.handleDiscardSession)

		r.Post("/exercises", s.handleAddExercise)
		r.Post("/exercises/reorder", s.handleReorderExercises)
		r.Delete("/exercises/{index}", s.handleRemoveExercise)
		r.Put("/exercises", s.handleUpdateExercises)
		r.Post("/exercises/{index}/sets", s.handleLogSet)
		r.Patch("/exercises/{index}/sets/{set}", s.handleEditSet)
		r.Delete("/exercises/{index}/sets/{set}", s.handleDeleteSet)

		r.Post("/rest/start", s.handleRestStart)
		r.Post("/rest/add", s.handleRestAdd)
		r.Post("/rest/cancel", s.handleRestCancel)
		r.Post("/settimer/countdown", s.handleSetCountdown)
		r.Post("/settimer/start", s.handleSetTimerStart)
		r.Post("/settimer/cancel", s.handleSetTimerCancel)
	})

	// Library and archive queries
	s.router.Get("/api/v1/templates", s.handleListTemplates)
	s.router.Get("/api/v1/templates/{name}", s.handleGetTemplate)
	s.router.Get("/api/v1/history", s.handleSessionHistory)
	s.router.Get("/api/v1/history/exercises/{name}", s.handleExerciseHistory)
	s.router.Get("/api/v1/records", s.handleRecords)
	s.router.Get("/api/v1/volume", s.handleVolume)

	s.router.Get("/api/v1/settings", s.handleGetSettings)
	s.router.Put("/api/v1/settings", s.handleUpdateSettings)

	s.router.Get("/api/v1/events", s.handleEvents)
}
