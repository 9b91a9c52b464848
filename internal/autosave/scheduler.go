// Package autosave coalesces bursts of persistence requests into a single
// trailing-edge save, so rapid set logging produces one write instead of one
// per keystroke.
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/clock"
)

// SaveFunc persists the current session state.
type SaveFunc func(ctx context.Context) error

// Scheduler debounces saves. Schedule re-arms the quiet window on every
// call and runs the most recent SaveFunc when it elapses; errors from that
// background save are logged, never returned. Flush runs a save right now
// and does return its error.
type Scheduler struct {
	mu      sync.Mutex
	clk     clock.Clock
	delay   time.Duration
	log     *slog.Logger
	timer   clock.Timer
	pending SaveFunc
	gen     uint64
}

// NewScheduler creates a Scheduler with the given quiet window.
func NewScheduler(clk clock.Clock, delay time.Duration, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{clk: clk, delay: delay, log: log}
}

// Schedule arms (or re-arms) the debounce timer with save as the function to
// run when the window elapses.
func (s *Scheduler) Schedule(save SaveFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.pending = save
	s.timer = s.clk.AfterFunc(s.delay, func() { s.fire(gen) })
}

// fire runs the pending save if this timer generation is still current.
// A stale generation means Schedule, Cancel, or Flush intervened after this
// callback was armed.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.pending == nil {
		s.mu.Unlock()
		return
	}
	save := s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	if err := save(context.Background()); err != nil {
		s.log.Error("autosave failed", "error", err)
	}
}

// Flush cancels any pending debounced save and runs save immediately,
// returning its error to the caller.
func (s *Scheduler) Flush(ctx context.Context, save SaveFunc) error {
	s.Cancel()
	return save(ctx)
}

// Cancel drops any pending save without running it.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
	s.gen++
}

// Pending reports whether a debounced save is currently armed.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// SetDelay changes the quiet window for saves scheduled from now on. An
// already armed save keeps its original window.
func (s *Scheduler) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}
