// Package library loads workout templates from a vault directory and keeps
// them fresh while the files are edited.
package library

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/models"
)

// reloadDebounce coalesces the burst of events editors emit per save.
const reloadDebounce = 200 * time.Millisecond

// Library is the in-memory template collection, keyed by template name.
type Library struct {
	dir string
	log *slog.Logger

	mu        sync.RWMutex
	templates map[string]models.WorkoutTemplate

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	onReload func()
}

// Open creates the template directory if needed and loads it.
func Open(dir string, log *slog.Logger) (*Library, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating template dir %s: %w", dir, err)
	}

	l := &Library{
		dir:       dir,
		log:       log.With("component", "library"),
		templates: make(map[string]models.WorkoutTemplate),
		stopCh:    make(chan struct{}),
	}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// SetReloadCallback registers a function invoked after every reload the
// watcher triggers.
func (l *Library) SetReloadCallback(cb func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onReload = cb
}

// Reload rescans the directory. Files that fail to parse are skipped with a
// warning; one broken template must not take the rest down.
func (l *Library) Reload() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("reading template dir %s: %w", l.dir, err)
	}

	templates := make(map[string]models.WorkoutTemplate)
	for _, entry := range entries {
		if entry.IsDir() || !isTemplateFile(entry.Name()) {
			continue
		}
		path := filepath.Join(l.dir, entry.Name())
		tpl, err := parseTemplateFile(path)
		if err != nil {
			l.log.Warn("skipping template", "file", entry.Name(), "error", err)
			continue
		}
		if _, dup := templates[tpl.Name]; dup {
			l.log.Warn("duplicate template name", "file", entry.Name(), "name", tpl.Name)
			continue
		}
		templates[tpl.Name] = tpl
	}

	l.mu.Lock()
	l.templates = templates
	l.mu.Unlock()

	l.log.Info("templates loaded", "count", len(templates), "dir", l.dir)
	return nil
}

// Get returns a template by name.
func (l *Library) Get(name string) (models.WorkoutTemplate, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tpl, ok := l.templates[name]
	return tpl, ok
}

// List returns all templates sorted by name.
func (l *Library) List() []models.WorkoutTemplate {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]models.WorkoutTemplate, 0, len(l.templates))
	for _, tpl := range l.templates {
		result = append(result, tpl)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Watch starts following the directory for edits. Each settled burst of
// events triggers a reload and then the reload callback.
func (l *Library) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", l.dir, err)
	}
	l.watcher = watcher
	go l.watchLoop()
	return nil
}

// Close stops the watcher, if running.
func (l *Library) Close() error {
	close(l.stopCh)
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

func (l *Library) watchLoop() {
	debounce := time.NewTimer(0)
	<-debounce.C
	dirty := false

	for {
		select {
		case <-l.stopCh:
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if !isTemplateFile(filepath.Base(event.Name)) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			dirty = true
			debounce.Reset(reloadDebounce)

		case <-debounce.C:
			if !dirty {
				continue
			}
			dirty = false
			if err := l.Reload(); err != nil {
				l.log.Error("template reload failed", "error", err)
				continue
			}
			l.mu.RLock()
			cb := l.onReload
			l.mu.RUnlock()
			if cb != nil {
				cb()
			}

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.log.Warn("watcher error", "error", err)
		}
	}
}

func isTemplateFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// parseTemplateFile reads one template. A file without an explicit name is
// named after itself.
func parseTemplateFile(path string) (models.WorkoutTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.WorkoutTemplate{}, err
	}

	var tpl models.WorkoutTemplate
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return models.WorkoutTemplate{}, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if tpl.Name == "" {
		base := filepath.Base(path)
		tpl.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if len(tpl.Exercises) == 0 {
		return models.WorkoutTemplate{}, fmt.Errorf("template %s has no exercises", tpl.Name)
	}
	for i, ex := range tpl.Exercises {
		if ex.ExerciseName == "" {
			return models.WorkoutTemplate{}, fmt.Errorf("template %s: exercise %d has no name", tpl.Name, i+1)
		}
	}
	return tpl, nil
}
