// Package watcher polls projects for change-set modifications and reports
// the changed projects in debounced batches.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	"linttrack/internal/logging"
	"linttrack/internal/workspace"
)

// Event records that a project's change set differs from the last poll.
type Event struct {
	ProjectID string
	Timestamp time.Time
}

// Fingerprint summarizes the change set of a project. Two equal fingerprints
// mean nothing worth re-analyzing happened in between.
type Fingerprint func(ctx context.Context, project workspace.Project) (string, error)

// ChangeHandler receives the projects changed during one quiet period, in
// watch order. Calls never overlap.
type ChangeHandler func(projects []workspace.Project)

// Config contains watcher configuration
type Config struct {
	DebounceMs   int
	PollInterval time.Duration
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		DebounceMs:   1500,
		PollInterval: 2 * time.Second,
	}
}

// Watcher polls the fingerprint of every watched project.
type Watcher struct {
	config      Config
	logger      *logging.Logger
	fingerprint Fingerprint
	handler     ChangeHandler
	batch       *BatchDebouncer

	mu       sync.RWMutex
	projects []workspace.Project
	last     map[string]string
	polls    int64

	handlerMu sync.Mutex
}

// New creates a watcher. Nothing is polled until Run.
func New(config Config, logger *logging.Logger, fingerprint Fingerprint, handler ChangeHandler) *Watcher {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	w := &Watcher{
		config:      config,
		logger:      logger,
		fingerprint: fingerprint,
		handler:     handler,
		last:        make(map[string]string),
	}
	w.batch = NewBatchDebouncer(time.Duration(config.DebounceMs)*time.Millisecond, w.emit)
	return w
}

// Watch adds a project. The first poll only records its baseline.
func (w *Watcher) Watch(project workspace.Project) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range w.projects {
		if p.ID == project.ID {
			return
		}
	}
	w.projects = append(w.projects, project)
}

// Unwatch removes a project.
func (w *Watcher) Unwatch(projectID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, p := range w.projects {
		if p.ID == projectID {
			w.projects = append(w.projects[:i], w.projects[i+1:]...)
			delete(w.last, projectID)
			return
		}
	}
}

// Run polls until ctx ends. Pending batches are dropped; a handler call
// already in progress is waited for before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("Watching projects", map[string]interface{}{
		"projects":   len(w.Projects()),
		"debounceMs": w.config.DebounceMs,
		"interval":   w.config.PollInterval.String(),
	})

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.Poll(ctx)
	for {
		select {
		case <-ticker.C:
			w.Poll(ctx)
		case <-ctx.Done():
			w.batch.Cancel()
			w.batch.Wait()
			w.logger.Info("Stopped watching projects", nil)
			return nil
		}
	}
}

// Poll checks every watched project once.
func (w *Watcher) Poll(ctx context.Context) {
	for _, p := range w.Projects() {
		if ctx.Err() != nil {
			return
		}
		fp, err := w.fingerprint(ctx, p)
		if err != nil {
			w.logger.Warn("Failed to fingerprint project", map[string]interface{}{
				"project": p.ID,
				"error":   err.Error(),
			})
			continue
		}

		w.mu.Lock()
		prev, seen := w.last[p.ID]
		w.last[p.ID] = fp
		w.polls++
		w.mu.Unlock()

		if seen && prev != fp {
			w.logger.Debug("Change set modified", map[string]interface{}{
				"project": p.ID,
			})
			w.batch.Add(Event{ProjectID: p.ID, Timestamp: time.Now()})
		}
	}
}

func (w *Watcher) emit(events []Event) {
	changed := make(map[string]bool, len(events))
	for _, e := range events {
		changed[e.ProjectID] = true
	}

	var projects []workspace.Project
	for _, p := range w.Projects() {
		if changed[p.ID] {
			projects = append(projects, p)
		}
	}
	if len(projects) == 0 || w.handler == nil {
		return
	}

	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.handler(projects)
}

// Projects returns the watched projects in watch order.
func (w *Watcher) Projects() []workspace.Project {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]workspace.Project(nil), w.projects...)
}

// Stats returns watcher statistics
func (w *Watcher) Stats() map[string]interface{} {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return map[string]interface{}{
		"watchedProjects": len(w.projects),
		"polls":           w.polls,
		"pendingEvents":   w.batch.EventCount(),
		"debounceMs":      w.config.DebounceMs,
	}
}

// Collector lists the changed files of a project.
type Collector interface {
	Collect(ctx context.Context, project workspace.Project) ([]workspace.File, error)
}

// ChangeSetFingerprint hashes the changed files of a project together with
// their size and modification time, so that both a new change and a further
// edit of an already changed file produce a new fingerprint.
func ChangeSetFingerprint(collector Collector, workspaceRoot string) Fingerprint {
	return func(ctx context.Context, project workspace.Project) (string, error) {
		files, err := collector.Collect(ctx, project)
		if err != nil {
			return "", err
		}

		paths := make([]string, 0, len(files))
		for _, f := range files {
			paths = append(paths, f.RelativePath)
		}
		sort.Strings(paths)

		root := project.Root(workspaceRoot)
		h := xxh3.New()
		for _, rel := range paths {
			_, _ = h.WriteString(rel)
			_, _ = h.WriteString("\x00")
			if info, err := os.Stat(filepath.Join(root, rel)); err == nil {
				_, _ = h.WriteString(strconv.FormatInt(info.ModTime().UnixNano(), 10))
				_, _ = h.WriteString(":")
				_, _ = h.WriteString(strconv.FormatInt(info.Size(), 10))
			} else {
				_, _ = h.WriteString("missing")
			}
			_, _ = h.WriteString("\n")
		}
		return strconv.FormatUint(h.Sum64(), 16), nil
	}
}
