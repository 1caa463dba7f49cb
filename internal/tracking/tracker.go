package tracking

import (
	"sort"
	"sync"
	"time"

	"linttrack/internal/logging"
	"linttrack/internal/server"
)

// IssueTracker holds the tracked issues of one module, keyed by file key.
// Reconciliations of one file are serialized; different files proceed
// independently.
type IssueTracker struct {
	moduleKey string
	matcher   Matcher
	logger    *logging.Logger

	mu    sync.RWMutex
	files map[string][]Trackable
	locks map[string]*sync.Mutex
}

// NewIssueTracker creates an empty tracker for a module.
func NewIssueTracker(moduleKey string, matcher Matcher, logger *logging.Logger) *IssueTracker {
	return &IssueTracker{
		moduleKey: moduleKey,
		matcher:   matcher,
		logger:    logger,
		files:     make(map[string][]Trackable),
		locks:     make(map[string]*sync.Mutex),
	}
}

// ModuleKey returns the module the tracker belongs to.
func (t *IssueTracker) ModuleKey() string {
	return t.moduleKey
}

func (t *IssueTracker) fileLock(key string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[key]
	if !ok {
		l = &sync.Mutex{}
		t.locks[key] = l
	}
	return l
}

func (t *IssueTracker) update(relativePath string, kind string, apply func(existing []Trackable) []Trackable) []Trackable {
	key := server.FileKey(relativePath)
	l := t.fileLock(key)
	l.Lock()
	defer l.Unlock()

	start := time.Now()

	t.mu.RLock()
	existing := t.files[key]
	t.mu.RUnlock()

	result := apply(existing)

	t.mu.Lock()
	t.files[key] = result
	t.mu.Unlock()

	t.logger.Debug("Reconciled issues", map[string]interface{}{
		"module":     t.moduleKey,
		"file":       key,
		"kind":       kind,
		"before":     len(existing),
		"after":      len(result),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return clone(result)
}

// Reconcile merges a local analysis result into the tracked issues of a file
// and returns a copy of the new collection.
func (t *IssueTracker) Reconcile(relativePath string, incoming []Trackable) []Trackable {
	return t.update(relativePath, "local", func(existing []Trackable) []Trackable {
		return t.matcher.Match(existing, incoming)
	})
}

// ReconcileBase applies server issues as the new base truth of a file and
// returns a copy of the new collection.
func (t *IssueTracker) ReconcileBase(relativePath string, serverIssues []Trackable) []Trackable {
	return t.update(relativePath, "base", func(existing []Trackable) []Trackable {
		return t.matcher.MatchBase(existing, serverIssues)
	})
}

// Issues returns a copy of the tracked issues of a file.
func (t *IssueTracker) Issues(relativePath string) []Trackable {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return clone(t.files[server.FileKey(relativePath)])
}

// Files returns the tracked file keys in sorted order.
func (t *IssueTracker) Files() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, 0, len(t.files))
	for k := range t.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Remove forgets a file, e.g. after it was deleted from the project.
func (t *IssueTracker) Remove(relativePath string) {
	key := server.FileKey(relativePath)
	l := t.fileLock(key)
	l.Lock()
	defer l.Unlock()

	t.mu.Lock()
	delete(t.files, key)
	t.mu.Unlock()
}

func (t *IssueTracker) snapshot() map[string][]Trackable {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string][]Trackable, len(t.files))
	for k, v := range t.files {
		out[k] = clone(v)
	}
	return out
}

func (t *IssueTracker) restore(files map[string][]Trackable) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range files {
		t.files[k] = clone(v)
	}
}

func clone(in []Trackable) []Trackable {
	out := make([]Trackable, len(in))
	copy(out, in)
	return out
}
