package tracking

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"linttrack/internal/logging"
)

// SnapshotFile is the default location of the persisted tracker state below the workspace root
const SnapshotFile = ".linttrack/tracked-issues.json"

// Registry owns one IssueTracker per module; trackers are created lazily.
type Registry struct {
	matcher Matcher
	logger  *logging.Logger

	mu       sync.Mutex
	trackers map[string]*IssueTracker
}

// NewRegistry creates an empty registry using matcher for every module.
func NewRegistry(matcher Matcher, logger *logging.Logger) *Registry {
	return &Registry{
		matcher:  matcher,
		logger:   logger,
		trackers: make(map[string]*IssueTracker),
	}
}

// GetOrCreate returns the tracker of a module, creating it on first access.
func (r *Registry) GetOrCreate(moduleKey string) *IssueTracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[moduleKey]
	if !ok {
		t = NewIssueTracker(moduleKey, r.matcher, r.logger)
		r.trackers[moduleKey] = t
	}
	return t
}

// Get returns the tracker of a module if one exists.
func (r *Registry) Get(moduleKey string) (*IssueTracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[moduleKey]
	return t, ok
}

// Modules returns the known module keys in sorted order.
func (r *Registry) Modules() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.trackers))
	for k := range r.trackers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type snapshot struct {
	Version int                               `json:"version"`
	Modules map[string]map[string][]Trackable `json:"modules"`
}

// Save writes every tracker to a JSON file.
func (r *Registry) Save(path string) error {
	snap := snapshot{Version: 1, Modules: make(map[string]map[string][]Trackable)}
	for _, m := range r.Modules() {
		t, _ := r.Get(m)
		snap.Modules[m] = t.snapshot()
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tracked issues: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write tracked issues: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load restores trackers from a file written by Save. A missing file is not an error.
func (r *Registry) Load(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read tracked issues: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode tracked issues: %w", err)
	}
	for m, files := range snap.Modules {
		r.GetOrCreate(m).restore(files)
	}
	r.logger.Debug("Loaded tracked issues", map[string]interface{}{
		"path":    path,
		"modules": len(snap.Modules),
	})
	return nil
}
