// Package vcs defines the version-control synchronization collaborator used
// to discover locally changed files, and a git-backed implementation.
package vcs

import (
	"context"
	"sync"

	"linttrack/internal/workspace"
)

// SyncKind is the synchronization state of a resource relative to its baseline.
type SyncKind int

const (
	InSync SyncKind = iota
	Addition
	Deletion
	Change
	Conflicting
)

// IsInSync reports whether the resource matches its baseline.
func (k SyncKind) IsInSync() bool {
	return k == InSync
}

func (k SyncKind) String() string {
	switch k {
	case InSync:
		return "in-sync"
	case Addition:
		return "addition"
	case Deletion:
		return "deletion"
	case Change:
		return "change"
	case Conflicting:
		return "conflicting"
	default:
		return "unknown"
	}
}

// Depth bounds a refresh.
type Depth int

const (
	DepthZero Depth = iota
	DepthOne
	DepthInfinite
)

// Resource is a node of a project's synchronization tree. Path is relative to
// the project root and uses OS separators; the project root itself has Path "".
type Resource struct {
	Path   string
	IsFile bool
}

// SyncProvider exposes the synchronization tree of one project.
type SyncProvider interface {
	// Refresh brings synchronization state up to date. May block on disk or network I/O.
	Refresh(ctx context.Context, roots []Resource, depth Depth) error
	// Roots returns the top-level resources of the tree.
	Roots() []Resource
	// Members returns the direct children of a resource.
	Members(r Resource) ([]Resource, error)
	// SyncState returns the state of a resource as of the last refresh.
	SyncState(r Resource) (SyncKind, error)
}

// Providers resolves the synchronization provider registered for a project.
type Providers interface {
	ProviderFor(project workspace.Project) (SyncProvider, bool)
}

// Registry maps project IDs to providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]SyncProvider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]SyncProvider)}
}

// Register associates a provider with a project ID, replacing any previous one.
func (r *Registry) Register(projectID string, provider SyncProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[projectID] = provider
}

// ProviderFor implements Providers.
func (r *Registry) ProviderFor(project workspace.Project) (SyncProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[project.ID]
	return p, ok
}
