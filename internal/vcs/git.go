package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"linttrack/internal/errors"
	"linttrack/internal/logging"
	"linttrack/internal/workspace"
)

// DefaultGitTimeout bounds a single git invocation
const DefaultGitTimeout = 30 * time.Second

// GitProvider answers synchronization queries from `git status`.
type GitProvider struct {
	root    string
	timeout time.Duration
	logger  *logging.Logger

	mu        sync.RWMutex
	states    map[string]SyncKind // slash-separated, relative to root
	refreshed bool
}

// NewGitProvider creates a provider for the project rooted at root.
func NewGitProvider(root string, timeout time.Duration, logger *logging.Logger) *GitProvider {
	if timeout <= 0 {
		timeout = DefaultGitTimeout
	}
	return &GitProvider{
		root:    root,
		timeout: timeout,
		logger:  logger,
		states:  make(map[string]SyncKind),
	}
}

// RegisterGitProjects registers a GitProvider for every project bound with vcs = "git".
func RegisterGitProjects(reg *Registry, workspaceRoot string, projects []workspace.Project, timeout time.Duration, logger *logging.Logger) {
	for _, p := range projects {
		if p.VCS != "git" {
			continue
		}
		reg.Register(p.ID, NewGitProvider(p.Root(workspaceRoot), timeout, logger))
	}
}

func (g *GitProvider) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.root

	g.logger.Debug("Executing git command", map[string]interface{}{
		"args":    args,
		"root":    g.root,
		"timeout": g.timeout.String(),
	})

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.New(errors.VCSFailure, "git command timed out", err)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, errors.New(errors.VCSFailure, "git command failed", err).WithDetails(map[string]interface{}{
				"args":   args,
				"stderr": strings.TrimSpace(string(exitErr.Stderr)),
			})
		}
		return nil, errors.New(errors.VCSFailure, "failed to execute git command", err)
	}
	return output, nil
}

// Refresh re-reads the working tree status below the given roots.
func (g *GitProvider) Refresh(ctx context.Context, roots []Resource, depth Depth) error {
	prefixOut, err := g.run(ctx, "rev-parse", "--show-prefix")
	if err != nil {
		return err
	}
	prefix := strings.TrimSpace(string(prefixOut))

	args := []string{"status", "--porcelain=v1", "-z", "--untracked-files=all", "--"}
	if len(roots) == 0 {
		args = append(args, ".")
	}
	for _, r := range roots {
		if r.Path == "" {
			args = append(args, ".")
			continue
		}
		args = append(args, filepath.ToSlash(r.Path))
	}

	out, err := g.run(ctx, args...)
	if err != nil {
		return err
	}

	states := parsePorcelainZ(out, prefix)

	g.mu.Lock()
	g.states = states
	g.refreshed = true
	g.mu.Unlock()

	g.logger.Debug("Git status refreshed", map[string]interface{}{
		"root":    g.root,
		"changed": len(states),
		"depth":   int(depth),
	})
	return nil
}

// Roots returns the project root.
func (g *GitProvider) Roots() []Resource {
	return []Resource{{Path: ""}}
}

// Members lists directory children from disk, skipping the .git directory.
// Files recorded by the last Refresh that no longer exist on disk, deleted
// files and the directories that held them, are listed as well.
func (g *GitProvider) Members(r Resource) ([]Resource, error) {
	if r.IsFile {
		return nil, nil
	}
	entries, err := os.ReadDir(filepath.Join(g.root, r.Path))
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.New(errors.VCSFailure, "failed to list members", err).WithDetails(map[string]interface{}{
			"path": r.Path,
		})
	}

	members := make([]Resource, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Name() == ".git" {
			continue
		}
		seen[e.Name()] = true
		members = append(members, Resource{
			Path:   filepath.Join(r.Path, e.Name()),
			IsFile: !e.IsDir(),
		})
	}
	return append(members, g.missingMembers(r.Path, seen)...), nil
}

// missingMembers returns the children of dir that only exist in the recorded
// status, i.e. were removed from disk.
func (g *GitProvider) missingMembers(dir string, seen map[string]bool) []Resource {
	prefix := filepath.ToSlash(dir)
	if prefix != "" {
		prefix += "/"
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var missing []Resource
	for path := range g.states {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := strings.TrimPrefix(path, prefix)
		name, _, nested := strings.Cut(rest, "/")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		missing = append(missing, Resource{
			Path:   filepath.Join(dir, filepath.FromSlash(name)),
			IsFile: !nested,
		})
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].Path < missing[j].Path })
	return missing
}

// SyncState returns the state recorded by the last Refresh.
func (g *GitProvider) SyncState(r Resource) (SyncKind, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.refreshed {
		return InSync, errors.New(errors.VCSFailure, "sync state requested before refresh", nil)
	}
	if !r.IsFile {
		return InSync, nil
	}
	return g.states[filepath.ToSlash(r.Path)], nil
}

// parsePorcelainZ parses `git status --porcelain=v1 -z` output.
// Entries are "XY PATH\0", renames and copies are followed by "ORIG_PATH\0".
// Paths are repository-relative; entries outside prefix are dropped and the
// prefix is stripped from the rest.
func parsePorcelainZ(output []byte, prefix string) map[string]SyncKind {
	states := make(map[string]SyncKind)
	parts := bytes.Split(output, []byte{0})

	for i := 0; i < len(parts); i++ {
		entry := string(parts[i])
		if len(entry) < 4 {
			continue
		}
		x, y := entry[0], entry[1]
		path := entry[3:]
		if x == 'R' || x == 'C' {
			i++ // skip ORIG_PATH
		}

		kind, ok := porcelainKind(x, y)
		if !ok {
			continue
		}
		if prefix != "" {
			if !strings.HasPrefix(path, prefix) {
				continue
			}
			path = strings.TrimPrefix(path, prefix)
		}
		states[path] = kind
	}
	return states
}

func porcelainKind(x, y byte) (SyncKind, bool) {
	code := string([]byte{x, y})
	switch code {
	case "!!":
		return InSync, false
	case "??":
		return Addition, true
	case "DD", "AU", "UD", "UA", "DU", "AA", "UU":
		return Conflicting, true
	}
	switch {
	case x == 'A' || y == 'A':
		return Addition, true
	case x == 'D' || y == 'D':
		return Deletion, true
	case x == 'M' || y == 'M', x == 'R', x == 'C', x == 'T' || y == 'T':
		return Change, true
	}
	return InSync, false
}

// String implements fmt.Stringer for debugging.
func (g *GitProvider) String() string {
	return fmt.Sprintf("git(%s)", g.root)
}
