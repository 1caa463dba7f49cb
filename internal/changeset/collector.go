// Package changeset discovers the files of a project whose version-control
// state differs from their baseline.
package changeset

import (
	"context"
	"time"

	"linttrack/internal/errors"
	"linttrack/internal/logging"
	"linttrack/internal/vcs"
	"linttrack/internal/workspace"
)

// Collector walks a project's synchronization tree.
type Collector struct {
	providers vcs.Providers
	registry  *workspace.Registry
	logger    *logging.Logger
}

// NewCollector creates a collector. registry may be nil, in which case
// collected files carry no content type.
func NewCollector(providers vcs.Providers, registry *workspace.Registry, logger *logging.Logger) *Collector {
	return &Collector{
		providers: providers,
		registry:  registry,
		logger:    logger,
	}
}

// Collect returns the files of project that are not in sync. A project
// without a registered provider yields an empty result. Any synchronization
// error aborts the walk and is returned as a VCS_FAILURE; no partial set is
// returned in that case.
func (c *Collector) Collect(ctx context.Context, project workspace.Project) ([]workspace.File, error) {
	provider, ok := c.providers.ProviderFor(project)
	if !ok || provider == nil {
		return []workspace.File{}, nil
	}

	start := time.Now()
	roots := provider.Roots()
	if err := provider.Refresh(ctx, roots, vcs.DepthInfinite); err != nil {
		return nil, vcsFailure(project, "failed to refresh synchronization state", err)
	}

	// Depth-first, explicit stack instead of recursion.
	stack := make([]vcs.Resource, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}

	files := []workspace.File{}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, vcsFailure(project, "change-set collection interrupted", err)
		}

		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if r.IsFile {
			kind, err := provider.SyncState(r)
			if err != nil {
				return nil, vcsFailure(project, "failed to read synchronization state", err)
			}
			if !kind.IsInSync() {
				files = append(files, c.classify(project, r.Path))
			}
			continue
		}

		members, err := provider.Members(r)
		if err != nil {
			return nil, vcsFailure(project, "failed to list synchronization members", err)
		}
		for i := len(members) - 1; i >= 0; i-- {
			stack = append(stack, members[i])
		}
	}

	c.logger.Debug("Collected change set", map[string]interface{}{
		"project":    project.ID,
		"files":      len(files),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return files, nil
}

func (c *Collector) classify(project workspace.Project, rel string) workspace.File {
	if c.registry == nil {
		return workspace.File{ProjectID: project.ID, RelativePath: rel}
	}
	return c.registry.Classify(project.ID, rel)
}

func vcsFailure(project workspace.Project, message string, cause error) error {
	return errors.New(errors.VCSFailure, message, cause).WithDetails(map[string]interface{}{
		"project": project.ID,
	})
}
