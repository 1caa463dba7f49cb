package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/singleflight"

	"linttrack/internal/errors"
	"linttrack/internal/jobs"
	"linttrack/internal/logging"
	"linttrack/internal/markers"
	"linttrack/internal/server"
	"linttrack/internal/tracking"
	"linttrack/internal/workspace"
)

const (
	SourceServer = "server"
	SourceCache  = "cache"
	SourceNone   = "none"
)

// ServerIssueUpdater downloads the server issues of a file and applies them
// as the tracker's base truth. One download is attempted; on a download
// failure the cached issues are used instead. It never fails its job: any
// other error, panics included, is written to the console and swallowed.
type ServerIssueUpdater struct {
	runner   *jobs.Runner
	projects Projects
	issues   IssueSource
	trackers *tracking.Registry
	console  *markers.Console
	logger   *logging.Logger

	group singleflight.Group
}

// NewServerIssueUpdater creates an updater.
func NewServerIssueUpdater(runner *jobs.Runner, projects Projects, issues IssueSource, trackers *tracking.Registry, console *markers.Console, logger *logging.Logger) *ServerIssueUpdater {
	return &ServerIssueUpdater{
		runner:   runner,
		projects: projects,
		issues:   issues,
		trackers: trackers,
		console:  console,
		logger:   logger,
	}
}

// Handle is the server_issue_update job handler. It always succeeds.
func (u *ServerIssueUpdater) Handle(ctx context.Context, job *jobs.Job, progress func(int)) (interface{}, error) {
	scope, err := jobs.ParseServerIssueUpdateScope(job.Scope)
	if err != nil {
		u.console.Error("Invalid server issue update request", err)
		return jobs.ServerIssueUpdateResult{Source: SourceNone, Error: err.Error()}, nil
	}
	project, ok := u.projects.Find(scope.ProjectID)
	if !ok {
		err := errors.New(errors.NotFound, "project not found", nil).WithDetails(map[string]interface{}{
			"project": scope.ProjectID,
		})
		u.console.Error("Unable to update server issues", err)
		return jobs.ServerIssueUpdateResult{Source: SourceNone, Error: err.Error()}, nil
	}
	return u.Update(ctx, project, scope.RelativePath), nil
}

// Update fetches and reconciles the server issues of one file. Concurrent
// updates of the same server file share one download; each caller then
// reconciles into its own project's tracker.
func (u *ServerIssueUpdater) Update(ctx context.Context, project workspace.Project, relativePath string) (result jobs.ServerIssueUpdateResult) {
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic: %v", p)
			u.console.Error("Unable to update server issues", err)
			u.logger.Debug("Server issue update panic", map[string]interface{}{
				"stack": string(debug.Stack()),
			})
			result = jobs.ServerIssueUpdateResult{Source: SourceNone, Error: err.Error()}
		}
	}()

	moduleKey := project.RemoteModuleKey()
	fileKey := server.FileKey(relativePath)

	fetched, err := u.fetch(ctx, moduleKey, fileKey, relativePath)
	if err != nil {
		u.console.Error("Unable to update server issues", err)
		return jobs.ServerIssueUpdateResult{Source: SourceNone, Error: err.Error()}
	}

	tracker := u.trackers.GetOrCreate(project.LocalModuleKey())
	tracked := tracker.ReconcileBase(relativePath, tracking.FromServerIssues(fetched.issues))

	u.logger.Debug("Updated server issues", map[string]interface{}{
		"project": project.ID,
		"module":  moduleKey,
		"file":    fileKey,
		"source":  fetched.source,
		"issues":  len(fetched.issues),
	})
	return jobs.ServerIssueUpdateResult{
		Source:  fetched.source,
		Issues:  len(fetched.issues),
		Tracked: len(tracked),
	}
}

// fetchedIssues is the shared outcome of one download attempt. The issues
// slice is shared between callers and must not be modified.
type fetchedIssues struct {
	source string
	issues []server.ServerIssue
}

// fetch downloads the issues of a server file, falling back to the cache on
// a download failure. Other errors are returned.
func (u *ServerIssueUpdater) fetch(ctx context.Context, moduleKey, fileKey, relativePath string) (fetchedIssues, error) {
	v, err, _ := u.group.Do(moduleKey+"\x00"+fileKey, func() (interface{}, error) {
		issues, err := u.issues.DownloadIssues(ctx, moduleKey, fileKey)
		if err == nil {
			return fetchedIssues{source: SourceServer, issues: issues}, nil
		}
		if !errors.Is(err, errors.DownloadFailed) {
			return nil, err
		}
		u.console.Info(fmt.Sprintf("Unable to download server issues of %s, using cached issues: %v", fileKey, err))
		return fetchedIssues{source: SourceCache, issues: u.issues.CachedIssues(ctx, moduleKey, relativePath)}, nil
	})
	if err != nil {
		return fetchedIssues{}, err
	}
	return v.(fetchedIssues), nil
}

// UpdateFiles submits one server_issue_update job per file and waits for all of them.
func (u *ServerIssueUpdater) UpdateFiles(ctx context.Context, project workspace.Project, relativePaths []string) ([]*jobs.Job, error) {
	ids := make([]string, 0, len(relativePaths))
	for _, rel := range relativePaths {
		job, err := jobs.NewJob(jobs.JobTypeServerIssueUpdate, jobs.ServerIssueUpdateScope{
			ProjectID:    project.ID,
			RelativePath: rel,
		})
		if err != nil {
			return nil, err
		}
		if err := u.runner.Submit(ctx, job); err != nil {
			return nil, err
		}
		ids = append(ids, job.ID)
	}
	return u.runner.Wait(ctx, ids)
}
