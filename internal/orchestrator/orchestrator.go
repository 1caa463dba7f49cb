// Package orchestrator wires change-set collection, analysis, server issue
// download and issue tracking into jobs run by a jobs.Runner.
package orchestrator

import (
	"context"

	"linttrack/internal/analysis"
	"linttrack/internal/changeset"
	"linttrack/internal/jobs"
	"linttrack/internal/logging"
	"linttrack/internal/markers"
	"linttrack/internal/server"
	"linttrack/internal/tracking"
	"linttrack/internal/workspace"
)

// Projects resolves projects by ID or name.
type Projects interface {
	Find(idOrName string) (workspace.Project, bool)
}

// IssueSource provides server issues, fresh or cached.
type IssueSource interface {
	// DownloadIssues may fail; download failures carry the DOWNLOAD_FAILED code.
	DownloadIssues(ctx context.Context, moduleKey, fileKey string) ([]server.ServerIssue, error)
	// CachedIssues never fails.
	CachedIssues(ctx context.Context, moduleKey, relativePath string) []server.ServerIssue
}

// Deps are the collaborators shared by the orchestration jobs.
type Deps struct {
	WorkspaceRoot string
	Runner        *jobs.Runner
	Projects      Projects
	Collector     *changeset.Collector
	Engine        analysis.Engine
	Validator     *analysis.FileValidator
	Issues        IssueSource
	Trackers      *tracking.Registry
	Sink          markers.Sink
	Console       *markers.Console
	Logger        *logging.Logger
}

// Service exposes the orchestration operations.
type Service struct {
	Scheduler *ChangeSetScheduler
	Analyzer  *ProjectAnalyzer
	Updater   *ServerIssueUpdater
}

// New builds the orchestration jobs and registers their handlers on deps.Runner.
func New(deps Deps) *Service {
	s := &Service{
		Scheduler: NewChangeSetScheduler(deps.Runner, deps.Projects, deps.Collector, deps.Sink, deps.Logger),
		Analyzer:  NewProjectAnalyzer(deps.WorkspaceRoot, deps.Projects, deps.Engine, deps.Validator, deps.Trackers, deps.Sink, deps.Logger),
		Updater:   NewServerIssueUpdater(deps.Runner, deps.Projects, deps.Issues, deps.Trackers, deps.Console, deps.Logger),
	}
	deps.Runner.RegisterHandler(jobs.JobTypeChangeSetAnalysis, s.Scheduler.Handle)
	deps.Runner.RegisterHandler(jobs.JobTypeAnalyzeProject, s.Analyzer.Handle)
	deps.Runner.RegisterHandler(jobs.JobTypeServerIssueUpdate, s.Updater.Handle)
	return s
}
