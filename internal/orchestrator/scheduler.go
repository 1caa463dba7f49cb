package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"linttrack/internal/analysis"
	"linttrack/internal/changeset"
	"linttrack/internal/errors"
	"linttrack/internal/jobs"
	"linttrack/internal/logging"
	"linttrack/internal/markers"
	"linttrack/internal/workspace"
)

// ChangeSetScheduler analyzes the changed files of several projects, one
// analyze_project job per project, and waits for all of them.
type ChangeSetScheduler struct {
	runner    *jobs.Runner
	projects  Projects
	collector *changeset.Collector
	sink      markers.Sink
	logger    *logging.Logger
}

// NewChangeSetScheduler creates a scheduler.
func NewChangeSetScheduler(runner *jobs.Runner, projects Projects, collector *changeset.Collector, sink markers.Sink, logger *logging.Logger) *ChangeSetScheduler {
	return &ChangeSetScheduler{
		runner:    runner,
		projects:  projects,
		collector: collector,
		sink:      sink,
		logger:    logger,
	}
}

// AnalyzeChangedFiles runs a changeset_analysis job in the calling goroutine.
// It returns once every project job is terminal. Project failures are
// reported in the result, not as an error. If ctx ends while waiting, the
// job is recorded as cancelled, a CANCELLED error is returned and the
// project jobs keep running.
func (s *ChangeSetScheduler) AnalyzeChangedFiles(ctx context.Context, projects []workspace.Project) (*jobs.Job, *jobs.ChangeSetAnalysisResult, error) {
	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}

	job, err := jobs.NewJob(jobs.JobTypeChangeSetAnalysis, jobs.ChangeSetAnalysisScope{ProjectIDs: ids})
	if err != nil {
		return nil, nil, err
	}

	done, runErr := s.runner.Run(ctx, job)
	if runErr != nil {
		return done, nil, runErr
	}

	var result jobs.ChangeSetAnalysisResult
	if done.Result != "" {
		if err := json.Unmarshal([]byte(done.Result), &result); err != nil {
			return done, nil, fmt.Errorf("failed to decode changeset result: %w", err)
		}
	}
	return done, &result, nil
}

// Handle is the changeset_analysis job handler.
func (s *ChangeSetScheduler) Handle(ctx context.Context, job *jobs.Job, progress func(int)) (interface{}, error) {
	scope, err := jobs.ParseChangeSetAnalysisScope(job.Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid changeset scope: %w", err)
	}
	start := time.Now()

	projects := make([]workspace.Project, len(scope.ProjectIDs))
	found := make([]bool, len(scope.ProjectIDs))
	for i, id := range scope.ProjectIDs {
		projects[i], found[i] = s.projects.Find(id)
	}

	// Markers of every project are cleared before any project job is scheduled.
	for i, id := range scope.ProjectIDs {
		if found[i] {
			s.sink.ClearChangeSetMarkers(projects[i].ID)
		} else {
			s.sink.ClearChangeSetMarkers(id)
		}
	}

	outcomes := make([]jobs.ProjectOutcome, len(scope.ProjectIDs))
	var children []string
	childIndex := make(map[string]int)

	for i, id := range scope.ProjectIDs {
		outcomes[i] = jobs.ProjectOutcome{ProjectID: id}
		if !found[i] {
			outcomes[i].Status = jobs.JobFailed
			outcomes[i].Error = "project not found"
			s.sink.Log(fmt.Sprintf("Unable to analyze changed files of unknown project %s", id), nil)
			continue
		}
		p := projects[i]

		files, err := s.collector.Collect(ctx, p)
		if err != nil {
			outcomes[i].Status = jobs.JobFailed
			outcomes[i].Error = err.Error()
			s.sink.Log(fmt.Sprintf("Unable to collect changed files of project %s", p.ID), err)
			continue
		}
		outcomes[i].Files = len(files)

		child, err := jobs.NewChildJob(job, jobs.JobTypeAnalyzeProject, jobs.AnalyzeProjectScope{
			ProjectID: p.ID,
			Files:     files,
			Trigger:   analysis.TriggerChangeSet,
		})
		if err != nil {
			outcomes[i].Status = jobs.JobFailed
			outcomes[i].Error = err.Error()
			continue
		}
		if err := s.runner.Submit(ctx, child); err != nil {
			if errors.Is(err, errors.Cancelled) {
				return nil, err
			}
			outcomes[i].Status = jobs.JobFailed
			outcomes[i].Error = err.Error()
			continue
		}

		outcomes[i].JobID = child.ID
		childIndex[child.ID] = i
		children = append(children, child.ID)
	}

	s.logger.Debug("Scheduled change-set analysis", map[string]interface{}{
		"jobId":    job.ID,
		"projects": len(scope.ProjectIDs),
		"children": len(children),
	})
	progress(10)

	done, err := s.runner.Wait(ctx, children)
	if err != nil {
		return nil, err
	}

	for _, child := range done {
		i := childIndex[child.ID]
		outcomes[i].Status = child.Status
		outcomes[i].Error = child.Error
	}

	return jobs.ChangeSetAnalysisResult{
		Projects: outcomes,
		Duration: time.Since(start).String(),
	}, nil
}
