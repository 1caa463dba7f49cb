package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"linttrack/internal/analysis"
	"linttrack/internal/jobs"
	"linttrack/internal/logging"
	"linttrack/internal/markers"
	"linttrack/internal/tracking"
	"linttrack/internal/workspace"
)

// ProjectAnalyzer runs the engine over a project's files and reconciles the
// findings with the tracked issues.
type ProjectAnalyzer struct {
	workspaceRoot string
	projects      Projects
	engine        analysis.Engine
	validator     *analysis.FileValidator
	trackers      *tracking.Registry
	sink          markers.Sink
	logger        *logging.Logger
}

// NewProjectAnalyzer creates an analyzer.
func NewProjectAnalyzer(workspaceRoot string, projects Projects, engine analysis.Engine, validator *analysis.FileValidator, trackers *tracking.Registry, sink markers.Sink, logger *logging.Logger) *ProjectAnalyzer {
	return &ProjectAnalyzer{
		workspaceRoot: workspaceRoot,
		projects:      projects,
		engine:        engine,
		validator:     validator,
		trackers:      trackers,
		sink:          sink,
		logger:        logger,
	}
}

// Handle is the analyze_project job handler.
func (a *ProjectAnalyzer) Handle(ctx context.Context, job *jobs.Job, progress func(int)) (interface{}, error) {
	scope, err := jobs.ParseAnalyzeProjectScope(job.Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid analyze_project scope: %w", err)
	}
	project, ok := a.projects.Find(scope.ProjectID)
	if !ok {
		return nil, fmt.Errorf("project not found: %s", scope.ProjectID)
	}

	result, err := a.Analyze(ctx, project, scope.Files, scope.Trigger, progress)
	if err != nil {
		a.sink.Log(fmt.Sprintf("Analysis of project %s failed", project.ID), err)
		return nil, err
	}
	return result, nil
}

// Analyze filters files, runs the engine and reconciles every analyzed file.
// Analyzed files without findings, and files deleted from disk, reconcile an
// empty set so that their previous issues get resolved.
func (a *ProjectAnalyzer) Analyze(ctx context.Context, project workspace.Project, files []workspace.File, trigger analysis.TriggerType, progress func(int)) (*jobs.AnalyzeProjectResult, error) {
	start := time.Now()
	accepted := a.validator.Filter(files)
	result := &jobs.AnalyzeProjectResult{
		FilesAnalyzed: len(accepted),
		FilesSkipped:  len(files) - len(accepted),
	}
	if len(accepted) == 0 {
		result.Duration = time.Since(start).String()
		return result, nil
	}

	root := project.Root(a.workspaceRoot)

	// deleted files are not analyzed, they reconcile an empty set below
	present := make([]workspace.File, 0, len(accepted))
	for _, f := range accepted {
		if _, err := os.Stat(filepath.Join(root, f.RelativePath)); os.IsNotExist(err) {
			continue
		}
		present = append(present, f)
	}

	var issues []analysis.LocalIssue
	if len(present) > 0 {
		req := analysis.AnalyzeRequest{
			Project:    project,
			Files:      present,
			Trigger:    trigger,
			Properties: a.validator.SuffixProperties(present),
		}
		var err error
		issues, err = a.engine.Analyze(ctx, req)
		if err != nil {
			return nil, err
		}
	}
	progress(60)

	byFile := make(map[string][]analysis.LocalIssue)
	order := make([]string, 0, len(accepted))
	for _, f := range accepted {
		rel := filepath.Clean(f.RelativePath)
		if _, ok := byFile[rel]; !ok {
			byFile[rel] = nil
			order = append(order, rel)
		}
	}
	for _, issue := range issues {
		rel := filepath.Clean(filepath.FromSlash(issue.File))
		if _, ok := byFile[rel]; !ok {
			order = append(order, rel)
		}
		byFile[rel] = append(byFile[rel], issue)
	}

	origin := markers.OriginOther
	if trigger == analysis.TriggerChangeSet {
		origin = markers.OriginChangeSet
	}

	tracker := a.trackers.GetOrCreate(project.LocalModuleKey())

	for _, rel := range order {
		hashes := a.lineHashes(filepath.Join(root, rel))
		incoming := make([]tracking.Trackable, 0, len(byFile[rel]))
		for _, issue := range byFile[rel] {
			incoming = append(incoming, tracking.FromLocalIssue(issue, tracking.HashAt(hashes, issue.Line)))
		}

		tracked := tracker.Reconcile(rel, incoming)

		fileMarkers := make([]markers.Marker, 0, len(tracked))
		for _, t := range tracked {
			switch t.State {
			case tracking.StateNew:
				result.New++
			case tracking.StateResolved:
				result.Resolved++
				continue
			}
			fileMarkers = append(fileMarkers, markers.Marker{
				ProjectID: project.ID,
				File:      rel,
				Origin:    origin,
				LocalID:   t.LocalID,
				RuleKey:   t.RuleKey,
				Message:   t.Message,
				Severity:  t.Severity,
				Line:      t.Line,
			})
		}
		a.sink.UpdateMarkers(project.ID, rel, origin, fileMarkers)
	}
	result.Issues = len(issues)
	result.Duration = time.Since(start).String()

	a.logger.Debug("Analyzed project", map[string]interface{}{
		"project":  project.ID,
		"trigger":  string(trigger),
		"files":    result.FilesAnalyzed,
		"issues":   result.Issues,
		"new":      result.New,
		"resolved": result.Resolved,
	})
	return result, nil
}

// lineHashes hashes the lines of a file; unreadable files have no hashes.
func (a *ProjectAnalyzer) lineHashes(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return tracking.LineHashes(string(data))
}
