package jobs

import (
	"encoding/json"
	"fmt"

	"linttrack/internal/analysis"
	"linttrack/internal/workspace"
)

// ChangeSetAnalysisScope lists the projects whose changed files are analyzed.
type ChangeSetAnalysisScope struct {
	ProjectIDs []string `json:"projectIds"`
}

// ParseChangeSetAnalysisScope parses the scope JSON of a changeset_analysis job.
func ParseChangeSetAnalysisScope(scopeJSON string) (*ChangeSetAnalysisScope, error) {
	var scope ChangeSetAnalysisScope
	if scopeJSON == "" {
		return &scope, nil
	}
	if err := json.Unmarshal([]byte(scopeJSON), &scope); err != nil {
		return nil, err
	}
	return &scope, nil
}

// ProjectOutcome is the terminal state of one project's child job.
type ProjectOutcome struct {
	ProjectID string    `json:"projectId"`
	JobID     string    `json:"jobId,omitempty"`
	Status    JobStatus `json:"status"`
	Files     int       `json:"files"`
	Error     string    `json:"error,omitempty"`
}

// ChangeSetAnalysisResult contains the result of a changeset_analysis job.
type ChangeSetAnalysisResult struct {
	Projects []ProjectOutcome `json:"projects"`
	Duration string           `json:"duration"`
}

// AnalyzeProjectScope is the analysis request of an analyze_project job.
type AnalyzeProjectScope struct {
	ProjectID string               `json:"projectId"`
	Files     []workspace.File     `json:"files"`
	Trigger   analysis.TriggerType `json:"trigger"`
}

// ParseAnalyzeProjectScope parses the scope JSON of an analyze_project job.
func ParseAnalyzeProjectScope(scopeJSON string) (*AnalyzeProjectScope, error) {
	if scopeJSON == "" {
		return nil, fmt.Errorf("analyze_project job requires a scope")
	}

	var scope AnalyzeProjectScope
	if err := json.Unmarshal([]byte(scopeJSON), &scope); err != nil {
		return nil, err
	}
	if scope.ProjectID == "" {
		return nil, fmt.Errorf("analyze_project scope requires a projectId")
	}
	if scope.Trigger == "" {
		scope.Trigger = analysis.TriggerManual
	}
	return &scope, nil
}

// AnalyzeProjectResult contains the result of an analyze_project job.
type AnalyzeProjectResult struct {
	FilesAnalyzed int    `json:"filesAnalyzed"`
	FilesSkipped  int    `json:"filesSkipped"`
	Issues        int    `json:"issues"`
	New           int    `json:"new"`
	Resolved      int    `json:"resolved"`
	Duration      string `json:"duration"`
}

// ServerIssueUpdateScope names the file whose server issues are fetched.
type ServerIssueUpdateScope struct {
	ProjectID    string `json:"projectId"`
	RelativePath string `json:"path"`
}

// ParseServerIssueUpdateScope parses the scope JSON of a server_issue_update job.
func ParseServerIssueUpdateScope(scopeJSON string) (*ServerIssueUpdateScope, error) {
	if scopeJSON == "" {
		return nil, fmt.Errorf("server_issue_update job requires a scope")
	}

	var scope ServerIssueUpdateScope
	if err := json.Unmarshal([]byte(scopeJSON), &scope); err != nil {
		return nil, err
	}
	if scope.ProjectID == "" || scope.RelativePath == "" {
		return nil, fmt.Errorf("server_issue_update scope requires projectId and path")
	}
	return &scope, nil
}

// ServerIssueUpdateResult contains the result of a server_issue_update job.
type ServerIssueUpdateResult struct {
	Source  string `json:"source"` // "server", "cache" or "none"
	Issues  int    `json:"issues"`
	Tracked int    `json:"tracked"`
	Error   string `json:"error,omitempty"`
}
