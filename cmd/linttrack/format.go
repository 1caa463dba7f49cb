package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"linttrack/internal/jobs"
	"linttrack/internal/markers"
	"linttrack/internal/tracking"
	"linttrack/internal/workspace"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatHuman OutputFormat = "human"
)

// ProjectsResponseCLI lists bound projects.
type ProjectsResponseCLI struct {
	Projects []workspace.Project `json:"projects"`
}

// ProjectChangesCLI is the change set of one project.
type ProjectChangesCLI struct {
	ProjectID string           `json:"projectId"`
	Files     []workspace.File `json:"files"`
	Error     string           `json:"error,omitempty"`
}

// ChangesResponseCLI is the output of `linttrack changes`.
type ChangesResponseCLI struct {
	Projects []ProjectChangesCLI `json:"projects"`
}

// AnalyzeResponseCLI is the output of `linttrack analyze-changes`.
type AnalyzeResponseCLI struct {
	JobID    string                `json:"jobId"`
	Status   string                `json:"status"`
	Projects []jobs.ProjectOutcome `json:"projects"`
	Markers  []markers.Marker      `json:"markers"`
	Duration string                `json:"duration"`
}

// FetchedFileCLI is the fetch outcome of one file.
type FetchedFileCLI struct {
	Path    string `json:"path"`
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Source  string `json:"source,omitempty"`
	Issues  int    `json:"issues"`
	Tracked int    `json:"tracked"`
	Error   string `json:"error,omitempty"`
}

// FetchResponseCLI is the output of `linttrack fetch-issues`.
type FetchResponseCLI struct {
	ProjectID string           `json:"projectId"`
	Files     []FetchedFileCLI `json:"files"`
}

// FileIssuesCLI are the tracked issues of one file.
type FileIssuesCLI struct {
	Path   string               `json:"path"`
	Issues []tracking.Trackable `json:"issues"`
}

// IssuesResponseCLI is the output of `linttrack issues`.
type IssuesResponseCLI struct {
	ProjectID string          `json:"projectId"`
	ModuleKey string          `json:"moduleKey"`
	Files     []FileIssuesCLI `json:"files"`
}

// JobsListResponseCLI is the output of `linttrack jobs list`.
type JobsListResponseCLI struct {
	Jobs       []jobs.JobSummary `json:"jobs"`
	TotalCount int               `json:"totalCount"`
}

// JobResponseCLI is the output of `linttrack jobs status`.
type JobResponseCLI struct {
	Job *jobs.Job `json:"job"`
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatYAML goes through JSON first so both formats share field names.
func formatYAML(resp interface{}) (string, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return "", fmt.Errorf("failed to decode JSON: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *ProjectsResponseCLI:
		return formatProjectsHuman(v), nil
	case *ChangesResponseCLI:
		return formatChangesHuman(v), nil
	case *AnalyzeResponseCLI:
		return formatAnalyzeHuman(v), nil
	case *FetchResponseCLI:
		return formatFetchHuman(v), nil
	case *IssuesResponseCLI:
		return formatIssuesHuman(v), nil
	case *JobsListResponseCLI:
		return formatJobsHuman(v), nil
	case *JobResponseCLI:
		return formatJobHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

var (
	bold  = color.New(color.Bold).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	yel   = color.New(color.FgYellow).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
)

func colorStatus(status string) string {
	switch jobs.JobStatus(status) {
	case jobs.JobCompleted:
		return green(status)
	case jobs.JobFailed:
		return red(status)
	case jobs.JobCancelled:
		return yel(status)
	case jobs.JobRunning:
		return cyan(status)
	default:
		return gray(status)
	}
}

func colorState(state tracking.State) string {
	switch state {
	case tracking.StateNew:
		return yel(string(state))
	case tracking.StateResolved:
		return gray(string(state))
	default:
		return string(state)
	}
}

func formatProjectsHuman(resp *ProjectsResponseCLI) string {
	var b strings.Builder
	if len(resp.Projects) == 0 {
		b.WriteString(gray("No projects bound. Use `linttrack project add`."))
		return b.String()
	}
	for _, p := range resp.Projects {
		fmt.Fprintf(&b, "%s  %s\n", bold(p.ID), p.Path)
		fmt.Fprintf(&b, "  module: %s", p.LocalModuleKey())
		if p.RemoteModuleKey() != p.LocalModuleKey() {
			fmt.Fprintf(&b, " (server: %s)", p.RemoteModuleKey())
		}
		b.WriteString("\n")
		if p.VCS != "" {
			fmt.Fprintf(&b, "  vcs:    %s\n", p.VCS)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatChangesHuman(resp *ChangesResponseCLI) string {
	var b strings.Builder
	for _, p := range resp.Projects {
		fmt.Fprintf(&b, "%s\n", bold(p.ProjectID))
		if p.Error != "" {
			fmt.Fprintf(&b, "  %s %s\n", red("error:"), p.Error)
			continue
		}
		if len(p.Files) == 0 {
			fmt.Fprintf(&b, "  %s\n", gray("no changes"))
			continue
		}
		for _, f := range p.Files {
			ct := f.ContentType
			if ct == "" {
				ct = "-"
			}
			fmt.Fprintf(&b, "  %s  %s\n", f.RelativePath, gray(ct))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAnalyzeHuman(resp *AnalyzeResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Change-set analysis %s: %s (%s)\n\n", resp.JobID, colorStatus(resp.Status), resp.Duration)
	for _, p := range resp.Projects {
		fmt.Fprintf(&b, "  %-20s %-10s %d files", p.ProjectID, colorStatus(string(p.Status)), p.Files)
		if p.Error != "" {
			fmt.Fprintf(&b, "  %s", red(p.Error))
		}
		b.WriteString("\n")
	}
	if len(resp.Markers) > 0 {
		b.WriteString("\n")
		for _, m := range resp.Markers {
			fmt.Fprintf(&b, "  %s:%d  %s  %s\n", m.File, m.Line, cyan(m.RuleKey), m.Message)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatFetchHuman(resp *FetchResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", bold(resp.ProjectID))
	for _, f := range resp.Files {
		source := f.Source
		if source == "" {
			source = "none"
		}
		fmt.Fprintf(&b, "  %s  %s  %d issues from %s, %d tracked", f.Path, colorStatus(f.Status), f.Issues, source, f.Tracked)
		if f.Error != "" {
			fmt.Fprintf(&b, "  %s", yel(f.Error))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatIssuesHuman(resp *IssuesResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", bold(resp.ProjectID), resp.ModuleKey)
	if len(resp.Files) == 0 {
		fmt.Fprintf(&b, "  %s\n", gray("no tracked issues"))
	}
	for _, f := range resp.Files {
		fmt.Fprintf(&b, "\n  %s\n", bold(f.Path))
		for _, t := range f.Issues {
			key := t.ServerKey
			if key == "" {
				key = "-"
			}
			fmt.Fprintf(&b, "    L%-5d %-9s %s  %s  %s\n", t.Line, colorState(t.State), cyan(t.RuleKey), t.Message, gray(key))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatJobsHuman(resp *JobsListResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Jobs (%d of %d)\n", len(resp.Jobs), resp.TotalCount)
	for _, j := range resp.Jobs {
		fmt.Fprintf(&b, "  %s  %-20s %-10s %3d%%  %s", j.ID, j.Type, colorStatus(string(j.Status)), j.Progress, j.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		if j.Error != "" {
			fmt.Fprintf(&b, "  %s", red(j.Error))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatJobHuman(resp *JobResponseCLI) string {
	j := resp.Job
	var b strings.Builder
	fmt.Fprintf(&b, "Job %s\n", bold(j.ID))
	fmt.Fprintf(&b, "  Type:     %s\n", j.Type)
	fmt.Fprintf(&b, "  Status:   %s\n", colorStatus(string(j.Status)))
	if j.ParentID != "" {
		fmt.Fprintf(&b, "  Parent:   %s\n", j.ParentID)
	}
	fmt.Fprintf(&b, "  Progress: %d%%\n", j.Progress)
	if d := j.Duration(); d > 0 {
		fmt.Fprintf(&b, "  Duration: %s\n", d)
	}
	if j.Error != "" {
		fmt.Fprintf(&b, "  Error:    %s\n", red(j.Error))
	}
	if j.Result != "" {
		fmt.Fprintf(&b, "  Result:   %s\n", j.Result)
	}
	return strings.TrimRight(b.String(), "\n")
}
