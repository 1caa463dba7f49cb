package main

import (
	"context"

	"github.com/spf13/cobra"

	"linttrack/internal/jobs"
	"linttrack/internal/workspace"
)

var analyzeChangesCmd = &cobra.Command{
	Use:   "analyze-changes [project...]",
	Short: "Analyze the changed files of projects",
	Long: `Collect the changed files of each project and analyze them, one job per
project. A failing project does not stop the others; its failure is
reported in the result.

Examples:
  linttrack analyze-changes
  linttrack analyze-changes core --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) (interface{}, error) {
			projects, err := a.selectProjects(args)
			if err != nil {
				return nil, err
			}

			job, result, err := a.svc.Scheduler.AnalyzeChangedFiles(ctx, projects)
			if err != nil {
				return nil, err
			}

			return a.analyzeResponse(job, result, projects), nil
		})
	},
}

func init() {
	rootCmd.AddCommand(analyzeChangesCmd)
}

func (a *app) analyzeResponse(job *jobs.Job, result *jobs.ChangeSetAnalysisResult, projects []workspace.Project) *AnalyzeResponseCLI {
	resp := &AnalyzeResponseCLI{
		JobID:    job.ID,
		Status:   string(job.Status),
		Projects: result.Projects,
		Duration: result.Duration,
	}
	for _, p := range projects {
		resp.Markers = append(resp.Markers, a.sink.Markers(p.ID)...)
	}
	return resp
}
