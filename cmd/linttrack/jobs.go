package main

import (
	"context"

	"github.com/spf13/cobra"

	"linttrack/internal/errors"
	"linttrack/internal/jobs"
)

var (
	jobsLimit  int
	jobsStatus string
	jobsType   string
	jobsParent string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect the job history",
	Long: `List and inspect analysis and fetch jobs recorded in .linttrack/jobs.db.

Examples:
  linttrack jobs list
  linttrack jobs status <job-id>`,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent jobs",
	Long: `List recent jobs with optional filtering.

Examples:
  linttrack jobs list
  linttrack jobs list --status=failed
  linttrack jobs list --type=analyze_project --limit=50
  linttrack jobs list --parent=<job-id>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) (interface{}, error) {
			opts := jobs.ListJobsOptions{
				Limit:    jobsLimit,
				ParentID: jobsParent,
			}
			if jobsStatus != "" {
				opts.Status = []jobs.JobStatus{jobs.JobStatus(jobsStatus)}
			}
			if jobsType != "" {
				opts.Type = []jobs.JobType{jobs.JobType(jobsType)}
			}

			response, err := a.runner.ListJobs(opts)
			if err != nil {
				return nil, err
			}
			return &JobsListResponseCLI{Jobs: response.Jobs, TotalCount: response.TotalCount}, nil
		})
	},
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Get status of a specific job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) (interface{}, error) {
			job, err := a.runner.GetJob(args[0])
			if err != nil {
				return nil, err
			}
			if job == nil {
				return nil, errors.New(errors.NotFound, "job not found", nil).WithDetails(map[string]interface{}{
					"jobId": args[0],
				})
			}
			return &JobResponseCLI{Job: job}, nil
		})
	},
}

func init() {
	jobsListCmd.Flags().IntVar(&jobsLimit, "limit", 20, "Maximum jobs to return")
	jobsListCmd.Flags().StringVar(&jobsStatus, "status", "", "Filter by status (queued, running, completed, failed, cancelled)")
	jobsListCmd.Flags().StringVar(&jobsType, "type", "", "Filter by type (changeset_analysis, analyze_project, server_issue_update)")
	jobsListCmd.Flags().StringVar(&jobsParent, "parent", "", "Only jobs scheduled by this job")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsStatusCmd)
	rootCmd.AddCommand(jobsCmd)
}
