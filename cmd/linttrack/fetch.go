package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"linttrack/internal/errors"
	"linttrack/internal/jobs"
	"linttrack/internal/paths"
)

var fetchIssuesCmd = &cobra.Command{
	Use:   "fetch-issues <project> <path>...",
	Short: "Download server issues and reconcile them with tracked issues",
	Long: `Download the server issues of each file and apply them as the base of the
tracked issues. When the server cannot be reached the last cached issues are
used instead. Fetch problems are reported in the output, never as a failure.

Examples:
  linttrack fetch-issues core src/main.c src/util.h`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) (interface{}, error) {
			project, ok := a.bindings.Find(args[0])
			if !ok {
				return nil, errors.New(errors.NotFound, "project not found", nil).WithDetails(map[string]interface{}{
					"project": args[0],
				})
			}

			files, err := paths.ProjectRelativeAll(args[1:], project.Root(a.root))
			if err != nil {
				return nil, err
			}

			done, err := a.svc.Updater.UpdateFiles(ctx, project, files)
			if err != nil {
				return nil, err
			}

			resp := &FetchResponseCLI{ProjectID: project.ID}
			for i, job := range done {
				entry := FetchedFileCLI{
					Path:   files[i],
					JobID:  job.ID,
					Status: string(job.Status),
					Error:  job.Error,
				}
				var result jobs.ServerIssueUpdateResult
				if job.Result != "" && json.Unmarshal([]byte(job.Result), &result) == nil {
					entry.Source = result.Source
					entry.Issues = result.Issues
					entry.Tracked = result.Tracked
					if result.Error != "" {
						entry.Error = result.Error
					}
				}
				resp.Files = append(resp.Files, entry)
			}
			return resp, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(fetchIssuesCmd)
}
