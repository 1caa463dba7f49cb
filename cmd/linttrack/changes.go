package main

import (
	"context"

	"github.com/spf13/cobra"
)

var changesCmd = &cobra.Command{
	Use:   "changes [project...]",
	Short: "List locally changed files",
	Long: `List the files whose version-control status differs from the baseline.

Projects without a version control provider report no changes.

Examples:
  linttrack changes
  linttrack changes core app`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) (interface{}, error) {
			projects, err := a.selectProjects(args)
			if err != nil {
				return nil, err
			}

			resp := &ChangesResponseCLI{}
			for _, p := range projects {
				entry := ProjectChangesCLI{ProjectID: p.ID}
				files, err := a.collector.Collect(ctx, p)
				if err != nil {
					entry.Error = err.Error()
				}
				entry.Files = files
				resp.Projects = append(resp.Projects, entry)
			}
			return resp, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(changesCmd)
}
