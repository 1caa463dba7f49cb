package main

import (
	"context"

	"github.com/spf13/cobra"

	"linttrack/internal/errors"
	"linttrack/internal/paths"
)

var issuesIncludeResolved bool

var issuesCmd = &cobra.Command{
	Use:   "issues <project> [path...]",
	Short: "Show tracked issues",
	Long: `Show the tracked issues of a project, for every tracked file or for the
given files.

Examples:
  linttrack issues core
  linttrack issues core src/main.c --resolved`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) (interface{}, error) {
			project, ok := a.bindings.Find(args[0])
			if !ok {
				return nil, errors.New(errors.NotFound, "project not found", nil).WithDetails(map[string]interface{}{
					"project": args[0],
				})
			}

			resp := &IssuesResponseCLI{ProjectID: project.ID, ModuleKey: project.LocalModuleKey()}
			tracker, ok := a.trackers.Get(project.LocalModuleKey())
			if !ok {
				return resp, nil
			}

			files, err := paths.ProjectRelativeAll(args[1:], project.Root(a.root))
			if err != nil {
				return nil, err
			}
			if len(files) == 0 {
				files = tracker.Files()
			}
			for _, p := range files {
				entry := FileIssuesCLI{Path: p}
				for _, t := range tracker.Issues(p) {
					if t.Resolved && !issuesIncludeResolved {
						continue
					}
					entry.Issues = append(entry.Issues, t)
				}
				if len(entry.Issues) > 0 || len(args) > 1 {
					resp.Files = append(resp.Files, entry)
				}
			}
			return resp, nil
		})
	},
}

func init() {
	issuesCmd.Flags().BoolVar(&issuesIncludeResolved, "resolved", false, "Include resolved issues")
	rootCmd.AddCommand(issuesCmd)
}
