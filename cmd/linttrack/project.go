package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"linttrack/internal/workspace"
)

var (
	projectName            string
	projectPath            string
	projectModuleKey       string
	projectServerModuleKey string
	projectVCS             string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage workspace project bindings",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bound projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) (interface{}, error) {
			return &ProjectsResponseCLI{Projects: a.bindings.Projects}, nil
		})
	},
}

var projectAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Bind a project directory to a server module",
	Long: `Add a project to .linttrack/workspace.toml.

Examples:
  linttrack project add core --path libs/core --module-key org:core --vcs git
  linttrack project add app --path app --server-module-key org:app`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspaceRoot()
		if err != nil {
			return err
		}
		bindings, err := workspace.LoadBindings(root)
		if err != nil {
			return err
		}

		p := workspace.Project{
			ID:              args[0],
			Name:            projectName,
			Path:            projectPath,
			ModuleKey:       projectModuleKey,
			ServerModuleKey: projectServerModuleKey,
			VCS:             projectVCS,
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		if p.Path == "" {
			p.Path = p.ID
		}
		if err := bindings.AddProject(p); err != nil {
			return err
		}
		if err := bindings.Save(root); err != nil {
			return err
		}

		out, err := FormatResponse(&ProjectsResponseCLI{Projects: []workspace.Project{p}}, OutputFormat(outputFormat))
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	projectAddCmd.Flags().StringVar(&projectName, "name", "", "Human-friendly name (default: id)")
	projectAddCmd.Flags().StringVar(&projectPath, "path", "", "Project directory relative to the workspace root (default: id)")
	projectAddCmd.Flags().StringVar(&projectModuleKey, "module-key", "", "Local module key (default: id)")
	projectAddCmd.Flags().StringVar(&projectServerModuleKey, "server-module-key", "", "Module key on the issue server (default: module key)")
	projectAddCmd.Flags().StringVar(&projectVCS, "vcs", "", "Version control provider (git or empty)")

	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectAddCmd)
	rootCmd.AddCommand(projectCmd)
}
