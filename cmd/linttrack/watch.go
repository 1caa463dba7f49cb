package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"linttrack/internal/watcher"
	"linttrack/internal/workspace"
)

var (
	watchIntervalMs int
	watchDebounceMs int
)

var watchCmd = &cobra.Command{
	Use:   "watch [project...]",
	Short: "Re-analyze changed files whenever they change",
	Long: `Poll the change set of each project and run a change-set analysis of the
projects whose change set was modified, once edits settle. Stop with Ctrl-C.

Examples:
  linttrack watch
  linttrack watch core --interval 5000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		projects, err := a.selectProjects(args)
		if err != nil {
			return err
		}

		handler := func(changed []workspace.Project) {
			job, result, err := a.svc.Scheduler.AnalyzeChangedFiles(ctx, changed)
			if err != nil {
				a.logger.Warn("Change-set analysis interrupted", map[string]interface{}{
					"error": err.Error(),
				})
				return
			}
			out, err := FormatResponse(a.analyzeResponse(job, result, changed), OutputFormat(outputFormat))
			if err != nil {
				a.logger.Error("Failed to format output", map[string]interface{}{
					"error": err.Error(),
				})
				return
			}
			fmt.Println(out)
		}

		w := watcher.New(watcher.Config{
			DebounceMs:   watchDebounceMs,
			PollInterval: time.Duration(watchIntervalMs) * time.Millisecond,
		}, a.logger, watcher.ChangeSetFingerprint(a.collector, a.root), handler)
		for _, p := range projects {
			w.Watch(p)
		}
		return w.Run(ctx)
	},
}

func init() {
	defaults := watcher.DefaultConfig()
	watchCmd.Flags().IntVar(&watchIntervalMs, "interval", int(defaults.PollInterval/time.Millisecond), "Poll interval in milliseconds")
	watchCmd.Flags().IntVar(&watchDebounceMs, "debounce", defaults.DebounceMs, "Quiet period before analyzing, in milliseconds")
	rootCmd.AddCommand(watchCmd)
}
