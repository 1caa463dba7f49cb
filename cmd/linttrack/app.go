package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"linttrack/internal/analysis"
	"linttrack/internal/changeset"
	"linttrack/internal/config"
	"linttrack/internal/errors"
	"linttrack/internal/jobs"
	"linttrack/internal/logging"
	"linttrack/internal/markers"
	"linttrack/internal/orchestrator"
	"linttrack/internal/server"
	"linttrack/internal/tracking"
	"linttrack/internal/vcs"
	"linttrack/internal/workspace"
)

// app holds the wired components of one CLI invocation.
type app struct {
	root      string
	cfg       *config.Config
	logger    *logging.Logger
	bindings  *workspace.Bindings
	collector *changeset.Collector
	store     *jobs.Store
	runner    *jobs.Runner
	issues    *server.Service
	trackers  *tracking.Registry
	sink      *markers.MemorySink
	svc       *orchestrator.Service
}

// offlineDownloader stands in for the remote client when no server url is
// configured, so every fetch falls back to the cache.
type offlineDownloader struct{}

func (offlineDownloader) DownloadIssues(ctx context.Context, moduleKey, fileKey string) ([]server.ServerIssue, error) {
	return nil, errors.New(errors.DownloadFailed, "no issue server configured", nil)
}

func workspaceRoot() (string, error) {
	if rootDir != "" {
		return filepath.Abs(rootDir)
	}
	return os.Getwd()
}

// newLogger creates a logger with the configured format and level.
func newLogger(cfg *config.Config) *logging.Logger {
	level := logging.LevelFromString(cfg.Logging.Level)
	if verbose {
		level = logging.DebugLevel
	}
	format := logging.HumanFormat
	if cfg.Logging.Format == "json" {
		format = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: format,
		Level:  level,
	})
}

// openApp loads configuration and workspace declarations and wires the
// orchestration stack. The caller must close the returned app.
func openApp(ctx context.Context) (*app, error) {
	root, err := workspaceRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	bindings, err := workspace.LoadBindings(root)
	if err != nil {
		return nil, err
	}
	languages, err := workspace.LoadRegistry(root)
	if err != nil {
		return nil, err
	}

	providers := vcs.NewRegistry()
	vcs.RegisterGitProjects(providers, root, bindings.Projects, vcs.DefaultGitTimeout, logger)

	cache, err := server.OpenCache(ctx, server.CacheOptions{
		Driver:        cfg.Cache.Driver,
		DSN:           cfg.Cache.DSN,
		MemoryEntries: cfg.Cache.MemoryEntries,
	}, root, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open issue cache: %w", err)
	}

	var downloader server.Downloader = offlineDownloader{}
	if cfg.Server.URL != "" {
		client, err := server.NewClient(server.ClientConfig{
			URL:               cfg.Server.URL,
			Token:             cfg.Server.Token,
			Timeout:           cfg.ServerTimeout(),
			RequestsPerSecond: cfg.Server.RequestsPerSecond,
			Burst:             cfg.Server.Burst,
		}, logger)
		if err != nil {
			_ = cache.Close()
			return nil, err
		}
		downloader = client
	}
	issues := server.NewService(downloader, cache, logger)

	trackers := tracking.NewRegistry(tracking.NewMatcher(cfg.Tracking.LineShiftTolerance), logger)
	if err := trackers.Load(filepath.Join(root, tracking.SnapshotFile)); err != nil {
		logger.Warn("Failed to load tracked issues, starting empty", map[string]interface{}{
			"error": err.Error(),
		})
	}

	store, err := jobs.OpenStore(filepath.Join(root, config.StateDir), logger)
	if err != nil {
		_ = issues.Close()
		return nil, err
	}
	runner := jobs.NewRunner(store, logger, jobs.RunnerConfig{
		QueueSize:   cfg.Jobs.QueueSize,
		WorkerCount: cfg.Jobs.Workers,
		Retention:   cfg.Retention(),
	})

	collector := changeset.NewCollector(providers, languages, logger)
	console := markers.NewConsole(logger)
	sink := markers.NewMemorySink(console)
	svc := orchestrator.New(orchestrator.Deps{
		WorkspaceRoot: root,
		Runner:        runner,
		Projects:      bindings,
		Collector:     collector,
		Engine:        analysis.NewCommandEngine(cfg.Analysis.Command, cfg.Analysis.Args, root, cfg.AnalysisTimeout(), logger),
		Validator:     analysis.NewFileValidator(languages),
		Issues:        issues,
		Trackers:      trackers,
		Sink:          sink,
		Console:       console,
		Logger:        logger,
	})

	if err := runner.Start(); err != nil {
		_ = store.Close()
		_ = issues.Close()
		return nil, err
	}

	return &app{
		root:      root,
		cfg:       cfg,
		logger:    logger,
		bindings:  bindings,
		collector: collector,
		store:     store,
		runner:    runner,
		issues:    issues,
		trackers:  trackers,
		sink:      sink,
		svc:       svc,
	}, nil
}

// close stops the runner, persists tracked issues and releases stores.
func (a *app) close() {
	if err := a.runner.Stop(30 * time.Second); err != nil {
		a.logger.Warn("Job runner did not stop cleanly", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := a.trackers.Save(filepath.Join(a.root, tracking.SnapshotFile)); err != nil {
		a.logger.Error("Failed to save tracked issues", map[string]interface{}{
			"error": err.Error(),
		})
	}
	_ = a.issues.Close()
	_ = a.store.Close()
}

// selectProjects resolves project IDs or names; no arguments selects every bound project.
func (a *app) selectProjects(args []string) ([]workspace.Project, error) {
	if len(args) == 0 {
		return a.bindings.Projects, nil
	}
	out := make([]workspace.Project, 0, len(args))
	for _, arg := range args {
		p, ok := a.bindings.Find(arg)
		if !ok {
			return nil, errors.New(errors.NotFound, "project not found", nil).WithDetails(map[string]interface{}{
				"project": arg,
			})
		}
		out = append(out, p)
	}
	return out, nil
}

// withApp runs fn against a freshly opened app and prints its response.
func withApp(fn func(ctx context.Context, a *app) (interface{}, error)) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	start := time.Now()
	resp, err := fn(ctx, a)
	if err != nil {
		return err
	}

	out, err := FormatResponse(resp, OutputFormat(outputFormat))
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Println(out)

	a.logger.Debug("Command completed", map[string]interface{}{
		"durationMs": time.Since(start).Milliseconds(),
	})
	return nil
}
