package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linttrack/internal/analysis"
	"linttrack/internal/changeset"
	"linttrack/internal/errors"
	"linttrack/internal/jobs"
	"linttrack/internal/logging"
	"linttrack/internal/markers"
	"linttrack/internal/server"
	"linttrack/internal/tracking"
	"linttrack/internal/vcs"
	"linttrack/internal/workspace"
)

type projectList []workspace.Project

func (l projectList) Find(idOrName string) (workspace.Project, bool) {
	for _, p := range l {
		if p.ID == idOrName || p.Name == idOrName {
			return p, true
		}
	}
	return workspace.Project{}, false
}

// flatProvider reports a list of changed files directly under the root.
type flatProvider struct {
	changed    []string
	refreshErr error
}

func (f *flatProvider) Refresh(ctx context.Context, roots []vcs.Resource, depth vcs.Depth) error {
	return f.refreshErr
}

func (f *flatProvider) Roots() []vcs.Resource {
	return []vcs.Resource{{Path: ""}}
}

func (f *flatProvider) Members(r vcs.Resource) ([]vcs.Resource, error) {
	if r.Path != "" {
		return nil, nil
	}
	out := make([]vcs.Resource, 0, len(f.changed))
	for _, p := range f.changed {
		out = append(out, vcs.Resource{Path: p, IsFile: true})
	}
	return out, nil
}

func (f *flatProvider) SyncState(r vcs.Resource) (vcs.SyncKind, error) {
	return vcs.Change, nil
}

type fakeSource struct {
	mu          sync.Mutex
	download    func(moduleKey, fileKey string) ([]server.ServerIssue, error)
	cached      []server.ServerIssue
	cacheLookup int
}

func (f *fakeSource) DownloadIssues(ctx context.Context, moduleKey, fileKey string) ([]server.ServerIssue, error) {
	return f.download(moduleKey, fileKey)
}

func (f *fakeSource) CachedIssues(ctx context.Context, moduleKey, relativePath string) []server.ServerIssue {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cacheLookup++
	return f.cached
}

type harness struct {
	root      string
	runner    *jobs.Runner
	providers *vcs.Registry
	sink      *markers.MemorySink
	trackers  *tracking.Registry
	source    *fakeSource
	logs      *syncBuffer
	svc       *Service
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newHarness(t *testing.T, projects projectList, engine analysis.Engine) *harness {
	t.Helper()

	logs := &syncBuffer{}
	logger := logging.NewLogger(logging.Config{Format: logging.JSONFormat, Level: logging.InfoLevel, Output: logs})

	store, err := jobs.OpenStore(t.TempDir(), logging.NewDiscardLogger())
	require.NoError(t, err)
	runner := jobs.NewRunner(store, logging.NewDiscardLogger(), jobs.RunnerConfig{WorkerCount: 2, QueueSize: 16})
	require.NoError(t, runner.Start())
	t.Cleanup(func() {
		_ = runner.Stop(5 * time.Second)
		_ = store.Close()
	})

	registry, err := workspace.NewRegistry(workspace.DefaultLanguages())
	require.NoError(t, err)

	h := &harness{
		root:      t.TempDir(),
		runner:    runner,
		providers: vcs.NewRegistry(),
		trackers:  tracking.NewRegistry(tracking.NewMatcher(-1), logging.NewDiscardLogger()),
		source:    &fakeSource{},
		logs:      logs,
	}
	console := markers.NewConsole(logger)
	h.sink = markers.NewMemorySink(console)
	h.svc = New(Deps{
		WorkspaceRoot: h.root,
		Runner:        runner,
		Projects:      projects,
		Collector:     changeset.NewCollector(h.providers, registry, logging.NewDiscardLogger()),
		Engine:        engine,
		Validator:     analysis.NewFileValidator(registry),
		Issues:        h.source,
		Trackers:      h.trackers,
		Sink:          h.sink,
		Console:       console,
		Logger:        logging.NewDiscardLogger(),
	})
	return h
}

func threeProjects() projectList {
	return projectList{
		{ID: "p1", Name: "first", Path: "p1"},
		{ID: "p2", Name: "second", Path: "p2"},
		{ID: "p3", Name: "third", Path: "p3"},
	}
}

// writeChanged creates files below a project's root and reports them as changed.
func (h *harness) writeChanged(t *testing.T, project workspace.Project, files ...string) {
	t.Helper()
	root := project.Root(h.root)
	for _, f := range files {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("int x;\n"), 0644))
	}
	h.providers.Register(project.ID, &flatProvider{changed: files})
}

func issueFor(file string, line int) analysis.LocalIssue {
	return analysis.LocalIssue{File: file, RuleKey: "c:S100", Message: "rename this", Line: line}
}

func outcomesByProject(result *jobs.ChangeSetAnalysisResult) map[string]jobs.ProjectOutcome {
	out := make(map[string]jobs.ProjectOutcome)
	for _, o := range result.Projects {
		out[o.ProjectID] = o
	}
	return out
}

func TestChangeSet_ProjectFailuresDoNotAffectOthers(t *testing.T) {
	for _, failure := range []string{"error", "panic"} {
		t.Run(failure, func(t *testing.T) {
			projects := threeProjects()
			engine := analysis.EngineFunc(func(ctx context.Context, req analysis.AnalyzeRequest) ([]analysis.LocalIssue, error) {
				if req.Project.ID == "p2" {
					if failure == "panic" {
						panic("engine crashed")
					}
					return nil, stderrors.New("engine crashed")
				}
				return []analysis.LocalIssue{issueFor("main.c", 3)}, nil
			})
			h := newHarness(t, projects, engine)
			for _, p := range projects {
				h.writeChanged(t, p, "main.c")
			}

			job, result, err := h.svc.Scheduler.AnalyzeChangedFiles(context.Background(), projects)
			require.NoError(t, err)
			assert.Equal(t, jobs.JobCompleted, job.Status)

			outcomes := outcomesByProject(result)
			require.Len(t, outcomes, 3)
			assert.Equal(t, jobs.JobCompleted, outcomes["p1"].Status)
			assert.Equal(t, jobs.JobFailed, outcomes["p2"].Status)
			assert.NotEmpty(t, outcomes["p2"].Error)
			assert.Equal(t, jobs.JobCompleted, outcomes["p3"].Status)

			for _, id := range []string{"p1", "p3"} {
				ms := h.sink.Markers(id)
				require.Len(t, ms, 1, id)
				assert.Equal(t, markers.OriginChangeSet, ms[0].Origin)
				assert.Equal(t, "main.c", ms[0].File)
			}
			assert.Empty(t, h.sink.Markers("p2"))

			children, err := h.runner.ListJobs(jobs.ListJobsOptions{ParentID: job.ID})
			require.NoError(t, err)
			assert.Equal(t, 3, children.TotalCount)
			for _, c := range children.Jobs {
				assert.True(t, c.Status == jobs.JobCompleted || c.Status == jobs.JobFailed, "child %s not terminal: %s", c.ID, c.Status)
			}
		})
	}
}

func TestChangeSet_CollectionFailureIsReportedPerProject(t *testing.T) {
	projects := threeProjects()
	engine := analysis.EngineFunc(func(ctx context.Context, req analysis.AnalyzeRequest) ([]analysis.LocalIssue, error) {
		return nil, nil
	})
	h := newHarness(t, projects, engine)
	h.writeChanged(t, projects[0], "a.c")
	h.providers.Register("p2", &flatProvider{refreshErr: stderrors.New("index.lock exists")})
	h.writeChanged(t, projects[2], "b.cpp", "README.md")

	_, result, err := h.svc.Scheduler.AnalyzeChangedFiles(context.Background(), projects)
	require.NoError(t, err)

	outcomes := outcomesByProject(result)
	assert.Equal(t, jobs.JobCompleted, outcomes["p1"].Status)
	assert.Equal(t, 1, outcomes["p1"].Files)
	assert.Equal(t, jobs.JobFailed, outcomes["p2"].Status)
	assert.Empty(t, outcomes["p2"].JobID)
	assert.Contains(t, outcomes["p2"].Error, "index.lock exists")
	assert.Equal(t, jobs.JobCompleted, outcomes["p3"].Status)
	assert.Equal(t, 2, outcomes["p3"].Files)

	assert.Contains(t, h.logs.String(), "Unable to collect changed files of project p2")
}

func TestChangeSet_UnversionedProjectStillGetsAJob(t *testing.T) {
	projects := projectList{{ID: "plain", Path: "plain"}}
	var calls int
	var mu sync.Mutex
	engine := analysis.EngineFunc(func(ctx context.Context, req analysis.AnalyzeRequest) ([]analysis.LocalIssue, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil, nil
	})
	h := newHarness(t, projects, engine)

	_, result, err := h.svc.Scheduler.AnalyzeChangedFiles(context.Background(), projects)
	require.NoError(t, err)
	require.Len(t, result.Projects, 1)
	assert.Equal(t, jobs.JobCompleted, result.Projects[0].Status)
	assert.NotEmpty(t, result.Projects[0].JobID)
	assert.Equal(t, 0, result.Projects[0].Files)
	assert.Equal(t, 0, calls, "nothing to analyze")
}

func TestChangeSet_ClearsMarkersBeforeScheduling(t *testing.T) {
	projects := threeProjects()
	var mu sync.Mutex
	var seen []int
	var h *harness
	engine := analysis.EngineFunc(func(ctx context.Context, req analysis.AnalyzeRequest) ([]analysis.LocalIssue, error) {
		mu.Lock()
		defer mu.Unlock()
		for _, p := range projects {
			seen = append(seen, h.sink.ClearCount(p.ID))
		}
		return nil, nil
	})
	h = newHarness(t, projects, engine)
	for _, p := range projects {
		h.writeChanged(t, p, "x.c")
	}

	// stale change-set markers from a previous run
	h.sink.UpdateMarkers("p1", "old.c", markers.OriginChangeSet, []markers.Marker{{ProjectID: "p1", File: "old.c", Line: 1}})
	h.sink.UpdateMarkers("p1", "kept.c", markers.OriginOther, []markers.Marker{{ProjectID: "p1", File: "kept.c", Line: 1}})

	_, _, err := h.svc.Scheduler.AnalyzeChangedFiles(context.Background(), projects)
	require.NoError(t, err)

	require.Len(t, seen, 9)
	for _, n := range seen {
		assert.Equal(t, 1, n)
	}
	ms := h.sink.Markers("p1")
	require.Len(t, ms, 1)
	assert.Equal(t, "kept.c", ms[0].File)
}

func TestChangeSet_CancelWhileWaiting(t *testing.T) {
	projects := projectList{{ID: "slow", Path: "slow"}}
	started := make(chan struct{})
	release := make(chan struct{})
	engine := analysis.EngineFunc(func(ctx context.Context, req analysis.AnalyzeRequest) ([]analysis.LocalIssue, error) {
		close(started)
		<-release
		return nil, ctx.Err()
	})
	h := newHarness(t, projects, engine)
	h.writeChanged(t, projects[0], "slow.c")

	ctx, cancel := context.WithCancel(context.Background())
	type outcome struct {
		job *jobs.Job
		err error
	}
	out := make(chan outcome, 1)
	go func() {
		job, _, err := h.svc.Scheduler.AnalyzeChangedFiles(ctx, projects)
		out <- outcome{job, err}
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("project job did not start")
	}
	cancel()

	var got outcome
	select {
	case got = <-out:
	case <-time.After(5 * time.Second):
		t.Fatal("AnalyzeChangedFiles did not return after cancellation")
	}
	require.Error(t, got.err)
	assert.True(t, errors.Is(got.err, errors.Cancelled))
	require.NotNil(t, got.job)
	assert.Equal(t, jobs.JobCancelled, got.job.Status)

	// the project job is not interrupted
	close(release)
	children, err := h.runner.ListJobs(jobs.ListJobsOptions{ParentID: got.job.ID})
	require.NoError(t, err)
	require.Len(t, children.Jobs, 1)
	done, err := h.runner.Wait(context.Background(), []string{children.Jobs[0].ID})
	require.NoError(t, err)
	assert.Equal(t, jobs.JobCompleted, done[0].Status)
}

func TestAnalyzer_ReconcilesAndUpdatesMarkers(t *testing.T) {
	project := workspace.Project{ID: "app", Path: "app", ModuleKey: "org:app"}
	var mu sync.Mutex
	var reported []analysis.LocalIssue
	var props map[string]string
	engine := analysis.EngineFunc(func(ctx context.Context, req analysis.AnalyzeRequest) ([]analysis.LocalIssue, error) {
		mu.Lock()
		defer mu.Unlock()
		props = req.Properties
		return reported, nil
	})
	h := newHarness(t, projectList{project}, engine)

	dir := filepath.Join(h.root, "app", "src")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.c"), []byte("int a;\nint  b ;\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.h"), []byte("extern int a;\n"), 0644))

	files := []workspace.File{
		{ProjectID: "app", RelativePath: filepath.Join("src", "util.c")},
		{ProjectID: "app", RelativePath: filepath.Join("src", "util.h")},
		{ProjectID: "app", RelativePath: "README.md"},
	}
	reported = []analysis.LocalIssue{issueFor("src/util.c", 2)}

	result, err := h.svc.Analyzer.Analyze(context.Background(), project, files, analysis.TriggerManual, func(int) {})
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesAnalyzed)
	assert.Equal(t, 1, result.FilesSkipped)
	assert.Equal(t, 1, result.Issues)
	assert.Equal(t, 1, result.New)
	assert.Equal(t, map[string]string{"analysis.c.file.suffixes": ".c,.h"}, props)

	tracker, ok := h.trackers.Get("org:app")
	require.True(t, ok)
	tracked := tracker.Issues(filepath.Join("src", "util.c"))
	require.Len(t, tracked, 1)
	assert.Equal(t, tracking.HashLine("int b;"), tracked[0].LineHash)
	firstID := tracked[0].LocalID

	ms := h.sink.Markers("app")
	require.Len(t, ms, 1)
	assert.Equal(t, markers.OriginOther, ms[0].Origin)
	assert.Equal(t, firstID, ms[0].LocalID)

	// same finding one line lower keeps its identity
	reported = []analysis.LocalIssue{issueFor("src/util.c", 3)}
	result, err = h.svc.Analyzer.Analyze(context.Background(), project, files, analysis.TriggerOnSave, func(int) {})
	require.NoError(t, err)
	assert.Equal(t, 0, result.New)
	tracked = tracker.Issues(filepath.Join("src", "util.c"))
	require.Len(t, tracked, 1)
	assert.Equal(t, firstID, tracked[0].LocalID)
	assert.Equal(t, tracking.StateMatched, tracked[0].State)

	// finding fixed: dropped, local-only issues do not linger
	reported = nil
	result, err = h.svc.Analyzer.Analyze(context.Background(), project, files, analysis.TriggerManual, func(int) {})
	require.NoError(t, err)
	assert.Empty(t, tracker.Issues(filepath.Join("src", "util.c")))
	assert.Empty(t, h.sink.Markers("app"))
}

func TestAnalyzer_DeletedFileResolvesWithoutEngine(t *testing.T) {
	project := workspace.Project{ID: "app", Path: "app", ModuleKey: "org:app"}
	var mu sync.Mutex
	var requested [][]workspace.File
	engine := analysis.EngineFunc(func(ctx context.Context, req analysis.AnalyzeRequest) ([]analysis.LocalIssue, error) {
		mu.Lock()
		defer mu.Unlock()
		requested = append(requested, req.Files)
		return nil, nil
	})
	h := newHarness(t, projectList{project}, engine)

	rel := filepath.Join("src", "gone.c")
	tracker := h.trackers.GetOrCreate("org:app")
	tracker.ReconcileBase(rel, tracking.FromServerIssues([]server.ServerIssue{
		{Key: "AX1", RuleKey: "c:S100", Message: "rename this", Line: 4},
	}))

	files := []workspace.File{{ProjectID: "app", RelativePath: rel}}
	result, err := h.svc.Analyzer.Analyze(context.Background(), project, files, analysis.TriggerChangeSet, func(int) {})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesAnalyzed)
	assert.Equal(t, 1, result.Resolved)

	mu.Lock()
	assert.Empty(t, requested, "deleted files are not sent to the engine")
	mu.Unlock()

	tracked := tracker.Issues(rel)
	require.Len(t, tracked, 1)
	assert.Equal(t, "AX1", tracked[0].ServerKey)
	assert.Equal(t, tracking.StateResolved, tracked[0].State)
	assert.Empty(t, h.sink.Markers("app"))
}

func TestAnalyzer_EngineFailureIsLogged(t *testing.T) {
	project := workspace.Project{ID: "app", Path: "app"}
	engine := analysis.EngineFunc(func(ctx context.Context, req analysis.AnalyzeRequest) ([]analysis.LocalIssue, error) {
		return nil, stderrors.New("engine exited with status 2")
	})
	h := newHarness(t, projectList{project}, engine)
	h.writeChanged(t, project, "a.c")

	job, err := jobs.NewJob(jobs.JobTypeAnalyzeProject, jobs.AnalyzeProjectScope{
		ProjectID: "app",
		Files:     []workspace.File{{ProjectID: "app", RelativePath: "a.c"}},
	})
	require.NoError(t, err)
	done, err := h.runner.Run(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, jobs.JobFailed, done.Status)
	assert.Contains(t, h.logs.String(), "Analysis of project app failed")
}

func TestUpdater_DownloadRefreshesBase(t *testing.T) {
	project := workspace.Project{ID: "app", ModuleKey: "local:app", ServerModuleKey: "org:app"}
	h := newHarness(t, projectList{project}, nil)

	var gotModule, gotFile string
	h.source.download = func(moduleKey, fileKey string) ([]server.ServerIssue, error) {
		gotModule, gotFile = moduleKey, fileKey
		return []server.ServerIssue{{Key: "AX1", RuleKey: "c:S100", Message: "rename this", Line: 4}}, nil
	}

	rel := filepath.Join("src", "util.c")
	result := h.svc.Updater.Update(context.Background(), project, rel)
	assert.Equal(t, SourceServer, result.Source)
	assert.Equal(t, 1, result.Issues)
	assert.Equal(t, 1, result.Tracked)
	assert.Equal(t, "org:app", gotModule)
	assert.Equal(t, "src/util.c", gotFile)
	assert.Equal(t, 0, h.source.cacheLookup)

	tracker, ok := h.trackers.Get("local:app")
	require.True(t, ok)
	tracked := tracker.Issues(rel)
	require.Len(t, tracked, 1)
	assert.Equal(t, "AX1", tracked[0].ServerKey)
	assert.Equal(t, tracking.OriginServer, tracked[0].Origin)
}

func TestUpdater_FallsBackToCacheOnDownloadFailure(t *testing.T) {
	project := workspace.Project{ID: "app", ModuleKey: "org:app"}
	h := newHarness(t, projectList{project}, nil)

	h.source.download = func(moduleKey, fileKey string) ([]server.ServerIssue, error) {
		return nil, errors.New(errors.DownloadFailed, "server unreachable", stderrors.New("connection refused"))
	}
	h.source.cached = []server.ServerIssue{
		{Key: "C1", RuleKey: "c:S1", Message: "cached one", Line: 1},
		{Key: "C2", RuleKey: "c:S2", Message: "cached two", Line: 9},
	}

	jobsDone, err := h.svc.Updater.UpdateFiles(context.Background(), project, []string{"main.c"})
	require.NoError(t, err)
	require.Len(t, jobsDone, 1)
	assert.Equal(t, jobs.JobCompleted, jobsDone[0].Status)
	assert.Empty(t, jobsDone[0].Error)

	var result jobs.ServerIssueUpdateResult
	require.NoError(t, json.Unmarshal([]byte(jobsDone[0].Result), &result))
	assert.Equal(t, SourceCache, result.Source)
	assert.Equal(t, 2, result.Issues)
	assert.Empty(t, result.Error)

	tracker, ok := h.trackers.Get("org:app")
	require.True(t, ok)
	tracked := tracker.Issues("main.c")
	require.Len(t, tracked, 2)
	assert.Equal(t, "C1", tracked[0].ServerKey)
	assert.Equal(t, "C2", tracked[1].ServerKey)

	logs := h.logs.String()
	assert.Contains(t, logs, "using cached issues")
	assert.Contains(t, logs, `"level":"info"`)
}

func TestUpdater_ContainsUnexpectedErrors(t *testing.T) {
	cases := map[string]func(moduleKey, fileKey string) ([]server.ServerIssue, error){
		"error": func(moduleKey, fileKey string) ([]server.ServerIssue, error) {
			return nil, stderrors.New("decode: unexpected EOF")
		},
		"panic": func(moduleKey, fileKey string) ([]server.ServerIssue, error) {
			panic("nil issue list")
		},
	}
	for name, download := range cases {
		t.Run(name, func(t *testing.T) {
			project := workspace.Project{ID: "app"}
			h := newHarness(t, projectList{project}, nil)
			h.source.download = download

			jobsDone, err := h.svc.Updater.UpdateFiles(context.Background(), project, []string{"main.c"})
			require.NoError(t, err)
			require.Len(t, jobsDone, 1)
			assert.Equal(t, jobs.JobCompleted, jobsDone[0].Status)

			var result jobs.ServerIssueUpdateResult
			require.NoError(t, json.Unmarshal([]byte(jobsDone[0].Result), &result))
			assert.Equal(t, SourceNone, result.Source)
			assert.NotEmpty(t, result.Error)

			assert.Equal(t, 0, h.source.cacheLookup)
			_, ok := h.trackers.Get("app")
			assert.False(t, ok, "nothing reconciled")

			logs := h.logs.String()
			assert.Contains(t, logs, "Unable to update server issues")
			assert.Contains(t, logs, `"level":"error"`)
		})
	}
}

func TestUpdater_SharedServerModuleReachesEveryTracker(t *testing.T) {
	a := workspace.Project{ID: "a", ModuleKey: "local-a", ServerModuleKey: "shared"}
	b := workspace.Project{ID: "b", ModuleKey: "local-b", ServerModuleKey: "shared"}
	h := newHarness(t, projectList{a, b}, nil)

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var mu sync.Mutex
	downloads := 0
	h.source.download = func(moduleKey, fileKey string) ([]server.ServerIssue, error) {
		mu.Lock()
		downloads++
		mu.Unlock()
		started <- struct{}{}
		<-release
		return []server.ServerIssue{{Key: "AX1", RuleKey: "c:S100", Message: "rename this", Line: 4}}, nil
	}

	results := make([]jobs.ServerIssueUpdateResult, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0] = h.svc.Updater.Update(context.Background(), a, "main.c")
	}()
	<-started
	go func() {
		defer wg.Done()
		results[1] = h.svc.Updater.Update(context.Background(), b, "main.c")
	}()
	// let the second update join the in-flight download
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, result := range results {
		assert.Equal(t, SourceServer, result.Source, "update %d", i)
		assert.Equal(t, 1, result.Issues, "update %d", i)
		assert.Equal(t, 1, result.Tracked, "update %d", i)
	}
	for _, module := range []string{"local-a", "local-b"} {
		tracker, ok := h.trackers.Get(module)
		require.True(t, ok, module)
		tracked := tracker.Issues("main.c")
		require.Len(t, tracked, 1, module)
		assert.Equal(t, "AX1", tracked[0].ServerKey, module)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, downloads, 2)
}

func TestUpdater_UnknownProjectIsContained(t *testing.T) {
	h := newHarness(t, projectList{}, nil)

	job, err := jobs.NewJob(jobs.JobTypeServerIssueUpdate, jobs.ServerIssueUpdateScope{ProjectID: "ghost", RelativePath: "a.c"})
	require.NoError(t, err)
	done, err := h.runner.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, jobs.JobCompleted, done.Status)
	assert.Contains(t, h.logs.String(), "Unable to update server issues")
}
