package jobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"linttrack/internal/errors"
	"linttrack/internal/logging"
)

// JobHandler executes a specific type of job.
type JobHandler func(ctx context.Context, job *Job, progress func(int)) (interface{}, error)

// Runner manages job execution. Submitted jobs run on a fixed pool of
// workers; Run executes a job in the calling goroutine so that it can submit
// children and wait on them without holding a worker.
type Runner struct {
	store    *Store
	logger   *logging.Logger
	handlers map[JobType]JobHandler

	queue       chan *Job
	queueSize   int
	workerCount int

	// Control
	baseCtx    context.Context
	baseCancel context.CancelFunc
	done       chan struct{}
	stopOnce   sync.Once
	cancel     map[string]context.CancelFunc
	finished   map[string]chan struct{}

	mu sync.RWMutex
	wg sync.WaitGroup

	// Metrics
	processedCount atomic.Int64
	failedCount    atomic.Int64

	retention time.Duration
}

// RunnerConfig contains configuration for the job runner.
type RunnerConfig struct {
	QueueSize   int
	WorkerCount int
	Retention   time.Duration // Terminal jobs older than this are pruned on Start; zero keeps everything
}

// DefaultRunnerConfig returns the default runner configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		QueueSize:   100,
		WorkerCount: 4,
		Retention:   7 * 24 * time.Hour,
	}
}

// NewRunner creates a new job runner.
func NewRunner(store *Store, logger *logging.Logger, config RunnerConfig) *Runner {
	if config.QueueSize <= 0 {
		config.QueueSize = 100
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		store:       store,
		logger:      logger,
		handlers:    make(map[JobType]JobHandler),
		queue:       make(chan *Job, config.QueueSize),
		queueSize:   config.QueueSize,
		workerCount: config.WorkerCount,
		baseCtx:     ctx,
		baseCancel:  cancel,
		done:        make(chan struct{}),
		cancel:      make(map[string]context.CancelFunc),
		finished:    make(map[string]chan struct{}),
		retention:   config.Retention,
	}
}

// RegisterHandler registers a handler for a job type.
func (r *Runner) RegisterHandler(jobType JobType, handler JobHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = handler
	r.logger.Debug("Registered job handler", map[string]interface{}{
		"type": jobType,
	})
}

// Start begins processing jobs. Jobs left running by a previous process are
// marked failed, and old terminal jobs are pruned.
func (r *Runner) Start() error {
	r.logger.Debug("Starting job runner", map[string]interface{}{
		"workers":   r.workerCount,
		"queueSize": r.queueSize,
	})

	if n, err := r.store.FailInterruptedJobs(); err != nil {
		r.logger.Warn("Failed to mark interrupted jobs", map[string]interface{}{
			"error": err.Error(),
		})
	} else if n > 0 {
		r.logger.Info("Marked interrupted jobs as failed", map[string]interface{}{
			"count": n,
		})
	}

	if r.retention > 0 {
		if n, err := r.store.CleanupOldJobs(r.retention); err != nil {
			r.logger.Warn("Failed to prune old jobs", map[string]interface{}{
				"error": err.Error(),
			})
		} else if n > 0 {
			r.logger.Debug("Pruned old jobs", map[string]interface{}{
				"count": n,
			})
		}
	}

	for i := 0; i < r.workerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	return nil
}

// Stop gracefully shuts down the runner, cancelling running jobs.
func (r *Runner) Stop(timeout time.Duration) error {
	r.logger.Debug("Stopping job runner", nil)

	r.stopOnce.Do(func() {
		close(r.done)
		r.baseCancel()
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Debug("Job runner stopped cleanly", nil)
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("job runner shutdown timed out after %v", timeout)
	}
}

// Submit persists a job and queues it for a worker. It blocks while the queue
// is full.
func (r *Runner) Submit(ctx context.Context, job *Job) error {
	if !r.IsRunning() {
		return fmt.Errorf("runner is shutting down")
	}
	if err := r.store.CreateJob(job); err != nil {
		return fmt.Errorf("failed to persist job: %w", err)
	}
	r.track(job.ID)

	select {
	case r.queue <- job:
		r.logger.Debug("Job queued", map[string]interface{}{
			"jobId":    job.ID,
			"parentId": job.ParentID,
			"type":     job.Type,
		})
		return nil
	case <-ctx.Done():
		job.MarkCancelled()
		r.finish(job)
		return errors.New(errors.Cancelled, "job submission cancelled", ctx.Err())
	case <-r.done:
		job.MarkCancelled()
		r.finish(job)
		return fmt.Errorf("runner is shutting down")
	}
}

// Run persists a job and executes it in the calling goroutine. The returned
// job is the terminal snapshot; the error is the handler's error, if any.
func (r *Runner) Run(ctx context.Context, job *Job) (*Job, error) {
	if err := r.store.CreateJob(job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}
	r.track(job.ID)
	err := r.processJob(ctx, job)

	snapshot, getErr := r.store.GetJob(job.ID)
	if getErr != nil || snapshot == nil {
		return job, err
	}
	return snapshot, err
}

// Wait blocks until every listed job is terminal and returns their final
// state in the same order. When ctx ends first it returns a CANCELLED error;
// the jobs themselves keep running.
func (r *Runner) Wait(ctx context.Context, jobIDs []string) ([]*Job, error) {
	for _, id := range jobIDs {
		r.mu.RLock()
		ch, ok := r.finished[id]
		r.mu.RUnlock()
		if !ok {
			continue
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, errors.New(errors.Cancelled, "wait interrupted before all jobs finished", ctx.Err())
		}
	}

	out := make([]*Job, 0, len(jobIDs))
	for _, id := range jobIDs {
		job, err := r.store.GetJob(id)
		if err != nil {
			return nil, err
		}
		if job == nil {
			return nil, errors.New(errors.NotFound, "job not found", nil).WithDetails(map[string]interface{}{
				"jobId": id,
			})
		}
		out = append(out, job)
	}
	return out, nil
}

// Cancel attempts to cancel a job.
func (r *Runner) Cancel(jobID string) error {
	job, err := r.store.GetJob(jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return errors.New(errors.NotFound, "job not found", nil).WithDetails(map[string]interface{}{
			"jobId": jobID,
		})
	}

	if !job.CanCancel() {
		return fmt.Errorf("job cannot be cancelled in state: %s", job.Status)
	}

	r.mu.Lock()
	cancel, running := r.cancel[jobID]
	r.mu.Unlock()
	if running {
		// the worker records the cancelled state when the handler returns
		cancel()
		return nil
	}

	job.MarkCancelled()
	return r.store.UpdateJob(job)
}

// GetJob retrieves a job by ID.
func (r *Runner) GetJob(jobID string) (*Job, error) {
	return r.store.GetJob(jobID)
}

// ListJobs lists jobs with filters.
func (r *Runner) ListJobs(opts ListJobsOptions) (*ListJobsResponse, error) {
	return r.store.ListJobs(opts)
}

func (r *Runner) track(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.finished[jobID]; !ok {
		r.finished[jobID] = make(chan struct{})
	}
}

// finish persists the job's final state and releases its waiters.
func (r *Runner) finish(job *Job) {
	if err := r.store.UpdateJob(job); err != nil {
		r.logger.Error("Failed to save job final state", map[string]interface{}{
			"jobId": job.ID,
			"error": err.Error(),
		})
	}

	r.mu.Lock()
	ch, ok := r.finished[job.ID]
	delete(r.finished, job.ID)
	r.mu.Unlock()
	if ok {
		close(ch)
	}
}

// worker processes jobs from the queue.
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("Job worker started", map[string]interface{}{
		"workerId": id,
	})

	for {
		select {
		case job, ok := <-r.queue:
			if !ok {
				return
			}
			_ = r.processJob(r.baseCtx, job)

		case <-r.done:
			r.drain()
			r.logger.Debug("Job worker stopping", map[string]interface{}{
				"workerId": id,
			})
			return
		}
	}
}

// drain cancels jobs still queued at shutdown so their waiters are released.
func (r *Runner) drain() {
	for {
		select {
		case job := <-r.queue:
			job.MarkCancelled()
			r.finish(job)
		default:
			return
		}
	}
}

// processJob executes a single job and records its terminal state.
func (r *Runner) processJob(parent context.Context, job *Job) (err error) {
	defer r.finish(job)

	if stored, getErr := r.store.GetJob(job.ID); getErr == nil && stored != nil && stored.Status == JobCancelled {
		// cancelled while queued
		job.MarkCancelled()
		return nil
	}

	r.mu.RLock()
	handler, ok := r.handlers[job.Type]
	r.mu.RUnlock()

	if !ok {
		r.logger.Error("No handler for job type", map[string]interface{}{
			"jobId": job.ID,
			"type":  job.Type,
		})
		err = fmt.Errorf("no handler for job type: %s", job.Type)
		job.MarkFailed(err)
		r.failedCount.Add(1)
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	r.mu.Lock()
	r.cancel[job.ID] = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.cancel, job.ID)
		r.mu.Unlock()
		cancel()
	}()

	job.MarkStarted()
	if err := r.store.UpdateJob(job); err != nil {
		r.logger.Error("Failed to update job status", map[string]interface{}{
			"jobId": job.ID,
			"error": err.Error(),
		})
	}

	r.logger.Debug("Processing job", map[string]interface{}{
		"jobId": job.ID,
		"type":  job.Type,
	})

	var progressMu sync.Mutex
	progress := func(pct int) {
		progressMu.Lock()
		defer progressMu.Unlock()
		job.SetProgress(pct)
		if err := r.store.UpdateJob(job); err != nil {
			r.logger.Warn("Failed to update job progress", map[string]interface{}{
				"jobId": job.ID,
				"error": err.Error(),
			})
		}
	}

	startTime := time.Now()
	result, err := r.invoke(ctx, handler, job, progress)
	duration := time.Since(startTime)

	progressMu.Lock()
	defer progressMu.Unlock()

	if err != nil {
		if ctx.Err() == context.Canceled || errors.Is(err, errors.Cancelled) {
			job.MarkCancelled()
			job.Error = err.Error()
			r.logger.Info("Job cancelled", map[string]interface{}{
				"jobId":    job.ID,
				"type":     job.Type,
				"duration": duration.String(),
			})
		} else {
			job.MarkFailed(err)
			r.failedCount.Add(1)
			r.logger.Error("Job failed", map[string]interface{}{
				"jobId":    job.ID,
				"type":     job.Type,
				"error":    err.Error(),
				"duration": duration.String(),
			})
		}
		return err
	}

	if err := job.MarkCompleted(result); err != nil {
		r.logger.Error("Failed to serialize job result", map[string]interface{}{
			"jobId": job.ID,
			"error": err.Error(),
		})
		job.MarkFailed(err)
		r.failedCount.Add(1)
		return err
	}

	r.processedCount.Add(1)
	r.logger.Debug("Job completed", map[string]interface{}{
		"jobId":    job.ID,
		"type":     job.Type,
		"duration": duration.String(),
	})
	return nil
}

// invoke runs the handler, turning a panic into an error.
func (r *Runner) invoke(ctx context.Context, handler JobHandler, job *Job, progress func(int)) (result interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Job handler panicked", map[string]interface{}{
				"jobId": job.ID,
				"panic": fmt.Sprint(p),
				"stack": string(debug.Stack()),
			})
			result = nil
			err = errors.New(errors.InternalError, fmt.Sprintf("job handler panicked: %v", p), nil)
		}
	}()
	return handler(ctx, job, progress)
}

// Stats returns runner statistics.
func (r *Runner) Stats() map[string]interface{} {
	r.mu.RLock()
	runningCount := len(r.cancel)
	r.mu.RUnlock()

	return map[string]interface{}{
		"queueLength":    len(r.queue),
		"queueCapacity":  r.queueSize,
		"runningJobs":    runningCount,
		"processedTotal": r.processedCount.Load(),
		"failedTotal":    r.failedCount.Load(),
		"workerCount":    r.workerCount,
	}
}

// QueueLength returns the current queue length.
func (r *Runner) QueueLength() int {
	return len(r.queue)
}

// IsRunning returns true if the runner is active.
func (r *Runner) IsRunning() bool {
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}
