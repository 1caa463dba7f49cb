package jobs

import (
	"testing"
	"time"

	"linttrack/internal/logging"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(t.TempDir(), logging.NewDiscardLogger())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_CreateGetUpdate(t *testing.T) {
	store := openTestStore(t)

	job, _ := NewJob(JobTypeServerIssueUpdate, ServerIssueUpdateScope{ProjectID: "core", RelativePath: "a.c"})
	if err := store.CreateJob(job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}

	got, err := store.GetJob(job.ID)
	if err != nil || got == nil {
		t.Fatalf("GetJob() = %v, %v", got, err)
	}
	if got.Scope != job.Scope || got.Type != JobTypeServerIssueUpdate || got.Status != JobQueued {
		t.Errorf("unexpected job %+v", got)
	}
	if !got.CreatedAt.Equal(job.CreatedAt.Truncate(time.Microsecond)) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, job.CreatedAt)
	}

	job.MarkStarted()
	job.MarkFailed(nil)
	if err := store.UpdateJob(job); err != nil {
		t.Fatalf("UpdateJob() error = %v", err)
	}
	got, _ = store.GetJob(job.ID)
	if got.Status != JobFailed || got.StartedAt == nil || got.CompletedAt == nil {
		t.Errorf("unexpected job after update %+v", got)
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := openTestStore(t)
	got, err := store.GetJob("nope")
	if err != nil || got != nil {
		t.Errorf("GetJob() = %v, %v; want nil, nil", got, err)
	}
	if err := store.UpdateJob(&Job{ID: "nope"}); err == nil {
		t.Error("UpdateJob() should fail for a missing job")
	}
}

func TestStore_ListJobs(t *testing.T) {
	store := openTestStore(t)

	parent, _ := NewJob(JobTypeChangeSetAnalysis, nil)
	_ = store.CreateJob(parent)
	for i := 0; i < 3; i++ {
		child, _ := NewChildJob(parent, JobTypeAnalyzeProject, nil)
		child.CreatedAt = child.CreatedAt.Add(time.Duration(i+1) * time.Millisecond)
		if i == 2 {
			child.Status = JobFailed
		}
		_ = store.CreateJob(child)
	}

	all, err := store.ListJobs(ListJobsOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if all.TotalCount != 4 || len(all.Jobs) != 4 {
		t.Errorf("TotalCount = %d, len = %d", all.TotalCount, len(all.Jobs))
	}
	if all.Jobs[0].Status != JobFailed {
		t.Errorf("expected newest job first, got %+v", all.Jobs[0])
	}

	children, _ := store.ListJobs(ListJobsOptions{ParentID: parent.ID, Status: []JobStatus{JobQueued}})
	if children.TotalCount != 2 {
		t.Errorf("queued children = %d, want 2", children.TotalCount)
	}

	typed, _ := store.ListJobs(ListJobsOptions{Type: []JobType{JobTypeChangeSetAnalysis}, Limit: 1})
	if typed.TotalCount != 1 || typed.Jobs[0].ID != parent.ID {
		t.Errorf("unexpected typed listing %+v", typed)
	}
}

func TestStore_FailInterruptedAndCleanup(t *testing.T) {
	store := openTestStore(t)

	running, _ := NewJob(JobTypeAnalyzeProject, nil)
	running.MarkStarted()
	_ = store.CreateJob(running)

	old, _ := NewJob(JobTypeAnalyzeProject, nil)
	_ = old.MarkCompleted(nil)
	past := time.Now().UTC().Add(-48 * time.Hour)
	old.CompletedAt = &past
	_ = store.CreateJob(old)

	n, err := store.FailInterruptedJobs()
	if err != nil || n != 1 {
		t.Fatalf("FailInterruptedJobs() = %d, %v", n, err)
	}
	got, _ := store.GetJob(running.ID)
	if got.Status != JobFailed || got.Error != "interrupted" {
		t.Errorf("unexpected interrupted job %+v", got)
	}

	n, err = store.CleanupOldJobs(24 * time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("CleanupOldJobs() = %d, %v", n, err)
	}
	if gone, _ := store.GetJob(old.ID); gone != nil {
		t.Error("old job should be removed")
	}
	if kept, _ := store.GetJob(running.ID); kept == nil {
		t.Error("recent job should be kept")
	}
}
