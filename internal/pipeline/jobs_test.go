package pipeline

import (
	"testing"
	"time"

	"github.com/mateogon/EpubConsolidator2/internal/segment"
)

func TestNewJob_Defaults(t *testing.T) {
	job := NewJob("book.epub", "/tmp/book.epub", true)
	if job.ID == "" {
		t.Error("expected generated job ID")
	}
	if job.Status != StatusQueued || job.Phase != "queued" {
		t.Errorf("expected queued job, got %s/%s", job.Status, job.Phase)
	}
	if job.SourcePath() != "/tmp/book.epub" {
		t.Errorf("unexpected source path %q", job.SourcePath())
	}
	if !job.RemoveSource() {
		t.Error("expected removeSource to be set")
	}
}

func TestNewJob_UniqueIDs(t *testing.T) {
	a := NewJob("a.epub", "/tmp/a", false)
	b := NewJob("b.epub", "/tmp/b", false)
	if a.ID == b.ID {
		t.Errorf("expected unique job IDs, both %q", a.ID)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob("book.epub", "/tmp/book.epub", false)

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusReading, "reading archive"},
		{StatusSegmenting, "segmenting fragments"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := NewJob("book.epub", "/tmp/book.epub", false)
	job.AddError("chapter 003 write failed")
	job.AddError("chapter 007 write failed")

	snap := job.Snapshot()
	if len(snap.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Errors))
	}
	if snap.Errors[0] != "chapter 003 write failed" {
		t.Errorf("expected first error preserved, got %q", snap.Errors[0])
	}
}

func TestJob_SetResult(t *testing.T) {
	job := NewJob("book.epub", "/tmp/book.epub", false)
	res := &segment.Result{BookTitle: "Moby-Dick", ChapterCount: 135}
	job.SetResult(res, 42)

	snap := job.Snapshot()
	if snap.Result == nil || snap.Result.ChapterCount != 135 {
		t.Errorf("expected result in snapshot, got %+v", snap.Result)
	}
	if snap.CatalogID != 42 {
		t.Errorf("expected catalog ID 42, got %d", snap.CatalogID)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return a non-nil errors slice.
	job := NewJob("book.epub", "/tmp/book.epub", false)
	snap := job.Snapshot()
	if snap.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := NewJob("book.epub", "/tmp/book.epub", false)
	store.Put(job)

	got := store.Get(job.ID)
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != job.ID {
		t.Errorf("expected ID %q, got %q", job.ID, got.ID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := NewJob("old.epub", "/tmp/old", false)
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	fresh := NewJob("new.epub", "/tmp/new", false)
	store.Put(fresh)

	store.Cleanup()

	if store.Get(expired.ID) != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get(fresh.ID) == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupConcurrentWithUpdates(t *testing.T) {
	// Cleanup reads job timestamps while workers update them; both sides
	// must go through the job mutex.
	store := NewJobStore(time.Hour)
	job := NewJob("book.epub", "/tmp/book.epub", false)
	store.Put(job)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			job.SetStatus(StatusReading, "reading archive")
		}
	}()
	for i := 0; i < 200; i++ {
		store.Cleanup()
	}
	<-done

	if store.Get(job.ID) == nil {
		t.Error("expected active job to survive concurrent cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on an empty store.
	store.Cleanup()
}
