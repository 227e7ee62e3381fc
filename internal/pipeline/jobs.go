package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mateogon/EpubConsolidator2/internal/segment"
)

// JobStatus represents the state of a conversion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusReading    JobStatus = "reading"
	StatusSegmenting JobStatus = "segmenting"
	StatusCompleted  JobStatus = "completed"
	StatusPartial    JobStatus = "partial"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the state of a single book conversion.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	Filename string    `json:"filename"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`

	CatalogID int64           `json:"catalog_id,omitempty"`
	Result    *segment.Result `json:"result,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	sourcePath   string
	removeSource bool
	errors       []string
}

// NewJob creates a queued job for an on-disk archive. When removeSource is
// true the worker deletes sourcePath after processing (uploads are spooled
// to temp files).
func NewJob(filename, sourcePath string, removeSource bool) *Job {
	now := time.Now()
	return &Job{
		ID:           uuid.NewString(),
		Filename:     filename,
		Status:       StatusQueued,
		Phase:        "queued",
		CreatedAt:    now,
		UpdatedAt:    now,
		sourcePath:   sourcePath,
		removeSource: removeSource,
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetResult attaches the consolidation summary and catalog row ID.
func (j *Job) SetResult(res *segment.Result, catalogID int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Result = res
	j.CatalogID = catalogID
	j.UpdatedAt = time.Now()
}

// SourcePath returns the archive path this job reads from.
func (j *Job) SourcePath() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sourcePath
}

// RemoveSource reports whether the worker owns the source file.
func (j *Job) RemoveSource() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.removeSource
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string          `json:"job_id"`
	Filename  string          `json:"filename"`
	Status    JobStatus       `json:"status"`
	Phase     string          `json:"phase"`
	CatalogID int64           `json:"catalog_id,omitempty"`
	Result    *segment.Result `json:"result,omitempty"`
	Errors    []string        `json:"errors"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:        j.ID,
		Filename:  j.Filename,
		Status:    j.Status,
		Phase:     j.Phase,
		CatalogID: j.CatalogID,
		Result:    j.Result,
		Errors:    errs,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}
