package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mateogon/EpubConsolidator2/internal/catalog"
	"github.com/mateogon/EpubConsolidator2/internal/config"
	"github.com/mateogon/EpubConsolidator2/internal/segment"
)

// Orchestrator manages the book conversion pipeline.
type Orchestrator struct {
	jobs         *JobStore
	queue        chan *Job
	consolidator *segment.Consolidator
	catalog      *catalog.Store
	stats        *ConvertStats
	log          *slog.Logger
	cfg          config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline; Start launches its workers.
func NewOrchestrator(cfg config.Config, cat *catalog.Store, log *slog.Logger) *Orchestrator {
	consolidator := segment.NewConsolidator(cfg.OutputDir, log, segment.Options{
		MinChapterChars: cfg.MinChapterChars,
		MaxTitleLength:  cfg.MaxTitleLength,
	})
	return &Orchestrator{
		jobs:         NewJobStore(cfg.JobTTL),
		queue:        make(chan *Job, cfg.MaxQueueSize),
		consolidator: consolidator,
		catalog:      cat,
		stats:        NewConvertStats(time.Hour),
		log:          log,
		cfg:          cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.cfg.WorkerCount; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.consolidator, o.catalog, o.stats, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns the conversion latency tracker.
func (o *Orchestrator) Stats() *ConvertStats {
	return o.stats
}

// Catalog returns the conversion catalog for direct use by API handlers.
func (o *Orchestrator) Catalog() *catalog.Store {
	return o.catalog
}
