package pipeline

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/mateogon/EpubConsolidator2/internal/catalog"
	"github.com/mateogon/EpubConsolidator2/internal/epub"
	"github.com/mateogon/EpubConsolidator2/internal/nav"
	"github.com/mateogon/EpubConsolidator2/internal/segment"
)

// Worker processes a single book conversion job.
type Worker struct {
	consolidator *segment.Consolidator
	catalog      *catalog.Store
	stats        *ConvertStats
	log          *slog.Logger
}

func NewWorker(c *segment.Consolidator, cat *catalog.Store, stats *ConvertStats, log *slog.Logger) *Worker {
	return &Worker{
		consolidator: c,
		catalog:      cat,
		stats:        stats,
		log:          log,
	}
}

// Process runs the full conversion pipeline for a job. One book's failure
// never touches another book's output directory: all filesystem effects are
// confined to the directory derived from this book's title.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "file", job.Filename)
	start := time.Now()

	src := job.SourcePath()
	if job.RemoveSource() {
		defer os.Remove(src)
	}

	// Phase 1: Read the container.
	job.SetStatus(StatusReading, "reading archive")
	book, err := epub.Open(src)
	if err != nil {
		log.Error("archive read failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "reading")
		w.record(ctx, job, catalog.Conversion{
			SourceFile: job.Filename,
			Status:     catalog.StatusFailed,
			Error:      err.Error(),
		})
		return
	}

	// Phase 2: Segment the spine into chapters.
	job.SetStatus(StatusSegmenting, "segmenting fragments")
	titles := nav.Build(book.NavDocs...)
	res, err := w.consolidator.Run(toSegmentBook(book), titles)
	if err != nil {
		log.Error("segmentation failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "segmenting")
		w.record(ctx, job, catalog.Conversion{
			SourceFile: job.Filename,
			BookTitle:  book.Title,
			Status:     catalog.StatusFailed,
			Error:      err.Error(),
		})
		return
	}

	status := catalog.StatusCompleted
	jobStatus := StatusCompleted
	if len(res.FileErrors) > 0 {
		status = catalog.StatusPartial
		jobStatus = StatusPartial
		for _, fe := range res.FileErrors {
			job.AddError(fe)
		}
	}

	id := w.record(ctx, job, catalog.Conversion{
		SourceFile:   job.Filename,
		BookTitle:    res.BookTitle,
		OutputDir:    res.OutputDir,
		ChapterCount: res.ChapterCount,
		HasAggregate: res.HasAggregate,
		Status:       status,
	})

	w.stats.Record(time.Since(start).Milliseconds())
	job.SetResult(res, id)
	job.SetStatus(jobStatus, "done")
	log.Info("conversion finished",
		"book", res.BookTitle,
		"chapters", res.ChapterCount,
		"status", jobStatus,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// record writes the catalog row; catalog failures are logged but never fail
// the conversion itself.
func (w *Worker) record(ctx context.Context, job *Job, c catalog.Conversion) int64 {
	if w.catalog == nil {
		return 0
	}
	id, err := w.catalog.Record(ctx, c)
	if err != nil {
		w.log.Warn("catalog record failed", "job_id", job.ID, "error", err)
		return 0
	}
	return id
}
