package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mateogon/EpubConsolidator2/internal/catalog"
	"github.com/mateogon/EpubConsolidator2/internal/pipeline"
	"github.com/mateogon/EpubConsolidator2/internal/segment"
)

type convertOptions struct {
	outputDir string
	dbPath    string
	workers   int
	minChars  int
	maxTitle  int
	verbose   bool
}

func newConvertCommand() *cobra.Command {
	opts := convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert [epub|dir]...",
		Short: "Convert EPUB files into per-chapter text directories",
		Long: "Convert one or more EPUB files into directories of numbered\n" +
			"chapter text files. Directory arguments are expanded to every\n" +
			"*.epub file they contain.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "extracted_text", "Root directory for converted books")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "Record conversions in this catalog database")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 4, "Number of books to convert concurrently")
	cmd.Flags().IntVar(&opts.minChars, "min-chars", segment.MinChapterChars, "Minimum character count for a chapter")
	cmd.Flags().IntVar(&opts.maxTitle, "max-title", segment.MaxTitleLength, "Maximum length of sanitized titles")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log per-chapter progress")

	return cmd
}

func runConvert(cmd *cobra.Command, args []string, opts convertOptions) error {
	paths, err := expandArgs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no EPUB files found in %s", strings.Join(args, ", "))
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var store *catalog.Store
	if opts.dbPath != "" {
		store, err = catalog.Open(opts.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	consolidator := segment.NewConsolidator(opts.outputDir, log, segment.Options{
		MinChapterChars: opts.minChars,
		MaxTitleLength:  opts.maxTitle,
	})

	type outcome struct {
		path   string
		result *segment.Result
		err    error
	}
	outcomes := make([]outcome, len(paths))

	workers := opts.workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := pipeline.ConvertFile(path, consolidator)
			outcomes[i] = outcome{path: path, result: res, err: err}
		}(i, path)
	}
	wg.Wait()

	failed := 0
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		row := conversionRow(o.path, o.result, o.err)
		rows = append(rows, row)
		if o.err != nil {
			failed++
		}
		if store != nil {
			recordOutcome(cmd.Context(), store, log, o.path, o.result, o.err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Source", "Book", "Chapters", "Extra", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))

	if failed > 0 {
		return fmt.Errorf("%d of %d books failed", failed, len(paths))
	}
	return nil
}

func conversionRow(path string, res *segment.Result, err error) []string {
	name := filepath.Base(path)
	if err != nil {
		return []string{name, "", "0", "", "failed: " + err.Error()}
	}
	extra := ""
	if res.HasAggregate {
		extra = "aggregate"
	}
	status := "ok"
	if len(res.FileErrors) > 0 {
		status = fmt.Sprintf("partial (%d file errors)", len(res.FileErrors))
	}
	return []string{name, res.BookTitle, strconv.Itoa(res.ChapterCount), extra, status}
}

func recordOutcome(ctx context.Context, store *catalog.Store, log *slog.Logger, path string, res *segment.Result, convErr error) {
	conv := catalog.Conversion{
		SourceFile: filepath.Base(path),
		Status:     catalog.StatusCompleted,
	}
	switch {
	case convErr != nil:
		conv.Status = catalog.StatusFailed
		conv.Error = convErr.Error()
	default:
		conv.BookTitle = res.BookTitle
		conv.OutputDir = res.OutputDir
		conv.ChapterCount = res.ChapterCount
		conv.HasAggregate = res.HasAggregate
		if len(res.FileErrors) > 0 {
			conv.Status = catalog.StatusPartial
			conv.Error = strings.Join(res.FileErrors, "; ")
		}
	}
	if _, err := store.Record(ctx, conv); err != nil {
		log.Warn("failed to record conversion", "source", path, "error", err)
	}
}

// expandArgs resolves each argument to a list of EPUB paths. Directories
// contribute their *.epub entries, sorted; plain files are taken as-is.
func expandArgs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.epub"))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", arg, err)
		}
		sort.Strings(matches)
		paths = append(paths, matches...)
	}
	return paths, nil
}
