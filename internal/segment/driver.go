package segment

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// BookTitlePlaceholder is the output directory name for books whose archive
// metadata carries no title.
const BookTitlePlaceholder = "Unknown_Book"

// AggregateFileName holds all sub-threshold fragment text for one book.
// The 000 prefix keeps it sorted ahead of every chapter.
const AggregateFileName = "000_non_chapter_content.txt"

// maxPathLength is the full-path ceiling before the sanitizer is retried
// with a shorter allowance.
const maxPathLength = 255

const chapterExtension = ".txt"

// Fragment is one spine-ordered content document of a book. Name is the
// base filename of the content source, used for navigation index lookups.
// Spine is the fragment's position in the archive's raw reading order,
// counting entries the reader filtered out.
type Fragment struct {
	ID    string
	Name  string
	Spine int
	Title string // intrinsic title from the document's own metadata, may be empty
	Data  []byte // raw XHTML
}

// Book is the consolidator's input: archive metadata title plus the
// reading-order fragment sequence.
type Book struct {
	Title     string
	Fragments []Fragment
}

// Options tune the segmentation thresholds. Zero values select defaults.
type Options struct {
	MinChapterChars int
	MaxTitleLength  int
}

func (o Options) withDefaults() Options {
	if o.MinChapterChars <= 0 {
		o.MinChapterChars = MinChapterChars
	}
	if o.MaxTitleLength <= 0 {
		o.MaxTitleLength = MaxTitleLength
	}
	return o
}

// Result summarizes one book's consolidation.
type Result struct {
	BookTitle    string   `json:"book_title"`
	OutputDir    string   `json:"output_dir"`
	ChapterCount int      `json:"chapter_count"`
	HasAggregate bool     `json:"has_aggregate"`
	FileErrors   []string `json:"file_errors,omitempty"`
}

// Consolidator converts one book at a time into per-chapter text files
// under outputRoot. Instances are safe for concurrent use: all per-book
// state (sequence counter, aggregate buffer) lives in Run's frame.
type Consolidator struct {
	outputRoot string
	log        *slog.Logger
	opts       Options
}

func NewConsolidator(outputRoot string, log *slog.Logger, opts Options) *Consolidator {
	return &Consolidator{
		outputRoot: outputRoot,
		log:        log,
		opts:       opts.withDefaults(),
	}
}

// Run processes one book's fragments in reading order and writes the named
// text artifacts. A directory creation failure aborts the book; individual
// file write failures are recorded in the result and leave a sequence gap.
func (c *Consolidator) Run(book Book, navTitles map[string]string) (*Result, error) {
	title := book.Title
	if title == "" {
		title = BookTitlePlaceholder
	}

	dir := filepath.Join(c.outputRoot, SanitizeTitle(title, c.opts.MaxTitleLength))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	res := &Result{BookTitle: title, OutputDir: dir}
	log := c.log.With("book", title)

	seq := 1
	var aggregate strings.Builder

	for _, frag := range book.Fragments {
		// The first raw-spine entry is reserved for a navigation-only
		// landing document. The check uses the spine ordinal, not the
		// slice index: when the first spine entry is a non-content item
		// the first fragment here is already real content.
		if frag.Spine == 0 {
			continue
		}

		body, err := ParseBody(frag.Data)
		if err != nil || body == nil {
			log.Debug("skipping fragment without parseable body", "fragment", frag.Name)
			continue
		}

		text := ExtractText(body)
		if text == "" {
			log.Debug("skipping fragment without body text", "fragment", frag.Name)
			continue
		}

		if !IsChapter(text, c.opts.MinChapterChars) {
			aggregate.WriteString(text)
			aggregate.WriteString("\n\n")
			continue
		}

		resolved := ResolveTitle(body, frag.Title, frag.Name, navTitles)
		path, err := c.chapterPath(dir, seq, resolved)
		if err == nil {
			err = os.WriteFile(path, []byte(text), 0o644)
		}
		if err != nil {
			log.Error("chapter write failed", "seq", seq, "title", resolved, "error", err)
			res.FileErrors = append(res.FileErrors, fmt.Sprintf("chapter %03d: %s", seq, err))
		} else {
			res.ChapterCount++
		}
		// The counter advances even on failure so a failed write leaves a
		// gap, never an overwrite of another sequence number.
		seq++
	}

	if strings.TrimSpace(aggregate.String()) != "" {
		path := filepath.Join(dir, AggregateFileName)
		if err := os.WriteFile(path, []byte(aggregate.String()), 0o644); err != nil {
			log.Error("aggregate write failed", "error", err)
			res.FileErrors = append(res.FileErrors, fmt.Sprintf("aggregate: %s", err))
		} else {
			res.HasAggregate = true
		}
	}

	log.Info("book consolidated",
		"chapters", res.ChapterCount,
		"aggregate", res.HasAggregate,
		"file_errors", len(res.FileErrors),
	)
	return res, nil
}

// chapterPath builds the sequenced chapter file path. If the full path would
// exceed the filesystem ceiling, the sanitizer is retried once with an
// allowance shrunk by the prefix and extension; a path that is still too
// long is a defined per-file failure.
func (c *Consolidator) chapterPath(dir string, seq int, title string) (string, error) {
	prefix := fmt.Sprintf("%03d_", seq)
	safe := SanitizeTitle(title, c.opts.MaxTitleLength)
	path := filepath.Join(dir, prefix+safe+chapterExtension)
	if len(path) <= maxPathLength {
		return path, nil
	}

	allowance := c.opts.MaxTitleLength - (len(prefix) + len(chapterExtension))
	safe = SanitizeTitle(title, allowance)
	path = filepath.Join(dir, prefix+safe+chapterExtension)
	if len(path) > maxPathLength {
		return "", fmt.Errorf("path exceeds %d chars after retry: %s", maxPathLength, path)
	}
	return path, nil
}
