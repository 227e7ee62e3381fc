package pipeline

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mateogon/EpubConsolidator2/internal/segment"
	"github.com/mateogon/EpubConsolidator2/internal/testsupport"
)

const convertNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="np1" playOrder="1">
      <navLabel><text>The Carpet-Bag</text></navLabel>
      <content src="text/ch02.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

func TestConvertFile_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "moby-dick.epub")
	outRoot := filepath.Join(dir, "out")

	long := strings.Repeat("Call me Ishmael. Some years ago, never mind how long precisely. ", 8)
	testsupport.Write(t, src, testsupport.EPUB{
		Title: "Moby-Dick; or, The Whale",
		Docs: []testsupport.Doc{
			{Href: "text/landing.xhtml", Body: `<html><body><p>Contents</p></body></html>`},
			{Href: "text/copyright.xhtml", Body: `<html><body><p>Copyright 1851, Harper and Brothers.</p></body></html>`},
			{Href: "text/ch01.xhtml", Body: `<html><body><h1>Chapter 1: Loomings</h1><p>` + long + `</p></body></html>`},
			{Href: "text/ch02.xhtml", Body: `<html><body><p>` + long + `</p></body></html>`},
		},
		NCX: convertNCX,
	})

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	c := segment.NewConsolidator(outRoot, log, segment.Options{})

	res, err := ConvertFile(src, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.BookTitle != "Moby-Dick; or, The Whale" {
		t.Errorf("unexpected book title %q", res.BookTitle)
	}
	if res.ChapterCount != 2 {
		t.Fatalf("expected 2 chapters, got %d (errors: %v)", res.ChapterCount, res.FileErrors)
	}
	if !res.HasAggregate {
		t.Error("expected aggregate from the copyright fragment")
	}

	bookDir := filepath.Join(outRoot, "Moby_Dick__or__The_Whale")
	// Chapter 1 title comes from the in-body heading, chapter 2 from the NCX.
	for _, name := range []string{
		segment.AggregateFileName,
		"001_Chapter_1__Loomings.txt",
		"002_The_Carpet_Bag.txt",
	} {
		if _, err := os.Stat(filepath.Join(bookDir, name)); err != nil {
			t.Errorf("expected output file %s: %v", name, err)
		}
	}
}

func TestConvertFile_NonContentFirstSpineEntry(t *testing.T) {
	// When the first spine entry is not a content document, the first real
	// content document must still be converted, not skipped as the landing
	// fragment.
	dir := t.TempDir()
	src := filepath.Join(dir, "svg-first.epub")

	long := strings.Repeat("Call me Ishmael. Some years ago, never mind how long precisely. ", 8)
	testsupport.Write(t, src, testsupport.EPUB{
		Title: "Svg First",
		Docs: []testsupport.Doc{
			{Href: "images/cover.svg", Body: `<svg xmlns="http://www.w3.org/2000/svg"/>`, MediaType: "image/svg+xml"},
			{Href: "text/ch01.xhtml", Body: `<html><body><h1>Chapter 1: Loomings</h1><p>` + long + `</p></body></html>`},
		},
	})

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	c := segment.NewConsolidator(filepath.Join(dir, "out"), log, segment.Options{})

	res, err := ConvertFile(src, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ChapterCount != 1 {
		t.Fatalf("expected the first content document to become a chapter, got %d (errors: %v)",
			res.ChapterCount, res.FileErrors)
	}
	if _, err := os.Stat(filepath.Join(res.OutputDir, "001_Chapter_1__Loomings.txt")); err != nil {
		t.Errorf("expected chapter file: %v", err)
	}
}

func TestConvertFile_BadArchive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.epub")
	if err := os.WriteFile(src, []byte("not an epub"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	c := segment.NewConsolidator(filepath.Join(dir, "out"), log, segment.Options{})

	if _, err := ConvertFile(src, c); err == nil {
		t.Error("expected error for a malformed archive")
	}
}
