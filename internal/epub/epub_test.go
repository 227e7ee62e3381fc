package epub

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mateogon/EpubConsolidator2/internal/testsupport"
)

const fixtureNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="np1" playOrder="1">
      <navLabel><text>Chapter One</text></navLabel>
      <content src="text/ch01.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.epub")
	testsupport.Write(t, path, testsupport.EPUB{
		Title: "The Fixture Book",
		Docs: []testsupport.Doc{
			{Href: "text/cover.xhtml", Body: `<html><head><title>Cover Page</title></head><body><p>Cover</p></body></html>`},
			{Href: "text/ch01.xhtml", Body: `<html><head></head><body><h1>Chapter One</h1><p>Text.</p></body></html>`},
		},
		NCX:    fixtureNCX,
		NavDoc: `<html><body><nav epub:type="toc"><ol><li><a href="text/ch01.xhtml">Chapter One</a></li></ol></nav></body></html>`,
	})
	return path
}

func TestOpen_ReadsMetadataAndSpine(t *testing.T) {
	book, err := Open(writeFixture(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if book.Title != "The Fixture Book" {
		t.Errorf("expected metadata title, got %q", book.Title)
	}
	if len(book.Documents) != 2 {
		t.Fatalf("expected 2 spine documents, got %d", len(book.Documents))
	}
	if book.Documents[0].Name != "cover.xhtml" || book.Documents[1].Name != "ch01.xhtml" {
		t.Errorf("unexpected document order: %q, %q", book.Documents[0].Name, book.Documents[1].Name)
	}
	if book.Documents[0].Spine != 0 || book.Documents[1].Spine != 1 {
		t.Errorf("unexpected spine ordinals: %d, %d", book.Documents[0].Spine, book.Documents[1].Spine)
	}
	if !strings.Contains(string(book.Documents[1].Data), "Chapter One") {
		t.Error("expected raw document bytes to be read")
	}
}

func TestOpen_IntrinsicTitleFromHead(t *testing.T) {
	book, err := Open(writeFixture(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if book.Documents[0].Title != "Cover Page" {
		t.Errorf("expected head title %q, got %q", "Cover Page", book.Documents[0].Title)
	}
	if book.Documents[1].Title != "" {
		t.Errorf("expected empty intrinsic title, got %q", book.Documents[1].Title)
	}
}

func TestOpen_CollectsNavigationDocuments(t *testing.T) {
	book, err := Open(writeFixture(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// One NCX plus one EPUB3 nav document.
	if len(book.NavDocs) != 2 {
		t.Fatalf("expected 2 navigation documents, got %d", len(book.NavDocs))
	}
	if !strings.Contains(string(book.NavDocs[0]), "navMap") {
		t.Error("expected first nav doc to be the NCX")
	}
	if !strings.Contains(string(book.NavDocs[1]), "epub:type") {
		t.Error("expected second nav doc to be the EPUB3 nav")
	}
}

func TestOpen_SpineOrdinalsCountNonContentEntries(t *testing.T) {
	// A non-content first spine entry is filtered out of Documents, but the
	// remaining documents keep their raw spine positions.
	path := filepath.Join(t.TempDir(), "svg-first.epub")
	testsupport.Write(t, path, testsupport.EPUB{
		Title: "Svg First",
		Docs: []testsupport.Doc{
			{Href: "images/cover.svg", Body: `<svg xmlns="http://www.w3.org/2000/svg"/>`, MediaType: "image/svg+xml"},
			{Href: "text/ch01.xhtml", Body: `<html><body><p>Text.</p></body></html>`},
		},
	})

	book, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(book.Documents) != 1 {
		t.Fatalf("expected 1 content document, got %d", len(book.Documents))
	}
	if book.Documents[0].Name != "ch01.xhtml" || book.Documents[0].Spine != 1 {
		t.Errorf("expected ch01.xhtml at spine 1, got %q at %d",
			book.Documents[0].Name, book.Documents[0].Spine)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope.epub")); err == nil {
		t.Error("expected error for missing archive")
	}
}

func TestOpen_NotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.epub")
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected error for malformed archive")
	}
}

func TestHeadTitle(t *testing.T) {
	cases := []struct{ markup, want string }{
		{`<html><head><title>  A   Title </title></head><body/></html>`, "A Title"},
		{`<html><head></head><body><p>x</p></body></html>`, ""},
		{`<html><body><title>after body</title></body></html>`, ""},
	}
	for _, tc := range cases {
		if got := headTitle([]byte(tc.markup)); got != tc.want {
			t.Errorf("headTitle(%q) = %q, want %q", tc.markup, got, tc.want)
		}
	}
}
