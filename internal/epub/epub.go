// Package epub adapts an EPUB container into the flat book model the
// consolidator works on: archive metadata, spine-ordered content documents,
// and raw navigation documents. Container parsing itself is delegated to
// github.com/taylorskalyo/goreader.
package epub

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	mediaTypeXHTML = "application/xhtml+xml"
	mediaTypeHTML  = "text/html"
	mediaTypeNCX   = "application/x-dtbncx+xml"
)

// Document is one spine-ordered content item.
type Document struct {
	ID    string
	Href  string
	Name  string // base filename, the navigation index key
	Spine int    // position in the raw spine, counting non-content entries
	Title string // intrinsic title from the document's own <head><title>
	Data  []byte // raw XHTML
}

// Book is a fully-read EPUB: metadata title, content documents in reading
// order, and the raw bytes of every navigation document found (NCX and
// EPUB3 nav).
type Book struct {
	Title     string
	Documents []Document
	NavDocs   [][]byte
}

// Open reads an EPUB archive into memory. Container-level failures (bad
// zip, missing rootfile) are returned to the caller; unreadable individual
// items are skipped, matching the reader's degraded-but-usable contract.
func Open(name string) (*Book, error) {
	rc, err := epub.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, errors.New("epub has no rootfile")
	}
	rf := rc.Rootfiles[0]

	book := &Book{Title: strings.TrimSpace(rf.Title)}

	for i, ref := range rf.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		if ref.Item.MediaType != mediaTypeXHTML && ref.Item.MediaType != mediaTypeHTML {
			continue
		}
		data, err := readItem(ref.Item)
		if err != nil {
			continue
		}
		book.Documents = append(book.Documents, Document{
			ID:    ref.Item.ID,
			Href:  ref.Item.HREF,
			Name:  path.Base(ref.Item.HREF),
			Spine: i,
			Title: headTitle(data),
			Data:  data,
		})
	}

	if ncx := readNCX(rf); ncx != nil {
		book.NavDocs = append(book.NavDocs, ncx)
	}
	if navDoc, err := readNavDoc(name); err == nil && navDoc != nil {
		book.NavDocs = append(book.NavDocs, navDoc)
	}

	return book, nil
}

func readItem(item *epub.Item) ([]byte, error) {
	r, err := item.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// readNCX returns the raw bytes of the NCX table of contents, located
// through the manifest media type, or nil if the book has none.
func readNCX(rf *epub.Rootfile) []byte {
	for i := range rf.Manifest.Items {
		item := &rf.Manifest.Items[i]
		if item.MediaType != mediaTypeNCX {
			continue
		}
		data, err := readItem(item)
		if err != nil {
			return nil
		}
		return data
	}
	return nil
}

// headTitle extracts the text of the document's <head><title> element. The
// scan stops at the opening of <body>; most documents have no meaningful
// title and return "".
func headTitle(data []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(data))
	inTitle := false
	var buf strings.Builder
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch atom.Lookup(name) {
			case atom.Title:
				inTitle = true
			case atom.Body:
				return ""
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if atom.Lookup(name) == atom.Title && inTitle {
				return strings.Join(strings.Fields(buf.String()), " ")
			}
		case html.TextToken:
			if inTitle {
				buf.Write(tokenizer.Text())
			}
		}
	}
}
