package pipeline

import (
	"fmt"

	"github.com/mateogon/EpubConsolidator2/internal/epub"
	"github.com/mateogon/EpubConsolidator2/internal/nav"
	"github.com/mateogon/EpubConsolidator2/internal/segment"
)

// ConvertFile runs the whole conversion for one archive: open the
// container, build the navigation title index, and consolidate the spine
// into per-chapter text files.
func ConvertFile(path string, c *segment.Consolidator) (*segment.Result, error) {
	book, err := epub.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	titles := nav.Build(book.NavDocs...)
	return c.Run(toSegmentBook(book), titles)
}

func toSegmentBook(book *epub.Book) segment.Book {
	frags := make([]segment.Fragment, 0, len(book.Documents))
	for _, d := range book.Documents {
		frags = append(frags, segment.Fragment{
			ID:    d.ID,
			Name:  d.Name,
			Spine: d.Spine,
			Title: d.Title,
			Data:  d.Data,
		})
	}
	return segment.Book{Title: book.Title, Fragments: frags}
}
