// Package nav builds a title index from EPUB navigation documents: the
// EPUB2 NCX table of contents and the EPUB3 XHTML nav document. The index
// maps a content-source base filename (anchor and path stripped) to its
// human-readable label and serves as a hint source for chapter title
// resolution.
package nav

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Index maps content-source filenames to navigation labels.
type Index map[string]string

// ncx mirrors the subset of the NCX schema carrying (playOrder, label,
// content src) triples.
type ncx struct {
	XMLName xml.Name `xml:"ncx"`
	NavMap  navMap   `xml:"navMap"`
}

type navMap struct {
	NavPoints []navPoint `xml:"navPoint"`
}

type navPoint struct {
	PlayOrder int        `xml:"playOrder,attr"`
	Label     navLabel   `xml:"navLabel"`
	Content   navContent `xml:"content"`
	Children  []navPoint `xml:"navPoint"`
}

type navLabel struct {
	Text string `xml:"text"`
}

type navContent struct {
	Src string `xml:"src,attr"`
}

// Build merges every navigation document into one index. Documents are
// processed in the order given; when two entries reference the same source
// file the later one wins. Unparseable documents contribute nothing: a
// missing or broken TOC degrades title resolution, it never fails it.
func Build(docs ...[]byte) Index {
	idx := make(Index)
	for _, data := range docs {
		if len(data) == 0 {
			continue
		}
		entries, err := ParseNCX(data)
		if err != nil || len(entries) == 0 {
			entries = ParseNavDoc(data)
		}
		for k, v := range entries {
			idx[k] = v
		}
	}
	return idx
}

// ParseNCX extracts navPoint entries from an EPUB2 NCX document, recursing
// into nested points in document order.
func ParseNCX(data []byte) (Index, error) {
	var toc ncx
	if err := xml.Unmarshal(data, &toc); err != nil {
		return nil, fmt.Errorf("parse ncx: %w", err)
	}

	idx := make(Index)
	var walk func(points []navPoint)
	walk = func(points []navPoint) {
		for _, np := range points {
			label := strings.TrimSpace(np.Label.Text)
			key := Key(np.Content.Src)
			if key != "" && label != "" {
				idx[key] = label
			}
			walk(np.Children)
		}
	}
	walk(toc.NavMap.NavPoints)
	return idx, nil
}

// ParseNavDoc extracts anchor entries from an EPUB3 XHTML nav document.
// Anchors inside a <nav epub:type="toc"> element are preferred; when no nav
// element is typed, any <nav> is accepted.
func ParseNavDoc(data []byte) Index {
	idx := make(Index)
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return idx
	}

	root := findTocNav(doc, true)
	if root == nil {
		root = findTocNav(doc, false)
	}
	if root == nil {
		return idx
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			href := attrValue(n, "href")
			label := strings.Join(strings.Fields(textContent(n)), " ")
			if key := Key(href); key != "" && label != "" {
				idx[key] = label
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return idx
}

// Key normalizes a content-source reference to an index key: the base
// filename with any #anchor suffix removed.
func Key(ref string) string {
	if i := strings.Index(ref, "#"); i >= 0 {
		ref = ref[:i]
	}
	if ref == "" {
		return ""
	}
	return path.Base(ref)
}

func findTocNav(n *html.Node, requireTocType bool) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Nav {
		if !requireTocType || attrValue(n, "epub:type") == "toc" {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTocNav(c, requireTocType); found != nil {
			return found
		}
	}
	return nil
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}
