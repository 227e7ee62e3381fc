package segment

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// headingAtoms is the set of heading tags considered chapter titles. The
// first one found in document order wins, whatever its level.
var headingAtoms = map[atom.Atom]bool{
	atom.H1: true,
	atom.H2: true,
	atom.H3: true,
	atom.H4: true,
}

// classProbes are checked in order when no heading exists. Each probe is a
// (tag, class) pair commonly used by publishers for unmarked chapter titles.
var classProbes = []struct {
	tag   atom.Atom
	class string
}{
	{atom.P, "title"},
	{atom.Div, "chapter-title"},
	{atom.Span, "chapter-title"},
}

// likelyTitleParents are container tags whose <em> children tend to be
// decorative chapter titles rather than inline emphasis.
var likelyTitleParents = map[atom.Atom]bool{
	atom.H1:     true,
	atom.H2:     true,
	atom.H3:     true,
	atom.Div:    true,
	atom.Header: true,
	atom.Title:  true,
	atom.Nav:    true,
}

// minEmphasisTitleLen filters out short inline emphasis like "e.g.".
const minEmphasisTitleLen = 5

// FragmentTitlePlaceholder is used when every title source comes up empty.
const FragmentTitlePlaceholder = "Untitled"

// ResolveTitle produces a chapter title for one fragment body. The cascade,
// first hit wins:
//
//  1. first heading element (h1-h4) in document order
//  2. first element matching a known title class probe
//  3. first <em> that looks like a standalone title
//  4. navigation index entry for the fragment's source filename
//  5. the fragment's intrinsic title, else "Untitled"
//
// Steps 1-3 query body markup, so an in-body match always supersedes the
// navigation and intrinsic fallbacks.
func ResolveTitle(body *html.Node, intrinsicTitle, sourceName string, navTitles map[string]string) string {
	if body != nil {
		if el := findHeading(body); el != nil {
			return nodeText(el)
		}
		if el := findTitleClass(body); el != nil {
			return nodeText(el)
		}
		if el := findLikelyTitleEmphasis(body); el != nil {
			return nodeText(el)
		}
	}
	if label, ok := navTitles[sourceName]; ok {
		return label
	}
	if intrinsicTitle != "" {
		return intrinsicTitle
	}
	return FragmentTitlePlaceholder
}

// findHeading returns the first h1-h4 element in document order.
func findHeading(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && headingAtoms[n.DataAtom] {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findHeading(c); found != nil {
			return found
		}
	}
	return nil
}

// findTitleClass tries each class probe in its fixed fallback order.
func findTitleClass(n *html.Node) *html.Node {
	for _, probe := range classProbes {
		if found := findByClass(n, probe.tag, probe.class); found != nil {
			return found
		}
	}
	return nil
}

func findByClass(n *html.Node, tag atom.Atom, class string) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == tag && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, tag, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

// findLikelyTitleEmphasis scans <em> elements in document order and returns
// the first one satisfying isLikelyTitle. Scanning stops at the first match.
func findLikelyTitleEmphasis(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Em && isLikelyTitle(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findLikelyTitleEmphasis(c); found != nil {
			return found
		}
	}
	return nil
}

// isLikelyTitle judges whether an <em> element is a standalone chapter title
// rather than inline emphasis. The text must be longer than
// minEmphasisTitleLen runes, and the element must either sit inside a
// container-like parent or be the very first child node of its parent.
func isLikelyTitle(em *html.Node) bool {
	text := nodeText(em)
	if utf8.RuneCountInString(text) <= minEmphasisTitleLen {
		return false
	}
	parent := em.Parent
	if parent == nil {
		return false
	}
	if parent.Type == html.ElementNode && likelyTitleParents[parent.DataAtom] {
		return true
	}
	return parent.FirstChild == em
}
