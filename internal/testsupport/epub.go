// Package testsupport builds minimal EPUB fixtures for tests.
package testsupport

import (
	"archive/zip"
	"fmt"
	"os"
	"strings"
	"testing"
)

// Doc is one spine content document of a fixture EPUB.
type Doc struct {
	Href      string // e.g. "text/ch01.xhtml"
	Body      string // raw XHTML
	MediaType string // defaults to application/xhtml+xml
}

// EPUB describes a fixture archive. NCX and NavDoc are optional raw
// navigation documents; when set they are wired into the manifest the way
// real publishers do (NCX by media type, nav by the "nav" property).
type EPUB struct {
	Title  string
	Docs   []Doc
	NCX    string
	NavDoc string
}

// Write assembles the fixture at path.
func Write(t *testing.T, path string, spec EPUB) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	add := func(name, content string) {
		t.Helper()
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	add("mimetype", "application/epub+zip")
	add("META-INF/container.xml", `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`)

	var manifest, spine strings.Builder
	for i, doc := range spec.Docs {
		mediaType := doc.MediaType
		if mediaType == "" {
			mediaType = "application/xhtml+xml"
		}
		fmt.Fprintf(&manifest,
			`    <item id="doc%d" href="%s" media-type="%s"/>%s`,
			i, doc.Href, mediaType, "\n")
		fmt.Fprintf(&spine, `    <itemref idref="doc%d"/>%s`, i, "\n")
		add("OEBPS/"+doc.Href, doc.Body)
	}
	if spec.NCX != "" {
		manifest.WriteString(`    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>` + "\n")
		add("OEBPS/toc.ncx", spec.NCX)
	}
	if spec.NavDoc != "" {
		manifest.WriteString(`    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>` + "\n")
		add("OEBPS/nav.xhtml", spec.NavDoc)
	}

	add("OEBPS/content.opf", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="3.0" unique-identifier="uid">
  <metadata>
    <dc:title>%s</dc:title>
    <dc:identifier id="uid">fixture</dc:identifier>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>
%s  </manifest>
  <spine>
%s  </spine>
</package>`, spec.Title, manifest.String(), spine.String()))

	if err := zw.Close(); err != nil {
		t.Fatalf("close fixture zip: %v", err)
	}
}
