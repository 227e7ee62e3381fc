package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

// The goreader manifest model predates EPUB3 item properties, so the EPUB3
// nav document is located with a second, targeted pass over the container:
// META-INF/container.xml names the OPF, whose manifest names the nav item.

type containerXML struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfManifest struct {
	Items []struct {
		Href       string `xml:"href,attr"`
		MediaType  string `xml:"media-type,attr"`
		Properties string `xml:"properties,attr"`
	} `xml:"manifest>item"`
}

// readNavDoc returns the raw bytes of the EPUB3 nav document, or nil when
// the book carries none. Only genuinely malformed containers return errors.
func readNavDoc(name string) ([]byte, error) {
	zr, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("open container: %w", err)
	}
	defer zr.Close()

	containerData, err := readZipFile(&zr.Reader, "META-INF/container.xml")
	if err != nil {
		return nil, err
	}
	var c containerXML
	if err := xml.Unmarshal(containerData, &c); err != nil {
		return nil, fmt.Errorf("parse container.xml: %w", err)
	}
	if len(c.Rootfiles) == 0 {
		return nil, fmt.Errorf("container.xml names no rootfile")
	}

	opfPath := c.Rootfiles[0].FullPath
	opfData, err := readZipFile(&zr.Reader, opfPath)
	if err != nil {
		return nil, err
	}
	var m opfManifest
	if err := xml.Unmarshal(opfData, &m); err != nil {
		return nil, fmt.Errorf("parse opf: %w", err)
	}

	for _, item := range m.Items {
		if !hasProperty(item.Properties, "nav") {
			continue
		}
		navPath := path.Join(path.Dir(opfPath), item.Href)
		return readZipFile(&zr.Reader, navPath)
	}
	return nil, nil
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}

func hasProperty(properties, want string) bool {
	for _, p := range strings.Fields(properties) {
		if p == want {
			return true
		}
	}
	return false
}
