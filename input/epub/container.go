package epub

import (
	"encoding/xml"
	"strings"

	"github.com/npillmayer/epress/core"
)

// Entry locations and media types fixed by the EPUB container rules.
const (
	mimetypePath  = "mimetype"
	containerPath = "META-INF/container.xml"
	epubMimetype  = "application/epub+zip"
	opfMediaType  = "application/oebps-package+xml"
)

// containerXML models META-INF/container.xml, which locates the OPF package
// document.
type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// parseContainerXML decodes container.xml and returns the path of the OPF
// package document. The first rootfile with the OPF media type wins; a
// rootfile without one serves as fallback.
func parseContainerXML(data []byte) (string, error) {
	var c containerXML
	if err := xml.Unmarshal(stripBOM(data), &c); err != nil {
		return "", core.WrapError(err, core.EINVALID, "cannot parse container.xml")
	}
	fallback := ""
	for _, rf := range c.RootFiles {
		full := strings.TrimSpace(rf.FullPath)
		if full == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(rf.MediaType), opfMediaType) {
			return full, nil
		}
		if fallback == "" {
			fallback = full
		}
	}
	if fallback == "" {
		return "", invalid("container.xml names no package document")
	}
	return fallback, nil
}
