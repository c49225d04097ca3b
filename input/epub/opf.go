package epub

import (
	"encoding/xml"
	"regexp"
	"strings"

	"github.com/npillmayer/epress/core"
)

// opfPackage is the root <package> element of an OPF package document.
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

// opfMetadata carries the Dublin Core elements the shrinker cares about.
type opfMetadata struct {
	Titles    []string `xml:"http://purl.org/dc/elements/1.1/ title"`
	Languages []string `xml:"http://purl.org/dc/elements/1.1/ language"`
}

type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type opfSpine struct {
	ItemRefs []opfSpineItemRef `xml:"itemref"`
}

type opfSpineItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

// parseOPF parses an OPF package document. HTML named entities, which some
// producers leave in the XML, are converted to numeric references first.
// A missing version attribute defaults to "2.0".
func parseOPF(data []byte) (*opfPackage, error) {
	data = replaceNamedEntities(stripBOM(data))
	var pkg opfPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return nil, core.WrapError(err, core.EINVALID, "cannot parse OPF package document")
	}
	if pkg.Version == "" {
		pkg.Version = "2.0"
	}
	return &pkg, nil
}

// XML pre-defines just five entities; producers frequently leave HTML named
// entities in the package document, which encoding/xml chokes on.
var namedEntityPattern = regexp.MustCompile(`&[a-zA-Z][a-zA-Z0-9]*;`)

var namedEntities = map[string][]byte{
	"nbsp":   []byte("&#160;"),
	"shy":    []byte("&#173;"),
	"copy":   []byte("&#169;"),
	"reg":    []byte("&#174;"),
	"trade":  []byte("&#8482;"),
	"ndash":  []byte("&#8211;"),
	"mdash":  []byte("&#8212;"),
	"lsquo":  []byte("&#8216;"),
	"rsquo":  []byte("&#8217;"),
	"ldquo":  []byte("&#8220;"),
	"rdquo":  []byte("&#8221;"),
	"hellip": []byte("&#8230;"),
	"eacute": []byte("&#233;"),
	"auml":   []byte("&#228;"),
	"ouml":   []byte("&#246;"),
	"uuml":   []byte("&#252;"),
	"szlig":  []byte("&#223;"),
}

func replaceNamedEntities(data []byte) []byte {
	return namedEntityPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := strings.ToLower(string(match[1 : len(match)-1]))
		if num, ok := namedEntities[name]; ok {
			return num
		}
		return match // the pre-defined XML entities fall through unchanged
	})
}
