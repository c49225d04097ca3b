package epub

import (
	"archive/zip"
	"bytes"
	"os"
	"strings"

	"github.com/npillmayer/epress/core"
	"golang.org/x/text/language"
)

// Resource is one manifest entry of a publication.
type Resource struct {
	ID         string // manifest item id
	Href       string // href as spelled in the manifest
	Path       string // zip-internal path, href resolved against the OPF directory
	MediaType  string
	Properties string // space separated property list, e.g. "nav"
	Content    []byte // nil when the container carries no entry for the item
}

type zipEntry struct {
	name string
	data []byte
}

// Publication is an EPUB container, unpacked into memory. It is a read-only
// view: shrink strategies read resource contents and produce replacements,
// the publication itself is never mutated.
type Publication struct {
	Title     string       // first dc:title of the package document
	Language  language.Tag // first dc:language, language.Und when absent or malformed
	Version   string       // OPF version attribute
	opfPath   string
	entries   []zipEntry     // every file entry, container order
	names     map[string]int // entry name → index into entries
	resources []Resource     // manifest order
	byID      map[string]int // resource id → index into resources
	spine     []string       // idrefs, spine order
}

// LoadPublication reads an EPUB container from a file.
func LoadPublication(epubfile string) (*Publication, error) {
	data, err := os.ReadFile(epubfile)
	if err != nil {
		return nil, err
	}
	return ParsePublication(data)
}

// ParsePublication reads an EPUB container from a byte blob.
//
// The container must carry `mimetype` as its first entry, with content
// `application/epub+zip`, and a `META-INF/container.xml` naming the OPF
// package document.
func ParsePublication(data []byte) (*Publication, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, core.WrapError(err, core.EINVALID, "cannot open EPUB container")
	}
	p := &Publication{
		names: make(map[string]int),
		byID:  make(map[string]int),
	}
	if err := p.readEntries(zr); err != nil {
		return nil, err
	}
	if err := p.checkMimetype(zr); err != nil {
		return nil, err
	}
	cont, ok := p.entry(containerPath)
	if !ok {
		return nil, invalid("container.xml missing")
	}
	if p.opfPath, err = parseContainerXML(cont); err != nil {
		return nil, err
	}
	opfData, ok := p.entry(p.opfPath)
	if !ok {
		return nil, invalid("package document %s missing from container", p.opfPath)
	}
	pkg, err := parseOPF(opfData)
	if err != nil {
		return nil, err
	}
	p.buildModel(pkg)
	tracer().Infof("read publication %q, %d resources", p.Title, len(p.resources))
	return p, nil
}

func (p *Publication) readEntries(zr *zip.Reader) error {
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") { // directory entry
			continue
		}
		data, err := readZipEntry(f)
		if err != nil {
			return err
		}
		if _, ok := p.names[f.Name]; ok {
			tracer().Infof("duplicate container entry %s, first one wins", f.Name)
			continue
		}
		p.names[f.Name] = len(p.entries)
		p.entries = append(p.entries, zipEntry{name: f.Name, data: data})
	}
	return nil
}

// checkMimetype requires the first container entry to be `mimetype` with the
// EPUB media type. A compressed mimetype entry is tolerated with a warning;
// reading tools accept those, and the writer will store it properly anyway.
func (p *Publication) checkMimetype(zr *zip.Reader) error {
	if len(zr.File) == 0 {
		return invalid("container is empty")
	}
	first := zr.File[0]
	if first.Name != mimetypePath {
		return invalid("first container entry is %s, must be mimetype", first.Name)
	}
	if first.Method != zip.Store {
		tracer().Infof("mimetype entry is compressed, should be stored")
	}
	mt, _ := p.entry(mimetypePath)
	if string(mt) != epubMimetype {
		return invalid("container mimetype is %q, must be %q", string(mt), epubMimetype)
	}
	return nil
}

func (p *Publication) entry(name string) ([]byte, bool) {
	if i, ok := p.names[name]; ok {
		return p.entries[i].data, true
	}
	return nil, false
}

func (p *Publication) buildModel(pkg *opfPackage) {
	p.Version = pkg.Version
	if len(pkg.Metadata.Titles) > 0 {
		p.Title = strings.TrimSpace(pkg.Metadata.Titles[0])
	}
	p.Language = language.Und
	if len(pkg.Metadata.Languages) > 0 {
		if tag, err := language.Parse(strings.TrimSpace(pkg.Metadata.Languages[0])); err == nil {
			p.Language = tag
		}
	}
	for _, item := range pkg.Manifest.Items {
		r := Resource{
			ID:         item.ID,
			Href:       item.Href,
			MediaType:  item.MediaType,
			Properties: item.Properties,
		}
		r.Path = ResolveHref(p.opfPath, item.Href)
		if r.Path == "" {
			tracer().Infof("manifest item %s has unusable href %q", item.ID, item.Href)
		} else if data, ok := p.entry(r.Path); ok {
			r.Content = data
		} else {
			tracer().Infof("manifest item %s: container has no entry %s", item.ID, r.Path)
		}
		p.byID[r.ID] = len(p.resources)
		p.resources = append(p.resources, r)
	}
	for _, ref := range pkg.Spine.ItemRefs {
		p.spine = append(p.spine, ref.IDRef)
	}
}

// Resources returns the publication's manifest entries in manifest order.
// Callers must not modify the returned slice or the resource contents.
func (p *Publication) Resources() []Resource {
	return p.resources
}

// Resource returns the manifest entry with the given id.
func (p *Publication) Resource(id string) (Resource, bool) {
	if i, ok := p.byID[id]; ok {
		return p.resources[i], true
	}
	return Resource{}, false
}

// ResourceByPath returns the manifest entry whose resolved path equals a
// given zip-internal path.
func (p *Publication) ResourceByPath(zippath string) (Resource, bool) {
	for i := range p.resources {
		if p.resources[i].Path == zippath {
			return p.resources[i], true
		}
	}
	return Resource{}, false
}

// Spine returns the manifest ids of the spine documents, in reading order.
func (p *Publication) Spine() []string {
	return p.spine
}

// OPFPath returns the zip-internal path of the OPF package document.
func (p *Publication) OPFPath() string {
	return p.opfPath
}
