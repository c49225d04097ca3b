package epub

import (
	"archive/zip"
	"io"
	"os"

	"github.com/npillmayer/epress/core"
)

// Write assembles an EPUB container from the publication and a set of
// replacement contents, keyed by manifest item id. Resources without a
// replacement are copied byte-identical from the source container; replace
// may be nil.
//
// Entry order follows the EPUB layout rules: mimetype first and
// uncompressed, then META-INF/container.xml, the package document, the
// manifest resources in manifest order, and finally any container entries
// the manifest does not reference. All entries except mimetype are deflated.
func (p *Publication) Write(w io.Writer, replace map[string][]byte) error {
	zw := zip.NewWriter(w)
	written := make(map[string]bool)
	mt, err := zw.CreateHeader(&zip.FileHeader{Name: mimetypePath, Method: zip.Store})
	if err == nil {
		_, err = mt.Write([]byte(epubMimetype))
	}
	if err != nil {
		return core.WrapError(err, core.EINTERNAL, "cannot write mimetype entry")
	}
	written[mimetypePath] = true
	for _, name := range []string{containerPath, p.opfPath} {
		if data, ok := p.entry(name); ok && !written[name] {
			if err := writeDeflated(zw, name, data); err != nil {
				return err
			}
			written[name] = true
		}
	}
	for i := range p.resources {
		r := &p.resources[i]
		data := r.Content
		if repl, ok := replace[r.ID]; ok && repl != nil {
			data = repl
			tracer().Debugf("replacing resource %s (%d bytes)", r.ID, len(repl))
		}
		if data == nil || r.Path == "" || written[r.Path] {
			continue
		}
		if err := writeDeflated(zw, r.Path, data); err != nil {
			return err
		}
		written[r.Path] = true
	}
	for _, e := range p.entries {
		if written[e.name] {
			continue
		}
		if err := writeDeflated(zw, e.name, e.data); err != nil {
			return err
		}
		written[e.name] = true
	}
	return zw.Close()
}

// WriteFile writes the assembled container to a file.
func (p *Publication) WriteFile(epubfile string, replace map[string][]byte) error {
	out, err := os.Create(epubfile)
	if err != nil {
		return err
	}
	if err := p.Write(out, replace); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeDeflated(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err == nil {
		_, err = f.Write(data)
	}
	if err != nil {
		return core.WrapError(err, core.EINTERNAL, "cannot write container entry %s", name)
	}
	return nil
}
