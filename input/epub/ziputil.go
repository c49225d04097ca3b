package epub

import (
	"archive/zip"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/npillmayer/epress/core"
)

// maxEntrySize caps the decompressed size of a single container entry,
// guarding against zip bombs.
const maxEntrySize int64 = 256 * 1024 * 1024

// invalid produces an application error for a broken container, wrapping
// sentinel ErrInvalidPublication.
func invalid(format string, v ...interface{}) error {
	return core.WrapError(ErrInvalidPublication, core.EINVALID, format, v...)
}

// isSafePath checks whether p is a zip-internal path which cannot escape the
// archive root through directory traversal.
func isSafePath(p string) bool {
	cleaned := path.Clean(p)
	if strings.HasPrefix(cleaned, "/") {
		return false
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	return true
}

// ResolveHref resolves href relative to the directory of basePath. Both are
// zip-internal paths, forward-slash separated. Returns "" if the resolved
// path is absolute or escapes the archive root. Percent-escapes in href are
// decoded.
func ResolveHref(basePath, href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "/") {
		return ""
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	joined := path.Join(path.Dir(basePath), href)
	if !isSafePath(joined) {
		return ""
	}
	return joined
}

// readZipEntry reads the full contents of a container entry, with the
// decompressed size capped at maxEntrySize.
func readZipEntry(f *zip.File) ([]byte, error) {
	return readZipEntryCapped(f, maxEntrySize)
}

// readZipEntryCapped enforces the size limit on the actual decompressed
// data; declared entry sizes are not trusted.
func readZipEntryCapped(f *zip.File, limit int64) ([]byte, error) {
	if !isSafePath(f.Name) {
		return nil, invalid("unsafe entry path in container: %s", f.Name)
	}
	if f.UncompressedSize64 > uint64(limit) {
		return nil, invalid("container entry %s too large: %d bytes", f.Name, f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, core.WrapError(err, core.EINVALID, "cannot open container entry %s", f.Name)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, core.WrapError(err, core.EINVALID, "cannot read container entry %s", f.Name)
	}
	if int64(len(data)) > limit {
		return nil, invalid("container entry %s exceeds the size limit", f.Name)
	}
	return data, nil
}

// stripBOM removes a leading UTF-8 BOM from data, if present.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
