/*
Package epub reads and writes EPUB publications.

An EPUB file is a zip container with a fixed layout: a `mimetype` entry,
first in the archive and uncompressed, a `META-INF/container.xml`
pointing to the OPF package document, and the publication's resources.
This package unpacks such a container into a Publication, a read-only
view of the package metadata, the manifest and the spine, and it
re-assembles a container from a Publication plus a set of replacement
resources.

Reading is defensive: entry paths are checked against directory
traversal and decompressed entry sizes are capped, so a hostile
container can neither escape the archive root nor blow up memory.

# Status

EPUB 2 and 3 package documents are understood; ncx/nav
table-of-contents documents are treated as opaque resources.
Encrypted containers are not supported.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package epub

import (
	"errors"

	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'epress.epub'
func tracer() tracing.Trace {
	return tracing.Select("epress.epub")
}

// ErrInvalidPublication flags a container that does not follow the EPUB
// layout rules. Errors returned by LoadPublication and ParsePublication
// match it with errors.Is.
var ErrInvalidPublication = errors.New("not a valid EPUB publication")
