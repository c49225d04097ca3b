/*
Package otsubset reduces OpenType fonts to a chosen complement of glyphs.

Subsetting starts from the set of code-points a publication actually uses.
The code-points are resolved to glyph indices through the font's 'cmap'
table, the glyph set is closed over composite references, and the per-glyph
tables of the font are rewritten for the reduced complement, with glyphs
renumbered densely from zero. Tables without per-glyph payload travel
unchanged; glyph-id bearing tables which this package does not rewrite
(the advanced layout tables, mostly) are left out, as keeping them would
leave indices pointing at glyphs which no longer exist.

The result of a subsetting run is a complete, self-contained font file.
Every rewrite is guarded by a verification step, so that a client never
installs a corrupt font: subsetting either hands back a verified font or
reports why it will not.

# Status

TrueType outlines ('glyf'/'loca') only. Fonts with CFF outlines are
recognized but not rewritten. Font collections and variable fonts are not
supported.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package otsubset

import (
	"errors"
	"fmt"

	"github.com/npillmayer/epress/core"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'epress.fonts'
func tracer() tracing.Trace {
	return tracing.Select("epress.fonts")
}

// Failure classes for subsetting runs. Clients match with errors.Is to
// decide how to report a skipped font. Every failure leaves the input font
// untouched; there is no partial output.
var (
	// ErrMalformedFont flags font binaries which violate the OpenType format.
	ErrMalformedFont = errors.New("malformed font")

	// ErrUnsupportedFormat flags fonts or tables in a format (outline type,
	// table version) this package does not rewrite.
	ErrUnsupportedFormat = errors.New("unsupported table format")

	// ErrInconsistency flags output which did not survive verification after
	// a rewrite. The output has been discarded.
	ErrInconsistency = errors.New("internal inconsistency")
)

func malformed(format string, v ...interface{}) error {
	err := fmt.Errorf("%w: %s", ErrMalformedFont, fmt.Sprintf(format, v...))
	return core.WrapError(err, core.EINVALID, "%s", err)
}

func unsupported(format string, v ...interface{}) error {
	err := fmt.Errorf("%w: %s", ErrUnsupportedFormat, fmt.Sprintf(format, v...))
	return core.WrapError(err, core.EUNSUPPORTED, "%s", err)
}

func inconsistency(format string, v ...interface{}) error {
	err := fmt.Errorf("%w: %s", ErrInconsistency, fmt.Sprintf(format, v...))
	return core.WrapError(err, core.EINTERNAL, "%s", err)
}

// FailureKind classifies an error returned from this package into one of
// the failure classes, for reporting purposes.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedFont):
		return "malformed-font"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported-format"
	case errors.Is(err, ErrInconsistency):
		return "internal-inconsistency"
	}
	return "error"
}
