/*
Package ot provides access to the tables of OpenType fonts.
Intended audience for this package are:

▪︎ font subsetters and optimizers, which re-assemble fonts from their tables

▪︎ any application needing to have the internal structure of an OpenType font file
available, and possibly extending the methods of package `ot` by handling
additional font tables

Package `ot` exposes the tables of a font to its clients, together with the
structural information needed to take a font apart and put a consistent one
back together: glyph locations, composite glyph references, character-to-glyph
mappings, horizontal metrics, glyph names. It will not interpret typographic
semantics, however. It is not possible to ask package `ot` for the correct
position of an accent mark, say. From this point of view, `ot` is a low-level
package. Operations like computing the set of glyphs reachable from a set of
code-points, or rewriting tables for a reduced glyph complement, are homed in
a sister package (otsubset).

OpenType fonts contain a whole lot of different tables and sub-tables. This
package wraps those tables which carry per-glyph payload, as these are the ones
a subsetter has to take apart. Examples are 'loca', 'glyf', 'hmtx' and 'post'.
Tables without per-glyph data are handed to clients as generic byte segments,
to be copied or dropped as a whole ('OS/2' is an example, as are the hinting
tables). The binary data of a font is kept in memory in one piece, and every
table is a slice view into it. Fonts are heavy; we avoid copying bytes out
into separate buffers wherever we can.

# Status

No font collections nor variable fonts are supported yet. Fonts with CFF
outlines are parsed at the directory level, but their glyph data is opaque to
this package.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>

Some code has originally been copied over from golang.org/x/image/font/sfnt/cmap.go,
as the cmap-routines are not accessible through the sfnt package's API.
I understand this to be legally okay as long as the Go license information
stays intact.

	Copyright 2017 The Go Authors. All rights reserved.
	Use of this source code is governed by a BSD-style
	license that can be found in the LICENSE file.

The license file mentioned can be found in file GO-LICENSE at the root folder
of this module.
*/
package ot

import (
	"github.com/npillmayer/epress/core"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'epress.fonts'
func tracer() tracing.Trace {
	return tracing.Select("epress.fonts")
}

// errFontFormat produces user level errors for font parsing.
func errFontFormat(x string) error {
	return core.Error(core.EINVALID, "OpenType font format: %s", x)
}
