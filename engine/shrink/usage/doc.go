/*
Package usage determines which code-points a publication renders in which
font.

Fonts enter a publication through CSS '@font-face' rules, which bind a
family name to one or more font files. Content documents then select
families through 'font-family' declarations, either in stylesheets, in
'<style>' elements or in 'style' attributes. This package walks both sides
of that binding and produces, for every embedded font file, the set of
code-points observed in content the font may have to render.

Attribution errs on the side of too many code-points. A selector which
cannot be compiled attributes the whole document; a document which cannot
be parsed attributes its raw text to every face; a stylesheet which cannot
be parsed degrades the run to whole-publication attribution. A font file
never referenced by any '@font-face' rule is not attributed at all and
will consequently be left alone by the shrinker.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package usage

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'epress.shrink'
func tracer() tracing.Trace {
	return tracing.Select("epress.shrink")
}
