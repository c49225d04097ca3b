/*
Package shrink orchestrates a whole-publication shrink run.

Every manifest resource gets a strategy by media type: embedded fonts are
subset to the glyphs in use, raster images are re-encoded at a lower
quality, content documents lose their indentation, everything else is
copied byte for byte. Resources are independent of each other, so jobs run
on a bounded worker pool; their outcomes merge back in manifest order,
which keeps runs deterministic.

A strategy either replaces a resource with a strictly smaller rendition or
leaves it byte-identical. Strategy failures are outcomes, not errors: a
malformed font is reported and kept, and the run carries on. The only
error a run itself can produce is cancellation.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package shrink

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'epress.shrink'
func tracer() tracing.Trace {
	return tracing.Select("epress.shrink")
}
