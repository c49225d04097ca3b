/*
Package raster recompresses raster images.

JPEG is the only format worth the trouble in publications: re-encoding at
a moderate quality routinely halves photographic content, while PNG and
SVG rarely leave slack. An image is only replaced when the re-encoded
variant is smaller; decoding trouble leaves the original alone.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package raster

import (
	"bytes"
	"image/jpeg"

	"github.com/npillmayer/epress/core"
	"github.com/npillmayer/epress/core/percent"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'epress.shrink'
func tracer() tracing.Trace {
	return tracing.Select("epress.shrink")
}

// DefaultQuality is the JPEG quality used when a caller passes none.
const DefaultQuality = percent.Percent(50)

// Result reports the outcome of recompressing one image.
type Result struct {
	// Accepted tells whether the re-encoded image is worth using. When
	// false, Image is nil and the original file should stay as it is.
	Accepted bool

	// Image holds the re-encoded bytes of an accepted result.
	Image []byte

	// SizeBefore and SizeAfter compare the image files in bytes.
	SizeBefore int
	SizeAfter  int
}

// Recompress decodes a JPEG image and encodes it again at the given
// quality. Metadata segments (EXIF, ICC profiles) do not survive the
// round trip.
//
// Recompress never modifies img. On error the result carries sizes only
// and callers keep the original file.
func Recompress(img []byte, quality percent.Percent) (Result, error) {
	result := Result{SizeBefore: len(img)}
	if quality < 1 {
		quality = DefaultQuality
	}
	decoded, err := jpeg.Decode(bytes.NewReader(img))
	if err != nil {
		return result, core.WrapError(err, core.EINVALID, "image does not decode: %v", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, decoded, &jpeg.Options{Quality: int(quality)}); err != nil {
		return result, core.WrapError(err, core.EINTERNAL, "image does not encode: %v", err)
	}
	result.SizeAfter = buf.Len()
	if result.SizeAfter >= result.SizeBefore {
		tracer().Debugf("image re-encoded to %d bytes saves nothing over %d bytes, not accepting",
			result.SizeAfter, result.SizeBefore)
		return result, nil
	}
	result.Accepted = true
	result.Image = buf.Bytes()
	return result, nil
}
