package shrink

import (
	"strings"

	"github.com/npillmayer/epress/core/font/opentype/otsubset"
	"github.com/npillmayer/epress/core/percent"
	"github.com/npillmayer/epress/engine/shrink/raster"
)

// Options control a shrink run. The zero value enables no strategy at
// all, which turns a run into a plain copy.
type Options struct {
	Fonts  bool // subset embedded fonts
	Images bool // recompress raster images
	Markup bool // trim content documents

	// JPEGQuality is the target quality for recompressed images. Zero
	// selects raster.DefaultQuality.
	JPEGQuality percent.Percent

	// PreserveFeatures amends the observed code-points of every font
	// before subsetting; see the otsubset.Feature constants.
	PreserveFeatures []otsubset.Feature

	// MinSizeGain is the minimum number of bytes a subset font has to
	// save to replace its original.
	MinSizeGain int

	// Workers bounds the number of concurrent jobs. Values outside of
	// 1…GOMAXPROCS are clamped.
	Workers int
}

// Defaults enables all strategies and seeds fonts with the Latin ranges,
// so that modest edits to a publication keep rendering after a shrink.
func Defaults() Options {
	return Options{
		Fonts:       true,
		Images:      true,
		Markup:      true,
		JPEGQuality: raster.DefaultQuality,
		PreserveFeatures: []otsubset.Feature{
			otsubset.FeatureBasicLatin,
			otsubset.FeatureLatin1,
		},
	}
}

// Strategy names the treatment a resource receives.
type Strategy int

const (
	// Copy leaves a resource byte-identical.
	Copy Strategy = iota
	// SubsetFont rewrites a font for the glyphs in use.
	SubsetFont
	// RecompressImage re-encodes a raster image at a lower quality.
	RecompressImage
	// TrimMarkup removes redundant whitespace from a document.
	TrimMarkup
)

func (s Strategy) String() string {
	switch s {
	case SubsetFont:
		return "subset"
	case RecompressImage:
		return "recompress"
	case TrimMarkup:
		return "trim"
	}
	return "copy"
}

// media types the manifest may declare for embedded OpenType fonts
var fontMediaTypes = map[string]bool{
	"font/ttf":                    true,
	"font/otf":                    true,
	"application/vnd.ms-opentype": true,
	"application/font-sfnt":       true,
	"application/x-font-ttf":      true,
}

// strategyFor dispatches on the manifest media type of a resource.
func (opts Options) strategyFor(mediaType string) Strategy {
	mt := baseMediaType(mediaType)
	switch {
	case opts.Fonts && fontMediaTypes[mt]:
		return SubsetFont
	case opts.Images && mt == "image/jpeg":
		return RecompressImage
	case opts.Markup && (mt == "application/xhtml+xml" || mt == "text/html"):
		return TrimMarkup
	}
	return Copy
}

func baseMediaType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// Outcome reports what happened to one resource.
type Outcome struct {
	ResourceID string
	Path       string
	Strategy   Strategy
	Accepted   bool
	Reason     string // why a rendition was not accepted; empty otherwise
	SizeBefore int
	SizeAfter  int // equals SizeBefore unless accepted
	GlyphCount int // accepted fonts only
}

// Saved is the number of bytes the resource got smaller.
func (oc Outcome) Saved() int {
	return oc.SizeBefore - oc.SizeAfter
}

// Report collects a shrink run: per-resource outcomes in manifest order,
// the accepted renditions, and the byte totals over all resources.
type Report struct {
	Outcomes     []Outcome
	Replacements map[string][]byte // accepted renditions, keyed by resource id
	SizeBefore   int64
	SizeAfter    int64
}
