package otsubset

import (
	"golang.org/x/text/unicode/norm"

	"github.com/npillmayer/epress/core/font"
	"github.com/npillmayer/epress/core/font/opentype/ot"
)

// Feature names a usage-set amendment applied before glyph resolution.
// Features pin code-points into the subset beyond the ones observed in
// content, so that late edits to a publication (a corrected typo, say)
// still render.
type Feature string

const (
	// FeatureBasicLatin retains printable ASCII.
	FeatureBasicLatin Feature = "basic-latin"

	// FeatureLatin1 retains the Latin-1 supplement range.
	FeatureLatin1 Feature = "latin-1"

	// FeaturePunctuation retains general punctuation (dashes, quotation
	// marks, daggers).
	FeaturePunctuation Feature = "punctuation"

	// FeatureNormalization retains the NFC and NFD forms of every
	// code-point in use, guarding against re-normalized content.
	FeatureNormalization Feature = "normalization"
)

// Config controls a subsetting run.
type Config struct {
	// PreserveFeatures lists usage-set amendments to apply; see the Feature
	// constants. Empty by default: nothing beyond the observed content is
	// retained.
	PreserveFeatures []Feature

	// MinSizeGain is the minimum number of bytes a subset has to save.
	// Subsets saving less are not worth swapping font files for and are
	// not accepted.
	MinSizeGain int
}

// ApplyFeatures returns a copy of usage, amended according to features.
// The input set stays unmodified.
func ApplyFeatures(usage *UsageSet, features []Feature) *UsageSet {
	amended := usage.Clone()
	for _, feature := range features {
		switch feature {
		case FeatureBasicLatin:
			amended.AddRange(0x20, 0x7E)
		case FeatureLatin1:
			amended.AddRange(0xA0, 0xFF)
		case FeaturePunctuation:
			amended.AddRange(0x2010, 0x203A)
		case FeatureNormalization:
			for _, r := range usage.Runes() {
				amended.AddString(norm.NFC.String(string(r)))
				amended.AddString(norm.NFD.String(string(r)))
			}
		default:
			tracer().Infof("ignoring unknown preserve feature %q", feature)
		}
	}
	return amended
}

// Result reports the outcome of subsetting one font.
type Result struct {
	// Accepted tells whether the subset is worth using. When false, Font is
	// nil and the original file should stay as it is.
	Accepted bool

	// Font holds the rewritten font binary of an accepted subset.
	Font []byte

	// GlyphCount is the number of glyphs in the subset font.
	GlyphCount int

	// SizeBefore and SizeAfter compare the font binaries in bytes.
	SizeBefore int
	SizeAfter  int
}

// Subset rewrites a font to contain just the glyphs needed for the
// code-points in usage, plus whatever cfg.PreserveFeatures pins.
//
// Subset never modifies font. On error the returned result carries sizes
// only; callers keep the original file in that case. Errors match one of
// ErrMalformedFont, ErrUnsupportedFormat or ErrInconsistency under
// errors.Is.
func Subset(font []byte, usage *UsageSet, cfg Config) (Result, error) {
	result := Result{SizeBefore: len(font)}
	otf, err := ot.Parse(font)
	if err != nil {
		return result, malformed("%v", err)
	}
	if !otf.Header.HasTrueTypeOutlines() {
		return result, unsupported("font has no TrueType outlines")
	}
	amended := ApplyFeatures(usage, cfg.PreserveFeatures)
	retained, err := Resolve(otf, amended)
	if err != nil {
		return result, err
	}
	rewritten, remap, err := Rewrite(otf, amended, retained)
	if err != nil {
		return result, err
	}
	if err := verifySubset(otf, rewritten, amended, remap); err != nil {
		return result, err
	}
	result.GlyphCount = remap.Len()
	result.SizeAfter = len(rewritten)
	if result.SizeAfter >= result.SizeBefore-cfg.MinSizeGain {
		tracer().Debugf("subset of %d bytes saves too little over %d bytes, not accepting",
			result.SizeAfter, result.SizeBefore)
		return result, nil // a valid subset, just not worth it
	}
	result.Accepted = true
	result.Font = rewritten
	return result, nil
}

// verifySubset guards against shipping a corrupt font. The rewritten
// binary must checksum correctly, parse again with this package's reader
// and with the independent sfnt parser behind font.ParseOpenTypeFont,
// carry the expected glyph count, and map every usage code-point onto the
// renumbered glyph of its source mapping.
func verifySubset(src *ot.Font, data []byte, usage *UsageSet, remap *RemapTable) error {
	if checksum(data) != checksumAdjustmentMagic {
		return inconsistency("whole file checksum mismatch")
	}
	otf, err := ot.Parse(data)
	if err != nil {
		return inconsistency("rewritten font does not parse: %v", err)
	}
	if _, err := font.ParseOpenTypeFont(data); err != nil {
		return inconsistency("rewritten font fails independent parse: %v", err)
	}
	maxp := otf.Table(ot.T("maxp")).Self().AsMaxP()
	if maxp.NumGlyphs != remap.Len() {
		return inconsistency("rewritten font has %d glyphs, expected %d",
			maxp.NumGlyphs, remap.Len())
	}
	for _, r := range usage.Runes() {
		want := ot.GlyphIndex(0)
		if old := src.CMap.GlyphIndexMap.Lookup(r); old != 0 {
			var ok bool
			if want, ok = remap.Lookup(old); !ok {
				return inconsistency("glyph %d missing from remap table", old)
			}
		}
		if got := otf.CMap.GlyphIndexMap.Lookup(r); got != want {
			return inconsistency("%#U maps to glyph %d, expected %d", r, got, want)
		}
	}
	return nil
}
