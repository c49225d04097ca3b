package otsubset

import (
	"github.com/npillmayer/epress/core/font/opentype/ot"
)

// Resolve computes the set of glyphs otf needs to render the code-points in
// usage. Code-points without a 'cmap' entry are dropped silently; the font
// cannot render them, subset or not. Glyph 0 is always part of the result,
// and composite glyphs pull in their component glyphs, transitively.
func Resolve(otf *ot.Font, usage *UsageSet) (*GlyphSet, error) {
	if otf == nil || otf.CMap == nil || otf.CMap.GlyphIndexMap == nil {
		return nil, malformed("font has no usable cmap table")
	}
	glyphCount := 0
	if mx := otf.Table(ot.T("maxp")); mx != nil {
		if maxp := mx.Self().AsMaxP(); maxp != nil {
			glyphCount = maxp.NumGlyphs
		}
	}
	if glyphCount == 0 {
		return nil, malformed("font has no glyphs")
	}
	retained := NewGlyphSet()
	retained.Add(0) // glyph 0 renders missing characters; every font keeps it
	lookup := otf.CMap.GlyphIndexMap
	for _, r := range usage.Runes() {
		gid := lookup.Lookup(r)
		if gid == 0 {
			tracer().Debugf("code-point %#U not covered by font", r)
			continue
		}
		if int(gid) >= glyphCount {
			return nil, malformed("cmap maps %#U to glyph %d, font has %d glyphs",
				r, gid, glyphCount)
		}
		retained.Add(gid)
	}
	var glyf *ot.GlyfTable
	if gl := otf.Table(ot.T("glyf")); gl != nil {
		glyf = gl.Self().AsGlyf()
	}
	if glyf == nil {
		return retained, nil // no composite references without TrueType outlines
	}
	// Close the set over composite references: a composite glyph needs all
	// of its component glyphs in the subset, recursively. Fonts in the wild
	// contain reference cycles and self references; the visited set keeps
	// the traversal finite.
	visited := make(map[ot.GlyphIndex]bool)
	stack := retained.Glyphs()
	for len(stack) > 0 {
		gid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[gid] {
			continue
		}
		visited[gid] = true
		components, err := glyf.Components(gid)
		if err != nil {
			return nil, malformed("glyph %d: %v", gid, err)
		}
		for _, component := range components {
			if int(component.Glyph) >= glyphCount {
				return nil, malformed("glyph %d references component %d, font has %d glyphs",
					gid, component.Glyph, glyphCount)
			}
			retained.Add(component.Glyph)
			if !visited[component.Glyph] {
				stack = append(stack, component.Glyph)
			}
		}
	}
	return retained, nil
}
