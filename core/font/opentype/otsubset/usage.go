package otsubset

import (
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"
	"github.com/npillmayer/epress/core/font/opentype/ot"
)

// UsageSet collects the code-points in use for one font. Usage sets are
// gathered per font and per run; they are never merged across fonts, as
// glyph coverage differs from font to font. Iteration order is ascending
// by code-point.
type UsageSet struct {
	runes *treeset.Set
}

// NewUsageSet creates an empty usage set.
func NewUsageSet() *UsageSet {
	return &UsageSet{runes: treeset.NewWith(utils.RuneComparator)}
}

// Add records a single code-point as used.
func (u *UsageSet) Add(r rune) {
	u.runes.Add(r)
}

// AddString records every code-point of s as used.
func (u *UsageSet) AddString(s string) {
	for _, r := range s {
		u.runes.Add(r)
	}
}

// AddRange records the code-points from…to, inclusive.
func (u *UsageSet) AddRange(from, to rune) {
	for r := from; r <= to; r++ {
		u.runes.Add(r)
	}
}

// Contains tells whether r has been recorded.
func (u *UsageSet) Contains(r rune) bool {
	if u == nil || u.runes == nil {
		return false
	}
	return u.runes.Contains(r)
}

// Len returns the number of distinct code-points recorded.
func (u *UsageSet) Len() int {
	if u == nil || u.runes == nil {
		return 0
	}
	return u.runes.Size()
}

// Runes returns the recorded code-points in ascending order.
func (u *UsageSet) Runes() []rune {
	if u == nil || u.runes == nil {
		return nil
	}
	values := u.runes.Values()
	runes := make([]rune, len(values))
	for i, v := range values {
		runes[i] = v.(rune)
	}
	return runes
}

// Each calls f for every recorded code-point, in ascending order.
func (u *UsageSet) Each(f func(r rune)) {
	if u == nil || u.runes == nil {
		return
	}
	u.runes.Each(func(_ int, v interface{}) {
		f(v.(rune))
	})
}

// Clone returns an independent copy of the usage set. A nil receiver clones
// to an empty set.
func (u *UsageSet) Clone() *UsageSet {
	clone := NewUsageSet()
	if u != nil && u.runes != nil {
		clone.runes.Add(u.runes.Values()...)
	}
	return clone
}

// glyphIndexComparator orders glyph indices for tree-backed sets.
func glyphIndexComparator(a, b interface{}) int {
	ga := a.(ot.GlyphIndex)
	gb := b.(ot.GlyphIndex)
	switch {
	case ga > gb:
		return 1
	case ga < gb:
		return -1
	}
	return 0
}

// GlyphSet is an ordered set of glyph indices. The glyph resolver produces
// one per font: the glyphs to retain in the subset. Iteration order is
// ascending by glyph index.
type GlyphSet struct {
	glyphs *treeset.Set
}

// NewGlyphSet creates an empty glyph set.
func NewGlyphSet() *GlyphSet {
	return &GlyphSet{glyphs: treeset.NewWith(glyphIndexComparator)}
}

// Add puts gid into the set.
func (gs *GlyphSet) Add(gid ot.GlyphIndex) {
	gs.glyphs.Add(gid)
}

// Contains tells whether gid is in the set.
func (gs *GlyphSet) Contains(gid ot.GlyphIndex) bool {
	if gs == nil || gs.glyphs == nil {
		return false
	}
	return gs.glyphs.Contains(gid)
}

// Len returns the number of glyphs in the set.
func (gs *GlyphSet) Len() int {
	if gs == nil || gs.glyphs == nil {
		return 0
	}
	return gs.glyphs.Size()
}

// Glyphs returns the glyph indices in ascending order.
func (gs *GlyphSet) Glyphs() []ot.GlyphIndex {
	if gs == nil || gs.glyphs == nil {
		return nil
	}
	values := gs.glyphs.Values()
	glyphs := make([]ot.GlyphIndex, len(values))
	for i, v := range values {
		glyphs[i] = v.(ot.GlyphIndex)
	}
	return glyphs
}

// RemapTable maps the glyph indices of a source font onto the dense range
// 0…n-1 of a subset font. The mapping preserves glyph order: of two
// retained glyphs, the one with the smaller source index receives the
// smaller subset index. Glyph 0 always maps to glyph 0.
type RemapTable struct {
	toNew map[ot.GlyphIndex]ot.GlyphIndex
	toOld []ot.GlyphIndex
}

// NewRemapTable numbers the glyphs of retained consecutively, in ascending
// order of their source index.
func NewRemapTable(retained *GlyphSet) *RemapTable {
	old := retained.Glyphs()
	remap := &RemapTable{
		toNew: make(map[ot.GlyphIndex]ot.GlyphIndex, len(old)),
		toOld: old,
	}
	for i, gid := range old {
		remap.toNew[gid] = ot.GlyphIndex(i)
	}
	return remap
}

// Lookup returns the subset index for a source glyph.
func (m *RemapTable) Lookup(old ot.GlyphIndex) (ot.GlyphIndex, bool) {
	gid, ok := m.toNew[old]
	return gid, ok
}

// OldForNew returns the source index for a subset glyph, or 0 if gid is out
// of range.
func (m *RemapTable) OldForNew(gid ot.GlyphIndex) ot.GlyphIndex {
	if int(gid) >= len(m.toOld) {
		return 0
	}
	return m.toOld[gid]
}

// Len returns the number of glyphs in the subset.
func (m *RemapTable) Len() int {
	return len(m.toOld)
}

// OldGlyphs returns the retained source indices in ascending order.
func (m *RemapTable) OldGlyphs() []ot.GlyphIndex {
	return m.toOld
}
