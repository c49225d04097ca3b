package otsubset

import (
	"github.com/npillmayer/epress/core/font/opentype/ot"
)

// runeGid pairs a code-point with its glyph index in the subset font.
type runeGid struct {
	r   rune
	gid ot.GlyphIndex
}

// buildCMap serializes a complete cmap table for the subset font. pairs
// must be sorted ascending by code-point, without duplicates. Content
// within the Basic Multilingual Plane receives a format 4 sub-table,
// anything beyond a format 12 sub-table. Both a Unicode and a Windows
// encoding record are written; they share one sub-table.
func buildCMap(pairs []runeGid) []byte {
	wide := false
	for _, p := range pairs {
		// U+FFFF itself cannot live in a format 4 segment, the required
		// end marker occupies that slot
		if p.r >= 0xFFFF {
			wide = true
			break
		}
	}
	var sub []byte
	var unicodeEnc, msEnc uint16
	if !wide {
		sub = writeCMapFormat4(pairs)
		unicodeEnc, msEnc = 3, 1
	}
	if sub == nil { // wide code-points, or segment data too large for format 4
		sub = writeCMapFormat12(pairs)
		unicodeEnc, msEnc = 4, 10
	}
	const subtableOffset = 4 + 2*8 // version, count, two encoding records
	buf := make([]byte, 0, subtableOffset+len(sub))
	buf = appendU16(buf, 0) // version
	buf = appendU16(buf, 2) // numTables
	buf = appendU16(buf, 0) // platform ID Unicode
	buf = appendU16(buf, unicodeEnc)
	buf = appendU32(buf, subtableOffset)
	buf = appendU16(buf, 3) // platform ID Windows
	buf = appendU16(buf, msEnc)
	buf = appendU32(buf, subtableOffset)
	return append(buf, sub...)
}

// writeCMapFormat4 serializes a format 4 ("segment mapping to delta values")
// sub-table. Segments cover runs of consecutive code-points; runs whose
// glyph indices are consecutive as well use the idDelta shortcut, all other
// runs spill their glyph indices into the trailing glyphIdArray. Returns
// nil if the serialization would exceed the format's 16 bit length field.
func writeCMapFormat4(pairs []runeGid) []byte {
	type segment struct {
		start, end uint16
		delta      uint16
		gids       []uint16 // non-empty for segments using the glyphIdArray
	}
	var segments []segment
	for i := 0; i < len(pairs); {
		j := i + 1
		for j < len(pairs) && pairs[j].r == pairs[j-1].r+1 {
			j++
		}
		seg := segment{start: uint16(pairs[i].r), end: uint16(pairs[j-1].r)}
		contiguous := true
		for k := i + 1; k < j; k++ {
			if pairs[k].gid != pairs[k-1].gid+1 {
				contiguous = false
				break
			}
		}
		if contiguous {
			seg.delta = uint16(pairs[i].gid) - seg.start
		} else {
			seg.gids = make([]uint16, 0, j-i)
			for k := i; k < j; k++ {
				seg.gids = append(seg.gids, uint16(pairs[k].gid))
			}
		}
		segments = append(segments, seg)
		i = j
	}
	// the final segment maps 0xFFFF and terminates the binary search
	segments = append(segments, segment{start: 0xFFFF, end: 0xFFFF, delta: 1})
	segCount := len(segments)
	var glyphIdArray []uint16
	offsets := make([]uint16, segCount)
	for i, seg := range segments {
		if len(seg.gids) == 0 {
			continue
		}
		// idRangeOffset counts bytes from its own slot in the offset array
		// to the segment's first entry in the glyphIdArray
		offsets[i] = uint16(2 * (segCount - i + len(glyphIdArray)))
		glyphIdArray = append(glyphIdArray, seg.gids...)
	}
	length := 16 + 8*segCount + 2*len(glyphIdArray)
	if length > 0xFFFF {
		return nil
	}
	pow2, log2 := 1, 0
	for pow2*2 <= segCount {
		pow2 *= 2
		log2++
	}
	buf := make([]byte, 0, length)
	buf = appendU16(buf, 4) // format
	buf = appendU16(buf, uint16(length))
	buf = appendU16(buf, 0) // language
	buf = appendU16(buf, uint16(2*segCount))
	buf = appendU16(buf, uint16(2*pow2))            // searchRange
	buf = appendU16(buf, uint16(log2))              // entrySelector
	buf = appendU16(buf, uint16(2*segCount-2*pow2)) // rangeShift
	for _, seg := range segments {
		buf = appendU16(buf, seg.end)
	}
	buf = appendU16(buf, 0) // reservedPad
	for _, seg := range segments {
		buf = appendU16(buf, seg.start)
	}
	for _, seg := range segments {
		buf = appendU16(buf, seg.delta)
	}
	for _, offset := range offsets {
		buf = appendU16(buf, offset)
	}
	for _, gid := range glyphIdArray {
		buf = appendU16(buf, gid)
	}
	return buf
}

// writeCMapFormat12 serializes a format 12 ("segmented coverage") sub-table.
// Groups cover runs where code-points and glyph indices advance in lockstep.
func writeCMapFormat12(pairs []runeGid) []byte {
	type group struct {
		startChar, endChar uint32
		startGlyph         uint32
	}
	var groups []group
	for i := 0; i < len(pairs); {
		j := i + 1
		for j < len(pairs) &&
			pairs[j].r == pairs[j-1].r+1 &&
			pairs[j].gid == pairs[j-1].gid+1 {
			j++
		}
		groups = append(groups, group{
			startChar:  uint32(pairs[i].r),
			endChar:    uint32(pairs[j-1].r),
			startGlyph: uint32(pairs[i].gid),
		})
		i = j
	}
	length := 16 + 12*len(groups)
	buf := make([]byte, 0, length)
	buf = appendU16(buf, 12) // format
	buf = appendU16(buf, 0)  // reserved
	buf = appendU32(buf, uint32(length))
	buf = appendU32(buf, 0) // language
	buf = appendU32(buf, uint32(len(groups)))
	for _, g := range groups {
		buf = appendU32(buf, g.startChar)
		buf = appendU32(buf, g.endChar)
		buf = appendU32(buf, g.startGlyph)
	}
	return buf
}
