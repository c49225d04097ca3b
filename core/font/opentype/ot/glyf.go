package ot

// GlyfTable provides access to the glyph outline data of fonts with TrueType
// outlines. Glyph descriptions are either simple (a list of contours) or
// composite, i.e. assembled from other glyphs. The extent of a single glyph's
// description within the table is not stored in the table itself, but rather
// in the accompanying 'loca' table, which therefore must be present whenever
// a 'glyf' table is.
//
// See https://docs.microsoft.com/en-us/typography/opentype/spec/glyf
type GlyfTable struct {
	tableBase
	loca *LocaTable // loca owns the offsets of the glyph descriptions
}

func newGlyfTable(tag Tag, b binarySegm, offset, size uint32) *GlyfTable {
	t := &GlyfTable{}
	base := tableBase{
		data:   b,
		name:   tag,
		offset: offset,
		length: size,
	}
	t.tableBase = base
	t.self = t
	return t
}

// Composite glyph description flags, from the OpenType specification.
const (
	arg1And2AreWords uint16 = 1 << iota
	argsAreXYValues
	roundXYToGrid
	weHaveAScale
	_
	moreComponents
	weHaveAnXAndYScale
	weHaveATwoByTwo
	weHaveInstructions
	useMyMetrics
	overlapCompound
	scaledComponentOffset
	unscaledComponentOffset
)

// OutlineData returns the glyph description bytes for a given glyph.
// Glyphs without outlines (the space character is a common case) have a
// zero-length description, which is legal. Clients should treat the returned
// segment as read-only.
func (t *GlyfTable) OutlineData(gid GlyphIndex) ([]byte, error) {
	if t.loca == nil {
		return nil, errFontFormat("glyf table without loca table")
	}
	if int(gid)+1 >= t.loca.EntryCount() {
		return nil, errFontFormat("glyph ID outside of loca table range")
	}
	start := t.loca.IndexToLocation(gid)
	end := t.loca.IndexToLocation(gid + 1)
	if end < start || int(end) > t.data.Size() {
		return nil, errFontFormat("glyph extent outside of glyf table bounds")
	}
	return t.data[start:end], nil
}

// IsComposite is a predicate: is glyph gid assembled from component glyphs?
// A negative contour count in the description's header flags a composite glyph.
func (t *GlyfTable) IsComposite(gid GlyphIndex) bool {
	seg, err := t.OutlineData(gid)
	if err != nil || len(seg) < 2 {
		return false
	}
	return int16(u16(seg)) < 0
}

// ComponentRef references a component glyph of a composite glyph. Offset is
// the byte position of the component's glyph index within the composite's
// description; clients which re-assemble fonts will want to patch the glyph
// index at exactly this position.
type ComponentRef struct {
	Glyph  GlyphIndex
	Offset int
}

// Components returns the direct components of a composite glyph, in the order
// they appear in the glyph description. For simple glyphs and empty glyphs,
// Components returns nil. Nested composites are not flattened; clients have
// to recurse on the component glyphs themselves.
func (t *GlyfTable) Components(gid GlyphIndex) ([]ComponentRef, error) {
	seg, err := t.OutlineData(gid)
	if err != nil {
		return nil, err
	}
	if len(seg) < 10 || int16(u16(seg)) >= 0 {
		return nil, nil
	}
	var components []ComponentRef
	pos := 10 // skip contour count and bounding box
	for {
		if pos+4 > len(seg) {
			return nil, errFontFormat("composite glyph description out of bounds")
		}
		flags := u16(seg[pos:])
		components = append(components, ComponentRef{
			Glyph:  GlyphIndex(u16(seg[pos+2:])),
			Offset: pos + 2,
		})
		pos += 4
		if flags&arg1And2AreWords > 0 {
			pos += 4 // arguments are int16 or uint16
		} else {
			pos += 2 // arguments are int8 or uint8
		}
		switch { // at most one transformation per component
		case flags&weHaveAScale > 0:
			pos += 2
		case flags&weHaveAnXAndYScale > 0:
			pos += 4
		case flags&weHaveATwoByTwo > 0:
			pos += 8
		}
		if flags&moreComponents == 0 {
			break
		}
	}
	return components, nil
}
