package ot

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Code comment often will cite passage from the
// OpenType specification version 1.8.4;
// see https://docs.microsoft.com/en-us/typography/opentype/spec/.

// ---------------------------------------------------------------------------

// Parse parses an OpenType font from a byte slice.
// An ot.Font needs ongoing access to the fonts byte-data after the Parse function returns.
// Its elements are assumed immutable while the ot.Font remains in use.
func Parse(font []byte) (*Font, error) {
	// https://www.microsoft.com/typography/otspec/otff.htm: Offset Table is 12 bytes.
	r := bytes.NewReader(font)
	h := FontHeader{}
	if err := binary.Read(r, binary.BigEndian, &h); err != nil {
		return nil, errFontFormat("cannot read font header")
	}
	tracer().Debugf("header = %v, tag = %x|%s", h, h.FontType, Tag(h.FontType).String())
	if !(h.FontType == 0x4f54544f || // OTTO
		h.FontType == 0x00010000 || // TrueType
		h.FontType == 0x74727565) { // true
		return nil, errFontFormat(fmt.Sprintf("font type not supported: %x", h.FontType))
	}
	otf := &Font{Header: &h, tables: make(map[Tag]Table)}
	src := binarySegm(font)
	// "The Offset Table is followed immediately by the Table Record entries …
	// sorted in ascending order by tag", 16 bytes each.
	buf, err := src.view(12, 16*int(h.TableCount))
	if err != nil {
		return nil, errFontFormat("table record entries")
	}
	for b, prevTag := buf, Tag(0); len(b) > 0; b = b[16:] {
		tag := MakeTag(b)
		if tag < prevTag {
			return nil, errFontFormat("table order")
		}
		prevTag = tag
		chksum := u32(b[4:8])
		off, size := u32(b[8:12]), u32(b[12:16])
		if off&3 != 0 { // ignore checksums, but "all tables must begin on four byte boundries".
			return nil, errFontFormat("invalid table offset")
		}
		data := binarySegm{} // some fonts carry empty tables
		if size > 0 {
			if data, err = src.view(int(off), int(size)); err != nil {
				return nil, errFontFormat(fmt.Sprintf("extent of table %s", tag))
			}
		}
		t, err := parseTable(tag, data, off, size)
		if err != nil {
			return nil, err
		}
		if t != nil {
			t.Self().tableBase.checksum = chksum
			otf.tables[tag] = t
		}
	}
	if err := checkEssentials(otf); err != nil {
		return nil, err
	}
	return otf, nil
}

// According to the OpenType spec, a font needs more tables to function
// correctly ('name', 'OS/2', 'post'). We get along without those, as fonts
// in the wild do omit one or another.
var RequiredTables = []string{
	"cmap", "head", "hhea", "hmtx", "maxp",
}

// Consistency check and shortcuts to essential tables. Some inter-table
// dependencies are resolved here, as lookups in several of the tables need
// values carried by one of the other tables.
func checkEssentials(otf *Font) error {
	for _, tag := range RequiredTables {
		if otf.tables[T(tag)] == nil {
			return errFontFormat("missing required table " + tag)
		}
	}
	otf.CMap = otf.tables[T("cmap")].Self().AsCMap()
	if otf.CMap == nil || otf.CMap.GlyphIndexMap == nil {
		return errFontFormat("cmap table unusable")
	}
	maxp := otf.tables[T("maxp")].Self().AsMaxP()
	if maxp == nil || maxp.NumGlyphs == 0 {
		// "a font must have at least two glyphs, and glyph index 0 must have an outline"
		return errFontFormat("maxp table unusable")
	}
	hhea := otf.tables[T("hhea")].Self().AsHHea()
	if hhea == nil {
		return errFontFormat("hhea table unusable")
	}
	if hhea.NumberOfHMetrics > maxp.NumGlyphs {
		return errFontFormat("hhea metrics count exceeds glyph count")
	}
	hmtx := otf.tables[T("hmtx")].Self().AsHMtx()
	if hmtx == nil {
		return errFontFormat("hmtx table unusable")
	}
	hmtx.NumberOfHMetrics = hhea.NumberOfHMetrics
	n := hhea.NumberOfHMetrics
	if hmtx.data.Size() < 4*n+2*(maxp.NumGlyphs-n) {
		return errFontFormat("hmtx table too small for glyph count")
	}
	head := otf.tables[T("head")].Self().AsHead()
	if head == nil {
		return errFontFormat("head table unusable")
	}
	// The size of entries in the loca table depends on head.IndexToLocFormat,
	// the entry count is maxp.NumGlyphs + 1 (Apple TrueType reference).
	if lo := otf.Table(T("loca")); lo != nil {
		loca := lo.Self().AsLoca()
		entrySize := 2
		if head.IndexToLocFormat == 1 {
			loca.inx2loc = longLocaVersion
			entrySize = 4
		}
		if loca.data.Size() < entrySize*(maxp.NumGlyphs+1) {
			return errFontFormat("loca table too small for glyph count")
		}
		loca.locCnt = maxp.NumGlyphs + 1
		if gl := otf.Table(T("glyf")); gl != nil {
			gl.Self().AsGlyf().loca = loca
		}
	} else if otf.Table(T("glyf")) != nil {
		return errFontFormat("glyf table without loca table")
	}
	if otf.Header.HasTrueTypeOutlines() && otf.Table(T("glyf")) == nil {
		return errFontFormat("missing glyf table")
	}
	return nil
}

func parseTable(t Tag, b binarySegm, offset, size uint32) (Table, error) {
	switch t {
	case T("cmap"):
		return parseCMap(t, b, offset, size)
	case T("head"):
		return parseHead(t, b, offset, size)
	case T("glyf"):
		return newGlyfTable(t, b, offset, size), nil
	case T("hhea"):
		return parseHHea(t, b, offset, size)
	case T("hmtx"):
		return parseHMtx(t, b, offset, size)
	case T("kern"):
		return parseKern(t, b, offset, size)
	case T("loca"):
		return parseLoca(t, b, offset, size)
	case T("maxp"):
		return parseMaxP(t, b, offset, size)
	case T("name"):
		return parseName(t, b, offset, size)
	case T("post"):
		return parsePost(t, b, offset, size)
	}
	tracer().Infof("font contains table (%s), will not be interpreted", t)
	return newTable(t, b, offset, size), nil
}

// --- Head table ------------------------------------------------------------

func parseHead(tag Tag, b binarySegm, offset, size uint32) (Table, error) {
	if size < 54 {
		return nil, errFontFormat("size of head table")
	}
	t := newHeadTable(tag, b, offset, size)
	t.Flags, _ = b.u16(16)      // flags
	t.UnitsPerEm, _ = b.u16(18) // units per em
	// IndexToLocFormat is needed to interpret the loca table:
	// 0 for short offsets, 1 for long
	t.IndexToLocFormat, _ = b.u16(50)
	if t.IndexToLocFormat > 1 {
		return nil, errFontFormat("head table loca format")
	}
	return t, nil
}

// --- CMap table ------------------------------------------------------------

// This table defines mapping of character codes to a default glyph index. Different
// subtables may be defined that each contain mappings for different character encoding
// schemes. The table header indicates the character encodings for which subtables are
// present.
//
// From the spec.: “Apart from a format 14 subtable, all other subtables are exclusive:
// applications should select and use one and ignore the others. […]
// If a font includes Unicode subtables for both 16-bit encoding (typically, format 4)
// and also 32-bit encoding (formats 10 or 12), then the characters supported by the
// subtable for 32-bit encoding should be a superset of the characters supported by
// the subtable for 16-bit encoding, and the 32-bit encoding should be used by
// applications. Fonts should not include 16-bit Unicode subtables using both format 4
// and format 6; format 4 should be used. Similarly, fonts should not include 32-bit
// Unicode subtables using both format 10 and format 12; format 12 should be used.
// If a font includes encoding records for Unicode subtables of the same format but
// with different platform IDs, an application may choose which to select, but should
// make this selection consistently each time the font is used.”
//
// From Apple: // https://developer.apple.com/fonts/TrueType-Reference-Manual/RM06/Chap6cmap.html
// “The use of the Macintosh platformID is currently discouraged. Subtables with a
// Macintosh platformID are only required for backwards compatibility.”
//
// All in all, we only support the following plaform/encoding/format combinations:
//
//	0 (Unicode)  3    4   Unicode BMB
//	0 (Unicode)  4    12  Unicode full
//	3 (Win)      1    4   Unicode BMP
//	3 (Win)      10   12  Unicode full
func parseCMap(tag Tag, b binarySegm, offset, size uint32) (Table, error) {
	n, _ := b.u16(2) // number of sub-tables
	tracer().Debugf("font cmap has %d sub-tables in %d|%d bytes", n, len(b), size)
	t := newCMapTable(tag, b, offset, size)
	const headerSize, entrySize = 4, 8
	if size < headerSize+entrySize*uint32(n) {
		return nil, errFontFormat("size of cmap table")
	}
	var enc encodingRecord
	for i := 0; i < int(n); i++ {
		rec, _ := b.view(headerSize+entrySize*i, entrySize)
		pid, psid := u16(rec), u16(rec[2:])
		width := platformEncodingWidth(pid, psid)
		if width <= enc.width {
			continue
		}
		subOffset := u32(rec[4:])
		if subOffset >= size {
			tracer().Infof("cmap sub-table cannot be parsed")
			continue
		}
		format := b.U16(int(subOffset))
		tracer().Debugf("cmap table contains subtable with format %d", format)
		if supportedCmapFormat(format, pid, psid) {
			enc.platformId = pid
			enc.encodingId = psid
			enc.width = width
			enc.format = format
			enc.offset = subOffset
		}
	}
	if enc.width == 0 {
		return nil, errFontFormat("no supported cmap format found")
	}
	var err error
	if t.GlyphIndexMap, err = makeGlyphIndex(b, enc); err != nil {
		return nil, err
	}
	return t, nil
}

type encodingRecord struct {
	platformId uint16
	encodingId uint16
	format     uint16
	offset     uint32 // subtable offset from the beginning of the cmap table
	width      int    // encoding width in bytes
}

// --- Kern table ------------------------------------------------------------

type kernSubTableHeader struct {
	directory [4]uint16 // information to support binary search on sub-table
	offset    uint16    // start position of this sub-table's kern pairs
	length    uint32    // size of the sub-table in bytes, without header
	coverage  uint16    // info about type of information contained in this sub-table
}

// TrueType and OpenType slightly differ on formats of kern tables:
// see https://developer.apple.com/fonts/TrueType-Reference-Manual/RM06/Chap6kern.html
// and https://docs.microsoft.com/en-us/typography/opentype/spec/kern

// parseKern parses the kern table. There is significant confusion with this table
// concerning format differences between OpenType, TrueType, and fonts in the wild.
// We currently only support kern table format 0, which should be supported on any
// platform. In the real world, fonts usually have just one kern sub-table, and
// older Windows versions cannot handle more than one.
func parseKern(tag Tag, b binarySegm, offset, size uint32) (Table, error) {
	if size <= 4 {
		return nil, nil
	}
	var N, suboffset, subheaderlen int
	if version := u32(b); version == 0x00010000 {
		tracer().Debugf("font has Apple TTF kern table format")
		n, _ := b.u32(4) // number of kerning tables is uint32
		N, suboffset, subheaderlen = int(n), 8, 16
	} else {
		tracer().Debugf("font has OTF (MS) kern table format")
		n, _ := b.u16(2) // number of kerning tables is uint16
		N, suboffset, subheaderlen = int(n), 4, 14
	}
	tracer().Debugf("kern table has %d sub-tables", N)
	t := newKernTable(tag, b, offset, size)
	for i := 0; i < N; i++ { // read in N sub-tables
		if suboffset+subheaderlen >= int(size) { // check for sub-table header size
			return nil, errFontFormat("kern table format")
		}
		h := kernSubTableHeader{
			offset: uint16(suboffset + subheaderlen),
			// sub-tables are of varying size; size may be off ⇒ see below
			length:   uint32(u16(b[suboffset+2:]) - uint16(subheaderlen)),
			coverage: u16(b[suboffset+4:]),
		}
		if format := h.coverage >> 8; format != 0 {
			tracer().Infof("kern sub-table format %d not supported, ignoring sub-table", format)
			continue // we only support format 0 kerning tables; skip this one
		}
		h.directory = [4]uint16{
			u16(b[suboffset+subheaderlen-8:]),
			u16(b[suboffset+subheaderlen-6:]),
			u16(b[suboffset+subheaderlen-4:]),
			u16(b[suboffset+subheaderlen-2:]),
		}
		kerncnt := uint32(h.directory[0])
		tracer().Debugf("kern sub-table has %d entries", kerncnt)
		// For some fonts, size calculation of kern sub-tables is off; see
		// https://github.com/fonttools/fonttools/issues/314#issuecomment-118116527
		// Testable with the Calibri font.
		sz := kerncnt * 6 // kern pair is of size 6
		if sz != h.length {
			tracer().Infof("kern sub-table size should be 0x%x, but given as 0x%x; fixing",
				sz, h.length)
			h.length = sz
		}
		if uint32(suboffset)+uint32(subheaderlen)+sz > size {
			return nil, errFontFormat("kern sub-table size exceeds kern table bounds")
		}
		t.headers = append(t.headers, h)
		suboffset += subheaderlen + int(h.length)
	}
	tracer().Debugf("table kern has %d sub-table(s)", len(t.headers))
	return t, nil
}

// --- Loca table ------------------------------------------------------------

// Dependencies (taken from Apple Developer page about TrueType):
// The size of entries in the 'loca' table must be appropriate for the value of the
// indexToLocFormat field of the 'head' table. The number of entries must be the same
// as the numGlyphs field of the 'maxp' table, plus one.
// The 'loca' table is most intimately dependent upon the contents of the 'glyf' table
// and vice versa. Changes to the 'loca' table must not be made unless appropriate
// changes to the 'glyf' table are simultaneously made.
func parseLoca(tag Tag, b binarySegm, offset, size uint32) (Table, error) {
	return newLocaTable(tag, b, offset, size), nil
}

// --- MaxP table ------------------------------------------------------------

// This table establishes the memory requirements for this font. Fonts with CFF data
// must use Version 0.5 of this table, specifying only the numGlyphs field. Fonts
// with TrueType outlines must use Version 1.0 of this table, where all data is required.
func parseMaxP(tag Tag, b binarySegm, offset, size uint32) (Table, error) {
	if size <= 6 {
		return nil, nil
	}
	t := newMaxPTable(tag, b, offset, size)
	n, _ := b.u16(4)
	t.NumGlyphs = int(n)
	return t, nil
}

// --- HHea table ------------------------------------------------------------

// This table contains information for horizontal layout, most importantly the
// number of advance-width entries carried by the hmtx table.
func parseHHea(tag Tag, b binarySegm, offset, size uint32) (Table, error) {
	if size == 0 {
		return nil, nil
	}
	tracer().Debugf("HHea table has size %d", size)
	if size < 36 {
		return nil, errFontFormat("hhea table incomplete")
	}
	t := newHHeaTable(tag, b, offset, size)
	n, _ := b.u16(34)
	t.NumberOfHMetrics = int(n)
	return t, nil
}

// --- HMtx table ------------------------------------------------------------

// Dependencies (taken from Apple Developer page about TrueType):
// The value of the numOfLongHorMetrics field is found in the 'hhea' (Horizontal Header)
// table. Fonts that lack an 'hhea' table must not have an 'hmtx' table.
// Other tables may have information duplicating data contained in the 'hmtx' table.
// For example, glyph metrics can also be found in the 'hdmx' (Horizontal Device Metrics)
// table and 'bloc' (Bitmap Location) table. There is naturally no requirement that
// the ideal metrics of the 'hmtx' table be perfectly consistent with the device metrics
// found in other tables, but care should be taken that they are not significantly
// inconsistent.
func parseHMtx(tag Tag, b binarySegm, offset, size uint32) (Table, error) {
	if size == 0 {
		return nil, nil
	}
	t := newHMtxTable(tag, b, offset, size)
	return t, nil
}

// --- Name table ------------------------------------------------------------

// The name table stores strings as byte sequences in a storage area, referenced
// by name records which carry platform, encoding, language and name ID.
func parseName(tag Tag, b binarySegm, offset, size uint32) (Table, error) {
	if size < 6 {
		return nil, errFontFormat("name table incomplete")
	}
	t := newNameTable(tag, b, offset, size)
	N, _ := b.u16(2)
	strOffset, _ := b.u16(4)
	if int(size) < 6+12*int(N) || uint32(strOffset) > size {
		return nil, errFontFormat("name table storage")
	}
	t.strbuf = b[strOffset:]
	t.nameRecs = viewArray(b[6:6+12*int(N)], 12)
	tracer().Debugf("name table has %d strings, starting at %d", N, strOffset)
	return t, nil
}

// --- Post table ------------------------------------------------------------

// Version 2.0 of the post table carries a name index for every glyph of the
// font, followed by a storage area of length-prefixed name strings.
func parsePost(tag Tag, b binarySegm, offset, size uint32) (Table, error) {
	if size < 32 {
		return nil, errFontFormat("post table incomplete")
	}
	t := newPostTable(tag, b, offset, size)
	t.Version, _ = b.u32(0)
	if t.Version != 0x00020000 {
		return t, nil // other versions carry no per-glyph data
	}
	n, _ := b.u16(32)
	t.numGlyphs = int(n)
	if int(size) < 34+2*int(n) {
		return nil, errFontFormat("post table glyph name index")
	}
	t.glyphNameInx = viewArray16(b[34 : 34+2*int(n)])
	pos := 34 + 2*int(n) // name strings are length-prefixed and tightly packed
	for pos < int(size) {
		l := int(b[pos])
		pos++
		if pos+l > int(size) {
			return nil, errFontFormat("post table name storage")
		}
		t.names = append(t.names, string(b[pos:pos+l]))
		pos += l
	}
	tracer().Debugf("post table carries %d names for %d glyphs", len(t.names), n)
	return t, nil
}
