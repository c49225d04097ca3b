package ot

import (
	"fmt"
	"sort"

	"github.com/npillmayer/epress/core/font"
	"golang.org/x/text/encoding/unicode"
)

// Font represents the internal structure of an OpenType font.
// It is used to access the tables of a font for inspection and for
// re-assembly during subsetting.
type Font struct {
	F      *font.ScalableFont
	Header *FontHeader
	tables map[Tag]Table
	CMap   *CMapTable // cmap table is mandatory for every font we accept
}

// FontHeader is a directory of the top-level tables in a font. If the font file
// contains only one font, the table directory will begin at byte 0 of the file.
// If the font file is an OpenType Font Collection file, the beginning
// point of the table directory for each font is indicated in the TTCHeader.
//
// OpenType fonts that contain TrueType outlines should use the value of 0x00010000
// for the FontType. OpenType fonts containing CFF data (version 1 or 2) should
// use 0x4F54544F ('OTTO', when re-interpreted as a Tag).
// The Apple specification for TrueType fonts allows for 'true' and 'typ1',
// but these version tags should not be used for OpenType fonts.
type FontHeader struct {
	FontType   uint32
	TableCount uint16
}

// HasTrueTypeOutlines is a predicate: does this font carry glyph outlines in
// a 'glyf' table? CFF-flavoured fonts ('OTTO') store outlines differently.
func (fh *FontHeader) HasTrueTypeOutlines() bool {
	return fh.FontType == 0x00010000 || fh.FontType == 0x74727565
}

// Table returns the font table for a given tag. If a table for a tag cannot
// be found in the font, nil is returned.
//
// Please note that the current implementation will not interpret every kind of
// font table, either because there is no need to do so (with regard to
// subsetting), or because implementation is not yet finished. However, `Table`
// will return at least a generic table type for each table contained in the
// font, i.e. no table information will be dropped.
//
// Table tag names are case-sensitive, following the names in the OpenType
// specification.
func (otf *Font) Table(tag Tag) Table {
	if t, ok := otf.tables[tag]; ok {
		return t
	}
	return nil
}

// TableTags returns a list of tags, one for each table contained in the font,
// in ascending tag order. This is the order the tables are listed in the
// font's table directory.
func (otf *Font) TableTags() []Tag {
	var tags = make([]Tag, 0, len(otf.tables))
	for tag := range otf.tables {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// GlyphIndex is a glyph index in a font.
type GlyphIndex uint16

// --- Tag -------------------------------------------------------------------

// Tag is defined by the spec as:
// Array of four uint8s (length = 32 bits) used to identify a table, design-variation axis,
// script, language system, feature, or baseline
type Tag uint32

// MakeTag creates a Tag from 4 bytes, e.g.,
//
//	MakeTag([]byte("cmap"))
//
// If b is shorter or longer, it will be silently extended or cut as appropriate.
func MakeTag(b []byte) Tag {
	if b == nil {
		b = []byte{0, 0, 0, 0}
	} else if len(b) > 4 {
		b = b[:4]
	} else if len(b) < 4 {
		b = append([]byte{0, 0, 0, 0}[:4-len(b)], b...)
	}
	return Tag(u32(b))
}

// T returns a Tag from a (4-letter) string.
// If t is shorter or longer, it will be silently extended or cut as appropriate
func T(t string) Tag {
	t = (t + "    ")[:4]
	return Tag(u32([]byte(t)))
}

func (t Tag) String() string {
	bytes := []byte{
		byte(t >> 24 & 0xff),
		byte(t >> 16 & 0xff),
		byte(t >> 8 & 0xff),
		byte(t & 0xff),
	}
	return string(bytes)
}

// --- Table -----------------------------------------------------------------

// Table represents one of the various OpenType font tables
//
// Required Tables, according to the OpenType specification:
// 'cmap' (Character to glyph mapping), 'head' (Font header), 'hhea' (Horizontal header),
// 'hmtx' (Horizontal metrics), 'maxp' (Maximum profile), 'name' (Naming table),
// 'OS/2' (OS/2 and Windows specific metrics), 'post' (PostScript information).
//
// For TrueType outline fonts: 'cvt ' (Control Value Table, optional),
// 'fpgm' (Font program, optional), 'glyf' (Glyph data), 'loca' (Index to location),
// 'prep' (CVT Program, optional), 'gasp' (Grid-fitting/Scan-conversion, optional).
//
// Currently not used/supported:
// SVG font table, bitmap glyph tables, color font tables, font variations.
type Table interface {
	Extent() (uint32, uint32) // offset and byte size within the font's binary data
	Binary() []byte           // the bytes of this table; should be treated as read-only by clients
	Checksum() uint32         // table checksum as recorded in the font's table directory
	Self() TableSelf          // reference to itself
}

func newTable(tag Tag, b binarySegm, offset, size uint32) *genericTable {
	t := &genericTable{tableBase{
		data:   b,
		name:   tag,
		offset: offset,
		length: size,
	},
	}
	t.self = t
	return t
}

type genericTable struct {
	tableBase
}

// tableBase is a common parent for all kinds of OpenType tables.
type tableBase struct {
	data     binarySegm // a table is a slice of font data
	name     Tag        // 4-byte name as an integer
	offset   uint32     // from offset
	length   uint32     // to offset + length
	checksum uint32     // checksum from the table directory record
	self     interface{}
}

// Extent returns offset and byte size of this table within the OpenType font.
func (tb *tableBase) Extent() (uint32, uint32) {
	return tb.offset, tb.length
}

// Binary returns the bytes of this table. Should be treated as read-only by
// clients, as it is a view into the original data.
func (tb *tableBase) Binary() []byte {
	return tb.data
}

// Checksum returns the checksum recorded for this table in the font's table
// directory. It is not re-calculated from the data.
func (tb *tableBase) Checksum() uint32 {
	return tb.checksum
}

func (tb *tableBase) Self() TableSelf {
	return TableSelf{tableBase: tb}
}

// TableSelf is a reference to a table. Its primary use is for converting
// a generic table to a concrete table flavour, and for reproducing the
// name tag of a table.
type TableSelf struct {
	tableBase *tableBase
}

// NameTag returns the 4-letter name of a table.
func (tself TableSelf) NameTag() Tag {
	return tself.tableBase.name
}

func safeSelf(tself TableSelf) interface{} {
	if tself.tableBase == nil || tself.tableBase.self == nil {
		return TableSelf{}
	}
	return tself.tableBase.self
}

// AsCMap returns this table as a cmap table, or nil.
func (tself TableSelf) AsCMap() *CMapTable {
	if k, ok := safeSelf(tself).(*CMapTable); ok {
		return k
	}
	return nil
}

// AsGlyf returns this table as a glyf table, or nil.
func (tself TableSelf) AsGlyf() *GlyfTable {
	if g, ok := safeSelf(tself).(*GlyfTable); ok {
		return g
	}
	return nil
}

// AsLoca returns this table as a loca table, or nil.
func (tself TableSelf) AsLoca() *LocaTable {
	if k, ok := safeSelf(tself).(*LocaTable); ok {
		return k
	}
	return nil
}

// AsMaxP returns this table as a maxp table, or nil.
func (tself TableSelf) AsMaxP() *MaxPTable {
	if k, ok := safeSelf(tself).(*MaxPTable); ok {
		return k
	}
	return nil
}

// AsKern returns this table as a kern table, or nil.
func (tself TableSelf) AsKern() *KernTable {
	if k, ok := safeSelf(tself).(*KernTable); ok {
		return k
	}
	return nil
}

// AsHead returns this table as a head table, or nil.
func (tself TableSelf) AsHead() *HeadTable {
	if k, ok := safeSelf(tself).(*HeadTable); ok {
		return k
	}
	return nil
}

// AsHHea returns this table as a hhea table, or nil.
func (tself TableSelf) AsHHea() *HHeaTable {
	if k, ok := safeSelf(tself).(*HHeaTable); ok {
		return k
	}
	return nil
}

// AsHMtx returns this table as a hmtx table, or nil.
func (tself TableSelf) AsHMtx() *HMtxTable {
	if k, ok := safeSelf(tself).(*HMtxTable); ok {
		return k
	}
	return nil
}

// AsPost returns this table as a post table, or nil.
func (tself TableSelf) AsPost() *PostTable {
	if k, ok := safeSelf(tself).(*PostTable); ok {
		return k
	}
	return nil
}

// AsName returns this table as a name table, or nil.
func (tself TableSelf) AsName() *NameTable {
	if k, ok := safeSelf(tself).(*NameTable); ok {
		return k
	}
	return nil
}

// --- Concrete table implementations ----------------------------------------

// HeadTable gives global information about the font.
// Only a small subset of fields are made public by HeadTable, as they are
// needed for consistency-checks and for locating glyphs. Clients interested
// in any of the other fields of table 'head' will have to read them from the
// table's binary data.
type HeadTable struct {
	tableBase
	Flags            uint16 // see https://docs.microsoft.com/en-us/typography/opentype/spec/head
	UnitsPerEm       uint16 // values 16 … 16384 are valid
	IndexToLocFormat uint16 // needed to interpret loca table
}

func newHeadTable(tag Tag, b binarySegm, offset, size uint32) *HeadTable {
	t := &HeadTable{}
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

// KernTable gives information about kerning and kern pairs.
// The kerning table contains the values that control the inter-character spacing for
// the glyphs in a font. OpenType™ fonts containing CFF outlines are not supported
// by the 'kern' table and must use the GPOS OpenType Layout table.
type KernTable struct {
	tableBase
	headers []kernSubTableHeader
}

func newKernTable(tag Tag, b binarySegm, offset, size uint32) *KernTable {
	t := &KernTable{}
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

// KernSubTableInfo contains header information for a kerning sub-table.
// Currently only format 0 of kerning tables is supported (as does MS Windows).
type KernSubTableInfo struct {
	IsHorizontal  bool // kern data may be horizontal or vertical
	IsMinimum     bool // if false, table has kerning values, otherwise has minimum values
	IsOverride    bool // if true, the value in this table should replace the value currently being accumulated
	IsCrossStream bool // if true, kerning is perpendicular to the flow of the text
	Offset        uint16
	Length        uint32
}

// SubTableCount returns the number of (format 0) kerning sub-tables in this
// kern table.
func (t *KernTable) SubTableCount() int {
	return len(t.headers)
}

// SubTableInfo returns information about a kerning sub-table. n is 0…N-1.
func (t *KernTable) SubTableInfo(n int) KernSubTableInfo {
	// Mask    Name
	// 0x8000  kernVertical
	// 0x4000  kernCrossStream
	// 0x2000  kernVariation
	// 0x1000  kernOverride
	// 0x0F00  kernUnusedBits
	// 0x00FF  kernFormatMask
	info := KernSubTableInfo{}
	if n >= 0 && n < len(t.headers) {
		h := t.headers[n]
		info.IsHorizontal = h.coverage&0x8000 == 0
		info.IsMinimum = h.coverage&0x4000 > 0
		info.IsCrossStream = h.coverage&0x2000 > 0
		info.IsOverride = h.coverage&0x08 > 0
		info.Offset = h.offset
		info.Length = h.length
	}
	return info
}

// KernPair is a kerning value for a pair of glyphs.
type KernPair struct {
	Left, Right GlyphIndex
	Value       int16 // in font units, negative values move glyphs closer together
}

// Pairs returns the kerning pairs of sub-table n. n is 0…N-1.
func (t *KernTable) Pairs(n int) []KernPair {
	if n < 0 || n >= len(t.headers) {
		return nil
	}
	h := t.headers[n]
	cnt := int(h.directory[0])
	pairs := make([]KernPair, 0, cnt)
	for i := 0; i < cnt; i++ {
		at := int(h.offset) + i*6
		rec, err := t.data.view(at, 6)
		if err != nil {
			break // sub-table size lied; stop at the table bounds
		}
		pairs = append(pairs, KernPair{
			Left:  GlyphIndex(u16(rec)),
			Right: GlyphIndex(u16(rec[2:])),
			Value: i16(rec[4:]),
		})
	}
	return pairs
}

// LocaTable stores the offsets to the locations of the glyphs in the font,
// relative to the beginning of the glyph data table.
// By definition, index zero points to the “missing character”, which is the character
// that appears if a character is not found in the font. The missing character is
// commonly represented by a blank box or a space.
type LocaTable struct {
	tableBase
	inx2loc func(t *LocaTable, gid GlyphIndex) uint32 // returns glyph location for glyph gid
	locCnt  int                                       // number of locations, i.e. number of glyphs + 1
}

// IndexToLocation returns an offset, indexed by glyph ID, which provides the
// location of the glyph data block within the 'glyf' table. The loca table
// contains one entry more than the font has glyphs; the extent of glyph i
// spans offsets i … i+1.
func (t *LocaTable) IndexToLocation(gid GlyphIndex) uint32 {
	return t.inx2loc(t, gid)
}

// EntryCount returns the number of location entries, which is the number of
// glyphs in the font plus one.
func (t *LocaTable) EntryCount() int {
	return t.locCnt
}

func newLocaTable(tag Tag, b binarySegm, offset, size uint32) *LocaTable {
	t := &LocaTable{}
	base := tableBase{
		data:   b,
		name:   tag,
		offset: offset,
		length: size,
	}
	t.tableBase = base
	t.inx2loc = shortLocaVersion // may get changed by font consistency check
	t.locCnt = 0                 // has to be set during consistency check
	t.self = t
	return t
}

func shortLocaVersion(t *LocaTable, gid GlyphIndex) uint32 {
	// in case of error link to 'missing character' at location 0
	if int(gid) >= t.locCnt {
		return 0
	}
	loc, err := t.data.u16(int(gid) * 2)
	if err != nil {
		return 0
	}
	return uint32(loc) * 2
}

func longLocaVersion(t *LocaTable, gid GlyphIndex) uint32 {
	// in case of error link to 'missing character' at location 0
	if int(gid) >= t.locCnt {
		return 0
	}
	loc, err := t.data.u32(int(gid) * 4)
	if err != nil {
		return 0
	}
	return loc
}

// MaxPTable establishes the memory requirements for this font.
// The 'maxp' table contains a count for the number of glyphs in the font.
// Whenever this value changes, other tables which depend on it should also be updated.
type MaxPTable struct {
	tableBase
	NumGlyphs int
}

func newMaxPTable(tag Tag, b binarySegm, offset, size uint32) *MaxPTable {
	t := &MaxPTable{}
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

// HHeaTable contains information for horizontal layout.
type HHeaTable struct {
	tableBase
	NumberOfHMetrics int
}

func newHHeaTable(tag Tag, b binarySegm, offset, size uint32) *HHeaTable {
	t := &HHeaTable{}
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

// HMtxTable contains metric information for the horizontal layout of each of
// the glyphs in the font. Each element in the contained hMetrics-array has two
// parts: the advance width and left side bearing. The value NumberOfHMetrics
// is taken from the `hhea` table and copied into the HMtxTable for easier
// access. In a monospaced font, only one entry is required but that entry may
// not be omitted. Optionally, an array of left side bearings follows the
// hMetrics-array. The corresponding glyphs are assumed to have the same
// advance width as that found in the last entry in the hMetrics array.
type HMtxTable struct {
	tableBase
	NumberOfHMetrics int
}

func newHMtxTable(tag Tag, b binarySegm, offset, size uint32) *HMtxTable {
	t := &HMtxTable{}
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

// Metrics returns the advance width and left side bearing of a glyph.
// Glyphs at or beyond NumberOfHMetrics repeat the advance width of the last
// full entry and take their left side bearing from the trailing array.
func (t *HMtxTable) Metrics(g GlyphIndex) (uint16, int16) {
	n := t.NumberOfHMetrics
	if n == 0 {
		return 0, 0
	}
	if int(g) < n {
		a, _ := t.data.u16(int(g) * 4)
		lsb, _ := t.data.u16(int(g)*4 + 2)
		return a, int16(lsb)
	}
	a, _ := t.data.u16((n - 1) * 4)
	lsb, err := t.data.u16(n*4 + (int(g)-n)*2)
	if err != nil { // no left side bearing stored for g; 0 is the sane default
		return a, 0
	}
	return a, int16(lsb)
}

// --- Table 'name' -----------------------------------------------------------

// NameTable contains human-readable names for features and settings,
// copyright notices, font names, style names, and other information related
// to the font.
//
// We only interpret name records with Unicode-capable platform/encoding
// combinations, i.e. Windows/BMP, Unicode, and legacy Mac/Roman entries.
type NameTable struct {
	tableBase
	strbuf   binarySegm // storage area for the strings
	nameRecs array      // name records, 12 bytes each
}

func newNameTable(tag Tag, b binarySegm, offset, size uint32) *NameTable {
	t := &NameTable{}
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

// Standard name IDs, from the OpenType specification.
const (
	NameFamily     uint16 = 1
	NameSubfamily  uint16 = 2
	NameUniqueID   uint16 = 3
	NameFull       uint16 = 4
	NameVersion    uint16 = 5
	NamePostscript uint16 = 6
)

// Entry returns the name table entry for a given name ID, or "" if the font
// does not carry one in a supported encoding. Windows/Unicode entries are
// preferred over legacy Macintosh entries.
func (t *NameTable) Entry(nameID uint16) string {
	var macRoman string
	for i := 0; i < t.nameRecs.Len(); i++ {
		rec := t.nameRecs.Get(i)
		if u16(rec[6:]) != nameID {
			continue
		}
		pltf, enc := u16(rec), u16(rec[2:])
		strlen, stroff := int(u16(rec[8:])), int(u16(rec[10:]))
		str, err := t.strbuf.view(stroff, strlen)
		if err != nil {
			continue
		}
		switch {
		case pltf == 3 && enc == 1, pltf == 0:
			if s, err := decodeUtf16(str); err == nil {
				return s
			}
		case pltf == 1 && enc == 0:
			macRoman = string(str)
		}
	}
	return macRoman
}

func decodeUtf16(str []byte) (string, error) {
	enc := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	decoder := enc.NewDecoder()
	s, err := decoder.Bytes(str)
	if err != nil {
		return "", fmt.Errorf("decoding UTF-16 error: %v", err)
	}
	return string(s), nil
}
