package otsubset

import (
	"encoding/binary"
	"sort"

	"github.com/npillmayer/epress/core/font/opentype/ot"
)

// Rewrite assembles a complete font binary containing exactly the glyphs of
// retained, renumbered densely in ascending order of their source index.
// Tables carrying per-glyph data are rebuilt for the new numbering, the
// 'cmap' table is rebuilt to cover the code-points of usage, tables without
// glyph references are copied unchanged, and glyph-id bearing tables this
// package cannot rewrite are left out.
//
// Rewrite does not modify otf nor the binary data behind it.
func Rewrite(otf *ot.Font, usage *UsageSet, retained *GlyphSet) ([]byte, *RemapTable, error) {
	if otf == nil || otf.Header == nil {
		return nil, nil, malformed("no font to rewrite")
	}
	remap := NewRemapTable(retained)
	rw := &rewriter{otf: otf, remap: remap}
	font, err := rw.rewrite(usage)
	if err != nil {
		return nil, nil, err
	}
	return font, remap, nil
}

// rewriter collects the rebuilt table payloads for one subsetting run.
type rewriter struct {
	otf      *ot.Font
	remap    *RemapTable
	tables   map[ot.Tag][]byte
	longLoca bool
}

func (rw *rewriter) rewrite(usage *UsageSet) ([]byte, error) {
	rw.tables = make(map[ot.Tag][]byte)
	if err := rw.glyfAndLoca(); err != nil { // first; decides the loca format
		return nil, err
	}
	if err := rw.hmtxAndHhea(); err != nil {
		return nil, err
	}
	if err := rw.cmap(usage); err != nil {
		return nil, err
	}
	if err := rw.post(); err != nil {
		return nil, err
	}
	if err := rw.kern(); err != nil {
		return nil, err
	}
	if err := rw.maxp(); err != nil {
		return nil, err
	}
	if err := rw.head(); err != nil {
		return nil, err
	}
	rw.passthrough()
	return assembleFont(rw.otf.Header.FontType, rw.tables), nil
}

// glyfAndLoca copies the outline descriptions of the retained glyphs and
// records their offsets. Component references inside composite glyphs are
// patched to the new numbering. Glyph data is padded to even length, so
// that the short loca format stays available.
func (rw *rewriter) glyfAndLoca() error {
	gl := rw.otf.Table(ot.T("glyf"))
	if gl == nil {
		return unsupported("font has no TrueType outlines")
	}
	glyf := gl.Self().AsGlyf()
	if glyf == nil {
		return unsupported("font has no TrueType outlines")
	}
	var data []byte
	offsets := make([]uint32, 1, rw.remap.Len()+1)
	for _, old := range rw.remap.OldGlyphs() {
		outline, err := glyf.OutlineData(old)
		if err != nil {
			return malformed("glyph %d: %v", old, err)
		}
		start := len(data)
		data = append(data, outline...)
		components, err := glyf.Components(old)
		if err != nil {
			return malformed("glyph %d: %v", old, err)
		}
		for _, component := range components {
			gid, ok := rw.remap.Lookup(component.Glyph)
			if !ok {
				return inconsistency("glyph %d: component %d not in subset",
					old, component.Glyph)
			}
			binary.BigEndian.PutUint16(data[start+component.Offset:], uint16(gid))
		}
		if len(data)%2 != 0 {
			data = append(data, 0)
		}
		offsets = append(offsets, uint32(len(data)))
	}
	rw.longLoca = offsets[len(offsets)-1] > 0x1FFFE
	var loca []byte
	if rw.longLoca {
		loca = make([]byte, 0, 4*len(offsets))
		for _, offset := range offsets {
			loca = appendU32(loca, offset)
		}
	} else {
		loca = make([]byte, 0, 2*len(offsets))
		for _, offset := range offsets {
			loca = appendU16(loca, uint16(offset/2))
		}
	}
	rw.tables[ot.T("glyf")] = data
	rw.tables[ot.T("loca")] = loca
	return nil
}

// hmtxAndHhea writes a full advance/bearing entry for every retained glyph.
// The trailing run of implied advances the format allows is not worth
// reconstructing at subset sizes.
func (rw *rewriter) hmtxAndHhea() error {
	hm := rw.otf.Table(ot.T("hmtx"))
	hh := rw.otf.Table(ot.T("hhea"))
	if hm == nil || hh == nil {
		return malformed("font has no horizontal metrics")
	}
	hmtx := hm.Self().AsHMtx()
	if hmtx == nil {
		return malformed("font has no horizontal metrics")
	}
	data := make([]byte, 0, 4*rw.remap.Len())
	for _, old := range rw.remap.OldGlyphs() {
		advance, lsb := hmtx.Metrics(old)
		data = appendU16(data, advance)
		data = appendU16(data, uint16(lsb))
	}
	src := hh.Binary()
	if len(src) < 36 {
		return malformed("hhea table too short")
	}
	hhea := append([]byte(nil), src...)
	binary.BigEndian.PutUint16(hhea[34:], uint16(rw.remap.Len()))
	rw.tables[ot.T("hmtx")] = data
	rw.tables[ot.T("hhea")] = hhea
	return nil
}

// cmap rebuilds the character map to cover exactly the code-points of usage
// which the source font maps, pointing at the renumbered glyphs.
func (rw *rewriter) cmap(usage *UsageSet) error {
	lookup := rw.otf.CMap.GlyphIndexMap
	var pairs []runeGid
	for _, r := range usage.Runes() {
		old := lookup.Lookup(r)
		if old == 0 {
			continue
		}
		gid, ok := rw.remap.Lookup(old)
		if !ok {
			return inconsistency("%#U resolves to glyph %d, which is not in the subset", r, old)
		}
		pairs = append(pairs, runeGid{r: r, gid: gid})
	}
	rw.tables[ot.T("cmap")] = buildCMap(pairs)
	return nil
}

// post rebuilds the glyph name table. Version 2.0 name indices are
// renumbered along with the glyphs; versions 1.0 and 3.0 carry no per-glyph
// data and travel unchanged. The deprecated version 2.5 cannot express a
// renumbering and degrades to a header-only version 3.0 table.
func (rw *rewriter) post() error {
	pt := rw.otf.Table(ot.T("post"))
	if pt == nil {
		return nil // post is optional
	}
	post := pt.Self().AsPost()
	src := pt.Binary()
	if post == nil || len(src) < 32 {
		return malformed("post table too short")
	}
	switch post.Version {
	case 0x00020000:
		// rebuilt below
	case 0x00025000:
		data := append([]byte(nil), src[:32]...)
		binary.BigEndian.PutUint32(data, 0x00030000)
		rw.tables[ot.T("post")] = data
		return nil
	default:
		rw.tables[ot.T("post")] = append([]byte(nil), src...)
		return nil
	}
	data := make([]byte, 0, 34+2*rw.remap.Len())
	data = append(data, src[:32]...)
	data = appendU16(data, uint16(rw.remap.Len()))
	var names [][]byte
	for _, old := range rw.remap.OldGlyphs() {
		inx, ok := post.NameIndex(old)
		if !ok {
			tracer().Infof("post table has no name entry for glyph %d", old)
			inx = 0 // .notdef
		}
		if inx < 258 { // standard Macintosh glyph names keep their index
			data = appendU16(data, inx)
			continue
		}
		name := post.GlyphName(old)
		if len(name) > 255 {
			name = name[:255]
		}
		data = appendU16(data, uint16(258+len(names)))
		names = append(names, []byte(name))
	}
	for _, name := range names {
		data = append(data, byte(len(name)))
		data = append(data, name...)
	}
	rw.tables[ot.T("post")] = data
	return nil
}

// kern merges the horizontal format 0 kerning sub-tables into a single one,
// keeping the pairs where both glyphs survive. Fonts whose kerning lives in
// other sub-table formats lose it; so do fonts kerning exclusively between
// discarded glyphs, which lose the table entirely.
func (rw *rewriter) kern() error {
	kt := rw.otf.Table(ot.T("kern"))
	if kt == nil {
		return nil
	}
	kern := kt.Self().AsKern()
	if kern == nil {
		return nil
	}
	merged := make(map[uint32]int16)
	for n := 0; n < kern.SubTableCount(); n++ {
		info := kern.SubTableInfo(n)
		if !info.IsHorizontal || info.IsMinimum || info.IsCrossStream {
			continue
		}
		for _, pair := range kern.Pairs(n) {
			left, okL := rw.remap.Lookup(pair.Left)
			right, okR := rw.remap.Lookup(pair.Right)
			if !okL || !okR {
				continue
			}
			key := uint32(left)<<16 | uint32(right)
			if _, ok := merged[key]; !ok { // earlier sub-tables win
				merged[key] = pair.Value
			}
		}
	}
	if len(merged) == 0 {
		tracer().Debugf("no kern pairs survive the subset, dropping table")
		return nil
	}
	keys := make([]uint32, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	nPairs := len(keys)
	subLength := 14 + 6*nPairs
	if subLength > 0xFFFF {
		tracer().Infof("%d kern pairs exceed the format 0 size limit, dropping table", nPairs)
		return nil
	}
	pow2, log2 := 1, 0
	for pow2*2 <= nPairs {
		pow2 *= 2
		log2++
	}
	data := make([]byte, 0, 4+subLength)
	data = appendU16(data, 0) // version
	data = appendU16(data, 1) // one merged sub-table
	data = appendU16(data, 0) // sub-table version
	data = appendU16(data, uint16(subLength))
	data = appendU16(data, 0x0001) // coverage: horizontal, format 0
	data = appendU16(data, uint16(nPairs))
	data = appendU16(data, uint16(6*pow2))          // searchRange
	data = appendU16(data, uint16(log2))            // entrySelector
	data = appendU16(data, uint16(6*nPairs-6*pow2)) // rangeShift
	for _, key := range keys {
		data = appendU16(data, uint16(key>>16))
		data = appendU16(data, uint16(key))
		data = appendU16(data, uint16(merged[key]))
	}
	rw.tables[ot.T("kern")] = data
	return nil
}

func (rw *rewriter) maxp() error {
	mx := rw.otf.Table(ot.T("maxp"))
	if mx == nil {
		return malformed("font has no maxp table")
	}
	src := mx.Binary()
	if len(src) < 6 {
		return malformed("maxp table too short")
	}
	// the remaining maxp fields are upper bounds and stay valid for any
	// subset of the glyphs
	data := append([]byte(nil), src...)
	binary.BigEndian.PutUint16(data[4:], uint16(rw.remap.Len()))
	rw.tables[ot.T("maxp")] = data
	return nil
}

func (rw *rewriter) head() error {
	hd := rw.otf.Table(ot.T("head"))
	if hd == nil {
		return malformed("font has no head table")
	}
	src := hd.Binary()
	if len(src) < 54 {
		return malformed("head table too short")
	}
	data := append([]byte(nil), src...)
	format := uint16(0)
	if rw.longLoca {
		format = 1
	}
	binary.BigEndian.PutUint16(data[50:], format) // indexToLocFormat
	rw.tables[ot.T("head")] = data
	return nil
}

// droppedTables lists glyph-id bearing tables this package does not
// rewrite. Keeping any of them would leave indices pointing at glyphs which
// no longer exist, so they are dropped from the output. 'DSIG' goes too;
// a digital signature cannot survive any rewrite.
var droppedTables = map[ot.Tag]bool{
	ot.T("GSUB"): true, ot.T("GPOS"): true, ot.T("GDEF"): true,
	ot.T("BASE"): true, ot.T("JSTF"): true, ot.T("MATH"): true,
	ot.T("DSIG"): true,
	ot.T("hdmx"): true, ot.T("LTSH"): true,
	ot.T("EBDT"): true, ot.T("EBLC"): true, ot.T("EBSC"): true,
	ot.T("CBDT"): true, ot.T("CBLC"): true, ot.T("sbix"): true,
	ot.T("COLR"): true, ot.T("CPAL"): true, ot.T("SVG "): true,
	ot.T("fvar"): true, ot.T("gvar"): true, ot.T("avar"): true,
	ot.T("cvar"): true, ot.T("HVAR"): true, ot.T("VVAR"): true,
	ot.T("MVAR"): true, ot.T("STAT"): true,
	ot.T("vhea"): true, ot.T("vmtx"): true, ot.T("VORG"): true,
	ot.T("morx"): true, ot.T("mort"): true, ot.T("kerx"): true,
	ot.T("just"): true, ot.T("opbd"): true, ot.T("bsln"): true,
	ot.T("lcar"): true, ot.T("prop"): true, ot.T("feat"): true,
}

// passthrough copies every remaining table unchanged, except the dropped
// ones.
func (rw *rewriter) passthrough() {
	for _, tag := range rw.otf.TableTags() {
		if _, done := rw.tables[tag]; done {
			continue
		}
		if droppedTables[tag] {
			tracer().Debugf("dropping table %s", tag)
			continue
		}
		rw.tables[tag] = append([]byte(nil), rw.otf.Table(tag).Binary()...)
	}
}

// --- File assembly ---------------------------------------------------------

// checkSumAdjustment in 'head' receives this magic value, minus the
// checksum of the whole file (OpenType spec, 'head' table).
const checksumAdjustmentMagic uint32 = 0xB1B0AFBA

// assembleFont lays out a font file: offset table, table directory sorted
// ascending by tag, then the table data in the same order, each table
// aligned to a four byte boundary and zero padded. Table checksums cover
// the padded extent; the directory records the unpadded length. The
// checkSumAdjustment field of 'head' participates in all sums as zero and
// is patched last.
//
// assembleFont copies all table data; the input slices stay untouched.
func assembleFont(fontType uint32, tables map[ot.Tag][]byte) []byte {
	tags := make([]ot.Tag, 0, len(tables))
	total := 12 + 16*len(tables)
	for tag, data := range tables {
		tags = append(tags, tag)
		total += (len(data) + 3) &^ 3
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	n := len(tags)
	pow2, log2 := 1, 0
	for pow2*2 <= n {
		pow2 *= 2
		log2++
	}
	searchRange := uint16(16 * pow2)
	out := make([]byte, 12+16*n, total)
	binary.BigEndian.PutUint32(out, fontType)
	binary.BigEndian.PutUint16(out[4:], uint16(n))
	binary.BigEndian.PutUint16(out[6:], searchRange)
	binary.BigEndian.PutUint16(out[8:], uint16(log2))
	binary.BigEndian.PutUint16(out[10:], uint16(16*n)-searchRange)
	headOffset := -1
	for i, tag := range tags {
		data := tables[tag]
		offset := len(out)
		out = append(out, data...)
		if tag == ot.T("head") && len(data) >= 12 {
			headOffset = offset
			binary.BigEndian.PutUint32(out[offset+8:], 0)
		}
		for len(out)%4 != 0 {
			out = append(out, 0)
		}
		record := 12 + 16*i
		binary.BigEndian.PutUint32(out[record:], uint32(tag))
		binary.BigEndian.PutUint32(out[record+4:], checksum(out[offset:]))
		binary.BigEndian.PutUint32(out[record+8:], uint32(offset))
		binary.BigEndian.PutUint32(out[record+12:], uint32(len(data)))
	}
	if headOffset >= 0 {
		adjustment := checksumAdjustmentMagic - checksum(out)
		binary.BigEndian.PutUint32(out[headOffset+8:], adjustment)
	}
	return out
}

// checksum sums a byte sequence as big-endian uint32 values, with the tail
// padded by zeroes.
func checksum(data []byte) uint32 {
	var sum uint32
	for len(data) >= 4 {
		sum += binary.BigEndian.Uint32(data)
		data = data[4:]
	}
	if len(data) > 0 {
		var tail [4]byte
		copy(tail[:], data)
		sum += binary.BigEndian.Uint32(tail[:])
	}
	return sum
}

func appendU16(b []byte, v uint16) []byte {
	return append(b, byte(v>>8), byte(v))
}

func appendU32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
