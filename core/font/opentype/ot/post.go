package ot

// PostTable contains the information needed by PostScript printer drivers,
// most prominently the PostScript names of all glyphs in the font. Version
// 2.0 of the table stores one name index per glyph, where indices below 258
// refer to a fixed list of standard Macintosh glyph names and higher indices
// refer to name strings carried by the table itself.
//
// Versions 1.0 and 3.0 do not store per-glyph data. Version 2.5 has been
// deprecated by the OpenType specification and is treated like 3.0.
//
// See https://docs.microsoft.com/en-us/typography/opentype/spec/post
type PostTable struct {
	tableBase
	Version      uint32
	numGlyphs    int
	glyphNameInx array    // version 2.0 only, one uint16 per glyph
	names        []string // version 2.0 only, names carried by the font
}

func newPostTable(tag Tag, b binarySegm, offset, size uint32) *PostTable {
	t := &PostTable{}
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

// GlyphCount returns the number of glyphs covered by a version 2.0 table,
// and 0 for all other versions.
func (t *PostTable) GlyphCount() int {
	return t.numGlyphs
}

// NameIndex returns the raw glyph-name index for a glyph. Indices below 258
// refer to the standard Macintosh glyph names. The second return value is
// false whenever the table version does not store glyph names, or gid is out
// of range.
func (t *PostTable) NameIndex(gid GlyphIndex) (uint16, bool) {
	if t.Version != 0x00020000 || int(gid) >= t.glyphNameInx.Len() {
		return 0, false
	}
	return t.glyphNameInx.Get(int(gid)).U16(0), true
}

// GlyphName returns the PostScript name of a glyph, or "" if the table does
// not carry one.
func (t *PostTable) GlyphName(gid GlyphIndex) string {
	inx, ok := t.NameIndex(gid)
	if !ok {
		return ""
	}
	if inx < 258 {
		return macGlyphNames[inx]
	}
	custom := int(inx) - 258
	if custom >= len(t.names) {
		return ""
	}
	return t.names[custom]
}

// The 258 standard Macintosh glyph names, in their defined order. Name
// indices in post tables of version 2.0 below 258 point into this list.
var macGlyphNames = [258]string{
	".notdef", ".null", "nonmarkingreturn", "space", "exclam", "quotedbl",
	"numbersign", "dollar", "percent", "ampersand", "quotesingle", "parenleft",
	"parenright", "asterisk", "plus", "comma", "hyphen", "period", "slash",
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight",
	"nine", "colon", "semicolon", "less", "equal", "greater", "question", "at",
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M", "N", "O",
	"P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z", "bracketleft",
	"backslash", "bracketright", "asciicircum", "underscore", "grave", "a",
	"b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n", "o", "p",
	"q", "r", "s", "t", "u", "v", "w", "x", "y", "z", "braceleft", "bar",
	"braceright", "asciitilde", "Adieresis", "Aring", "Ccedilla", "Eacute",
	"Ntilde", "Odieresis", "Udieresis", "aacute", "agrave", "acircumflex",
	"adieresis", "atilde", "aring", "ccedilla", "eacute", "egrave",
	"ecircumflex", "edieresis", "iacute", "igrave", "icircumflex", "idieresis",
	"ntilde", "oacute", "ograve", "ocircumflex", "odieresis", "otilde",
	"uacute", "ugrave", "ucircumflex", "udieresis", "dagger", "degree", "cent",
	"sterling", "section", "bullet", "paragraph", "germandbls", "registered",
	"copyright", "trademark", "acute", "dieresis", "notequal", "AE", "Oslash",
	"infinity", "plusminus", "lessequal", "greaterequal", "yen", "mu",
	"partialdiff", "summation", "product", "pi", "integral", "ordfeminine",
	"ordmasculine", "Omega", "ae", "oslash", "questiondown", "exclamdown",
	"logicalnot", "radical", "florin", "approxequal", "Delta", "guillemotleft",
	"guillemotright", "ellipsis", "nonbreakingspace", "Agrave", "Atilde",
	"Otilde", "OE", "oe", "endash", "emdash", "quotedblleft", "quotedblright",
	"quoteleft", "quoteright", "divide", "lozenge", "ydieresis", "Ydieresis",
	"fraction", "currency", "guilsinglleft", "guilsinglright", "fi", "fl",
	"daggerdbl", "periodcentered", "quotesinglbase", "quotedblbase",
	"perthousand", "Acircumflex", "Ecircumflex", "Aacute", "Edieresis",
	"Egrave", "Iacute", "Icircumflex", "Idieresis", "Igrave", "Oacute",
	"Ocircumflex", "apple", "Ograve", "Uacute", "Ucircumflex", "Ugrave",
	"dotlessi", "circumflex", "tilde", "macron", "breve", "dotaccent", "ring",
	"cedilla", "hungarumlaut", "ogonek", "caron", "Lslash", "lslash", "Scaron",
	"scaron", "Zcaron", "zcaron", "brokenbar", "Eth", "eth", "Yacute",
	"yacute", "Thorn", "thorn", "minus", "multiply", "onesuperior",
	"twosuperior", "threesuperior", "onehalf", "onequarter", "threequarters",
	"franc", "Gbreve", "gbreve", "Idotaccent", "Scedilla", "scedilla",
	"Cacute", "cacute", "Ccaron", "ccaron", "dcroat",
}
