package otquery

import (
	"github.com/npillmayer/epress/core/font/opentype/ot"
	"golang.org/x/text/language"
)

// FontType returns the font type, encoded in the font header, as a string.
func FontType(otf *ot.Font) string {
	if otf.Header == nil {
		return "<empty>"
	}
	typ := otf.Header.FontType
	switch typ {
	case 0x4f54544f: // OTTO
		return "OpenType (outlines)"
	case 0x00010000: // TrueType
		return "TrueType"
	case 0x74727565: // true
		return "TrueType (Mac legacy)"
	}
	return "<unknown>"
}

// NameInfo returns a map with selected fields from OpenType table `name`.
// Will include (if available in the font) "family", "subfamily", "fullname"
// and "version". Windows/Unicode name records are preferred over legacy
// Macintosh records.
//
// Parameter `lang` is currently unused.
func NameInfo(otf *ot.Font, lang language.Tag) map[string]string {
	names := make(map[string]string)
	table := otf.Table(ot.T("name"))
	if table == nil {
		tracer().Debugf("no name table found in font %s", otf.F.Fontname)
		return names
	}
	name := table.Self().AsName()
	if name == nil {
		return names
	}
	fields := []struct {
		key string
		id  uint16
	}{
		{"family", ot.NameFamily},
		{"subfamily", ot.NameSubfamily},
		{"fullname", ot.NameFull},
		{"version", ot.NameVersion},
	}
	for _, field := range fields {
		if val := name.Entry(field.id); val != "" {
			names[field.key] = val
		}
	}
	return names
}

// LayoutTables returns a list of tag strings, one for each layout-table a font includes.
//
// From the spec:
// OpenType Layout makes use of five tables: GSUB, GPOS, BASE, JSTF, and GDEF.
func LayoutTables(otf *ot.Font) []string {
	var lt []string
	tags := otf.TableTags()
	for _, tag := range tags {
		switch tag.String() {
		case "GSUB", "GPOS", "BASE", "JSTF", "GDEF":
			lt = append(lt, tag.String())
		}
	}
	return lt
}

// GlyphCount returns the number of glyphs a font contains.
func GlyphCount(otf *ot.Font) int {
	if t := otf.Table(ot.T("maxp")); t != nil {
		if maxp := t.Self().AsMaxP(); maxp != nil {
			return maxp.NumGlyphs
		}
	}
	return 0
}

// GlyphName returns the PostScript name of a glyph, extracted from a
// version 2.0 'post' table. Fonts without glyph names yield "".
func GlyphName(otf *ot.Font, gid ot.GlyphIndex) string {
	if t := otf.Table(ot.T("post")); t != nil {
		if post := t.Self().AsPost(); post != nil {
			return post.GlyphName(gid)
		}
	}
	return ""
}
