package otquery

import (
	"testing"

	"github.com/npillmayer/epress/core/font"
	"github.com/npillmayer/epress/core/font/opentype/ot"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/suite"
	"golang.org/x/text/language"
)

// --- Test Suite Preparation ------------------------------------------------

type InfoTestEnviron struct {
	suite.Suite
	otf *ot.Font
}

// listen for 'go test' command --> run test methods
func TestInfoFunctions(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.fonts")
	defer teardown()
	suite.Run(t, new(InfoTestEnviron))
}

// run once, before test suite methods
func (env *InfoTestEnviron) SetupSuite() {
	env.T().Log("Setting up test suite")
	tracing.Select("epress.fonts").SetTraceLevel(tracing.LevelError)
	env.otf = loadFallbackFont(env.T())
	tracing.Select("epress.fonts").SetTraceLevel(tracing.LevelInfo)
}

// run once, after test suite methods
func (env *InfoTestEnviron) TearDownSuite() {
	env.T().Log("Tearing down test suite")
}

// --- Tests -----------------------------------------------------------------

func (env *InfoTestEnviron) TestFontTypeInfo() {
	fti := FontType(env.otf)
	env.Equal("TrueType", fti, "expected font type of test font to be TrueType")
}

func (env *InfoTestEnviron) TestGeneralInfo() {
	info := NameInfo(env.otf, language.Und)
	env.T().Logf("info = %v", info)
	fam, ok := info["family"]
	env.Require().True(ok, "font family identifier not found in font info")
	env.Contains(fam, "Go", "expected font family name to mention 'Go'")
}

func (env *InfoTestEnviron) TestLayoutInfo() {
	layouts := LayoutTables(env.otf)
	env.T().Logf("test font layout tables: %v", layouts)
	for _, tag := range []string{"GSUB", "GPOS", "BASE", "JSTF", "GDEF"} {
		if env.otf.Table(ot.T(tag)) != nil {
			env.Contains(layouts, tag, "table %s is in the font, but not reported", tag)
		} else {
			env.NotContains(layouts, tag, "table %s is reported, but not in the font", tag)
		}
	}
}

func (env *InfoTestEnviron) TestReverseLookup() {
	gid := GlyphIndex(env.otf, 'A')
	env.Require().NotZero(gid, "expected a glyph for 'A' in test font")
	r := CodePointForGlyph(env.otf, gid)
	env.Equal('A', r, "expected code-point to be %#U, is %#U", 'A', r)
}

func (env *InfoTestEnviron) TestGlyphCount() {
	n := GlyphCount(env.otf)
	env.T().Logf("glyph count = %d", n)
	env.Greater(n, 2, "expected test font to have more than 2 glyphs")
}

// --- Helpers ----------------------------------------------------------

func loadFallbackFont(t *testing.T) *ot.Font {
	f := font.FallbackFont()
	otf, err := ot.Parse(f.Binary)
	if err != nil {
		t.Fatalf("cannot decode embedded test font: %s", err)
	}
	otf.F = f
	t.Logf("parsed OpenType font = %s", otf.F.Fontname)
	return otf
}
