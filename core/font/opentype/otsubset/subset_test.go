package otsubset

import (
	"bytes"
	"errors"
	"testing"

	hbtt "github.com/benoitkugler/textlayout/fonts/truetype"
	hb "github.com/benoitkugler/textlayout/harfbuzz"
	"github.com/npillmayer/epress/core/font/opentype/ot"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/suite"
)

// --- Test Suite Preparation ------------------------------------------------

type SubsetTestEnviron struct {
	suite.Suite
	font []byte
	otf  *ot.Font
}

// listen for 'go test' command --> run test methods
func TestSubsetFunctions(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.fonts")
	defer teardown()
	suite.Run(t, new(SubsetTestEnviron))
}

// run once, before test suite methods
func (env *SubsetTestEnviron) SetupSuite() {
	env.T().Log("Setting up test suite")
	tracing.Select("epress.fonts").SetTraceLevel(tracing.LevelError)
	env.otf = loadFallbackFont(env.T())
	env.font = env.otf.F.Binary
	tracing.Select("epress.fonts").SetTraceLevel(tracing.LevelInfo)
}

// run once, after test suite methods
func (env *SubsetTestEnviron) TearDownSuite() {
	env.T().Log("Tearing down test suite")
}

// --- Tests -----------------------------------------------------------------

func (env *SubsetTestEnviron) TestSubsetAccepted() {
	usage := NewUsageSet()
	usage.AddString("Hamburgefonstiv")
	res, err := Subset(env.font, usage, Config{})
	env.Require().NoError(err)
	env.Require().True(res.Accepted, "expected a subset of the test font to be accepted")
	env.T().Logf("subset: %d of %d bytes, %d glyphs", res.SizeAfter, res.SizeBefore, res.GlyphCount)
	env.Less(res.SizeAfter, res.SizeBefore, "expected the subset to be smaller than the original")
	env.Equal(len(env.font), res.SizeBefore)
	env.Equal(len(res.Font), res.SizeAfter)
	sub, err := ot.Parse(res.Font)
	env.Require().NoError(err, "the subset font has to parse like any other font")
	maxp := sub.Table(ot.T("maxp")).Self().AsMaxP()
	env.Equal(res.GlyphCount, maxp.NumGlyphs, "expected maxp to reflect the retained glyph count")
	origMaxP := env.otf.Table(ot.T("maxp")).Self().AsMaxP()
	env.Greater(origMaxP.NumGlyphs, maxp.NumGlyphs)
	head := sub.Table(ot.T("head")).Self().AsHead()
	origHead := env.otf.Table(ot.T("head")).Self().AsHead()
	env.Equal(origHead.UnitsPerEm, head.UnitsPerEm, "expected units-per-em to be preserved")
}

func (env *SubsetTestEnviron) TestSubsetKeepsOutlinesAndMetrics() {
	usage := NewUsageSet()
	usage.AddString("AB")
	res, err := Subset(env.font, usage, Config{})
	env.Require().NoError(err)
	env.Require().True(res.Accepted)
	sub, err := ot.Parse(res.Font)
	env.Require().NoError(err)
	glyf := env.otf.Table(ot.T("glyf")).Self().AsGlyf()
	subGlyf := sub.Table(ot.T("glyf")).Self().AsGlyf()
	hmtx := env.otf.Table(ot.T("hmtx")).Self().AsHMtx()
	subHMtx := sub.Table(ot.T("hmtx")).Self().AsHMtx()
	for _, r := range "AB" {
		old := env.otf.CMap.GlyphIndexMap.Lookup(r)
		gid := sub.CMap.GlyphIndexMap.Lookup(r)
		env.Require().NotZero(old)
		env.Require().NotZero(gid, "expected %#U to stay mapped in the subset", r)
		a, err := glyf.OutlineData(old)
		env.Require().NoError(err)
		b, err := subGlyf.OutlineData(gid)
		env.Require().NoError(err)
		// a description may gain one padding byte when re-assembled
		env.Require().GreaterOrEqual(len(b), len(a))
		env.Require().LessOrEqual(len(b)-len(a), 1)
		env.Equal(a, b[:len(a)], "expected outline bytes of %#U to be unmodified", r)
		adv, lsb := hmtx.Metrics(old)
		subAdv, subLsb := subHMtx.Metrics(gid)
		env.Equal(adv, subAdv, "expected the advance width of %#U to be preserved", r)
		env.Equal(lsb, subLsb, "expected the left side bearing of %#U to be preserved", r)
	}
}

func (env *SubsetTestEnviron) TestSubsetIdempotent() {
	usage := NewUsageSet()
	usage.AddString("Idempotenz")
	res, err := Subset(env.font, usage, Config{})
	env.Require().NoError(err)
	env.Require().True(res.Accepted)
	otf1, err := ot.Parse(res.Font)
	env.Require().NoError(err)
	retained, err := Resolve(otf1, usage)
	env.Require().NoError(err)
	env.Equal(res.GlyphCount, retained.Len(), "expected the subset font to already be minimal")
	again, _, err := Rewrite(otf1, usage, retained)
	env.Require().NoError(err)
	env.Equal(res.Font, again, "expected re-subsetting to reproduce the font byte for byte")
}

func (env *SubsetTestEnviron) TestSubsetSizeMonotonic() {
	small := NewUsageSet()
	small.AddString("abc")
	large := NewUsageSet()
	large.AddString("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	resSmall, err := Subset(env.font, small, Config{})
	env.Require().NoError(err)
	resLarge, err := Subset(env.font, large, Config{})
	env.Require().NoError(err)
	env.Require().True(resSmall.Accepted)
	env.Require().True(resLarge.Accepted)
	env.Less(resSmall.GlyphCount, resLarge.GlyphCount)
	env.LessOrEqual(resSmall.SizeAfter, resLarge.SizeAfter,
		"expected fewer code-points to never produce a larger font")
}

func (env *SubsetTestEnviron) TestSubsetShapes() {
	usage := NewUsageSet()
	usage.AddString("Affenzahn")
	res, err := Subset(env.font, usage, Config{})
	env.Require().NoError(err)
	env.Require().True(res.Accepted)
	face, err := hbtt.Parse(bytes.NewReader(res.Font), true)
	env.Require().NoError(err, "expected the shaper to accept the subset font")
	hbFont := hb.NewFont(face)
	buf := hb.NewBuffer()
	buf.Props = hb.SegmentProperties{Direction: hb.LeftToRight}
	runes := []rune("nahe")
	buf.AddRunes(runes, 0, len(runes))
	buf.Shape(hbFont, nil)
	env.Require().Equal(len(runes), len(buf.Info), "expected one glyph per input rune")
	sub, err := ot.Parse(res.Font)
	env.Require().NoError(err)
	for i, info := range buf.Info {
		gid := sub.CMap.GlyphIndexMap.Lookup(runes[i])
		env.NotZero(info.Glyph, "expected %#U to shape to a real glyph", runes[i])
		env.EqualValues(gid, info.Glyph, "expected shaper and cmap to agree on %#U", runes[i])
	}
}

func (env *SubsetTestEnviron) TestSubsetMinSizeGain() {
	usage := NewUsageSet()
	usage.AddString("gain")
	res, err := Subset(env.font, usage, Config{MinSizeGain: 1 << 30})
	env.Require().NoError(err, "an unprofitable subset is not an error")
	env.False(res.Accepted)
	env.Nil(res.Font, "expected no font payload for a rejected subset")
	env.NotZero(res.SizeAfter)
	env.NotZero(res.GlyphCount)
}

func (env *SubsetTestEnviron) TestSubsetOfSubsetNotWorthIt() {
	usage := NewUsageSet()
	usage.AddString("Minimal")
	res, err := Subset(env.font, usage, Config{})
	env.Require().NoError(err)
	env.Require().True(res.Accepted)
	second, err := Subset(res.Font, usage, Config{})
	env.Require().NoError(err)
	env.False(second.Accepted, "a font already subset for this usage has nothing to gain")
	env.Equal(second.SizeBefore, second.SizeAfter)
}

func (env *SubsetTestEnviron) TestSubsetRejectsCorruptFont() {
	usage := NewUsageSet()
	usage.Add('A')
	_, err := Subset(env.font[:64], usage, Config{})
	env.Require().Error(err)
	env.True(errors.Is(err, ErrMalformedFont), "expected a malformed-font error, is %v", err)
	env.Equal("malformed-font", FailureKind(err))
}

func (env *SubsetTestEnviron) TestSubsetRejectsCorruptCMap() {
	// a cmap that declares one encoding record but ends after 6 bytes
	font := spliceTable(env.T(), env.otf, ot.T("cmap"), []byte{0, 0, 0, 1, 0, 3})
	usage := NewUsageSet()
	usage.Add('A')
	_, err := Subset(font, usage, Config{})
	env.Require().Error(err)
	env.True(errors.Is(err, ErrMalformedFont), "expected a malformed-font error, is %v", err)
	env.Equal("malformed-font", FailureKind(err))
}

func (env *SubsetTestEnviron) TestSubsetRejectsCFFOutlines() {
	font := make([]byte, len(env.font))
	copy(font, env.font)
	copy(font, "OTTO") // pretend to carry CFF outlines
	usage := NewUsageSet()
	usage.Add('A')
	_, err := Subset(font, usage, Config{})
	env.Require().Error(err)
	env.True(errors.Is(err, ErrUnsupportedFormat), "expected an unsupported-format error, is %v", err)
	env.Equal("unsupported-format", FailureKind(err))
}

func (env *SubsetTestEnviron) TestPreserveFeatures() {
	usage := NewUsageSet()
	usage.Add('x')
	widened := ApplyFeatures(usage, []Feature{FeatureBasicLatin})
	env.True(widened.Contains('A'))
	env.True(widened.Contains('x'))
	env.Equal(0x7e-0x20+1, widened.Len())
	env.Equal(1, usage.Len(), "expected the input usage set to stay untouched")
	//
	accented := NewUsageSet()
	accented.Add('é')
	widened = ApplyFeatures(accented, []Feature{FeatureNormalization})
	env.True(widened.Contains('é'))
	env.True(widened.Contains('e'), "expected the decomposition to add the base letter")
	env.True(widened.Contains('́'), "expected the decomposition to add the combining accent")
}

func (env *SubsetTestEnviron) TestSubsetGlyphNames() {
	post := env.otf.Table(ot.T("post"))
	env.Require().NotNil(post)
	if post.Self().AsPost().Version != 0x00020000 {
		env.T().Skip("test font carries no version 2.0 post table")
	}
	usage := NewUsageSet()
	usage.AddString("AB")
	res, err := Subset(env.font, usage, Config{})
	env.Require().NoError(err)
	env.Require().True(res.Accepted)
	sub, err := ot.Parse(res.Font)
	env.Require().NoError(err)
	subPost := sub.Table(ot.T("post")).Self().AsPost()
	env.Equal(".notdef", subPost.GlyphName(0))
	gid := sub.CMap.GlyphIndexMap.Lookup('A')
	env.Equal("A", subPost.GlyphName(gid), "expected glyph names to follow their glyphs")
}

func (env *SubsetTestEnviron) TestSubsetPreservesGlyphOrder() {
	usage := NewUsageSet()
	usage.AddString("zyxw")
	retained, err := Resolve(env.otf, usage)
	env.Require().NoError(err)
	remap := NewRemapTable(retained)
	old := remap.OldGlyphs()
	for i := 1; i < len(old); i++ {
		env.Less(int(old[i-1]), int(old[i]), "expected source glyph ids in ascending order")
	}
	gid, ok := remap.Lookup(0)
	env.Require().True(ok, "glyph 0 has to be retained")
	env.Equal(ot.GlyphIndex(0), gid, "expected glyph 0 to stay glyph 0")
}

func (env *SubsetTestEnviron) TestSubsetEmptyUsage() {
	res, err := Subset(env.font, NewUsageSet(), Config{})
	env.Require().NoError(err)
	env.Require().True(res.Accepted)
	env.Equal(1, res.GlyphCount, "expected just the .notdef glyph to survive")
	sub, err := ot.Parse(res.Font)
	env.Require().NoError(err)
	env.Zero(sub.CMap.GlyphIndexMap.Lookup('A'))
	//
	res2, err := Subset(env.font, nil, Config{})
	env.Require().NoError(err)
	env.Equal(res.SizeAfter, res2.SizeAfter, "expected a nil usage set to act like an empty one")
}
