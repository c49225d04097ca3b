package font

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

type sw struct {
	s xfont.Style
	w xfont.Weight
}

func TestGuess(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.fonts")
	defer teardown()
	//
	for k, v := range map[string]sw{
		"fonts/Clarendon-bold.ttf":               {xfont.StyleNormal, xfont.WeightBold},
		"Microsoft/Gill Sans MT Bold Italic.ttf": {xfont.StyleItalic, xfont.WeightBold},
		"Cambria Math.ttf":                       {xfont.StyleNormal, xfont.WeightNormal},
	} {
		style, weight := GuessStyleAndWeight(k)
		t.Logf("style = %d, weight = %d", style, weight)
		if style != v.s || weight != v.w {
			t.Errorf("expected different style or weight for %s", k)
		}
	}
}

func TestMatch(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.fonts")
	defer teardown()
	//
	if !Matches("fonts/Clarendon-bold.ttf",
		"clarendon", xfont.StyleNormal, xfont.WeightBold) {
		t.Errorf("expected match for Clarendon, haven't")
	}
	if !Matches("Microsoft/Gill Sans MT Bold Italic.ttf",
		"gill sans", xfont.StyleItalic, xfont.WeightBold) {
		t.Errorf("expected match for Gill, haven't")
	}
	if !Matches("Cambria Math.ttf",
		"cambria", xfont.StyleNormal, xfont.WeightNormal) {
		t.Errorf("expected match for Cambria Math, haven't")
	}
}

func TestNormalizeFont(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.fonts")
	defer teardown()
	//
	n := NormalizeFontname("Clarendon", xfont.StyleItalic, xfont.WeightBold)
	if n != "clarendon-italic-bold" {
		t.Errorf("expected different normalized name for clarendon")
	}
}

func TestClosestMatch(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.fonts")
	defer teardown()
	//
	descriptors := []Descriptor{
		{Family: "Gill Sans", Variants: []string{"regular", "bold", "italic"}},
		{Family: "Clarendon", Variants: []string{"regular"}},
	}
	desc, variant, conf := ClosestMatch(descriptors, "gill", xfont.StyleNormal, xfont.WeightNormal)
	if conf != PerfectConfidence {
		t.Fatalf("expected a perfect match for gill/regular, is %d", conf)
	}
	if desc.Family != "Gill Sans" || variant != "regular" {
		t.Errorf("expected Gill Sans regular, is %s %s", desc.Family, variant)
	}
	// "bold" answers only the weight half of the request
	_, _, conf = ClosestMatch(descriptors, "gill", xfont.StyleNormal, xfont.WeightBold)
	if conf > LowConfidence {
		t.Errorf("expected at most low confidence for gill/bold, is %d", conf)
	}
	_, _, conf = ClosestMatch(descriptors, "helvetica", xfont.StyleNormal, xfont.WeightNormal)
	if conf != NoConfidence {
		t.Errorf("expected no match for helvetica, confidence is %d", conf)
	}
}

func TestParseFont(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.fonts")
	defer teardown()
	//
	f, err := ParseOpenTypeFont(goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	if f.SFNT == nil {
		t.Fatal("expected SFNT metadata for parsed font")
	}
	t.Logf("font name = %s", f.Fontname)
	if f.Fontname == "" {
		t.Errorf("expected parsed font to know its name")
	}
}

func TestFallbackFont(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.fonts")
	defer teardown()
	//
	f := FallbackFont()
	if f == nil || f.SFNT == nil {
		t.Fatal("expected fallback font to be present")
	}
	if f.Fontname != "Go Sans" {
		t.Errorf("expected fallback font to be Go Sans, is %s", f.Fontname)
	}
}

func TestRegistry(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.fonts")
	defer teardown()
	//
	reg := NewRegistry()
	f := FallbackFont()
	reg.StoreFont("go_sans", f)
	if _, ok := reg.Font("helvetica"); ok {
		t.Errorf("did not expect to find helvetica in fresh registry")
	}
	stored, ok := reg.Font("go_sans")
	if !ok || stored.Fontname != "Go Sans" {
		t.Fatalf("expected to find stored font go_sans")
	}
	// first registration wins
	reg.StoreFont("go_sans", &ScalableFont{Fontname: "Impostor"})
	stored, _ = reg.Font("go_sans")
	if stored.Fontname != "Go Sans" {
		t.Errorf("expected first registration to win, have %s", stored.Fontname)
	}
	reg.StoreFont("go_mono", f)
	names := reg.FamiliesWithPrefix("go_")
	if len(names) != 2 {
		t.Fatalf("expected 2 fonts with prefix go_, have %d", len(names))
	}
	if names[0] != "go_mono" || names[1] != "go_sans" {
		t.Errorf("expected sorted prefix listing, have %v", names)
	}
}
