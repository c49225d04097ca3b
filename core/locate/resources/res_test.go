package resources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/npillmayer/epress/core"
	"github.com/npillmayer/epress/core/font"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

func TestNotFound(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.resources")
	defer teardown()
	//
	err := NotFound("helvetica", fontResourceType)
	if core.Code(err) != core.EMISSING {
		t.Errorf("expected error code EMISSING, is %d", core.Code(err))
	}
	t.Logf("user message = %q", core.UserMessage(err))
}

func TestResolveRegisteredFont(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.resources")
	defer teardown()
	//
	f := font.FallbackFont()
	key := font.NormalizeFontname("Go Sans", xfont.StyleNormal, xfont.WeightNormal)
	font.GlobalRegistry().StoreFont(key, f)
	loader := ResolveFont(nil, "Go Sans", xfont.StyleNormal, xfont.WeightNormal)
	g, err := loader.Font()
	if err != nil {
		t.Error(err)
	}
	if g == nil {
		t.Fatalf("resolved font is nil, should be Go Sans")
	}
	if g.Fontname != "Go Sans" {
		t.Errorf("expected to resolve Go Sans from the registry, have %s", g.Fontname)
	}
}

func TestResolveFontFile(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.resources")
	defer teardown()
	//
	fontfile := filepath.Join(t.TempDir(), "gomono.ttf")
	if err := os.WriteFile(fontfile, gomono.TTF, 0644); err != nil {
		t.Fatal(err)
	}
	loader := ResolveFont(nil, fontfile, xfont.StyleNormal, xfont.WeightNormal)
	f, err := loader.Font()
	if err != nil {
		t.Error(err)
	}
	if f == nil {
		t.Fatalf("resolved font is nil, should be Go Mono")
	}
	if f.Filepath != fontfile {
		t.Errorf("expected font to be loaded from %s, is from %s", fontfile, f.Filepath)
	}
}

func TestResolveFallback(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.resources")
	defer teardown()
	//
	loader := ResolveFont(nil, "no-such-typeface-whatsoever", xfont.StyleNormal, xfont.WeightNormal)
	f, err := loader.Font()
	if err == nil {
		t.Error("expected resolving an unknown font to flag an error, did not")
	}
	if f == nil {
		t.Fatalf("resolved font is nil, should be the fallback font")
	}
	if f.Fontname != font.FallbackFont().Fontname {
		t.Errorf("expected the fallback font as a substitute, have %s", f.Fontname)
	}
}
