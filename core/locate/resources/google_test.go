package resources

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/npillmayer/epress/core"
	"github.com/npillmayer/epress/core/font"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	xfont "golang.org/x/image/font"
)

// ATTENTION
// ---------
// Some tests in this file contact the Google font service and require an
// API-key to be present. The API-key has to be set with the GOOGLE_API_KEY
// environment variable; these tests are skipped otherwise.

func requireAPIKey(t *testing.T) {
	t.Helper()
	if os.Getenv("GOOGLE_API_KEY") == "" {
		t.Skip("test requires GOOGLE_API_KEY to be set in the environment")
	}
}

const exampleRespFragm string = `
{
    "kind": "webfonts#webfontList",
    "items": [
        {
            "kind": "webfonts#webfont",
            "family": "Anonymous Pro",
            "variants": [
                "regular",
                "italic",
                "700",
                "700italic"
            ],
            "subsets": [
                "greek",
                "greek-ext",
                "cyrillic-ext",
                "latin-ext",
                "latin",
                "cyrillic"
            ],
            "version": "v3",
            "lastModified": "2012-07-25",
            "files": {
                "regular": "http://themes.googleusercontent.com/static/fonts/anonymouspro/v3/Zhfjj_gat3waL4JSju74E-V_5zh5b-_HiooIRUBwn1A.ttf",
                "italic": "http://themes.googleusercontent.com/static/fonts/anonymouspro/v3/q0u6LFHwttnT_69euiDbWKwIsuKDCXG0NQm7BvAgx-c.ttf",
                "700": "http://themes.googleusercontent.com/static/fonts/anonymouspro/v3/WDf5lZYgdmmKhO8E1AQud--Cz_5MeePnXDAcLNWyBME.ttf",
                "700italic": "http://themes.googleusercontent.com/static/fonts/anonymouspro/v3/_fVr_XGln-cetWSUc-JpfA1LL9bfs7wyIp6F8OC9RxA.ttf"
            }
        },
        {
            "kind": "webfonts#webfont",
            "family": "Antic",
            "variants": [
                "regular"
            ],
            "subsets": [
                "latin"
            ],
            "version": "v4",
            "lastModified": "2012-07-25",
            "files": {
                "regular": "http://themes.googleusercontent.com/static/fonts/antic/v4/hEa8XCNM7tXGzD0Uk0AipA.ttf"
            }
        }
    ]
}
`

func TestGoogleRespDecode(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.resources")
	defer teardown()
	//
	dec := json.NewDecoder(strings.NewReader(exampleRespFragm))
	var list googleFontsList
	err := dec.Decode(&list)
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 font entries in list, have %d", len(list.Items))
	}
	listGoogleFonts(list, ".*")
}

func TestGoogleFontDescriptor(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.resources")
	defer teardown()
	//
	dec := json.NewDecoder(strings.NewReader(exampleRespFragm))
	var list googleFontsList
	if err := dec.Decode(&list); err != nil {
		t.Fatal(err)
	}
	desc := list.Items[0].Descriptor()
	if desc.Family != "Anonymous Pro" {
		t.Errorf("expected family Anonymous Pro, is %s", desc.Family)
	}
	if len(desc.Variants) != 4 {
		t.Errorf("expected 4 variants, have %d", len(desc.Variants))
	}
}

func TestGoogleFontMatching(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.resources")
	defer teardown()
	//
	dec := json.NewDecoder(strings.NewReader(exampleRespFragm))
	var list googleFontsList
	if err := dec.Decode(&list); err != nil {
		t.Fatal(err)
	}
	descs := make([]font.Descriptor, 0, len(list.Items))
	for _, item := range list.Items {
		descs = append(descs, item.Descriptor())
	}
	match, variant, confidence := font.ClosestMatch(descs, "anonymous",
		xfont.StyleNormal, xfont.WeightNormal)
	if match.Family != "Anonymous Pro" || variant != "regular" {
		t.Errorf("expected Anonymous Pro regular, have %s %s", match.Family, variant)
	}
	if confidence != font.PerfectConfidence {
		t.Errorf("expected a perfect match, confidence is %d", confidence)
	}
	_, variant, confidence = font.ClosestMatch(descs, "anonymous",
		xfont.StyleItalic, xfont.WeightNormal)
	if variant != "italic" || confidence != font.PerfectConfidence {
		t.Errorf("expected a perfect match for variant italic, have %s (%d)", variant, confidence)
	}
	// Antic carries just a regular variant, an italic request cannot
	// exceed low confidence
	_, _, confidence = font.ClosestMatch(descs, "antic",
		xfont.StyleItalic, xfont.WeightNormal)
	if confidence > font.LowConfidence {
		t.Errorf("expected low confidence for Antic italic, is %d", confidence)
	}
}

func TestGoogleAPI(t *testing.T) {
	requireAPIKey(t)
	teardown := gotestingadapter.QuickConfig(t, "epress.resources")
	defer teardown()
	//
	if err := SetupGoogleFontsDirectory(nil); err != nil {
		core.UserError(err)
		t.Fatal(err)
	}
}

func TestGoogleFindFont(t *testing.T) {
	requireAPIKey(t)
	teardown := gotestingadapter.QuickConfig(t, "epress.resources")
	defer teardown()
	//
	fi, err := FindGoogleFont(nil, "Inconsolata", xfont.StyleNormal, xfont.WeightNormal)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range fi {
		t.Logf("family = %s, variants = %+v", f.Family, f.Variants)
	}
	_, err = FindGoogleFont(nil, "Inconsolata", xfont.StyleItalic, xfont.WeightNormal)
	if err == nil {
		t.Error("expected search for Inconsolata Italic to fail, did not")
	}
}

func TestGoogleCacheFont(t *testing.T) {
	requireAPIKey(t)
	teardown := gotestingadapter.QuickConfig(t, "epress.resources")
	defer teardown()
	//
	conf := testconfig.Conf{
		"app-key": "epress-test",
	}
	fi, err := FindGoogleFont(conf, "Inconsolata", xfont.StyleNormal, xfont.WeightNormal)
	if err != nil {
		t.Fatal(err)
	}
	path, err := CacheGoogleFont(conf, fi[0], "regular")
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("path = %s", path)
	if _, err = os.Stat(path); err != nil {
		t.Fatal(err)
	}
}
