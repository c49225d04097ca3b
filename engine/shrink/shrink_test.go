package shrink

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/npillmayer/epress/input/epub"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"golang.org/x/image/font/gofont/goregular"
)

const probeContainerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

type pubItem struct {
	id        string
	href      string
	mediaType string
	content   string
}

func buildProbe(t *testing.T, items []pubItem) *epub.Publication {
	t.Helper()
	var manifest, spine strings.Builder
	for _, it := range items {
		fmt.Fprintf(&manifest, "    <item id=%q href=%q media-type=%q/>\n", it.id, it.href, it.mediaType)
		if it.mediaType == "application/xhtml+xml" {
			fmt.Fprintf(&spine, "    <itemref idref=%q/>\n", it.id)
		}
	}
	opf := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<package version="3.0" xmlns="http://www.idpf.org/2007/opf" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Shrink Probe</dc:title>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>
%s  </manifest>
  <spine>
%s  </spine>
</package>`, manifest.String(), spine.String())
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatal(err)
	}
	if _, err = w.Write([]byte("application/epub+zip")); err != nil {
		t.Fatal(err)
	}
	write := func(name, content string) {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err = f.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	write("META-INF/container.xml", probeContainerXML)
	write("OEBPS/content.opf", opf)
	for _, it := range items {
		write("OEBPS/"+it.href, it.content)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	pub, err := epub.ParsePublication(buf.Bytes())
	if err != nil {
		t.Fatalf("cannot parse probe publication: %v", err)
	}
	return pub
}

func testJPEG(t *testing.T, quality int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{uint8(4 * x), uint8(4 * y), uint8(2 * (x + y)), 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

const probeCSS = `@font-face { font-family: "Go Regular"; src: url(fonts/go.ttf); }
body { font-family: "Go Regular", serif; }`

const probeChapter = `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
  <head>
    <title>One</title>
  </head>
  <body>
    <p>Publish and subset.</p>
  </body>
</html>`

func TestRunShrinksPublication(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.shrink")
	defer teardown()
	//
	pub := buildProbe(t, []pubItem{
		{"css", "style.css", "text/css", probeCSS},
		{"ch1", "chapter1.xhtml", "application/xhtml+xml", probeChapter},
		{"f1", "fonts/go.ttf", "font/ttf", string(goregular.TTF)},
		{"img1", "photo.jpg", "image/jpeg", testJPEG(t, 95)},
	})
	opts := Defaults()
	opts.Workers = 2
	report, err := Run(context.Background(), pub, opts)
	if err != nil {
		t.Fatalf("shrink run failed: %v", err)
	}
	if len(report.Outcomes) != 4 {
		t.Fatalf("expected 4 outcomes, have %d", len(report.Outcomes))
	}
	for i, id := range []string{"css", "ch1", "f1", "img1"} {
		if report.Outcomes[i].ResourceID != id {
			t.Errorf("expected outcome %d to be %s, is %s", i, id, report.Outcomes[i].ResourceID)
		}
	}
	css := report.Outcomes[0]
	if css.Strategy != Copy || css.Accepted || css.SizeAfter != css.SizeBefore {
		t.Errorf("expected stylesheet to be copied, have %+v", css)
	}
	ch := report.Outcomes[1]
	if ch.Strategy != TrimMarkup || !ch.Accepted {
		t.Errorf("expected chapter to be trimmed, have %+v", ch)
	}
	font := report.Outcomes[2]
	if font.Strategy != SubsetFont || !font.Accepted {
		t.Fatalf("expected font to be subset, have %+v", font)
	}
	if font.GlyphCount < 2 || font.Saved() <= 0 {
		t.Errorf("implausible font outcome: %+v", font)
	}
	img := report.Outcomes[3]
	if img.Strategy != RecompressImage || !img.Accepted {
		t.Errorf("expected image to be recompressed, have %+v", img)
	}
	if report.SizeAfter >= report.SizeBefore {
		t.Errorf("expected the run to shrink, have %d -> %d", report.SizeBefore, report.SizeAfter)
	}
	if _, ok := report.Replacements["css"]; ok {
		t.Error("copied resources must not be replaced")
	}
	for _, id := range []string{"ch1", "f1", "img1"} {
		if report.Replacements[id] == nil {
			t.Errorf("expected a replacement for %s", id)
		}
	}
	// the report feeds straight into the writer
	var out bytes.Buffer
	if err := pub.Write(&out, report.Replacements); err != nil {
		t.Fatalf("cannot write shrunk publication: %v", err)
	}
	shrunk, err := epub.ParsePublication(out.Bytes())
	if err != nil {
		t.Fatalf("shrunk publication does not parse: %v", err)
	}
	if r, ok := shrunk.Resource("f1"); !ok || len(r.Content) != font.SizeAfter {
		t.Errorf("expected subset font of %d bytes in output", font.SizeAfter)
	}
	if r, ok := shrunk.Resource("css"); !ok || string(r.Content) != probeCSS {
		t.Error("expected stylesheet to survive byte-identical")
	}
}

func TestRunRejectsCorruptFont(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.shrink")
	defer teardown()
	//
	css := probeCSS + `
@font-face { font-family: Broken; src: url(fonts/broken.ttf); }
em { font-family: Broken; }`
	pub := buildProbe(t, []pubItem{
		{"css", "style.css", "text/css", css},
		{"ch1", "chapter1.xhtml", "application/xhtml+xml",
			`<html><body><p>Text <em>more</em></p></body></html>`},
		{"f1", "fonts/go.ttf", "font/ttf", string(goregular.TTF)},
		{"f2", "fonts/broken.ttf", "font/ttf", "this is not a font"},
	})
	report, err := Run(context.Background(), pub, Defaults())
	if err != nil {
		t.Fatalf("shrink run failed: %v", err)
	}
	var good, broken *Outcome
	for i := range report.Outcomes {
		switch report.Outcomes[i].ResourceID {
		case "f1":
			good = &report.Outcomes[i]
		case "f2":
			broken = &report.Outcomes[i]
		}
	}
	if broken == nil || broken.Accepted {
		t.Fatal("expected the corrupt font to be rejected")
	}
	if broken.Reason != "malformed-font" {
		t.Errorf("expected reason malformed-font, have %q", broken.Reason)
	}
	if broken.SizeAfter != broken.SizeBefore {
		t.Error("rejected font must keep its size")
	}
	if _, ok := report.Replacements["f2"]; ok {
		t.Error("rejected font must not be replaced")
	}
	// one corrupt font must not drag the others down
	if good == nil || !good.Accepted {
		t.Error("expected the intact font to be subset regardless")
	}
}

func TestRunUnboundFontCopied(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.shrink")
	defer teardown()
	//
	pub := buildProbe(t, []pubItem{
		{"ch1", "chapter1.xhtml", "application/xhtml+xml",
			`<html><body><p>Words.</p></body></html>`},
		{"f1", "fonts/go.ttf", "font/ttf", string(goregular.TTF)},
	})
	opts := Defaults()
	opts.Markup = false
	report, err := Run(context.Background(), pub, opts)
	if err != nil {
		t.Fatalf("shrink run failed: %v", err)
	}
	var font *Outcome
	for i := range report.Outcomes {
		if report.Outcomes[i].ResourceID == "f1" {
			font = &report.Outcomes[i]
		}
	}
	if font == nil {
		t.Fatal("expected an outcome for the font resource")
	}
	if font.Strategy != Copy || font.Accepted {
		t.Errorf("expected the unbound font to be copied, have %+v", font)
	}
	if font.Reason == "" {
		t.Error("expected a reason note for the copied font")
	}
	if len(report.Replacements) != 0 {
		t.Errorf("expected no replacements, have %d", len(report.Replacements))
	}
}

func TestRunCancelled(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.shrink")
	defer teardown()
	//
	pub := buildProbe(t, []pubItem{
		{"ch1", "chapter1.xhtml", "application/xhtml+xml", probeChapter},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := Run(ctx, pub, Defaults())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, have %v", err)
	}
	if report != nil {
		t.Error("a cancelled run must not produce a report")
	}
}

func TestRunNothingEnabled(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.shrink")
	defer teardown()
	//
	pub := buildProbe(t, []pubItem{
		{"ch1", "chapter1.xhtml", "application/xhtml+xml", probeChapter},
		{"f1", "fonts/go.ttf", "font/ttf", string(goregular.TTF)},
	})
	report, err := Run(context.Background(), pub, Options{})
	if err != nil {
		t.Fatalf("shrink run failed: %v", err)
	}
	if len(report.Replacements) != 0 {
		t.Error("expected no replacements with all strategies disabled")
	}
	if report.SizeAfter != report.SizeBefore {
		t.Errorf("expected sizes to stay, have %d -> %d", report.SizeBefore, report.SizeAfter)
	}
	for _, oc := range report.Outcomes {
		if oc.Strategy != Copy {
			t.Errorf("expected copy strategy for %s, have %v", oc.ResourceID, oc.Strategy)
		}
	}
}

func TestStrategyFor(t *testing.T) {
	opts := Defaults()
	cases := []struct {
		mediaType string
		want      Strategy
	}{
		{"font/ttf", SubsetFont},
		{"FONT/TTF", SubsetFont},
		{"application/vnd.ms-opentype", SubsetFont},
		{"application/font-sfnt", SubsetFont},
		{"image/jpeg", RecompressImage},
		{"image/png", Copy},
		{"application/xhtml+xml; charset=utf-8", TrimMarkup},
		{"text/css", Copy},
	}
	for _, c := range cases {
		if s := opts.strategyFor(c.mediaType); s != c.want {
			t.Errorf("expected strategy %v for %s, have %v", c.want, c.mediaType, s)
		}
	}
	if s := (Options{}).strategyFor("font/ttf"); s != Copy {
		t.Error("expected copy strategy with fonts disabled")
	}
}
