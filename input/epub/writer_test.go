package epub

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestWriteRoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.epub")
	defer teardown()
	//
	p, err := ParsePublication(buildContainer(t, testPublicationFiles()))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := p.Write(&buf, nil); err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	wantOrder := []string{
		"mimetype",
		"META-INF/container.xml",
		"OEBPS/content.opf",
		"OEBPS/text/chapter1.xhtml",
		"OEBPS/text/chapter2.xhtml",
		"OEBPS/styles/book.css",
		"OEBPS/fonts/prose.ttf",
		"OEBPS/images/photo.jpg",
		"OEBPS/extra/colophon.txt",
	}
	if len(zr.File) != len(wantOrder) {
		t.Fatalf("expected %d entries in output container, have %d", len(wantOrder), len(zr.File))
	}
	for i, name := range wantOrder {
		if zr.File[i].Name != name {
			t.Errorf("expected entry %d to be %s, is %s", i, name, zr.File[i].Name)
		}
	}
	if zr.File[0].Method != zip.Store {
		t.Errorf("expected mimetype entry to be stored, is compressed")
	}
	if zr.File[1].Method != zip.Deflate {
		t.Errorf("expected container.xml to be deflated, is not")
	}
	q, err := ParsePublication(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range p.Resources() {
		s, ok := q.Resource(r.ID)
		if !ok {
			t.Errorf("resource %s lost in round trip", r.ID)
			continue
		}
		if !bytes.Equal(r.Content, s.Content) {
			t.Errorf("resource %s content changed in round trip", r.ID)
		}
	}
	if _, ok := q.entry("OEBPS/extra/colophon.txt"); !ok {
		t.Errorf("expected non-manifest entry to survive the round trip, did not")
	}
}

func TestWriteReplacement(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.epub")
	defer teardown()
	//
	p, err := ParsePublication(buildContainer(t, testPublicationFiles()))
	if err != nil {
		t.Fatal(err)
	}
	subset := []byte("a much smaller font")
	var buf bytes.Buffer
	if err := p.Write(&buf, map[string][]byte{"font1": subset}); err != nil {
		t.Fatal(err)
	}
	q, err := ParsePublication(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	font, _ := q.Resource("font1")
	if !bytes.Equal(font.Content, subset) {
		t.Errorf("expected replaced font content in output, have %q", font.Content)
	}
	chap, _ := q.Resource("chap1")
	orig, _ := p.Resource("chap1")
	if !bytes.Equal(chap.Content, orig.Content) {
		t.Errorf("expected untouched resources to be copied byte-identical")
	}
	// the source publication stays what it was
	font, _ = p.Resource("font1")
	if string(font.Content) != testPublicationFiles()["OEBPS/fonts/prose.ttf"] {
		t.Errorf("writing must not mutate the source publication")
	}
}

func TestWriteDeterministic(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.epub")
	defer teardown()
	//
	p, err := ParsePublication(buildContainer(t, testPublicationFiles()))
	if err != nil {
		t.Fatal(err)
	}
	var one, two bytes.Buffer
	if err := p.Write(&one, nil); err != nil {
		t.Fatal(err)
	}
	if err := p.Write(&two, nil); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(one.Bytes(), two.Bytes()) {
		t.Errorf("expected two write runs to produce identical containers")
	}
	q, err := ParsePublication(one.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	var again bytes.Buffer
	if err := q.Write(&again, nil); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(one.Bytes(), again.Bytes()) {
		t.Errorf("expected write after re-parse to reproduce the container")
	}
}
