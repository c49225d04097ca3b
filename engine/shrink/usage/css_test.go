package usage

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestSplitFamilies(t *testing.T) {
	families := splitFamilies(`"Gentium Basic", Georgia, serif`)
	if len(families) != 3 {
		t.Fatalf("expected 3 families, have %d: %v", len(families), families)
	}
	if families[0] != "gentium basic" || families[1] != "georgia" || families[2] != "serif" {
		t.Errorf("unexpected family list: %v", families)
	}
	// commas inside quotes do not split
	families = splitFamilies(`"Foo, Bar", serif`)
	if len(families) != 2 || families[0] != "foo, bar" {
		t.Errorf("expected quoted comma to survive, have %v", families)
	}
}

func TestCSSURLs(t *testing.T) {
	urls := cssURLs(`url('fonts/a.ttf') format('truetype'), URL(fonts/b.woff?v=1#frag)`)
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, have %d: %v", len(urls), urls)
	}
	if urls[0] != "fonts/a.ttf" {
		t.Errorf("expected fonts/a.ttf, have %q", urls[0])
	}
	if urls[1] != "fonts/b.woff" {
		t.Errorf("expected query and fragment to be stripped, have %q", urls[1])
	}
}

func TestCSSStrings(t *testing.T) {
	literals := cssStrings(`"\2605 " attr(title) 'y\'s'`)
	if len(literals) != 2 {
		t.Fatalf("expected 2 string literals, have %d: %v", len(literals), literals)
	}
	if literals[0] != "★" {
		t.Errorf("expected hex escape to decode to ★, have %q", literals[0])
	}
	if literals[1] != "y's" {
		t.Errorf("expected escaped quote to decode, have %q", literals[1])
	}
}

func TestNormalizeFamily(t *testing.T) {
	if f := normalizeFamily(`  "Gentium   Basic" `); f != "gentium basic" {
		t.Errorf("expected 'gentium basic', have %q", f)
	}
}

func TestCompileSelectorFallback(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "epress.shrink")
	defer teardown()
	//
	if s := compileSelector("p.note"); s == nil {
		t.Error("expected a plain selector to compile")
	}
	// pseudo elements cannot match nodes; the base selector can
	if s := compileSelector(".star::before"); s == nil {
		t.Error("expected pseudo element selector to fall back to its base")
	}
}
