package usage

import (
	"bytes"
	"strings"

	"github.com/aymerick/douceur/parser"
	"github.com/npillmayer/epress/core/font/opentype/otsubset"
	"github.com/npillmayer/epress/input/epub"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// document is one content document of the publication. A document which
// could not be parsed keeps root == nil and is attributed from its raw
// bytes instead.
type document struct {
	path    string
	root    *html.Node
	raw     []byte
	tainted bool // a '<style>' element of this document did not parse
}

// collector accumulates the face bindings and style rules of a publication
// while its resources are walked.
type collector struct {
	faces   map[string][]string // normalized family name -> font archive paths
	rules   []styleRule
	usage   map[string]*otsubset.UsageSet // font archive path -> usage
	tainted bool                          // a manifest stylesheet did not parse
}

// FontUsage scans the content of a publication and returns a usage set for
// every embedded font file, keyed by the font's archive path.
//
// Fonts never bound by a '@font-face' rule do not appear in the result; the
// shrinker leaves such files alone. A font which is bound but which no
// content selects yields an empty set.
func FontUsage(pub *epub.Publication) map[string]*otsubset.UsageSet {
	c := &collector{
		faces: make(map[string][]string),
		usage: make(map[string]*otsubset.UsageSet),
	}
	docs := contentDocuments(pub)
	for _, r := range pub.Resources() {
		if baseMediaType(r.MediaType) != "text/css" || r.Content == nil {
			continue
		}
		if err := c.collectCSS(string(r.Content), r.Path, ""); err != nil {
			tracer().Errorf("stylesheet %s does not parse: %v", r.Path, err)
			c.tainted = true
		}
	}
	for i := range docs {
		c.collectInlineStyles(&docs[i])
	}
	for _, paths := range c.faces {
		for _, p := range paths {
			if _, ok := c.usage[p]; !ok {
				c.usage[p] = otsubset.NewUsageSet()
			}
		}
	}
	if len(c.usage) == 0 {
		tracer().Infof("publication declares no font faces")
		return c.usage
	}
	for i := range docs {
		c.attribute(&docs[i])
	}
	if c.tainted {
		// rules may still carry inserted content which no document text covers
		for _, rule := range c.rules {
			c.addToAll(rule.content)
		}
	}
	for p, set := range c.usage {
		tracer().Debugf("font %s is used for %d code-points", p, set.Len())
	}
	return c.usage
}

// contentDocuments parses the publication's content documents in manifest
// order.
func contentDocuments(pub *epub.Publication) []document {
	var docs []document
	for _, r := range pub.Resources() {
		mt := baseMediaType(r.MediaType)
		if mt != "application/xhtml+xml" && mt != "text/html" {
			continue
		}
		if r.Content == nil || r.Path == "" {
			continue
		}
		doc := document{path: r.Path, raw: r.Content}
		root, err := html.Parse(bytes.NewReader(r.Content))
		if err != nil {
			tracer().Errorf("content document %s does not parse: %v", r.Path, err)
		} else {
			doc.root = root
		}
		docs = append(docs, doc)
	}
	return docs
}

// collectInlineStyles folds the '<style>' elements of a document into the
// collector, scoped to that document.
func (c *collector) collectInlineStyles(doc *document) {
	if doc.root == nil {
		return
	}
	walkElements(doc.root, func(n *html.Node) {
		if n.DataAtom != atom.Style {
			return
		}
		var b strings.Builder
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.TextNode {
				b.WriteString(child.Data)
			}
		}
		if err := c.collectCSS(b.String(), doc.path, doc.path); err != nil {
			tracer().Errorf("style element of %s does not parse: %v", doc.path, err)
			doc.tainted = true
		}
	})
}

// attribute hands the text of one document to the usage sets of the fonts
// which may render it.
func (c *collector) attribute(doc *document) {
	if c.tainted || doc.tainted || doc.root == nil {
		// degraded: every rune of the document, markup included, goes to
		// every face
		c.addToAll([]string{string(doc.raw)})
		return
	}
	for _, rule := range c.rules {
		if rule.scope != "" && rule.scope != doc.path {
			continue
		}
		c.applyRule(rule, doc)
	}
	c.attributeStyleAttrs(doc)
}

// applyRule attributes the text matched by one rule within one document.
func (c *collector) applyRule(rule styleRule, doc *document) {
	sets := c.familySets(rule.families, rule.shorthand)
	if len(sets) == 0 {
		// no embedded family selected; inserted content renders in an
		// inherited font this package cannot determine
		c.addToAll(rule.content)
		return
	}
	for _, s := range rule.content {
		for _, set := range sets {
			set.AddString(s)
		}
	}
	if rule.selector == nil {
		addNodeText(doc.root, sets)
		return
	}
	for _, n := range rule.selector.MatchAll(doc.root) {
		addNodeText(n, sets)
	}
}

// attributeStyleAttrs handles per-element 'style' attributes. An attribute
// which does not parse attributes its element's subtree to every face.
func (c *collector) attributeStyleAttrs(doc *document) {
	walkElements(doc.root, func(n *html.Node) {
		var styleAttr string
		for _, a := range n.Attr {
			if a.Key == "style" {
				styleAttr = a.Val
				break
			}
		}
		if strings.TrimSpace(styleAttr) == "" {
			return
		}
		decls, err := parser.ParseDeclarations(styleAttr)
		if err != nil {
			tracer().Infof("style attribute in %s does not parse: %v", doc.path, err)
			addNodeText(n, c.allSets())
			return
		}
		families, shorthand, content := fontProps(decls)
		sets := c.familySets(families, shorthand)
		if len(sets) == 0 {
			c.addToAll(content)
			return
		}
		for _, s := range content {
			for _, set := range sets {
				set.AddString(s)
			}
		}
		addNodeText(n, sets)
	})
}

// familySets resolves a family list, plus any families named inside a
// 'font' shorthand, onto the usage sets of their font files.
func (c *collector) familySets(families []string, shorthand string) []*otsubset.UsageSet {
	var sets []*otsubset.UsageSet
	seen := make(map[string]bool)
	collect := func(family string) {
		for _, p := range c.faces[family] {
			if !seen[p] {
				seen[p] = true
				sets = append(sets, c.usage[p])
			}
		}
	}
	for _, family := range families {
		collect(family)
	}
	if shorthand != "" {
		for family := range c.faces {
			if strings.Contains(shorthand, family) {
				collect(family)
			}
		}
	}
	return sets
}

func (c *collector) allSets() []*otsubset.UsageSet {
	sets := make([]*otsubset.UsageSet, 0, len(c.usage))
	for _, set := range c.usage {
		sets = append(sets, set)
	}
	return sets
}

func (c *collector) addToAll(texts []string) {
	for _, s := range texts {
		for _, set := range c.usage {
			set.AddString(s)
		}
	}
}

// addNodeText adds the text content below n to every set. Script and
// style elements do not contribute: their data is code, not content.
func addNodeText(n *html.Node, sets []*otsubset.UsageSet) {
	if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
		return
	}
	if n.Type == html.TextNode {
		for _, set := range sets {
			set.AddString(n.Data)
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		addNodeText(child, sets)
	}
}

func walkElements(n *html.Node, f func(*html.Node)) {
	if n.Type == html.ElementNode {
		f(n)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walkElements(child, f)
	}
}

// baseMediaType reduces a media type to its base form, without parameters
// and case folded.
func baseMediaType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
