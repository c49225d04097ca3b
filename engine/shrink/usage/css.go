package usage

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"github.com/npillmayer/epress/input/epub"
)

// styleRule carries the font attribution of one CSS rule: text matched by
// selector renders in the rule's families. A nil selector could not be
// compiled and attributes the whole document instead. A non-empty scope
// restricts the rule to the document it was declared in.
type styleRule struct {
	selector  cascadia.Selector
	raw       string   // selector source text
	families  []string // normalized 'font-family' list
	shorthand string   // normalized 'font' shorthand value, when present
	content   []string // string literals of 'content' declarations
	scope     string
}

// collectCSS parses a stylesheet and folds its '@font-face' bindings and
// font-selecting rules into the collector. basePath anchors relative URLs;
// scope is empty for manifest stylesheets and the owning document's path
// for '<style>' elements.
func (c *collector) collectCSS(cssText, basePath, scope string) error {
	sheet, err := parser.Parse(cssText)
	if err != nil {
		return err
	}
	c.collectRules(sheet.Rules, basePath, scope)
	return nil
}

func (c *collector) collectRules(rules []*css.Rule, basePath, scope string) {
	for _, rule := range rules {
		if rule.Kind == css.AtRule {
			if strings.EqualFold(rule.Name, "@font-face") {
				c.collectFace(rule.Declarations, basePath)
				continue
			}
			// conditional groups ('@media', '@supports') nest ordinary rules
			c.collectRules(rule.Rules, basePath, scope)
			continue
		}
		families, shorthand, content := fontProps(rule.Declarations)
		if len(families) == 0 && shorthand == "" && len(content) == 0 {
			continue
		}
		for _, sel := range rule.Selectors {
			c.rules = append(c.rules, styleRule{
				selector:  compileSelector(sel),
				raw:       sel,
				families:  families,
				shorthand: shorthand,
				content:   content,
				scope:     scope,
			})
		}
	}
}

// collectFace reads one '@font-face' rule. The rule binds a family name to
// the font files of its 'src' descriptor; files outside the publication
// are of no interest here.
func (c *collector) collectFace(decls []*css.Declaration, basePath string) {
	var family string
	var srcs []string
	for _, d := range decls {
		switch strings.ToLower(d.Property) {
		case "font-family":
			family = normalizeFamily(d.Value)
		case "src":
			srcs = append(srcs, cssURLs(d.Value)...)
		}
	}
	if family == "" || len(srcs) == 0 {
		tracer().Debugf("@font-face rule without family or src, ignoring")
		return
	}
	for _, src := range srcs {
		if strings.Contains(src, ":") { // external or data: URL
			continue
		}
		p := epub.ResolveHref(basePath, src)
		if p == "" {
			tracer().Infof("@font-face src %q does not resolve, ignoring", src)
			continue
		}
		if !containsString(c.faces[family], p) {
			c.faces[family] = append(c.faces[family], p)
			tracer().Debugf("face %q -> %s", family, p)
		}
	}
}

// fontProps extracts the font-related properties of a declaration block.
func fontProps(decls []*css.Declaration) (families []string, shorthand string, content []string) {
	for _, d := range decls {
		switch strings.ToLower(d.Property) {
		case "font-family":
			families = append(families, splitFamilies(d.Value)...)
		case "font":
			shorthand = normalizeShorthand(d.Value)
		case "content":
			content = append(content, cssStrings(d.Value)...)
		}
	}
	return families, shorthand, content
}

// compileSelector compiles a single selector. Selectors cascadia cannot
// express are retried with trailing pseudo segments removed, so that a
// rule like '.note::before' still matches its base elements. nil means
// the selector stays unmatchable and the caller has to attribute the
// whole document.
func compileSelector(sel string) cascadia.Selector {
	if s, err := cascadia.Compile(sel); err == nil {
		return s
	}
	stripped := strings.TrimSpace(pseudoPattern.ReplaceAllString(sel, ""))
	if stripped != "" && stripped != sel {
		if s, err := cascadia.Compile(stripped); err == nil {
			return s
		}
	}
	tracer().Debugf("selector %q does not compile, attributing whole documents", sel)
	return nil
}

var pseudoPattern = regexp.MustCompile(`(::?[a-zA-Z-]+(\([^)]*\))?)+$`)

var urlPattern = regexp.MustCompile(`(?i)url\(([^)]*)\)`)

// cssURLs extracts the url() references of a CSS value, with quotes,
// queries and fragments removed.
func cssURLs(value string) []string {
	var urls []string
	for _, m := range urlPattern.FindAllStringSubmatch(value, -1) {
		u := strings.Trim(strings.TrimSpace(m[1]), `'"`)
		if i := strings.IndexAny(u, "?#"); i >= 0 {
			u = u[:i]
		}
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// normalizeFamily canonicalizes a family name for map lookup: quotes
// stripped, whitespace collapsed, lower-cased.
func normalizeFamily(s string) string {
	s = strings.Trim(strings.TrimSpace(s), `'"`)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// normalizeShorthand prepares a 'font' shorthand value for substring
// matching against known family names.
func normalizeShorthand(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\'' || r == '"' {
			return -1
		}
		return r
	}, strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

// splitFamilies splits a 'font-family' list on commas outside of quotes
// and normalizes each name.
func splitFamilies(value string) []string {
	var families []string
	var quote byte
	start := 0
	flush := func(end int) {
		if f := normalizeFamily(value[start:end]); f != "" {
			families = append(families, f)
		}
		start = end + 1
	}
	for i := 0; i < len(value); i++ {
		switch ch := value[i]; {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == ',':
			flush(i)
		}
	}
	flush(len(value))
	return families
}

// cssStrings extracts the string literals of a CSS value, with escape
// sequences decoded. Non-string tokens (counters, attr() references,
// keywords) contribute no code-points and are skipped.
func cssStrings(value string) []string {
	var literals []string
	for i := 0; i < len(value); {
		quote := value[i]
		if quote != '\'' && quote != '"' {
			i++
			continue
		}
		var b strings.Builder
		i++
		for i < len(value) && value[i] != quote {
			if value[i] == '\\' && i+1 < len(value) {
				r, n := cssEscape(value[i+1:])
				b.WriteRune(r)
				i += 1 + n
				continue
			}
			b.WriteByte(value[i])
			i++
		}
		i++ // closing quote
		literals = append(literals, b.String())
	}
	return literals
}

// cssEscape decodes the escape sequence following a backslash: up to six
// hex digits with an optional terminating white-space, or a single
// literal character. Returns the rune and the number of bytes consumed.
func cssEscape(s string) (rune, int) {
	var v rune
	n := 0
	for n < 6 && n < len(s) {
		d, ok := hexDigit(s[n])
		if !ok {
			break
		}
		v = v<<4 | d
		n++
	}
	if n > 0 {
		if n < len(s) && (s[n] == ' ' || s[n] == '\t' || s[n] == '\n') {
			n++
		}
		return v, n
	}
	r, size := utf8.DecodeRuneInString(s)
	return r, size
}

func hexDigit(c byte) (rune, bool) {
	switch {
	case c >= '0' && c <= '9':
		return rune(c - '0'), true
	case c >= 'a' && c <= 'f':
		return rune(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return rune(c-'A') + 10, true
	}
	return 0, false
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
