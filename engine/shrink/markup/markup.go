/*
Package markup trims redundant whitespace from markup documents.

Content documents of a publication tend to carry pretty-printed
indentation which the reader never sees. Trimming works on lines: leading
and trailing white-space goes away, lines are joined with CRLF. Content of
white-space sensitive elements (pre, textarea) and of embedded code
(script, style) is kept byte for byte. The document is only replaced when
the trimmed variant is smaller.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package markup

import (
	"bytes"
	"io"

	"github.com/npillmayer/epress/core"
	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/net/html"
)

// tracer writes to trace with key 'epress.shrink'
func tracer() tracing.Trace {
	return tracing.Select("epress.shrink")
}

// Result reports the outcome of trimming one document.
type Result struct {
	// Accepted tells whether the trimmed document is worth using. When
	// false, Document is nil and the original file should stay as it is.
	Accepted bool

	// Document holds the trimmed bytes of an accepted result.
	Document []byte

	// SizeBefore and SizeAfter compare the documents in bytes.
	SizeBefore int
	SizeAfter  int
}

// Trim rewrites a markup document with line indentation removed.
//
// Trim never modifies doc. On error the result carries sizes only and
// callers keep the original file.
func Trim(doc []byte) (Result, error) {
	result := Result{SizeBefore: len(doc)}
	protected, err := protectedRanges(doc)
	if err != nil {
		return result, core.WrapError(err, core.EINVALID, "document does not tokenize: %v", err)
	}
	trimmed := trimLines(doc, protected)
	result.SizeAfter = len(trimmed)
	if result.SizeAfter >= result.SizeBefore {
		tracer().Debugf("document trimmed to %d bytes saves nothing over %d bytes, not accepting",
			result.SizeAfter, result.SizeBefore)
		return result, nil
	}
	result.Accepted = true
	result.Document = trimmed
	return result, nil
}

// elements whose content must survive byte for byte
var protectedTags = map[string]bool{
	"pre":      true,
	"textarea": true,
	"script":   true,
	"style":    true,
}

// protectedRanges locates the byte ranges of white-space sensitive
// content. Token offsets derive from the raw token lengths, which cover
// the input without gaps.
func protectedRanges(doc []byte) ([][2]int, error) {
	z := html.NewTokenizer(bytes.NewReader(doc))
	var ranges [][2]int
	offset, depth, start := 0, 0, 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() == io.EOF {
				break
			}
			return nil, z.Err()
		}
		size := len(z.Raw())
		switch tt {
		case html.StartTagToken:
			if name, _ := z.TagName(); protectedTags[string(name)] {
				if depth == 0 {
					start = offset + size
				}
				depth++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); protectedTags[string(name)] && depth > 0 {
				depth--
				if depth == 0 {
					ranges = append(ranges, [2]int{start, offset})
				}
			}
		}
		offset += size
	}
	if depth > 0 {
		// unterminated element, protect through to the end
		ranges = append(ranges, [2]int{start, len(doc)})
	}
	return ranges, nil
}

// trimLines joins trimmed lines with CRLF, the way the line-based tools of
// the trade do, and drops a file-terminating newline. Lines and newlines
// within a protected range pass through unchanged.
func trimLines(doc []byte, protected [][2]int) []byte {
	var out bytes.Buffer
	out.Grow(len(doc))
	i, k := 0, 0
	for {
		lineEnd := len(doc)
		if j := bytes.IndexByte(doc[i:], '\n'); j >= 0 {
			lineEnd = i + j
		}
		for k < len(protected) && protected[k][1] <= i {
			k++
		}
		if k < len(protected) && protected[k][0] < lineEnd && i < protected[k][1] {
			out.Write(doc[i:lineEnd])
		} else {
			out.Write(bytes.TrimSpace(doc[i:lineEnd]))
		}
		if lineEnd == len(doc) {
			break
		}
		switch {
		case posProtected(protected, k, lineEnd):
			out.WriteByte('\n')
		case lineEnd+1 < len(doc):
			out.WriteString("\r\n")
		}
		i = lineEnd + 1
	}
	return out.Bytes()
}

func posProtected(protected [][2]int, k, pos int) bool {
	for ; k < len(protected); k++ {
		if pos < protected[k][0] {
			return false
		}
		if pos < protected[k][1] {
			return true
		}
	}
	return false
}
