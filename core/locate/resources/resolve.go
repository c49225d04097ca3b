package resources

import (
	"context"
	"fmt"
	"os"

	"github.com/flopp/go-findfont"
	"github.com/npillmayer/epress/core"
	"github.com/npillmayer/epress/core/font"
	"github.com/npillmayer/schuko"
	xfont "golang.org/x/image/font"
)

type resourceType int

// resource types
const (
	unknownResourceType resourceType = iota
	fontResourceType
)

// NotFound returns an application error for a missing resource.
func NotFound(res string, rtype resourceType) error {
	e := fmt.Errorf("resource missing: %v", res)
	var s string
	switch rtype {
	case fontResourceType:
		s = fmt.Sprintf("font not found: %s, substituted the fallback font", res)
	default:
		s = fmt.Sprintf("resource not found: %s", res)
	}
	return core.WrapError(e, core.EMISSING, s)
}

// --- Fonts -----------------------------------------------------------------

type fontPlusErr struct {
	font *font.ScalableFont
	err  error
}

// FontPromise is the promise type returned by ResolveFont. Calling Font
// blocks until resolution has finished.
type FontPromise interface {
	Font() (*font.ScalableFont, error)
}

type fontLoader struct {
	await func(ctx context.Context) (*font.ScalableFont, error)
}

func (loader fontLoader) Font() (*font.ScalableFont, error) {
	return loader.await(context.Background())
}

// ResolveFont resolves a font by name, trying the global font registry, the
// file system, the system's font folders, fontconfig, and the Google webfont
// service, in this order. Resolved fonts are put into the global registry.
//
// If no font can be found, ResolveFont will hand out the system-wide fallback
// font, together with an error.
//
// conf may be nil; the fontconfig and webfont steps need configuration and
// are skipped without one.
func ResolveFont(conf schuko.Configuration, name string, style xfont.Style,
	weight xfont.Weight) FontPromise {
	//
	ch := make(chan fontPlusErr)
	go func(ch chan<- fontPlusErr) {
		result := fontPlusErr{}
		normalized := font.NormalizeFontname(name, style, weight)
		if f, ok := font.GlobalRegistry().Font(normalized); ok {
			tracer().Debugf("font %s is already registered", normalized)
			result.font = f
			ch <- result
			close(ch)
			return
		}
		f := loadFontFile(name) // name may denote a font file
		if f == nil {
			if fpath, err := findfont.Find(name); err == nil && fpath != "" {
				tracer().Debugf("%s is a system font: %s", name, fpath)
				f = loadFontFile(fpath)
			}
		}
		if f == nil && conf != nil {
			if desc, _ := findFontConfigFont(conf, name, style, weight); desc.Path != "" {
				tracer().Debugf("fontconfig lists %s as %s", name, desc.Path)
				f = loadFontFile(desc.Path)
			}
		}
		if f == nil && conf != nil {
			if fiList, err := FindGoogleFont(conf, name, style, weight); err == nil {
				fi := fiList[0]
				var fpath string
				if fpath, result.err = CacheGoogleFont(conf, fi, fi.Variants[0]); result.err == nil {
					f = loadFontFile(fpath)
				}
			}
		}
		if f == nil {
			result.err = NotFound(name, fontResourceType)
			f = font.FallbackFont()
		} else {
			font.GlobalRegistry().StoreFont(normalized, f)
		}
		result.font = f
		ch <- result
		close(ch)
	}(ch)
	return fontLoader{
		await: func(ctx context.Context) (*font.ScalableFont, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case r := <-ch:
				return r.font, r.err
			}
		},
	}
}

// loadFontFile loads a font from a file path, returning nil on any failure.
func loadFontFile(path string) *font.ScalableFont {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	f, err := font.LoadOpenTypeFont(path)
	if err != nil {
		tracer().Infof("cannot load font file %s: %s", path, err)
		return nil
	}
	tracer().Debugf("loaded font %s from %s", f.Fontname, path)
	return f
}
