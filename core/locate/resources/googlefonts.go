package resources

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/npillmayer/epress/core"
	"github.com/npillmayer/epress/core/font"
	"github.com/npillmayer/schuko"
	"github.com/npillmayer/schuko/tracing"
	xfont "golang.org/x/image/font"
)

// GoogleFontInfo describes a font family in the Google webfont directory.
type GoogleFontInfo struct {
	Family   string            `json:"family"`
	Version  string            `json:"version"`
	Variants []string          `json:"variants"`
	Subsets  []string          `json:"subsets"`
	Files    map[string]string `json:"files"`
}

// Descriptor converts font information from the Google font service into a
// font.Descriptor.
func (fi GoogleFontInfo) Descriptor() font.Descriptor {
	return font.Descriptor{
		Family:   fi.Family,
		Variants: fi.Variants,
	}
}

type googleFontsList struct {
	Items []GoogleFontInfo `json:"items"`
}

var loadGoogleFontsDir sync.Once
var googleFontsDirectory googleFontsList
var googleFontsLoadError error
var googleFontsAPI string = `https://www.googleapis.com/webfonts/v1/webfonts?`

// SetupGoogleFontsDirectory downloads the font directory of the Google
// webfont service, once per application run. It requires an API key, taken
// as 'google-api-key' from the configuration or as GOOGLE_API_KEY from the
// environment.
func SetupGoogleFontsDirectory(conf schuko.Configuration) error {
	loadGoogleFontsDir.Do(func() {
		var apikey string
		if conf != nil {
			apikey = conf.GetString("google-api-key")
		}
		if apikey == "" {
			apikey = os.Getenv("GOOGLE_API_KEY")
		}
		if apikey == "" {
			err := errors.New("Google API key not set")
			tracer().Errorf(err.Error())
			googleFontsLoadError = core.WrapError(err, core.EMISSING,
				`Google Fonts API-key must be set in global configuration or as GOOGLE_API_KEY in environment;
      please refer to https://developers.google.com/fonts/docs/developer_api`)
			return
		}
		values := url.Values{
			"sort": []string{"alpha"},
			"key":  []string{apikey},
		}
		resp, err := http.Get(googleFontsAPI + values.Encode())
		if err != nil {
			tracer().Errorf("Google Fonts API request not OK: %s", err.Error())
			googleFontsLoadError = core.WrapError(err, core.ECONNECTION,
				"could not get fonts-directory from Google font service")
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			tracer().Errorf("Google Fonts API request not OK: %v", resp.Status)
			err := core.Error(resp.StatusCode, "response: %v", resp.Status)
			googleFontsLoadError = core.WrapError(err, core.ECONNECTION,
				"could not get fonts-directory from Google font service")
			return
		}
		dec := json.NewDecoder(resp.Body)
		err = dec.Decode(&googleFontsDirectory)
		if err != nil {
			googleFontsLoadError = core.WrapError(err, core.EINVALID,
				"could not decode fonts-list from Google font service")
		}
	})
	return googleFontsLoadError
}

// FindGoogleFont searches the Google webfont directory for font families
// matching a name pattern which carry a variant for the given style and
// weight.
//
// If not already done, the list of fonts will be downloaded from Google.
func FindGoogleFont(conf schuko.Configuration, pattern string, style xfont.Style,
	weight xfont.Weight) ([]GoogleFontInfo, error) {
	//
	var fonts []GoogleFontInfo
	if err := SetupGoogleFontsDirectory(conf); err != nil {
		return nil, err
	}
	for _, finfo := range googleFontsDirectory.Items {
		_, variant, confidence := font.ClosestMatch(
			[]font.Descriptor{finfo.Descriptor()}, pattern, style, weight)
		if confidence > font.LowConfidence {
			tracer().Debugf("font %s has matching variant %s", finfo.Family, variant)
			fonts = append(fonts, finfo)
		}
	}
	if len(fonts) == 0 {
		return nil, core.Error(core.EMISSING,
			"no font matching %s found in Google font directory", pattern)
	}
	return fonts, nil
}

// CacheGoogleFont downloads the font file for a variant of a font from the
// Google webfont service, unless it is already present in the user's cache
// directory. CacheGoogleFont returns the path of the cached font file.
func CacheGoogleFont(conf schuko.Configuration, fi GoogleFontInfo, variant string) (string, error) {
	fileurl, ok := fi.Files[variant]
	if !ok {
		return "", core.Error(core.EMISSING, "font %s has no variant %s", fi.Family, variant)
	}
	cachedir, err := CacheDirPath(conf, "fonts")
	if err != nil {
		return "", err
	}
	ext := path.Ext(fileurl)
	if ext == "" {
		ext = ".ttf"
	}
	family := strings.ToLower(strings.ReplaceAll(fi.Family, " ", "_"))
	fontpath := filepath.Join(cachedir, family+"-"+variant+ext)
	if _, err := os.Stat(fontpath); err == nil {
		tracer().Debugf("font %s already cached", fontpath)
		return fontpath, nil
	}
	if err := DownloadCachedFile(fontpath, fileurl); err != nil {
		return "", err
	}
	return fontpath, nil
}

// ---------------------------------------------------------------------------

// ListGoogleFonts produces a listing of available fonts from the Google
// webfont service, with font-family names matching a given pattern.
//
// If not already done, the list of fonts will be downloaded from Google.
func ListGoogleFonts(conf schuko.Configuration, pattern string) {
	level := tracer().GetTraceLevel()
	tracer().SetTraceLevel(tracing.LevelInfo)
	if err := SetupGoogleFontsDirectory(conf); err != nil {
		tracer().Errorf(err.(core.AppError).UserMessage())
	} else {
		listGoogleFonts(googleFontsDirectory, pattern)
	}
	tracer().SetTraceLevel(level)
}

func listGoogleFonts(list googleFontsList, pattern string) {
	r, err := regexp.Compile(pattern)
	if err != nil {
		tracer().Errorf("cannot list Google fonts: invalid pattern: %v", err)
		return
	}
	tracer().Infof("%d fonts in list", len(list.Items))
	tracer().Infof("======================================")
	for i, finfo := range list.Items {
		if r.MatchString(finfo.Family) {
			tracer().Infof("[%4d] %-20s: %s", i, finfo.Family, finfo.Version)
			tracer().Infof("       subsets: %v", finfo.Subsets)
			for k, v := range finfo.Files {
				tracer().Infof("       - %-18s: %s", k, v[len(v)-4:])
			}
		}
	}
}
