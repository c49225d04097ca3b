package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/npillmayer/epress/core"
	"github.com/npillmayer/epress/core/font/opentype/otsubset"
	"github.com/npillmayer/epress/core/percent"
	"github.com/npillmayer/epress/engine/shrink"
	"github.com/npillmayer/epress/input/epub"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
	"github.com/pterm/pterm"
)

// tracer traces with key 'epress.shrink'
func tracer() tracing.Trace {
	return tracing.Select("epress.shrink")
}

func main() {
	initDisplay()

	verbose := flag.Bool("v", false, "verbose trace output")
	quality := flag.Int("jpeg-quality", 50, "quality of re-encoded JPEG images, 1-100")
	fonts := flag.Bool("fonts", false, "subset embedded fonts")
	images := flag.Bool("images", false, "recompress JPEG images")
	markup := flag.Bool("markup", false, "trim whitespace of content documents")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: epress [options] input.epub output.epub\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	setupTracing(*verbose)
	if *quality < 1 || *quality > 100 {
		pterm.Error.Println("image quality not in range 1-100")
		os.Exit(1)
	}
	opts := shrink.Options{
		Fonts:       *fonts,
		Images:      *images,
		Markup:      *markup,
		JPEGQuality: percent.FromInt(*quality),
		PreserveFeatures: []otsubset.Feature{
			otsubset.FeatureBasicLatin,
			otsubset.FeatureLatin1,
		},
	}
	if !opts.Fonts && !opts.Images && !opts.Markup {
		pterm.Info.Println("no strategy enabled, copying; see -fonts, -images, -markup")
	}
	//
	infile, outfile := flag.Arg(0), flag.Arg(1)
	pub, err := epub.LoadPublication(infile)
	if err != nil {
		core.UserError(err)
		os.Exit(2)
	}
	tracer().Infof("loaded %s: %q, %d resources", infile, pub.Title, len(pub.Resources()))
	report, err := shrink.Run(context.Background(), pub, opts)
	if err != nil {
		core.UserError(err)
		os.Exit(3)
	}
	if err := pub.WriteFile(outfile, report.Replacements); err != nil {
		core.UserError(err)
		os.Exit(4)
	}
	printSummary(report, infile, outfile)
}

// We use pterm for moderately fancy output.
func initDisplay() {
	pterm.EnableDebugMessages()
	pterm.Info.Prefix = pterm.Prefix{
		Text:  " !  ",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

// setupTracing routes all trace keys through the Go standard logger, at
// debug level when asked for.
func setupTracing(verbose bool) {
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	level := "Info"
	if verbose {
		level = "Debug"
	}
	conf := testconfig.Conf{
		"tracing.adapter":     "go",
		"trace.epress.epub":   level,
		"trace.epress.fonts":  level,
		"trace.epress.shrink": level,
	}
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		fmt.Printf("error configuring tracing")
		os.Exit(1)
	}
	tracing.SetTraceSelector(trace2go.Selector())
}

// printSummary reports per-resource outcomes and the overall gain.
func printSummary(report *shrink.Report, infile, outfile string) {
	for _, oc := range report.Outcomes {
		switch {
		case oc.Accepted && oc.Strategy == shrink.SubsetFont:
			pterm.Info.Printf("%s %s: %d -> %d bytes (%s saved, %d glyphs)\n",
				oc.Strategy, oc.Path, oc.SizeBefore, oc.SizeAfter,
				percent.Ratio(int64(oc.Saved()), int64(oc.SizeBefore)), oc.GlyphCount)
		case oc.Accepted:
			pterm.Info.Printf("%s %s: %d -> %d bytes (%s saved)\n",
				oc.Strategy, oc.Path, oc.SizeBefore, oc.SizeAfter,
				percent.Ratio(int64(oc.Saved()), int64(oc.SizeBefore)))
		case oc.Strategy != shrink.Copy:
			pterm.Info.Printf("%s %s kept: %s\n", oc.Strategy, oc.Path, oc.Reason)
		}
	}
	saved := report.SizeBefore - report.SizeAfter
	pterm.Info.Printf("resources: %d bytes -> %d bytes (%s saved)\n",
		report.SizeBefore, report.SizeAfter, percent.Ratio(saved, report.SizeBefore))
	if insize, outsize := fileSize(infile), fileSize(outfile); insize > 0 && outsize > 0 {
		pterm.Info.Printf("archive:   %d bytes -> %d bytes (%s saved)\n",
			insize, outsize, percent.Ratio(insize-outsize, insize))
	}
}

func fileSize(name string) int64 {
	fi, err := os.Stat(name)
	if err != nil {
		return 0
	}
	return fi.Size()
}
