package shrink

import (
	"context"
	"runtime"
	"sync"

	"github.com/npillmayer/epress/core/font/opentype/otsubset"
	"github.com/npillmayer/epress/engine/shrink/markup"
	"github.com/npillmayer/epress/engine/shrink/raster"
	"github.com/npillmayer/epress/engine/shrink/usage"
	"github.com/npillmayer/epress/input/epub"
)

const reasonNotSmaller = "not smaller"

// job is one resource with the strategy chosen for it.
type job struct {
	index    int // manifest position, for the deterministic merge
	res      epub.Resource
	strategy Strategy
	usage    *otsubset.UsageSet // fonts only
	reason   string             // pre-decided note for copied resources
}

// jobPlusOutcome pairs a finished job with its outcome and, for accepted
// renditions, the replacement bytes.
type jobPlusOutcome struct {
	index   int
	outcome Outcome
	data    []byte
}

// Run applies the enabled strategies to every manifest resource of a
// publication and reports the outcomes. The publication itself stays
// unmodified; accepted renditions are returned through the report's
// replacement map, ready for Publication.Write.
//
// Strategy failures never abort a run. Cancellation is honored between
// jobs; a job already running completes, and a cancelled run returns
// ctx's error with no report.
func Run(ctx context.Context, pub *epub.Publication, opts Options) (*Report, error) {
	if opts.MinSizeGain < 0 {
		opts.MinSizeGain = 0
	}
	report := &Report{Replacements: make(map[string][]byte)}
	var fontUsage map[string]*otsubset.UsageSet
	if opts.Fonts {
		fontUsage = usage.FontUsage(pub)
	}
	jobs := buildJobs(pub, opts, fontUsage)
	if len(jobs) == 0 {
		return report, nil
	}
	collected, err := runPool(ctx, jobs, opts)
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		r := collected[j.index]
		report.Outcomes = append(report.Outcomes, r.outcome)
		report.SizeBefore += int64(r.outcome.SizeBefore)
		report.SizeAfter += int64(r.outcome.SizeAfter)
		if r.data != nil {
			report.Replacements[j.res.ID] = r.data
		}
	}
	tracer().Infof("shrink run: %d resources, %d bytes -> %d bytes",
		len(report.Outcomes), report.SizeBefore, report.SizeAfter)
	return report, nil
}

// buildJobs pairs every loadable resource with its strategy. Fonts which
// no '@font-face' rule binds are downgraded to a copy: without a binding
// there is no safe usage set for them.
func buildJobs(pub *epub.Publication, opts Options, fontUsage map[string]*otsubset.UsageSet) []job {
	resources := pub.Resources()
	jobs := make([]job, 0, len(resources))
	for i, r := range resources {
		if r.Content == nil {
			continue
		}
		j := job{index: i, res: r, strategy: opts.strategyFor(r.MediaType)}
		if j.strategy == SubsetFont {
			set, ok := fontUsage[r.Path]
			if !ok {
				j.strategy = Copy
				j.reason = "font is not bound by any @font-face rule"
				tracer().Infof("font %s is not bound by any @font-face rule, keeping it", r.Path)
			} else {
				j.usage = set
			}
		}
		jobs = append(jobs, j)
	}
	return jobs
}

// runPool processes jobs on a bounded number of workers. Job order is
// irrelevant here; the caller merges outcomes by manifest position.
func runPool(ctx context.Context, jobs []job, opts Options) (map[int]jobPlusOutcome, error) {
	workers := opts.Workers
	if max := runtime.GOMAXPROCS(0); workers < 1 || workers > max {
		workers = max
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	queue := make(chan job)
	results := make(chan jobPlusOutcome)
	var wg sync.WaitGroup
	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func(queue <-chan job, results chan<- jobPlusOutcome) {
			defer wg.Done()
			for j := range queue {
				results <- opts.process(j)
			}
		}(queue, results)
	}
	go func(queue chan<- job) {
		defer close(queue)
		for _, j := range jobs {
			select {
			case <-ctx.Done():
				return
			case queue <- j:
			}
		}
	}(queue)
	go func() {
		wg.Wait()
		close(results)
	}()
	collected := make(map[int]jobPlusOutcome, len(jobs))
	for r := range results {
		collected[r.index] = r
	}
	if err := ctx.Err(); err != nil {
		tracer().Infof("shrink run cancelled after %d of %d jobs", len(collected), len(jobs))
		return nil, err
	}
	return collected, nil
}

// process applies one strategy to one resource. The outcome always
// carries the original size; only an accepted rendition changes SizeAfter
// and provides data.
func (opts Options) process(j job) jobPlusOutcome {
	oc := Outcome{
		ResourceID: j.res.ID,
		Path:       j.res.Path,
		Strategy:   j.strategy,
		Reason:     j.reason,
		SizeBefore: len(j.res.Content),
		SizeAfter:  len(j.res.Content),
	}
	result := jobPlusOutcome{index: j.index}
	switch j.strategy {
	case SubsetFont:
		cfg := otsubset.Config{
			PreserveFeatures: opts.PreserveFeatures,
			MinSizeGain:      opts.MinSizeGain,
		}
		res, err := otsubset.Subset(j.res.Content, j.usage, cfg)
		switch {
		case err != nil:
			oc.Reason = otsubset.FailureKind(err)
			tracer().Errorf("font %s (id %s) kept unchanged: %v", j.res.Path, j.res.ID, err)
		case !res.Accepted:
			oc.Reason = reasonNotSmaller
		default:
			oc.Accepted = true
			oc.SizeAfter = res.SizeAfter
			oc.GlyphCount = res.GlyphCount
			result.data = res.Font
			tracer().Infof("font %s subset to %d glyphs, %d -> %d bytes",
				j.res.Path, res.GlyphCount, res.SizeBefore, res.SizeAfter)
		}
	case RecompressImage:
		res, err := raster.Recompress(j.res.Content, opts.JPEGQuality)
		switch {
		case err != nil:
			oc.Reason = "error"
			tracer().Errorf("image %s (id %s) kept unchanged: %v", j.res.Path, j.res.ID, err)
		case !res.Accepted:
			oc.Reason = reasonNotSmaller
		default:
			oc.Accepted = true
			oc.SizeAfter = res.SizeAfter
			result.data = res.Image
			tracer().Infof("image %s re-encoded, %d -> %d bytes",
				j.res.Path, res.SizeBefore, res.SizeAfter)
		}
	case TrimMarkup:
		res, err := markup.Trim(j.res.Content)
		switch {
		case err != nil:
			oc.Reason = "error"
			tracer().Errorf("document %s (id %s) kept unchanged: %v", j.res.Path, j.res.ID, err)
		case !res.Accepted:
			oc.Reason = reasonNotSmaller
		default:
			oc.Accepted = true
			oc.SizeAfter = res.SizeAfter
			result.data = res.Document
			tracer().Infof("document %s trimmed, %d -> %d bytes",
				j.res.Path, res.SizeBefore, res.SizeAfter)
		}
	}
	result.outcome = oc
	return result
}
