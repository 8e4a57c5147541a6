package diagram

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/scanledger/scanledger/internal/graph"
)

// Request is one (preset, format, theme) diagram to produce.
type Request struct {
	Preset Preset
	Format Format
	Theme  Theme
}

// Result is one rendered diagram plus its cache key and probe metadata.
type Result struct {
	Request        Request
	CacheKey       string
	SubgraphDigest string
	Text           []byte
	FallbackSVG    []byte
	RendererProbe  map[string]bool
}

// Options configures the diagram generator's concurrency bound. Zero
// Workers resolves to min(4, runtime.NumCPU()), per spec.md §4.10.
type Options struct {
	Workers int
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}

	if n := runtime.NumCPU(); n < 4 {
		return n
	}

	return 4
}

// cacheLookup retrieves a prior run's rendered template bytes by cache
// key, when available. A diagram cache hit reuses the prior bytes
// verbatim rather than re-rendering, keeping outputs byte-identical.
type cacheLookup func(cacheKey string) ([]byte, bool)

// Generate renders every requested diagram against g, honoring a cache
// hit when priorCache returns one. Ordering of results never affects
// cache keys or output bytes: each request is self-contained and results
// are returned in the same order as requests regardless of completion
// order (spec.md §4.10's concurrency-bound requirement).
func Generate(ctx context.Context, g *graph.Graph, requests []Request, priorCache cacheLookup, opts Options) ([]Result, error) {
	probe := ProbeRenderers()

	results := make([]Result, len(requests))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.workers())

	var mu sync.Mutex

	for i, req := range requests {
		i, req := i, req

		eg.Go(func() error {
			select {
			case <-egCtx.Done():
				return egCtx.Err()
			default:
			}

			res, err := renderOne(g, req, probe, priorCache)
			if err != nil {
				return fmt.Errorf("render %s/%s/%s: %w", req.Preset, req.Format, req.Theme, err)
			}

			mu.Lock()
			results[i] = res
			mu.Unlock()

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func renderOne(g *graph.Graph, req Request, probe map[string]bool, priorCache cacheLookup) (Result, error) {
	if err := ValidatePreset(req.Preset); err != nil {
		return Result{}, err
	}

	if err := ValidateFormat(req.Format); err != nil {
		return Result{}, err
	}

	themeSpec, err := ResolveTheme(req.Theme)
	if err != nil {
		return Result{}, err
	}

	if err := ValidateThemeSpec(themeSpec); err != nil {
		return Result{}, err
	}

	sub, err := Project(g, req.Preset)
	if err != nil {
		return Result{}, err
	}

	subgraphDigest := sub.Digest()
	cacheKey := CacheKey(req.Preset, req.Format, req.Theme, subgraphDigest)

	if priorCache != nil {
		if cached, ok := priorCache(cacheKey); ok {
			return Result{
				Request:        req,
				CacheKey:       cacheKey,
				SubgraphDigest: subgraphDigest,
				Text:           cached,
				RendererProbe:  probe,
			}, nil
		}
	}

	text, err := RenderText(sub, req.Preset, req.Format, themeSpec)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Request:        req,
		CacheKey:       cacheKey,
		SubgraphDigest: subgraphDigest,
		Text:           text,
		FallbackSVG:    RenderFallbackSVG(sub, themeSpec),
		RendererProbe:  probe,
	}, nil
}

// SortedRequestKeys returns requests' cache keys sorted, useful for
// deterministic manifest listing.
func SortedRequestKeys(results []Result) []string {
	keys := make([]string, 0, len(results))
	for _, r := range results {
		keys = append(keys, r.CacheKey)
	}

	sort.Strings(keys)

	return keys
}
