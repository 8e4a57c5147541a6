package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/scanledger/scanledger/internal/bundle"
	"github.com/scanledger/scanledger/internal/cache"
)

// DefaultSynopsisMaxLines is the cap on extracted synopsis length that
// the orchestrator passes to Extract; no Config field overrides it.
const DefaultSynopsisMaxLines = 8

// Result is one file's extraction outcome.
type Result struct {
	Events        []Event
	Synopsis      *string
	ParseDegraded bool
	Cached        bool
}

// Extractor is the digest-memoized entity extraction facade (spec.md
// §4.5): "pure function of file bytes; memoized by digest — a second
// call with the same digest returns the cached event blob without
// reparsing." Counters track hit/miss as read-only OTel metrics.
type Extractor struct {
	store  *cache.Cache
	logger *slog.Logger

	hits   metric.Int64Counter
	misses metric.Int64Counter
}

// NewExtractor builds an Extractor backed by store for memoization and
// meter for hit/miss instrumentation.
func NewExtractor(store *cache.Cache, meter metric.Meter, logger *slog.Logger) (*Extractor, error) {
	hits, err := meter.Int64Counter("scanledger.entity.cache_hits")
	if err != nil {
		return nil, fmt.Errorf("register cache_hits counter: %w", err)
	}

	misses, err := meter.Int64Counter("scanledger.entity.cache_misses")
	if err != nil {
		return nil, fmt.Errorf("register cache_misses counter: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{store: store, logger: logger, hits: hits, misses: misses}, nil
}

// Extract returns digest's cached extraction result if present, otherwise
// parses content fresh, memoizes the result, and returns it. forceRebuild
// bypasses the cache read (but still writes the fresh result back),
// matching spec.md §4.3's "force-rebuild" override.
func (e *Extractor) Extract(ctx context.Context, language, digest, canonicalPath string, content []byte, synopsisMaxLines int, forceRebuild bool) (Result, error) {
	isTestFile := bundle.IsTestPath(canonicalPath)

	if !forceRebuild {
		if entry, err := e.store.Get(digest); err == nil {
			e.hits.Add(ctx, 1)

			var events []Event
			if unmarshalErr := json.Unmarshal(entry.Events, &events); unmarshalErr != nil {
				return Result{}, fmt.Errorf("decode cached events for %s: %w", digest, unmarshalErr)
			}

			return Result{
				Events:        events,
				Synopsis:      entry.Synopsis,
				ParseDegraded: entry.ParseDegraded,
				Cached:        true,
			}, nil
		}
	}

	e.misses.Add(ctx, 1)

	result := e.extractFresh(ctx, language, canonicalPath, content, isTestFile, synopsisMaxLines)

	encodedEvents, err := json.Marshal(result.Events)
	if err != nil {
		return Result{}, fmt.Errorf("encode events for %s: %w", digest, err)
	}

	putErr := e.store.Put(cache.Entry{
		Digest:        digest,
		Language:      language,
		Events:        encodedEvents,
		Synopsis:      result.Synopsis,
		ParseDegraded: result.ParseDegraded,
	})
	if putErr != nil {
		return Result{}, fmt.Errorf("memoize events for %s: %w", digest, putErr)
	}

	return result, nil
}

// extractFresh performs the actual parse. Parse failures and unsupported
// languages degrade to a ModuleDeclared-only event list rather than
// aborting the run (spec.md §4.5: "Heuristic failure policy").
func (e *Extractor) extractFresh(ctx context.Context, language, canonicalPath string, content []byte, isTestFile bool, synopsisMaxLines int) Result {
	synopsis := Synopsis(content, synopsisMaxLines)

	events, err := extractByLanguage(ctx, language, content, isTestFile)
	if err != nil {
		e.logger.WarnContext(ctx, "entity extraction degraded to module-only",
			"path", canonicalPath, "language", language, "error", err)

		return Result{
			Events:        []Event{{Kind: ModuleDeclared, QualifiedName: canonicalPath}},
			Synopsis:      synopsis,
			ParseDegraded: true,
		}
	}

	if len(events) == 0 {
		events = []Event{{Kind: ModuleDeclared, QualifiedName: canonicalPath}}
	}

	return Result{Events: events, Synopsis: synopsis}
}

func extractByLanguage(ctx context.Context, language string, content []byte, isTestFile bool) ([]Event, error) {
	if _, ok := supportedLanguages[language]; !ok {
		return nil, fmt.Errorf("unsupported language %q", language)
	}

	root, closeTree, err := parseTree(ctx, language, content)
	if err != nil {
		return nil, err
	}
	defer closeTree()

	switch language {
	case "go":
		return extractGo(root, content, isTestFile), nil
	case "python":
		return extractPython(root, content, isTestFile), nil
	case "javascript":
		return extractJavaScript(root, content, isTestFile), nil
	default:
		return nil, fmt.Errorf("no extraction rules for language %q", language)
	}
}
