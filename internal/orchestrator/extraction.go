package orchestrator

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/scanledger/scanledger/internal/bundle"
	"github.com/scanledger/scanledger/internal/cache"
	"github.com/scanledger/scanledger/internal/depparse"
	"github.com/scanledger/scanledger/internal/entity"
	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// extractionOutput collects the per-file entity events, updated FileRecords
// (synopsis/parse_degraded populated), and the dependency events observed
// across every recognized manifest, in canonical-path order.
type extractionOutput struct {
	records   []scanledgerapi.FileRecord
	events    [][]entity.Event
	depEvents []depparse.Event
}

// workerCount resolves a configured worker bound (0 meaning "default to
// core count"). Unlike internal/diagram's Options.workers, the default is
// runtime.NumCPU() with no cap of 4.
func workerCount(configured int) int {
	if configured > 0 {
		return configured
	}

	return runtime.NumCPU()
}

// extract runs entity extraction over every walked file through a bounded
// worker pool (spec.md §5's "entity extraction over non-cached files"
// stage), then parses dependency manifests sequentially (a small,
// allow-listed set — not worth a separate pool). Per-file extraction or
// read failures degrade that file to a minimal event set rather than
// aborting the run (spec.md §7, ExtractionError).
func (p *pipeline) extract(records []scanledgerapi.FileRecord) (extractionOutput, error) {
	ctx, span := p.tracer.Start(p.ctx, "scanledger.extract")
	defer span.End()

	store := cache.NewDefault(p.cfg.Cache.Directory)

	extractor, err := entity.NewExtractor(store, p.opts.meter(), p.logger)
	if err != nil {
		return extractionOutput{}, &IOError{Err: fmt.Errorf("construct extractor: %w", err)}
	}

	events := make([][]entity.Event, len(records))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workerCount(p.cfg.Concurrency.ExtractWorkers))

	var (
		mu          sync.Mutex
		diagnostics []scanledgerapi.Diagnostic
	)

	for i, rec := range records {
		i, rec := i, rec

		eg.Go(func() error {
			select {
			case <-egCtx.Done():
				return egCtx.Err()
			default:
			}

			content, readErr := os.ReadFile(rec.AbsolutePath)
			if readErr != nil {
				mu.Lock()
				diagnostics = append(diagnostics, scanledgerapi.Diagnostic{
					Code:    "extraction.unreadable",
					Message: readErr.Error(),
					Path:    rec.CanonicalPath,
				})
				mu.Unlock()

				events[i] = []entity.Event{{Kind: entity.ModuleDeclared, QualifiedName: rec.CanonicalPath, Line: 1}}
				records[i].ParseDegraded = true

				return nil
			}

			result, extractErr := extractor.Extract(egCtx, rec.Language, rec.Digest, rec.CanonicalPath,
				content, entity.DefaultSynopsisMaxLines, p.cfg.Cache.ForceRebuild)
			if extractErr != nil {
				mu.Lock()
				diagnostics = append(diagnostics, scanledgerapi.Diagnostic{
					Code:    "extraction.failed",
					Message: (&ExtractionError{Path: rec.CanonicalPath, Err: extractErr}).Error(),
					Path:    rec.CanonicalPath,
				})
				mu.Unlock()

				events[i] = []entity.Event{{Kind: entity.ModuleDeclared, QualifiedName: rec.CanonicalPath, Line: 1}}
				records[i].ParseDegraded = true

				return nil
			}

			events[i] = result.Events
			records[i].Synopsis = result.Synopsis
			records[i].ParseDegraded = result.ParseDegraded

			return nil
		})
	}

	if waitErr := eg.Wait(); waitErr != nil {
		return extractionOutput{}, waitErr
	}

	sort.Slice(diagnostics, func(i, j int) bool { return diagnostics[i].Path < diagnostics[j].Path })
	p.diagnostics = append(p.diagnostics, diagnostics...)

	depEvents, depErr := p.parseDependencies(records)
	if depErr != nil {
		return extractionOutput{}, depErr
	}

	return extractionOutput{records: records, events: events, depEvents: depEvents}, nil
}

// parseDependencies reads only the allow-listed manifest files bundle and
// depparse both recognize, in canonical-path order, so dependency events
// are deterministic regardless of walk order.
func (p *pipeline) parseDependencies(records []scanledgerapi.FileRecord) ([]depparse.Event, error) {
	var all []depparse.Event

	for _, rec := range records {
		if !bundle.IsDependencyManifest(rec.CanonicalPath) {
			continue
		}

		content, readErr := os.ReadFile(rec.AbsolutePath)
		if readErr != nil {
			p.diagnostics = append(p.diagnostics, scanledgerapi.Diagnostic{
				Code:    "depparse.unreadable",
				Message: readErr.Error(),
				Path:    rec.CanonicalPath,
			})

			continue
		}

		events, ok, parseErr := depparse.Parse(rec.CanonicalPath, content)
		if parseErr != nil {
			p.diagnostics = append(p.diagnostics, scanledgerapi.Diagnostic{
				Code:    "depparse.failed",
				Message: parseErr.Error(),
				Path:    rec.CanonicalPath,
			})

			continue
		}

		if !ok {
			continue
		}

		all = append(all, events...)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].OwningModule != all[j].OwningModule {
			return all[i].OwningModule < all[j].OwningModule
		}

		return all[i].Package < all[j].Package
	})

	return all, nil
}

// encodeEventsForDigest renders events into a stable byte sequence used
// only as a cache-key input, not written to disk.
func encodeEventsForDigest(events []entity.Event) []byte {
	var b []byte

	for _, e := range events {
		b = append(b, []byte(path.Join(string(e.Kind), e.QualifiedName, e.Target))...)
		b = append(b, 0x1f)
	}

	return b
}
