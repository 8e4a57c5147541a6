// Package orchestrator implements scanledger's run orchestrator (spec.md
// §4.13): it drives the pipeline stages in dependency order, creates and
// finalizes the run directory, and enforces the error taxonomy of
// spec.md §7.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/scanledger/scanledger/internal/cache"
	"github.com/scanledger/scanledger/internal/config"
	"github.com/scanledger/scanledger/internal/digestid"
	"github.com/scanledger/scanledger/internal/graph"
	"github.com/scanledger/scanledger/internal/metrics"
	"github.com/scanledger/scanledger/internal/walker"
	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

const tracerName = "scanledger"

// Options carries everything Run needs that does not belong in
// *config.Config: injectable clock (for deterministic tests), observability
// providers, and the already-normalized metrics an external CI step
// supplied for this run (spec.md §4.11 — scanledger never parses foreign
// metrics formats itself).
type Options struct {
	// Now defaults to time.Now. Injectable so tests produce stable run IDs.
	Now func() time.Time
	// RunsRoot defaults to config.DefaultRunsDir.
	RunsRoot string

	Logger *slog.Logger
	Tracer trace.Tracer
	Meter  metric.Meter

	Metrics scanledgerapi.NormalizedMetrics
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}

	return time.Now()
}

func (o Options) runsRoot() string {
	if o.RunsRoot != "" {
		return o.RunsRoot
	}

	return config.DefaultRunsDir
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return slog.Default()
}

func (o Options) tracer() trace.Tracer {
	if o.Tracer != nil {
		return o.Tracer
	}

	return otel.Tracer(tracerName)
}

func (o Options) meter() metric.Meter {
	if o.Meter != nil {
		return o.Meter
	}

	return metricnoop.NewMeterProvider().Meter(tracerName)
}

// Outcome is everything a caller (the CLI, or a test) needs after Run
// returns without a fatal error: where the run landed, its manifest, and
// the evaluated quality gate, from which the process exit code follows.
type Outcome struct {
	RunDir     string
	RunID      string
	Manifest   scanledgerapi.Manifest
	GateReport metrics.Report
	ExitCode   int
}

// Run drives one full scan: walk, classify, extract, parse dependencies,
// build the knowledge graph, build bundles, render diagrams, evaluate the
// quality gate, generate explain cards, finalize the manifest and run
// summary, and — only on success — save the cache's path index and prune
// retention.
//
// The error taxonomy of spec.md §7 governs every return: an *InputError,
// or a *ConfigError for a nil configuration, means no run directory was
// created; a *ConfigError raised while rendering diagrams (an invalid
// diagram preset, format or theme) is returned after the run directory was
// created; an *InvariantError means the run directory is preserved for
// inspection and the path index was not saved; any other returned error is
// an *IOError and exit code 1. On every failed run, content-addressed
// extraction entries already written during extraction stay in the cache.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Outcome, error) {
	if cfg == nil {
		return nil, &ConfigError{Err: errors.New("nil configuration")}
	}

	logger := opts.logger()
	tracer := opts.tracer()

	ctx, span := tracer.Start(ctx, "scanledger.run")
	defer span.End()

	now := opts.now()

	walkResult, walkErr := walker.Walk(ctx, walker.Options{
		Root:    cfg.Source.Input,
		Include: cfg.Source.Include,
		Ignore:  cfg.Source.Ignore,
	})
	if walkErr != nil {
		span.SetStatus(codes.Error, walkErr.Error())

		return nil, &InputError{Err: walkErr}
	}

	dirName, runID := newRunID(now)
	runsRoot := opts.runsRoot()

	runDir, createErr := createRunDir(runsRoot, dirName)
	if createErr != nil {
		span.SetStatus(codes.Error, createErr.Error())

		return nil, &IOError{Err: createErr}
	}

	logger = logger.With(slog.String("run_id", runID))
	span.SetAttributes(attribute.String("run_id", runID))

	pipe := &pipeline{
		ctx:     ctx,
		cfg:     cfg,
		opts:    opts,
		logger:  logger,
		tracer:  tracer,
		runDir:  runDir,
		runID:   runID,
		dirName: dirName,
		now:     now,
	}

	outcome, err := pipe.run(walkResult)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return outcome, err
	}

	return outcome, nil
}

// pipeline holds the mutable state threaded through one run's stages. It
// exists so the stage methods (in extraction.go, artifacts.go, gates.go)
// can share fields without a long positional parameter list.
type pipeline struct {
	ctx    context.Context
	cfg    *config.Config
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer

	runDir  string
	runID   string
	dirName string
	now     time.Time

	diagnostics []scanledgerapi.Diagnostic
	skips       []scanledgerapi.StageSkip
	artifacts   []scanledgerapi.ArtifactRecord
}

func (p *pipeline) run(walkResult walker.Result) (*Outcome, error) {
	for _, e := range walkResult.Errors {
		p.diagnostics = append(p.diagnostics, scanledgerapi.Diagnostic{
			Code:    "walk.unreadable_file",
			Message: e.Err.Error(),
			Path:    e.CanonicalPath,
		})
	}

	configDigest := configFingerprint(p.cfg)

	pathIndexPath := filepath.Join(p.cfg.Cache.Directory, "pathindex-"+cache.RunKey(p.cfg.Source.Input, configDigest)+".json")

	prevIndex, loadErr := cache.LoadPathIndex(pathIndexPath)
	if loadErr != nil {
		return nil, &IOError{Err: loadErr}
	}

	records := make([]scanledgerapi.FileRecord, len(walkResult.Records))
	copy(records, walkResult.Records)

	for i, rec := range records {
		records[i].Cached = !p.cfg.Cache.NoIncremental && !p.cfg.Cache.ForceRebuild &&
			prevIndex.IsCached(rec.CanonicalPath, rec.Digest, rec.SizeBytes)
	}

	prevRecords := make([]scanledgerapi.FileRecord, 0, len(prevIndex))
	for path, entry := range prevIndex {
		prevRecords = append(prevRecords, scanledgerapi.FileRecord{CanonicalPath: path, Digest: entry.Digest})
	}

	sort.Slice(prevRecords, func(i, j int) bool { return prevRecords[i].CanonicalPath < prevRecords[j].CanonicalPath })

	delta := cache.Classify(prevRecords, records)

	extraction, extractErr := p.extract(records)
	if extractErr != nil {
		return nil, extractErr
	}

	records = extraction.records
	depEvents := extraction.depEvents

	graphFiles := make([]graph.FileInput, len(records))
	for i, rec := range records {
		graphFiles[i] = graph.FileInput{Record: rec, Events: extraction.events[i]}
	}

	draftGraph := graph.Build(graph.BuildInput{
		RunID:        p.runID,
		Files:        graphFiles,
		Dependencies: depEvents,
	})

	if validateErr := graph.Validate(draftGraph); validateErr != nil {
		return nil, &InvariantError{Err: validateErr}
	}

	artifactsOut, artifactErr := p.buildArtifacts(draftGraph, records, delta)
	if artifactErr != nil {
		return nil, artifactErr
	}

	finalGraph := graph.Build(graph.BuildInput{
		RunID:        p.runID,
		Files:        graphFiles,
		Dependencies: depEvents,
		Artifacts:    artifactsOut.graphArtifacts,
	})

	if validateErr := graph.Validate(finalGraph); validateErr != nil {
		return nil, &InvariantError{Err: validateErr}
	}

	if writeErr := p.writeGraph(finalGraph); writeErr != nil {
		return nil, writeErr
	}

	if writeErr := p.writeDelta(delta); writeErr != nil {
		return nil, writeErr
	}

	manifest, manifestErr := p.finalizeManifest(records, configDigest)
	if manifestErr != nil {
		return nil, manifestErr
	}

	if summaryErr := p.writeSummary(finalGraph, records, delta, artifactsOut); summaryErr != nil {
		return nil, summaryErr
	}

	newIndex := make(cache.PathIndex, len(records))
	for i, rec := range records {
		newIndex[rec.CanonicalPath] = cache.PathEntry{
			Digest:                 rec.Digest,
			SizeBytes:              rec.SizeBytes,
			ExtractionEventsDigest: digestid.DigestBytes(encodeEventsForDigest(extraction.events[i])),
		}
	}

	if saveErr := cache.SavePathIndex(pathIndexPath, newIndex); saveErr != nil {
		return nil, &IOError{Err: saveErr}
	}

	if pruneErr := pruneRetention(p.opts.runsRoot(), p.dirName, p.cfg.Retention.KeepCount); pruneErr != nil {
		return nil, &IOError{Err: pruneErr}
	}

	exitCode := ExitSuccess
	if artifactsOut.gate.Verdict == metrics.VerdictFail {
		exitCode = ExitGateFailure
	}

	return &Outcome{
		RunDir:     p.runDir,
		RunID:      p.runID,
		Manifest:   manifest,
		GateReport: artifactsOut.gate,
		ExitCode:   exitCode,
	}, nil
}
