package orchestrator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/scanledger/scanledger/internal/bundle"
	"github.com/scanledger/scanledger/internal/diagram"
	"github.com/scanledger/scanledger/internal/digestid"
	"github.com/scanledger/scanledger/internal/explain"
	"github.com/scanledger/scanledger/internal/graph"
	"github.com/scanledger/scanledger/internal/metrics"
	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// artifactsResult collects everything buildArtifacts produces: the
// graph.ArtifactInput list feeding the final graph's "produces" edges
// (spec.md §4.7 step 6), and the data the run summary cross-links.
type artifactsResult struct {
	graphArtifacts []graph.ArtifactInput
	bundleSeqs     map[string]int
	diagramKeys    []string
	cards          []explain.Card
	gate           metrics.Report
	totalBytes     int64
}

// buildArtifacts runs bundling, diagram rendering, gate evaluation, and
// explain card generation against the draft graph (built from files and
// dependencies only), in that order — card generation needs the gate
// report for its quality-scope traceability.
func (p *pipeline) buildArtifacts(g *graph.Graph, records []scanledgerapi.FileRecord, delta []scanledgerapi.DeltaRecord) (artifactsResult, error) {
	var totalBytes int64
	for _, r := range records {
		totalBytes += r.SizeBytes
	}

	bundleSeqs, bundleArtifacts, err := p.buildBundles(records)
	if err != nil {
		return artifactsResult{}, err
	}

	diagramResults, diagramArtifacts, err := p.buildDiagrams(g)
	if err != nil {
		return artifactsResult{}, err
	}

	cleanMetrics, metricsDiagnostics := validatedMetrics(p.opts.Metrics)
	p.diagnostics = append(p.diagnostics, metricsDiagnostics...)

	metricsBundle, err := metrics.NewBundle(cleanMetrics)
	if err != nil {
		return artifactsResult{}, &IOError{Err: fmt.Errorf("build clean metrics bundle: %w", err)}
	}

	gateThresholds := thresholds(p.cfg.Gate)
	if p.opts.Metrics.Tests != nil && cleanMetrics.Tests == nil {
		gateThresholds.MaxFailedTests = nil
	}
	if p.opts.Metrics.Coverage != nil && cleanMetrics.Coverage == nil {
		gateThresholds.MinCoverage = nil
	}
	if p.opts.Metrics.Lint != nil && cleanMetrics.Lint == nil {
		gateThresholds.MaxLintWarnings = nil
	}
	if p.opts.Metrics.Security != nil && cleanMetrics.Security == nil {
		gateThresholds.MaxCriticalVulnerabilities = nil
	}

	gateReport := metrics.EvaluateGates(metricsBundle, gateThresholds)

	metricsBytes, err := metricsBundle.Encode()
	if err != nil {
		return artifactsResult{}, &IOError{Err: err}
	}

	if _, err := p.writeTracked("metrics/metrics.json", "metrics", metricsBytes); err != nil {
		return artifactsResult{}, err
	}

	gateBytes, err := encodeStableJSON(gateReport)
	if err != nil {
		return artifactsResult{}, &IOError{Err: err}
	}

	if _, err := p.writeTracked("gates/gate.json", "gate", gateBytes); err != nil {
		return artifactsResult{}, err
	}

	cards, cardArtifacts, err := p.buildExplainCards(g, metricsBundle, gateReport)
	if err != nil {
		return artifactsResult{}, err
	}

	var graphArtifacts []graph.ArtifactInput
	graphArtifacts = append(graphArtifacts, bundleArtifacts...)
	graphArtifacts = append(graphArtifacts, diagramArtifacts...)
	graphArtifacts = append(graphArtifacts, cardArtifacts...)

	return artifactsResult{
		graphArtifacts: graphArtifacts,
		bundleSeqs:     bundleSeqs,
		diagramKeys:    diagram.SortedRequestKeys(diagramResults),
		cards:          cards,
		gate:           gateReport,
		totalBytes:     totalBytes,
	}, nil
}

// writeTracked writes content under the run directory and registers it in
// the manifest's artifact list.
func (p *pipeline) writeTracked(relPath, kind string, content []byte) (string, error) {
	digest, err := writeArtifact(p.runDir, relPath, content)
	if err != nil {
		return "", err
	}

	p.artifacts = append(p.artifacts, scanledgerapi.ArtifactRecord{Kind: kind, RelativePath: relPath, Digest: digest})

	return digest, nil
}

// buildBundles builds and writes every configured preset's bundle
// sequences, in preset-name order (spec.md §4.4).
func (p *pipeline) buildBundles(records []scanledgerapi.FileRecord) (map[string]int, []graph.ArtifactInput, error) {
	presets := append([]string(nil), p.cfg.Bundle.Presets...)
	sort.Strings(presets)

	seqs := make(map[string]int, len(presets))

	var artifacts []graph.ArtifactInput

	for _, presetName := range presets {
		preset := bundle.Preset(presetName)

		bundles, err := bundle.Build(preset, records, bundle.Options{
			MaxBundleBytes: int(p.cfg.Bundle.MaxBundleBytes),
			MaxBundleLines: p.cfg.Bundle.MaxBundleLines,
		})
		if err != nil {
			return nil, nil, &IOError{Err: fmt.Errorf("build %s bundles: %w", presetName, err)}
		}

		seqs[presetName] = len(bundles)

		for _, b := range bundles {
			bodyRel := fmt.Sprintf("bundles/%s-%d.txt", presetName, b.Sequence)

			bodyDigest, writeErr := p.writeTracked(bodyRel, "bundle", b.Body)
			if writeErr != nil {
				return nil, nil, writeErr
			}

			indexBytes, encErr := encodeStableJSON(b.Index)
			if encErr != nil {
				return nil, nil, &IOError{Err: encErr}
			}

			indexRel := fmt.Sprintf("bundles/%s-%d.index.json", presetName, b.Sequence)
			if _, writeErr := p.writeTracked(indexRel, "bundle_index", indexBytes); writeErr != nil {
				return nil, nil, writeErr
			}

			unitPaths := make([]string, len(b.Index))
			for i, e := range b.Index {
				unitPaths[i] = e.UnitPath
			}

			artifacts = append(artifacts, graph.ArtifactInput{
				Record:      scanledgerapi.ArtifactRecord{Kind: "bundle", RelativePath: bodyRel, Digest: bodyDigest},
				DerivesFrom: unitPaths,
			})
		}
	}

	return seqs, artifacts, nil
}

// diagramMetadataEntry is one row of diagrams/metadata.json.
type diagramMetadataEntry struct {
	Preset         string          `json:"preset"`
	Format         string          `json:"format"`
	Theme          string          `json:"theme"`
	CacheKey       string          `json:"cache_key"`
	SubgraphDigest string          `json:"subgraph_digest"`
	RendererProbe  map[string]bool `json:"renderer_probe"`
}

// buildDiagrams renders every configured (preset, format) pair against g.
// No cross-run diagram cache is consulted: RenderText is a pure,
// deterministic function of the subgraph projection, so every run
// reproduces byte-identical output without one (spec.md §8 determinism).
func (p *pipeline) buildDiagrams(g *graph.Graph) ([]diagram.Result, []graph.ArtifactInput, error) {
	if !p.cfg.Diagram.Enabled {
		p.skips = append(p.skips, scanledgerapi.StageSkip{Stage: "diagrams", Reason: "disabled by configuration"})

		return nil, nil, nil
	}

	presets := append([]string(nil), p.cfg.Diagram.Presets...)
	sort.Strings(presets)

	formats := append([]string(nil), p.cfg.Diagram.Formats...)
	sort.Strings(formats)

	var requests []diagram.Request

	for _, presetName := range presets {
		for _, formatName := range formats {
			requests = append(requests, diagram.Request{
				Preset: diagram.Preset(presetName),
				Format: diagram.Format(formatName),
				Theme:  diagram.Theme(p.cfg.Diagram.Theme),
			})
		}
	}

	if len(requests) == 0 {
		return nil, nil, nil
	}

	results, genErr := diagram.Generate(p.ctx, g, requests, nil, diagram.Options{Workers: p.cfg.Diagram.Concurrency})
	if genErr != nil {
		var themeErr *diagram.ThemeViolationError
		if errors.As(genErr, &themeErr) {
			return nil, nil, &ConfigError{Err: genErr}
		}

		var cfgErr *diagram.ConfigError
		if errors.As(genErr, &cfgErr) {
			return nil, nil, &ConfigError{Err: genErr}
		}

		return nil, nil, &IOError{Err: genErr}
	}

	var artifacts []graph.ArtifactInput

	metadata := make([]diagramMetadataEntry, 0, len(results))

	for _, r := range results {
		srcRel := fmt.Sprintf("diagrams/%s.%s.src", r.Request.Preset, r.Request.Format)

		srcDigest, writeErr := p.writeTracked(srcRel, "diagram", r.Text)
		if writeErr != nil {
			return nil, nil, writeErr
		}

		if len(r.FallbackSVG) > 0 {
			svgRel := fmt.Sprintf("diagrams/%s.%s.svg", r.Request.Preset, r.Request.Format)
			if _, writeErr := p.writeTracked(svgRel, "diagram_svg", r.FallbackSVG); writeErr != nil {
				return nil, nil, writeErr
			}
		}

		artifacts = append(artifacts, graph.ArtifactInput{
			Record: scanledgerapi.ArtifactRecord{Kind: "diagram", RelativePath: srcRel, Digest: srcDigest},
		})

		metadata = append(metadata, diagramMetadataEntry{
			Preset:         string(r.Request.Preset),
			Format:         string(r.Request.Format),
			Theme:          string(r.Request.Theme),
			CacheKey:       r.CacheKey,
			SubgraphDigest: r.SubgraphDigest,
			RendererProbe:  r.RendererProbe,
		})
	}

	sort.Slice(metadata, func(i, j int) bool { return metadata[i].CacheKey < metadata[j].CacheKey })

	metadataBytes, encErr := encodeStableJSON(metadata)
	if encErr != nil {
		return nil, nil, &IOError{Err: encErr}
	}

	if _, writeErr := p.writeTracked("diagrams/metadata.json", "diagram_metadata", metadataBytes); writeErr != nil {
		return nil, nil, writeErr
	}

	return results, artifacts, nil
}

// buildExplainCards generates one card per closed scope: architecture and
// tests derive their subgraph digest from the matching diagram
// projection, while quality — which has no natural node subset — uses the
// digest of the evaluated metrics bundle as its traceable grounding.
func (p *pipeline) buildExplainCards(g *graph.Graph, metricsBundle metrics.Bundle, gate metrics.Report) ([]explain.Card, []graph.ArtifactInput, error) {
	var (
		cards     []explain.Card
		artifacts []graph.ArtifactInput
	)

	for _, scope := range explain.ClosedScopes {
		in, buildErr := p.explainInputFor(scope, g, metricsBundle, gate)
		if buildErr != nil {
			return nil, nil, buildErr
		}

		card, genErr := explain.Generate(in)
		if genErr != nil {
			return nil, nil, &IOError{Err: genErr}
		}

		mdRel := fmt.Sprintf("cards/%s.md", card.ID)

		mdDigest, writeErr := p.writeTracked(mdRel, "explain_card", []byte(card.Markdown))
		if writeErr != nil {
			return nil, nil, writeErr
		}

		jsonBytes, encErr := encodeStableJSON(card)
		if encErr != nil {
			return nil, nil, &IOError{Err: encErr}
		}

		if _, writeErr := p.writeTracked(fmt.Sprintf("cards/%s.json", card.ID), "explain_card_json", jsonBytes); writeErr != nil {
			return nil, nil, writeErr
		}

		cards = append(cards, card)
		artifacts = append(artifacts, graph.ArtifactInput{
			Record: scanledgerapi.ArtifactRecord{Kind: "explain_card", RelativePath: mdRel, Digest: mdDigest},
		})
	}

	indexEntries := make([]struct {
		ID    string `json:"id"`
		Scope string `json:"scope"`
	}, len(cards))

	for i, c := range cards {
		indexEntries[i] = struct {
			ID    string `json:"id"`
			Scope string `json:"scope"`
		}{ID: c.ID, Scope: string(c.Scope)}
	}

	sort.Slice(indexEntries, func(i, j int) bool { return indexEntries[i].ID < indexEntries[j].ID })

	indexBytes, encErr := encodeStableJSON(indexEntries)
	if encErr != nil {
		return nil, nil, &IOError{Err: encErr}
	}

	if _, writeErr := p.writeTracked("cards/index.json", "explain_card_index", indexBytes); writeErr != nil {
		return nil, nil, writeErr
	}

	return cards, artifacts, nil
}

func (p *pipeline) explainInputFor(scope explain.Scope, g *graph.Graph, metricsBundle metrics.Bundle, gate metrics.Report) (explain.Input, error) {
	switch scope {
	case explain.ScopeArchitecture:
		return p.explainInputFromSubgraph(scope, g, diagram.PresetArchitecture,
			"Module and file containment structure observed in this run.",
			"Derived from contains relationships between file and module nodes in the knowledge graph.")
	case explain.ScopeTests:
		return p.explainInputFromSubgraph(scope, g, diagram.PresetTests,
			"Test declarations and the modules they exercise.",
			"Derived from tests relationships between test and module nodes in the knowledge graph.")
	case explain.ScopeQuality:
		digest := qualityDigest(metricsBundle)

		edgeCases := []string{}
		for _, c := range gate.Checks {
			if c.Verdict == metrics.VerdictFail {
				edgeCases = append(edgeCases, c.Reason)
			}
		}

		return explain.Input{
			Scope:          scope,
			SubgraphDigest: digest,
			Summary:        fmt.Sprintf("Quality gate verdict: %s.", gate.Verdict),
			Rationale:      "Derived from the normalized metrics bundle supplied for this run and the configured gate thresholds.",
			EdgeCases:      edgeCases,
			Traceability:   explain.Traceability{MetricsKeys: metricsKeys(metricsBundle)},
		}, nil
	default:
		return explain.Input{}, &ConfigError{Err: fmt.Errorf("unhandled explain scope %q", scope)}
	}
}

func (p *pipeline) explainInputFromSubgraph(scope explain.Scope, g *graph.Graph, preset diagram.Preset, summary, rationale string) (explain.Input, error) {
	sub, err := diagram.Project(g, preset)
	if err != nil {
		return explain.Input{}, &IOError{Err: err}
	}

	nodeIDs := make([]string, 0, len(sub.Nodes))
	for _, n := range sub.Nodes {
		nodeIDs = append(nodeIDs, n.ID)
	}

	sort.Strings(nodeIDs)

	return explain.Input{
		Scope:          scope,
		SubgraphDigest: sub.Digest(),
		Summary:        summary,
		Rationale:      rationale,
		Traceability:   explain.Traceability{NodeIDs: nodeIDs},
	}, nil
}

// qualityDigest stands in for a subgraph digest on the quality explain
// card, which has no natural knowledge-graph node subset: it digests the
// evaluated metrics bundle's encoded bytes instead, so the card ID still
// changes deterministically whenever the underlying metrics do.
func qualityDigest(b metrics.Bundle) string {
	encoded, err := b.Encode()
	if err != nil {
		return digestid.DigestBytes(nil)
	}

	return digestid.DigestBytes(encoded)
}

func metricsKeys(b metrics.Bundle) []string {
	var keys []string

	if b.Tests != nil {
		keys = append(keys, "tests")
	}

	if b.Coverage != nil {
		keys = append(keys, "coverage")
	}

	if b.Lint != nil {
		keys = append(keys, "lint")
	}

	if b.Security != nil {
		keys = append(keys, "security")
	}

	sort.Strings(keys)

	return keys
}
