package orchestrator

import (
	"github.com/scanledger/scanledger/internal/graph"
	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// writeGraph serializes the final graph (files, dependencies, and
// registered artifacts) to disk, and — when graph diffing is enabled —
// compares it against the most recently finalized prior run (spec.md
// §4.9). --no-graph suppresses these exports; scanledger still builds the
// graph internally, since diagrams and explain cards are projections of
// it, but nothing under graphs/ is written.
func (p *pipeline) writeGraph(g *graph.Graph) error {
	if !p.cfg.Graph.Enabled {
		p.skips = append(p.skips, scanledgerapi.StageSkip{Stage: "graph", Reason: "disabled by configuration"})

		return nil
	}

	jsonLD, ldErr := graph.EncodeJSONLD(g)
	if ldErr != nil {
		return &IOError{Err: ldErr}
	}

	if _, err := p.writeTracked("graphs/knowledge_graph.json", "graph_jsonld", jsonLD); err != nil {
		return err
	}

	graphML, gmlErr := graph.EncodeGraphML(g)
	if gmlErr != nil {
		return &IOError{Err: gmlErr}
	}

	if _, err := p.writeTracked("graphs/knowledge_graph.graphml", "graph_graphml", graphML); err != nil {
		return err
	}

	if !p.cfg.Graph.Diff {
		p.skips = append(p.skips, scanledgerapi.StageSkip{Stage: "graph.diff", Reason: "disabled by configuration"})

		return nil
	}

	prevBytes, snapErr := mostRecentGraphSnapshot(p.opts.runsRoot(), p.dirName)
	if snapErr != nil {
		return &IOError{Err: snapErr}
	}

	if prevBytes == nil {
		p.skips = append(p.skips, scanledgerapi.StageSkip{Stage: "graph.diff", Reason: "no prior run to diff against"})

		return nil
	}

	prevDoc, decErr := graph.DecodeJSONLD(prevBytes)
	if decErr != nil {
		p.diagnostics = append(p.diagnostics, scanledgerapi.Diagnostic{
			Code:    "graph.diff_unreadable",
			Message: decErr.Error(),
		})

		return nil
	}

	diff := graph.Compare(prevDoc, g)

	diffJSON, encErr := graph.EncodeDiffJSON(diff)
	if encErr != nil {
		return &IOError{Err: encErr}
	}

	if _, err := p.writeTracked("graphs/diff.json", "graph_diff_json", diffJSON); err != nil {
		return err
	}

	if _, err := p.writeTracked("graphs/diff.md", "graph_diff_markdown", graph.EncodeDiffMarkdown(diff)); err != nil {
		return err
	}

	return nil
}

func (p *pipeline) writeDelta(delta []scanledgerapi.DeltaRecord) error {
	encoded, err := encodeStableJSON(delta)
	if err != nil {
		return &IOError{Err: err}
	}

	_, writeErr := p.writeTracked("delta/delta.json", "delta", encoded)

	return writeErr
}

func (p *pipeline) finalizeManifest(records []scanledgerapi.FileRecord, configDigest string) (scanledgerapi.Manifest, error) {
	manifest := buildManifest(p.runID, p.now, configDigest, records, p.artifacts, p.diagnostics, p.skips)

	encoded, encErr := encodeManifest(manifest)
	if encErr != nil {
		return scanledgerapi.Manifest{}, &IOError{Err: encErr}
	}

	if _, err := writeArtifact(p.runDir, "manifests/manifest.json", encoded); err != nil {
		return scanledgerapi.Manifest{}, err
	}

	return manifest, nil
}

func (p *pipeline) writeSummary(
	g *graph.Graph,
	records []scanledgerapi.FileRecord,
	delta []scanledgerapi.DeltaRecord,
	artifacts artifactsResult,
) error {
	deltaCounts := make(map[scanledgerapi.DeltaState]int)
	for _, d := range delta {
		deltaCounts[d.State]++
	}

	md := renderSummaryMarkdown(summaryInput{
		RunID:       p.runID,
		FileCount:   len(records),
		DeltaCounts: deltaCounts,
		BundleSeqs:  artifacts.bundleSeqs,
		GraphNodes:  len(g.Nodes),
		GraphEdges:  len(g.Relationships),
		DiagramKeys: artifacts.diagramKeys,
		Cards:       artifacts.cards,
		Gate:        artifacts.gate,
		Diagnostics: p.diagnostics,
		TotalBytes:  artifacts.totalBytes,
	})

	_, err := writeArtifact(p.runDir, "summary/summary.md", md)

	return err
}
