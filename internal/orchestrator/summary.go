package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/scanledger/scanledger/internal/explain"
	"github.com/scanledger/scanledger/internal/metrics"
	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// summaryInput collects everything the run summary cross-links, per
// spec.md §4.13: "Markdown cross-linking manifest/delta/metrics/bundles/
// graphs/diagrams/cards/gates."
type summaryInput struct {
	RunID          string
	FileCount      int
	DeltaCounts    map[scanledgerapi.DeltaState]int
	BundleSeqs     map[string]int // preset -> sequence count
	GraphNodes     int
	GraphEdges     int
	DiagramKeys    []string
	Cards          []explain.Card
	Gate           metrics.Report
	Diagnostics    []scanledgerapi.Diagnostic
	TotalBytes     int64
}

// renderSummaryMarkdown builds summary/summary.md.
func renderSummaryMarkdown(in summaryInput) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# Run %s\n\n", in.RunID)
	fmt.Fprintf(&b, "- Files scanned: %d (%s)\n", in.FileCount, humanize.Bytes(uint64(in.TotalBytes)))
	fmt.Fprintf(&b, "- Delta: added=%d changed=%d removed=%d unchanged=%d (see `delta/delta.json`)\n",
		in.DeltaCounts[scanledgerapi.DeltaAdded], in.DeltaCounts[scanledgerapi.DeltaChanged],
		in.DeltaCounts[scanledgerapi.DeltaRemoved], in.DeltaCounts[scanledgerapi.DeltaUnchanged])

	b.WriteString("\n## Bundles\n\n")

	if len(in.BundleSeqs) == 0 {
		b.WriteString("_none_\n")
	} else {
		presets := make([]string, 0, len(in.BundleSeqs))
		for preset := range in.BundleSeqs {
			presets = append(presets, preset)
		}

		sort.Strings(presets)

		for _, preset := range presets {
			fmt.Fprintf(&b, "- `%s`: %d sequence(s) under `bundles/`\n", preset, in.BundleSeqs[preset])
		}
	}

	fmt.Fprintf(&b, "\n## Knowledge graph\n\n- %d node(s), %d relationship(s) (see `graphs/knowledge_graph.json`, `graphs/knowledge_graph.graphml`)\n",
		in.GraphNodes, in.GraphEdges)

	b.WriteString("\n## Diagrams\n\n")

	if len(in.DiagramKeys) == 0 {
		b.WriteString("_none_\n")
	} else {
		for _, k := range in.DiagramKeys {
			fmt.Fprintf(&b, "- cache key `%s` under `diagrams/`\n", k)
		}
	}

	b.WriteString("\n## Explain cards\n\n")

	if len(in.Cards) == 0 {
		b.WriteString("_none_\n")
	} else {
		for _, c := range in.Cards {
			fmt.Fprintf(&b, "- `%s` (%s) — `cards/%s.md`\n", c.ID, c.Scope, c.ID)
		}
	}

	b.WriteString("\n## Quality gate\n\n")
	b.WriteString(metrics.RenderGateReport(in.Gate))
	fmt.Fprintf(&b, "\nOverall verdict: **%s** (see `gates/gate.json`)\n", in.Gate.Verdict)

	b.WriteString("\n## Diagnostics\n\n")

	if len(in.Diagnostics) == 0 {
		b.WriteString("_none_\n")
	} else {
		for _, d := range in.Diagnostics {
			if d.Path != "" {
				fmt.Fprintf(&b, "- `%s`: %s (%s)\n", d.Code, d.Message, d.Path)
			} else {
				fmt.Fprintf(&b, "- `%s`: %s\n", d.Code, d.Message)
			}
		}
	}

	b.WriteString("\nSee `manifests/manifest.json` for the complete content-digest registry of this run's artifacts.\n")

	return []byte(b.String())
}
