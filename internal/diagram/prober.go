package diagram

import "os/exec"

// rendererBinaries maps each external renderer name to the binary
// exec.LookPath probes for.
var rendererBinaries = map[string]string{
	"mermaid-cli": "mmdc",
	"plantuml":    "plantuml",
	"graphviz":    "dot",
}

// lookPath is overridable in tests.
var lookPath = exec.LookPath

// ProbeRenderers reports, for every known external renderer, whether its
// binary is on PATH. Results are recorded verbatim in the diagram
// metadata sidecar (spec.md §4.10); scanledger never fails a run because
// a renderer is missing — it falls back to the deterministic SVG emitter.
func ProbeRenderers() map[string]bool {
	results := make(map[string]bool, len(rendererBinaries))

	for name, binary := range rendererBinaries {
		_, err := lookPath(binary)
		results[name] = err == nil
	}

	return results
}
