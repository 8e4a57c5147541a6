// Package scanledgerapi holds the stable, importable types shared across
// scanledger's pipeline stages and exposed to external metric adapters.
package scanledgerapi

import "time"

// FileRecord is one discovered input, produced by the source walker and
// immutable for the rest of the run.
type FileRecord struct {
	CanonicalPath string    `json:"canonical_path"`
	AbsolutePath  string    `json:"absolute_path"`
	Digest        string    `json:"digest"`
	SizeBytes     int64     `json:"size_bytes"`
	MtimeNS       int64     `json:"mtime_ns"`
	LineCount     int       `json:"line_count"`
	Language      string    `json:"language"`
	Cached        bool      `json:"cached"`
	Synopsis      *string   `json:"synopsis"`
	LicenseHint   string    `json:"license_hint,omitempty"`
	ParseDegraded bool      `json:"parse_degraded,omitempty"`
	WalkedAt      time.Time `json:"-"`
}

// DeltaState classifies a FileRecord's change relative to the prior cache.
type DeltaState string

const (
	DeltaAdded     DeltaState = "added"
	DeltaChanged   DeltaState = "changed"
	DeltaRemoved   DeltaState = "removed"
	DeltaUnchanged DeltaState = "unchanged"
)

// DeltaRecord is one per union of {previous cache keys ∪ current records}.
type DeltaRecord struct {
	CanonicalPath string     `json:"canonical_path"`
	State         DeltaState `json:"state"`
	PreviousDigest string    `json:"previous_digest,omitempty"`
	CurrentDigest string     `json:"current_digest,omitempty"`
}

// NodeKind is the closed set of knowledge-graph node kinds.
type NodeKind string

const (
	NodeRun        NodeKind = "run"
	NodeFile       NodeKind = "file"
	NodeModule     NodeKind = "module"
	NodeFunction   NodeKind = "function"
	NodeClass      NodeKind = "class"
	NodeTest       NodeKind = "test"
	NodeDependency NodeKind = "dependency"
	NodeArtifact   NodeKind = "artifact"
	NodeAsset      NodeKind = "asset"
	NodeAssetCard  NodeKind = "asset_card"
)

// RelKind is the closed set of knowledge-graph relationship kinds.
type RelKind string

const (
	RelContains  RelKind = "contains"
	RelImports   RelKind = "imports"
	RelDependsOn RelKind = "depends_on"
	RelTests     RelKind = "tests"
	RelDefines   RelKind = "defines"
	RelDerives   RelKind = "derives"
	RelDescribes RelKind = "describes"
	RelProduces  RelKind = "produces"
)

// Node is a knowledge-graph vertex. Attributes keys must be written out
// in sorted order by the serializer; Provenance must never be empty.
type Node struct {
	ID         string         `json:"id"`
	Kind       NodeKind       `json:"kind"`
	Label      string         `json:"label"`
	Attributes map[string]any `json:"attributes"`
	Provenance []string       `json:"provenance"`
}

// Relationship is a knowledge-graph edge.
type Relationship struct {
	ID       string  `json:"id"`
	SourceID string  `json:"source_id"`
	TargetID string  `json:"target_id"`
	Kind     RelKind `json:"kind"`
}

// NormalizedMetrics is the closed shape the metrics aggregator consumes.
// External adapters (JUnit, LCOV, Cobertura, SARIF parsers) must produce
// this shape; scanledger never parses foreign formats itself.
type NormalizedMetrics struct {
	Tests    *TestsMetrics    `json:"tests,omitempty"`
	Coverage *CoverageMetrics `json:"coverage,omitempty"`
	Lint     *LintMetrics     `json:"lint,omitempty"`
	Security *SecurityMetrics `json:"security,omitempty"`
}

type TestsMetrics struct {
	Total      int   `json:"total"`
	Passed     int   `json:"passed"`
	Failed     int   `json:"failed"`
	Skipped    int   `json:"skipped"`
	DurationMS int64 `json:"duration_ms"`
}

type CoverageFile struct {
	Path         string `json:"path"`
	CoveredLines int    `json:"covered_lines"`
	TotalLines   int    `json:"total_lines"`
}

type CoverageMetrics struct {
	LinePercent   float64        `json:"line_percent"`
	BranchPercent *float64       `json:"branch_percent,omitempty"`
	Files         []CoverageFile `json:"files"`
}

type LintIssue struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Path     string `json:"path"`
	Line     int    `json:"line"`
}

type LintMetrics struct {
	Issues []LintIssue `json:"issues"`
}

type SecurityIssue struct {
	ID       string `json:"id"`
	Severity string `json:"severity"`
	Package  string `json:"package,omitempty"`
	Path     string `json:"path,omitempty"`
}

type SecurityMetrics struct {
	Issues []SecurityIssue `json:"issues"`
}

// ArtifactRecord describes one registered run artifact, as recorded in
// the manifest.
type ArtifactRecord struct {
	Kind         string `json:"kind"`
	RelativePath string `json:"relative_path"`
	Digest       string `json:"digest"`
}

// Manifest is the run-level record written to manifests/manifest.json.
type Manifest struct {
	RunID                string                    `json:"run_id"`
	TimestampUTC         string                    `json:"timestamp_utc"`
	ToolVersion          string                    `json:"tool_version"`
	ConfigVersion        string                    `json:"config_version"`
	Seed                 int64                     `json:"seed"`
	ResolvedConfigDigest string                    `json:"resolved_config_digest"`
	Environment          ManifestEnvironment       `json:"environment"`
	FileRecords          []ManifestFileRecord      `json:"file_records"`
	Artifacts            []ArtifactRecord          `json:"artifacts"`
	Diagnostics          []Diagnostic              `json:"diagnostics,omitempty"`
	Skips                []StageSkip               `json:"skips,omitempty"`
}

type ManifestEnvironment struct {
	Platform string `json:"platform"`
	Arch     string `json:"arch"`
}

type ManifestFileRecord struct {
	Path   string `json:"path"`
	Digest string `json:"digest"`
	Size   int64  `json:"size"`
	MtimeNS int64 `json:"mtime_ns"`
}

// Diagnostic is a recoverable error surfaced in the run summary.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

// StageSkip records a pipeline stage that was explicitly skipped rather
// than producing output.
type StageSkip struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}
