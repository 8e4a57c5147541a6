package orchestrator

import (
	"runtime"
	"time"

	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// toolVersion and configVersion are fixed identifiers recorded in every
// manifest; scanledger has no separate plugin/config schema migrations
// yet, so both are constant.
const (
	toolVersion   = "1"
	configVersion = "1"
)

func buildManifest(
	runID string,
	now time.Time,
	resolvedConfigDigest string,
	records []scanledgerapi.FileRecord,
	artifacts []scanledgerapi.ArtifactRecord,
	diagnostics []scanledgerapi.Diagnostic,
	skips []scanledgerapi.StageSkip,
) scanledgerapi.Manifest {
	fileRecords := make([]scanledgerapi.ManifestFileRecord, 0, len(records))
	for _, r := range records {
		fileRecords = append(fileRecords, scanledgerapi.ManifestFileRecord{
			Path:    r.CanonicalPath,
			Digest:  r.Digest,
			Size:    r.SizeBytes,
			MtimeNS: r.MtimeNS,
		})
	}

	return scanledgerapi.Manifest{
		RunID:                runID,
		TimestampUTC:         now.UTC().Format(time.RFC3339),
		ToolVersion:          toolVersion,
		ConfigVersion:        configVersion,
		Seed:                 0,
		ResolvedConfigDigest: resolvedConfigDigest,
		Environment: scanledgerapi.ManifestEnvironment{
			Platform: runtime.GOOS,
			Arch:     runtime.GOARCH,
		},
		FileRecords: fileRecords,
		Artifacts:   artifacts,
		Diagnostics: diagnostics,
		Skips:       skips,
	}
}

// encodeManifest renders m as stable-keyed JSON (UTF-8, LF, keys in struct
// field declaration order),
// matching the byte-stability convention every other serializer in this
// module follows.
func encodeManifest(m scanledgerapi.Manifest) ([]byte, error) {
	return encodeStableJSON(m)
}
