package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/scanledger/scanledger/internal/digestid"
)

// runSubdirs are the fixed set of subdirectories every run directory gets,
// per spec.md §4.13 and the "Run directory layout" section of spec.md §6.
var runSubdirs = []string{
	"manifests", "bundles", "graphs", "diagrams", "metrics",
	"delta", "gates", "cards", "assets", "logs", "badges", "summary",
}

const dirPerm = 0o750

// newRunID derives a run directory name of the form
// <timestamp>-<short_run_id>, and the full run_id recorded in the
// manifest. now is injectable for deterministic tests.
func newRunID(now time.Time) (dirName, runID string) {
	runID = uuid.New().String()
	timestamp := now.UTC().Format("20060102T150405Z")
	short := runID[:8]

	return timestamp + "-" + short, runID
}

// createRunDir creates runs/<dirName>/ with every fixed subdirectory and
// returns its absolute path.
func createRunDir(runsRoot, dirName string) (string, error) {
	runDir := filepath.Join(runsRoot, dirName)

	if err := os.MkdirAll(runDir, dirPerm); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}

	for _, sub := range runSubdirs {
		if err := os.MkdirAll(filepath.Join(runDir, sub), dirPerm); err != nil {
			return "", fmt.Errorf("create run subdirectory %s: %w", sub, err)
		}
	}

	return runDir, nil
}

// writeArtifact writes content to runDir/relPath (relPath using forward
// slashes), creating parent directories as needed, and returns its digest
// for manifest registration.
func writeArtifact(runDir, relPath string, content []byte) (string, error) {
	abs := filepath.Join(runDir, filepath.FromSlash(relPath))

	if err := os.MkdirAll(filepath.Dir(abs), dirPerm); err != nil {
		return "", &IOError{Err: fmt.Errorf("create artifact directory for %s: %w", relPath, err)}
	}

	if err := os.WriteFile(abs, content, 0o640); err != nil {
		return "", &IOError{Err: fmt.Errorf("write artifact %s: %w", relPath, err)}
	}

	return digestid.DigestBytes(content), nil
}
