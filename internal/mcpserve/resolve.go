package mcpserve

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// ErrEmptyRunsRoot indicates the server was constructed without a runs
// directory to serve from.
var ErrEmptyRunsRoot = errors.New("runs root is not configured")

// ErrRunNotFound indicates the requested run directory does not exist
// under the configured runs root.
var ErrRunNotFound = errors.New("run not found")

// ErrInvalidRunName indicates a run identifier that is not a single path
// segment — rejected outright so a tool caller can never escape runsRoot
// via "../" or an absolute path.
var ErrInvalidRunName = errors.New("run identifier must be a single path segment")

// resolveRunDir validates run (a run directory name, or "latest" for the
// most recently created run directory) and returns its absolute path
// under runsRoot. Every artifact-serving tool goes through this function,
// so path traversal is rejected in exactly one place.
func resolveRunDir(runsRoot, run string) (string, error) {
	if runsRoot == "" {
		return "", ErrEmptyRunsRoot
	}

	if run == "" || run == "latest" {
		name, err := latestRunDirName(runsRoot)
		if err != nil {
			return "", err
		}

		run = name
	}

	if run != filepath.Base(run) || strings.Contains(run, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidRunName, run)
	}

	dir := filepath.Join(runsRoot, run)

	info, statErr := os.Stat(dir)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return "", fmt.Errorf("%w: %q", ErrRunNotFound, run)
		}

		return "", fmt.Errorf("stat run directory: %w", statErr)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("%w: %q", ErrRunNotFound, run)
	}

	return dir, nil
}

// latestRunDirName returns the lexicographically greatest directory name
// under runsRoot. Run directories are named <timestamp>-<short_run_id>
// (spec.md §4.13), so lexicographic order is chronological order.
func latestRunDirName(runsRoot string) (string, error) {
	entries, err := os.ReadDir(runsRoot)
	if err != nil {
		return "", fmt.Errorf("list run directories: %w", err)
	}

	var names []string

	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}

	if len(names) == 0 {
		return "", ErrRunNotFound
	}

	sort.Strings(names)

	return names[len(names)-1], nil
}

// listRunDirs returns every run directory name under runsRoot, newest
// first.
func listRunDirs(runsRoot string) ([]string, error) {
	entries, err := os.ReadDir(runsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("list run directories: %w", err)
	}

	var names []string

	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	return names, nil
}

// readManifest loads and decodes runDir's manifest.json.
func readManifest(runDir string) (scanledgerapi.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "manifests", "manifest.json"))
	if err != nil {
		return scanledgerapi.Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m scanledgerapi.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return scanledgerapi.Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}

	return m, nil
}
