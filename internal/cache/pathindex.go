package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// PathEntry is the prior run's recorded digest and size for one canonical
// path, used to decide whether a freshly-walked file can be treated as
// cached (spec.md §4.3: "cached = (digest == cached.digest && size ==
// cached.size)").
type PathEntry struct {
	Digest    string `json:"digest"`
	SizeBytes int64  `json:"size_bytes"`
	// ExtractionEventsDigest keys the content-addressed Entry store above,
	// letting identical file content across runs (or across files) share
	// one extraction result.
	ExtractionEventsDigest string `json:"extraction_events_digest"`
}

// PathIndex maps canonical_path to its last-known PathEntry.
type PathIndex map[string]PathEntry

// LoadPathIndex reads a path index from path. A missing file is treated
// as an empty index (first run), not an error.
func LoadPathIndex(path string) (PathIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return PathIndex{}, nil
		}

		return nil, fmt.Errorf("read path index: %w", err)
	}

	var idx PathIndex

	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode path index: %w", err)
	}

	return idx, nil
}

// SavePathIndex atomically writes idx to path (temp file + rename), so a
// run that is interrupted mid-write never corrupts the index used by the
// next run.
func SavePathIndex(path string, idx PathIndex) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encode path index: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create path index dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-pathindex-*")
	if err != nil {
		return fmt.Errorf("create temp path index: %w", err)
	}

	tmpPath := tmp.Name()

	if _, writeErr := tmp.Write(data); writeErr != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("write path index: %w", writeErr)
	}

	if closeErr := tmp.Close(); closeErr != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("close temp path index: %w", closeErr)
	}

	if renameErr := os.Rename(tmpPath, path); renameErr != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("rename path index into place: %w", renameErr)
	}

	return nil
}

// IsCached reports whether (digest, size) for canonicalPath matches what
// idx last recorded for that path.
func (idx PathIndex) IsCached(canonicalPath, digest string, size int64) bool {
	prev, ok := idx[canonicalPath]

	return ok && prev.Digest == digest && prev.SizeBytes == size
}
