// Package walker implements scanledger's incremental source walker
// (spec.md §4.2): directory traversal honoring include/ignore rules,
// emitting a sorted, duplicate-free FileRecord stream.
package walker

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scanledger/scanledger/internal/digestid"
	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// Options configures a walk.
type Options struct {
	// Root is the scan root directory.
	Root string
	// Include is a set of glob patterns evaluated against the canonical
	// path. Empty means "include everything not ignored".
	Include []string
	// Ignore is a set of glob patterns; ignore always takes precedence
	// over include (spec.md §4.2).
	Ignore []string
}

// ErrorRecord captures a file the walker could not read. Per spec.md §4.2,
// unreadable files fail locally: they never abort the run.
type ErrorRecord struct {
	CanonicalPath string
	Err           error
}

// Result is the outcome of a full walk: sorted FileRecords plus any
// per-file errors encountered along the way.
type Result struct {
	Records []scanledgerapi.FileRecord
	Errors  []ErrorRecord
}

// Walk traverses Root, classifying and hashing every matching regular
// file. Symlinks are never followed. The returned Records slice is
// sorted by CanonicalPath and contains no duplicates.
func Walk(ctx context.Context, opts Options) (Result, error) {
	info, statErr := os.Stat(opts.Root)
	if statErr != nil {
		return Result{}, fmt.Errorf("scan root: %w", statErr)
	}

	if !info.IsDir() {
		return Result{}, fmt.Errorf("scan root %q is not a directory", opts.Root)
	}

	var (
		records []scanledgerapi.FileRecord
		errs    []ErrorRecord
		seen    = make(map[string]struct{})
	)

	walkErr := filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			// Unreadable directory entry: record and continue (non-fatal).
			rel, relErr := digestid.Canonicalize(opts.Root, path)
			if relErr == nil {
				errs = append(errs, ErrorRecord{CanonicalPath: rel, Err: err})
			}

			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil // never follow symlinks
		}

		canonical, canonErr := digestid.Canonicalize(opts.Root, path)
		if canonErr != nil {
			return nil
		}

		if d.IsDir() {
			if canonical != "." && matchesAny(opts.Ignore, canonical, true) {
				return fs.SkipDir
			}

			return nil
		}

		if !shouldInclude(opts, canonical) {
			return nil
		}

		if _, dup := seen[canonical]; dup {
			return fmt.Errorf("duplicate canonical path encountered: %s", canonical)
		}

		seen[canonical] = struct{}{}

		record, recErr := buildRecord(opts.Root, path, canonical)
		if recErr != nil {
			errs = append(errs, ErrorRecord{CanonicalPath: canonical, Err: recErr})

			return nil
		}

		records = append(records, record)

		return nil
	})
	if walkErr != nil {
		return Result{}, fmt.Errorf("walk %s: %w", opts.Root, walkErr)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CanonicalPath < records[j].CanonicalPath
	})

	return Result{Records: records, Errors: errs}, nil
}

func shouldInclude(opts Options, canonical string) bool {
	if matchesAny(opts.Ignore, canonical, false) {
		return false
	}

	if len(opts.Include) == 0 {
		return true
	}

	return matchesAny(opts.Include, canonical, false)
}

// matchesAny reports whether canonical matches any of the glob patterns.
// When dirHint is true, the match is also attempted against canonical+"/"
// so directory-level ignore patterns like "vendor/" or "node_modules"
// short-circuit traversal early.
func matchesAny(patterns []string, canonical string, dirHint bool) bool {
	for _, p := range patterns {
		p = strings.TrimSuffix(p, "/")

		if ok, _ := filepath.Match(p, canonical); ok {
			return true
		}

		if matchesAnySegment(p, canonical) {
			return true
		}

		if dirHint {
			if ok, _ := filepath.Match(p, canonical+"/"); ok {
				return true
			}
		}
	}

	return false
}

// matchesAnySegment allows a bare pattern (e.g. "node_modules") to match
// any path component, not just a full-path glob.
func matchesAnySegment(pattern, canonical string) bool {
	for _, seg := range strings.Split(canonical, "/") {
		if ok, _ := filepath.Match(pattern, seg); ok {
			return true
		}
	}

	return false
}

func buildRecord(root, absPath, canonical string) (scanledgerapi.FileRecord, error) {
	f, openErr := os.Open(absPath)
	if openErr != nil {
		return scanledgerapi.FileRecord{}, fmt.Errorf("open %s: %w", canonical, openErr)
	}
	defer f.Close()

	info, statErr := f.Stat()
	if statErr != nil {
		return scanledgerapi.FileRecord{}, fmt.Errorf("stat %s: %w", canonical, statErr)
	}

	digest, lineCount, readErr := digestAndCountLines(f)
	if readErr != nil {
		return scanledgerapi.FileRecord{}, fmt.Errorf("read %s: %w", canonical, readErr)
	}

	lang := ClassifyPath(canonical)

	return scanledgerapi.FileRecord{
		CanonicalPath: canonical,
		AbsolutePath:  absPath,
		Digest:        digest,
		SizeBytes:     info.Size(),
		MtimeNS:       info.ModTime().UnixNano(),
		LineCount:     lineCount,
		Language:      lang,
		Cached:        false, // filled in by the cache facade
	}, nil
}
