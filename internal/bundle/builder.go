package bundle

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// IndexEntry is one row of a bundle sequence's JSON sidecar index.
type IndexEntry struct {
	UnitPath    string `json:"unit_path"`
	ByteOffset  int    `json:"byte_offset"`
	LineOffset  int    `json:"line_offset"`
	LengthBytes int    `json:"length_bytes"`
	LengthLines int    `json:"length_lines"`
	Oversized   bool   `json:"oversized,omitempty"`
}

// Bundle is one sequence of a preset's bundle output.
type Bundle struct {
	Preset   Preset
	Sequence int
	Body     []byte
	Index    []IndexEntry
}

// ContentReader reads a unit's raw content given its absolute path.
// Overridable in tests; defaults to os.ReadFile.
type ContentReader func(absPath string) ([]byte, error)

// Options configures the bundle builder.
type Options struct {
	MaxBundleBytes int
	MaxBundleLines int
	ReadContent    ContentReader
}

const unitSeparator = "---\n"

// Build selects records matching preset, orders them lexicographically by
// canonical path, and splits them into one or more Bundles obeying the
// configured byte/line budgets independently. A unit that alone exceeds a
// budget is still emitted, alone, flagged Oversized, in its own sequence.
func Build(preset Preset, records []scanledgerapi.FileRecord, opts Options) ([]Bundle, error) {
	if opts.ReadContent == nil {
		opts.ReadContent = os.ReadFile
	}

	selected := make([]scanledgerapi.FileRecord, 0, len(records))

	for _, rec := range records {
		if Predicate(preset, rec) {
			selected = append(selected, rec)
		}
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].CanonicalPath < selected[j].CanonicalPath
	})

	var bundles []Bundle

	var (
		bodyBuilder strings.Builder
		index       []IndexEntry
		byteCount   int
		lineCount   int
		seq         int
	)

	flush := func() {
		if bodyBuilder.Len() == 0 && len(index) == 0 {
			return
		}

		bundles = append(bundles, Bundle{
			Preset:   preset,
			Sequence: seq,
			Body:     []byte(bodyBuilder.String()),
			Index:    index,
		})
		seq++
		bodyBuilder.Reset()
		index = nil
		byteCount = 0
		lineCount = 0
	}

	for _, rec := range selected {
		unit, unitLines, err := renderUnit(rec, opts.ReadContent)
		if err != nil {
			return nil, fmt.Errorf("render bundle unit %s: %w", rec.CanonicalPath, err)
		}

		unitBytes := len(unit)
		oversized := (opts.MaxBundleBytes > 0 && unitBytes > opts.MaxBundleBytes) ||
			(opts.MaxBundleLines > 0 && unitLines > opts.MaxBundleLines)

		exceedsIfAdded := bodyBuilder.Len() > 0 && !oversized &&
			((opts.MaxBundleBytes > 0 && byteCount+unitBytes > opts.MaxBundleBytes) ||
				(opts.MaxBundleLines > 0 && lineCount+unitLines > opts.MaxBundleLines))

		if exceedsIfAdded {
			flush()
		}

		if oversized && bodyBuilder.Len() > 0 {
			flush()
		}

		entry := IndexEntry{
			UnitPath:    rec.CanonicalPath,
			ByteOffset:  byteCount,
			LineOffset:  lineCount,
			LengthBytes: unitBytes,
			LengthLines: unitLines,
			Oversized:   oversized,
		}

		bodyBuilder.WriteString(unit)
		index = append(index, entry)
		byteCount += unitBytes
		lineCount += unitLines

		if oversized {
			flush()
		}
	}

	flush()

	if len(bundles) == 0 {
		// Empty-tree edge case (spec.md §8): still emit one header-only
		// bundle sequence per preset.
		bundles = append(bundles, Bundle{Preset: preset, Sequence: 0})
	}

	return bundles, nil
}

// renderUnit produces one unit's full text (header + separator + content)
// and its line count.
func renderUnit(rec scanledgerapi.FileRecord, read ContentReader) (string, int, error) {
	hdr, err := header(rec)
	if err != nil {
		return "", 0, fmt.Errorf("build header: %w", err)
	}

	content, err := read(rec.AbsolutePath)
	if err != nil {
		return "", 0, fmt.Errorf("read content: %w", err)
	}

	normalized := normalizeContent(content)

	var b strings.Builder
	b.Write(hdr)
	b.WriteByte('\n')
	b.WriteString(unitSeparator)
	b.WriteString(normalized)

	if !strings.HasSuffix(normalized, "\n") {
		b.WriteByte('\n')
	}

	text := b.String()

	return text, strings.Count(text, "\n"), nil
}

// normalizeContent enforces LF line endings and strips trailing whitespace
// from each line, per spec.md §4.4's determinism requirement.
func normalizeContent(content []byte) string {
	s := strings.ReplaceAll(string(content), "\r\n", "\n")
	lines := strings.Split(s, "\n")

	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	return strings.Join(lines, "\n")
}
