package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// Bundle is the single normalized metrics document spec.md §4.11 produces,
// keyed identically to NormalizedMetrics so its JSON encoding inherits
// encoding/json's struct field declaration order (tests, coverage, lint,
// security).
type Bundle struct {
	scanledgerapi.NormalizedMetrics
}

// NewBundle validates and wraps m.
func NewBundle(m scanledgerapi.NormalizedMetrics) (Bundle, error) {
	if err := Validate(m); err != nil {
		return Bundle{}, err
	}

	return Bundle{NormalizedMetrics: m}, nil
}

// Encode renders the bundle as stable-keyed JSON (UTF-8, LF, keys in
// struct field declaration order).
func (b Bundle) Encode() ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(b.NormalizedMetrics); err != nil {
		return nil, fmt.Errorf("encode metrics bundle: %w", err)
	}

	out := bytes.TrimRight(buf.Bytes(), "\n")
	out = append(out, '\n')

	return out, nil
}
