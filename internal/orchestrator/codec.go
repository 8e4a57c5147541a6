package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/scanledger/scanledger/internal/config"
	"github.com/scanledger/scanledger/internal/digestid"
)

// encodeStableJSON renders v as UTF-8, LF-terminated, indented JSON with
// HTML-escaping disabled — the byte-stability convention every serializer
// in this module follows (internal/graph, internal/metrics), required by
// the determinism testable property (spec.md §8).
func encodeStableJSON(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	out := bytes.TrimRight(buf.Bytes(), "\n")
	out = append(out, '\n')

	return out, nil
}

// configFingerprint digests cfg's resolved values, used both as the
// manifest's resolved_config_digest and as the cache run key (spec.md
// §4.3's "configuration fingerprint" — a change in bundle budgets, graph
// scope, or gate thresholds must invalidate the path index).
func configFingerprint(cfg *config.Config) string {
	encoded, err := json.Marshal(cfg)
	if err != nil {
		// cfg is a plain value struct with no cyclic or unmarshalable
		// fields; Marshal cannot fail here.
		return digestid.DigestBytes([]byte(fmt.Sprintf("%+v", cfg)))
	}

	return digestid.DigestBytes(encoded)
}
