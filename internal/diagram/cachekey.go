package diagram

import "github.com/scanledger/scanledger/internal/digestid"

// CacheKey returns the deterministic cache key for one diagram template:
// SHA-256 over (preset, format, theme_id, subgraph_digest), per spec.md
// §4.10.
func CacheKey(preset Preset, format Format, theme Theme, subgraphDigest string) string {
	payload := string(preset) + "\x1f" + string(format) + "\x1f" + string(theme) + "\x1f" + subgraphDigest

	return digestid.DigestBytes([]byte(payload))
}
