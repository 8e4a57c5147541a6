package bundle

import (
	"encoding/json"
	"time"

	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// header renders a unit's header as a single-line, key-sorted JSON object.
// encoding/json sorts map[string]any keys alphabetically on marshal, which
// is what spec.md §4.4 requires ("exact fields, key-sorted"); a struct
// would instead emit fields in declaration order, so the header is built
// as a map rather than a typed struct.
func header(rec scanledgerapi.FileRecord) ([]byte, error) {
	synopsis := ""
	if rec.Synopsis != nil {
		synopsis = *rec.Synopsis
	}

	fields := map[string]any{
		"path":         rec.CanonicalPath,
		"digest":       rec.Digest,
		"size":         rec.SizeBytes,
		"lines":        rec.LineCount,
		"language":     rec.Language,
		"mtime_utc":    time.Unix(0, rec.MtimeNS).UTC().Format(time.RFC3339),
		"license_hint": rec.LicenseHint,
		"synopsis":     synopsis,
	}

	return json.Marshal(fields)
}
