package cache

import (
	"sort"

	"github.com/scanledger/scanledger/pkg/scanledgerapi"
)

// Classify compares the current walk's FileRecords against the previous
// run's, by canonical path and digest, producing one DeltaRecord per file
// seen in either set (spec.md §3):
//
//   - Added: present now, absent before.
//   - Removed: present before, absent now.
//   - Changed: present in both, digest differs.
//   - Unchanged: present in both, digest identical.
//
// The result is sorted by canonical path for determinism.
func Classify(previous, current []scanledgerapi.FileRecord) []scanledgerapi.DeltaRecord {
	prevByPath := make(map[string]scanledgerapi.FileRecord, len(previous))
	for _, rec := range previous {
		prevByPath[rec.CanonicalPath] = rec
	}

	currByPath := make(map[string]scanledgerapi.FileRecord, len(current))
	for _, rec := range current {
		currByPath[rec.CanonicalPath] = rec
	}

	seen := make(map[string]struct{}, len(prevByPath)+len(currByPath))

	var deltas []scanledgerapi.DeltaRecord

	for _, rec := range current {
		if _, dup := seen[rec.CanonicalPath]; dup {
			continue
		}

		seen[rec.CanonicalPath] = struct{}{}

		prev, existed := prevByPath[rec.CanonicalPath]

		state := scanledgerapi.DeltaAdded
		if existed {
			if prev.Digest == rec.Digest {
				state = scanledgerapi.DeltaUnchanged
			} else {
				state = scanledgerapi.DeltaChanged
			}
		}

		previousDigest := ""
		if existed {
			previousDigest = prev.Digest
		}

		deltas = append(deltas, scanledgerapi.DeltaRecord{
			CanonicalPath:  rec.CanonicalPath,
			State:          state,
			CurrentDigest:  rec.Digest,
			PreviousDigest: previousDigest,
		})
	}

	for _, prev := range previous {
		if _, dup := seen[prev.CanonicalPath]; dup {
			continue
		}

		seen[prev.CanonicalPath] = struct{}{}

		deltas = append(deltas, scanledgerapi.DeltaRecord{
			CanonicalPath:  prev.CanonicalPath,
			State:          scanledgerapi.DeltaRemoved,
			PreviousDigest: prev.Digest,
		})
	}

	sort.Slice(deltas, func(i, j int) bool {
		return deltas[i].CanonicalPath < deltas[j].CanonicalPath
	})

	return deltas
}
