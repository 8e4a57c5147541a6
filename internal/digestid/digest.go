// Package digestid implements scanledger's digest and identifier service
// (spec.md §4.1): content hashing, canonical path normalization, and
// stable node/edge ID derivation.
package digestid

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// DefaultChunkSize is the streaming read chunk size used by Digest.
const DefaultChunkSize = 64 * 1024

// fieldSeparator is the 0x1F (unit separator) byte used to join ID fields,
// matching spec.md §4.1's exact construction.
const fieldSeparator = byte(0x1F)

// Digest streams r in DefaultChunkSize chunks and returns the SHA-256
// hex digest of its contents, never buffering the whole input.
func Digest(r io.Reader) (string, error) {
	h := sha256.New()

	buf := bufio.NewReaderSize(r, DefaultChunkSize)

	_, err := io.Copy(h, buf)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestBytes is a convenience wrapper for in-memory content.
func DigestBytes(b []byte) string {
	sum := sha256.Sum256(b)

	return hex.EncodeToString(sum[:])
}

// Canonicalize returns path relative to root, using forward slashes
// regardless of platform, with any Windows drive letter lowercased (spec
// §4.1: "lowercased only on drive letters (platform-independent)").
//
// Per the Open Question in spec.md §9 ("exact NFC normalization rule is
// underspecified"), scanledger assumes the host filesystem already
// returns NFC-normalized paths — true on Linux and Windows. The one
// documented exception is macOS HFS+, which returns NFD; scanledger does
// not special-case it, and this is recorded as the chosen determinism
// rule in DESIGN.md rather than guessed at silently.
func Canonicalize(root, path string) (string, error) {
	root = lowercaseDriveLetter(root)
	path = lowercaseDriveLetter(path)

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("canonicalize %q relative to %q: %w", path, root, err)
	}

	return filepath.ToSlash(rel), nil
}

// lowercaseDriveLetter lowercases a leading "C:"-style Windows drive
// letter; everything else in the path is left untouched. A no-op on any
// path without one, including every POSIX path.
func lowercaseDriveLetter(path string) string {
	if len(path) < 2 || path[1] != ':' {
		return path
	}

	c := path[0]
	if c < 'A' || c > 'Z' {
		return path
	}

	return string(c-'A'+'a') + path[1:]
}

// NodeID derives a deterministic 16-hex-char node identifier from a kind
// and scope path, per spec.md §4.1.
func NodeID(kind, scopePath string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{fieldSeparator})
	h.Write([]byte(scopePath))

	return hex.EncodeToString(h.Sum(nil))[:16]
}

// EdgeID derives a deterministic 16-hex-char edge identifier from a
// source node ID, edge kind, and target node ID, per spec.md §4.1.
func EdgeID(sourceID, kind, targetID string) string {
	h := sha256.New()
	h.Write([]byte(sourceID))
	h.Write([]byte{fieldSeparator})
	h.Write([]byte(kind))
	h.Write([]byte{fieldSeparator})
	h.Write([]byte(targetID))

	return hex.EncodeToString(h.Sum(nil))[:16]
}

// IsForwardSlashed reports whether path uses only forward slashes, a
// sanity check used by tests.
func IsForwardSlashed(path string) bool {
	return !strings.Contains(path, "\\")
}
