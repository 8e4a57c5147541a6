// Package cache implements scanledger's content-addressed cache and delta
// engine (spec.md §4.3): per-digest entry storage with atomic updates, and
// classification of the current walk against the prior one.
package cache

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// Codec defines how a cache entry is serialized to and from a byte stream.
// Mirrors the teacher's persist.Codec interface so the cache facade can be
// tested against either codec independently of storage.
type Codec interface {
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
}

// JSONCodec is the plain JSON entry codec.
type JSONCodec struct{}

func (JSONCodec) Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode cache entry: %w", err)
	}

	return nil
}

func (JSONCodec) Decode(r io.Reader, v any) error {
	dec := json.NewDecoder(r)

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("json decode cache entry: %w", err)
	}

	return nil
}

// LZ4Codec wraps another Codec, compressing its output stream with LZ4.
// Entries on disk are therefore JSON-over-LZ4, keeping the cache directory
// small for large trees without giving up human-inspectable content once
// decompressed.
type LZ4Codec struct {
	Inner Codec
}

func NewLZ4Codec(inner Codec) LZ4Codec {
	return LZ4Codec{Inner: inner}
}

func (c LZ4Codec) Encode(w io.Writer, v any) error {
	zw := lz4.NewWriter(w)

	if err := c.Inner.Encode(zw, v); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("lz4 close: %w", err)
	}

	return nil
}

func (c LZ4Codec) Decode(r io.Reader, v any) error {
	zr := lz4.NewReader(r)

	return c.Inner.Decode(zr, v)
}
