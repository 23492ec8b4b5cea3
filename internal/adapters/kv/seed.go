package kv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Writer is implemented by backends that can be seeded.
type Writer interface {
	Put(ctx context.Context, key string, value, metadata []byte) error
}

// SeedEntry is one record of a seed document. Value and Metadata are kept
// as generic trees and re-encoded as JSON, the form the namespace stores.
type SeedEntry struct {
	Key      string         `koanf:"key"`
	Value    map[string]any `koanf:"value"`
	Metadata map[string]any `koanf:"metadata"`
}

// ReadSeed parses a YAML (or JSON) seed file of the form
//
//	entries:
//	  - key: linux-ubuntu22
//	    value: {status: Success, url: https://example.com/ubuntu.img}
//	    metadata: {release: "22.04", arch: x86_64, filename: ubuntu.img}
func ReadSeed(path string) ([]SeedEntry, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSeed, path, err)
	}
	var entries []SeedEntry
	if err := k.UnmarshalWithConf("entries", &entries, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSeed, path, err)
	}
	for i, e := range entries {
		if e.Key == "" {
			return nil, fmt.Errorf("%w: %s: entry %d has no key", ErrSeed, path, i)
		}
	}
	return entries, nil
}

// Seed writes entries into w. Entries without a value are stored with
// metadata only, which listing still sees and point reads treat as absent.
func Seed(ctx context.Context, w Writer, entries []SeedEntry) (int, error) {
	n := 0
	for _, e := range entries {
		value, err := encodeTree(e.Value)
		if err != nil {
			return n, fmt.Errorf("%w: %s value: %w", ErrSeed, e.Key, err)
		}
		metadata, err := encodeTree(e.Metadata)
		if err != nil {
			return n, fmt.Errorf("%w: %s metadata: %w", ErrSeed, e.Key, err)
		}
		if err := w.Put(ctx, e.Key, value, metadata); err != nil {
			return n, fmt.Errorf("%w: %s: %w", ErrSeed, e.Key, err)
		}
		n++
	}
	return n, nil
}

// SeedFile reads path and seeds w with its entries.
func SeedFile(ctx context.Context, w Writer, path string) (int, error) {
	entries, err := ReadSeed(path)
	if err != nil {
		return 0, err
	}
	return Seed(ctx, w, entries)
}

func encodeTree(tree map[string]any) ([]byte, error) {
	if tree == nil {
		return nil, nil
	}
	return json.Marshal(tree)
}
