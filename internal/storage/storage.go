// Package storage persists profile embeddings between restarts so the
// roster does not have to be re-embedded on every startup. It is a cache:
// profiles and their order always come from the roster itself.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Entry is one cached embedding, keyed by the hash of its source text
type Entry struct {
	Key       string
	Embedding []float32
}

// Store defines the interface for embedding persistence
type Store interface {
	// Get returns the cached embeddings for the given keys. Missing keys are absent from the map.
	Get(ctx context.Context, model string, keys []string) (map[string][]float32, error)
	// Put inserts or replaces embeddings for a model
	Put(ctx context.Context, model string, entries []Entry) error
	Close() error
}

// Key derives the cache key for a profile's embedding text
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
