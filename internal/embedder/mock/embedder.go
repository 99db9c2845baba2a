// Package mock provides a deterministic embedder for tests.
//
// Vectors are bags of hashed character trigrams, so texts that share word
// fragments ("migraine", "migraines") land close together without a model.
package mock

import (
	"context"
	"hash/fnv"
	"strings"
	"sync/atomic"

	"github.com/MereWhiplash/doctor-finder/internal/types"
)

// Dimensions is the length of every vector produced by Embedder
const Dimensions = 256

// Embedder is a test double for embedder.Embedder.
// It is safe for concurrent use.
type Embedder struct {
	// EmbedFunc replaces the default trigram behaviour when set
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)

	storageCalls atomic.Int64
	searchCalls  atomic.Int64
}

// NewEmbedder creates a mock embedder with default deterministic behavior
func NewEmbedder() *Embedder {
	return &Embedder{}
}

func (m *Embedder) Model() string {
	return "mock/trigram"
}

func (m *Embedder) EmbedForStorage(ctx context.Context, text string) ([]float32, error) {
	m.storageCalls.Add(1)
	return m.embed(ctx, text)
}

func (m *Embedder) EmbedForSearch(ctx context.Context, query string) ([]float32, error) {
	m.searchCalls.Add(1)
	return m.embed(ctx, query)
}

// StorageCalls returns how many times EmbedForStorage was called
func (m *Embedder) StorageCalls() int {
	return int(m.storageCalls.Load())
}

// SearchCalls returns how many times EmbedForSearch was called
func (m *Embedder) SearchCalls() int {
	return int(m.searchCalls.Load())
}

func (m *Embedder) embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	if strings.TrimSpace(text) == "" {
		return nil, types.ErrEmptyText
	}
	return Vector(text), nil
}

// Vector returns the trigram vector for text
func Vector(text string) []float32 {
	vec := make([]float32, Dimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		padded := []rune(" " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			h := fnv.New32a()
			h.Write([]byte(string(padded[i : i+3])))
			vec[h.Sum32()%Dimensions]++
		}
	}
	return vec
}
