package embedder

import (
	"context"
	"log/slog"
	"sync"

	"github.com/MereWhiplash/doctor-finder/internal/storage"
)

// Cached wraps an Embedder so profile embeddings survive restarts.
// Only EmbedForStorage is cached; queries always reach the model.
// Store failures are logged and fall through to the wrapped embedder.
//
// Between Prefetch and Flush the store is read once and written once:
// lookups are served from the prefetched set and new vectors are buffered.
// Outside a batch every call does its own Get and Put.
type Cached struct {
	inner  Embedder
	store  storage.Store
	logger *slog.Logger

	mu       sync.Mutex
	batching bool
	hits     map[string][]float32
	pending  []storage.Entry
}

// NewCached creates a caching embedder backed by store
func NewCached(inner Embedder, store storage.Store, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{inner: inner, store: store, logger: logger}
}

func (c *Cached) Model() string {
	return c.inner.Model()
}

// Prefetch loads the cached embeddings for texts in a single Get and starts
// a batch. If the store fails, calls fall back to per-text lookups.
func (c *Cached) Prefetch(ctx context.Context, texts []string) {
	seen := make(map[string]struct{}, len(texts))
	keys := make([]string, 0, len(texts))
	for _, text := range texts {
		key := storage.Key(text)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	model := c.inner.Model()
	hits, err := c.store.Get(ctx, model, keys)
	if err != nil {
		c.logger.WarnContext(ctx, "embedding cache prefetch failed", "model", model, "error", err)
		return
	}

	c.mu.Lock()
	c.batching = true
	c.hits = hits
	c.pending = nil
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "embedding cache prefetched", "model", model, "keys", len(keys), "hits", len(hits))
}

// Flush writes the vectors embedded since Prefetch in a single Put and ends
// the batch.
func (c *Cached) Flush(ctx context.Context) {
	c.mu.Lock()
	pending := c.pending
	c.batching = false
	c.hits = nil
	c.pending = nil
	c.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	model := c.inner.Model()
	if err := c.store.Put(ctx, model, pending); err != nil {
		c.logger.WarnContext(ctx, "embedding cache write failed", "model", model, "entries", len(pending), "error", err)
	}
}

func (c *Cached) EmbedForStorage(ctx context.Context, text string) ([]float32, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}

	key := storage.Key(text)
	model := c.inner.Model()

	c.mu.Lock()
	batching := c.batching
	vec, hit := c.hits[key]
	c.mu.Unlock()

	if batching {
		if hit && checkVector(vec) == nil {
			return vec, nil
		}
	} else {
		cached, err := c.store.Get(ctx, model, []string{key})
		if err != nil {
			c.logger.WarnContext(ctx, "embedding cache lookup failed", "model", model, "error", err)
		} else if vec, ok := cached[key]; ok && checkVector(vec) == nil {
			return vec, nil
		}
	}

	vec, err := c.inner.EmbedForStorage(ctx, text)
	if err != nil {
		return nil, err
	}

	entry := storage.Entry{Key: key, Embedding: vec}

	c.mu.Lock()
	if c.batching {
		c.pending = append(c.pending, entry)
		c.mu.Unlock()
		return vec, nil
	}
	c.mu.Unlock()

	if err := c.store.Put(ctx, model, []storage.Entry{entry}); err != nil {
		c.logger.WarnContext(ctx, "embedding cache write failed", "model", model, "error", err)
	}

	return vec, nil
}

func (c *Cached) EmbedForSearch(ctx context.Context, query string) ([]float32, error) {
	return c.inner.EmbedForSearch(ctx, query)
}
