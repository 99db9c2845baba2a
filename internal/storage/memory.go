package storage

import (
	"context"
	"sync"
)

// Memory implements Store in process memory
type Memory struct {
	mu      sync.RWMutex
	vectors map[string]map[string][]float32
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{vectors: make(map[string]map[string][]float32)}
}

func (m *Memory) Get(ctx context.Context, model string, keys []string) (map[string][]float32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]float32, len(keys))
	byKey := m.vectors[model]
	for _, k := range keys {
		if v, ok := byKey[k]; ok {
			out[k] = append([]float32(nil), v...)
		}
	}
	return out, nil
}

func (m *Memory) Put(ctx context.Context, model string, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKey, ok := m.vectors[model]
	if !ok {
		byKey = make(map[string][]float32, len(entries))
		m.vectors[model] = byKey
	}
	for _, e := range entries {
		byKey[e.Key] = append([]float32(nil), e.Embedding...)
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}
