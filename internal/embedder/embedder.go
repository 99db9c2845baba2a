package embedder

import (
	"context"
	"fmt"
	"strings"

	"github.com/MereWhiplash/doctor-finder/internal/types"
)

// Embedder generates vector embeddings for text.
// Both methods must use the same model so their vectors are comparable.
type Embedder interface {
	// EmbedForStorage creates an embedding optimized for document storage
	EmbedForStorage(ctx context.Context, text string) ([]float32, error)
	// EmbedForSearch creates an embedding optimized for search queries
	EmbedForSearch(ctx context.Context, query string) ([]float32, error)
	// Model identifies the embedding model, used to key cached vectors
	Model() string
}

// Config holds embedder configuration
type Config struct {
	Provider string // "ollama", "openai"

	// Ollama
	OllamaURL string

	// OpenAI
	OpenAIKey     string
	OpenAIBaseURL string

	// Model overrides the provider default when set
	Model string
}

// New creates an Embedder implementation based on config
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "", "ollama":
		if cfg.OllamaURL == "" {
			return nil, fmt.Errorf("ollama URL is required")
		}
		model := cfg.Model
		if model == "" {
			model = DefaultOllamaModel
		}
		return NewOllama(cfg.OllamaURL, model), nil

	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai API key is required")
		}
		return NewOpenAI(cfg.OpenAIKey, cfg.Model, cfg.OpenAIBaseURL), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

func checkText(text string) error {
	if strings.TrimSpace(text) == "" {
		return types.ErrEmptyText
	}
	return nil
}

// checkVector rejects vectors that cannot take part in cosine similarity
func checkVector(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", types.ErrDegenerateVector)
	}
	for _, v := range vec {
		if v != 0 {
			return nil
		}
	}
	return fmt.Errorf("%w: all components are zero", types.ErrDegenerateVector)
}
