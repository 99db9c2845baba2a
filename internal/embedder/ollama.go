package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultOllamaModel is the Ollama model used when none is configured
const DefaultOllamaModel = "nomic-embed-text"

// Ollama implements Embedder using Ollama API
type Ollama struct {
	baseURL string
	model   string
	http    *http.Client
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewOllama creates a new Ollama embedder
func NewOllama(baseURL, model string) *Ollama {
	return &Ollama{
		baseURL: baseURL,
		model:   model,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Model returns the configured Ollama model name
func (o *Ollama) Model() string {
	return "ollama/" + o.model
}

func (o *Ollama) embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embeddingRequest{
		Model:  o.model,
		Prompt: text,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/embeddings", o.baseURL), bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if err := checkVector(embResp.Embedding); err != nil {
		return nil, err
	}

	return embResp.Embedding, nil
}

func (o *Ollama) EmbedForStorage(ctx context.Context, text string) ([]float32, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}
	if o.model == DefaultOllamaModel {
		return o.embed(ctx, "search_document: "+text)
	}
	return o.embed(ctx, text)
}

func (o *Ollama) EmbedForSearch(ctx context.Context, query string) ([]float32, error) {
	if err := checkText(query); err != nil {
		return nil, err
	}
	if o.model == DefaultOllamaModel {
		return o.embed(ctx, "search_query: "+query)
	}
	return o.embed(ctx, query)
}
