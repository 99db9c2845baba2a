package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MereWhiplash/doctor-finder/internal/types"
)

func openAIServer(t *testing.T, embedding []float64, gotInput *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req struct {
			Input string `json:"input"`
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if gotInput != nil {
			*gotInput = req.Input
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"model":  req.Model,
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 0, "embedding": embedding},
			},
			"usage": map[string]int{"prompt_tokens": 3, "total_tokens": 3},
		})
	}))
}

func TestOpenAI_Embed(t *testing.T) {
	var input string
	server := openAIServer(t, []float64{0.6, 0.8}, &input)
	defer server.Close()

	emb := NewOpenAI("test-key", "", server.URL+"/v1/")
	vec, err := emb.EmbedForSearch(context.Background(), "chest pain")
	if err != nil {
		t.Fatalf("EmbedForSearch failed: %v", err)
	}

	if len(vec) != 2 || vec[0] != float32(0.6) || vec[1] != float32(0.8) {
		t.Errorf("unexpected embedding %v", vec)
	}
	if input != "chest pain" {
		t.Errorf("expected unprefixed input, got %q", input)
	}
	if emb.Model() != "openai/text-embedding-3-small" {
		t.Errorf("unexpected model id %q", emb.Model())
	}
}

func TestOpenAI_StorageAndSearchMatch(t *testing.T) {
	var input string
	server := openAIServer(t, []float64{1, 0}, &input)
	defer server.Close()

	emb := NewOpenAI("test-key", "text-embedding-3-large", server.URL+"/v1/")
	if _, err := emb.EmbedForStorage(context.Background(), "Neurology migraine"); err != nil {
		t.Fatalf("EmbedForStorage failed: %v", err)
	}
	if input != "Neurology migraine" {
		t.Errorf("expected unprefixed input, got %q", input)
	}
}

func TestOpenAI_EmptyText(t *testing.T) {
	emb := NewOpenAI("test-key", "", "http://localhost:99999/v1/")
	_, err := emb.EmbedForStorage(context.Background(), "")
	if !errors.Is(err, types.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestOpenAI_ZeroVector(t *testing.T) {
	server := openAIServer(t, []float64{0, 0, 0}, nil)
	defer server.Close()

	emb := NewOpenAI("test-key", "", server.URL+"/v1/")
	_, err := emb.EmbedForSearch(context.Background(), "fever")
	if !errors.Is(err, types.ErrDegenerateVector) {
		t.Errorf("expected ErrDegenerateVector, got %v", err)
	}
}

func TestOpenAI_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	emb := NewOpenAI("test-key", "nope", server.URL+"/v1/")
	if _, err := emb.EmbedForSearch(context.Background(), "fever"); err == nil {
		t.Error("expected error on HTTP 400")
	}
}
