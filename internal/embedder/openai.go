package embedder

import (
	"context"
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data
var ErrNoEmbeddingInResponse = errors.New("openai: no embedding in response")

// OpenAI implements Embedder using the OpenAI embeddings API.
// Storage and search embeddings are identical for OpenAI models.
type OpenAI struct {
	sdk   openaisdk.Client
	model string
}

// NewOpenAI creates a new OpenAI embedder. An empty model selects
// text-embedding-3-small; an empty baseURL uses the public API.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	if model == "" {
		model = string(openaisdk.EmbeddingModelTextEmbedding3Small)
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAI{
		sdk:   openaisdk.NewClient(opts...),
		model: model,
	}
}

// Model returns the configured OpenAI model name
func (o *OpenAI) Model() string {
	return "openai/" + o.model
}

func (o *OpenAI) embed(ctx context.Context, text string) ([]float32, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}

	resp, err := o.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: param.NewOpt(text),
		},
		Model:          openaisdk.EmbeddingModel(o.model),
		EncodingFormat: openaisdk.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	emb := resp.Data[0].Embedding
	out := make([]float32, len(emb))
	for i := range emb {
		out[i] = float32(emb[i])
	}

	if err := checkVector(out); err != nil {
		return nil, err
	}

	return out, nil
}

func (o *OpenAI) EmbedForStorage(ctx context.Context, text string) ([]float32, error) {
	return o.embed(ctx, text)
}

func (o *OpenAI) EmbedForSearch(ctx context.Context, query string) ([]float32, error) {
	return o.embed(ctx, query)
}
