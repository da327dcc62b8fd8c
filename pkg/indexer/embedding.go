package indexer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nlweb-ai/schemacrawler/pkg/httpfetch"
)

// EmbeddingProvider turns text into vectors. AzureOpenAIEmbedder is the
// production implementation; tests use a StaticEmbedder.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// AzureOpenAIEmbedder calls an Azure OpenAI embeddings deployment over
// its REST API, a direct port of embedding_provider/azure_oai_embedding.py's
// AzureOpenAIEmbedding (reached via vector_db.py's EmbeddingWrapper).
type AzureOpenAIEmbedder struct {
	client     *httpfetch.Client
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
}

// NewAzureOpenAIEmbedder builds an embedder against one Azure OpenAI
// deployment (the AZURE_OPENAI_ENDPOINT/_KEY/_EMBEDDING_DEPLOYMENT
// config keys).
func NewAzureOpenAIEmbedder(client *httpfetch.Client, endpoint, apiKey, deployment string) *AzureOpenAIEmbedder {
	return &AzureOpenAIEmbedder{
		client:     client,
		endpoint:   endpoint,
		apiKey:     apiKey,
		deployment: deployment,
		apiVersion: "2023-05-15",
	}
}

type embeddingsRequest struct {
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (e *AzureOpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	truncated := make([]string, len(texts))
	for i, t := range texts {
		if len(t) > maxEmbeddingChars {
			t = t[:maxEmbeddingChars]
		}
		truncated[i] = t
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s", e.endpoint, e.deployment, e.apiVersion)
	payload, err := json.Marshal(embeddingsRequest{Input: truncated})
	if err != nil {
		return nil, fmt.Errorf("indexer: marshal embeddings request: %w", err)
	}

	body, status, err := e.client.Do(ctx, "POST", url, "application/json", payload, map[string]string{
		"api-key": e.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("indexer: embeddings request: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("indexer: embeddings request failed with status %d: %s", status, string(body))
	}

	var parsed embeddingsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("indexer: decode embeddings response: %w", err)
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	return out, nil
}

// StaticEmbedder returns a fixed-dimension zero vector for every text,
// matching vector_db.py's EmbeddingWrapper fallback when no provider
// is configured. Used in tests and as the default when no Azure OpenAI
// credentials are set.
type StaticEmbedder struct {
	Dimensions int
}

func (e *StaticEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	dim := e.Dimensions
	if dim == 0 {
		dim = 1536
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, dim)
	}
	return out, nil
}
