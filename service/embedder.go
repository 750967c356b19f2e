package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"

	"github.com/google/generative-ai-go/genai"
	"github.com/ollama/ollama/api"
)

// ErrEmbeddingFailed is returned when the embedding service answers without vectors
var ErrEmbeddingFailed = errors.New("failed to generate embedding")

// Embedder maps text to vectors. Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// OllamaEmbedder embeds through an Ollama server (nomic-embed-text by default)
type OllamaEmbedder struct {
	client *api.Client
	model  string
}

// NewOllamaEmbedder creates an embedder for the Ollama server at baseURL
func NewOllamaEmbedder(baseURL, model string, httpClient *http.Client) (*OllamaEmbedder, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ollama url: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaEmbedder{
		client: api.NewClient(u, httpClient),
		model:  model,
	}, nil
}

// Embed embeds a single text through /api/embeddings. The vector is returned as the model
// produced it; /api/embed would L2-normalize it and shrink every distance below 4.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed with ollama: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, ErrEmbeddingFailed
	}

	vector := make([]float32, len(resp.Embedding))
	for i, x := range resp.Embedding {
		vector[i] = float32(x)
	}
	return vector, nil
}

// EmbedBatch embeds texts one request at a time
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

// GeminiEmbedder embeds through the Gemini embedding API. Its vectors are unit length.
type GeminiEmbedder struct {
	documents *genai.EmbeddingModel
	queries   *genai.EmbeddingModel
	dims      int
}

// NewGeminiEmbedder creates an embedder on an initialized Gemini client. Documents and
// queries are embedded with their respective retrieval task types. Vectors longer than
// dims are truncated and renormalized; dims <= 0 keeps the model's full output.
func NewGeminiEmbedder(client *genai.Client, model string, dims int) *GeminiEmbedder {
	documents := client.EmbeddingModel(model)
	documents.TaskType = genai.TaskTypeRetrievalDocument

	queries := client.EmbeddingModel(model)
	queries.TaskType = genai.TaskTypeRetrievalQuery

	return &GeminiEmbedder{documents: documents, queries: queries, dims: dims}
}

// Embed embeds a search query
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := e.queries.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to embed with gemini: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, ErrEmbeddingFailed
	}
	return fitDimensions(res.Embedding.Values, e.dims), nil
}

// EmbedBatch embeds documents in one batch request
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := e.documents.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	res, err := e.documents.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to batch embed with gemini: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", ErrEmbeddingFailed, len(texts), len(res.Embeddings))
	}

	vectors := make([][]float32, len(res.Embeddings))
	for i, emb := range res.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, ErrEmbeddingFailed
		}
		vectors[i] = fitDimensions(emb.Values, e.dims)
	}
	return vectors, nil
}

// fitDimensions shortens a Matryoshka embedding to dims values and restores unit length
func fitDimensions(v []float32, dims int) []float32 {
	if dims <= 0 || len(v) <= dims {
		return v
	}

	out := make([]float32, dims)
	copy(out, v[:dims])

	var norm float64
	for _, x := range out {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}
	return out
}
