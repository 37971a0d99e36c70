package llmclient

import (
	"context"
	"fmt"
	"math"
	"time"
)

type embedTextsRequest struct {
	Texts []string `json:"texts"`
}

type embedTextsResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

type embedQueryRequest struct {
	Text string `json:"text"`
}

type embedQueryResponse struct {
	Vector []float32 `json:"vector"`
}

// EmbeddingClient calls the external embedding model's embed_texts and
// embed_query endpoints. Results are L2-normalized here before being
// returned, so everything downstream stores and searches unit vectors.
type EmbeddingClient struct {
	http    HTTPClient
	url     string
	timeout time.Duration
	dim     int
}

func NewEmbeddingClient(client HTTPClient, cfg Config, dim int) *EmbeddingClient {
	return &EmbeddingClient{http: client, url: cfg.EmbeddingURL, timeout: cfg.Timeout, dim: dim}
}

// EmbedTexts embeds a batch of chunk texts.
func (c *EmbeddingClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var resp embedTextsResponse
	if err := postJSON(ctx, c.http, c.url, c.timeout, embedTextsRequest{Texts: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Vectors) != len(texts) {
		return nil, fmt.Errorf("llmclient: embed_texts returned %d vectors for %d texts", len(resp.Vectors), len(texts))
	}
	for i := range resp.Vectors {
		if err := c.validateDim(resp.Vectors[i]); err != nil {
			return nil, err
		}
		L2Normalize(resp.Vectors[i])
	}
	return resp.Vectors, nil
}

// EmbedQuery embeds a single query string; it implements
// canon.EmbeddingClient. The pipeline's Embedder uses EmbedTexts.
func (c *EmbeddingClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var resp embedQueryResponse
	if err := postJSON(ctx, c.http, c.url, c.timeout, embedQueryRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	if err := c.validateDim(resp.Vector); err != nil {
		return nil, err
	}
	L2Normalize(resp.Vector)
	return resp.Vector, nil
}

func (c *EmbeddingClient) validateDim(vec []float32) error {
	if c.dim > 0 && len(vec) != c.dim {
		return fmt.Errorf("llmclient: embedding dimension mismatch: got %d, want %d", len(vec), c.dim)
	}
	return nil
}

// L2Normalize normalizes vec in place to unit length. A zero vector is left unchanged.
func L2Normalize(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sumSq))
	for i := range vec {
		vec[i] *= norm
	}
}
