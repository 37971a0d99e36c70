package canon

import "context"

// EmbeddingClient is the embedding model's query-embedding surface,
// used by the Canonicalizer's embedding-similarity step.
type EmbeddingClient interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// TeacherResponse is the JSON shape the teacher (large) LM returns for a
// canonicalization request.
type TeacherResponse struct {
	CanonicalTopic string   `json:"canonical_topic"`
	Aliases        []string `json:"aliases"`
	Reasoning      string   `json:"reasoning,omitempty"`
}

// TeacherClient invokes the external large LM for low-confidence topic
// canonicalization.
type TeacherClient interface {
	CanonicalizeTopic(ctx context.Context, rawTopic, normalizedTopic string) (*TeacherResponse, error)
}
