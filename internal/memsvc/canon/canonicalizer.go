package canon

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
)

// Source records which cascade step produced a canonical topic.
type Source string

const (
	SourceAliasTable Source = "alias_table"
	SourceEmbedding  Source = "embedding"
	SourceTeacher    Source = "teacher"
	SourceFallback   Source = "fallback"
)

// EmbeddingSimilarityThreshold is the cosine-similarity cutoff
// (normalized to [0,1]) above which an embedding match is accepted
// without invoking the teacher.
const EmbeddingSimilarityThreshold = 0.92

// Result is the outcome of one Canonicalize call.
type Result struct {
	CanonicalTopic string
	Confidence     float64
	Source         Source
}

// Canonicalizer implements the cascade: normalize -> alias table ->
// embedding similarity -> teacher -> fallback. It holds the single
// in-process inflight-dedup map so a burst of identical raw topics only
// ever invokes the teacher once per (normalized string, alias table
// state).
type Canonicalizer struct {
	store    *Store
	index    *aliasIndex
	embedder EmbeddingClient
	teacher  TeacherClient

	mu       sync.Mutex
	inflight map[string]chan struct{}
}

// New constructs a Canonicalizer bound to a persistent alias Store and
// rebuilds the in-memory Aho-Corasick alias index from it.
func New(ctx context.Context, store *Store, embedder EmbeddingClient, teacher TeacherClient) (*Canonicalizer, error) {
	c := &Canonicalizer{
		store:    store,
		index:    newAliasIndex(),
		embedder: embedder,
		teacher:  teacher,
		inflight: make(map[string]chan struct{}),
	}
	aliases, err := store.AllAliases(ctx)
	if err != nil {
		return nil, fmt.Errorf("canon: rebuild alias index: %w", err)
	}
	if err := c.index.rebuild(aliases); err != nil {
		return nil, fmt.Errorf("canon: build alias automaton: %w", err)
	}
	return c, nil
}

// Canonicalize runs the full cascade for one raw topic string. The
// normalize/alias/embedding steps are purely deterministic reads; the
// teacher is invoked at most once per normalized string for the lifetime of this
// Canonicalizer's alias-table state, with concurrent callers for the
// same normalized string coalesced onto a single teacher round-trip.
func (c *Canonicalizer) Canonicalize(ctx context.Context, rawTopic string) (Result, error) {
	normalized := NormalizeTopic(rawTopic)
	if normalized == "" {
		return Result{}, fmt.Errorf("canon: empty topic after normalization")
	}

	if canonical, ok := c.index.lookup(normalized); ok {
		return Result{CanonicalTopic: canonical, Confidence: 1.0, Source: SourceAliasTable}, nil
	}

	embeddings, err := c.store.AllCanonicalEmbeddings(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("canon: load canonical embeddings: %w", err)
	}
	if len(embeddings) > 0 && c.embedder != nil {
		queryVec, err := c.embedder.EmbedQuery(ctx, normalized)
		if err == nil {
			best, bestScore := bestMatch(queryVec, embeddings)
			if best != "" && bestScore >= EmbeddingSimilarityThreshold {
				return Result{CanonicalTopic: best, Confidence: bestScore, Source: SourceEmbedding}, nil
			}
		}
	}

	if c.teacher != nil {
		result, err := c.invokeTeacherOnce(ctx, rawTopic, normalized)
		if err == nil {
			return result, nil
		}
	}

	// Fallback: use the normalized string verbatim at confidence 0.5, and
	// record it so later lookups of the exact same string hit the alias
	// table instead of re-running the cascade.
	entry := Entry{CanonicalTopic: normalized, Aliases: nil, CreatedBy: "fallback", Confidence: 0.5}
	if putErr := c.store.Put(ctx, entry); putErr == nil {
		_ = c.index.add(normalized, normalized)
	}
	return Result{CanonicalTopic: normalized, Confidence: 0.5, Source: SourceFallback}, nil
}

// invokeTeacherOnce coalesces concurrent callers for the same
// normalized topic onto a single in-flight teacher call.
func (c *Canonicalizer) invokeTeacherOnce(ctx context.Context, rawTopic, normalized string) (Result, error) {
	c.mu.Lock()
	if ch, ok := c.inflight[normalized]; ok {
		c.mu.Unlock()
		<-ch
		if canonical, ok := c.index.lookup(normalized); ok {
			return Result{CanonicalTopic: canonical, Confidence: 1.0, Source: SourceAliasTable}, nil
		}
		return Result{}, fmt.Errorf("canon: coalesced teacher call produced no alias entry")
	}
	done := make(chan struct{})
	c.inflight[normalized] = done
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, normalized)
		c.mu.Unlock()
		close(done)
	}()

	resp, err := c.teacher.CanonicalizeTopic(ctx, rawTopic, normalized)
	if err != nil {
		return Result{}, fmt.Errorf("canon: teacher invocation: %w", err)
	}
	canonicalTopic := NormalizeTopic(resp.CanonicalTopic)
	if canonicalTopic == "" {
		canonicalTopic = normalized
	}

	var embedding []float32
	if c.embedder != nil {
		if vec, embErr := c.embedder.EmbedQuery(ctx, canonicalTopic); embErr == nil {
			embedding = vec
		}
	}

	entry := Entry{
		CanonicalTopic: canonicalTopic,
		Aliases:        dedupeAliases(append(resp.Aliases, normalized)),
		Embedding:      embedding,
		CreatedBy:      "teacher",
		Confidence:     1.0,
	}
	if err := c.store.Put(ctx, entry); err != nil {
		return Result{}, fmt.Errorf("canon: persist teacher result: %w", err)
	}

	full := c.index.all()
	full[canonicalTopic] = canonicalTopic
	for _, a := range entry.Aliases {
		full[a] = canonicalTopic
	}
	if err := c.index.rebuild(full); err != nil {
		return Result{}, fmt.Errorf("canon: rebuild alias automaton: %w", err)
	}

	return Result{CanonicalTopic: canonicalTopic, Confidence: 1.0, Source: SourceTeacher}, nil
}

func dedupeAliases(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, a := range in {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

// bestMatch finds the canonical topic whose stored embedding has the
// highest cosine similarity to queryVec, normalized to [0,1].
func bestMatch(queryVec []float32, embeddings map[string][]float32) (string, float64) {
	var best string
	var bestScore float64 = -1
	for topic, vec := range embeddings {
		score := cosineSimilarityUnit(queryVec, vec)
		if score > bestScore {
			bestScore = score
			best = topic
		}
	}
	return best, bestScore
}

// cosineSimilarityUnit computes cosine similarity then rescales from
// [-1,1] to [0,1], matching the Vector Index's inner-product-to-score
// convention so both components share one similarity scale.
func cosineSimilarityUnit(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (cos + 1) / 2
}
