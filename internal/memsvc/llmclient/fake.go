package llmclient

import (
	"context"
	"crypto/sha256"

	"github.com/kittclouds/memsvc/internal/memsvc/canon"
)

// FakeEmbedder is a deterministic embedding stand-in for tests and batch
// tools. It derives a reproducible unit vector from the
// input text's SHA-256 hash rather than returning random noise, so the
// same text always embeds to the same vector across test runs.
type FakeEmbedder struct {
	Dim int
}

func (f *FakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return deterministicVector(text, f.dim()), nil
}

func (f *FakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = deterministicVector(t, f.dim())
	}
	return out, nil
}

func (f *FakeEmbedder) dim() int {
	if f.Dim > 0 {
		return f.Dim
	}
	return 1024
}

func deterministicVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := sha256.Sum256([]byte(text))
	for i := 0; i < dim; i++ {
		// Cycle through the 32-byte digest, mixing in the index so
		// successive components aren't simple repeats of the hash.
		b := seed[i%len(seed)]
		mixed := uint32(b) ^ uint32(i)*2654435761
		vec[i] = float32(int32(mixed)) / float32(1<<31)
	}
	L2Normalize(vec)
	return vec
}

// FakeTeacher is a deterministic canon.TeacherClient stand-in: it treats
// the normalized topic itself as canonical and reports the raw topic as
// the sole alias, letting canonicalization tests exercise the teacher
// code path without a live LM.
type FakeTeacher struct{}

func (FakeTeacher) CanonicalizeTopic(_ context.Context, rawTopic, normalizedTopic string) (*canon.TeacherResponse, error) {
	return &canon.TeacherResponse{
		CanonicalTopic: normalizedTopic,
		Aliases:        []string{rawTopic},
		Reasoning:      "fake teacher: normalized form used verbatim",
	}, nil
}
