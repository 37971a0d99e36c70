package vectorindex

import (
	"context"
	"fmt"

	"github.com/kittclouds/memsvc/internal/memsvc/facts"
)

// DurableSource is the read surface the rebuild and brute-force fallback
// paths need from the Fact Store's durable embedding table.
// Satisfied by *facts.Store.
type DurableSource interface {
	AllEmbeddings(ctx context.Context, projectID string) ([]facts.EmbeddingRow, error)
}

func toMetadata(row facts.EmbeddingRow) Metadata {
	return Metadata{
		EmbeddingID: row.EmbeddingID,
		ChunkID:     row.ChunkID,
		SourceID:    row.Chunk.SourceID,
		ProjectID:   row.ProjectID,
		ChatID:      row.Chunk.ChatID,
		MessageUUID: row.Chunk.MessageUUID,
		FilePath:    row.Chunk.FilePath,
		ChunkIndex:  row.Chunk.ChunkIndex,
		StartChar:   row.Chunk.StartChar,
		EndChar:     row.Chunk.EndChar,
		Text:        row.Chunk.Text,
	}
}

// Rebuild loads every durable embedding across all projects (projectID
// = "") and adds them to idx in batches. Intended to run as a
// background goroutine so serving can begin before it completes; the
// caller is responsible for launching it with `go`.
func Rebuild(ctx context.Context, idx *Index, source DurableSource) error {
	rows, err := source.AllEmbeddings(ctx, "")
	if err != nil {
		return fmt.Errorf("vectorindex: rebuild: load durable embeddings: %w", err)
	}
	vectors := make([][]float32, len(rows))
	metas := make([]Metadata, len(rows))
	for i, row := range rows {
		vectors[i] = row.Vector
		metas[i] = toMetadata(row)
	}
	return idx.Add(ctx, vectors, metas)
}

// BruteForceSearch scans the durable embedding table directly with the
// identical filtering semantics as Index.Search.
func BruteForceSearch(ctx context.Context, source DurableSource, queryVector []float32, params SearchParams) ([]Result, error) {
	rows, err := source.AllEmbeddings(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("vectorindex: brute force: load durable embeddings: %w", err)
	}
	scratch := New(len(queryVector))
	vectors := make([][]float32, len(rows))
	metas := make([]Metadata, len(rows))
	for i, row := range rows {
		vectors[i] = row.Vector
		metas[i] = toMetadata(row)
	}
	if err := scratch.Add(ctx, vectors, metas); err != nil {
		return nil, fmt.Errorf("vectorindex: brute force: build scratch index: %w", err)
	}
	params.QueryVector = queryVector
	return scratch.Search(params), nil
}
