package facts

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func vec1024(seed float32) []float32 {
	v := make([]float32, 1024)
	v[0] = seed
	return v
}

func TestRegistryGetOpensLazilyAndCaches(t *testing.T) {
	r, err := NewRegistry(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	s1, err := r.Get(testProjectID)
	require.NoError(t, err)
	s2, err := r.Get(testProjectID)
	require.NoError(t, err)
	require.Same(t, s1, s2)
}

func TestRegistryGetRejectsInvalidProjectID(t *testing.T) {
	r, err := NewRegistry(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	_, err = r.Get("not-a-uuid")
	require.Error(t, err)
}

func TestRegistryKnownProjectIDsListsOpenedProjects(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRegistry(dir)
	require.NoError(t, err)

	_, err = r.Get(testProjectID)
	require.NoError(t, err)
	_, err = r.Get(otherProjectID)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	// Reopen against the same directory: on-disk.db files should be
	// discoverable even before any store is opened in memory.
	r2, err := NewRegistry(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r2.Close() })

	ids, err := r2.KnownProjectIDs()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{testProjectID, otherProjectID}, ids)
}

func TestRegistryPathIsOneFilePerProject(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRegistry(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	require.Equal(t, filepath.Join(dir, testProjectID+".db"), r.path(testProjectID))
}

func TestRegistryInsertChunkAndEmbeddingRouteToCorrectProjectStore(t *testing.T) {
	ctx := context.Background()
	r, err := NewRegistry(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	chunk := Chunk{ChunkID: "chunk-1", ProjectID: testProjectID, SourceID: "chat:proj:thread", ChunkIndex: 0, EndChar: 10, Text: "hello"}
	require.NoError(t, r.InsertChunk(ctx, chunk, 1000))
	require.NoError(t, r.InsertEmbedding(ctx, "emb-1", "chunk-1", testProjectID, vec1024(1), 1000))

	rows, err := r.AllEmbeddings(ctx, testProjectID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "emb-1", rows[0].EmbeddingID)

	// A different, never-written project has no rows of its own.
	otherRows, err := r.AllEmbeddings(ctx, otherProjectID)
	require.NoError(t, err)
	require.Empty(t, otherRows)
}

func TestRegistryAllEmbeddingsAggregatesAcrossProjectsWhenUnscoped(t *testing.T) {
	ctx := context.Background()
	r, err := NewRegistry(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	for i, projectID := range []string{testProjectID, otherProjectID} {
		chunkID := "chunk-" + projectID
		require.NoError(t, r.InsertChunk(ctx, Chunk{ChunkID: chunkID, ProjectID: projectID, SourceID: "chat:x:y", ChunkIndex: 0, EndChar: 5, Text: "hi"}, 1000))
		require.NoError(t, r.InsertEmbedding(ctx, "emb-"+projectID, chunkID, projectID, vec1024(float32(i)), 1000))
	}

	all, err := r.AllEmbeddings(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
}
