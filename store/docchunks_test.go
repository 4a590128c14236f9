package store_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/c360studio/docsentinel/docchunk"
	"github.com/c360studio/docsentinel/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reconcileDoc(t *testing.T, s *store.Store, revision, file string, chunks []docchunk.Chunk) {
	t.Helper()
	err := s.WithTx(context.Background(), func(tx *sql.Tx) error {
		return s.ReconcileDocChunks(context.Background(), tx, revision, file, chunks)
	})
	require.NoError(t, err)
}

func TestReconcileDocChunksInsertsNew(t *testing.T) {
	s, _ := setupTestStore(t)
	chunk := docchunk.Chunk{Path: "docs/api.md", HeadingPath: []string{"API", "add"}, Level: 2, Content: "takes two parameters", ContentHash: "c1"}
	reconcileDoc(t, s, "rev1", "docs/api.md", []docchunk.Chunk{chunk})

	live, err := s.ListLiveDocChunks(context.Background())
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, []string{"API", "add"}, live[0].HeadingPath)
	assert.Equal(t, "rev1", live[0].RevisionAdded)
}

func TestReconcileDocChunksSoftDeletesVanishedHeading(t *testing.T) {
	s, _ := setupTestStore(t)
	chunk := docchunk.Chunk{Path: "docs/api.md", HeadingPath: []string{"old"}, Content: "x", ContentHash: "c"}
	reconcileDoc(t, s, "rev1", "docs/api.md", []docchunk.Chunk{chunk})
	reconcileDoc(t, s, "rev2", "docs/api.md", nil)

	live, err := s.ListLiveDocChunks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestSetDocChunkEmbeddingRoundTrips(t *testing.T) {
	s, _ := setupTestStore(t)
	chunk := docchunk.Chunk{Path: "docs/api.md", HeadingPath: []string{"add"}, Content: "x", ContentHash: "c"}
	reconcileDoc(t, s, "rev1", "docs/api.md", []docchunk.Chunk{chunk})

	require.NoError(t, s.SetDocChunkEmbedding(context.Background(), chunk.Identity(), []float32{1, 2, 3}))

	live, err := s.ListLiveDocChunks(context.Background())
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, []float32{1, 2, 3}, live[0].Embedding)
}
