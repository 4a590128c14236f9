package store_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/c360studio/docsentinel/codechunk"
	"github.com/c360studio/docsentinel/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reconcileCode(t *testing.T, s *store.Store, revision, file string, chunks []codechunk.Chunk) {
	t.Helper()
	err := s.WithTx(context.Background(), func(tx *sql.Tx) error {
		return s.ReconcileCodeChunks(context.Background(), tx, revision, file, chunks)
	})
	require.NoError(t, err)
}

func TestReconcileCodeChunksInsertsNew(t *testing.T) {
	s, _ := setupTestStore(t)
	chunk := codechunk.Chunk{
		Path: "lib.rs", Language: "rust", Kind: codechunk.KindFunction,
		QualifiedName: "add", Signature: "pub fn add(a: i32, b: i32) -> i32",
		SignatureHash: "h1", ContentHash: "c1", Visibility: codechunk.VisibilityPublic,
	}
	reconcileCode(t, s, "rev1", "lib.rs", []codechunk.Chunk{chunk})

	rec, err := s.GetCodeChunk(context.Background(), chunk.Identity())
	require.NoError(t, err)
	assert.Equal(t, "add", rec.QualifiedName)
	assert.Equal(t, "rev1", rec.RevisionAdded)
	assert.Empty(t, rec.RevisionRemoved)
}

func TestReconcileCodeChunksKeepsRevisionAddedOnUpdate(t *testing.T) {
	s, _ := setupTestStore(t)
	original := codechunk.Chunk{
		Path: "lib.rs", Language: "rust", Kind: codechunk.KindFunction,
		QualifiedName: "add", Signature: "pub fn add(a: i32, b: i32) -> i32",
		SignatureHash: "old-hash", ContentHash: "c1",
	}
	reconcileCode(t, s, "rev1", "lib.rs", []codechunk.Chunk{original})

	updated := original
	updated.Signature = "pub fn add(a: i64, b: i64, overflow: bool) -> i64"
	updated.SignatureHash = "new-hash"
	reconcileCode(t, s, "rev2", "lib.rs", []codechunk.Chunk{updated})

	rec, err := s.GetCodeChunk(context.Background(), original.Identity())
	require.NoError(t, err)
	assert.Equal(t, "new-hash", rec.SignatureHash)
	assert.Equal(t, "rev1", rec.RevisionAdded, "revision_added must not move on update")
}

func TestReconcileCodeChunksSoftDeletesVanished(t *testing.T) {
	s, _ := setupTestStore(t)
	chunk := codechunk.Chunk{Path: "lib.rs", Language: "rust", QualifiedName: "obsolete", SignatureHash: "h", ContentHash: "c"}
	reconcileCode(t, s, "rev1", "lib.rs", []codechunk.Chunk{chunk})

	reconcileCode(t, s, "rev2", "lib.rs", nil)

	rec, err := s.GetCodeChunk(context.Background(), chunk.Identity())
	require.NoError(t, err)
	assert.Equal(t, "rev2", rec.RevisionRemoved)

	live, err := s.ListLiveCodeChunks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestReconcileCodeChunksRevivesReaddedIdentity(t *testing.T) {
	s, _ := setupTestStore(t)
	chunk := codechunk.Chunk{Path: "lib.rs", Language: "rust", QualifiedName: "add", SignatureHash: "h", ContentHash: "c"}
	reconcileCode(t, s, "rev1", "lib.rs", []codechunk.Chunk{chunk})
	reconcileCode(t, s, "rev2", "lib.rs", nil)
	reconcileCode(t, s, "rev3", "lib.rs", []codechunk.Chunk{chunk})

	rec, err := s.GetCodeChunk(context.Background(), chunk.Identity())
	require.NoError(t, err)
	assert.Empty(t, rec.RevisionRemoved)
}

func TestSetCodeChunkEmbeddingRoundTrips(t *testing.T) {
	s, _ := setupTestStore(t)
	chunk := codechunk.Chunk{Path: "lib.rs", Language: "rust", QualifiedName: "add", SignatureHash: "h", ContentHash: "c"}
	reconcileCode(t, s, "rev1", "lib.rs", []codechunk.Chunk{chunk})

	vec := []float32{0.1, -0.2, 0.3}
	require.NoError(t, s.SetCodeChunkEmbedding(context.Background(), chunk.Identity(), vec))

	rec, err := s.GetCodeChunk(context.Background(), chunk.Identity())
	require.NoError(t, err)
	require.Len(t, rec.Embedding, 3)
	assert.InDelta(t, 0.1, rec.Embedding[0], 1e-6)
	assert.InDelta(t, -0.2, rec.Embedding[1], 1e-6)
	assert.InDelta(t, 0.3, rec.Embedding[2], 1e-6)
}

func TestGetCodeChunkNotFound(t *testing.T) {
	s, _ := setupTestStore(t)
	_, err := s.GetCodeChunk(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
