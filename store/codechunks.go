package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/c360studio/docsentinel/codechunk"
	"github.com/c360studio/docsentinel/drift"
)

// CodeChunkRecord is a stored code chunk together with its store-assigned
// lifecycle revisions and cached embedding.
type CodeChunkRecord struct {
	codechunk.Chunk
	RevisionAdded        string
	RevisionRemoved      string
	Embedding            []float32
	NearestDocIdentity   string
	NearestDocSimilarity float64
}

// Identity returns the stable identity of the underlying chunk.
func (r CodeChunkRecord) Identity() string { return r.Chunk.Identity() }

// ReconcileCodeChunks replaces the live code chunks for file with chunks,
// as observed at revision. Chunks whose identity is unchanged keep their
// original revision_added; chunks no longer present are soft-deleted by
// setting revision_removed, never dropped from history. Call within a
// Store.WithTx transaction so a scan's reconciliation is all-or-nothing.
func (s *Store) ReconcileCodeChunks(ctx context.Context, tx *sql.Tx, revision, file string, chunks []codechunk.Chunk) error {
	existing, err := s.liveCodeChunkIdentities(ctx, tx, file)
	if err != nil {
		return err
	}

	incoming := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		incoming[c.Identity()] = true
	}

	for identity := range existing {
		if !incoming[identity] {
			if _, err := tx.ExecContext(ctx,
				`UPDATE code_chunks SET revision_removed = ? WHERE identity = ? AND revision_removed IS NULL`,
				revision, identity); err != nil {
				return fmt.Errorf("removing code chunk %s: %w", identity, err)
			}
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO code_chunks (
			identity, file, qualified_name, language, kind, visibility,
			signature, signature_hash, doc_comment, content_hash,
			line_start, line_end, revision_added, revision_removed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(identity) DO UPDATE SET
			kind             = excluded.kind,
			visibility       = excluded.visibility,
			signature        = excluded.signature,
			signature_hash   = excluded.signature_hash,
			doc_comment      = excluded.doc_comment,
			content_hash     = excluded.content_hash,
			line_start       = excluded.line_start,
			line_end         = excluded.line_end,
			revision_removed = NULL
	`)
	if err != nil {
		return fmt.Errorf("preparing code chunk upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx,
			c.Identity(), c.Path, c.QualifiedName, c.Language, string(c.Kind), string(c.Visibility),
			c.Signature, c.SignatureHash, c.DocComment, c.ContentHash,
			c.BodyStartLine, c.BodyEndLine, revision,
		); err != nil {
			return fmt.Errorf("upserting code chunk %s: %w", c.Identity(), err)
		}
	}

	return nil
}

func (s *Store) liveCodeChunkIdentities(ctx context.Context, tx *sql.Tx, file string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT identity FROM code_chunks WHERE file = ? AND revision_removed IS NULL`, file)
	if err != nil {
		return nil, fmt.Errorf("querying live code chunks for %s: %w", file, err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var identity string
		if err := rows.Scan(&identity); err != nil {
			return nil, fmt.Errorf("scanning code chunk identity: %w", err)
		}
		out[identity] = true
	}
	return out, rows.Err()
}

// SetCodeChunkEmbedding stores the embedding vector for a code chunk.
func (s *Store) SetCodeChunkEmbedding(ctx context.Context, identity string, vec []float32) error {
	_, err := s.db.ExecContext(ctx, `UPDATE code_chunks SET embedding = ? WHERE identity = ?`,
		float32SliceToBytes(vec), identity)
	if err != nil {
		return fmt.Errorf("setting code chunk embedding for %s: %w", identity, err)
	}
	return nil
}

// SetCodeChunkNearest records the doc chunk a code chunk was nearest to,
// and the similarity at that time, so Analyze can report it later through
// PriorNearestMap.
func (s *Store) SetCodeChunkNearest(ctx context.Context, identity, docIdentity string, similarity float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE code_chunks SET nearest_doc_identity = ?, nearest_doc_similarity = ? WHERE identity = ?`,
		docIdentity, similarity, identity)
	if err != nil {
		return fmt.Errorf("setting nearest doc for %s: %w", identity, err)
	}
	return nil
}

// PriorNearestMap returns every live code chunk's recorded nearest-doc
// pair, keyed by code chunk identity, for feeding drift.ScanInput.
func (s *Store) PriorNearestMap(ctx context.Context) (map[string]drift.PriorNearest, error) {
	chunks, err := s.ListLiveCodeChunks(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]drift.PriorNearest, len(chunks))
	for _, c := range chunks {
		if c.NearestDocIdentity == "" {
			continue
		}
		out[c.Identity()] = drift.PriorNearest{
			DocIdentity: c.NearestDocIdentity,
			Similarity:  c.NearestDocSimilarity,
		}
	}
	return out, nil
}

// GetCodeChunk retrieves a code chunk (live or historical) by identity.
func (s *Store) GetCodeChunk(ctx context.Context, identity string) (*CodeChunkRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT identity, file, qualified_name, language, kind, visibility,
		       signature, signature_hash, doc_comment, content_hash,
		       line_start, line_end, embedding, revision_added, revision_removed,
		       nearest_doc_identity, nearest_doc_similarity
		FROM code_chunks WHERE identity = ?
	`, identity)
	return scanCodeChunk(row)
}

// ListLiveCodeChunks returns all code chunks not soft-deleted, ordered by
// file then qualified name.
func (s *Store) ListLiveCodeChunks(ctx context.Context) ([]CodeChunkRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity, file, qualified_name, language, kind, visibility,
		       signature, signature_hash, doc_comment, content_hash,
		       line_start, line_end, embedding, revision_added, revision_removed,
		       nearest_doc_identity, nearest_doc_similarity
		FROM code_chunks WHERE revision_removed IS NULL
		ORDER BY file, qualified_name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying live code chunks: %w", err)
	}
	defer rows.Close()

	var out []CodeChunkRecord
	for rows.Next() {
		rec, err := scanCodeChunkRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCodeChunk(row *sql.Row) (*CodeChunkRecord, error) {
	return scanCodeChunkCommon(row)
}

func scanCodeChunkRows(rows *sql.Rows) (*CodeChunkRecord, error) {
	return scanCodeChunkCommon(rows)
}

func scanCodeChunkCommon(s scannable) (*CodeChunkRecord, error) {
	var rec CodeChunkRecord
	var identity, kind, visibility string
	var embeddingBlob []byte
	var revisionRemoved sql.NullString

	if err := s.Scan(
		&identity, &rec.Path, &rec.QualifiedName, &rec.Language, &kind, &visibility,
		&rec.Signature, &rec.SignatureHash, &rec.DocComment, &rec.ContentHash,
		&rec.BodyStartLine, &rec.BodyEndLine, &embeddingBlob, &rec.RevisionAdded, &revisionRemoved,
		&rec.NearestDocIdentity, &rec.NearestDocSimilarity,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning code chunk: %w", err)
	}

	rec.Kind = codechunk.SymbolKind(kind)
	rec.Visibility = codechunk.Visibility(visibility)
	rec.Embedding = bytesToFloat32Slice(embeddingBlob)
	if revisionRemoved.Valid {
		rec.RevisionRemoved = revisionRemoved.String
	}
	_ = identity // identity is derivable from rec.Chunk.Identity(); kept in the query for clarity
	return &rec, nil
}
