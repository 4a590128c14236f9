package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/c360studio/docsentinel/docchunk"
)

const headingPathSep = "\x1f"

// DocChunkRecord is a stored documentation chunk with its lifecycle
// revisions and cached embedding.
type DocChunkRecord struct {
	docchunk.Chunk
	RevisionAdded   string
	RevisionRemoved string
	Embedding       []float32
}

// Identity returns the stable identity of the underlying chunk.
func (r DocChunkRecord) Identity() string { return r.Chunk.Identity() }

// ReconcileDocChunks mirrors ReconcileCodeChunks for documentation sections:
// unchanged headings keep their revision_added, vanished headings are
// soft-deleted, and new or altered sections are upserted.
func (s *Store) ReconcileDocChunks(ctx context.Context, tx *sql.Tx, revision, file string, chunks []docchunk.Chunk) error {
	existing, err := s.liveDocChunkIdentities(ctx, tx, file)
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
				`UPDATE doc_chunks SET revision_removed = ? WHERE identity = ? AND revision_removed IS NULL`,
				revision, identity); err != nil {
				return fmt.Errorf("removing doc chunk %s: %w", identity, err)
			}
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO doc_chunks (
			identity, file, heading_path, level, content, content_hash,
			revision_added, revision_removed
		) VALUES (?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(identity) DO UPDATE SET
			level            = excluded.level,
			content          = excluded.content,
			content_hash     = excluded.content_hash,
			revision_removed = NULL
	`)
	if err != nil {
		return fmt.Errorf("preparing doc chunk upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx,
			c.Identity(), c.Path, strings.Join(c.HeadingPath, headingPathSep), c.Level,
			c.Content, c.ContentHash, revision,
		); err != nil {
			return fmt.Errorf("upserting doc chunk %s: %w", c.Identity(), err)
		}
	}

	return nil
}

func (s *Store) liveDocChunkIdentities(ctx context.Context, tx *sql.Tx, file string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT identity FROM doc_chunks WHERE file = ? AND revision_removed IS NULL`, file)
	if err != nil {
		return nil, fmt.Errorf("querying live doc chunks for %s: %w", file, err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var identity string
		if err := rows.Scan(&identity); err != nil {
			return nil, fmt.Errorf("scanning doc chunk identity: %w", err)
		}
		out[identity] = true
	}
	return out, rows.Err()
}

// SetDocChunkEmbedding stores the embedding vector for a doc chunk.
func (s *Store) SetDocChunkEmbedding(ctx context.Context, identity string, vec []float32) error {
	_, err := s.db.ExecContext(ctx, `UPDATE doc_chunks SET embedding = ? WHERE identity = ?`,
		float32SliceToBytes(vec), identity)
	if err != nil {
		return fmt.Errorf("setting doc chunk embedding for %s: %w", identity, err)
	}
	return nil
}

// GetDocChunk retrieves a doc chunk (live or historical) by identity.
func (s *Store) GetDocChunk(ctx context.Context, identity string) (*DocChunkRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT identity, file, heading_path, level, content, content_hash,
		       embedding, revision_added, revision_removed
		FROM doc_chunks WHERE identity = ?
	`, identity)
	return scanDocChunkCommon(row)
}

// ListLiveDocChunks returns all doc chunks not soft-deleted, ordered by
// file then heading path.
func (s *Store) ListLiveDocChunks(ctx context.Context) ([]DocChunkRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity, file, heading_path, level, content, content_hash,
		       embedding, revision_added, revision_removed
		FROM doc_chunks WHERE revision_removed IS NULL
		ORDER BY file, heading_path
	`)
	if err != nil {
		return nil, fmt.Errorf("querying live doc chunks: %w", err)
	}
	defer rows.Close()

	var out []DocChunkRecord
	for rows.Next() {
		rec, err := scanDocChunkRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanDocChunkRows(rows *sql.Rows) (*DocChunkRecord, error) {
	return scanDocChunkCommon(rows)
}

func scanDocChunkCommon(s scannable) (*DocChunkRecord, error) {
	var rec DocChunkRecord
	var identity, headingPath string
	var embeddingBlob []byte
	var revisionRemoved sql.NullString

	if err := s.Scan(
		&identity, &rec.Path, &headingPath, &rec.Level, &rec.Content, &rec.ContentHash,
		&embeddingBlob, &rec.RevisionAdded, &revisionRemoved,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning doc chunk: %w", err)
	}

	if headingPath != "" {
		rec.HeadingPath = strings.Split(headingPath, headingPathSep)
	}
	rec.Embedding = bytesToFloat32Slice(embeddingBlob)
	if revisionRemoved.Valid {
		rec.RevisionRemoved = revisionRemoved.String
	}
	_ = identity
	return &rec, nil
}
