package facts

import (
	"context"
	"database/sql"
	"fmt"
	"math"
)

// EmbeddingRow is one durable embedding row plus enough chunk metadata to
// rehydrate vectorindex.Metadata on rebuild.
type EmbeddingRow struct {
	EmbeddingID string
	ChunkID     string
	ProjectID   string
	Vector      []float32
	IsDeleted   bool
	Chunk       Chunk
}

// InsertEmbedding durably stores one L2-normalized embedding as a
// little-endian float32[D] BLOB, mirrored into the sqlite-vec
// vec_embeddings virtual table. Reads (AllEmbeddings) use the
// embeddings table only.
func (s *Store) InsertEmbedding(ctx context.Context, embeddingID, chunkID, projectID string, vector []float32, createdAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob := encodeVector(vector)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin embedding insert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO embeddings (embedding_id, chunk_id, project_id, vector, is_deleted, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT(embedding_id) DO NOTHING
	`, embeddingID, chunkID, projectID, blob, createdAt); err != nil {
		return fmt.Errorf("insert embedding: %w", err)
	}
	// vec0 virtual tables do not support UPSERT; re-inserts go through a
	// delete-then-insert pair instead.
	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings WHERE embedding_id = ?`, embeddingID); err != nil {
		return fmt.Errorf("clear vec_embeddings slot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO vec_embeddings (embedding_id, vector) VALUES (?, ?)
	`, embeddingID, blob); err != nil {
		return fmt.Errorf("insert vec_embeddings: %w", err)
	}
	return tx.Commit()
}

// SoftDeleteEmbeddings marks embeddings inactive durably.
func (s *Store) SoftDeleteEmbeddings(ctx context.Context, embeddingIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range embeddingIDs {
		if _, err := s.db.ExecContext(ctx, `UPDATE embeddings SET is_deleted = 1 WHERE embedding_id = ?`, id); err != nil {
			return fmt.Errorf("soft delete embedding %s: %w", id, err)
		}
	}
	return nil
}

// AllEmbeddings streams every non-deleted embedding with its chunk
// metadata, for the Vector Index's startup rebuild and
// for the brute-force fallback scan.
func (s *Store) AllEmbeddings(ctx context.Context, projectID string) ([]EmbeddingRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.embedding_id, e.chunk_id, e.project_id, e.vector, e.is_deleted,
			c.source_id, c.chat_id, c.message_uuid, c.file_path, c.chunk_index, c.start_char, c.end_char, c.text
		FROM embeddings e
		JOIN chunks c ON c.chunk_id = e.chunk_id
		WHERE e.is_deleted = 0 AND (? = '' OR e.project_id = ?)
	`, projectID, projectID)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	var out []EmbeddingRow
	for rows.Next() {
		var r EmbeddingRow
		var blob []byte
		var isDeleted int
		var chatID, msgUUID, filePath sql.NullString
		if err := rows.Scan(&r.EmbeddingID, &r.ChunkID, &r.ProjectID, &blob, &isDeleted,
			&r.Chunk.SourceID, &chatID, &msgUUID, &filePath, &r.Chunk.ChunkIndex, &r.Chunk.StartChar, &r.Chunk.EndChar, &r.Chunk.Text); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		r.IsDeleted = isDeleted != 0
		r.Chunk.ChunkID = r.ChunkID
		r.Chunk.ProjectID = r.ProjectID
		r.Chunk.ChatID, r.Chunk.MessageUUID, r.Chunk.FilePath = chatID.String, msgUUID.String, filePath.String
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		r.Vector = vec
		out = append(out, r)
	}
	return out, rows.Err()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		b := math.Float32bits(v)
		buf[i*4+0] = byte(b)
		buf[i*4+1] = byte(b >> 8)
		buf[i*4+2] = byte(b >> 16)
		buf[i*4+3] = byte(b >> 24)
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("decode vector: length %d not a multiple of 4", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		b := uint32(buf[i*4+0]) | uint32(buf[i*4+1])<<8 | uint32(buf[i*4+2])<<16 | uint32(buf[i*4+3])<<24
		vec[i] = math.Float32frombits(b)
	}
	return vec, nil
}
