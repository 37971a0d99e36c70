package facts

import (
	"context"
	"database/sql"
	"fmt"
)

// Chunk is one durable chunk row: a contiguous substring of a message
// or file with exact character offsets.
type Chunk struct {
	ChunkID     string
	ProjectID   string
	SourceID    string
	ChatID      string
	MessageUUID string
	FilePath    string
	ChunkIndex  int
	StartChar   int
	EndChar     int
	Text        string
}

// InsertChunk durably stores one chunk. Called by the indexing pipeline
// outside any fact transaction since chunk writes don't participate in
// ranked-list invariants.
func (s *Store) InsertChunk(ctx context.Context, c Chunk, createdAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks (chunk_id, project_id, source_id, chat_id, message_uuid, file_path, chunk_index, start_char, end_char, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO NOTHING
	`, c.ChunkID, c.ProjectID, c.SourceID, nullIfEmpty(c.ChatID), nullIfEmpty(c.MessageUUID), nullIfEmpty(c.FilePath), c.ChunkIndex, c.StartChar, c.EndChar, c.Text, createdAt)
	if err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ChunksBySourceMessage returns the chunk rows already recorded for a
// message, used by the pipeline to dedupe reprocessing.
func (s *Store) ChunksBySourceMessage(ctx context.Context, projectID, messageUUID string) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, project_id, source_id, chat_id, message_uuid, file_path, chunk_index, start_char, end_char, text
		FROM chunks WHERE project_id = ? AND message_uuid = ?
	`, projectID, messageUUID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		var chatID, msgUUID, filePath sql.NullString
		if err := rows.Scan(&c.ChunkID, &c.ProjectID, &c.SourceID, &chatID, &msgUUID, &filePath, &c.ChunkIndex, &c.StartChar, &c.EndChar, &c.Text); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.ChatID, c.MessageUUID, c.FilePath = chatID.String, msgUUID.String, filePath.String
		out = append(out, c)
	}
	return out, rows.Err()
}
