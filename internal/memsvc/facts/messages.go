package facts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kittclouds/memsvc/internal/memsvc/errs"
)

// ChatMessage is the per-turn record the core persists for citation and
// indexing. The transcript itself is owned externally; this table holds
// only the UUID and enough metadata to cite the message.
type ChatMessage struct {
	MessageUUID  string
	ProjectID    string
	ChatID       string
	MessageID    string
	Role         string
	Content      string
	Timestamp    int64
	MessageIndex int
}

// UpsertChatMessage is the synchronous pre-step of the indexing pipeline:
// it mints (or recovers) the stable message_uuid for (project_id,
// chat_id, message_id) before the chunk/embed job is enqueued, so facts
// extracted from the same message can cite the UUID while indexing is
// still pending. Re-submitting the same message returns the original
// UUID and refreshes content/role/timestamp in place.
func (s *Store) UpsertChatMessage(ctx context.Context, m ChatMessage) (string, error) {
	if !validProjectID(m.ProjectID) {
		return "", fmt.Errorf("%w: project_id %q is not a valid UUID", errs.ErrInvalidInput, m.ProjectID)
	}
	if m.ChatID == "" || m.MessageID == "" {
		return "", fmt.Errorf("%w: chat_id and message_id are required", errs.ErrInvalidInput)
	}

	var messageUUID string
	err := s.withImmediateTx(ctx, func(ctx context.Context, tx *txHandle) error {
		row := tx.queryRow(ctx, `
			SELECT message_uuid FROM chat_messages
			WHERE project_id = ? AND chat_id = ? AND message_id = ?
		`, m.ProjectID, m.ChatID, m.MessageID)
		scanErr := row.Scan(&messageUUID)
		if scanErr != nil && scanErr != sql.ErrNoRows {
			return fmt.Errorf("read chat message: %w", scanErr)
		}

		now := time.Now().UnixMilli()
		if scanErr == sql.ErrNoRows {
			messageUUID = m.MessageUUID
			if messageUUID == "" {
				messageUUID = uuid.NewString()
			}
			_, err := tx.exec(ctx, `
				INSERT INTO chat_messages (message_uuid, project_id, chat_id, message_id, role, content, timestamp, message_index, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, messageUUID, m.ProjectID, m.ChatID, m.MessageID, m.Role, m.Content, m.Timestamp, m.MessageIndex, now)
			if err != nil {
				return fmt.Errorf("insert chat message: %w", err)
			}
			return nil
		}

		_, err := tx.exec(ctx, `
			UPDATE chat_messages SET role = ?, content = ?, timestamp = ?, message_index = ?
			WHERE message_uuid = ?
		`, m.Role, m.Content, m.Timestamp, m.MessageIndex, messageUUID)
		if err != nil {
			return fmt.Errorf("update chat message: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return messageUUID, nil
}

// GetChatMessage reads one persisted message record by UUID.
func (s *Store) GetChatMessage(ctx context.Context, messageUUID string) (*ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT message_uuid, project_id, chat_id, message_id, role, content, timestamp, message_index
		FROM chat_messages WHERE message_uuid = ?
	`, messageUUID)

	var m ChatMessage
	err := row.Scan(&m.MessageUUID, &m.ProjectID, &m.ChatID, &m.MessageID, &m.Role, &m.Content, &m.Timestamp, &m.MessageIndex)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: chat message %s", errs.ErrNotFound, messageUUID)
	}
	if err != nil {
		return nil, fmt.Errorf("get chat message: %w", err)
	}
	return &m, nil
}
