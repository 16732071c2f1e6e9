package store

import (
	"context"
	"database/sql"
	"fmt"

	"healthd/internal/logging"
	"healthd/internal/types"
)

// CreateConversation opens a chat session keyed by the externally visible
// chatID. chatID is unique; creating a duplicate surfaces as ErrConflict.
func (s *Store) CreateConversation(ctx context.Context, userID int64, chatID, title string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_conversations (user_id, chat_id, title) VALUES (?, ?, ?)`,
		userID, chatID, title,
	)
	if err != nil {
		if isConstraintErr(err) {
			return 0, fmt.Errorf("%w: chat id %q already exists", types.ErrConflict, chatID)
		}
		return 0, fmt.Errorf("failed to insert conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read conversation id: %w", err)
	}

	logging.Store("Created conversation %s for user %d", chatID, userID)
	return id, nil
}

// AddChatMessage appends a message to a conversation and bumps its parent's
// last-modified timestamp. Appending to an unknown chat id fails with
// ErrNotFound.
func (s *Store) AddChatMessage(ctx context.Context, chatID, messageType, content string) (int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "AddChatMessage")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var conversationID int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM chat_conversations WHERE chat_id = ?", chatID).Scan(&conversationID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("conversation %q: %w", chatID, types.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve conversation: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO chat_messages (conversation_id, chat_id, message_type, content)
		 VALUES (?, ?, ?, ?)`,
		conversationID, chatID, messageType, content,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert message: %w", err)
	}
	messageID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read message id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE chat_conversations SET updated_at = CURRENT_TIMESTAMP WHERE chat_id = ?", chatID); err != nil {
		return 0, fmt.Errorf("failed to touch conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit message: %w", err)
	}

	logging.StoreDebug("Added %s message to conversation %s", messageType, chatID)
	return messageID, nil
}

// GetConversations returns the user's conversations, most recently
// modified first.
func (s *Store) GetConversations(ctx context.Context, userID int64) ([]*types.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, chat_id, title, created_at, updated_at
		 FROM chat_conversations WHERE user_id = ?
		 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var convs []*types.Conversation
	for rows.Next() {
		var c types.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.ChatID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, &c)
	}
	return convs, rows.Err()
}

// GetChatMessages returns the conversation's messages in chronological
// order. An unknown chat id yields an empty slice, matching the "absent is
// not an error" read contract.
func (s *Store) GetChatMessages(ctx context.Context, chatID string) ([]*types.ChatMessage, error) {
	timer := logging.StartTimer(logging.CategoryStore, "GetChatMessages")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, message_type, content, timestamp
		 FROM chat_messages WHERE chat_id = ?
		 ORDER BY timestamp ASC, id ASC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []*types.ChatMessage
	for rows.Next() {
		var m types.ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.MessageType, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

// RenameConversation updates the conversation title and last-modified
// timestamp. Unknown chat ids return ErrNotFound.
func (s *Store) RenameConversation(ctx context.Context, chatID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE chat_conversations SET title = ?, updated_at = CURRENT_TIMESTAMP WHERE chat_id = ?`,
		title, chatID)
	if err != nil {
		return fmt.Errorf("failed to rename conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("conversation %q: %w", chatID, types.ErrNotFound)
	}

	logging.Store("Renamed conversation %s -> %q", chatID, title)
	return nil
}

// DeleteConversation removes a conversation together with its messages.
// Unknown chat ids return ErrNotFound.
func (s *Store) DeleteConversation(ctx context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM chat_messages WHERE chat_id = ?", chatID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM chat_conversations WHERE chat_id = ?", chatID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("conversation %q: %w", chatID, types.ErrNotFound)
	}

	logging.Store("Deleted conversation %s", chatID)
	return nil
}
