package assistant

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"healthd/internal/logging"
	"healthd/internal/types"
)

// StartConversation opens a new chat thread for the user and returns its
// generated chat id.
func (s *Service) StartConversation(ctx context.Context, userID int64, title string) (string, error) {
	chatID := uuid.NewString()
	if _, err := s.store.CreateConversation(ctx, userID, chatID, title); err != nil {
		return "", err
	}
	s.cache.SetChatTitle(ctx, chatID, title)
	logging.Assistant("Started conversation %s for user %d", chatID, userID)
	return chatID, nil
}

// AppendMessage adds a message to a chat, then drops the chat's cached
// transcript so the next read sees it.
func (s *Service) AppendMessage(ctx context.Context, chatID, messageType, content string) (int64, error) {
	id, err := s.store.AddChatMessage(ctx, chatID, messageType, content)
	if err != nil {
		return 0, err
	}
	s.cache.InvalidateChat(ctx, chatID)
	return id, nil
}

// Transcript reads a chat's messages cache-aside, oldest first.
func (s *Service) Transcript(ctx context.Context, chatID string) ([]*types.ChatMessage, error) {
	if msgs, ok := s.cache.GetChatMessages(ctx, chatID); ok {
		logging.AssistantDebug("Transcript cache hit for chat %s", chatID)
		return msgs, nil
	}

	v, err, _ := s.group.Do(fmt.Sprintf("transcript:%s", chatID), func() (any, error) {
		msgs, err := s.store.GetChatMessages(ctx, chatID)
		if err != nil {
			return nil, err
		}
		s.cache.SetChatMessages(ctx, chatID, msgs)
		return msgs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*types.ChatMessage), nil
}

// Conversations lists the user's chats, most recently touched first.
func (s *Service) Conversations(ctx context.Context, userID int64) ([]*types.Conversation, error) {
	return s.store.GetConversations(ctx, userID)
}

// RenameConversation retitles a chat and refreshes the cached title.
func (s *Service) RenameConversation(ctx context.Context, chatID, title string) error {
	if err := s.store.RenameConversation(ctx, chatID, title); err != nil {
		return err
	}
	s.cache.SetChatTitle(ctx, chatID, title)
	return nil
}

// DeleteConversation removes a chat and its messages, then drops whatever
// the cache still holds for it.
func (s *Service) DeleteConversation(ctx context.Context, chatID string) error {
	if err := s.store.DeleteConversation(ctx, chatID); err != nil {
		return err
	}
	s.cache.InvalidateChat(ctx, chatID)
	return nil
}
