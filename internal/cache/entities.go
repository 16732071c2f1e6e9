package cache

import (
	"context"
	"encoding/json"
	"time"

	"healthd/internal/logging"
	"healthd/internal/types"
)

// Typed accessors for the entity namespaces. Values are stored as JSON;
// an entry that fails to decode is treated as a miss and dropped so the
// caller repopulates from the store.

func (c *Cache) SetUserProfile(ctx context.Context, user *types.User) {
	c.setJSON(ctx, profileKey(user.ID), user, TTLProfile)
}

func (c *Cache) GetUserProfile(ctx context.Context, userID int64) (*types.User, bool) {
	var user types.User
	if !c.getJSON(ctx, profileKey(userID), &user) {
		return nil, false
	}
	return &user, true
}

func (c *Cache) SetUserMedications(ctx context.Context, userID int64, meds []*types.Medication) {
	c.setJSON(ctx, medicationsKey(userID), meds, TTLMedications)
}

func (c *Cache) GetUserMedications(ctx context.Context, userID int64) ([]*types.Medication, bool) {
	var meds []*types.Medication
	if !c.getJSON(ctx, medicationsKey(userID), &meds) {
		return nil, false
	}
	return meds, true
}

func (c *Cache) SetUserReminders(ctx context.Context, userID int64, reminders []*types.Reminder) {
	c.setJSON(ctx, remindersKey(userID), reminders, TTLReminders)
}

func (c *Cache) GetUserReminders(ctx context.Context, userID int64) ([]*types.Reminder, bool) {
	var reminders []*types.Reminder
	if !c.getJSON(ctx, remindersKey(userID), &reminders) {
		return nil, false
	}
	return reminders, true
}

func (c *Cache) SetChatMessages(ctx context.Context, chatID string, msgs []*types.ChatMessage) {
	c.setJSON(ctx, chatMessagesKey(chatID), msgs, TTLChatMessages)
}

func (c *Cache) GetChatMessages(ctx context.Context, chatID string) ([]*types.ChatMessage, bool) {
	var msgs []*types.ChatMessage
	if !c.getJSON(ctx, chatMessagesKey(chatID), &msgs) {
		return nil, false
	}
	return msgs, true
}

func (c *Cache) SetChatTitle(ctx context.Context, chatID, title string) {
	c.Set(ctx, chatTitleKey(chatID), title, TTLChatTitle)
}

func (c *Cache) GetChatTitle(ctx context.Context, chatID string) (string, bool) {
	return c.Get(ctx, chatTitleKey(chatID))
}

// InvalidateUser drops every entity entry cached for the user.
func (c *Cache) InvalidateUser(ctx context.Context, userID int64) int64 {
	return c.DeletePattern(ctx, userPattern(userID))
}

// InvalidateProfile drops only the cached profile for the user.
func (c *Cache) InvalidateProfile(ctx context.Context, userID int64) {
	c.Delete(ctx, profileKey(userID))
}

// InvalidateMedications drops the cached medication list for the user.
func (c *Cache) InvalidateMedications(ctx context.Context, userID int64) {
	c.Delete(ctx, medicationsKey(userID))
}

// InvalidateReminders drops the cached reminder list for the user.
func (c *Cache) InvalidateReminders(ctx context.Context, userID int64) {
	c.Delete(ctx, remindersKey(userID))
}

// InvalidateChat drops the message list and title cached for a chat.
func (c *Cache) InvalidateChat(ctx context.Context, chatID string) {
	c.Delete(ctx, chatMessagesKey(chatID), chatTitleKey(chatID))
}

func (c *Cache) setJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Cache("Failed to encode cache entry %s: %v", key, err)
		return
	}
	c.Set(ctx, key, string(data), ttl)
}

func (c *Cache) getJSON(ctx context.Context, key string, v any) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		logging.Cache("Dropping undecodable cache entry %s: %v", key, err)
		c.Delete(ctx, key)
		return false
	}
	return true
}
