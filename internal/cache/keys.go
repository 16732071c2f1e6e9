package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// TTL tiers. Entity entries expire on a cadence matched to how often the
// underlying data changes; derived entries (responses, similarity,
// counters) get their own tiers.
const (
	TTLProfile      = 2 * time.Hour
	TTLMedications  = time.Hour
	TTLReminders    = 30 * time.Minute
	TTLChatMessages = time.Hour
	TTLChatTitle    = 24 * time.Hour
	TTLResponse     = 30 * time.Minute
	TTLSimilarity   = 24 * time.Hour
	TTLFrequency    = 24 * time.Hour
)

func profileKey(userID int64) string {
	return fmt.Sprintf("user:profile:%d", userID)
}

func medicationsKey(userID int64) string {
	return fmt.Sprintf("user:medications:%d", userID)
}

func remindersKey(userID int64) string {
	return fmt.Sprintf("user:reminders:%d", userID)
}

// userPattern matches every per-user entity key regardless of namespace.
func userPattern(userID int64) string {
	return fmt.Sprintf("user:*:%d", userID)
}

func chatMessagesKey(chatID string) string {
	return "chat:messages:" + chatID
}

func chatTitleKey(chatID string) string {
	return "chat:title:" + chatID
}

func responseKey(hash string) string {
	return "conversation:response:" + hash
}

func similarKey(hash string) string {
	return "conversation:similar:" + hash
}

func frequencyKey(hash string) string {
	return "stats:query_frequency:" + hash
}

// HashQuery canonicalizes a query to a stable content hash so that
// memoized responses survive leading/trailing whitespace and case jitter.
func HashQuery(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
