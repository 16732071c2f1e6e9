package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"healthd/internal/logging"
)

// memoizedResponse is the stored shape for a cached assistant answer. The
// original query text rides along for observability; lookups go by hash.
type memoizedResponse struct {
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// SetResponse memoizes a response under the query's content hash.
func (c *Cache) SetResponse(ctx context.Context, query, response string) {
	entry := memoizedResponse{
		Query:     query,
		Response:  response,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		logging.Cache("Failed to encode memoized response: %v", err)
		return
	}
	c.Set(ctx, responseKey(HashQuery(query)), string(data), TTLResponse)
}

// GetResponse returns the memoized response for an identical query, if
// one is still live.
func (c *Cache) GetResponse(ctx context.Context, query string) (string, bool) {
	return c.responseByHash(ctx, HashQuery(query))
}

func (c *Cache) responseByHash(ctx context.Context, hash string) (string, bool) {
	raw, ok := c.Get(ctx, responseKey(hash))
	if !ok {
		return "", false
	}
	var entry memoizedResponse
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		logging.Cache("Dropping undecodable memoized response: %v", err)
		c.Delete(ctx, responseKey(hash))
		return "", false
	}
	return entry.Response, true
}

// RegisterSimilar records that query is a paraphrase of canonical, so a
// later identical paraphrase can reuse the canonical query's response.
// Similarity detection itself is the caller's concern.
func (c *Cache) RegisterSimilar(ctx context.Context, query, canonical string) {
	c.Set(ctx, similarKey(HashQuery(query)), HashQuery(canonical), TTLSimilarity)
}

// GetSimilarResponse chases the similarity link for query and returns the
// canonical query's memoized response. Misses if the link or the target
// response has expired.
func (c *Cache) GetSimilarResponse(ctx context.Context, query string) (string, bool) {
	canonicalHash, ok := c.Get(ctx, similarKey(HashQuery(query)))
	if !ok {
		return "", false
	}
	return c.responseByHash(ctx, canonicalHash)
}

// TrackQueryFrequency bumps the rolling counter for a query and returns
// the new count. Each bump renews the counter's window.
func (c *Cache) TrackQueryFrequency(ctx context.Context, query string) int64 {
	key := frequencyKey(HashQuery(query))
	n := c.Increment(ctx, key, 1)
	if n > 0 {
		c.Expire(ctx, key, TTLFrequency)
	}
	return n
}

// QueryFrequency reads the current counter without bumping it.
func (c *Cache) QueryFrequency(ctx context.Context, query string) int64 {
	raw, ok := c.Get(ctx, frequencyKey(HashQuery(query)))
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
