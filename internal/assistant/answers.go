package assistant

import (
	"context"

	"healthd/internal/logging"
)

// Answer returns a previously memoized response for the query: first an
// exact content-hash hit, then via the registered similar-query index.
// Every lookup bumps the query's frequency counter. The false return
// means the caller has to compute the answer (and should hand it back via
// RecordAnswer).
func (s *Service) Answer(ctx context.Context, query string) (string, bool) {
	s.cache.TrackQueryFrequency(ctx, query)

	if resp, ok := s.cache.GetResponse(ctx, query); ok {
		logging.AssistantDebug("Exact response hit for query")
		return resp, true
	}
	if resp, ok := s.cache.GetSimilarResponse(ctx, query); ok {
		logging.AssistantDebug("Similar response hit for query")
		return resp, true
	}
	return "", false
}

// RecordAnswer memoizes a computed response under the query's hash.
func (s *Service) RecordAnswer(ctx context.Context, query, response string) {
	s.cache.SetResponse(ctx, query, response)
}

// RegisterSimilarQuery marks query as a paraphrase of canonical. Which
// queries count as similar is decided upstream; this only records the
// mapping.
func (s *Service) RegisterSimilarQuery(ctx context.Context, query, canonical string) {
	s.cache.RegisterSimilar(ctx, query, canonical)
}

// QueryFrequency reports how often a query was asked in the current
// counting window.
func (s *Service) QueryFrequency(ctx context.Context, query string) int64 {
	return s.cache.QueryFrequency(ctx, query)
}
