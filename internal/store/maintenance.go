package store

import (
	"context"
	"fmt"

	"healthd/internal/logging"
)

// ReclaimOrphans deletes dependent rows whose user no longer exists,
// returning the total rows removed. Each table is swept independently
// against the live users set, so the sweep is idempotent and safe to run
// concurrently with normal traffic: rows created mid-sweep for a live user
// are never matched.
func (s *Store) ReclaimOrphans(ctx context.Context) (int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "ReclaimOrphans")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, table := range dependentTables {
		res, err := s.db.ExecContext(ctx, fmt.Sprintf(
			"DELETE FROM %s WHERE user_id NOT IN (SELECT id FROM users)", table))
		if err != nil {
			return total, fmt.Errorf("failed to sweep %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("failed to read sweep count for %s: %w", table, err)
		}
		if n > 0 {
			logging.Store("Reclaimed %d orphaned rows from %s", n, table)
			total += n
		}
	}

	// Messages reference conversations, not users, so they orphan when
	// their conversation is swept.
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM chat_messages WHERE chat_id NOT IN (SELECT chat_id FROM chat_conversations)")
	if err != nil {
		return total, fmt.Errorf("failed to sweep chat_messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return total, fmt.Errorf("failed to read sweep count for chat_messages: %w", err)
	}
	if n > 0 {
		logging.Store("Reclaimed %d orphaned rows from chat_messages", n)
		total += n
	}

	logging.Store("Orphan sweep complete: %d rows removed", total)
	return total, nil
}
