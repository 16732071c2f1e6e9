package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"healthd/internal/logging"
	"healthd/internal/types"
)

// AddHealthRecord appends a measurement or observation. Records are
// append-only; there is deliberately no update or single-row delete.
func (s *Store) AddHealthRecord(ctx context.Context, userID int64, recordType, content string, value *float64, unit string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var v sql.NullFloat64
	if value != nil {
		v = sql.NullFloat64{Float64: *value, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO health_records (user_id, record_type, content, value, unit)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, recordType, content, v, nullString(unit),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert health record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read record id: %w", err)
	}

	logging.Store("Added health record %q for user %d", recordType, userID)
	return id, nil
}

// GetRecentHealthRecords returns the user's records from the last `days`
// days, newest first.
func (s *Store) GetRecentHealthRecords(ctx context.Context, userID int64, days int) ([]*types.HealthRecord, error) {
	timer := logging.StartTimer(logging.CategoryStore, "GetRecentHealthRecords")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().AddDate(0, 0, -days).Format("2006-01-02")
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, record_type, content, value, unit, timestamp
		 FROM health_records
		 WHERE user_id = ? AND DATE(timestamp) >= ?
		 ORDER BY timestamp DESC`, userID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query health records: %w", err)
	}
	defer rows.Close()

	var records []*types.HealthRecord
	for rows.Next() {
		var r types.HealthRecord
		var content, unit sql.NullString
		var value sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.UserID, &r.RecordType, &content, &value, &unit, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan health record: %w", err)
		}
		r.Content = content.String
		r.Unit = unit.String
		if value.Valid {
			v := value.Float64
			r.Value = &v
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}
