package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"healthd/internal/logging"
	"healthd/internal/types"
)

// AddReminder inserts a standalone reminder. Medication reminders are
// normally materialized by AddMedication; this is the entry point for
// everything else (and for callers that manage slots themselves).
func (s *Store) AddReminder(ctx context.Context, userID int64, reminderType, title, content, scheduledTime string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (user_id, reminder_type, title, content, scheduled_time)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, reminderType, title, nullString(content), nullString(scheduledTime),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert reminder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read reminder id: %w", err)
	}

	logging.Store("Added reminder %q for user %d", title, userID)
	return id, nil
}

// CompleteReminder marks a reminder completed. Idempotent: completing an
// already-completed or unknown reminder is a no-op.
func (s *Store) CompleteReminder(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "UPDATE reminders SET is_completed = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to complete reminder: %w", err)
	}
	logging.StoreDebug("Completed reminder %d", id)
	return nil
}

// GetTodayReminders returns the user's incomplete reminders scheduled for
// today, ordered by scheduled time.
func (s *Store) GetTodayReminders(ctx context.Context, userID int64) ([]*types.Reminder, error) {
	timer := logging.StartTimer(logging.CategoryStore, "GetTodayReminders")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	today := time.Now().Format("2006-01-02")
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, reminder_type, title, content, scheduled_time, is_completed, created_at
		 FROM reminders
		 WHERE user_id = ? AND DATE(scheduled_time) = ? AND is_completed = 0
		 ORDER BY scheduled_time`, userID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*types.Reminder
	for rows.Next() {
		var r types.Reminder
		var content, scheduled sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &r.ReminderType, &r.Title, &content, &scheduled, &r.IsCompleted, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		r.Content = content.String
		r.ScheduledTime = scheduled.String
		reminders = append(reminders, &r)
	}
	return reminders, rows.Err()
}
