package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"healthd/internal/logging"
	"healthd/internal/types"
)

// AddMedication inserts a prescription entry. Frequency is derived from
// the slot count once, at creation; one reminder per time slot is
// materialized for the current date so today's schedule immediately
// reflects the prescription.
func (s *Store) AddMedication(ctx context.Context, userID int64, name, dosage string, timeSlots []string, startDate, endDate string) (int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "AddMedication")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := json.Marshal(timeSlots)
	if err != nil {
		return 0, fmt.Errorf("failed to encode time slots: %w", err)
	}
	frequency := fmt.Sprintf("%d times per day", len(timeSlots))

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO medications (user_id, name, dosage, frequency, time_slots, start_date, end_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, name, dosage, frequency, string(slots), nullString(startDate), nullString(endDate),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert medication: %w", err)
	}
	medID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read medication id: %w", err)
	}

	today := time.Now().Format("2006-01-02")
	for _, slot := range timeSlots {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO reminders (user_id, reminder_type, title, content, scheduled_time)
			 VALUES (?, ?, ?, ?, ?)`,
			userID,
			types.ReminderTypeMedication,
			fmt.Sprintf("Medication Reminder - %s", name),
			fmt.Sprintf("Please take %s on time, dosage: %s", name, dosage),
			today+" "+slot,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to materialize reminder for %s: %w", slot, err)
		}
	}

	logging.Store("Added medication %q for user %d (%s, %d reminders)", name, userID, frequency, len(timeSlots))
	return medID, nil
}

// GetUserMedications returns the user's active medications.
func (s *Store) GetUserMedications(ctx context.Context, userID int64) ([]*types.Medication, error) {
	timer := logging.StartTimer(logging.CategoryStore, "GetUserMedications")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, dosage, frequency, time_slots, start_date, end_date, is_active
		 FROM medications WHERE user_id = ? AND is_active = 1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query medications: %w", err)
	}
	defer rows.Close()

	var meds []*types.Medication
	for rows.Next() {
		var m types.Medication
		var slots, start, end sql.NullString
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &m.Dosage, &m.Frequency, &slots, &start, &end, &m.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan medication: %w", err)
		}
		m.TimeSlots = []string{}
		if slots.Valid && slots.String != "" {
			if err := json.Unmarshal([]byte(slots.String), &m.TimeSlots); err != nil {
				return nil, fmt.Errorf("failed to decode time slots: %w", err)
			}
		}
		m.StartDate = start.String
		m.EndDate = end.String
		meds = append(meds, &m)
	}
	return meds, rows.Err()
}

// DeactivateMedication soft-deletes a prescription; the row stays for the
// record but disappears from active listings. Idempotent.
func (s *Store) DeactivateMedication(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "UPDATE medications SET is_active = 0 WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to deactivate medication: %w", err)
	}
	logging.Store("Deactivated medication %d", id)
	return nil
}
