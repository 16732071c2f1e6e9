package store

import (
	"context"
	"database/sql"
	"fmt"

	"healthd/internal/logging"
	"healthd/internal/types"
)

// AddAppointment schedules a doctor visit with status "scheduled".
func (s *Store) AddAppointment(ctx context.Context, userID int64, doctorName, department, appointmentTime, reason string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO appointments (user_id, doctor_name, department, appointment_time, reason, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, doctorName, department, appointmentTime, nullString(reason), types.AppointmentScheduled,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert appointment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read appointment id: %w", err)
	}

	logging.Store("Added appointment with Dr. %s (%s) for user %d", doctorName, department, userID)
	return id, nil
}

// UpdateAppointmentStatus transitions an appointment's status. Unknown ids
// return ErrNotFound so callers can distinguish a bad id from a no-op.
func (s *Store) UpdateAppointmentStatus(ctx context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE appointments SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("appointment %d: %w", id, types.ErrNotFound)
	}

	logging.Store("Appointment %d status -> %s", id, status)
	return nil
}

// GetUserAppointments returns the user's appointments, soonest first.
func (s *Store) GetUserAppointments(ctx context.Context, userID int64) ([]*types.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryAppointments(ctx,
		`SELECT id, user_id, doctor_name, department, appointment_time, reason, status, created_at
		 FROM appointments WHERE user_id = ?
		 ORDER BY appointment_time`, userID)
}

// GetUpcomingAppointments returns only the user's still-scheduled
// appointments, soonest first.
func (s *Store) GetUpcomingAppointments(ctx context.Context, userID int64) ([]*types.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryAppointments(ctx,
		`SELECT id, user_id, doctor_name, department, appointment_time, reason, status, created_at
		 FROM appointments WHERE user_id = ? AND status = ?
		 ORDER BY appointment_time`, userID, types.AppointmentScheduled)
}

func (s *Store) queryAppointments(ctx context.Context, query string, args ...any) ([]*types.Appointment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	var appts []*types.Appointment
	for rows.Next() {
		var a types.Appointment
		var doctor, department, apptTime, reason sql.NullString
		if err := rows.Scan(&a.ID, &a.UserID, &doctor, &department, &apptTime, &reason, &a.Status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		a.DoctorName = doctor.String
		a.Department = department.String
		a.AppointmentTime = apptTime.String
		a.Reason = reason.String
		appts = append(appts, &a)
	}
	return appts, rows.Err()
}
