// Package assistant coordinates the store and the cache so the two never
// drift: reads are cache-aside (check cache, fall back to the store,
// repopulate), and every mutation goes to the store first and then
// invalidates the affected cache entries before returning. With a degraded
// cache every path quietly collapses to store-direct.
package assistant

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"healthd/internal/cache"
	"healthd/internal/logging"
	"healthd/internal/store"
	"healthd/internal/types"
)

// Service is the consistency boundary over the persistence and cache
// layers. All dependencies are injected; Service owns no globals.
type Service struct {
	store *store.Store
	cache *cache.Cache
	group singleflight.Group
}

func New(st *store.Store, ca *cache.Cache) *Service {
	return &Service{store: st, cache: ca}
}

// RegisterUser resolves an identifier (numeric id or name) to a user id,
// creating the user on first contact.
func (s *Service) RegisterUser(ctx context.Context, identifier string) (int64, error) {
	id, err := s.store.GetOrCreateUser(ctx, identifier)
	if err != nil {
		return 0, err
	}
	// A fresh row may shadow a stale cached profile for a recycled id.
	s.cache.InvalidateProfile(ctx, id)
	return id, nil
}

// UserProfile reads the profile cache-aside. Concurrent misses on the same
// user collapse into a single store read.
func (s *Service) UserProfile(ctx context.Context, userID int64) (*types.User, error) {
	if user, ok := s.cache.GetUserProfile(ctx, userID); ok {
		logging.AssistantDebug("Profile cache hit for user %d", userID)
		return user, nil
	}

	v, err, _ := s.group.Do(fmt.Sprintf("profile:%d", userID), func() (any, error) {
		user, err := s.store.GetUserProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		s.cache.SetUserProfile(ctx, user)
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.User), nil
}

// UpdateProfile rewrites mutable profile fields, then drops the cached copy.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, p store.UserParams) error {
	if err := s.store.UpdateUser(ctx, userID, p); err != nil {
		return err
	}
	s.cache.InvalidateProfile(ctx, userID)
	return nil
}

// RemoveUser cascade-deletes the user and drops the user's whole cache
// namespace. Returns only after the invalidation settled (or the cache
// reported itself degraded).
func (s *Service) RemoveUser(ctx context.Context, userID int64) error {
	convs, err := s.store.GetConversations(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.cache.InvalidateUser(ctx, userID)
	for _, conv := range convs {
		s.cache.InvalidateChat(ctx, conv.ChatID)
	}
	logging.Assistant("Removed user %d and invalidated cached state", userID)
	return nil
}

// AddMedication records a medication, which also materializes its per-slot
// reminders, so both cached lists go stale at once.
func (s *Service) AddMedication(ctx context.Context, userID int64, name, dosage string, timeSlots []string, startDate, endDate string) (int64, error) {
	id, err := s.store.AddMedication(ctx, userID, name, dosage, timeSlots, startDate, endDate)
	if err != nil {
		return 0, err
	}
	s.cache.InvalidateMedications(ctx, userID)
	s.cache.InvalidateReminders(ctx, userID)
	return id, nil
}

// Medications reads the active medication list cache-aside.
func (s *Service) Medications(ctx context.Context, userID int64) ([]*types.Medication, error) {
	if meds, ok := s.cache.GetUserMedications(ctx, userID); ok {
		logging.AssistantDebug("Medication cache hit for user %d", userID)
		return meds, nil
	}

	v, err, _ := s.group.Do(fmt.Sprintf("medications:%d", userID), func() (any, error) {
		meds, err := s.store.GetUserMedications(ctx, userID)
		if err != nil {
			return nil, err
		}
		s.cache.SetUserMedications(ctx, userID, meds)
		return meds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*types.Medication), nil
}

// StopMedication deactivates a medication and drops the stale list.
func (s *Service) StopMedication(ctx context.Context, userID, medicationID int64) error {
	if err := s.store.DeactivateMedication(ctx, medicationID); err != nil {
		return err
	}
	s.cache.InvalidateMedications(ctx, userID)
	return nil
}

// TodayReminders reads the user's pending reminders cache-aside.
func (s *Service) TodayReminders(ctx context.Context, userID int64) ([]*types.Reminder, error) {
	if reminders, ok := s.cache.GetUserReminders(ctx, userID); ok {
		logging.AssistantDebug("Reminder cache hit for user %d", userID)
		return reminders, nil
	}

	v, err, _ := s.group.Do(fmt.Sprintf("reminders:%d", userID), func() (any, error) {
		reminders, err := s.store.GetTodayReminders(ctx, userID)
		if err != nil {
			return nil, err
		}
		s.cache.SetUserReminders(ctx, userID, reminders)
		return reminders, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*types.Reminder), nil
}

// CompleteReminder marks a reminder done and drops the user's cached list.
func (s *Service) CompleteReminder(ctx context.Context, userID, reminderID int64) error {
	if err := s.store.CompleteReminder(ctx, reminderID); err != nil {
		return err
	}
	s.cache.InvalidateReminders(ctx, userID)
	return nil
}

// AddHealthRecord stores a measurement or note. Records are not cached, so
// there is nothing to invalidate.
func (s *Service) AddHealthRecord(ctx context.Context, userID int64, recordType, content string, value *float64, unit string) (int64, error) {
	return s.store.AddHealthRecord(ctx, userID, recordType, content, value, unit)
}

// RecentHealthRecords reads straight from the store.
func (s *Service) RecentHealthRecords(ctx context.Context, userID int64, days int) ([]*types.HealthRecord, error) {
	return s.store.GetRecentHealthRecords(ctx, userID, days)
}

// ScheduleAppointment stores an appointment; appointments are store-direct.
func (s *Service) ScheduleAppointment(ctx context.Context, userID int64, doctorName, department, appointmentTime, reason string) (int64, error) {
	return s.store.AddAppointment(ctx, userID, doctorName, department, appointmentTime, reason)
}

// UpcomingAppointments reads straight from the store.
func (s *Service) UpcomingAppointments(ctx context.Context, userID int64) ([]*types.Appointment, error) {
	return s.store.GetUpcomingAppointments(ctx, userID)
}
