package store

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Covers the full prescription flow: the medication lists as active with
// its slots in order, its reminders land on today's schedule, and
// completing them empties the schedule again.
func TestMedicationMaterializesReminders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	userID, err := s.CreateUser(ctx, "A", UserParams{Age: 70})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	slots := []string{"08:00", "20:00"}
	if _, err := s.AddMedication(ctx, userID, "M", "100mg", slots, "", ""); err != nil {
		t.Fatalf("AddMedication failed: %v", err)
	}

	meds, err := s.GetUserMedications(ctx, userID)
	if err != nil {
		t.Fatalf("GetUserMedications failed: %v", err)
	}
	if len(meds) != 1 {
		t.Fatalf("Expected 1 active medication, got %d", len(meds))
	}
	if !meds[0].IsActive {
		t.Error("Expected medication active")
	}
	if meds[0].Frequency != "2 times per day" {
		t.Errorf("Unexpected frequency: %q", meds[0].Frequency)
	}
	if diff := cmp.Diff(slots, meds[0].TimeSlots); diff != "" {
		t.Errorf("Time slots mismatch (-want +got):\n%s", diff)
	}

	reminders, err := s.GetTodayReminders(ctx, userID)
	if err != nil {
		t.Fatalf("GetTodayReminders failed: %v", err)
	}
	if len(reminders) != 2 {
		t.Fatalf("Expected 2 reminders for today, got %d", len(reminders))
	}
	if reminders[0].ReminderType != "medication" {
		t.Errorf("Expected reminder_type medication, got %q", reminders[0].ReminderType)
	}
	// Ordered by scheduled time.
	if reminders[0].ScheduledTime > reminders[1].ScheduledTime {
		t.Errorf("Reminders out of order: %q before %q",
			reminders[0].ScheduledTime, reminders[1].ScheduledTime)
	}

	for _, r := range reminders {
		if err := s.CompleteReminder(ctx, r.ID); err != nil {
			t.Fatalf("CompleteReminder failed: %v", err)
		}
	}

	reminders, err = s.GetTodayReminders(ctx, userID)
	if err != nil {
		t.Fatalf("GetTodayReminders after completion failed: %v", err)
	}
	if len(reminders) != 0 {
		t.Errorf("Expected empty schedule after completion, got %d reminders", len(reminders))
	}
}

func TestCompleteReminderIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	userID, _ := s.CreateUser(ctx, "a", UserParams{})
	id, err := s.AddReminder(ctx, userID, "medication", "take pills", "", "2026-09-01 08:00")
	if err != nil {
		t.Fatalf("AddReminder failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.CompleteReminder(ctx, id); err != nil {
			t.Fatalf("CompleteReminder (call %d) failed: %v", i+1, err)
		}
	}
	// Completing an unknown id is a no-op, not an error.
	if err := s.CompleteReminder(ctx, 9999); err != nil {
		t.Errorf("CompleteReminder on unknown id: %v", err)
	}
}

func TestDeactivateMedicationHidesFromActiveList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	userID, _ := s.CreateUser(ctx, "a", UserParams{})
	medID, err := s.AddMedication(ctx, userID, "insulin", "10u", []string{"07:30"}, "", "")
	if err != nil {
		t.Fatalf("AddMedication failed: %v", err)
	}

	if err := s.DeactivateMedication(ctx, medID); err != nil {
		t.Fatalf("DeactivateMedication failed: %v", err)
	}

	meds, err := s.GetUserMedications(ctx, userID)
	if err != nil {
		t.Fatalf("GetUserMedications failed: %v", err)
	}
	if len(meds) != 0 {
		t.Errorf("Expected no active medications, got %d", len(meds))
	}

	// The row itself survives soft-deactivation.
	stats, _ := s.Stats(ctx)
	if stats["medications"] != 1 {
		t.Errorf("Expected medication row retained, got %d", stats["medications"])
	}
}
