package store

import (
	"context"
	"testing"

	"healthd/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateUserIdempotentByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.CreateUser(ctx, "alice", UserParams{Email: "alice@example.com", Age: 70})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	id2, err := s.CreateUser(ctx, "alice", UserParams{Age: 99})
	if err != nil {
		t.Fatalf("CreateUser (repeat) failed: %v", err)
	}

	if id1 != id2 {
		t.Errorf("Expected same id for same name, got %d and %d", id1, id2)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats["users"] != 1 {
		t.Errorf("Expected exactly one insert, got %d users", stats["users"])
	}

	// The repeat call must not have overwritten the original attributes.
	u, err := s.GetUserProfile(ctx, id1)
	if err != nil {
		t.Fatalf("GetUserProfile failed: %v", err)
	}
	if u.Age != 70 {
		t.Errorf("Expected age 70 preserved, got %d", u.Age)
	}
}

func TestUserIDReuse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []int64
	for _, name := range []string{"a", "b", "c"} {
		id, err := s.CreateUser(ctx, name, UserParams{})
		if err != nil {
			t.Fatalf("CreateUser(%s) failed: %v", name, err)
		}
		ids = append(ids, id)
	}
	if ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("Expected sequential ids 1,2,3, got %v", ids)
	}

	// Free id 2: no dependents reference it, so the next create reuses it.
	if err := s.DeleteUser(ctx, 2); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	id, err := s.CreateUser(ctx, "d", UserParams{})
	if err != nil {
		t.Fatalf("CreateUser(d) failed: %v", err)
	}
	if id != 2 {
		t.Errorf("Expected reuse of freed id 2, got %d", id)
	}

	// No two live users share an id.
	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	seen := make(map[int64]bool)
	for _, u := range users {
		if seen[u.ID] {
			t.Errorf("Duplicate user id %d", u.ID)
		}
		seen[u.ID] = true
	}
}

func TestUserIDReuseAfterDeletingHighest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		if _, err := s.CreateUser(ctx, name, UserParams{}); err != nil {
			t.Fatalf("CreateUser(%s) failed: %v", name, err)
		}
	}

	// Freeing the top of the id space must hand the same id back, not
	// push allocation past it.
	if err := s.DeleteUser(ctx, 3); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	id, err := s.CreateUser(ctx, "d", UserParams{})
	if err != nil {
		t.Fatalf("CreateUser(d) failed: %v", err)
	}
	if id != 3 {
		t.Errorf("Expected freed top id 3, got %d", id)
	}
}

func TestUserIDStableUnderChurn(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Repeatedly creating and deleting a single user must keep handing
	// out id 1; the id space never grows.
	for i := 0; i < 5; i++ {
		id, err := s.CreateUser(ctx, "demo", UserParams{})
		if err != nil {
			t.Fatalf("CreateUser (iteration %d) failed: %v", i, err)
		}
		if id != 1 {
			t.Fatalf("Iteration %d: expected id 1, got %d", i, id)
		}
		if err := s.DeleteUser(ctx, id); err != nil {
			t.Fatalf("DeleteUser (iteration %d) failed: %v", i, err)
		}
	}
}

func TestUserIDNotReusedWhileReferenced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, _ := s.CreateUser(ctx, "a", UserParams{})
	if _, err := s.AddHealthRecord(ctx, id1, "blood pressure", "120/80", nil, ""); err != nil {
		t.Fatalf("AddHealthRecord failed: %v", err)
	}

	// Remove the user row only, leaving an orphaned record behind.
	if _, err := s.db.Exec("DELETE FROM users WHERE id = ?", id1); err != nil {
		t.Fatalf("raw delete failed: %v", err)
	}

	// The id is still referenced by health_records, so it must not be
	// handed out again.
	id2, err := s.CreateUser(ctx, "b", UserParams{})
	if err != nil {
		t.Fatalf("CreateUser(b) failed: %v", err)
	}
	if id2 == id1 {
		t.Errorf("Reused id %d while a dependent row still references it", id1)
	}

	// After the sweep the id is free again.
	if _, err := s.ReclaimOrphans(ctx); err != nil {
		t.Fatalf("ReclaimOrphans failed: %v", err)
	}
	id3, err := s.CreateUser(ctx, "c", UserParams{})
	if err != nil {
		t.Fatalf("CreateUser(c) failed: %v", err)
	}
	if id3 != id1 {
		t.Errorf("Expected freed id %d after sweep, got %d", id1, id3)
	}
}

func TestGetOrCreateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.GetOrCreateUser(ctx, "walter")
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}

	// By numeric id.
	byID, err := s.GetOrCreateUser(ctx, "1")
	if err != nil {
		t.Fatalf("GetOrCreateUser by id failed: %v", err)
	}
	if byID != id {
		t.Errorf("Expected id %d, got %d", id, byID)
	}

	// By name, no duplicate created.
	byName, err := s.GetOrCreateUser(ctx, "walter")
	if err != nil {
		t.Fatalf("GetOrCreateUser by name failed: %v", err)
	}
	if byName != id {
		t.Errorf("Expected id %d, got %d", id, byName)
	}

	// A numeric identifier with no matching user becomes a name.
	weird, err := s.GetOrCreateUser(ctx, "9000")
	if err != nil {
		t.Fatalf("GetOrCreateUser numeric-name failed: %v", err)
	}
	u, err := s.GetUserProfile(ctx, weird)
	if err != nil {
		t.Fatalf("GetUserProfile failed: %v", err)
	}
	if u.Name != "9000" {
		t.Errorf("Expected name '9000', got %q", u.Name)
	}
}

func TestGetUserProfileNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUserProfile(context.Background(), 42)
	if !types.IsNotFound(err) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUserProfileRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateUser(ctx, "grace", UserParams{
		Email:            "grace@example.com",
		Age:              64,
		HealthConditions: []string{"hypertension", "diabetes"},
		EmergencyContact: "ada 555-0100",
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	u, err := s.GetUserProfile(ctx, id)
	if err != nil {
		t.Fatalf("GetUserProfile failed: %v", err)
	}
	if u.Name != "grace" || u.Email != "grace@example.com" || u.Age != 64 {
		t.Errorf("Unexpected profile: %+v", u)
	}
	if len(u.HealthConditions) != 2 || u.HealthConditions[0] != "hypertension" {
		t.Errorf("Unexpected conditions: %v", u.HealthConditions)
	}
	if u.EmergencyContact != "ada 555-0100" {
		t.Errorf("Unexpected contact: %q", u.EmergencyContact)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _ := s.CreateUser(ctx, "a", UserParams{})
	if _, err := s.AddMedication(ctx, id, "aspirin", "100mg", []string{"08:00"}, "", ""); err != nil {
		t.Fatalf("AddMedication failed: %v", err)
	}
	if _, err := s.AddHealthRecord(ctx, id, "symptom", "headache", nil, ""); err != nil {
		t.Fatalf("AddHealthRecord failed: %v", err)
	}
	if _, err := s.AddAppointment(ctx, id, "House", "cardiology", "2026-09-02 10:00", "checkup"); err != nil {
		t.Fatalf("AddAppointment failed: %v", err)
	}
	if _, err := s.CreateConversation(ctx, id, "chat-1", "hello"); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if _, err := s.AddChatMessage(ctx, "chat-1", types.MessageTypeUser, "hi"); err != nil {
		t.Fatalf("AddChatMessage failed: %v", err)
	}

	if err := s.DeleteUser(ctx, id); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	for _, table := range []string{"users", "medications", "health_records", "reminders", "appointments", "chat_conversations", "chat_messages"} {
		if stats[table] != 0 {
			t.Errorf("Expected %s empty after cascade, got %d rows", table, stats[table])
		}
	}

	if err := s.DeleteUser(ctx, id); !types.IsNotFound(err) {
		t.Errorf("Expected ErrNotFound on double delete, got %v", err)
	}
}

func TestDeleteAllUsersResetsSequence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		if _, err := s.CreateUser(ctx, name, UserParams{}); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}

	if err := s.DeleteAllUsers(ctx); err != nil {
		t.Fatalf("DeleteAllUsers failed: %v", err)
	}

	id, err := s.CreateUser(ctx, "fresh", UserParams{})
	if err != nil {
		t.Fatalf("CreateUser after clear failed: %v", err)
	}
	if id != 1 {
		t.Errorf("Expected id sequence reset to 1, got %d", id)
	}
}
