package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "health.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if _, err := s.CreateUser(context.Background(), "a", UserParams{}); err != nil {
		t.Fatalf("CreateUser on disk-backed store failed: %v", err)
	}
}

func TestMigrateAddsEmailColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// Seed a pre-email schema the way old deployments had it.
	legacy, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	_, err = legacy.Exec(`
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			age INTEGER,
			health_conditions TEXT,
			emergency_contact TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		INSERT INTO users (name, age) VALUES ('legacy-user', 50);
	`)
	if err != nil {
		t.Fatalf("seed legacy schema: %v", err)
	}
	legacy.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open on legacy db failed: %v", err)
	}
	defer s.Close()

	// The migrated column is usable for reads and writes.
	u, err := s.GetUserByName(context.Background(), "legacy-user")
	if err != nil {
		t.Fatalf("GetUserByName failed: %v", err)
	}
	if u.Email != "" {
		t.Errorf("Expected empty email on legacy row, got %q", u.Email)
	}

	id, err := s.CreateUser(context.Background(), "new-user", UserParams{Email: "new@example.com"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	nu, err := s.GetUserProfile(context.Background(), id)
	if err != nil {
		t.Fatalf("GetUserProfile failed: %v", err)
	}
	if nu.Email != "new@example.com" {
		t.Errorf("Expected migrated email column to hold value, got %q", nu.Email)
	}
}
