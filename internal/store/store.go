// Package store implements the durable health-data store on SQLite.
// It owns all entity tables, identifier allocation and reuse, and orphan
// reclamation. The cache layer never writes here; every mutation goes
// through this package and is the single source of truth.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"healthd/internal/logging"
)

// Store is the persistent health-data store. All operations open their own
// statement scope against the shared connection; no operation holds state
// across calls.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the SQLite database at the given path, creating the
// schema if needed. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	logging.Store("Opening health store at path: %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("Health store ready (users, medications, records, reminders, appointments, conversations)")
	return s, nil
}

// initialize creates the entity tables and runs column migrations.
func (s *Store) initialize() error {
	usersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT,
		age INTEGER,
		health_conditions TEXT,
		emergency_contact TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_users_name ON users(name);
	`

	medicationsTable := `
	CREATE TABLE IF NOT EXISTS medications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		name TEXT NOT NULL,
		dosage TEXT,
		frequency TEXT,
		time_slots TEXT,
		start_date DATE,
		end_date DATE,
		is_active BOOLEAN DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_medications_user ON medications(user_id);
	`

	healthRecordsTable := `
	CREATE TABLE IF NOT EXISTS health_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		record_type TEXT NOT NULL,
		content TEXT,
		value REAL,
		unit TEXT,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_health_records_user ON health_records(user_id);
	`

	remindersTable := `
	CREATE TABLE IF NOT EXISTS reminders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		reminder_type TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT,
		scheduled_time TIMESTAMP,
		is_completed BOOLEAN DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_reminders_user ON reminders(user_id);
	CREATE INDEX IF NOT EXISTS idx_reminders_scheduled ON reminders(scheduled_time);
	`

	appointmentsTable := `
	CREATE TABLE IF NOT EXISTS appointments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		doctor_name TEXT,
		department TEXT,
		appointment_time TIMESTAMP,
		reason TEXT,
		status TEXT DEFAULT 'scheduled',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_appointments_user ON appointments(user_id);
	`

	conversationsTable := `
	CREATE TABLE IF NOT EXISTS chat_conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		chat_id TEXT UNIQUE NOT NULL,
		title TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON chat_conversations(user_id);
	`

	messagesTable := `
	CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id INTEGER,
		chat_id TEXT NOT NULL,
		message_type TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_messages_chat ON chat_messages(chat_id);
	`

	for _, table := range []string{
		usersTable,
		medicationsTable,
		healthRecordsTable,
		remindersTable,
		appointmentsTable,
		conversationsTable,
		messagesTable,
	} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return s.migrate()
}

// migrate adds columns introduced after the initial schema. Databases
// created before the email column existed get it added in place.
func (s *Store) migrate() error {
	rows, err := s.db.Query("PRAGMA table_info(users)")
	if err != nil {
		return fmt.Errorf("failed to inspect users table: %w", err)
	}
	defer rows.Close()

	hasEmail := false
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		if name == "email" {
			hasEmail = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if !hasEmail {
		if _, err := s.db.Exec("ALTER TABLE users ADD COLUMN email TEXT"); err != nil {
			return fmt.Errorf("failed to add email column: %w", err)
		}
		logging.Store("Added email column to users table")
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	logging.Store("Closing health store")
	return s.db.Close()
}

// dependentTables lists every table carrying a user_id column. The
// identifier-reuse scan and the orphan sweep both derive from this list;
// keep it in sync with the schema.
var dependentTables = []string{
	"medications",
	"health_records",
	"reminders",
	"appointments",
	"chat_conversations",
}

// Stats returns per-table row counts plus the user id range.
func (s *Store) Stats(ctx context.Context) (map[string]int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Stats")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	tables := append([]string{"users"}, dependentTables...)
	tables = append(tables, "chat_messages")
	for _, table := range tables {
		var count int64
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = count
	}

	var minID, maxID sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MIN(id), MAX(id) FROM users").Scan(&minID, &maxID); err != nil {
		return nil, fmt.Errorf("failed to read user id range: %w", err)
	}
	stats["user_id_min"] = minID.Int64
	stats["user_id_max"] = maxID.Int64

	return stats, nil
}
