package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mattn/go-sqlite3"

	"healthd/internal/logging"
	"healthd/internal/types"
)

// UserParams carries the optional attributes of a new user.
type UserParams struct {
	Email            string
	Age              int
	HealthConditions []string
	EmergencyContact string
}

// maxCreateRetries bounds the compare-and-retry loop when a freed id is
// claimed by a near-simultaneous create.
const maxCreateRetries = 3

// CreateUser inserts a user, idempotent by name: if a user with this name
// already exists its id is returned and nothing is written. New users get
// the lowest id referenced by no table (users included), so freed ids are
// recycled before the id space grows; only a fully dense space allocates
// max+1. The id is always assigned explicitly, never left to the rowid
// allocator, so an orphan reference keeps its id off-limits until swept.
// An id claimed concurrently surfaces as a constraint error and the scan
// retries.
func (s *Store) CreateUser(ctx context.Context, name string, p UserParams) (int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "CreateUser")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxCreateRetries; attempt++ {
		existing, err := s.userByName(ctx, name)
		if err == nil {
			logging.Store("User %q already exists with id %d", name, existing.ID)
			return existing.ID, nil
		}
		if !types.IsNotFound(err) {
			return 0, err
		}

		conditions, err := json.Marshal(p.HealthConditions)
		if err != nil {
			return 0, fmt.Errorf("failed to encode health conditions: %w", err)
		}

		id, err := s.nextUserID(ctx)
		if err != nil {
			return 0, err
		}

		_, err = s.db.ExecContext(ctx,
			`INSERT INTO users (id, name, email, age, health_conditions, emergency_contact)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, name, nullString(p.Email), nullInt(p.Age), string(conditions), nullString(p.EmergencyContact),
		)
		if err != nil {
			if isConstraintErr(err) {
				lastErr = fmt.Errorf("%w: user id %d claimed concurrently", types.ErrConflict, id)
				logging.StoreDebug("CreateUser retry %d: %v", attempt+1, lastErr)
				continue
			}
			return 0, fmt.Errorf("failed to insert user: %w", err)
		}

		logging.Store("Created user %q with id %d", name, id)
		return id, nil
	}
	return 0, lastErr
}

// GetOrCreateUser resolves identifier as a numeric id first, then as a
// name, and finally creates a new user with identifier as the name. Every
// downstream tool can therefore address users by whatever handle it has.
func (s *Store) GetOrCreateUser(ctx context.Context, identifier string) (int64, error) {
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		if _, err := s.GetUserProfile(ctx, id); err == nil {
			return id, nil
		} else if !types.IsNotFound(err) {
			return 0, err
		}
	}

	if u, err := s.GetUserByName(ctx, identifier); err == nil {
		return u.ID, nil
	} else if !types.IsNotFound(err) {
		return 0, err
	}

	logging.Store("Creating new user for identifier %q", identifier)
	return s.CreateUser(ctx, identifier, UserParams{
		Email: identifier + "@example.com",
		Age:   30,
	})
}

// GetUserProfile returns the user with the given id, or ErrNotFound.
func (s *Store) GetUserProfile(ctx context.Context, id int64) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, age, health_conditions, emergency_contact, created_at
		 FROM users WHERE id = ?`, id))
}

// GetUserByName returns the user with the given name, or ErrNotFound.
func (s *Store) GetUserByName(ctx context.Context, name string) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.userByName(ctx, name)
}

// UpdateUser rewrites the mutable profile fields of an existing user.
// Unknown ids return ErrNotFound.
func (s *Store) UpdateUser(ctx context.Context, id int64, p UserParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conditions, err := json.Marshal(p.HealthConditions)
	if err != nil {
		return fmt.Errorf("failed to encode health conditions: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET email = ?, age = ?, health_conditions = ?, emergency_contact = ?
		 WHERE id = ?`,
		nullString(p.Email), nullInt(p.Age), string(conditions), nullString(p.EmergencyContact), id)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", id, types.ErrNotFound)
	}

	logging.Store("Updated profile for user %d", id)
	return nil
}

// ListUsers returns all users ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, age, health_conditions, emergency_contact, created_at
		 FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*types.User
	for rows.Next() {
		u, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteUser removes the user and every dependent row, freeing the id for
// reuse by the next create. Deleting an unknown id returns ErrNotFound.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	timer := logging.StartTimer(logging.CategoryStore, "DeleteUser")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("user %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}

	// Messages hang off conversations, not users, so they go first.
	cascade := []string{
		`DELETE FROM chat_messages WHERE chat_id IN
		 (SELECT chat_id FROM chat_conversations WHERE user_id = ?)`,
		`DELETE FROM chat_conversations WHERE user_id = ?`,
		`DELETE FROM medications WHERE user_id = ?`,
		`DELETE FROM health_records WHERE user_id = ?`,
		`DELETE FROM reminders WHERE user_id = ?`,
		`DELETE FROM appointments WHERE user_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	}
	for _, stmt := range cascade {
		if _, err := s.db.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to cascade delete user %d: %w", id, err)
		}
	}

	logging.Store("Deleted user %d and all dependent rows", id)
	return nil
}

// DeleteAllUsers truncates every table and resets the id sequences.
func (s *Store) DeleteAllUsers(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"chat_messages", "chat_conversations", "medications",
		"health_records", "reminders", "appointments", "users",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM sqlite_sequence WHERE name IN
		 ('users', 'medications', 'health_records', 'reminders',
		  'appointments', 'chat_conversations', 'chat_messages')`); err != nil {
		return fmt.Errorf("failed to reset sequences: %w", err)
	}

	logging.Store("Cleared all users and dependent data")
	return nil
}

// nextUserID scans the id space for the lowest id referenced by no table
// (users included); with no gap it returns max+1, so the id of a deleted
// highest user comes straight back instead of growing the space. The scan
// is recomputed on every call; the id space stays small enough under churn
// that a maintained free list is not worth its bookkeeping.
func (s *Store) nextUserID(ctx context.Context) (int64, error) {
	used := make(map[int64]bool)
	var maxID int64

	collect := func(query string) error {
		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			used[id] = true
			if id > maxID {
				maxID = id
			}
		}
		return rows.Err()
	}

	if err := collect("SELECT id FROM users"); err != nil {
		return 0, fmt.Errorf("failed to scan user ids: %w", err)
	}
	for _, table := range dependentTables {
		query := fmt.Sprintf("SELECT DISTINCT user_id FROM %s WHERE user_id IS NOT NULL", table)
		if err := collect(query); err != nil {
			return 0, fmt.Errorf("failed to scan %s ids: %w", table, err)
		}
	}

	for id := int64(1); id <= maxID; id++ {
		if !used[id] {
			return id, nil
		}
	}
	return maxID + 1, nil
}

// userByName is the lock-free lookup shared by CreateUser and
// GetUserByName; callers hold s.mu.
func (s *Store) userByName(ctx context.Context, name string) (*types.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, age, health_conditions, emergency_contact, created_at
		 FROM users WHERE name = ?`, name))
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanUser(row rowScanner) (*types.User, error) {
	var u types.User
	var email, conditions, contact sql.NullString
	var age sql.NullInt64

	err := row.Scan(&u.ID, &u.Name, &email, &age, &conditions, &contact, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user: %w", types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.Email = email.String
	u.Age = int(age.Int64)
	u.EmergencyContact = contact.String
	u.HealthConditions = []string{}
	if conditions.Valid && conditions.String != "" {
		if err := json.Unmarshal([]byte(conditions.String), &u.HealthConditions); err != nil {
			return nil, fmt.Errorf("failed to decode health conditions: %w", err)
		}
		if u.HealthConditions == nil {
			u.HealthConditions = []string{}
		}
	}
	return &u, nil
}

// isConstraintErr reports whether err is a SQLite uniqueness violation.
func isConstraintErr(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrConstraint
	}
	return false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}
