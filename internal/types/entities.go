// Package types defines the health entities shared by the store, cache,
// and assistant layers. All fields are plain data so results can cross
// package boundaries (and the cache's JSON round-trip) without loss.
package types

import "time"

// User is the root entity; every other record hangs off its ID.
// IDs are recyclable: once no dependent row references an ID it becomes
// eligible for reuse by the next created user.
type User struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email,omitempty"`
	Age              int       `json:"age,omitempty"`
	HealthConditions []string  `json:"health_conditions"`
	EmergencyContact string    `json:"emergency_contact,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Medication is a prescription entry. TimeSlots is an ordered list of
// "HH:MM" strings; Frequency is derived from the slot count at creation
// time and never recomputed.
type Medication struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"user_id"`
	Name      string   `json:"name"`
	Dosage    string   `json:"dosage"`
	Frequency string   `json:"frequency"`
	TimeSlots []string `json:"time_slots"`
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
	IsActive  bool     `json:"is_active"`
}

// HealthRecord is an append-only measurement or observation.
type HealthRecord struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	RecordType string    `json:"record_type"`
	Content    string    `json:"content"`
	Value      *float64  `json:"value,omitempty"`
	Unit       string    `json:"unit,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Reminder types. Reminders materialized from a medication always carry
// ReminderTypeMedication.
const (
	ReminderTypeMedication  = "medication"
	ReminderTypeAppointment = "appointment"
)

// Reminder is a scheduled prompt; the only mutation after creation is the
// completion flag.
type Reminder struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	ReminderType  string    `json:"reminder_type"`
	Title         string    `json:"title"`
	Content       string    `json:"content,omitempty"`
	ScheduledTime string    `json:"scheduled_time"`
	IsCompleted   bool      `json:"is_completed"`
	CreatedAt     time.Time `json:"created_at"`
}

// Appointment statuses.
const (
	AppointmentScheduled = "scheduled"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

// Appointment is a scheduled doctor visit; only its status transitions
// after creation.
type Appointment struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	DoctorName      string    `json:"doctor_name"`
	Department      string    `json:"department"`
	AppointmentTime string    `json:"appointment_time"`
	Reason          string    `json:"reason,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// Conversation is one chat session. ChatID is the externally visible
// identifier; dependent messages are deleted together with it.
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ChatID    string    `json:"chat_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message roles within a conversation.
const (
	MessageTypeUser      = "user"
	MessageTypeAssistant = "assistant"
)

// ChatMessage is one turn inside a conversation.
type ChatMessage struct {
	ID          int64     `json:"id"`
	ChatID      string    `json:"chat_id"`
	MessageType string    `json:"message_type"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
}
