package database

import (
	"database/sql"
	"fmt"
)

// CalendarTarget is the calendar a user's managed events live in. One
// active target per user; created lazily when the user selects or
// creates a calendar.
type CalendarTarget struct {
	UserID     string
	Provider   string
	CalendarID string
}

// CalendarTargetStore persists calendar targets in SQLite
type CalendarTargetStore struct {
	db *sql.DB
}

// NewCalendarTargetStore creates a new calendar target store
func NewCalendarTargetStore(db *DB) (*CalendarTargetStore, error) {
	return &CalendarTargetStore{db: db.Conn()}, nil
}

// SaveTarget upserts the target calendar for a user
func (s *CalendarTargetStore) SaveTarget(userID, provider, calendarID string) error {
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}
	if calendarID == "" {
		return fmt.Errorf("calendar id cannot be empty")
	}

	_, err := s.db.Exec(`
INSERT INTO calendar_targets (user_id, provider, calendar_id, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(user_id) DO UPDATE SET
provider = excluded.provider,
calendar_id = excluded.calendar_id,
updated_at = CURRENT_TIMESTAMP`, userID, provider, calendarID)
	if err != nil {
		return fmt.Errorf("failed to save calendar target: %w", err)
	}

	return nil
}

// GetTarget retrieves the target calendar for a user. A missing row
// yields (nil, nil).
func (s *CalendarTargetStore) GetTarget(userID string) (*CalendarTarget, error) {
	target := CalendarTarget{UserID: userID}
	err := s.db.QueryRow(`
SELECT provider, calendar_id FROM calendar_targets WHERE user_id = ?
`, userID).Scan(&target.Provider, &target.CalendarID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve calendar target: %w", err)
	}

	return &target, nil
}

// ClearTarget removes the target calendar for a user
func (s *CalendarTargetStore) ClearTarget(userID string) error {
	_, err := s.db.Exec(`DELETE FROM calendar_targets WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear calendar target: %w", err)
	}
	return nil
}
