package store

import (
	"fmt"
	"time"
)

// AuthEvent is a row in the auth_events table.
type AuthEvent struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	EventType string    `json:"event_type"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// Auth event types.
const (
	AuthEventRegistered  = "registered"
	AuthEventLogin       = "login"
	AuthEventLoginFailed = "login_failed"
	AuthEventLogout      = "logout"
)

// InsertAuthEvent records an auth event. Empty metadata is stored as "{}".
func (s *Store) InsertAuthEvent(userID, username, eventType, metadata string) error {
	if metadata == "" {
		metadata = "{}"
	}
	_, err := s.conn.Exec(
		`INSERT INTO auth_events (user_id, username, event_type, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, username, eventType, metadata, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}

// ListAuthEvents returns the newest auth events, optionally filtered by type.
func (s *Store) ListAuthEvents(eventType string, limit int) ([]AuthEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, user_id, username, event_type, metadata, created_at FROM auth_events`
	var args []any
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, eventType)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list auth events: %w", err)
	}
	defer rows.Close()

	var events []AuthEvent
	for rows.Next() {
		var e AuthEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.EventType, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan auth event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list auth events: iterate: %w", err)
	}
	return events, nil
}

// CleanupAuthEvents deletes auth events older than the given duration.
func (s *Store) CleanupAuthEvents(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.conn.Exec(`DELETE FROM auth_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup auth events: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// InsertRateLimitEvent records a rate limit violation. sessionID may be
// empty for IP-based limits and is then stored as NULL.
func (s *Store) InsertRateLimitEvent(sessionID, ip, endpointClass string) error {
	var sid any
	if sessionID != "" {
		sid = sessionID
	}
	_, err := s.conn.Exec(
		`INSERT INTO rate_limit_events (session_id, ip, endpoint_class, created_at) VALUES (?, ?, ?, ?)`,
		sid, ip, endpointClass, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert rate limit event: %w", err)
	}
	return nil
}

// CountRateLimitEvents returns the number of recorded rate limit events.
func (s *Store) CountRateLimitEvents() (int, error) {
	var n int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM rate_limit_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rate limit events: %w", err)
	}
	return n, nil
}

// CleanupRateLimitEvents deletes events older than the given duration.
func (s *Store) CleanupRateLimitEvents(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.conn.Exec(`DELETE FROM rate_limit_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup rate limit events: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
