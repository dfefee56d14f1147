package store

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"
)

const (
	tokenPrefix = "tb_"
	tokenLength = 32
)

var base62Chars = []byte("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz")

// Session is a stored bearer token (without the plaintext secret).
type Session struct {
	ID         string
	UserID     string
	Prefix     string
	Name       string
	ExpiresAt  *time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreateSession issues a new token for the user. The plaintext token is
// returned once; only its hash is stored. A zero ttl never expires.
func (s *Store) CreateSession(userID, name string, ttl time.Duration) (string, *Session, error) {
	var exists int
	if err := s.conn.QueryRow(`SELECT 1 FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return "", nil, fmt.Errorf("check user: %w", err)
	}

	id, err := generateID("s_")
	if err != nil {
		return "", nil, fmt.Errorf("generate session id: %w", err)
	}

	secret := make([]byte, tokenLength)
	for i := range secret {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(base62Chars))))
		if err != nil {
			return "", nil, fmt.Errorf("generate random token: %w", err)
		}
		secret[i] = base62Chars[n.Int64()]
	}
	plaintext := tokenPrefix + string(secret)

	now := time.Now().UTC()
	sess := &Session{
		ID:        id,
		UserID:    userID,
		Prefix:    string(secret[:8]),
		Name:      name,
		CreatedAt: now,
	}
	if ttl > 0 {
		exp := now.Add(ttl)
		sess.ExpiresAt = &exp
	}

	_, err = s.conn.Exec(
		`INSERT INTO sessions (id, user_id, token_hash, token_prefix, name, expires_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, userID, hashToken(plaintext), sess.Prefix, name, sess.ExpiresAt, now,
	)
	if err != nil {
		return "", nil, fmt.Errorf("insert session: %w", err)
	}
	return plaintext, sess, nil
}

// VerifySession resolves a plaintext token to its session and user.
// Unknown and expired tokens return nil values without error.
func (s *Store) VerifySession(token string) (*Session, *User, error) {
	if token == "" {
		return nil, nil, nil
	}
	keyHash := hashToken(token)

	sess := &Session{}
	u := &User{}
	err := s.conn.QueryRow(`
		SELECT s.id, s.user_id, s.token_prefix, s.name, s.expires_at, s.last_used_at, s.created_at,
		       u.id, u.username, u.email, u.name, u.password_hash, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = ?
	`, keyHash).Scan(
		&sess.ID, &sess.UserID, &sess.Prefix, &sess.Name, &sess.ExpiresAt, &sess.LastUsedAt, &sess.CreatedAt,
		&u.ID, &u.Username, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("session not found", "token_hash_prefix", keyHash[:8])
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("verify session: %w", err)
	}

	if sess.ExpiresAt != nil && sess.ExpiresAt.Before(time.Now().UTC()) {
		slog.Debug("session expired", "session_id", sess.ID, "expires_at", sess.ExpiresAt)
		return nil, nil, nil
	}

	now := time.Now().UTC()
	if _, err := s.conn.Exec(`UPDATE sessions SET last_used_at = ? WHERE id = ?`, now, sess.ID); err != nil {
		slog.Warn("update last_used_at", "session_id", sess.ID, "err", err)
	}
	sess.LastUsedAt = &now

	return sess, u, nil
}

// RevokeSession deletes the session identified by the plaintext token.
func (s *Store) RevokeSession(token string) error {
	res, err := s.conn.Exec(`DELETE FROM sessions WHERE token_hash = ?`, hashToken(token))
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session: %w", ErrNotFound)
	}
	return nil
}

// RevokeUserSessions deletes every session for the user and returns the count.
func (s *Store) RevokeUserSessions(userID string) (int64, error) {
	res, err := s.conn.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ListSessions returns the user's sessions, oldest first.
func (s *Store) ListSessions(userID string) ([]*Session, error) {
	rows, err := s.conn.Query(
		`SELECT id, user_id, token_prefix, name, expires_at, last_used_at, created_at FROM sessions WHERE user_id = ? ORDER BY created_at, rowid`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess := &Session{}
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Prefix, &sess.Name, &sess.ExpiresAt, &sess.LastUsedAt, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: iterate: %w", err)
	}
	return out, nil
}

// CleanupExpiredSessions deletes expired sessions and returns the count.
func (s *Store) CleanupExpiredSessions() (int64, error) {
	res, err := s.conn.Exec(
		`DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at < ?`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
