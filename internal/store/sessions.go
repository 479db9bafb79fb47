package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is one process lifetime talking to the persona: a serve run, a
// chat REPL or an MCP connection.
type Session struct {
	ID        int64
	SessionID string
	Persona   string
	Surface   string
	StartedAt int64
	EndedAt   *int64
	Status    string
	TurnCount int
}

// StartSession opens a new active session with a fresh UUID.
func (db *DB) StartSession(persona, surface string) (*Session, error) {
	now := time.Now().UnixMilli()
	sessionID := uuid.NewString()

	result, err := db.Exec(`
		INSERT INTO sessions (session_id, persona, surface, started_at, status)
		VALUES (?, ?, ?, ?, 'active')
	`, sessionID, persona, surface, now)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	id, _ := result.LastInsertId()
	return &Session{
		ID:        id,
		SessionID: sessionID,
		Persona:   persona,
		Surface:   surface,
		StartedAt: now,
		Status:    "active",
	}, nil
}

// GetSession returns a session by its session_id.
func (db *DB) GetSession(sessionID string) (*Session, error) {
	var s Session
	err := db.QueryRow(`
		SELECT id, session_id, persona, surface, started_at, ended_at, status, turn_count
		FROM sessions WHERE session_id = ?
	`, sessionID).Scan(&s.ID, &s.SessionID, &s.Persona, &s.Surface, &s.StartedAt, &s.EndedAt, &s.Status, &s.TurnCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// EndSession marks a session completed. Ending an already completed
// session is a no-op.
func (db *DB) EndSession(sessionID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE sessions SET status = 'completed', ended_at = COALESCE(ended_at, ?)
		WHERE session_id = ? AND status = 'active'
	`, now, sessionID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// IncrementTurns bumps the turn_count of an active session.
func (db *DB) IncrementTurns(sessionID string) error {
	_, err := db.Exec(`
		UPDATE sessions SET turn_count = turn_count + 1
		WHERE session_id = ? AND status = 'active'
	`, sessionID)
	if err != nil {
		return fmt.Errorf("increment turns: %w", err)
	}
	return nil
}

// GetRecentSessions returns the most recent sessions, ordered by started_at DESC.
func (db *DB) GetRecentSessions(limit int) ([]Session, error) {
	rows, err := db.Query(`
		SELECT id, session_id, persona, surface, started_at, ended_at, status, turn_count
		FROM sessions ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Persona, &s.Surface, &s.StartedAt, &s.EndedAt, &s.Status, &s.TurnCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
