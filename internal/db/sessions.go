package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tachyon/constellation/internal/financing"
	"tachyon/constellation/internal/session"
)

func nowMillis() int64 { return time.Now().UnixMilli() }

// CurrentSession returns the stored session, or nil if there is none
func (d *DB) CurrentSession() (*Session, error) {
	var s Session
	err := d.conn.QueryRow(`
		SELECT id, token, interview_id, created_at, updated_at
		FROM sessions ORDER BY created_at DESC LIMIT 1
	`).Scan(&s.ID, &s.Token, &s.InterviewID, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	return &s, nil
}

// EnsureSession returns the current session, creating one with a fresh id if needed
func (d *DB) EnsureSession() (Session, error) {
	cur, err := d.CurrentSession()
	if err != nil {
		return Session{}, err
	}
	if cur != nil {
		return *cur, nil
	}
	now := nowMillis()
	s := Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if _, err := d.conn.Exec(
		`INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)`,
		s.ID, s.CreatedAt, s.UpdatedAt,
	); err != nil {
		return Session{}, fmt.Errorf("creating session: %w", err)
	}
	return s, nil
}

func (d *DB) updateSession(column string, value any) error {
	s, err := d.EnsureSession()
	if err != nil {
		return err
	}
	// column names are fixed by the callers below
	q := fmt.Sprintf(`UPDATE sessions SET %s = ?, updated_at = ? WHERE id = ?`, column)
	if _, err := d.conn.Exec(q, value, nowMillis(), s.ID); err != nil {
		return fmt.Errorf("updating session %s: %w", column, err)
	}
	return nil
}

// SaveToken stores the bearer token used for backend calls
func (d *DB) SaveToken(token string) error {
	return d.updateSession("token", token)
}

// Token returns the stored bearer token, or "" when logged out
func (d *DB) Token() (string, error) {
	s, err := d.CurrentSession()
	if err != nil || s == nil {
		return "", err
	}
	return s.Token, nil
}

// SaveInterview records the backend interview session id
func (d *DB) SaveInterview(interviewID string) error {
	return d.updateSession("interview_id", interviewID)
}

// SaveProfile stores the buyer's financial profile
func (d *DB) SaveProfile(p financing.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	return d.updateSession("profile", string(data))
}

// Profile returns the stored profile. ok is false when none was saved.
func (d *DB) Profile() (p financing.Profile, ok bool, err error) {
	var raw sql.NullString
	err = d.conn.QueryRow(`SELECT profile FROM sessions ORDER BY created_at DESC LIMIT 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !raw.Valid) {
		return financing.Profile{}, false, nil
	}
	if err != nil {
		return financing.Profile{}, false, fmt.Errorf("reading profile: %w", err)
	}
	if err := json.Unmarshal([]byte(raw.String), &p); err != nil {
		return financing.Profile{}, false, fmt.Errorf("decoding profile: %w", err)
	}
	return p, true, nil
}

// AppendTurn adds one interview message to the stored transcript
func (d *DB) AppendTurn(t session.Turn) error {
	s, err := d.EnsureSession()
	if err != nil {
		return err
	}
	_, err = d.conn.Exec(`
		INSERT INTO transcript (session_id, seq, role, content, at)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM transcript WHERE session_id = ?), ?, ?, ?)
	`, s.ID, s.ID, string(t.Role), t.Content, t.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("appending transcript: %w", err)
	}
	return nil
}

// Transcript returns the stored interview messages in order
func (d *DB) Transcript() ([]session.Turn, error) {
	rows, err := d.conn.Query(`
		SELECT t.role, t.content, t.at
		FROM transcript t JOIN sessions s ON s.id = t.session_id
		ORDER BY t.seq
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []session.Turn
	for rows.Next() {
		var role, content string
		var at int64
		if err := rows.Scan(&role, &content, &at); err != nil {
			return nil, err
		}
		turns = append(turns, session.Turn{Role: session.Role(role), Content: content, At: time.UnixMilli(at).UTC()})
	}
	return turns, rows.Err()
}

// Clear removes the session with its token, transcript and constellation
func (d *DB) Clear() error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"transcript", "nodes", "sessions"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return tx.Commit()
}
