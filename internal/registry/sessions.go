package registry

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/xfeldman/overlay/internal/bridge"
)

// EndInterrupted marks sessions left open by a previous process.
const EndInterrupted = "interrupted"

// Session is a persisted agent connection record.
type Session struct {
	ID         string    `json:"id"`
	RemoteAddr string    `json:"remote_addr"`
	UserAgent  string    `json:"user_agent,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at,omitzero"`
	EndReason  string    `json:"end_reason,omitempty"`
	Received   int64     `json:"received"`
	Rejected   int64     `json:"rejected"`
	Sent       int64     `json:"sent"`
}

// Active reports whether the session had not ended when last recorded.
func (s *Session) Active() bool {
	return s.EndedAt.IsZero()
}

// StartSession inserts a record for a newly active session.
func (d *DB) StartSession(info bridge.SessionInfo) error {
	_, err := d.db.Exec(`
		INSERT INTO sessions (id, remote_addr, user_agent, started_at)
		VALUES (?, ?, ?, ?)
	`, info.ID, info.RemoteAddr, info.UserAgent, info.StartedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// EndSession stores the final counters and end reason of a session.
func (d *DB) EndSession(info bridge.SessionInfo) error {
	res, err := d.db.Exec(`
		UPDATE sessions
		SET ended_at = ?, end_reason = ?, received = ?, rejected = ?, sent = ?
		WHERE id = ?
	`, info.EndedAt.UTC().Format(time.RFC3339Nano), info.EndReason,
		info.Received, info.Rejected, info.Sent, info.ID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session %s not found", info.ID)
	}
	return nil
}

// GetSession retrieves a session by ID. Returns nil, nil if absent.
func (d *DB) GetSession(id string) (*Session, error) {
	row := d.db.QueryRow(`
		SELECT id, remote_addr, user_agent, started_at, ended_at, end_reason, received, rejected, sent
		FROM sessions WHERE id = ?
	`, id)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// ListSessions returns the most recent sessions first. limit <= 0 returns all.
func (d *DB) ListSessions(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.db.Query(`
		SELECT id, remote_addr, user_agent, started_at, ended_at, end_reason, received, rejected, sent
		FROM sessions ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// CloseDangling marks sessions that never recorded an end (the process
// exited while they were active) as interrupted. Returns the count.
func (d *DB) CloseDangling(at time.Time) (int64, error) {
	res, err := d.db.Exec(`
		UPDATE sessions SET ended_at = ?, end_reason = ? WHERE ended_at = ''
	`, at.UTC().Format(time.RFC3339Nano), EndInterrupted)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PruneSessions deletes all but the keep most recent sessions.
func (d *DB) PruneSessions(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := d.db.Exec(`
		DELETE FROM sessions WHERE id NOT IN (
			SELECT id FROM sessions ORDER BY started_at DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var s Session
	var startedStr, endedStr string
	err := row.Scan(&s.ID, &s.RemoteAddr, &s.UserAgent, &startedStr, &endedStr,
		&s.EndReason, &s.Received, &s.Rejected, &s.Sent)
	if err != nil {
		return nil, err
	}
	s.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
	if endedStr != "" {
		s.EndedAt, _ = time.Parse(time.RFC3339Nano, endedStr)
	}
	return &s, nil
}
