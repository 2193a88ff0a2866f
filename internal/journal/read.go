package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/rewind/internal/devtools"
)

// SessionInfo summarizes a recorded session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Entries   int       `json:"entries"`
}

// Entry is one recorded devtools message.
type Entry struct {
	SessionID   string    `json:"session_id"`
	Seq         int64     `json:"seq"`
	Kind        string    `json:"kind"`
	ActionLabel string    `json:"action_label"`
	State       string    `json:"state"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Message converts the entry back to its wire form.
func (e Entry) Message() devtools.Message {
	return devtools.Message{
		Kind:        devtools.Kind(e.Kind),
		ActionLabel: e.ActionLabel,
		State:       e.State,
	}
}

// ListSessions returns every session, oldest first, with entry counts.
// Returns an empty slice (not nil) for an empty journal.
func (j *Journal) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.created_at, COUNT(e.seq)
		FROM sessions s
		LEFT JOIN entries e ON e.session_id = s.id
		GROUP BY s.id, s.name, s.created_at
		ORDER BY s.created_at ASC, s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionInfo{}
	for rows.Next() {
		var info SessionInfo
		var createdAt string
		if err := rows.Scan(&info.ID, &info.Name, &createdAt, &info.Entries); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if info.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("session %s: parse created_at: %w", info.ID, err)
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadSession returns one session's summary.
// Returns sql.ErrNoRows if not found.
func (j *Journal) ReadSession(ctx context.Context, id string) (SessionInfo, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT s.id, s.name, s.created_at,
		       (SELECT COUNT(*) FROM entries e WHERE e.session_id = s.id)
		FROM sessions s
		WHERE s.id = ?
	`, id)

	var info SessionInfo
	var createdAt string
	if err := row.Scan(&info.ID, &info.Name, &createdAt, &info.Entries); err != nil {
		return SessionInfo{}, err
	}
	var err error
	if info.CreatedAt, err = parseTime(createdAt); err != nil {
		return SessionInfo{}, fmt.Errorf("session %s: parse created_at: %w", id, err)
	}
	return info, nil
}

// ReadEntries returns a session's entries ordered by seq.
// If label is non-empty only entries with that action label are returned.
func (j *Journal) ReadEntries(ctx context.Context, sessionID, label string) ([]Entry, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if label == "" {
		rows, err = j.db.QueryContext(ctx, `
			SELECT session_id, seq, kind, action_label, state, recorded_at
			FROM entries
			WHERE session_id = ?
			ORDER BY seq ASC
		`, sessionID)
	} else {
		rows, err = j.db.QueryContext(ctx, `
			SELECT session_id, seq, kind, action_label, state, recorded_at
			FROM entries
			WHERE session_id = ? AND action_label = ?
			ORDER BY seq ASC
		`, sessionID, label)
	}
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var recordedAt string
		if err := rows.Scan(&e.SessionID, &e.Seq, &e.Kind, &e.ActionLabel, &e.State, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, fmt.Errorf("entry %d: parse recorded_at: %w", e.Seq, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
