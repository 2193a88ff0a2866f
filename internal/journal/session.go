package journal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/rewind/internal/devtools"
)

// Session records one stream of devtools messages. It implements
// devtools.Transport, so it can sit behind a bridge pump directly or in a
// devtools.Fanout next to a live inspector.
type Session struct {
	ID        string
	Name      string
	CreatedAt time.Time

	j   *Journal
	mu  sync.Mutex
	seq int64
}

// NewSession creates and persists an empty session.
func (j *Journal) NewSession(ctx context.Context, name string) (*Session, error) {
	s := &Session{
		ID:        j.ids.Generate(),
		Name:      name,
		CreatedAt: j.now().UTC(),
		j:         j,
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sessions (id, name, created_at)
		VALUES (?, ?, ?)
	`, s.ID, s.Name, formatTime(s.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// Send appends msg as the session's next entry.
func (s *Session) Send(ctx context.Context, msg devtools.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seq + 1
	_, err := s.j.db.ExecContext(ctx, `
		INSERT INTO entries (session_id, seq, kind, action_label, state, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		s.ID,
		seq,
		string(msg.Kind),
		msg.ActionLabel,
		msg.State,
		formatTime(s.j.now()),
	)
	if err != nil {
		return fmt.Errorf("record entry %d: %w", seq, err)
	}

	s.seq = seq
	return nil
}

// Len returns the number of entries recorded through this handle.
func (s *Session) Len() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
