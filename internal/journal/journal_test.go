package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/devtools"
)

var testEpoch = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// createTestJournal opens a journal in a temp dir with deterministic ids
// and timestamps.
func createTestJournal(t *testing.T, ids ...string) *Journal {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")

	tick := testEpoch
	j, err := Open(path,
		WithIDGenerator(NewFixedGenerator(ids...)),
		WithClock(func() time.Time {
			tick = tick.Add(time.Second)
			return tick
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpen_AppliesPragmas(t *testing.T) {
	j := createTestJournal(t)

	assert.NoError(t, j.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, j.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, j.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, j.verifyPragma("user_version", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j1, err := Open(path, WithIDGenerator(NewFixedGenerator("s-1")))
	require.NoError(t, err)
	_, err = j1.NewSession(context.Background(), "first")
	require.NoError(t, err)
	require.NoError(t, j1.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()

	sessions, err := j2.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "first", sessions[0].Name)
}

func TestSession_RecordsInOrder(t *testing.T) {
	j := createTestJournal(t, "s-1")
	ctx := context.Background()

	s, err := j.NewSession(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, "s-1", s.ID)

	require.NoError(t, s.Send(ctx, devtools.LogMessage("initial", `{"count":0}`)))
	require.NoError(t, s.Send(ctx, devtools.LogMessage("Increment", `{"count":1}`)))
	require.NoError(t, s.Send(ctx, devtools.LogMessage("Increment", `{"count":2}`)))
	assert.Equal(t, int64(3), s.Len())

	entries, err := j.ReadEntries(ctx, "s-1", "")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.Seq)
		assert.Equal(t, "log", e.Kind)
	}
	assert.Equal(t, devtools.LogMessage("Increment", `{"count":2}`), entries[2].Message())
	assert.True(t, entries[1].RecordedAt.After(entries[0].RecordedAt))

	filtered, err := j.ReadEntries(ctx, "s-1", "Increment")
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
}

func TestReadEntries_UnknownSessionIsEmpty(t *testing.T) {
	j := createTestJournal(t)

	entries, err := j.ReadEntries(context.Background(), "missing", "")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestListSessions_CountsEntries(t *testing.T) {
	j := createTestJournal(t, "s-1", "s-2")
	ctx := context.Background()

	a, err := j.NewSession(ctx, "a")
	require.NoError(t, err)
	_, err = j.NewSession(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, a.Send(ctx, devtools.LogMessage("initial", "0")))

	sessions, err := j.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s-1", sessions[0].ID)
	assert.Equal(t, 1, sessions[0].Entries)
	assert.Equal(t, "s-2", sessions[1].ID)
	assert.Equal(t, 0, sessions[1].Entries)
	assert.True(t, testEpoch.Add(time.Second).Equal(sessions[0].CreatedAt))

	info, err := j.ReadSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 1, info.Entries)

	_, err = j.ReadSession(ctx, "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSession_AsBridgeTransport(t *testing.T) {
	j := createTestJournal(t, "s-1")
	ctx := context.Background()

	s, err := j.NewSession(ctx, "bridge")
	require.NoError(t, err)

	b := devtools.New()
	b.Log("initial", "0")
	b.Log("A", "1")
	b.Ready()
	require.NoError(t, b.Flush(ctx, devtools.Fanout{s}))

	entries, err := j.ReadEntries(ctx, s.ID, "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "initial", entries[0].ActionLabel)
	assert.Equal(t, "A", entries[1].ActionLabel)
}

func TestSession_SendAfterCloseFails(t *testing.T) {
	j := createTestJournal(t, "s-1")
	ctx := context.Background()

	s, err := j.NewSession(ctx, "closing")
	require.NoError(t, err)
	require.NoError(t, j.Close())

	err = s.Send(ctx, devtools.LogMessage("late", "x"))
	assert.Error(t, err)
	assert.Equal(t, int64(0), s.Len())
}

func TestFixedGenerator_PanicsWhenExhausted(t *testing.T) {
	g := NewFixedGenerator("only")
	assert.Equal(t, "only", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestUUIDv7Generator_Sortable(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.Less(t, a, b)
}
