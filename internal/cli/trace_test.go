package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/devtools"
	"github.com/roach88/rewind/internal/journal"
)

// createTestJournal records one counter session with id s-1 and returns
// the database path.
func createTestJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rewind.db")
	ctx := context.Background()

	tick := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	j, err := journal.Open(path,
		journal.WithIDGenerator(journal.NewFixedGenerator("s-1")),
		journal.WithClock(func() time.Time {
			tick = tick.Add(time.Second)
			return tick
		}),
	)
	require.NoError(t, err)
	defer j.Close()

	s, err := j.NewSession(ctx, "counter")
	require.NoError(t, err)
	require.NoError(t, s.Send(ctx, devtools.LogMessage("initial", `{"count":0}`)))
	require.NoError(t, s.Send(ctx, devtools.LogMessage("Increment", `{"count":1}`)))
	require.NoError(t, s.Send(ctx, devtools.LogMessage("Increment", `{"count":2}`)))
	return path
}

func TestTraceCommand_RequiresDB(t *testing.T) {
	_, err := executeCommand(t, "trace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestTraceCommand_ListSessions(t *testing.T) {
	path := createTestJournal(t)

	out, err := executeCommand(t, "trace", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "s-1")
	assert.Contains(t, out, "counter")
	assert.Contains(t, out, "3 entries")
}

func TestTraceCommand_ListSessionsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")

	out, err := executeCommand(t, "trace", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions recorded.")
}

func TestTraceCommand_Timeline(t *testing.T) {
	path := createTestJournal(t)

	out, err := executeCommand(t, "trace", "--db", path, "--session", "s-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Session: s-1 (counter)")
	assert.Contains(t, out, "Entries: 3 shown of 3")
	assert.Contains(t, out, `[1] log initial {"count":0}`)
	assert.Contains(t, out, `[3] log Increment {"count":2}`)
}

func TestTraceCommand_ActionFilter(t *testing.T) {
	path := createTestJournal(t)

	out, err := executeCommand(t, "trace", "--db", path, "--session", "s-1", "--action", "Increment")
	require.NoError(t, err)
	assert.Contains(t, out, "Entries: 2 shown of 3")
	assert.NotContains(t, out, "initial")
}

func TestTraceCommand_JSON(t *testing.T) {
	path := createTestJournal(t)

	out, err := executeCommand(t, "trace", "--db", path, "--session", "s-1", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "s-1", resp.Data.Session.ID)
	require.Len(t, resp.Data.Timeline, 3)
	assert.Equal(t, map[string]any{"count": float64(1)}, resp.Data.Timeline[1].State)
	assert.Equal(t, map[string]int{"initial": 1, "Increment": 2}, resp.Data.Stats.ByLabel)
}

func TestTraceCommand_UnknownSession(t *testing.T) {
	path := createTestJournal(t)

	out, err := executeCommand(t, "trace", "--db", path, "--session", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "session not found: missing")
}

func TestBuildTimeline_RejectsCorruptState(t *testing.T) {
	_, err := buildTimeline([]journal.Entry{{Seq: 4, Kind: "log", ActionLabel: "x", State: "{"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 4")
}
