package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/journal"
)

func TestRunCommand_MissingArgs(t *testing.T) {
	_, err := executeCommand(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestRunCommand_NonExistentPath(t *testing.T) {
	_, err := executeCommand(t, "run", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to find scenarios")
}

func TestRunCommand_EmptyDir(t *testing.T) {
	out, err := executeCommand(t, "run", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestRunCommand_EmptyDirJSON(t *testing.T) {
	out, err := executeCommand(t, "run", t.TempDir(), "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
	assert.NotNil(t, resp.Data.Scenarios)
}

func TestRunCommand_UpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "counter.yaml", counterScenario)

	out, err := executeCommand(t, "run", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ counter")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "counter.golden"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(golden), `{"scenario_name":"counter","trace":[`))
	assert.Contains(t, string(golden), `"action_label":"decrement"`)

	out, err = executeCommand(t, "run", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ counter (4 messages)")
	assert.Contains(t, out, "Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "All scenarios passed")
}

func TestRunCommand_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "counter.yaml", counterScenario)
	writeScenario(t, dir, "golden/counter.golden", `{"scenario_name":"counter","trace":[]}`)

	out, err := executeCommand(t, "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ counter")
	assert.Contains(t, out, "trace does not match golden file")
}

func TestRunCommand_FailingAssertion(t *testing.T) {
	dir := t.TempDir()
	broken := strings.Replace(counterScenario, "count: 2\n", "count: 3\n", 1)
	path := writeScenario(t, dir, "counter.yaml", broken)

	out, err := executeCommand(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Summary: 0 passed, 1 failed, 1 total")
	assert.Contains(t, err.Error(), "1 scenario(s) failed")
}

func TestRunCommand_LoadError(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\n")

	out, err := executeCommand(t, "run", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken")
	assert.Contains(t, out, "load error")
}

func TestRunCommand_Filter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "counter.yaml", counterScenario)
	writeScenario(t, dir, "guarded.yaml", guardedScenario)

	out, err := executeCommand(t, "run", dir, "--filter", "guard*", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "guarded", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)
}

func TestRunCommand_JSONFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "counter.yaml", strings.Replace(counterScenario, "count: 1\n", "count: 9\n", 1))

	out, err := executeCommand(t, "run", dir, "--format", "json")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeTestFailed, resp.Error.Code)
}

func TestRunCommand_Journal(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "counter.yaml", counterScenario)
	dbPath := filepath.Join(dir, "rewind.db")

	out, err := executeCommand(t, "run", dir, "--journal", dbPath, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Scenarios, 1)
	sessionID := resp.Data.Scenarios[0].SessionID
	require.NotEmpty(t, sessionID)

	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()

	info, err := j.ReadSession(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, "counter", info.Name)
	assert.Equal(t, 4, info.Entries)
}

func TestFindScenarioFiles_SkipsGolden(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a.yaml", counterScenario)
	writeScenario(t, dir, "nested/b.yml", counterScenario)
	writeScenario(t, dir, "golden/c.yaml", counterScenario)
	writeScenario(t, dir, "notes.txt", "ignored")

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "nested", "b.yml"),
	}, files)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "counter.golden"),
		goldenFilePath(filepath.Join("scenarios", "counter.yaml")))
}
