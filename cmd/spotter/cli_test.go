package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetspotter/internal/collab"
	"fleetspotter/internal/store"
	"fleetspotter/internal/types"
)

const testChain = `{
  "id": "boss",
  "difficulty_id": 2,
  "traits": ["BETA", "GAMMA", "EPSILON", "ZETA"],
  "nodes": [
    {"open_traits": ["ALPHA"], "hidden_traits": ["?", "?"]},
    {"open_traits": ["DELTA"], "hidden_traits": ["?"]}
  ]
}`

const testRoster = `
- symbol: kirk
  traits: [ALPHA, BETA, GAMMA]
  max_rarity: 3
  in_portal: true
- symbol: spock
  traits: [ALPHA, BETA, GAMMA]
  max_rarity: 3
  in_portal: true
- symbol: worf
  traits: [DELTA, EPSILON]
  max_rarity: 2
  in_portal: true
- symbol: odo
  traits: [DELTA, EPSILON]
  max_rarity: 2
  in_portal: true
`

func setupWorkspace(t *testing.T) string {
	t.Helper()
	for _, k := range []string{"SPOTTER_DB", "SPOTTER_COLLAB_URL", "SPOTTER_ROOM", "SPOTTER_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	ws := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ws, "chain.json"), []byte(testChain), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(ws, "roster.yaml"), []byte(testRoster), 0644))
	return ws
}

// runCLI executes the root command against ws. Flag globals keep their
// values between Execute calls, so they are reset first.
func runCLI(t *testing.T, ws string, args ...string) (string, error) {
	t.Helper()
	verbose, configPath, plain = false, "", false
	workspace, chainFile, rosterFile = "", "", ""
	resetSlot, forgetAttempt = -1, false
	collabURL, roomID = "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	full := append([]string{"-w", ws, "-c", "chain.json", "-r", "roster.yaml", "--plain"}, args...)
	rootCmd.SetArgs(full)
	err := rootCmd.Execute()
	return out.String(), err
}

func loadState(t *testing.T, ws string) types.SpotterState {
	t.Helper()
	out, err := runCLI(t, ws, "state")
	require.NoError(t, err)
	var st types.SpotterState
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	return st
}

// =============================================================================
// READ COMMANDS
// =============================================================================

func TestSolveCmd(t *testing.T) {
	ws := setupWorkspace(t)

	out, err := runCLI(t, ws, "solve")
	require.NoError(t, err)
	assert.Contains(t, out, "Chain boss")
	assert.Contains(t, out, "BETA, GAMMA")
	assert.Contains(t, out, "kirk")
	assert.Contains(t, out, "worf")
}

func TestSolveCmd_MissingChain(t *testing.T) {
	ws := setupWorkspace(t)
	verbose, configPath, plain = false, "", false
	chainFile, rosterFile = "", ""
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"-w", ws, "solve"})
	assert.ErrorContains(t, rootCmd.Execute(), "--chain is required")
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func TestNodeLifecycle(t *testing.T) {
	ws := setupWorkspace(t)

	_, err := runCLI(t, ws, "node", "submit", "1", "EPSILON")
	require.NoError(t, err)
	st := loadState(t, ws)
	require.Len(t, st.Solves, 1)
	assert.Equal(t, []string{"EPSILON"}, st.Solves[0].Traits)
	assert.False(t, st.Solves[0].Confirmed)

	_, err = runCLI(t, ws, "node", "submit", "1", "NOT_IN_POOL")
	assert.ErrorContains(t, err, "unknown trait")

	_, err = runCLI(t, ws, "node", "confirm", "1")
	require.NoError(t, err)
	assert.True(t, loadState(t, ws).Solves[0].Confirmed)

	_, err = runCLI(t, ws, "node", "submit", "1", "ZETA")
	assert.ErrorContains(t, err, "rejected")

	_, err = runCLI(t, ws, "node", "reset", "1")
	require.NoError(t, err)
	st = loadState(t, ws)
	require.Len(t, st.Solves, 1)
	assert.Equal(t, []string{"?"}, st.Solves[0].Traits)
	assert.False(t, st.Solves[0].Confirmed)

	out, err := runCLI(t, ws, "chains")
	require.NoError(t, err)
	assert.Contains(t, out, "boss")
}

func TestNodeSubmit_BadIndex(t *testing.T) {
	ws := setupWorkspace(t)
	_, err := runCLI(t, ws, "node", "submit", "x", "BETA")
	assert.ErrorContains(t, err, "invalid node index")
}

func TestAttemptAndIgnore(t *testing.T) {
	ws := setupWorkspace(t)

	_, err := runCLI(t, ws, "attempt", "kirk")
	require.NoError(t, err)
	assert.Equal(t, []string{"kirk"}, loadState(t, ws).AttemptedCrew)

	_, err = runCLI(t, ws, "attempt", "--forget", "kirk")
	require.NoError(t, err)
	assert.Empty(t, loadState(t, ws).AttemptedCrew)

	_, err = runCLI(t, ws, "ignore", "BETA")
	require.NoError(t, err)
	assert.Equal(t, []string{"BETA"}, loadState(t, ws).IgnoredTraits)

	_, err = runCLI(t, ws, "restore", "BETA")
	require.NoError(t, err)
	assert.Empty(t, loadState(t, ws).IgnoredTraits)
}

// =============================================================================
// COLLABORATION
// =============================================================================

func TestCollabSync_NeedsRoom(t *testing.T) {
	ws := setupWorkspace(t)
	_, err := runCLI(t, ws, "collab", "sync")
	assert.ErrorContains(t, err, "needs a room")
}

func TestCollabSync(t *testing.T) {
	ws := setupWorkspace(t)

	roomStore, err := store.NewStore(filepath.Join(t.TempDir(), "rooms.db"))
	require.NoError(t, err)
	defer roomStore.Close()
	srv := httptest.NewServer(collab.NewServer(roomStore).Handler())
	defer srv.Close()

	_, err = runCLI(t, ws, "node", "submit", "1", "EPSILON")
	require.NoError(t, err)

	out, err := runCLI(t, ws, "collab", "sync", "--url", srv.URL, "--room", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "Synced boss with room r1")

	remote, err := roomStore.LoadRoomState(context.Background(), "r1", "boss")
	require.NoError(t, err)
	require.Len(t, remote.Solves, 1)
	assert.Equal(t, []string{"EPSILON"}, remote.Solves[0].Traits)
}
