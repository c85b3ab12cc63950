package collab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetspotter/internal/chain"
	"fleetspotter/internal/solver"
	"fleetspotter/internal/spotter"
	"fleetspotter/internal/store"
	"fleetspotter/internal/types"
)

var t0 = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "rooms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := NewServer(st)
	srv.now = tickingClock(t0)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestServerNewRoom(t *testing.T) {
	_, ts := newTestServer(t)
	c := NewClient(ts.URL, time.Second)

	room, err := c.NewRoom(context.Background())
	require.NoError(t, err)
	_, err = uuid.Parse(room)
	assert.NoError(t, err)
}

func TestServerMissingState(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/rooms/r1/chains/boss")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, err = NewClient(ts.URL, time.Second).FetchState(context.Background(), "r1", "boss")
	assert.ErrorIs(t, err, ErrStaleCollaborationState)
}

func TestServerRejectsBadBody(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/rooms/r1/chains/boss/solves", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/rooms/r1/chains/boss/solves", "application/json",
		strings.NewReader(`{"solves":[{"node":0,"traits":[]}]}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClientPostAndFetch(t *testing.T) {
	ctx := context.Background()
	_, ts := newTestServer(t)
	c := NewClient(ts.URL+"/", time.Second)

	merged, err := c.PostSolve(ctx, "r1", "boss", []types.Solve{
		{Node: 0, Traits: []string{"BETA", "GAMMA"}, Confirmed: true, UpdatedAt: t0},
	})
	require.NoError(t, err)
	assert.Len(t, merged.Solves, 1)
	assert.True(t, merged.PostedAt.Equal(t0.Add(time.Second)))

	merged, err = c.PostTrial(ctx, "r1", "boss", TrialsPayload{AttemptedCrew: []string{"kirk"}, IgnoredTraits: []string{"ZETA"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"kirk"}, merged.AttemptedCrew)
	assert.Equal(t, []string{"ZETA"}, merged.IgnoredTraits)
	assert.Len(t, merged.Solves, 1)

	// A newer report for the same node replaces the older one.
	_, err = c.PostSolve(ctx, "r1", "boss", []types.Solve{
		{Node: 0, Traits: []string{"BETA", "EPSILON"}, Confirmed: true, UpdatedAt: t0.Add(time.Hour)},
	})
	require.NoError(t, err)

	got, err := c.FetchState(ctx, "r1", "boss")
	require.NoError(t, err)
	assert.Equal(t, "boss", got.ChainID)
	sv, ok := got.SolveFor(0)
	require.True(t, ok)
	assert.Equal(t, []string{"BETA", "EPSILON"}, sv.Traits)
	assert.Equal(t, []string{"kirk"}, got.AttemptedCrew)

	_, err = c.FetchState(ctx, "r2", "boss")
	assert.ErrorIs(t, err, ErrStaleCollaborationState)
}

func TestSyncerPullFallsBackWhenServerDown(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	local := types.NewSpotterState("boss")
	local.AttemptedCrew = []string{"kirk"}

	s := NewSyncer(NewClient(url, 200*time.Millisecond), "r1")
	got, err := s.Pull(context.Background(), local)
	assert.ErrorIs(t, err, ErrStaleCollaborationState)
	assert.Equal(t, local, got)
}

func TestSyncerPullMerges(t *testing.T) {
	ctx := context.Background()
	_, ts := newTestServer(t)
	c := NewClient(ts.URL, time.Second)

	_, err := c.PostSolve(ctx, "r1", "boss", []types.Solve{
		{Node: 1, Traits: []string{"EPSILON"}, Confirmed: true, UpdatedAt: t0},
	})
	require.NoError(t, err)

	local := types.NewSpotterState("boss")
	local.AttemptedCrew = []string{"spock"}

	got, err := NewSyncer(c, "r1").Pull(ctx, local)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ConfirmedCount())
	assert.Equal(t, []string{"spock"}, got.AttemptedCrew)
}

func syncChain() chain.RawChain {
	return chain.RawChain{
		ID:           "boss",
		DifficultyID: 2,
		Traits:       []string{"BETA", "GAMMA", "EPSILON"},
		Nodes: []chain.RawNode{
			{OpenTraits: []string{"ALPHA"}, HiddenTraits: []string{"?", "?"}},
			{OpenTraits: []string{"DELTA"}, HiddenTraits: []string{"?"}},
		},
	}
}

func newSyncSession(t *testing.T) *spotter.Session {
	t.Helper()
	sess, err := spotter.NewSession(context.Background(), spotter.SessionConfig{
		Raw: syncChain(),
		Roster: []types.Crew{
			{Symbol: "kirk", Traits: []string{"ALPHA", "BETA", "GAMMA"}, MaxRarity: 1, InPortal: true},
			{Symbol: "worf", Traits: []string{"DELTA", "EPSILON"}, MaxRarity: 1, InPortal: true},
		},
		State:  types.NewSpotterState("boss"),
		Engine: solver.NewEngine(solver.DefaultOptions()),
		Clock:  tickingClock(t0),
	})
	require.NoError(t, err)
	return sess
}

// tickingClock advances one second per call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	tick := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	}
}

func TestSyncerSyncSharesProgress(t *testing.T) {
	ctx := context.Background()
	_, ts := newTestServer(t)
	c := NewClient(ts.URL, time.Second)

	alice := newSyncSession(t)
	require.NoError(t, alice.SubmitTraits(ctx, 0, []string{"BETA", "GAMMA"}))
	require.NoError(t, alice.AttemptCrew(ctx, "worf"))
	require.NoError(t, NewSyncer(c, "r1").Sync(ctx, alice))

	bob := newSyncSession(t)
	require.NoError(t, NewSyncer(c, "r1").Sync(ctx, bob))

	sv, ok := bob.State().SolveFor(0)
	require.True(t, ok)
	assert.Equal(t, []string{"BETA", "GAMMA"}, sv.Traits)
	assert.Equal(t, []string{"worf"}, bob.State().AttemptedCrew)
	assert.Equal(t, chain.StatusConfirmed, bob.Snapshot().Nodes[0].Node.Status)
}

func TestSyncerSyncKeepsResetsAndForgottenAttempts(t *testing.T) {
	ctx := context.Background()
	_, ts := newTestServer(t)
	syncer := NewSyncer(NewClient(ts.URL, time.Second), "r1")

	alice := newSyncSession(t)
	require.NoError(t, alice.SubmitTraits(ctx, 0, []string{"BETA", "GAMMA"}))
	require.NoError(t, alice.AttemptCrew(ctx, "worf"))
	require.NoError(t, syncer.Sync(ctx, alice))

	require.NoError(t, alice.Reset(ctx, 0))
	require.NoError(t, alice.ForgetAttempt(ctx, "worf"))
	require.NoError(t, syncer.Sync(ctx, alice))

	sv, ok := alice.State().SolveFor(0)
	require.True(t, ok)
	assert.Zero(t, sv.Resolved())
	assert.Empty(t, alice.State().AttemptedCrew)
	assert.Equal(t, chain.StatusOpen, alice.Snapshot().Nodes[0].Node.Status)

	// The room carries the removals to players who join later.
	bob := newSyncSession(t)
	require.NoError(t, syncer.Sync(ctx, bob))
	assert.Empty(t, bob.State().AttemptedCrew)
	assert.Equal(t, chain.StatusOpen, bob.Snapshot().Nodes[0].Node.Status)
}
