package spotter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetspotter/internal/chain"
	"fleetspotter/internal/types"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testChain() chain.RawChain {
	return chain.RawChain{
		ID:           "boss",
		DifficultyID: 2,
		Traits:       []string{"BETA", "GAMMA", "EPSILON", "ZETA"},
		Nodes: []chain.RawNode{
			{OpenTraits: []string{"ALPHA"}, HiddenTraits: []string{"?", "?"}},
			{OpenTraits: []string{"DELTA"}, HiddenTraits: []string{"?"}},
			{OpenTraits: []string{"OMEGA"}, HiddenTraits: []string{"ZETA"}},
		},
	}
}

func testRoster() []types.Crew {
	return []types.Crew{
		{Symbol: "kirk", Traits: []string{"ALPHA", "BETA", "GAMMA"}, MaxRarity: 3, InPortal: true},
		{Symbol: "spock", Traits: []string{"ALPHA", "BETA", "GAMMA"}, MaxRarity: 3, InPortal: true},
		{Symbol: "data", Traits: []string{"ALPHA", "BETA", "GAMMA", "EPSILON"}, MaxRarity: 3, InPortal: true},
		{Symbol: "worf", Traits: []string{"DELTA", "EPSILON"}, MaxRarity: 2, InPortal: true},
		{Symbol: "odo", Traits: []string{"DELTA", "EPSILON"}, MaxRarity: 2, InPortal: true},
	}
}

func newTestMachine(confirm bool) *Machine {
	m := NewMachine(testChain(), testRoster(), Preferences{ConfirmSolves: confirm})
	m.now = func() time.Time { return fixedNow }
	return m
}

func status(t *testing.T, m *Machine, st types.SpotterState, node int) chain.Status {
	t.Helper()
	s, err := m.Status(st, node)
	require.NoError(t, err)
	return s
}

func TestSubmitTraitsLifecycle(t *testing.T) {
	m := newTestMachine(true)
	st := types.NewSpotterState("boss")
	assert.Equal(t, chain.StatusOpen, status(t, m, st, 0))

	st, err := m.SubmitTraits(st, 0, []string{"BETA", ""})
	require.NoError(t, err)
	assert.Equal(t, chain.StatusPartial, status(t, m, st, 0))
	sv, _ := st.SolveFor(0)
	assert.Equal(t, []string{"BETA", "?"}, sv.Traits)
	assert.Equal(t, fixedNow, sv.UpdatedAt)

	st, err = m.SubmitTraits(st, 0, []string{"BETA", "GAMMA"})
	require.NoError(t, err)
	assert.Equal(t, chain.StatusUnconfirmed, status(t, m, st, 0))

	st, err = m.Confirm(st, 0)
	require.NoError(t, err)
	assert.Equal(t, chain.StatusConfirmed, status(t, m, st, 0))

	_, err = m.SubmitTraits(st, 0, []string{"GAMMA", "BETA"})
	assert.ErrorIs(t, err, ErrNodeLocked)

	st, err = m.ResetSlot(st, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, chain.StatusPartial, status(t, m, st, 0))

	st, err = m.Reset(st, 0)
	require.NoError(t, err)
	assert.Equal(t, chain.StatusOpen, status(t, m, st, 0))
	sv, ok := st.SolveFor(0)
	require.True(t, ok, "reset keeps an all-unknown solve")
	assert.Equal(t, []string{"?", "?"}, sv.Traits)
	assert.False(t, sv.Confirmed)
	assert.Zero(t, sv.Resolved())
}

func TestResetLeavesTimestampedUnknownSolve(t *testing.T) {
	m := newTestMachine(false)
	st, err := m.MarkSolver(types.NewSpotterState("boss"), 0, "kirk", nil)
	require.NoError(t, err)

	later := fixedNow.Add(time.Minute)
	m.now = func() time.Time { return later }
	st, err = m.Reset(st, 0)
	require.NoError(t, err)

	sv, ok := st.SolveFor(0)
	require.True(t, ok)
	assert.Equal(t, later, sv.UpdatedAt)
	assert.Empty(t, sv.Crew)
	assert.Zero(t, st.ConfirmedCount())

	// Clearing the last slot one at a time leaves the same kind of entry.
	st, err = m.SubmitTraits(types.NewSpotterState("boss"), 1, []string{"EPSILON"})
	require.NoError(t, err)
	st, err = m.ResetSlot(st, 1, 0)
	require.NoError(t, err)
	sv, ok = st.SolveFor(1)
	require.True(t, ok)
	assert.Equal(t, []string{"?"}, sv.Traits)
	assert.Equal(t, later, sv.UpdatedAt)

	// Resetting a node with nothing recorded changes nothing.
	fresh := types.NewSpotterState("boss")
	got, err := m.Reset(fresh, 0)
	require.NoError(t, err)
	assert.Empty(t, got.Solves)
}

func TestSubmitWithoutConfirmation(t *testing.T) {
	m := newTestMachine(false)
	st, err := m.SubmitTraits(types.NewSpotterState("boss"), 1, []string{"EPSILON"})
	require.NoError(t, err)
	assert.Equal(t, chain.StatusConfirmed, status(t, m, st, 1))

	// Partial submissions are never confirmed.
	st, err = m.SubmitTraits(st, 0, []string{"BETA", "?"})
	require.NoError(t, err)
	sv, _ := st.SolveFor(0)
	assert.False(t, sv.Confirmed)
}

func TestSubmitRejections(t *testing.T) {
	m := newTestMachine(true)
	st := types.NewSpotterState("boss")

	_, err := m.SubmitTraits(st, 2, []string{"BETA"})
	assert.ErrorIs(t, err, ErrNodeLocked)
	_, err = m.SubmitTraits(st, 0, []string{"BETA"})
	assert.ErrorIs(t, err, ErrSlotCount)
	_, err = m.SubmitTraits(st, 9, []string{"BETA"})
	assert.ErrorIs(t, err, ErrUnknownNode)
	_, err = m.SubmitTraits(st, 1, []string{"NOT_IN_POOL"})
	assert.ErrorIs(t, err, ErrUnknownTrait)
	_, err = m.Reset(st, 2)
	assert.ErrorIs(t, err, ErrNodeLocked)
	_, err = m.ResetSlot(st, 0, 5)
	assert.ErrorIs(t, err, ErrSlotCount)
	_, err = m.Confirm(st, 0)
	assert.ErrorIs(t, err, ErrIncomplete)
	_, err = m.Confirm(st, 2)
	assert.ErrorIs(t, err, ErrNodeLocked)
}

func TestSubmitRejectsTraitsOutsidePool(t *testing.T) {
	m := newTestMachine(true)
	st := types.NewSpotterState("boss")

	cases := []struct {
		name   string
		node   int
		traits []string
	}{
		{"not in pool", 1, []string{"NOT_IN_POOL"}},
		{"open trait of the node", 0, []string{"ALPHA", "BETA"}},
		{"consumed by infallible node", 1, []string{"ZETA"}},
		{"more copies than the pool holds", 0, []string{"BETA", "BETA"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := m.SubmitTraits(st, tc.node, tc.traits)
			assert.ErrorIs(t, err, ErrUnknownTrait)
			assert.Equal(t, chain.StatusOpen, status(t, m, got, tc.node))
		})
	}

	// A trait held by another resolved node is no longer available.
	st, err := m.SubmitTraits(st, 0, []string{"BETA", "EPSILON"})
	require.NoError(t, err)
	_, err = m.SubmitTraits(st, 1, []string{"EPSILON"})
	assert.ErrorIs(t, err, ErrUnknownTrait)

	// The node's own unconfirmed solve does not block a resubmission.
	st, err = m.SubmitTraits(st, 0, []string{"EPSILON", "BETA"})
	require.NoError(t, err)
	sv, _ := st.SolveFor(0)
	assert.Equal(t, []string{"EPSILON", "BETA"}, sv.Traits)
}

func TestSubmitRespectsRevealedSlots(t *testing.T) {
	raw := testChain()
	raw.Nodes[0].HiddenTraits = []string{"BETA", "?"}
	m := NewMachine(raw, testRoster(), Preferences{})
	m.now = func() time.Time { return fixedNow }
	st := types.NewSpotterState("boss")

	_, err := m.SubmitTraits(st, 0, []string{"GAMMA", "EPSILON"})
	assert.ErrorIs(t, err, ErrUnknownTrait)
	_, err = m.SubmitTraits(st, 0, []string{"?", "BETA"})
	assert.ErrorIs(t, err, ErrUnknownTrait, "a revealed trait cannot fill a second slot")

	st, err = m.SubmitTraits(st, 0, []string{"BETA", "GAMMA"})
	require.NoError(t, err)
	assert.Equal(t, chain.StatusConfirmed, status(t, m, st, 0))
}

func TestSubmitDoesNotMutateInput(t *testing.T) {
	m := newTestMachine(true)
	st := types.NewSpotterState("boss")
	_, err := m.SubmitTraits(st, 0, []string{"BETA", "GAMMA"})
	require.NoError(t, err)
	assert.Empty(t, st.Solves)
}

func TestMarkSolver(t *testing.T) {
	m := newTestMachine(true)
	st := types.NewSpotterState("boss")

	got, err := m.MarkSolver(st, 0, "kirk", nil)
	require.NoError(t, err)
	sv, ok := got.SolveFor(0)
	require.True(t, ok)
	assert.Equal(t, []string{"BETA", "GAMMA"}, sv.Traits)
	assert.Equal(t, []string{"kirk"}, sv.Crew)
	assert.False(t, sv.Confirmed)

	_, err = m.MarkSolver(st, 0, "data", nil)
	assert.ErrorIs(t, err, ErrAmbiguousSolver)

	got, err = m.MarkSolver(st, 0, "data", []string{"EPSILON", "BETA"})
	require.NoError(t, err)
	sv, _ = got.SolveFor(0)
	assert.Equal(t, []string{"BETA", "EPSILON"}, sv.Traits)

	_, err = m.MarkSolver(st, 0, "data", []string{"BETA"})
	assert.ErrorIs(t, err, ErrSlotCount)
	_, err = m.MarkSolver(st, 0, "kirk", []string{"BETA", "EPSILON"})
	assert.ErrorIs(t, err, ErrCrewMismatch)
	_, err = m.MarkSolver(st, 0, "worf", nil)
	assert.ErrorIs(t, err, ErrCrewMismatch)
	_, err = m.MarkSolver(st, 0, "nobody", nil)
	assert.ErrorIs(t, err, ErrUnknownCrew)
}

func TestMarkSolverFillsRemainingSlots(t *testing.T) {
	m := newTestMachine(false)
	st, err := m.SubmitTraits(types.NewSpotterState("boss"), 0, []string{"?", "GAMMA"})
	require.NoError(t, err)

	st, err = m.MarkSolver(st, 0, "data", []string{"EPSILON"})
	require.NoError(t, err)
	sv, _ := st.SolveFor(0)
	assert.Equal(t, []string{"EPSILON", "GAMMA"}, sv.Traits)
	assert.True(t, sv.Confirmed)
}

func TestAttemptsAndIgnoredTraits(t *testing.T) {
	m := newTestMachine(true)
	st := types.NewSpotterState("boss")

	st, err := m.AttemptCrew(st, "spock")
	require.NoError(t, err)
	st, err = m.AttemptCrew(st, "kirk")
	require.NoError(t, err)
	st, err = m.AttemptCrew(st, "kirk")
	require.NoError(t, err)
	assert.Equal(t, []string{"kirk", "spock"}, st.AttemptedCrew)

	_, err = m.AttemptCrew(st, "nobody")
	assert.ErrorIs(t, err, ErrUnknownCrew)

	st, err = m.ForgetAttempt(st, "kirk")
	require.NoError(t, err)
	assert.Equal(t, []string{"spock"}, st.AttemptedCrew)
	assert.Equal(t, []types.Mark{
		{Key: "kirk", Count: 0, At: fixedNow},
		{Key: "spock", Count: 1, At: fixedNow},
	}, st.CrewMarks)

	st, err = m.IgnoreTrait(st, "BETA")
	require.NoError(t, err)
	assert.Equal(t, []string{"BETA"}, st.IgnoredTraits)
	_, err = m.IgnoreTrait(st, "NOPE")
	assert.ErrorIs(t, err, ErrUnknownTrait)

	st, err = m.RestoreTrait(st, "BETA")
	require.NoError(t, err)
	assert.Empty(t, st.IgnoredTraits)
	assert.Equal(t, []types.Mark{{Key: "BETA", Count: 0, At: fixedNow}}, st.TraitMarks)
	_, err = m.RestoreTrait(st, "BETA")
	assert.ErrorIs(t, err, ErrUnknownTrait)
}
