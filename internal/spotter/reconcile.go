package spotter

import (
	"slices"

	"fleetspotter/internal/logging"
	"fleetspotter/internal/types"
)

// Reconcile merges a remote state into the local one.
//
// The side with more confirmed nodes is authoritative; on a tie the later
// PostedAt wins. Solves the other side has for nodes the authority lacks are
// added, and a node both sides recorded differently keeps the later
// UpdatedAt; an all-unknown solve is a reset and wins the same way.
// Attempts and ignored traits are unioned, then the later crew and trait
// marks of either side override the union so removals survive. When neither
// side can be ordered and their solves differ, local is returned with
// ErrDivergentState.
func Reconcile(local, remote types.SpotterState) (types.SpotterState, error) {
	lc, rc := local.ConfirmedCount(), remote.ConfirmedCount()

	var base, other types.SpotterState
	switch {
	case lc > rc:
		base, other = local, remote
	case rc > lc:
		base, other = remote, local
	case remote.PostedAt.After(local.PostedAt):
		base, other = remote, local
	case local.PostedAt.After(remote.PostedAt):
		base, other = local, remote
	case sameSolves(local, remote):
		base, other = local, remote
	default:
		logging.Get(logging.CategorySession).Warn("cannot order local and remote state for chain %s", local.ChainID)
		return local, ErrDivergentState
	}

	out := base.Clone()
	if out.ChainID == "" {
		out.ChainID = other.ChainID
	}
	for _, sv := range other.Solves {
		mine, ok := out.SolveFor(sv.Node)
		if !ok || (!slices.Equal(mine.Traits, sv.Traits) && sv.UpdatedAt.After(mine.UpdatedAt)) {
			sv.Traits = slices.Clone(sv.Traits)
			sv.Crew = slices.Clone(sv.Crew)
			out.PutSolve(sv)
		}
	}

	for _, s := range other.AttemptedCrew {
		if !out.IsAttempted(s) {
			out.AttemptedCrew = append(out.AttemptedCrew, s)
		}
	}
	out.IgnoredTraits = unionCounts(out.IgnoredTraits, other.IgnoredTraits)
	out.CrewMarks = types.MergeMarks(out.CrewMarks, other.CrewMarks)
	out.TraitMarks = types.MergeMarks(out.TraitMarks, other.TraitMarks)
	applyMarks(&out)

	if other.PostedAt.After(out.PostedAt) {
		out.PostedAt = other.PostedAt
	}
	logging.SessionDebug("reconciled chain %s: local %d confirmed, remote %d, result %d",
		out.ChainID, lc, rc, out.ConfirmedCount())
	return out, nil
}

// applyMarks makes the attempted crew and ignored traits agree with the
// recorded marks.
func applyMarks(st *types.SpotterState) {
	for _, mk := range st.CrewMarks {
		attempted := st.IsAttempted(mk.Key)
		switch {
		case mk.Count > 0 && !attempted:
			st.AttemptedCrew = append(st.AttemptedCrew, mk.Key)
		case mk.Count == 0 && attempted:
			st.AttemptedCrew = slices.DeleteFunc(st.AttemptedCrew, func(s string) bool { return s == mk.Key })
		}
	}
	slices.Sort(st.AttemptedCrew)

	for _, mk := range st.TraitMarks {
		st.IgnoredTraits = slices.DeleteFunc(st.IgnoredTraits, func(s string) bool { return s == mk.Key })
		for range mk.Count {
			st.IgnoredTraits = append(st.IgnoredTraits, mk.Key)
		}
	}
	slices.Sort(st.IgnoredTraits)
}

func sameSolves(a, b types.SpotterState) bool {
	if len(a.Solves) != len(b.Solves) {
		return false
	}
	for _, sv := range a.Solves {
		o, ok := b.SolveFor(sv.Node)
		if !ok || !slices.Equal(o.Traits, sv.Traits) || o.Confirmed != sv.Confirmed {
			return false
		}
	}
	return true
}

// unionCounts keeps each symbol max(count in a, count in b) times.
func unionCounts(a, b []string) []string {
	ca := make(map[string]int)
	for _, s := range a {
		ca[s]++
	}
	cb := make(map[string]int)
	for _, s := range b {
		cb[s]++
	}
	out := slices.Clone(a)
	if out == nil {
		out = []string{}
	}
	for s, n := range cb {
		for i := ca[s]; i < n; i++ {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out
}
