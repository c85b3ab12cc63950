package solver

import (
	"slices"

	"fleetspotter/internal/chain"
	"fleetspotter/internal/logging"
	"fleetspotter/internal/types"
)

// IgnoredSet is the set of combos proven unusable, per node.
type IgnoredSet map[ComboKey]struct{}

func (s IgnoredSet) add(node int, combo chain.TraitSet) {
	s[ComboKey{Node: node, Key: combo.Key()}] = struct{}{}
}

func (s IgnoredSet) has(node int, combo chain.TraitSet) bool {
	_, ok := s[ComboKey{Node: node, Key: combo.Key()}]
	return ok
}

// KnownWrong returns the roster crew that cannot be the answer to any open
// node: the crew unlocked by a node (matched by archetype id), the recorded
// solver crew of a confirmed or infallible node, and every attempted crew.
// An unconfirmed solver may still be wrong, so its crew stays in play. The full roster
// is searched, ignoring the rarity ceiling.
func KnownWrong(c *chain.Chain, state types.SpotterState, roster []types.Crew) []types.Crew {
	archetypes := make(map[int]bool)
	symbols := make(map[string]bool)
	for _, n := range c.Nodes {
		if n.UnlockedArchetypeID != 0 {
			archetypes[n.UnlockedArchetypeID] = true
		}
		if n.Status.Terminal() {
			for _, s := range n.SolverCrew {
				symbols[s] = true
			}
		}
	}
	for _, s := range state.AttemptedCrew {
		symbols[s] = true
	}

	var out []types.Crew
	for _, crew := range roster {
		if symbols[crew.Symbol] || (crew.ArchetypeID != 0 && archetypes[crew.ArchetypeID]) {
			out = append(out, crew)
		}
	}
	return out
}

// IgnoreKnownWrong marks every combo the given crew produce on any open node.
func IgnoreKnownWrong(ignored IgnoredSet, c *chain.Chain, pool chain.TraitSet, wrong []types.Crew) {
	for _, crew := range wrong {
		traits := chain.NewTraitSet(crew.Traits...)
		for _, node := range c.OpenNodes() {
			m, ok := Match(node, pool, traits)
			if !ok {
				continue
			}
			for _, combo := range m.Combos {
				ignored.add(node.Index, combo)
			}
			logging.ExclusionDebug("known-wrong %s: %d combos ignored on node %d", crew.Symbol, len(m.Combos), node.Index)
		}
	}
}

// IgnoreLowSupport marks every combo corroborated by at most one
// portal-obtainable crew.
func IgnoreLowSupport(ignored IgnoredSet, combos map[ComboKey]*ComboCount) {
	for key, cc := range combos {
		if cc.Portals <= 1 {
			ignored[key] = struct{}{}
		}
	}
}

// Prune removes ignored combos from every candidate in place and returns the
// candidates that still match at least one node. Running it twice is a no-op.
func Prune(cands []*Candidate, ignored IgnoredSet) []*Candidate {
	out := cands[:0:0]
	for _, cand := range cands {
		for n, m := range cand.Matches {
			kept := slices.DeleteFunc(slices.Clone(m.Combos), func(combo chain.TraitSet) bool {
				return ignored.has(n, combo)
			})
			if len(kept) == 0 {
				delete(cand.Matches, n)
				continue
			}
			if len(kept) != len(m.Combos) {
				m.Combos = kept
				m.MatchedTraits = unionAll(kept)
			}
		}
		cand.NodesRarity = len(cand.Matches)
		if cand.NodesRarity > 0 {
			out = append(out, cand)
		}
	}
	return out
}

func unionAll(sets []chain.TraitSet) chain.TraitSet {
	var all []string
	for _, s := range sets {
		all = append(all, s...)
	}
	return chain.NewTraitSet(all...)
}
