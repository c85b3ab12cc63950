package solver

import (
	"sort"

	"fleetspotter/internal/chain"
)

type matchedSet struct {
	traits chain.TraitSet
	nodes  map[int]bool
}

// Optimize computes, per node, the matched trait sets not dominated by a
// larger accepted set, and flags each NodeMatch accordingly.
//
// Sets are visited largest first. A set is accepted for a node unless it is a
// strict subset of a set already accepted there; it may be accepted for some
// of its nodes and rejected for others.
func Optimize(cands []*Candidate) map[int][]chain.TraitSet {
	byKey := make(map[string]*matchedSet)
	for _, cand := range cands {
		for n, m := range cand.Matches {
			key := m.MatchedTraits.Key()
			ms, ok := byKey[key]
			if !ok {
				ms = &matchedSet{traits: m.MatchedTraits, nodes: make(map[int]bool)}
				byKey[key] = ms
			}
			ms.nodes[n] = true
		}
	}

	sets := make([]*matchedSet, 0, len(byKey))
	for _, ms := range byKey {
		sets = append(sets, ms)
	}
	sort.Slice(sets, func(i, j int) bool {
		if sets[i].traits.Len() != sets[j].traits.Len() {
			return sets[i].traits.Len() > sets[j].traits.Len()
		}
		return sets[i].traits.Key() < sets[j].traits.Key()
	})

	accepted := make(map[int][]chain.TraitSet)
	for _, ms := range sets {
		for n := range ms.nodes {
			if dominated(ms.traits, accepted[n]) {
				continue
			}
			accepted[n] = append(accepted[n], ms.traits)
		}
	}

	for _, cand := range cands {
		for n, m := range cand.Matches {
			m.Optimal = containsSet(accepted[n], m.MatchedTraits)
		}
	}
	return accepted
}

func dominated(s chain.TraitSet, accepted []chain.TraitSet) bool {
	for _, a := range accepted {
		if s.StrictSubsetOf(a) {
			return true
		}
	}
	return false
}

func containsSet(sets []chain.TraitSet, s chain.TraitSet) bool {
	for _, a := range sets {
		if a.Equal(s) {
			return true
		}
	}
	return false
}
